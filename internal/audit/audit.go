package audit

import "time"

// ActorType identifies who performed an action.
type ActorType string

const (
	ActorUser   ActorType = "user"
	ActorSystem ActorType = "system"
)

// Action describes what was done.
type Action string

const (
	ActionSessionStarted        Action = "session_started"
	ActionSessionReset          Action = "session_reset"
	ActionRequirementsConfirmed Action = "requirements_confirmed"
	ActionPluginAmended         Action = "plugin_amended"
	ActionPluginRegenerated     Action = "plugin_regenerated"
)

// Entry is a single audit trail record.
type Entry struct {
	ID            string    `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	ActorType     ActorType `json:"actor_type"`
	ActorID       string    `json:"actor_id"`
	Action        Action    `json:"action"`
	SessionID     string    `json:"session_id,omitempty"`
	Entity        string    `json:"entity,omitempty"`
	Summary       string    `json:"summary"`
	Detail        string    `json:"detail,omitempty"`
	PreviousValue string    `json:"previous_value,omitempty"`
	NewValue      string    `json:"new_value,omitempty"`
}
