package requirements

import (
	"strings"
	"time"

	"github.com/ziadkadry99/d365-plugin-assistant/internal/llm"
)

// PendingFields marks a fields value that is needed but not yet resolved.
const PendingFields = "*pending*"

// State is where a session is in the requirements dialogue.
type State string

const (
	StateCollecting     State = "collecting"
	StateReadyToConfirm State = "ready_to_confirm"
	StateConfirmed      State = "confirmed"
)

// Record is the requirements gathered so far. It is rebuilt from the whole
// transcript on every turn until the session is confirmed.
type Record struct {
	Entity  string `json:"entity"`
	Trigger string `json:"trigger"`
	Fields  string `json:"fields"`
	Logic   string `json:"logic"`
}

// Missing lists the requirement names whose value is empty.
func (r Record) Missing() []string {
	var missing []string
	for _, f := range r.pairs() {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// Ready reports whether every requirement holds a resolved value.
func (r Record) Ready() bool {
	for _, f := range r.pairs() {
		if f.value == "" || strings.Contains(strings.ToLower(f.value), PendingFields) {
			return false
		}
	}
	return true
}

type namedValue struct{ name, value string }

func (r Record) pairs() []namedValue {
	return []namedValue{
		{"entity", r.Entity},
		{"trigger", r.Trigger},
		{"fields", r.Fields},
		{"logic", r.Logic},
	}
}

// Session is one requirements conversation.
type Session struct {
	ID         string        `json:"id"`
	UserID     string        `json:"user_id"`
	State      State         `json:"state"`
	Record     Record        `json:"record"`
	Transcript []llm.Message `json:"transcript"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// Confirmed reports whether the requirements were confirmed.
func (s *Session) Confirmed() bool { return s.State == StateConfirmed }

// TurnInput is one user action.
type TurnInput struct {
	Content string `json:"content"`
	// Confirm is set when the user pressed the confirm control.
	Confirm bool `json:"confirm"`
}

// ReplyKind tells a front end how to present a reply.
type ReplyKind string

const (
	ReplyQuestion ReplyKind = "question"
	ReplySummary  ReplyKind = "summary"
	ReplyCode     ReplyKind = "code"
	ReplyNotice   ReplyKind = "notice"
)

// TurnResult is the outcome of a turn.
type TurnResult struct {
	SessionID string    `json:"session_id"`
	Kind      ReplyKind `json:"kind"`
	Reply     string    `json:"reply"`
	State     State     `json:"state"`
	Record    Record    `json:"record"`
	Missing   []string  `json:"missing"`
	Ready     bool      `json:"ready"`
}

// CodeRecord is one generated plug-in, with the requirements it was built from.
type CodeRecord struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	PluginName string    `json:"plugin_name"`
	Entity     string    `json:"entity"`
	Trigger    string    `json:"trigger"`
	Fields     string    `json:"fields"`
	Logic      string    `json:"logic"`
	Code       string    `json:"code"`
	CreatedAt  time.Time `json:"created_at"`
}
