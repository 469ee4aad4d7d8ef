package resolver

import "strings"

// Trigger is the platform message a plug-in is registered on.
type Trigger string

const (
	TriggerCreate Trigger = "create"
	TriggerUpdate Trigger = "update"
	TriggerDelete Trigger = "delete"
	TriggerAssign Trigger = "assign"
)

// Triggers lists the supported triggers in match priority order.
var Triggers = []Trigger{TriggerCreate, TriggerUpdate, TriggerDelete, TriggerAssign}

// ResolveTrigger returns the first trigger keyword contained in text, or "".
func ResolveTrigger(text string) Trigger {
	lower := strings.ToLower(text)
	for _, t := range Triggers {
		if strings.Contains(lower, string(t)) {
			return t
		}
	}
	return ""
}
