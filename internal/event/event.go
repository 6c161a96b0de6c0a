// Package event defines the closed vocabulary of mutation event types
// and actions. Publishers and webhook filters share these constants so
// a typo cannot silently fragment delivery.
package event

// Type names a resource's mutation stream, e.g. "chore-updated".
type Type string

const (
	ShoppingUpdated    Type = "shopping-updated"
	ChoreUpdated       Type = "chore-updated"
	AppointmentUpdated Type = "appointment-updated"
	TodoUpdated        Type = "todo-updated"
	ReminderUpdated    Type = "reminder-updated"
	WhiteboardUpdated  Type = "whiteboard-updated"
	VisionBoardUpdated Type = "vision-board-updated"
	MessageReceived    Type = "message-received"
)

// Wildcard matches every event type in a webhook subscription's filter.
const Wildcard = "*"

// Types lists every event type a subscription may filter on.
func Types() []Type {
	return []Type{
		ShoppingUpdated,
		ChoreUpdated,
		AppointmentUpdated,
		TodoUpdated,
		ReminderUpdated,
		WhiteboardUpdated,
		VisionBoardUpdated,
		MessageReceived,
	}
}

// Valid reports whether t is a known event type.
func (t Type) Valid() bool {
	for _, known := range Types() {
		if t == known {
			return true
		}
	}
	return false
}

// Action describes what a mutation did to its resource.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)
