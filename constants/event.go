package constants

// EventType labels one audit event in the draft lifecycle.
type EventType string

// Stable values (store these exact strings in DB).
const (
	EventDraftCreated         EventType = "DRAFT_CREATED"
	EventDraftUpdated         EventType = "DRAFT_UPDATED"
	EventDraftDeleted         EventType = "DRAFT_DELETED"
	EventSendAttempted        EventType = "SEND_ATTEMPTED"
	EventSendValidationFailed EventType = "SEND_VALIDATION_FAILED"
	EventSendSucceeded        EventType = "SEND_SUCCEEDED"
	EventSendFailed           EventType = "SEND_FAILED"
)

// EventTypes is the closed set of known audit event types, in lifecycle order.
var EventTypes = []EventType{
	EventDraftCreated,
	EventDraftUpdated,
	EventDraftDeleted,
	EventSendAttempted,
	EventSendValidationFailed,
	EventSendSucceeded,
	EventSendFailed,
}

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	for _, known := range EventTypes {
		if t == known {
			return true
		}
	}
	return false
}
