package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/receipt-ledger/constants"
)

// AuditEvent is one immutable record of a draft lifecycle occurrence.
// Events are append-only: nothing in the public contract updates or deletes a
// persisted event.
//
// Data is an open, string-keyed bag of event-specific values; its shape varies
// per event type. It is serialized to JSON only at the storage boundary.
type AuditEvent struct {
	ID        uuid.UUID           `json:"event_id"`
	Type      constants.EventType `json:"event_type"`
	Timestamp time.Time           `json:"timestamp"`
	Actor     string              `json:"actor"`
	DraftID   *uuid.UUID          `json:"draft_id,omitempty"`
	Data      map[string]any      `json:"data"`
	CreatedAt time.Time           `json:"created_at"`
}
