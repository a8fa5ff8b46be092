package constants

// DraftStatus is the canonical lifecycle state for rows in draft_receipts.
type DraftStatus string

// Stable values (store these exact strings in DB).
const (
	StatusDraft DraftStatus = "DRAFT" // editable, not yet written to any ledger
	StatusSent  DraftStatus = "SENT"  // terminal, immutable to business mutation
)

// Valid reports whether s is a known draft status.
func (s DraftStatus) Valid() bool {
	return s == StatusDraft || s == StatusSent
}
