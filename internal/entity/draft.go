package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/receipt-ledger/constants"
)

// Receipt carries the field-level data of one field receipt. It has no identity
// of its own; it is owned by exactly one Draft.
type Receipt struct {
	VendorName         string   `json:"vendor_name"`
	ReceiptDate        string   `json:"receipt_date"` // YYYY-MM-DD
	TotalAmount        float64  `json:"total_amount"`
	Tax10Amount        *float64 `json:"tax_10_amount,omitempty"`
	Tax8Amount         *float64 `json:"tax_8_amount,omitempty"`
	InvoiceNumber      string   `json:"invoice_number"`
	BusinessLocationID string   `json:"business_location_id"`
	StaffID            string   `json:"staff_id"`
	AccountTitle       string   `json:"account_title,omitempty"`
	Memo               string   `json:"memo,omitempty"`
}

// Draft wraps a Receipt with lifecycle state for the save/send workflow.
//
// Status is monotonic: DRAFT -> SENT only. Once SENT the receipt data is
// immutable to business mutation; deletion is still permitted but does not
// retract prior ledger writes.
type Draft struct {
	ID       uuid.UUID             `json:"draft_id"`
	Receipt  Receipt               `json:"receipt"`
	Status   constants.DraftStatus `json:"status"`
	ImageRef string                `json:"image_ref,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	SentAt    *time.Time `json:"sent_at,omitempty"`

	// Send bookkeeping. Incremented per attempt; LastSendError is cleared on
	// a successful transition.
	SendAttemptCount  int        `json:"send_attempt_count"`
	LastSendAttemptAt *time.Time `json:"last_send_attempt_at,omitempty"`
	LastSendError     string     `json:"last_send_error,omitempty"`
}

// IsDraft reports whether the draft is still editable.
func (d *Draft) IsDraft() bool {
	return d.Status == constants.StatusDraft
}

// IsSent reports whether the draft has reached its terminal state.
func (d *Draft) IsSent() bool {
	return d.Status == constants.StatusSent
}
