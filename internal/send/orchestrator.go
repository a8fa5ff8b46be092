package send

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/receipt-ledger/constants"
	"github.com/joseph-ayodele/receipt-ledger/internal/audit"
	"github.com/joseph-ayodele/receipt-ledger/internal/common"
	"github.com/joseph-ayodele/receipt-ledger/internal/entity"
	"github.com/joseph-ayodele/receipt-ledger/internal/gate"
	"github.com/joseph-ayodele/receipt-ledger/internal/ledger"
	"github.com/joseph-ayodele/receipt-ledger/internal/repository"
)

// ItemStatus classifies the outcome of one draft within a batch.
type ItemStatus string

const (
	ItemSent             ItemStatus = "sent"
	ItemNotFound         ItemStatus = "not_found"
	ItemAlreadySent      ItemStatus = "already_sent"
	ItemValidationFailed ItemStatus = "validation_failed"
	ItemError            ItemStatus = "error"
)

// ReceiptWriter is the slice of a ledger writer the orchestrator needs.
type ReceiptWriter interface {
	Kind() ledger.Kind
	WriteReceipt(r entity.Receipt) ledger.Result
}

// ItemResult is the per-draft outcome of a send batch.
type ItemResult struct {
	DraftID uuid.UUID  `json:"draft_id"`
	Status  ItemStatus `json:"status"`
	Errors  []string   `json:"errors,omitempty"`

	// SentAt carries the prior transition time on an already_sent outcome.
	SentAt *time.Time `json:"sent_at,omitempty"`

	Branch *ledger.Result `json:"branch,omitempty"`
	Staff  *ledger.Result `json:"staff,omitempty"`
}

// Summary aggregates a batch. Every requested draft is accounted for exactly
// once: Sent + Failed == Total.
type Summary struct {
	Total   int          `json:"total"`
	Sent    int          `json:"sent"`
	Failed  int          `json:"failed"`
	Results []ItemResult `json:"results"`
}

// Orchestrator drives the draft-to-ledger send pipeline. Drafts in a batch
// are isolated from each other: one draft's failure never aborts the rest.
type Orchestrator struct {
	repo   repository.DraftRepository
	gate   *gate.Gate
	branch ReceiptWriter
	staff  ReceiptWriter
	trail  *audit.Trail
	logger *slog.Logger
}

func NewOrchestrator(
	repo repository.DraftRepository,
	g *gate.Gate,
	branch, staff ReceiptWriter,
	trail *audit.Trail,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		repo:   repo,
		gate:   g,
		branch: branch,
		staff:  staff,
		trail:  trail,
		logger: logger,
	}
}

// SendDrafts processes the given drafts in receipt-date order (draft ID as
// tie-break), so repeated runs over the same inputs touch the ledgers in the
// same sequence.
func (o *Orchestrator) SendDrafts(ctx context.Context, ids []uuid.UUID) (*Summary, error) {
	if len(ids) == 0 {
		return nil, common.InvalidArgumentError("no draft IDs given")
	}

	ids = dedupe(ids)
	found, err := o.repo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]*entity.Draft, len(found))
	for _, d := range found {
		byID[d.ID] = d
	}

	ordered := make([]uuid.UUID, len(ids))
	copy(ordered, ids)
	sort.Slice(ordered, func(i, j int) bool {
		a, b := byID[ordered[i]], byID[ordered[j]]
		switch {
		case a == nil:
			return b != nil
		case b == nil:
			return false
		case a.Receipt.ReceiptDate != b.Receipt.ReceiptDate:
			return a.Receipt.ReceiptDate < b.Receipt.ReceiptDate
		default:
			return a.ID.String() < b.ID.String()
		}
	})

	summary := &Summary{Total: len(ordered)}
	for _, id := range ordered {
		var item ItemResult
		draft, ok := byID[id]
		if !ok {
			item = ItemResult{DraftID: id, Status: ItemNotFound, Errors: []string{"draft not found"}}
		} else {
			item = o.processDraft(ctx, draft)
		}

		if item.Status == ItemSent {
			summary.Sent++
		} else {
			summary.Failed++
		}
		summary.Results = append(summary.Results, item)
	}

	o.logger.Info("send batch finished",
		"total", summary.Total, "sent", summary.Sent, "failed", summary.Failed)
	return summary, nil
}

// processDraft isolates one draft's pipeline run: whatever escapes sendOne is
// converted into an error item so the rest of the batch proceeds.
func (o *Orchestrator) processDraft(ctx context.Context, draft *entity.Draft) (item ItemResult) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("draft processing panicked", "draft_id", draft.ID, "panic", r)
			o.trail.RecordDraft(ctx, constants.EventSendFailed, draft.ID, map[string]any{
				"error": fmt.Sprintf("%v", r),
			})
			item = ItemResult{
				DraftID: draft.ID,
				Status:  ItemError,
				Errors:  []string{fmt.Sprintf("internal error: %v", r)},
			}
		}
	}()
	return o.sendOne(ctx, draft)
}

// sendOne runs the full pipeline for a single draft. Ledger writer failures
// are reported in the item but do not block the DRAFT -> SENT transition;
// only a failure to persist the transition itself marks the item as error.
func (o *Orchestrator) sendOne(ctx context.Context, draft *entity.Draft) ItemResult {
	item := ItemResult{DraftID: draft.ID}

	if draft.IsSent() {
		item.Status = ItemAlreadySent
		item.SentAt = draft.SentAt
		item.Errors = []string{"draft already sent"}
		return item
	}

	now := time.Now().UTC()
	draft.SendAttemptCount++
	draft.LastSendAttemptAt = &now

	o.trail.RecordDraft(ctx, constants.EventSendAttempted, draft.ID, map[string]any{
		"attempt": draft.SendAttemptCount,
	})

	assessment := o.gate.Assess(draft.Receipt)
	if !assessment.Ready {
		item.Status = ItemValidationFailed
		item.Errors = assessment.Errors
		draft.LastSendError = strings.Join(assessment.Errors, "; ")
		if err := o.repo.Save(ctx, draft); err != nil {
			o.logger.Warn("attempt bookkeeping not persisted", "draft_id", draft.ID, "error", err)
		}
		o.trail.RecordDraft(ctx, constants.EventSendValidationFailed, draft.ID, map[string]any{
			"errors": assessment.Errors,
		})
		return item
	}

	branchRes := o.branch.WriteReceipt(draft.Receipt)
	staffRes := o.staff.WriteReceipt(draft.Receipt)
	item.Branch = &branchRes
	item.Staff = &staffRes
	for _, res := range []ledger.Result{branchRes, staffRes} {
		if res.Status == ledger.StatusError {
			item.Errors = append(item.Errors, res.Err)
		}
	}

	draft.Status = constants.StatusSent
	sentAt := time.Now().UTC()
	draft.SentAt = &sentAt
	draft.UpdatedAt = sentAt
	draft.LastSendError = strings.Join(item.Errors, "; ")

	if err := o.repo.Save(ctx, draft); err != nil {
		item.Status = ItemError
		item.Errors = append(item.Errors, fmt.Sprintf("persist transition: %v", err))
		o.trail.RecordDraft(ctx, constants.EventSendFailed, draft.ID, map[string]any{
			"error":  err.Error(),
			"branch": branchRes,
			"staff":  staffRes,
		})
		o.logger.Error("send transition not persisted", "draft_id", draft.ID, "error", err)
		return item
	}

	item.Status = ItemSent
	o.trail.RecordDraft(ctx, constants.EventSendSucceeded, draft.ID, map[string]any{
		"branch": branchRes,
		"staff":  staffRes,
	})
	o.logger.Info("draft sent",
		"draft_id", draft.ID,
		"branch_status", branchRes.Status, "staff_status", staffRes.Status)
	return item
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
