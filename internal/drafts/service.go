package drafts

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/receipt-ledger/constants"
	"github.com/joseph-ayodele/receipt-ledger/internal/audit"
	"github.com/joseph-ayodele/receipt-ledger/internal/common"
	"github.com/joseph-ayodele/receipt-ledger/internal/entity"
	"github.com/joseph-ayodele/receipt-ledger/internal/gate"
	"github.com/joseph-ayodele/receipt-ledger/internal/repository"
)

// Service owns the draft lifecycle up to, but not including, sending.
type Service struct {
	repo   repository.DraftRepository
	gate   *gate.Gate
	trail  *audit.Trail
	logger *slog.Logger
}

func NewService(repo repository.DraftRepository, g *gate.Gate, trail *audit.Trail, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, gate: g, trail: trail, logger: logger}
}

// Create stores a new DRAFT. Drafts carry arbitrary partial data at this
// stage; completeness is only enforced at send time. When imageRef is set and
// an editable draft for the same image already exists, the incoming data lands
// on that draft instead of creating a second one. A SENT match does not
// participate in dedup: its record is immutable, so a new receipt for the same
// image starts a fresh draft.
func (s *Service) Create(ctx context.Context, receipt entity.Receipt, imageRef string) (*entity.Draft, error) {
	if imageRef != "" {
		existing, err := s.repo.GetByImageRef(ctx, imageRef)
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
		if existing != nil && existing.IsDraft() {
			s.logger.Info("draft create deduplicated", "draft_id", existing.ID, "image_ref", imageRef)
			return s.Update(ctx, existing.ID, receipt)
		}
	}

	now := time.Now().UTC()
	draft := &entity.Draft{
		ID:        uuid.New(),
		Receipt:   receipt,
		Status:    constants.StatusDraft,
		ImageRef:  imageRef,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Save(ctx, draft); err != nil {
		return nil, err
	}

	s.trail.RecordDraft(ctx, constants.EventDraftCreated, draft.ID, map[string]any{
		"vendor_name": receipt.VendorName,
		"image_ref":   imageRef,
	})
	s.logger.Info("draft created", "draft_id", draft.ID, "vendor", receipt.VendorName)
	return draft, nil
}

// Get returns one draft by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*entity.Draft, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns drafts, optionally filtered to one status.
func (s *Service) List(ctx context.Context, status *constants.DraftStatus) ([]*entity.Draft, error) {
	if status != nil && !status.Valid() {
		return nil, common.InvalidArgumentErrorf("unknown status %q", *status)
	}
	return s.repo.List(ctx, status)
}

// Update replaces the receipt data of a DRAFT. SENT drafts are immutable.
func (s *Service) Update(ctx context.Context, id uuid.UUID, receipt entity.Receipt) (*entity.Draft, error) {
	draft, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if draft.IsSent() {
		return nil, common.NewAppError("DRAFT_ALREADY_SENT",
			"sent drafts cannot be modified", common.ErrAlreadySent)
	}

	draft.Receipt = receipt
	draft.UpdatedAt = time.Now().UTC()
	if err := s.repo.Save(ctx, draft); err != nil {
		return nil, err
	}

	s.trail.RecordDraft(ctx, constants.EventDraftUpdated, draft.ID, map[string]any{
		"vendor_name": receipt.VendorName,
	})
	return draft, nil
}

// Delete removes a draft in any status. Deleting a SENT draft does not
// retract rows already written to the ledgers.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	draft, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return common.NewAppError("DRAFT_NOT_FOUND", "draft not found", common.ErrNotFound)
	}

	s.trail.RecordDraft(ctx, constants.EventDraftDeleted, id, map[string]any{
		"status_at_delete": string(draft.Status),
	})
	s.logger.Info("draft deleted", "draft_id", id, "status", draft.Status)
	return nil
}

// Validate runs the send-readiness assessment without sending. The draft is
// not modified and no attempt is recorded.
func (s *Service) Validate(ctx context.Context, id uuid.UUID) (gate.Result, error) {
	draft, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return gate.Result{}, err
	}
	return s.gate.Assess(draft.Receipt), nil
}
