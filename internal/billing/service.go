package billing

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	errors "github.com/avelines/creator-ledger/internal"
	"github.com/avelines/creator-ledger/internal/ledger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository owns the transactions table. Status transitions happen through
// the intake pipeline; this service only creates pending rows and reads.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, t *Transaction) error
	GetByID(ctx context.Context, id string) (*Transaction, error)
	UpdateStatus(ctx context.Context, id, status string, confirmedAt *time.Time) error
	ListByPayer(ctx context.Context, payerID string, limit, offset int) ([]*Transaction, error)
	ListByCreator(ctx context.Context, creatorID string, limit, offset int) ([]*Transaction, error)
}

type Service struct {
	repo     Repository
	currency string
	logger   *slog.Logger
}

func NewService(repo Repository, currency string, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		currency: currency,
		logger:   logger,
	}
}

// CreateSubscription records a pending subscription charge. Nothing touches
// the ledger until the gateway confirms the payment.
func (s *Service) CreateSubscription(ctx context.Context, payerID, creatorID string, amount int64, metadata json.RawMessage) (*Transaction, error) {
	return s.createPending(ctx, ledger.KindSubscription, payerID, creatorID, amount, metadata)
}

// CreatePurchase records a pending pay-per-view purchase.
func (s *Service) CreatePurchase(ctx context.Context, payerID, creatorID string, amount int64, metadata json.RawMessage) (*Transaction, error) {
	return s.createPending(ctx, ledger.KindPPV, payerID, creatorID, amount, metadata)
}

// CreateTip records a pending tip.
func (s *Service) CreateTip(ctx context.Context, payerID, creatorID string, amount int64, metadata json.RawMessage) (*Transaction, error) {
	return s.createPending(ctx, ledger.KindTip, payerID, creatorID, amount, metadata)
}

func (s *Service) GetTransaction(ctx context.Context, id string) (*Transaction, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListForPayer(ctx context.Context, payerID string, limit, offset int) ([]*Transaction, error) {
	return s.repo.ListByPayer(ctx, payerID, clampLimit(limit), clampOffset(offset))
}

func (s *Service) ListForCreator(ctx context.Context, creatorID string, limit, offset int) ([]*Transaction, error) {
	return s.repo.ListByCreator(ctx, creatorID, clampLimit(limit), clampOffset(offset))
}

func (s *Service) createPending(ctx context.Context, kind ledger.Kind, payerID, creatorID string, amount int64, metadata json.RawMessage) (*Transaction, error) {
	if amount <= 0 {
		return nil, errors.ErrInvalidAmount
	}
	if payerID == "" || creatorID == "" {
		return nil, errors.NewValidationError("payer_id and creator_id are required", errors.ErrCodeValidationFailed)
	}

	now := time.Now()
	txn := &Transaction{
		ID:        uuid.New().String(),
		Kind:      kind,
		PayerID:   payerID,
		CreatorID: creatorID,
		Amount:    amount,
		Currency:  s.currency,
		Status:    StatusPending,
		Metadata:  metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, txn); err != nil {
		s.logger.Error("failed to create pending transaction", "error", err, "kind", kind, "payer_id", payerID, "creator_id", creatorID)
		return nil, err
	}

	s.logger.Info("created pending transaction",
		"transaction_id", txn.ID,
		"kind", kind,
		"amount", amount,
		"payer_id", payerID,
		"creator_id", creatorID)

	return txn, nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return 50
	}
	return limit
}

func clampOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
