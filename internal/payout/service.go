package payout

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/avelines/creator-ledger/internal"
	"github.com/avelines/creator-ledger/internal/core/events"
	"github.com/avelines/creator-ledger/internal/kyc"
	"github.com/avelines/creator-ledger/internal/ledger"
	"github.com/avelines/creator-ledger/internal/transfer"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository owns the payouts table. Terminal transitions are guarded on the
// PENDING status in SQL, so two racing workers cannot both complete the same
// payout.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, p *Payout) error
	GetByID(ctx context.Context, id string) (*Payout, error)
	MarkPaid(ctx context.Context, id, externalTransferID string, completedAt time.Time) error
	MarkFailed(ctx context.Context, id, reason string) error
	ListByCreator(ctx context.Context, creatorID string, limit, offset int) ([]*Payout, error)
	ListByStatus(ctx context.Context, status string, limit, offset int) ([]*Payout, error)
	ListDuePending(ctx context.Context, due time.Time, limit int) ([]*Payout, error)
	SumPaidByCreator(ctx context.Context, creatorID string) (int64, error)
}

// Enqueuer schedules payout executions on the durable queue. Delivery is at
// least once; ExecutePayout tolerates replays because terminal payouts no-op.
type Enqueuer interface {
	EnqueueExecute(ctx context.Context, payoutID string, processAt time.Time) error
}

type Service struct {
	db       *gorm.DB
	repo     Repository
	ledger   *ledger.Engine
	kycStore kyc.Store
	gateway  transfer.Gateway
	enqueuer Enqueuer
	cfg      internal.PayoutConfig
	bus      *events.EventBus
	logger   *slog.Logger
}

func NewService(
	db *gorm.DB,
	repo Repository,
	ledgerEngine *ledger.Engine,
	kycStore kyc.Store,
	gateway transfer.Gateway,
	enqueuer Enqueuer,
	cfg internal.PayoutConfig,
	bus *events.EventBus,
	logger *slog.Logger,
) *Service {
	return &Service{
		db:       db,
		repo:     repo,
		ledger:   ledgerEngine,
		kycStore: kycStore,
		gateway:  gateway,
		enqueuer: enqueuer,
		cfg:      cfg,
		bus:      bus,
		logger:   logger,
	}
}

// RequestPayout validates a creator's withdrawal request and persists it as
// PENDING. The balance check here is advisory; the authoritative check runs
// again in ExecutePayout. No ledger row is touched and no transfer happens,
// so a failed or repeated request is harmless.
func (s *Service) RequestPayout(ctx context.Context, creatorID string, amount int64, mode Mode, destination string) (*Payout, error) {
	if !mode.Valid() {
		return nil, internal.NewValidationError(fmt.Sprintf("unknown payout mode %q", mode), internal.ErrCodeInvalidMode)
	}
	if destination == "" {
		return nil, internal.NewValidationError("destination is required", internal.ErrCodeValidationFailed)
	}
	if amount <= 0 {
		return nil, internal.ErrInvalidAmount
	}

	level, err := s.kycStore.LevelFor(ctx, creatorID)
	if err != nil {
		return nil, err
	}
	if !level.AtLeast(mode.RequiredKycLevel()) {
		s.logger.Warn("payout rejected on KYC level",
			"creator_id", creatorID,
			"mode", mode,
			"level", level,
			"required", mode.RequiredKycLevel())
		return nil, internal.ErrKycInsufficient
	}

	if amount < s.cfg.MinimumAmount {
		return nil, internal.ErrAmountBelowMinimum
	}

	balance, err := s.ledger.BalanceBreakdown(ctx, creatorID, time.Now())
	if err != nil {
		return nil, err
	}
	if amount > balance.Available {
		s.logger.Warn("payout rejected on balance",
			"creator_id", creatorID,
			"amount", amount,
			"available", balance.Available)
		return nil, internal.ErrInsufficientBalance
	}

	fee := ComputeFee(amount, mode, s.cfg.ExpressFeePct)
	now := time.Now()

	delay := s.cfg.StandardDelay
	if mode.IsExpress() {
		delay = s.cfg.ExpressDelay
	}

	p := &Payout{
		ID:                    uuid.New().String(),
		CreatorID:             creatorID,
		AmountRequested:       amount,
		FeeAmount:             fee,
		AmountNet:             amount - fee,
		Currency:              s.ledger.Currency(),
		Mode:                  mode,
		Status:                StatusPending,
		Destination:           destination,
		RequestedAt:           now,
		EstimatedCompletionAt: now.Add(delay),
	}

	if err := s.repo.Create(ctx, p); err != nil {
		s.logger.Error("failed to persist payout request", "error", err, "creator_id", creatorID)
		return nil, err
	}

	if err := s.enqueuer.EnqueueExecute(ctx, p.ID, p.EstimatedCompletionAt); err != nil {
		// The row is already durable; the clearance sweep re-enqueues
		// pending payouts whose schedule has passed.
		s.logger.Error("failed to enqueue payout execution", "error", err, "payout_id", p.ID)
	}

	if s.bus != nil {
		_ = s.bus.Publish(ctx, events.NewPayoutRequestedEvent(p.ID, creatorID, amount, string(mode)))
	}

	s.logger.Info("payout requested",
		"payout_id", p.ID,
		"creator_id", creatorID,
		"amount", amount,
		"fee", fee,
		"mode", mode,
		"estimated_completion", p.EstimatedCompletionAt)

	return p, nil
}

// ExecutePayout runs one execution attempt for a payout. Non-PENDING payouts
// no-op so at-least-once delivery is safe. The gateway call happens outside
// any database transaction; ledger entries are posted only after the transfer
// confirms, so a gateway failure can never produce a phantom debit.
func (s *Service) ExecutePayout(ctx context.Context, payoutID string) error {
	p, err := s.repo.GetByID(ctx, payoutID)
	if err != nil {
		return err
	}
	if !p.IsPending() {
		s.logger.Info("skipping payout in terminal state", "payout_id", payoutID, "status", p.Status)
		return nil
	}

	balance, err := s.ledger.BalanceBreakdown(ctx, p.CreatorID, time.Now())
	if err != nil {
		return err
	}
	if p.AmountRequested > balance.Available {
		return s.fail(ctx, p, "insufficient balance at execution")
	}

	result, err := s.gateway.Transfer(ctx, &transfer.Request{
		Destination:    p.Destination,
		Amount:         p.AmountNet,
		Currency:       p.Currency,
		IdempotencyKey: p.ID,
	})
	if err != nil {
		return s.fail(ctx, p, fmt.Sprintf("transfer failed: %v", err))
	}

	completedAt := time.Now()
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).MarkPaid(ctx, p.ID, result.TransferID, completedAt); err != nil {
			return err
		}
		_, err := s.ledger.WithTx(tx).PostWithdrawal(ctx, ledger.WithdrawalParams{
			CreatorID: p.CreatorID,
			Amount:    p.AmountRequested,
			Fee:       p.FeeAmount,
			PayoutID:  p.ID,
		})
		return err
	})
	if txErr != nil {
		// The transfer already left; never mark FAILED here or a second
		// attempt would double-send. Surface the error so the job retries
		// the recording step.
		s.logger.Error("transfer succeeded but recording failed",
			"error", txErr,
			"payout_id", p.ID,
			"transfer_id", result.TransferID)
		return txErr
	}

	if s.bus != nil {
		_ = s.bus.Publish(ctx, events.NewPayoutPaidEvent(p.ID, p.CreatorID, p.AmountNet, result.TransferID))
	}

	s.logger.Info("payout paid",
		"payout_id", p.ID,
		"creator_id", p.CreatorID,
		"amount_net", p.AmountNet,
		"transfer_id", result.TransferID)

	return nil
}

// CancelPayout is the administrative escape hatch: it transitions a PENDING
// payout to FAILED before a worker picks it up. Once execution has initiated
// a transfer there is nothing to cancel.
func (s *Service) CancelPayout(ctx context.Context, payoutID, reason string) (*Payout, error) {
	p, err := s.repo.GetByID(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	if !p.IsPending() {
		return nil, internal.ErrInvalidPayoutState
	}

	if reason == "" {
		reason = "cancelled by operator"
	}
	if err := s.repo.MarkFailed(ctx, payoutID, reason); err != nil {
		return nil, err
	}

	if s.bus != nil {
		_ = s.bus.Publish(ctx, events.NewPayoutFailedEvent(p.ID, p.CreatorID, reason))
	}

	s.logger.Info("payout cancelled", "payout_id", payoutID, "reason", reason)
	return s.repo.GetByID(ctx, payoutID)
}

func (s *Service) GetPayout(ctx context.Context, payoutID string) (*Payout, error) {
	return s.repo.GetByID(ctx, payoutID)
}

// GetPayoutHistory returns a creator's payouts newest first, including FAILED
// rows; asynchronous failures are only visible here.
func (s *Service) GetPayoutHistory(ctx context.Context, creatorID string, limit, offset int) ([]*Payout, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByCreator(ctx, creatorID, limit, offset)
}

// TotalPaidOut returns the lifetime net amount a creator has withdrawn,
// summed over PAID payouts only.
func (s *Service) TotalPaidOut(ctx context.Context, creatorID string) (int64, error) {
	return s.repo.SumPaidByCreator(ctx, creatorID)
}

func (s *Service) ListByStatus(ctx context.Context, status string, limit, offset int) ([]*Payout, error) {
	if status != StatusPending && status != StatusPaid && status != StatusFailed {
		return nil, internal.NewValidationError(fmt.Sprintf("unknown payout status %q", status), internal.ErrCodeValidationFailed)
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByStatus(ctx, status, limit, offset)
}

// SweepDuePayouts re-enqueues execution for PENDING payouts whose schedule
// has passed; it backstops enqueue failures at request time. Replayed
// executions are harmless because terminal payouts no-op.
func (s *Service) SweepDuePayouts(ctx context.Context, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 100
	}

	due, err := s.repo.ListDuePending(ctx, time.Now(), batchSize)
	if err != nil {
		return 0, err
	}

	enqueued := 0
	for _, p := range due {
		if err := s.enqueuer.EnqueueExecute(ctx, p.ID, time.Now()); err != nil {
			s.logger.Error("sweep failed to enqueue payout", "error", err, "payout_id", p.ID)
			continue
		}
		enqueued++
	}

	if enqueued > 0 {
		s.logger.Info("clearance sweep re-enqueued due payouts", "count", enqueued)
	}
	return enqueued, nil
}

// fail records a terminal failure. FAILED payouts are never retried in place;
// funds stay untouched in the ledger for a future request.
func (s *Service) fail(ctx context.Context, p *Payout, reason string) error {
	if err := s.repo.MarkFailed(ctx, p.ID, reason); err != nil {
		return err
	}

	if s.bus != nil {
		_ = s.bus.Publish(ctx, events.NewPayoutFailedEvent(p.ID, p.CreatorID, reason))
	}

	s.logger.Warn("payout failed",
		"payout_id", p.ID,
		"creator_id", p.CreatorID,
		"reason", reason)
	return nil
}
