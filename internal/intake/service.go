package intake

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"time"

	errors "github.com/avelines/creator-ledger/internal"
	"github.com/avelines/creator-ledger/internal/billing"
	eventDatamodel "github.com/avelines/creator-ledger/internal/core/datamodel/event"
	"github.com/avelines/creator-ledger/internal/core/events"
	"github.com/avelines/creator-ledger/internal/ledger"
	"gorm.io/gorm"
)

const (
	OutcomeApplied  = "applied"
	OutcomeIgnored  = "ignored"
	OutcomeHeld     = "held"
	OutcomeRefunded = "refunded"
)

// ProcessedEventRepository owns the processed_events idempotency table.
type ProcessedEventRepository interface {
	WithTx(tx *gorm.DB) ProcessedEventRepository
	Insert(ctx context.Context, row *eventDatamodel.ProcessedEvent) error
	SetOutcome(ctx context.Context, externalEventID string, outcome json.RawMessage) error
	GetByExternalID(ctx context.Context, externalEventID string) (*eventDatamodel.ProcessedEvent, error)
}

// Outcome is what was (or had already been) applied for one external event.
// Duplicate deliveries return the outcome recorded on first processing.
type Outcome struct {
	Status      string `json:"status"`
	ReferenceID string `json:"reference_id,omitempty"`
	Amount      int64  `json:"amount,omitempty"`
	Duplicate   bool   `json:"-"`
}

// Service ingests gateway events exactly once. The idempotency insert, the
// ledger postings and the transaction status change commit as one database
// transaction, so a crash or a racing duplicate can never half-apply an
// event.
type Service struct {
	db           *gorm.DB
	processed    ProcessedEventRepository
	ledger       *ledger.Engine
	transactions billing.Repository
	bus          *events.EventBus
	logger       *slog.Logger
}

func NewService(db *gorm.DB, processed ProcessedEventRepository, ledgerEngine *ledger.Engine, transactions billing.Repository, bus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		db:           db,
		processed:    processed,
		ledger:       ledgerEngine,
		transactions: transactions,
		bus:          bus,
		logger:       logger,
	}
}

// HandleExternalEvent applies one gateway event. Replays of an already
// processed event id return the recorded outcome and change nothing; the
// gateway delivers at least once, so duplicates are expected, not errors.
func (s *Service) HandleExternalEvent(ctx context.Context, raw []byte) (*Outcome, error) {
	event, err := ParseExternalEvent(raw)
	if err != nil {
		return nil, err
	}

	variant, appErr := event.Variant()
	if appErr != nil {
		if appErr.Code == errors.ErrCodeUnknownEventType {
			// Unknown types are acknowledged so the gateway stops
			// redelivering them; they are recorded but apply nothing.
			return s.recordIgnored(ctx, event)
		}
		return nil, appErr
	}

	outcome := &Outcome{}
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		processedTx := s.processed.WithTx(tx)

		if err := processedTx.Insert(ctx, &eventDatamodel.ProcessedEvent{
			ExternalEventID: event.ID,
			Type:            event.Type,
			ProcessedAt:     time.Now(),
		}); err != nil {
			if stderrors.Is(err, gorm.ErrDuplicatedKey) {
				return errors.ErrDuplicateEvent
			}
			return err
		}

		applied, err := s.apply(ctx, tx, variant)
		if err != nil {
			return err
		}
		*outcome = *applied

		recorded, err := json.Marshal(outcome)
		if err != nil {
			return err
		}
		return processedTx.SetOutcome(ctx, event.ID, recorded)
	})

	if txErr != nil {
		if appErr, ok := errors.IsAppError(txErr); ok && appErr.Code == errors.ErrCodeDuplicateEvent {
			return s.recordedOutcome(ctx, event.ID)
		}
		s.logger.Error("failed to process external event", "error", txErr, "event_id", event.ID, "event_type", event.Type)
		return nil, txErr
	}

	s.publish(ctx, variant)

	s.logger.Info("processed external event",
		"event_id", event.ID,
		"event_type", event.Type,
		"status", outcome.Status,
		"reference_id", outcome.ReferenceID)

	return outcome, nil
}

func (s *Service) apply(ctx context.Context, tx *gorm.DB, variant interface{}) (*Outcome, error) {
	ledgerTx := s.ledger.WithTx(tx)
	transactionsTx := s.transactions.WithTx(tx)

	switch v := variant.(type) {
	case *PaymentConfirmedEvent:
		txn, err := transactionsTx.GetByID(ctx, v.ReferenceID)
		if err != nil {
			return nil, err
		}
		if !txn.IsPending() {
			return nil, errors.NewConflictError("transaction is not pending confirmation", errors.ErrCodeInvalidTransactionState)
		}

		if _, err := ledgerTx.PostTransactionSplit(ctx, ledger.SplitParams{
			PayerID:     v.PayerID,
			CreatorID:   v.CreatorID,
			Gross:       v.Amount,
			Kind:        v.Kind,
			ReferenceID: v.ReferenceID,
		}); err != nil {
			return nil, err
		}

		now := time.Now()
		if err := transactionsTx.UpdateStatus(ctx, v.ReferenceID, billing.StatusConfirmed, &now); err != nil {
			return nil, err
		}
		return &Outcome{Status: OutcomeApplied, ReferenceID: v.ReferenceID, Amount: v.Amount}, nil

	case *RefundEvent:
		entries, err := ledgerTx.PostReversal(ctx, v.ReferenceID, v.Amount, v.Reason)
		if err != nil {
			return nil, err
		}

		// The payer credit carries the applied amount, which may have
		// been capped below the requested refund.
		applied := entries[0].Amount

		status := billing.StatusPartiallyRefunded
		if txn, err := transactionsTx.GetByID(ctx, v.ReferenceID); err == nil {
			refunded, err := ledgerTx.RefundedAmount(ctx, v.ReferenceID)
			if err != nil {
				return nil, err
			}
			if refunded >= txn.Amount {
				status = billing.StatusRefunded
			}
			if err := transactionsTx.UpdateStatus(ctx, v.ReferenceID, status, nil); err != nil {
				return nil, err
			}
		}
		return &Outcome{Status: OutcomeRefunded, ReferenceID: v.ReferenceID, Amount: applied}, nil

	case *DisputeEvent:
		entries, err := ledgerTx.PostDisputeHold(ctx, v.ReferenceID, v.Reason)
		if err != nil {
			return nil, err
		}

		if err := transactionsTx.UpdateStatus(ctx, v.ReferenceID, billing.StatusDisputed, nil); err != nil && !stderrors.Is(err, errors.ErrTransactionNotFound) {
			return nil, err
		}
		return &Outcome{Status: OutcomeHeld, ReferenceID: v.ReferenceID, Amount: entries[0].Amount}, nil

	default:
		return nil, errors.NewInternalError("unhandled event variant", nil)
	}
}

// recordIgnored acknowledges an event type this engine does not handle. The
// row still lands in processed_events so replays short-circuit.
func (s *Service) recordIgnored(ctx context.Context, event *ExternalEvent) (*Outcome, error) {
	outcome := &Outcome{Status: OutcomeIgnored}
	recorded, _ := json.Marshal(outcome)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		processedTx := s.processed.WithTx(tx)
		if err := processedTx.Insert(ctx, &eventDatamodel.ProcessedEvent{
			ExternalEventID: event.ID,
			Type:            event.Type,
			Outcome:         recorded,
			ProcessedAt:     time.Now(),
		}); err != nil {
			if stderrors.Is(err, gorm.ErrDuplicatedKey) {
				return errors.ErrDuplicateEvent
			}
			return err
		}
		return nil
	})
	if err != nil {
		if appErr, ok := errors.IsAppError(err); ok && appErr.Code == errors.ErrCodeDuplicateEvent {
			return s.recordedOutcome(ctx, event.ID)
		}
		return nil, err
	}

	s.logger.Warn("ignored unknown event type", "event_id", event.ID, "event_type", event.Type)
	return outcome, nil
}

func (s *Service) recordedOutcome(ctx context.Context, externalEventID string) (*Outcome, error) {
	row, err := s.processed.GetByExternalID(ctx, externalEventID)
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{Status: OutcomeApplied}
	if len(row.Outcome) > 0 {
		if err := json.Unmarshal(row.Outcome, outcome); err != nil {
			return nil, err
		}
	}
	outcome.Duplicate = true

	s.logger.Info("duplicate event delivery", "event_id", externalEventID, "recorded_status", outcome.Status)
	return outcome, nil
}

func (s *Service) publish(ctx context.Context, variant interface{}) {
	if s.bus == nil {
		return
	}

	switch v := variant.(type) {
	case *PaymentConfirmedEvent:
		_ = s.bus.Publish(ctx, events.NewPaymentConfirmedEvent(v.ReferenceID, v.PayerID, v.CreatorID, string(v.Kind), v.Amount, v.Currency))
	case *RefundEvent:
		_ = s.bus.Publish(ctx, events.NewPaymentRefundedEvent(v.ReferenceID, v.Amount, v.Reason))
	case *DisputeEvent:
		_ = s.bus.Publish(ctx, events.NewTransactionDisputedEvent(v.ReferenceID, v.Reason))
	}
}
