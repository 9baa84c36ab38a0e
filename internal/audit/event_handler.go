package audit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/avelines/creator-ledger/internal/core/events"
)

// EventHandler writes a structured audit record for every money-movement
// event the engine publishes. It is the log trail operators grep when a
// balance question comes in; it never mutates state.
type EventHandler struct {
	logger *slog.Logger
}

func NewEventHandler(logger *slog.Logger) *EventHandler {
	return &EventHandler{
		logger: logger,
	}
}

func (h *EventHandler) HandlePaymentConfirmed(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.PaymentConfirmedEvent)
	if !ok {
		return fmt.Errorf("expected PaymentConfirmedEvent, got %T", event)
	}

	h.logger.Info("audit: payment confirmed",
		"event_id", e.EventID(),
		"reference_id", e.ReferenceID,
		"payer_id", e.PayerID,
		"creator_id", e.CreatorID,
		"kind", e.Kind,
		"gross", e.Gross,
		"currency", e.Currency)
	return nil
}

func (h *EventHandler) HandlePaymentRefunded(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.PaymentRefundedEvent)
	if !ok {
		return fmt.Errorf("expected PaymentRefundedEvent, got %T", event)
	}

	h.logger.Info("audit: payment refunded",
		"event_id", e.EventID(),
		"reference_id", e.ReferenceID,
		"amount", e.Amount,
		"reason", e.Reason)
	return nil
}

func (h *EventHandler) HandleTransactionDisputed(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.TransactionDisputedEvent)
	if !ok {
		return fmt.Errorf("expected TransactionDisputedEvent, got %T", event)
	}

	h.logger.Warn("audit: transaction disputed, flagged for manual review",
		"event_id", e.EventID(),
		"reference_id", e.ReferenceID,
		"reason", e.Reason)
	return nil
}

func (h *EventHandler) HandlePayoutRequested(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.PayoutRequestedEvent)
	if !ok {
		return fmt.Errorf("expected PayoutRequestedEvent, got %T", event)
	}

	h.logger.Info("audit: payout requested",
		"event_id", e.EventID(),
		"payout_id", e.PayoutID,
		"creator_id", e.CreatorID,
		"amount", e.Amount,
		"mode", e.Mode)
	return nil
}

func (h *EventHandler) HandlePayoutPaid(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.PayoutPaidEvent)
	if !ok {
		return fmt.Errorf("expected PayoutPaidEvent, got %T", event)
	}

	h.logger.Info("audit: payout paid",
		"event_id", e.EventID(),
		"payout_id", e.PayoutID,
		"creator_id", e.CreatorID,
		"amount_net", e.AmountNet,
		"external_transfer_id", e.ExternalTransferID)
	return nil
}

func (h *EventHandler) HandlePayoutFailed(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.PayoutFailedEvent)
	if !ok {
		return fmt.Errorf("expected PayoutFailedEvent, got %T", event)
	}

	h.logger.Warn("audit: payout failed",
		"event_id", e.EventID(),
		"payout_id", e.PayoutID,
		"creator_id", e.CreatorID,
		"failure_reason", e.FailureReason)
	return nil
}

func (h *EventHandler) RegisterEventHandlers(eventBus *events.EventBus) {
	eventBus.Subscribe(events.EventTypePaymentConfirmed, h.HandlePaymentConfirmed)
	eventBus.Subscribe(events.EventTypePaymentRefunded, h.HandlePaymentRefunded)
	eventBus.Subscribe(events.EventTypeTransactionDisputed, h.HandleTransactionDisputed)
	eventBus.Subscribe(events.EventTypePayoutRequested, h.HandlePayoutRequested)
	eventBus.Subscribe(events.EventTypePayoutPaid, h.HandlePayoutPaid)
	eventBus.Subscribe(events.EventTypePayoutFailed, h.HandlePayoutFailed)

	h.logger.Info("audit event handlers registered",
		"handlers", []string{
			events.EventTypePaymentConfirmed,
			events.EventTypePaymentRefunded,
			events.EventTypeTransactionDisputed,
			events.EventTypePayoutRequested,
			events.EventTypePayoutPaid,
			events.EventTypePayoutFailed,
		})
}
