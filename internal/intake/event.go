package intake

import (
	"encoding/json"
	"fmt"

	errors "github.com/avelines/creator-ledger/internal"
	"github.com/avelines/creator-ledger/internal/ledger"
)

const (
	EventTypePaymentConfirmed = "payment.confirmed"
	EventTypePaymentRefunded  = "payment.refunded"
	EventTypeDisputeOpened    = "dispute.opened"
)

// ExternalEvent is the gateway's webhook envelope. Signature verification
// happens at the HTTP edge; by the time an envelope reaches this package it
// is authentic but not yet validated.
type ExternalEvent struct {
	ID     string         `json:"id"`
	Type   string         `json:"type"`
	Object ExternalObject `json:"object"`
}

type ExternalObject struct {
	Amount   int64            `json:"amount"`
	Currency string           `json:"currency"`
	Metadata ExternalMetadata `json:"metadata"`
}

type ExternalMetadata struct {
	Kind        string `json:"kind"`
	ReferenceID string `json:"referenceId"`
	PayerID     string `json:"payerId"`
	CreatorID   string `json:"creatorId"`
	Reason      string `json:"reason,omitempty"`
}

// PaymentConfirmedEvent is the validated form of a confirmed-payment webhook.
type PaymentConfirmedEvent struct {
	EventID     string
	ReferenceID string
	PayerID     string
	CreatorID   string
	Kind        ledger.Kind
	Amount      int64
	Currency    string
}

// RefundEvent is the validated form of a refund webhook. Amount may be less
// than the original gross; partial refunds are capped downstream at the
// reference's remaining unrefunded balance.
type RefundEvent struct {
	EventID     string
	ReferenceID string
	Amount      int64
	Reason      string
}

// DisputeEvent flags a transaction for manual review and holds its creator
// credits; it moves no funds by itself.
type DisputeEvent struct {
	EventID     string
	ReferenceID string
	Reason      string
}

func ParseExternalEvent(raw []byte) (*ExternalEvent, error) {
	var event ExternalEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		return nil, errors.NewValidationError("malformed event payload", errors.ErrCodeValidationFailed).WithCause(err)
	}
	if event.ID == "" {
		return nil, errors.NewValidationError("event id is required", errors.ErrCodeValidationFailed)
	}
	if event.Type == "" {
		return nil, errors.NewValidationError("event type is required", errors.ErrCodeValidationFailed)
	}
	return &event, nil
}

// Variant converts the loosely-typed envelope into one closed, validated
// variant per event type. Every ledger call downstream starts from one of
// these, never from raw metadata.
func (e *ExternalEvent) Variant() (interface{}, *errors.AppError) {
	switch e.Type {
	case EventTypePaymentConfirmed:
		kind := ledger.Kind(e.Object.Metadata.Kind)
		if !kind.Valid() || !kind.Earning() {
			return nil, errors.NewValidationError(fmt.Sprintf("invalid payment kind %q", e.Object.Metadata.Kind), errors.ErrCodeInvalidKind)
		}
		if e.Object.Amount <= 0 {
			return nil, errors.ErrInvalidAmount
		}
		if e.Object.Metadata.ReferenceID == "" || e.Object.Metadata.PayerID == "" || e.Object.Metadata.CreatorID == "" {
			return nil, errors.NewValidationError("referenceId, payerId and creatorId are required", errors.ErrCodeValidationFailed)
		}
		return &PaymentConfirmedEvent{
			EventID:     e.ID,
			ReferenceID: e.Object.Metadata.ReferenceID,
			PayerID:     e.Object.Metadata.PayerID,
			CreatorID:   e.Object.Metadata.CreatorID,
			Kind:        kind,
			Amount:      e.Object.Amount,
			Currency:    e.Object.Currency,
		}, nil

	case EventTypePaymentRefunded:
		if e.Object.Amount <= 0 {
			return nil, errors.ErrInvalidAmount
		}
		if e.Object.Metadata.ReferenceID == "" {
			return nil, errors.NewValidationError("referenceId is required", errors.ErrCodeValidationFailed)
		}
		return &RefundEvent{
			EventID:     e.ID,
			ReferenceID: e.Object.Metadata.ReferenceID,
			Amount:      e.Object.Amount,
			Reason:      e.Object.Metadata.Reason,
		}, nil

	case EventTypeDisputeOpened:
		if e.Object.Metadata.ReferenceID == "" {
			return nil, errors.NewValidationError("referenceId is required", errors.ErrCodeValidationFailed)
		}
		return &DisputeEvent{
			EventID:     e.ID,
			ReferenceID: e.Object.Metadata.ReferenceID,
			Reason:      e.Object.Metadata.Reason,
		}, nil

	default:
		return nil, errors.NewValidationError(fmt.Sprintf("unknown event type %q", e.Type), errors.ErrCodeUnknownEventType)
	}
}
