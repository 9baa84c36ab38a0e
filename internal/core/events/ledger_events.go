package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypePaymentConfirmed    = "payment.confirmed"
	EventTypePaymentRefunded     = "payment.refunded"
	EventTypeTransactionDisputed = "transaction.disputed"
	EventTypePayoutRequested     = "payout.requested"
	EventTypePayoutPaid          = "payout.paid"
	EventTypePayoutFailed        = "payout.failed"
)

type PaymentConfirmedEvent struct {
	BaseEvent
	ReferenceID string `json:"reference_id"`
	PayerID     string `json:"payer_id"`
	CreatorID   string `json:"creator_id"`
	Kind        string `json:"kind"`
	Gross       int64  `json:"gross"`
	Currency    string `json:"currency"`
}

func NewPaymentConfirmedEvent(referenceID, payerID, creatorID, kind string, gross int64, currency string) *PaymentConfirmedEvent {
	return &PaymentConfirmedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentConfirmed,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"reference_id": referenceID,
				"payer_id":     payerID,
				"creator_id":   creatorID,
				"kind":         kind,
				"gross":        gross,
				"currency":     currency,
			},
		},
		ReferenceID: referenceID,
		PayerID:     payerID,
		CreatorID:   creatorID,
		Kind:        kind,
		Gross:       gross,
		Currency:    currency,
	}
}

type PaymentRefundedEvent struct {
	BaseEvent
	ReferenceID string `json:"reference_id"`
	Amount      int64  `json:"amount"`
	Reason      string `json:"reason"`
}

func NewPaymentRefundedEvent(referenceID string, amount int64, reason string) *PaymentRefundedEvent {
	return &PaymentRefundedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentRefunded,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"reference_id": referenceID,
				"amount":       amount,
				"reason":       reason,
			},
		},
		ReferenceID: referenceID,
		Amount:      amount,
		Reason:      reason,
	}
}

type TransactionDisputedEvent struct {
	BaseEvent
	ReferenceID string `json:"reference_id"`
	Reason      string `json:"reason"`
}

func NewTransactionDisputedEvent(referenceID, reason string) *TransactionDisputedEvent {
	return &TransactionDisputedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeTransactionDisputed,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"reference_id": referenceID,
				"reason":       reason,
			},
		},
		ReferenceID: referenceID,
		Reason:      reason,
	}
}

type PayoutRequestedEvent struct {
	BaseEvent
	PayoutID  string `json:"payout_id"`
	CreatorID string `json:"creator_id"`
	Amount    int64  `json:"amount"`
	Mode      string `json:"mode"`
}

func NewPayoutRequestedEvent(payoutID, creatorID string, amount int64, mode string) *PayoutRequestedEvent {
	return &PayoutRequestedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePayoutRequested,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"payout_id":  payoutID,
				"creator_id": creatorID,
				"amount":     amount,
				"mode":       mode,
			},
		},
		PayoutID:  payoutID,
		CreatorID: creatorID,
		Amount:    amount,
		Mode:      mode,
	}
}

type PayoutPaidEvent struct {
	BaseEvent
	PayoutID           string `json:"payout_id"`
	CreatorID          string `json:"creator_id"`
	AmountNet          int64  `json:"amount_net"`
	ExternalTransferID string `json:"external_transfer_id"`
}

func NewPayoutPaidEvent(payoutID, creatorID string, amountNet int64, externalTransferID string) *PayoutPaidEvent {
	return &PayoutPaidEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePayoutPaid,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"payout_id":            payoutID,
				"creator_id":           creatorID,
				"amount_net":           amountNet,
				"external_transfer_id": externalTransferID,
			},
		},
		PayoutID:           payoutID,
		CreatorID:          creatorID,
		AmountNet:          amountNet,
		ExternalTransferID: externalTransferID,
	}
}

type PayoutFailedEvent struct {
	BaseEvent
	PayoutID      string `json:"payout_id"`
	CreatorID     string `json:"creator_id"`
	FailureReason string `json:"failure_reason"`
}

func NewPayoutFailedEvent(payoutID, creatorID, failureReason string) *PayoutFailedEvent {
	return &PayoutFailedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePayoutFailed,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"payout_id":      payoutID,
				"creator_id":     creatorID,
				"failure_reason": failureReason,
			},
		},
		PayoutID:      payoutID,
		CreatorID:     creatorID,
		FailureReason: failureReason,
	}
}
