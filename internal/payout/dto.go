package payout

import (
	errors "github.com/avelines/creator-ledger/internal"
	"github.com/avelines/creator-ledger/internal/core/common/validation"
)

type RequestPayoutRequest struct {
	CreatorID   string `json:"creator_id"`
	Amount      int64  `json:"amount"`
	Mode        string `json:"mode"`
	Destination string `json:"destination"`
}

func (r *RequestPayoutRequest) Validate() *errors.AppError {
	validator := validation.NewValidator()

	validator.Field("creator_id", r.CreatorID).Required()
	validator.Field("amount", r.Amount).Required().Positive(errors.ErrCodeInvalidAmount)
	validator.Field("mode", r.Mode).Required().OneOf([]string{
		string(ModeStandard),
		string(ModeExpressCrypto),
		string(ModeExpressFiat),
	}, errors.ErrCodeInvalidMode)
	validator.Field("destination", r.Destination).Required().MaxLength(255, errors.ErrCodeValidationFailed)

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

type CancelPayoutRequest struct {
	Reason string `json:"reason"`
}

type PayoutResponse struct {
	PayoutID            string `json:"payout_id"`
	CreatorID           string `json:"creator_id"`
	Status              string `json:"status"`
	Amount              int64  `json:"amount"`
	Fee                 int64  `json:"fee"`
	AmountNet           int64  `json:"amount_net"`
	Currency            string `json:"currency"`
	Mode                string `json:"mode"`
	EstimatedCompletion string `json:"estimated_completion"`
	CompletedAt         string `json:"completed_at,omitempty"`
	FailureReason       string `json:"failure_reason,omitempty"`
}

func toPayoutResponse(p *Payout) PayoutResponse {
	resp := PayoutResponse{
		PayoutID:            p.ID,
		CreatorID:           p.CreatorID,
		Status:              p.Status,
		Amount:              p.AmountRequested,
		Fee:                 p.FeeAmount,
		AmountNet:           p.AmountNet,
		Currency:            p.Currency,
		Mode:                string(p.Mode),
		EstimatedCompletion: p.EstimatedCompletionAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if p.CompletedAt != nil {
		resp.CompletedAt = p.CompletedAt.Format("2006-01-02T15:04:05Z07:00")
	}
	if p.FailureReason != nil {
		resp.FailureReason = *p.FailureReason
	}
	return resp
}

func toPayoutResponses(payouts []*Payout) []PayoutResponse {
	out := make([]PayoutResponse, 0, len(payouts))
	for _, p := range payouts {
		out = append(out, toPayoutResponse(p))
	}
	return out
}
