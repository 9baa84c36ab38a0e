package billing

import (
	"encoding/json"

	errors "github.com/avelines/creator-ledger/internal"
	"github.com/avelines/creator-ledger/internal/core/common/validation"
)

type CreateChargeRequest struct {
	PayerID   string          `json:"payer_id"`
	CreatorID string          `json:"creator_id"`
	Amount    int64           `json:"amount"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}

func (r *CreateChargeRequest) Validate() *errors.AppError {
	validator := validation.NewValidator()

	validator.Field("payer_id", r.PayerID).Required()
	validator.Field("creator_id", r.CreatorID).Required()
	validator.Field("amount", r.Amount).Required().Positive(errors.ErrCodeInvalidAmount)

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

type TransactionResponse struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	PayerID     string `json:"payer_id"`
	CreatorID   string `json:"creator_id"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
	ConfirmedAt string `json:"confirmed_at,omitempty"`
}

func toTransactionResponse(t *Transaction) TransactionResponse {
	resp := TransactionResponse{
		ID:        t.ID,
		Kind:      string(t.Kind),
		PayerID:   t.PayerID,
		CreatorID: t.CreatorID,
		Amount:    t.Amount,
		Currency:  t.Currency,
		Status:    t.Status,
		CreatedAt: t.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if t.ConfirmedAt != nil {
		resp.ConfirmedAt = t.ConfirmedAt.Format("2006-01-02T15:04:05Z07:00")
	}
	return resp
}
