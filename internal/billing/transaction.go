package billing

import (
	"encoding/json"
	"time"

	transactionDatamodel "github.com/avelines/creator-ledger/internal/core/datamodel/transaction"
	"github.com/avelines/creator-ledger/internal/ledger"
)

const (
	StatusPending           = "PENDING"
	StatusConfirmed         = "CONFIRMED"
	StatusRefunded          = "REFUNDED"
	StatusPartiallyRefunded = "PARTIALLY_REFUNDED"
	StatusDisputed          = "DISPUTED"
)

// Transaction is a pending business action (a subscription charge, a
// pay-per-view purchase, a tip) awaiting gateway confirmation. Its ID doubles
// as the ledger reference once the gateway confirms.
type Transaction struct {
	ID          string          `json:"id"`
	Kind        ledger.Kind     `json:"kind"`
	PayerID     string          `json:"payer_id"`
	CreatorID   string          `json:"creator_id"`
	Amount      int64           `json:"amount"`
	Currency    string          `json:"currency"`
	Status      string          `json:"status"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	ConfirmedAt *time.Time      `json:"confirmed_at,omitempty"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (t *Transaction) IsPending() bool {
	return t.Status == StatusPending
}

func (t *Transaction) IsConfirmed() bool {
	return t.Status == StatusConfirmed || t.Status == StatusPartiallyRefunded
}

func ToDataModel(t *Transaction) *transactionDatamodel.Transaction {
	return &transactionDatamodel.Transaction{
		ID:          t.ID,
		Kind:        string(t.Kind),
		PayerID:     t.PayerID,
		CreatorID:   t.CreatorID,
		Amount:      t.Amount,
		Currency:    t.Currency,
		Status:      t.Status,
		Metadata:    t.Metadata,
		CreatedAt:   t.CreatedAt,
		ConfirmedAt: t.ConfirmedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func FromDataModel(t *transactionDatamodel.Transaction) *Transaction {
	return &Transaction{
		ID:          t.ID,
		Kind:        ledger.Kind(t.Kind),
		PayerID:     t.PayerID,
		CreatorID:   t.CreatorID,
		Amount:      t.Amount,
		Currency:    t.Currency,
		Status:      t.Status,
		Metadata:    t.Metadata,
		CreatedAt:   t.CreatedAt,
		ConfirmedAt: t.ConfirmedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func FromDataModelSlice(rows []*transactionDatamodel.Transaction) []*Transaction {
	out := make([]*Transaction, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromDataModel(row))
	}
	return out
}
