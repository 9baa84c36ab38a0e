package transaction

import (
	"encoding/json"
	"time"
)

// Transaction is the pending business record (subscription charge, PPV
// purchase, tip) that a gateway webhook later confirms. Its ID doubles as
// the ledger reference for the postings the confirmation produces.
type Transaction struct {
	ID          string          `gorm:"primaryKey;column:id"`
	Kind        string          `gorm:"column:kind;not null"`
	PayerID     string          `gorm:"column:payer_id;not null;index"`
	CreatorID   string          `gorm:"column:creator_id;not null;index"`
	Amount      int64           `gorm:"column:amount;not null"`
	Currency    string          `gorm:"column:currency;not null"`
	Status      string          `gorm:"column:status;not null;default:PENDING"`
	Metadata    json.RawMessage `gorm:"column:metadata;type:jsonb"`
	CreatedAt   time.Time       `gorm:"column:created_at;default:now()"`
	ConfirmedAt *time.Time      `gorm:"column:confirmed_at"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;default:now()"`
}

func (Transaction) TableName() string {
	return "transactions"
}
