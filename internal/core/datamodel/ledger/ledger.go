package ledger

import (
	"encoding/json"
	"time"
)

// LedgerEntry is one immutable posting in the append-only journal. Rows are
// only ever inserted; there is no update or delete path anywhere in the code.
type LedgerEntry struct {
	ID          string          `gorm:"primaryKey;column:id"`
	SubjectID   string          `gorm:"column:subject_id;not null;index"`
	Kind        string          `gorm:"column:kind;not null"`
	Side        string          `gorm:"column:side;not null"`
	Amount      int64           `gorm:"column:amount;not null"`
	Currency    string          `gorm:"column:currency;not null"`
	ReferenceID string          `gorm:"column:reference_id;not null;index"`
	ReversalOf  *string         `gorm:"column:reversal_of;index"`
	Split       string          `gorm:"column:split"`
	Metadata    json.RawMessage `gorm:"column:metadata;type:jsonb"`
	CreatedAt   time.Time       `gorm:"column:created_at;default:now()"`
}

func (LedgerEntry) TableName() string {
	return "ledger_entries"
}
