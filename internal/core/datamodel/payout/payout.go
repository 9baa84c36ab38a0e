package payout

import (
	"time"
)

type Payout struct {
	ID                    string     `gorm:"primaryKey;column:id"`
	CreatorID             string     `gorm:"column:creator_id;not null;index"`
	AmountRequested       int64      `gorm:"column:amount_requested;not null"`
	FeeAmount             int64      `gorm:"column:fee_amount;not null"`
	AmountNet             int64      `gorm:"column:amount_net;not null"`
	Currency              string     `gorm:"column:currency;not null"`
	Mode                  string     `gorm:"column:mode;not null"`
	Status                string     `gorm:"column:status;not null;default:PENDING"`
	Destination           string     `gorm:"column:destination;not null"`
	ExternalTransferID    *string    `gorm:"column:external_transfer_id"`
	FailureReason         *string    `gorm:"column:failure_reason"`
	RequestedAt           time.Time  `gorm:"column:requested_at;default:now()"`
	EstimatedCompletionAt time.Time  `gorm:"column:estimated_completion_at"`
	CompletedAt           *time.Time `gorm:"column:completed_at"`
}

func (Payout) TableName() string {
	return "payouts"
}
