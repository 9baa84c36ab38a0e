package user

import "time"

// User is read-only inside this engine: KYC level and identity are owned by
// the identity service, the ledger only consumes them.
type User struct {
	ID        string    `gorm:"primaryKey;column:id"`
	Email     string    `gorm:"column:email;not null;uniqueIndex"`
	KycLevel  string    `gorm:"column:kyc_level;not null;default:NONE"`
	CreatedAt time.Time `gorm:"column:created_at;default:now()"`
	UpdatedAt time.Time `gorm:"column:updated_at;default:now()"`
}

func (User) TableName() string {
	return "users"
}
