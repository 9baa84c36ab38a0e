package event

import (
	"encoding/json"
	"time"
)

// ProcessedEvent records that a gateway event's effects have been applied
// exactly once. The unique index on external_event_id is the idempotency
// guard under at-least-once webhook delivery.
type ProcessedEvent struct {
	ID              int64           `gorm:"primaryKey"`
	ExternalEventID string          `gorm:"column:external_event_id;not null;uniqueIndex"`
	Type            string          `gorm:"column:type;not null"`
	Outcome         json.RawMessage `gorm:"column:outcome;type:jsonb"`
	ProcessedAt     time.Time       `gorm:"column:processed_at;default:now()"`
}

func (ProcessedEvent) TableName() string {
	return "processed_events"
}
