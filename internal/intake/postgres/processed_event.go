package postgres

import (
	"context"
	"encoding/json"
	"time"

	errors "github.com/avelines/creator-ledger/internal"
	eventDatamodel "github.com/avelines/creator-ledger/internal/core/datamodel/event"
	"github.com/avelines/creator-ledger/internal/intake"
	"gorm.io/gorm"
)

// ProcessedEventRepository implements the intake.ProcessedEventRepository
// interface using GORM. The unique index on external_event_id is the
// idempotency guard: a second insert for the same id fails instead of
// silently double-applying.
type ProcessedEventRepository struct {
	db *gorm.DB
}

func NewProcessedEventRepository(db *gorm.DB) intake.ProcessedEventRepository {
	return &ProcessedEventRepository{db: db}
}

func (r *ProcessedEventRepository) WithTx(tx *gorm.DB) intake.ProcessedEventRepository {
	return &ProcessedEventRepository{db: tx}
}

func (r *ProcessedEventRepository) Insert(ctx context.Context, row *eventDatamodel.ProcessedEvent) error {
	return r.db.WithContext(ctx).Create(row).Error
}

// SetOutcome records what applying the event produced, on the row inserted
// earlier in the same transaction.
func (r *ProcessedEventRepository) SetOutcome(ctx context.Context, externalEventID string, outcome json.RawMessage) error {
	result := r.db.WithContext(ctx).
		Model(&eventDatamodel.ProcessedEvent{}).
		Where("external_event_id = ?", externalEventID).
		Updates(map[string]interface{}{
			"outcome":      outcome,
			"processed_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.NewNotFoundError("processed event not found", errors.ErrCodeTransactionNotFound)
	}
	return nil
}

func (r *ProcessedEventRepository) GetByExternalID(ctx context.Context, externalEventID string) (*eventDatamodel.ProcessedEvent, error) {
	var row eventDatamodel.ProcessedEvent
	err := r.db.WithContext(ctx).Where("external_event_id = ?", externalEventID).First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError("processed event not found", errors.ErrCodeTransactionNotFound)
		}
		return nil, err
	}
	return &row, nil
}
