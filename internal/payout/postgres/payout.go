package postgres

import (
	"context"
	"time"

	errors "github.com/avelines/creator-ledger/internal"
	payoutDatamodel "github.com/avelines/creator-ledger/internal/core/datamodel/payout"
	"github.com/avelines/creator-ledger/internal/payout"
	"gorm.io/gorm"
)

// PayoutRepository implements the payout.Repository interface using GORM.
// Terminal transitions carry a WHERE status = PENDING guard; the row count
// tells racing writers apart without any application-level lock.
type PayoutRepository struct {
	db *gorm.DB
}

func NewPayoutRepository(db *gorm.DB) payout.Repository {
	return &PayoutRepository{db: db}
}

func (r *PayoutRepository) WithTx(tx *gorm.DB) payout.Repository {
	return &PayoutRepository{db: tx}
}

func (r *PayoutRepository) Create(ctx context.Context, p *payout.Payout) error {
	return r.db.WithContext(ctx).Create(payout.ToDataModel(p)).Error
}

func (r *PayoutRepository) GetByID(ctx context.Context, id string) (*payout.Payout, error) {
	var row payoutDatamodel.Payout
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrPayoutNotFound
		}
		return nil, err
	}
	return payout.FromDataModel(&row), nil
}

func (r *PayoutRepository) MarkPaid(ctx context.Context, id, externalTransferID string, completedAt time.Time) error {
	return r.transition(ctx, id, map[string]interface{}{
		"status":               payout.StatusPaid,
		"external_transfer_id": externalTransferID,
		"completed_at":         completedAt,
	})
}

// MarkFailed records the terminal failure. completed_at stays NULL; it marks
// a confirmed transfer, and a FAILED payout never had one.
func (r *PayoutRepository) MarkFailed(ctx context.Context, id, reason string) error {
	return r.transition(ctx, id, map[string]interface{}{
		"status":         payout.StatusFailed,
		"failure_reason": reason,
	})
}

func (r *PayoutRepository) ListByCreator(ctx context.Context, creatorID string, limit, offset int) ([]*payout.Payout, error) {
	var rows []*payoutDatamodel.Payout
	err := r.db.WithContext(ctx).
		Where("creator_id = ?", creatorID).
		Order("requested_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return payout.FromDataModelSlice(rows), nil
}

func (r *PayoutRepository) ListByStatus(ctx context.Context, status string, limit, offset int) ([]*payout.Payout, error) {
	var rows []*payoutDatamodel.Payout
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("requested_at ASC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return payout.FromDataModelSlice(rows), nil
}

// ListDuePending returns PENDING payouts whose scheduled execution time has
// passed, oldest first.
func (r *PayoutRepository) ListDuePending(ctx context.Context, due time.Time, limit int) ([]*payout.Payout, error) {
	var rows []*payoutDatamodel.Payout
	err := r.db.WithContext(ctx).
		Where("status = ? AND estimated_completion_at <= ?", payout.StatusPending, due).
		Order("estimated_completion_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return payout.FromDataModelSlice(rows), nil
}

func (r *PayoutRepository) SumPaidByCreator(ctx context.Context, creatorID string) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&payoutDatamodel.Payout{}).
		Where("creator_id = ? AND status = ?", creatorID, payout.StatusPaid).
		Select("COALESCE(SUM(amount_net), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (r *PayoutRepository) transition(ctx context.Context, id string, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&payoutDatamodel.Payout{}).
		Where("id = ? AND status = ?", id, payout.StatusPending).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var row payoutDatamodel.Payout
		if err := r.db.WithContext(ctx).Select("id").Where("id = ?", id).First(&row).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return errors.ErrPayoutNotFound
			}
			return err
		}
		return errors.ErrInvalidPayoutState
	}
	return nil
}
