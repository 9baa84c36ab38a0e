package postgres

import (
	"context"
	"time"

	errors "github.com/avelines/creator-ledger/internal"
	"github.com/avelines/creator-ledger/internal/billing"
	transactionDatamodel "github.com/avelines/creator-ledger/internal/core/datamodel/transaction"
	"gorm.io/gorm"
)

// TransactionRepository implements the billing.Repository interface using GORM
type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) billing.Repository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) WithTx(tx *gorm.DB) billing.Repository {
	return &TransactionRepository{db: tx}
}

func (r *TransactionRepository) Create(ctx context.Context, t *billing.Transaction) error {
	return r.db.WithContext(ctx).Create(billing.ToDataModel(t)).Error
}

func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*billing.Transaction, error) {
	var row transactionDatamodel.Transaction
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrTransactionNotFound
		}
		return nil, err
	}
	return billing.FromDataModel(&row), nil
}

// UpdateStatus moves a transaction through its lifecycle. confirmedAt is only
// written when the transition sets it, so later refund transitions keep the
// original confirmation time.
func (r *TransactionRepository) UpdateStatus(ctx context.Context, id, status string, confirmedAt *time.Time) error {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}
	if confirmedAt != nil {
		updates["confirmed_at"] = *confirmedAt
	}

	result := r.db.WithContext(ctx).
		Model(&transactionDatamodel.Transaction{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.ErrTransactionNotFound
	}
	return nil
}

func (r *TransactionRepository) ListByPayer(ctx context.Context, payerID string, limit, offset int) ([]*billing.Transaction, error) {
	return r.list(ctx, "payer_id = ?", payerID, limit, offset)
}

func (r *TransactionRepository) ListByCreator(ctx context.Context, creatorID string, limit, offset int) ([]*billing.Transaction, error) {
	return r.list(ctx, "creator_id = ?", creatorID, limit, offset)
}

func (r *TransactionRepository) list(ctx context.Context, query, arg string, limit, offset int) ([]*billing.Transaction, error) {
	var rows []*transactionDatamodel.Transaction
	err := r.db.WithContext(ctx).
		Where(query, arg).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return billing.FromDataModelSlice(rows), nil
}
