package postgres

import (
	"context"
	"time"

	ledgerDatamodel "github.com/avelines/creator-ledger/internal/core/datamodel/ledger"
	"github.com/avelines/creator-ledger/internal/ledger"
	"gorm.io/gorm"
)

// LedgerRepository implements the ledger.Repository interface using GORM.
// The ledger_entries table is append-only; this repository never issues an
// UPDATE or DELETE against it.
type LedgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) ledger.Repository {
	return &LedgerRepository{db: db}
}

// WithTx returns a repository bound to an in-flight transaction so entry
// groups can commit together with the caller's own rows.
func (r *LedgerRepository) WithTx(tx *gorm.DB) ledger.Repository {
	return &LedgerRepository{db: tx}
}

// CreateGroup appends a group of entries in a single atomic unit. When the
// repository is already bound to a transaction the insert joins it; otherwise
// a transaction is opened so partial groups can never land.
func (r *LedgerRepository) CreateGroup(ctx context.Context, entries []*ledgerDatamodel.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&entries).Error
	})
}

// SumBySide returns the lifetime credit and debit totals for a subject.
func (r *LedgerRepository) SumBySide(ctx context.Context, subjectID string) (int64, int64, error) {
	var result struct {
		Credits int64
		Debits  int64
	}
	err := r.db.WithContext(ctx).
		Model(&ledgerDatamodel.LedgerEntry{}).
		Select(`
			COALESCE(SUM(CASE WHEN side = 'CREDIT' THEN amount ELSE 0 END), 0) AS credits,
			COALESCE(SUM(CASE WHEN side = 'DEBIT' THEN amount ELSE 0 END), 0) AS debits`).
		Where("subject_id = ?", subjectID).
		Scan(&result).Error
	if err != nil {
		return 0, 0, err
	}
	return result.Credits, result.Debits, nil
}

// SumHeldCredits returns how much of the subject's credit is still held back:
// reserve-split credits younger than the reserve cutoff and earning credits
// younger than the clearance cutoff.
func (r *LedgerRepository) SumHeldCredits(ctx context.Context, subjectID string, reserveCutoff, clearanceCutoff time.Time) (int64, int64, error) {
	var result struct {
		InReserve    int64
		PendingClear int64
	}
	err := r.db.WithContext(ctx).
		Model(&ledgerDatamodel.LedgerEntry{}).
		Select(`
			COALESCE(SUM(CASE WHEN split = 'reserve' AND created_at > ? THEN amount ELSE 0 END), 0) AS in_reserve,
			COALESCE(SUM(CASE WHEN split = 'main' AND kind IN ? AND created_at > ? THEN amount ELSE 0 END), 0) AS pending_clear`,
			reserveCutoff, []string{
				string(ledger.KindSubscription),
				string(ledger.KindPPV),
				string(ledger.KindTip),
			}, clearanceCutoff).
		Where("subject_id = ? AND side = 'CREDIT' AND split IN ?", subjectID, []string{
			ledger.SplitMain,
			ledger.SplitReserve,
		}).
		Scan(&result).Error
	if err != nil {
		return 0, 0, err
	}
	return result.InReserve, result.PendingClear, nil
}

// ListByReference returns every entry posted under a reference, oldest first.
func (r *LedgerRepository) ListByReference(ctx context.Context, referenceID string) ([]*ledgerDatamodel.LedgerEntry, error) {
	var entries []*ledgerDatamodel.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("reference_id = ?", referenceID).
		Order("created_at ASC, id ASC").
		Find(&entries).Error
	return entries, err
}

// ListReversalsOf returns every entry that reverses the given reference.
func (r *LedgerRepository) ListReversalsOf(ctx context.Context, referenceID string) ([]*ledgerDatamodel.LedgerEntry, error) {
	var entries []*ledgerDatamodel.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("reversal_of = ?", referenceID).
		Order("created_at ASC, id ASC").
		Find(&entries).Error
	return entries, err
}

// ListBySubject returns a subject's entries newest first with pagination.
func (r *LedgerRepository) ListBySubject(ctx context.Context, subjectID string, limit, offset int) ([]*ledgerDatamodel.LedgerEntry, error) {
	var entries []*ledgerDatamodel.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error
	return entries, err
}
