package wallet

import (
	"context"
	"log/slog"
	"time"

	"github.com/avelines/creator-ledger/internal/ledger"
)

// Wallet is a read-only projection over the ledger. It is computed on demand
// and never persisted, so it cannot drift from the journal.
type Wallet struct {
	SubjectID    string `json:"subject_id"`
	Available    int64  `json:"available"`
	InReserve    int64  `json:"in_reserve"`
	PendingClear int64  `json:"pending_clear"`
	Currency     string `json:"currency"`
}

type LedgerAPI interface {
	BalanceBreakdown(ctx context.Context, subjectID string, at time.Time) (ledger.Balance, error)
	EntriesForSubject(ctx context.Context, subjectID string, limit, offset int) ([]*ledger.Entry, error)
	Currency() string
}

type Service struct {
	ledger LedgerAPI
	logger *slog.Logger
}

func NewService(ledgerAPI LedgerAPI, logger *slog.Logger) *Service {
	return &Service{
		ledger: ledgerAPI,
		logger: logger,
	}
}

// GetWallet projects the subject's current position from the journal.
func (s *Service) GetWallet(ctx context.Context, subjectID string) (*Wallet, error) {
	balance, err := s.ledger.BalanceBreakdown(ctx, subjectID, time.Now())
	if err != nil {
		s.logger.Error("failed to project wallet", "error", err, "subject_id", subjectID)
		return nil, err
	}

	return &Wallet{
		SubjectID:    subjectID,
		Available:    balance.Available,
		InReserve:    balance.InReserve,
		PendingClear: balance.PendingClear,
		Currency:     s.ledger.Currency(),
	}, nil
}

// GetStatement returns the subject's journal entries newest first.
func (s *Service) GetStatement(ctx context.Context, subjectID string, limit, offset int) ([]*ledger.Entry, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.ledger.EntriesForSubject(ctx, subjectID, limit, offset)
}
