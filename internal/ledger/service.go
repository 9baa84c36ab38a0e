package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/avelines/creator-ledger/internal"
	ledgerDatamodel "github.com/avelines/creator-ledger/internal/core/datamodel/ledger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines the journal's data access. Implementations append rows
// and aggregate them; nothing ever mutates an existing row.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateGroup(ctx context.Context, entries []*ledgerDatamodel.LedgerEntry) error
	SumBySide(ctx context.Context, subjectID string) (credits int64, debits int64, err error)
	SumHeldCredits(ctx context.Context, subjectID string, reserveCutoff, clearanceCutoff time.Time) (inReserve int64, pendingClear int64, err error)
	ListByReference(ctx context.Context, referenceID string) ([]*ledgerDatamodel.LedgerEntry, error)
	ListReversalsOf(ctx context.Context, referenceID string) ([]*ledgerDatamodel.LedgerEntry, error)
	ListBySubject(ctx context.Context, subjectID string, limit, offset int) ([]*ledgerDatamodel.LedgerEntry, error)
}

type EntryParams struct {
	SubjectID   string
	Kind        Kind
	Side        Side
	Amount      int64
	Currency    string
	ReferenceID string
	ReversalOf  *string
	Split       string
	Metadata    json.RawMessage
}

type SplitParams struct {
	PayerID     string
	CreatorID   string
	Gross       int64
	Kind        Kind
	ReferenceID string
	Metadata    json.RawMessage
}

type WithdrawalParams struct {
	CreatorID string
	Amount    int64
	Fee       int64
	PayoutID  string
}

// Engine owns the append-only double-entry journal. Multi-row postings commit
// as one atomic group; balances are always recomputed from the journal, never
// cached as mutable counters.
type Engine struct {
	repo   Repository
	cfg    internal.LedgerConfig
	logger *slog.Logger
}

func NewEngine(repo Repository, cfg internal.LedgerConfig, logger *slog.Logger) *Engine {
	return &Engine{
		repo:   repo,
		cfg:    cfg,
		logger: logger,
	}
}

// WithTx returns an Engine whose postings join an existing transaction, so a
// caller can commit ledger postings together with its own rows.
func (e *Engine) WithTx(tx *gorm.DB) *Engine {
	return &Engine{
		repo:   e.repo.WithTx(tx),
		cfg:    e.cfg,
		logger: e.logger,
	}
}

func (e *Engine) Currency() string {
	return e.cfg.Currency
}

// PostEntry appends a single posting. Single entries are only legal for
// markers that do not move value between subjects; value movements go through
// the group operations so the conservation check can see both sides.
func (e *Engine) PostEntry(ctx context.Context, p EntryParams) (*Entry, error) {
	entry, err := e.buildEntry(p)
	if err != nil {
		return nil, err
	}

	if err := e.repo.CreateGroup(ctx, []*ledgerDatamodel.LedgerEntry{ToDataModel(entry)}); err != nil {
		e.logger.Error("failed to append ledger entry", "error", err, "subject_id", p.SubjectID, "reference_id", p.ReferenceID)
		return nil, err
	}

	return entry, nil
}

// PostTransactionSplit turns one confirmed gross payment into its balanced
// set of postings: payer debit, creator main credit, creator reserve credit
// (when > 0) and platform fee credit (when > 0). The group commits atomically.
func (e *Engine) PostTransactionSplit(ctx context.Context, p SplitParams) ([]*Entry, error) {
	if p.Gross <= 0 {
		return nil, internal.ErrInvalidAmount
	}
	if !p.Kind.Earning() {
		return nil, internal.NewValidationError(fmt.Sprintf("kind %s cannot be split-posted", p.Kind), internal.ErrCodeInvalidKind)
	}

	split := ComputeSplit(p.Gross, e.cfg.PlatformFeePct, e.cfg.ReservePct)

	group := []EntryParams{
		{SubjectID: p.PayerID, Kind: p.Kind, Side: SideDebit, Amount: p.Gross, ReferenceID: p.ReferenceID, Metadata: p.Metadata},
		{SubjectID: p.CreatorID, Kind: p.Kind, Side: SideCredit, Amount: split.CreatorMain, ReferenceID: p.ReferenceID, Split: SplitMain, Metadata: p.Metadata},
	}
	if split.CreatorReserve > 0 {
		group = append(group, EntryParams{SubjectID: p.CreatorID, Kind: p.Kind, Side: SideCredit, Amount: split.CreatorReserve, ReferenceID: p.ReferenceID, Split: SplitReserve, Metadata: p.Metadata})
	}
	if split.PlatformFee > 0 {
		group = append(group, EntryParams{SubjectID: SubjectPlatform, Kind: KindFee, Side: SideCredit, Amount: split.PlatformFee, ReferenceID: p.ReferenceID, Metadata: p.Metadata})
	}

	entries, err := e.postGroup(ctx, group)
	if err != nil {
		return nil, err
	}

	e.logger.Info("posted transaction split",
		"reference_id", p.ReferenceID,
		"gross", p.Gross,
		"platform_fee", split.PlatformFee,
		"creator_main", split.CreatorMain,
		"creator_reserve", split.CreatorReserve)

	return entries, nil
}

// PostReversal emits equal-and-opposite REFUND postings for a previously
// posted payment reference, capped at its remaining unrefunded balance so
// repeated partial refunds can never overdraw the original gross.
func (e *Engine) PostReversal(ctx context.Context, referenceID string, amount int64, reason string) ([]*Entry, error) {
	if amount <= 0 {
		return nil, internal.ErrInvalidAmount
	}

	originals, err := e.repo.ListByReference(ctx, referenceID)
	if err != nil {
		return nil, err
	}
	if len(originals) == 0 {
		return nil, internal.ErrTransactionNotFound
	}

	var payerDebit *ledgerDatamodel.LedgerEntry
	var mainTotal, reserveTotal, feeTotal int64
	for _, o := range originals {
		switch {
		case Side(o.Side) == SideDebit && Kind(o.Kind).Earning():
			payerDebit = o
		case Side(o.Side) == SideCredit && o.Split == SplitReserve:
			reserveTotal += o.Amount
		case Side(o.Side) == SideCredit && Kind(o.Kind) == KindFee:
			feeTotal += o.Amount
		case Side(o.Side) == SideCredit && o.Split == SplitMain:
			mainTotal += o.Amount
		}
	}
	if payerDebit == nil {
		return nil, internal.NewValidationError("reference is not a reversible payment", internal.ErrCodeInvalidKind)
	}

	gross := payerDebit.Amount
	refunded, err := e.refundedSoFar(ctx, referenceID, payerDebit.SubjectID)
	if err != nil {
		return nil, err
	}
	remaining := gross - refunded
	if remaining <= 0 {
		return nil, internal.ErrNothingToRefund
	}
	if amount > remaining {
		amount = remaining
	}

	// Scale the fee and reserve components with floor; the main component
	// absorbs the rounding remainder so the reversal reference balances
	// exactly against the payer credit.
	feeShare := scaleFloor(feeTotal, amount, gross)
	reserveShare := scaleFloor(reserveTotal, amount, gross)
	mainShare := amount - feeShare - reserveShare

	meta, _ := json.Marshal(map[string]string{"reason": reason, "original_reference": referenceID})
	reversalRef := uuid.New().String()
	original := referenceID

	creatorID := ""
	for _, o := range originals {
		if Side(o.Side) == SideCredit && o.Split != "" {
			creatorID = o.SubjectID
			break
		}
	}

	group := []EntryParams{
		{SubjectID: payerDebit.SubjectID, Kind: KindRefund, Side: SideCredit, Amount: amount, ReferenceID: reversalRef, ReversalOf: &original, Metadata: meta},
	}
	if mainShare > 0 && creatorID != "" {
		group = append(group, EntryParams{SubjectID: creatorID, Kind: KindRefund, Side: SideDebit, Amount: mainShare, ReferenceID: reversalRef, ReversalOf: &original, Split: SplitMain, Metadata: meta})
	}
	if reserveShare > 0 && creatorID != "" {
		group = append(group, EntryParams{SubjectID: creatorID, Kind: KindRefund, Side: SideDebit, Amount: reserveShare, ReferenceID: reversalRef, ReversalOf: &original, Split: SplitReserve, Metadata: meta})
	}
	if feeShare > 0 {
		group = append(group, EntryParams{SubjectID: SubjectPlatform, Kind: KindRefund, Side: SideDebit, Amount: feeShare, ReferenceID: reversalRef, ReversalOf: &original, Metadata: meta})
	}

	entries, err := e.postGroup(ctx, group)
	if err != nil {
		return nil, err
	}

	e.logger.Info("posted reversal",
		"original_reference", referenceID,
		"reversal_reference", reversalRef,
		"amount", amount,
		"remaining_before", remaining,
		"reason", reason)

	return entries, nil
}

// PostDisputeHold shifts the disputed amount of a payment into the creator's
// reserve bucket without changing any net balance. The pair is net zero for
// the creator, so funds are held rather than moved.
func (e *Engine) PostDisputeHold(ctx context.Context, referenceID string, reason string) ([]*Entry, error) {
	originals, err := e.repo.ListByReference(ctx, referenceID)
	if err != nil {
		return nil, err
	}
	if len(originals) == 0 {
		return nil, internal.ErrTransactionNotFound
	}

	var creatorID string
	var heldAmount int64
	for _, o := range originals {
		if Side(o.Side) == SideCredit && o.Split != "" {
			creatorID = o.SubjectID
			heldAmount += o.Amount
		}
	}
	if creatorID == "" || heldAmount <= 0 {
		return nil, internal.NewValidationError("reference has no creator credits to hold", internal.ErrCodeInvalidKind)
	}

	meta, _ := json.Marshal(map[string]string{"reason": reason, "original_reference": referenceID, "marker": "dispute_hold"})
	holdRef := uuid.New().String()
	original := referenceID

	entries, err := e.postGroup(ctx, []EntryParams{
		{SubjectID: creatorID, Kind: KindRefund, Side: SideDebit, Amount: heldAmount, ReferenceID: holdRef, ReversalOf: &original, Metadata: meta},
		{SubjectID: creatorID, Kind: KindRefund, Side: SideCredit, Amount: heldAmount, ReferenceID: holdRef, ReversalOf: &original, Split: SplitReserve, Metadata: meta},
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("posted dispute hold",
		"original_reference", referenceID,
		"hold_reference", holdRef,
		"amount", heldAmount,
		"reason", reason)

	return entries, nil
}

// PostWithdrawal records an executed payout: the creator is debited the full
// requested amount, the platform keeps the express fee and the treasury
// subject receives the net that left through the transfer gateway.
func (e *Engine) PostWithdrawal(ctx context.Context, p WithdrawalParams) ([]*Entry, error) {
	if p.Amount <= 0 || p.Fee < 0 || p.Fee >= p.Amount {
		return nil, internal.ErrInvalidAmount
	}

	net := p.Amount - p.Fee
	group := []EntryParams{
		{SubjectID: p.CreatorID, Kind: KindWithdrawal, Side: SideDebit, Amount: p.Amount, ReferenceID: p.PayoutID},
		{SubjectID: SubjectTreasury, Kind: KindWithdrawal, Side: SideCredit, Amount: net, ReferenceID: p.PayoutID},
	}
	if p.Fee > 0 {
		group = append(group, EntryParams{SubjectID: SubjectPlatform, Kind: KindFee, Side: SideCredit, Amount: p.Fee, ReferenceID: p.PayoutID})
	}

	entries, err := e.postGroup(ctx, group)
	if err != nil {
		return nil, err
	}

	e.logger.Info("posted withdrawal",
		"payout_id", p.PayoutID,
		"creator_id", p.CreatorID,
		"amount", p.Amount,
		"fee", p.Fee)

	return entries, nil
}

// GetBalance returns signed credits minus debits for a subject, computed
// purely from the journal.
func (e *Engine) GetBalance(ctx context.Context, subjectID string) (int64, error) {
	credits, debits, err := e.repo.SumBySide(ctx, subjectID)
	if err != nil {
		return 0, err
	}
	return credits - debits, nil
}

// BalanceBreakdown splits a subject's position into the payable and held
// buckets as of the given instant. Reserve credits clear after the reserve
// hold; earning credits clear after the settlement hold.
func (e *Engine) BalanceBreakdown(ctx context.Context, subjectID string, at time.Time) (Balance, error) {
	credits, debits, err := e.repo.SumBySide(ctx, subjectID)
	if err != nil {
		return Balance{}, err
	}

	inReserve, pendingClear, err := e.repo.SumHeldCredits(ctx, subjectID, at.Add(-e.cfg.ReserveHold), at.Add(-e.cfg.ClearanceHold))
	if err != nil {
		return Balance{}, err
	}

	return Balance{
		Available:    credits - debits - inReserve - pendingClear,
		InReserve:    inReserve,
		PendingClear: pendingClear,
	}, nil
}

func (e *Engine) EntriesForSubject(ctx context.Context, subjectID string, limit, offset int) ([]*Entry, error) {
	rows, err := e.repo.ListBySubject(ctx, subjectID, limit, offset)
	if err != nil {
		return nil, err
	}
	return FromDataModelSlice(rows), nil
}

func (e *Engine) EntriesForReference(ctx context.Context, referenceID string) ([]*Entry, error) {
	rows, err := e.repo.ListByReference(ctx, referenceID)
	if err != nil {
		return nil, err
	}
	return FromDataModelSlice(rows), nil
}

// RefundedAmount reports how much of a reference's gross has already been
// reversed; intake uses it to cap partial refunds.
func (e *Engine) RefundedAmount(ctx context.Context, referenceID string) (int64, error) {
	originals, err := e.repo.ListByReference(ctx, referenceID)
	if err != nil {
		return 0, err
	}
	for _, o := range originals {
		if Side(o.Side) == SideDebit && Kind(o.Kind).Earning() {
			return e.refundedSoFar(ctx, referenceID, o.SubjectID)
		}
	}
	return 0, nil
}

func (e *Engine) buildEntry(p EntryParams) (*Entry, error) {
	if p.Amount <= 0 {
		return nil, internal.ErrInvalidAmount
	}
	if !p.Kind.Valid() {
		return nil, internal.NewValidationError(fmt.Sprintf("unknown entry kind %q", p.Kind), internal.ErrCodeInvalidKind)
	}
	if !p.Side.Valid() {
		return nil, internal.NewValidationError(fmt.Sprintf("unknown entry side %q", p.Side), internal.ErrCodeValidationFailed)
	}
	if p.SubjectID == "" || p.ReferenceID == "" {
		return nil, internal.NewValidationError("subject_id and reference_id are required", internal.ErrCodeValidationFailed)
	}

	currency := p.Currency
	if currency == "" {
		currency = e.cfg.Currency
	}

	return &Entry{
		ID:          uuid.New().String(),
		SubjectID:   p.SubjectID,
		Kind:        p.Kind,
		Side:        p.Side,
		Amount:      p.Amount,
		Currency:    currency,
		ReferenceID: p.ReferenceID,
		ReversalOf:  p.ReversalOf,
		Split:       p.Split,
		Metadata:    p.Metadata,
		CreatedAt:   time.Now(),
	}, nil
}

// postGroup validates and appends a balanced group of entries in one atomic
// unit. An unbalanced group halts processing; it is never silently corrected.
func (e *Engine) postGroup(ctx context.Context, params []EntryParams) ([]*Entry, error) {
	entries := make([]*Entry, 0, len(params))
	rows := make([]*ledgerDatamodel.LedgerEntry, 0, len(params))

	var credits, debits int64
	for _, p := range params {
		entry, err := e.buildEntry(p)
		if err != nil {
			return nil, err
		}
		if entry.Side == SideCredit {
			credits += entry.Amount
		} else {
			debits += entry.Amount
		}
		entries = append(entries, entry)
		rows = append(rows, ToDataModel(entry))
	}

	if credits != debits {
		err := internal.NewLedgerInvariantError(fmt.Sprintf("entry group does not balance: credits=%d debits=%d reference=%s", credits, debits, params[0].ReferenceID))
		e.logger.Error("ledger invariant violation", "error", err, "credits", credits, "debits", debits, "reference_id", params[0].ReferenceID)
		return nil, err
	}

	if err := e.repo.CreateGroup(ctx, rows); err != nil {
		e.logger.Error("failed to append entry group", "error", err, "reference_id", params[0].ReferenceID)
		return nil, err
	}

	return entries, nil
}

func (e *Engine) refundedSoFar(ctx context.Context, referenceID, payerID string) (int64, error) {
	reversals, err := e.repo.ListReversalsOf(ctx, referenceID)
	if err != nil {
		return 0, err
	}

	var refunded int64
	for _, r := range reversals {
		if Side(r.Side) == SideCredit && r.SubjectID == payerID {
			refunded += r.Amount
		}
	}
	return refunded, nil
}

func scaleFloor(component, amount, gross int64) int64 {
	if gross == 0 || component == 0 {
		return 0
	}
	return component * amount / gross
}
