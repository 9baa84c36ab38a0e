package ledger

import (
	"encoding/json"
	"math"
	"time"

	ledgerDatamodel "github.com/avelines/creator-ledger/internal/core/datamodel/ledger"
)

type Kind string

const (
	KindSubscription Kind = "SUBSCRIPTION"
	KindPPV          Kind = "PPV"
	KindTip          Kind = "TIP"
	KindFee          Kind = "FEE"
	KindRefund       Kind = "REFUND"
	KindWithdrawal   Kind = "WITHDRAWAL"
)

func (k Kind) Valid() bool {
	switch k {
	case KindSubscription, KindPPV, KindTip, KindFee, KindRefund, KindWithdrawal:
		return true
	}
	return false
}

// Earning reports whether entries of this kind represent creator revenue
// subject to clearance and reserve holds.
func (k Kind) Earning() bool {
	switch k {
	case KindSubscription, KindPPV, KindTip:
		return true
	}
	return false
}

type Side string

const (
	SideCredit Side = "CREDIT"
	SideDebit  Side = "DEBIT"
)

func (s Side) Valid() bool {
	return s == SideCredit || s == SideDebit
}

func (s Side) Flip() Side {
	if s == SideCredit {
		return SideDebit
	}
	return SideCredit
}

// Well-known subjects. The platform collects fees; the treasury subject
// absorbs the net that leaves the system through the transfer gateway, so
// withdrawal references stay balanced like every other reference.
const (
	SubjectPlatform = "platform"
	SubjectTreasury = "treasury"
)

const (
	SplitMain    = "main"
	SplitReserve = "reserve"
)

type Entry struct {
	ID          string          `json:"id"`
	SubjectID   string          `json:"subject_id"`
	Kind        Kind            `json:"kind"`
	Side        Side            `json:"side"`
	Amount      int64           `json:"amount"`
	Currency    string          `json:"currency"`
	ReferenceID string          `json:"reference_id"`
	ReversalOf  *string         `json:"reversal_of,omitempty"`
	Split       string          `json:"split,omitempty"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Split is the deterministic fee/reserve decomposition of a gross payment.
// All percentages are fractions in [0, 1); every component is floored so the
// pieces always sum back to the gross.
type Split struct {
	Gross          int64
	PlatformFee    int64
	CreatorReserve int64
	CreatorMain    int64
}

func ComputeSplit(gross int64, platformFeePct, reservePct float64) Split {
	platformFee := int64(math.Floor(float64(gross) * platformFeePct))
	creatorTotal := gross - platformFee
	creatorReserve := int64(math.Floor(float64(creatorTotal) * reservePct))
	creatorMain := creatorTotal - creatorReserve

	return Split{
		Gross:          gross,
		PlatformFee:    platformFee,
		CreatorReserve: creatorReserve,
		CreatorMain:    creatorMain,
	}
}

// Balance is the signed credits-minus-debits position of one subject,
// with the hold buckets a payout may not touch broken out.
type Balance struct {
	Available    int64 `json:"available"`
	InReserve    int64 `json:"in_reserve"`
	PendingClear int64 `json:"pending_clear"`
}

func ToDataModel(e *Entry) *ledgerDatamodel.LedgerEntry {
	return &ledgerDatamodel.LedgerEntry{
		ID:          e.ID,
		SubjectID:   e.SubjectID,
		Kind:        string(e.Kind),
		Side:        string(e.Side),
		Amount:      e.Amount,
		Currency:    e.Currency,
		ReferenceID: e.ReferenceID,
		ReversalOf:  e.ReversalOf,
		Split:       e.Split,
		Metadata:    e.Metadata,
		CreatedAt:   e.CreatedAt,
	}
}

func FromDataModel(e *ledgerDatamodel.LedgerEntry) *Entry {
	return &Entry{
		ID:          e.ID,
		SubjectID:   e.SubjectID,
		Kind:        Kind(e.Kind),
		Side:        Side(e.Side),
		Amount:      e.Amount,
		Currency:    e.Currency,
		ReferenceID: e.ReferenceID,
		ReversalOf:  e.ReversalOf,
		Split:       e.Split,
		Metadata:    e.Metadata,
		CreatedAt:   e.CreatedAt,
	}
}

func FromDataModelSlice(entries []*ledgerDatamodel.LedgerEntry) []*Entry {
	result := make([]*Entry, len(entries))
	for i, e := range entries {
		result[i] = FromDataModel(e)
	}
	return result
}
