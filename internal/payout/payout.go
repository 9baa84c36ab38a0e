package payout

import (
	"math"
	"time"

	payoutDatamodel "github.com/avelines/creator-ledger/internal/core/datamodel/payout"
	"github.com/avelines/creator-ledger/internal/kyc"
)

// Mode is the single sum type for how a payout leaves the platform. Fee,
// delay and KYC gate all key off it through exhaustive switches, so a new
// mode cannot be added without deciding all three.
type Mode string

const (
	ModeStandard      Mode = "STANDARD"
	ModeExpressCrypto Mode = "EXPRESS_CRYPTO"
	ModeExpressFiat   Mode = "EXPRESS_FIAT"
)

func (m Mode) Valid() bool {
	switch m {
	case ModeStandard, ModeExpressCrypto, ModeExpressFiat:
		return true
	}
	return false
}

func (m Mode) IsExpress() bool {
	return m == ModeExpressCrypto || m == ModeExpressFiat
}

// RequiredKycLevel gates which creators may use a mode. Express fiat rails
// carry the strictest identity requirements.
func (m Mode) RequiredKycLevel() kyc.Level {
	switch m {
	case ModeExpressFiat:
		return kyc.LevelEnhanced
	case ModeStandard, ModeExpressCrypto:
		return kyc.LevelBasic
	}
	return kyc.LevelEnhanced
}

const (
	StatusPending = "PENDING"
	StatusPaid    = "PAID"
	StatusFailed  = "FAILED"
)

// Payout is one withdrawal request. It transitions exactly once from PENDING
// to PAID or FAILED; FAILED is terminal and a fresh request must be issued to
// try again, which keeps the audit trail honest.
type Payout struct {
	ID                    string     `json:"id"`
	CreatorID             string     `json:"creator_id"`
	AmountRequested       int64      `json:"amount_requested"`
	FeeAmount             int64      `json:"fee_amount"`
	AmountNet             int64      `json:"amount_net"`
	Currency              string     `json:"currency"`
	Mode                  Mode       `json:"mode"`
	Status                string     `json:"status"`
	Destination           string     `json:"destination"`
	ExternalTransferID    *string    `json:"external_transfer_id,omitempty"`
	FailureReason         *string    `json:"failure_reason,omitempty"`
	RequestedAt           time.Time  `json:"requested_at"`
	EstimatedCompletionAt time.Time  `json:"estimated_completion_at"`
	CompletedAt           *time.Time `json:"completed_at,omitempty"`
}

func (p *Payout) IsPending() bool {
	return p.Status == StatusPending
}

// ComputeFee returns the platform's cut for a payout mode. Standard payouts
// are free; express modes charge a floored percentage of the requested
// amount.
func ComputeFee(amount int64, mode Mode, expressFeePct float64) int64 {
	if mode == ModeStandard {
		return 0
	}
	return int64(math.Floor(float64(amount) * expressFeePct))
}

func ToDataModel(p *Payout) *payoutDatamodel.Payout {
	return &payoutDatamodel.Payout{
		ID:                    p.ID,
		CreatorID:             p.CreatorID,
		AmountRequested:       p.AmountRequested,
		FeeAmount:             p.FeeAmount,
		AmountNet:             p.AmountNet,
		Currency:              p.Currency,
		Mode:                  string(p.Mode),
		Status:                p.Status,
		Destination:           p.Destination,
		ExternalTransferID:    p.ExternalTransferID,
		FailureReason:         p.FailureReason,
		RequestedAt:           p.RequestedAt,
		EstimatedCompletionAt: p.EstimatedCompletionAt,
		CompletedAt:           p.CompletedAt,
	}
}

func FromDataModel(p *payoutDatamodel.Payout) *Payout {
	return &Payout{
		ID:                    p.ID,
		CreatorID:             p.CreatorID,
		AmountRequested:       p.AmountRequested,
		FeeAmount:             p.FeeAmount,
		AmountNet:             p.AmountNet,
		Currency:              p.Currency,
		Mode:                  Mode(p.Mode),
		Status:                p.Status,
		Destination:           p.Destination,
		ExternalTransferID:    p.ExternalTransferID,
		FailureReason:         p.FailureReason,
		RequestedAt:           p.RequestedAt,
		EstimatedCompletionAt: p.EstimatedCompletionAt,
		CompletedAt:           p.CompletedAt,
	}
}

func FromDataModelSlice(rows []*payoutDatamodel.Payout) []*Payout {
	out := make([]*Payout, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromDataModel(row))
	}
	return out
}
