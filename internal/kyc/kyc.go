package kyc

import "context"

// Level is a tiered identity-verification status. Higher levels unlock more
// payout modes; the ordering is part of the contract.
type Level string

const (
	LevelNone     Level = "NONE"
	LevelBasic    Level = "BASIC"
	LevelEnhanced Level = "ENHANCED"
)

var levelRank = map[Level]int{
	LevelNone:     0,
	LevelBasic:    1,
	LevelEnhanced: 2,
}

func (l Level) Valid() bool {
	_, ok := levelRank[l]
	return ok
}

// AtLeast reports whether l meets or exceeds the required level. Unknown
// levels rank below NONE so a corrupt value can never unlock anything.
func (l Level) AtLeast(required Level) bool {
	lr, ok := levelRank[l]
	if !ok {
		return false
	}
	return lr >= levelRank[required]
}

// Store is a read-only view of the identity system. This engine never writes
// KYC state; it only consumes the level as a fact.
type Store interface {
	LevelFor(ctx context.Context, creatorID string) (Level, error)
}
