package postgres

import (
	"context"

	errors "github.com/avelines/creator-ledger/internal"
	userDatamodel "github.com/avelines/creator-ledger/internal/core/datamodel/user"
	"github.com/avelines/creator-ledger/internal/kyc"
	"gorm.io/gorm"
)

// KycStore implements the kyc.Store interface over the users table.
type KycStore struct {
	db *gorm.DB
}

func NewKycStore(db *gorm.DB) kyc.Store {
	return &KycStore{db: db}
}

func (s *KycStore) LevelFor(ctx context.Context, creatorID string) (kyc.Level, error) {
	var user userDatamodel.User
	err := s.db.WithContext(ctx).
		Select("kyc_level").
		Where("id = ?", creatorID).
		First(&user).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return kyc.LevelNone, errors.NewNotFoundError("creator not found", errors.ErrCodeCreatorNotFound)
		}
		return kyc.LevelNone, err
	}

	level := kyc.Level(user.KycLevel)
	if !level.Valid() {
		return kyc.LevelNone, nil
	}
	return level, nil
}
