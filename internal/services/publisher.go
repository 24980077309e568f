package services

import (
	"context"
	"errors"
	"time"

	"memetokenhub/internal/errs"
	"memetokenhub/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProfilePublisher hands an approved claim to the public token-profile read
// path as the token's new canonical social data.
type ProfilePublisher interface {
	Publish(ctx context.Context, claim *models.Claim) error
}

// ProfileStore is the gorm-backed default read path: one row per token,
// replaced wholesale on every approval.
type ProfileStore struct {
	db *gorm.DB
}

func NewProfileStore(db *gorm.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

func (p *ProfileStore) Publish(ctx context.Context, claim *models.Claim) error {
	profile := models.TokenProfile{
		Chain:        claim.Chain,
		TokenAddress: claim.TokenAddress,
		DisplayName:  claim.DisplayName,
		Description:  claim.Description,
		Website:      claim.Website,
		Twitter:      claim.Twitter,
		Discord:      claim.Discord,
		Telegram:     claim.Telegram,
		Reddit:       claim.Reddit,
		Other:        claim.Other,
		MediaRefs:    claim.MediaRefs,
		ClaimID:      claim.ID,
		PublishedAt:  time.Now(),
	}
	return p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "chain"}, {Name: "token_address"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"display_name", "description", "website", "twitter", "discord",
			"telegram", "reddit", "other", "media_refs", "claim_id", "published_at",
		}),
	}).Create(&profile).Error
}

func (p *ProfileStore) Get(ctx context.Context, chain, tokenAddress string) (*models.TokenProfile, error) {
	var profile models.TokenProfile
	err := p.db.WithContext(ctx).
		Where("chain = ? AND token_address = ?", chain, tokenAddress).
		First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("no profile for %s/%s", chain, tokenAddress)
		}
		return nil, err
	}
	return &profile, nil
}
