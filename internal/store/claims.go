package store

import (
	"context"
	"errors"
	"time"

	"memetokenhub/internal/errs"
	"memetokenhub/internal/models"

	"gorm.io/gorm"
)

// ErrNoChange may be returned by an Update mutator to commit nothing and hand
// back the claim as loaded. Used for idempotent no-op transitions.
var ErrNoChange = errors.New("no change")

var activeStatuses = []models.ClaimStatus{models.StatusPending, models.StatusUnderReview}

// ClaimStore persists claims and their approvals. All writes go through
// Create or Update; Update applies the mutation atomically with an optimistic
// version check so a claim can never land half-transitioned.
type ClaimStore struct {
	db *gorm.DB
}

func New(db *gorm.DB) *ClaimStore {
	return &ClaimStore{db: db}
}

// Create inserts a new claim. At most one active claim may exist per
// (chain, tokenAddress) pair; a second one fails with a conflict.
func (s *ClaimStore) Create(ctx context.Context, claim *models.Claim) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&models.Claim{}).
			Where("chain = ? AND token_address = ? AND status IN ?",
				claim.Chain, claim.TokenAddress, activeStatuses).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return errs.Conflict("an active claim already exists for %s/%s",
				claim.Chain, claim.TokenAddress)
		}
		return tx.Create(claim).Error
	})
}

func (s *ClaimStore) Get(ctx context.Context, id string) (*models.Claim, error) {
	var claim models.Claim
	err := s.db.WithContext(ctx).Preload("Approvals").First(&claim, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("claim %s", id)
		}
		return nil, err
	}
	return &claim, nil
}

func (s *ClaimStore) ListBySubmitter(ctx context.Context, submitterID string) ([]models.Claim, error) {
	var claims []models.Claim
	err := s.db.WithContext(ctx).Preload("Approvals").
		Where("submitter_id = ?", submitterID).
		Order("created_at DESC").
		Find(&claims).Error
	return claims, err
}

// ListPendingApproval returns every active claim, oldest first.
func (s *ClaimStore) ListPendingApproval(ctx context.Context) ([]models.Claim, error) {
	var claims []models.Claim
	err := s.db.WithContext(ctx).Preload("Approvals").
		Where("status IN ?", activeStatuses).
		Order("created_at ASC").
		Find(&claims).Error
	return claims, err
}

// Update loads the claim, applies mutate, and commits the changed columns and
// approval rows in one transaction. The write is guarded by the version
// counter: if another writer moved the claim since the load, the update fails
// with a conflict and nothing is persisted.
func (s *ClaimStore) Update(ctx context.Context, id string, mutate func(*models.Claim) error) (*models.Claim, error) {
	var claim models.Claim
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Preload("Approvals").First(&claim, "id = ?", id).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.NotFound("claim %s", id)
			}
			return err
		}

		prevVersion := claim.Version
		if err := mutate(&claim); err != nil {
			if errors.Is(err, ErrNoChange) {
				return nil
			}
			return err
		}

		for i := range claim.Approvals {
			a := &claim.Approvals[i]
			a.ClaimID = claim.ID
			if a.ID == 0 {
				if err := tx.Create(a).Error; err != nil {
					return err
				}
			} else {
				err := tx.Model(a).Updates(map[string]any{
					"decision":   a.Decision,
					"decided_at": a.DecidedAt,
				}).Error
				if err != nil {
					return err
				}
			}
		}

		now := time.Now()
		res := tx.Model(&models.Claim{}).
			Where("id = ? AND version = ?", claim.ID, prevVersion).
			Updates(map[string]any{
				"status":                claim.Status,
				"auto_reject_candidate": claim.AutoRejectCandidate,
				"proof_evaluation":      claim.Proof.Evaluation,
				"proof_eval_reason":     claim.Proof.EvalReason,
				"decided_at":            claim.DecidedAt,
				"version":               prevVersion + 1,
				"updated_at":            now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errs.Conflict("claim %s changed concurrently", claim.ID)
		}
		claim.Version = prevVersion + 1
		claim.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &claim, nil
}
