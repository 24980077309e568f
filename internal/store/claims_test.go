package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"memetokenhub/internal/database"
	"memetokenhub/internal/errs"
	"memetokenhub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *ClaimStore {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "claims.db"))
	require.NoError(t, err)
	return New(db)
}

func testClaim(id, tokenAddress string) *models.Claim {
	return &models.Claim{
		ID:           id,
		Chain:        "solana",
		TokenAddress: tokenAddress,
		SubmitterID:  "user1",
		DisplayName:  "Doge Classic",
		MediaRefs:    []string{"banners/doge.png"},
		Proof: models.ProofAttempt{
			Strategy:   models.StrategySocialPost,
			PostURL:    "https://x.com/doge/status/1",
			Evaluation: models.EvalUnverified,
		},
		Status:  models.StatusPending,
		Version: 1,
	}
}

func TestCreateAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, testClaim("c1", "tok1")))

	got, err := s.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "tok1", got.TokenAddress)
	assert.Equal(t, []string{"banners/doge.png"}, got.MediaRefs)
	assert.Equal(t, models.StatusPending, got.Status)
}

func TestGetUnknownClaim(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestCreateRejectsSecondActiveClaim(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, testClaim("c1", "tok1")))

	err := s.Create(ctx, testClaim("c2", "tok1"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrConflict))

	// A different token is unaffected.
	require.NoError(t, s.Create(ctx, testClaim("c3", "tok2")))

	// Once the first claim is terminal the pair is claimable again.
	_, err = s.Update(ctx, "c1", func(cl *models.Claim) error {
		cl.Status = models.StatusRejected
		now := time.Now()
		cl.DecidedAt = &now
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, s.Create(ctx, testClaim("c4", "tok1")))
}

func TestUpdateBumpsVersion(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, testClaim("c1", "tok1")))

	updated, err := s.Update(ctx, "c1", func(cl *models.Claim) error {
		cl.Status = models.StatusUnderReview
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, uint(2), updated.Version)
	assert.Equal(t, models.StatusUnderReview, updated.Status)
}

func TestUpdateMutatorErrorAbortsWrite(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, testClaim("c1", "tok1")))

	_, err := s.Update(ctx, "c1", func(cl *models.Claim) error {
		cl.Status = models.StatusApproved
		return errs.StaleState("nope")
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrStaleState))

	got, err := s.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Equal(t, uint(1), got.Version)
}

func TestUpdateNoChangeCommitsNothing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, testClaim("c1", "tok1")))

	got, err := s.Update(ctx, "c1", func(cl *models.Claim) error {
		return ErrNoChange
	})
	require.NoError(t, err)
	assert.Equal(t, uint(1), got.Version)
}

func TestUpdateOverwritesApproverDecision(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, testClaim("c1", "tok1")))

	_, err := s.Update(ctx, "c1", func(cl *models.Claim) error {
		cl.SetDecision("alice", models.DecisionApprove, time.Now())
		return nil
	})
	require.NoError(t, err)

	updated, err := s.Update(ctx, "c1", func(cl *models.Claim) error {
		cl.SetDecision("alice", models.DecisionReject, time.Now())
		return nil
	})
	require.NoError(t, err)
	require.Len(t, updated.Approvals, 1)
	assert.Equal(t, models.DecisionReject, updated.Approvals[0].Decision)

	got, err := s.Get(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, got.Approvals, 1)
	assert.Equal(t, models.DecisionReject, got.Approvals[0].Decision)
}

func TestListBySubmitterAndPending(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, testClaim("c1", "tok1")))
	other := testClaim("c2", "tok2")
	other.SubmitterID = "user2"
	require.NoError(t, s.Create(ctx, other))

	mine, err := s.ListBySubmitter(ctx, "user1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "c1", mine[0].ID)

	pending, err := s.ListPendingApproval(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	_, err = s.Update(ctx, "c1", func(cl *models.Claim) error {
		cl.Status = models.StatusRejected
		return nil
	})
	require.NoError(t, err)

	pending, err = s.ListPendingApproval(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "c2", pending[0].ID)
}
