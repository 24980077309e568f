package services

import (
	"context"
	"sync"
	"time"

	"memetokenhub/internal/errs"
	"memetokenhub/internal/models"
	"memetokenhub/internal/retry"
	"memetokenhub/internal/store"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"
)

// CoordinatorConfig carries the consensus policy.
type CoordinatorConfig struct {
	// Distinct human approvals required when the proof evaluation Passed
	// (cryptographic/DNS tiers).
	CryptoThreshold int
	// Threshold for everything else, including SocialPost claims.
	SocialThreshold int
	Retry           retry.Config
}

// Coordinator owns every claim state transition. Mutations to one claim are
// serialized through a per-claim mutex; evaluation runs outside that critical
// section and its outcome is applied atomically afterwards.
type Coordinator struct {
	store      *store.ClaimStore
	evaluator  *Evaluator
	challenges *ChallengeService
	publisher  ProfilePublisher

	locks *xsync.Map[string, *sync.Mutex]

	cryptoThreshold int
	socialThreshold int
	retryCfg        retry.Config
	log             *zap.Logger
}

func NewCoordinator(st *store.ClaimStore, evaluator *Evaluator, challenges *ChallengeService, publisher ProfilePublisher, cfg CoordinatorConfig, log *zap.Logger) *Coordinator {
	if cfg.CryptoThreshold <= 0 {
		cfg.CryptoThreshold = 1
	}
	if cfg.SocialThreshold <= 0 {
		cfg.SocialThreshold = 2
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = retry.DefaultConfig()
	}
	return &Coordinator{
		store:           st,
		evaluator:       evaluator,
		challenges:      challenges,
		publisher:       publisher,
		locks:           xsync.NewMap[string, *sync.Mutex](),
		cryptoThreshold: cfg.CryptoThreshold,
		socialThreshold: cfg.SocialThreshold,
		retryCfg:        cfg.Retry,
		log:             log,
	}
}

type SubmitInput struct {
	SubmitterID  string
	Chain        string
	TokenAddress string

	DisplayName string
	Description string
	Website     string
	Twitter     string
	Discord     string
	Telegram    string
	Reddit      string
	Other       string
	MediaRefs   []string

	Strategy  models.ProofStrategy
	Signature string
	Domain    string
	PostURL   string
}

// Submit creates a Pending claim, runs the evaluator once, and auto-advances
// to UnderReview when the proof passed. A failed evaluation only flags the
// claim; termination always takes an explicit human reject.
func (c *Coordinator) Submit(ctx context.Context, in SubmitInput) (*models.Claim, error) {
	proof := models.ProofAttempt{
		Strategy:   in.Strategy,
		Evaluation: models.EvalUnverified,
	}

	switch in.Strategy {
	case models.StrategySignedMessage, models.StrategyDnsTxtRecord:
		ch, ok := c.challenges.Peek(in.Strategy, in.Chain, in.TokenAddress, in.SubmitterID)
		if !ok {
			return nil, errs.Validation("no outstanding challenge for this token; request one first")
		}
		proof.Challenge = ch.Value
		proof.Signature = in.Signature
		proof.Domain = in.Domain
	case models.StrategySocialPost:
		proof.PostURL = in.PostURL
	default:
		return nil, errs.Validation("unknown proof strategy %q", in.Strategy)
	}

	claim := &models.Claim{
		ID:           uuid.NewString(),
		Chain:        in.Chain,
		TokenAddress: in.TokenAddress,
		SubmitterID:  in.SubmitterID,
		DisplayName:  in.DisplayName,
		Description:  in.Description,
		Website:      in.Website,
		Twitter:      in.Twitter,
		Discord:      in.Discord,
		Telegram:     in.Telegram,
		Reddit:       in.Reddit,
		Other:        in.Other,
		MediaRefs:    in.MediaRefs,
		Proof:        proof,
		Status:       models.StatusPending,
		Version:      1,
	}

	if err := c.store.Create(ctx, claim); err != nil {
		return nil, err
	}
	c.challenges.Consume(in.Strategy, in.Chain, in.TokenAddress, in.SubmitterID)

	c.log.Info("claim submitted",
		zap.String("claim_id", claim.ID),
		zap.String("chain", claim.Chain),
		zap.String("token_address", claim.TokenAddress),
		zap.String("strategy", string(in.Strategy)))

	outcome := c.runEvaluation(ctx, claim)
	return c.applyEvaluation(ctx, claim.ID, outcome)
}

// Reevaluate re-runs the evaluator on an active claim, e.g. after a DNS
// record had time to propagate.
func (c *Coordinator) Reevaluate(ctx context.Context, claimID string) (*models.Claim, error) {
	claim, err := c.store.Get(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if claim.Status.Terminal() {
		return nil, errs.StaleState("claim %s is already %s", claimID, claim.Status)
	}

	outcome := c.runEvaluation(ctx, claim)
	return c.applyEvaluation(ctx, claimID, outcome)
}

// Approve records the approver's decision and moves the claim to Approved
// once distinct human approvals reach the tier's threshold. On approval the
// claim is published to the token-profile read path.
func (c *Coordinator) Approve(ctx context.Context, claimID, approverID string) (*models.Claim, error) {
	unlock := c.lock(claimID)
	defer unlock()

	approved := false
	claim, err := c.store.Update(ctx, claimID, func(cl *models.Claim) error {
		if cl.Status.Terminal() {
			return errs.StaleState("claim %s is already %s", claimID, cl.Status)
		}
		now := time.Now()
		cl.SetDecision(approverID, models.DecisionApprove, now)
		if cl.HumanApprovals() >= c.threshold(cl) {
			cl.Status = models.StatusApproved
			cl.DecidedAt = &now
			approved = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if approved {
		c.log.Info("claim approved",
			zap.String("claim_id", claim.ID),
			zap.String("approver_id", approverID))
		if perr := c.publisher.Publish(ctx, claim); perr != nil {
			c.log.Error("failed to publish approved profile",
				zap.String("claim_id", claim.ID),
				zap.Error(perr))
		}
	}
	return claim, nil
}

// Reject terminates an active claim. One veto suffices, and rejecting an
// already-rejected claim is a no-op returning the terminal record.
func (c *Coordinator) Reject(ctx context.Context, claimID, approverID string) (*models.Claim, error) {
	unlock := c.lock(claimID)
	defer unlock()

	claim, err := c.store.Update(ctx, claimID, func(cl *models.Claim) error {
		if cl.Status == models.StatusRejected {
			return store.ErrNoChange
		}
		if cl.Status == models.StatusApproved {
			return errs.StaleState("claim %s is already %s", claimID, cl.Status)
		}
		now := time.Now()
		cl.SetDecision(approverID, models.DecisionReject, now)
		cl.Status = models.StatusRejected
		cl.DecidedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.log.Info("claim rejected",
		zap.String("claim_id", claim.ID),
		zap.String("approver_id", approverID))
	return claim, nil
}

func (c *Coordinator) Get(ctx context.Context, claimID string) (*models.Claim, error) {
	return c.store.Get(ctx, claimID)
}

func (c *Coordinator) ListBySubmitter(ctx context.Context, submitterID string) ([]models.Claim, error) {
	return c.store.ListBySubmitter(ctx, submitterID)
}

func (c *Coordinator) ListPendingApproval(ctx context.Context) ([]models.Claim, error) {
	return c.store.ListPendingApproval(ctx)
}

// runEvaluation calls the evaluator with the bounded retry budget. Exhaustion
// degrades to Unverified; a transient collaborator outage must never reject a
// claim.
func (c *Coordinator) runEvaluation(ctx context.Context, claim *models.Claim) EvalOutcome {
	var out EvalOutcome
	err := retry.Do(ctx, c.retryCfg, c.log, "evaluate proof", func() error {
		o, err := c.evaluator.Evaluate(ctx, claim)
		if err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		c.log.Warn("proof evaluation unavailable",
			zap.String("claim_id", claim.ID),
			zap.Error(err))
		return EvalOutcome{
			Result: models.EvalUnverified,
			Reason: "verification temporarily unavailable; retry later",
		}
	}
	return out
}

func (c *Coordinator) applyEvaluation(ctx context.Context, claimID string, outcome EvalOutcome) (*models.Claim, error) {
	unlock := c.lock(claimID)
	defer unlock()

	return c.store.Update(ctx, claimID, func(cl *models.Claim) error {
		if cl.Status.Terminal() {
			return errs.StaleState("claim %s is already %s", claimID, cl.Status)
		}
		cl.Proof.Evaluation = outcome.Result
		cl.Proof.EvalReason = outcome.Reason
		cl.AutoRejectCandidate = outcome.Result == models.EvalFailed
		if outcome.Result == models.EvalPassed && cl.Status == models.StatusPending {
			cl.Status = models.StatusUnderReview
			cl.SetDecision(models.SystemApprover, models.DecisionApprove, time.Now())
		}
		return nil
	})
}

func (c *Coordinator) threshold(cl *models.Claim) int {
	if cl.Proof.Evaluation == models.EvalPassed {
		return c.cryptoThreshold
	}
	return c.socialThreshold
}

func (c *Coordinator) lock(claimID string) func() {
	mu, _ := c.locks.LoadOrStore(claimID, &sync.Mutex{})
	mu.Lock()
	return mu.Unlock
}
