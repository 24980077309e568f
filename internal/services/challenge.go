package services

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"memetokenhub/internal/errs"
	"memetokenhub/internal/models"

	cache "github.com/patrickmn/go-cache"
)

const dnsChallengePrefix = "mth-verify="

// IssuedChallenge is what the submitter must produce evidence against: the
// message to sign, or the TXT value to publish.
type IssuedChallenge struct {
	Strategy  models.ProofStrategy `json:"strategy"`
	Value     string               `json:"challenge"`
	IssuedAt  time.Time            `json:"issued_at"`
	ExpiresAt time.Time            `json:"expires_at"`
}

// ChallengeService issues and remembers per-submitter challenges until the
// claim embedding them is stored. Entries expire after the configured TTL;
// submitting with an expired challenge fails validation and the submitter
// requests a fresh one.
type ChallengeService struct {
	issued *cache.Cache
	ttl    time.Duration
}

func NewChallengeService(ttl time.Duration) *ChallengeService {
	return &ChallengeService{
		issued: cache.New(ttl, 10*time.Minute),
		ttl:    ttl,
	}
}

func (s *ChallengeService) Issue(strategy models.ProofStrategy, chain, tokenAddress, submitterID string) (IssuedChallenge, error) {
	now := time.Now().UTC()
	ch := IssuedChallenge{Strategy: strategy, IssuedAt: now, ExpiresAt: now.Add(s.ttl)}

	switch strategy {
	case models.StrategySignedMessage:
		ch.Value = fmt.Sprintf("%s:%s:%d", tokenAddress, submitterID, now.Unix())
	case models.StrategyDnsTxtRecord:
		nonce := make([]byte, 16)
		if _, err := rand.Read(nonce); err != nil {
			return IssuedChallenge{}, err
		}
		ch.Value = dnsChallengePrefix + hex.EncodeToString(nonce)
	case models.StrategySocialPost:
		return IssuedChallenge{}, errs.Validation("strategy %s requires no challenge", strategy)
	default:
		return IssuedChallenge{}, errs.Validation("unknown proof strategy %q", strategy)
	}

	s.issued.Set(challengeKey(strategy, chain, tokenAddress, submitterID), ch, s.ttl)
	return ch, nil
}

// Peek returns the outstanding challenge without consuming it, so a failed
// submit (e.g. duplicate-claim conflict) does not burn it.
func (s *ChallengeService) Peek(strategy models.ProofStrategy, chain, tokenAddress, submitterID string) (IssuedChallenge, bool) {
	v, ok := s.issued.Get(challengeKey(strategy, chain, tokenAddress, submitterID))
	if !ok {
		return IssuedChallenge{}, false
	}
	return v.(IssuedChallenge), true
}

// Consume drops the challenge once the claim embedding it is durably stored.
func (s *ChallengeService) Consume(strategy models.ProofStrategy, chain, tokenAddress, submitterID string) {
	s.issued.Delete(challengeKey(strategy, chain, tokenAddress, submitterID))
}

func challengeKey(strategy models.ProofStrategy, chain, tokenAddress, submitterID string) string {
	return strings.ToLower(strings.Join([]string{string(strategy), chain, tokenAddress, submitterID}, "|"))
}
