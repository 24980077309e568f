package services

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"memetokenhub/internal/errs"
	"memetokenhub/internal/models"

	"go.uber.org/zap"
)

// SignatureVerifier checks a signature over message against the signer's
// recorded key. Implemented externally per chain; Ed25519Verifier is the
// default.
type SignatureVerifier interface {
	Verify(message string, signature []byte, expectedSigner string) (bool, error)
}

// TXTResolver is the DNS collaborator.
type TXTResolver interface {
	LookupTXT(ctx context.Context, host string) ([]string, error)
}

// AuthorityRegistry maps a token to its on-chain authority key. Returns an
// empty string when no authority is recorded.
type AuthorityRegistry interface {
	Authority(ctx context.Context, chain, tokenAddress string) (string, error)
}

type EvalOutcome struct {
	Result models.Evaluation
	Reason string
}

// Evaluator decides whether submitted evidence satisfies the declared proof
// strategy. It never touches claim status; callers apply the outcome. A
// returned error means a collaborator was unreachable and the check is
// retryable; Failed is a definitive mismatch.
type Evaluator struct {
	verifier    SignatureVerifier
	resolver    TXTResolver
	authorities AuthorityRegistry
	timeout     time.Duration
	log         *zap.Logger
}

func NewEvaluator(verifier SignatureVerifier, resolver TXTResolver, authorities AuthorityRegistry, timeout time.Duration, log *zap.Logger) *Evaluator {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Evaluator{
		verifier:    verifier,
		resolver:    resolver,
		authorities: authorities,
		timeout:     timeout,
		log:         log,
	}
}

func (e *Evaluator) Evaluate(ctx context.Context, claim *models.Claim) (EvalOutcome, error) {
	switch claim.Proof.Strategy {
	case models.StrategySignedMessage:
		return e.evaluateSignature(ctx, claim)
	case models.StrategyDnsTxtRecord:
		return e.evaluateTXT(ctx, claim)
	case models.StrategySocialPost:
		// Post content must assert the claim; only a human can judge that.
		return EvalOutcome{
			Result: models.EvalUnverified,
			Reason: "social post evidence requires manual review",
		}, nil
	default:
		return EvalOutcome{
			Result: models.EvalFailed,
			Reason: fmt.Sprintf("unknown proof strategy %q", claim.Proof.Strategy),
		}, nil
	}
}

func (e *Evaluator) evaluateSignature(ctx context.Context, claim *models.Claim) (EvalOutcome, error) {
	authority, err := e.authorities.Authority(ctx, claim.Chain, claim.TokenAddress)
	if err != nil {
		return EvalOutcome{}, errs.EvaluatorUnavailable("authority lookup for %s/%s: %v",
			claim.Chain, claim.TokenAddress, err)
	}
	if authority == "" {
		return EvalOutcome{
			Result: models.EvalFailed,
			Reason: "no recorded authority for this token",
		}, nil
	}

	sig, err := hex.DecodeString(claim.Proof.Signature)
	if err != nil {
		return EvalOutcome{Result: models.EvalFailed, Reason: "malformed signature encoding"}, nil
	}

	ok, err := e.verifier.Verify(claim.Proof.Challenge, sig, authority)
	if err != nil {
		return EvalOutcome{}, errs.EvaluatorUnavailable("signature verification: %v", err)
	}
	if !ok {
		return EvalOutcome{
			Result: models.EvalFailed,
			Reason: "signature does not match the token authority",
		}, nil
	}
	return EvalOutcome{
		Result: models.EvalPassed,
		Reason: "signature verified against the token authority",
	}, nil
}

func (e *Evaluator) evaluateTXT(ctx context.Context, claim *models.Claim) (EvalOutcome, error) {
	host := "_mth-claim." + claim.Proof.Domain

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	records, err := e.resolver.LookupTXT(ctx, host)
	if err != nil {
		e.log.Debug("TXT lookup failed", zap.String("host", host), zap.Error(err))
		// A timeout is retryable; the record may simply not have propagated.
		// Anything else (NXDOMAIN and friends) is a definitive failure.
		var dnsErr *net.DNSError
		if errors.Is(err, context.DeadlineExceeded) ||
			(errors.As(err, &dnsErr) && dnsErr.IsTimeout) {
			return EvalOutcome{}, errs.EvaluatorUnavailable("TXT lookup for %s timed out", host)
		}
		return EvalOutcome{
			Result: models.EvalFailed,
			Reason: "TXT record not found for " + host,
		}, nil
	}

	for _, rec := range records {
		if strings.TrimSpace(rec) == claim.Proof.Challenge {
			return EvalOutcome{
				Result: models.EvalPassed,
				Reason: "TXT record matches the issued challenge",
			}, nil
		}
	}
	return EvalOutcome{
		Result: models.EvalFailed,
		Reason: fmt.Sprintf("TXT record found but value does not match (found: %s)",
			strings.Join(records, ", ")),
	}, nil
}

// NetResolver resolves TXT records with the system resolver.
type NetResolver struct {
	Resolver *net.Resolver
}

func (r *NetResolver) LookupTXT(ctx context.Context, host string) ([]string, error) {
	resolver := r.Resolver
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	return resolver.LookupTXT(ctx, host)
}

// Ed25519Verifier verifies ed25519 signatures against hex-encoded public keys.
type Ed25519Verifier struct{}

func (Ed25519Verifier) Verify(message string, signature []byte, expectedSigner string) (bool, error) {
	pub, err := hex.DecodeString(expectedSigner)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return false, nil
	}
	if len(signature) != ed25519.SignatureSize {
		return false, nil
	}
	return ed25519.Verify(ed25519.PublicKey(pub), []byte(message), signature), nil
}

// StaticAuthorityRegistry serves token authorities from a config-seeded map
// keyed by "chain/tokenAddress" (lowercased).
type StaticAuthorityRegistry map[string]string

func (r StaticAuthorityRegistry) Authority(_ context.Context, chain, tokenAddress string) (string, error) {
	return r[strings.ToLower(chain+"/"+tokenAddress)], nil
}
