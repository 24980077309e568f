package services

import (
	"errors"
	"strings"
	"testing"
	"time"

	"memetokenhub/internal/errs"
	"memetokenhub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueSignedMessageChallenge(t *testing.T) {
	svc := NewChallengeService(time.Hour)

	ch, err := svc.Issue(models.StrategySignedMessage, "solana", "tok1", "user1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ch.Value, "tok1:user1:"))

	got, ok := svc.Peek(models.StrategySignedMessage, "solana", "tok1", "user1")
	require.True(t, ok)
	assert.Equal(t, ch.Value, got.Value)
}

func TestIssueDNSChallengeIsRandom(t *testing.T) {
	svc := NewChallengeService(time.Hour)

	a, err := svc.Issue(models.StrategyDnsTxtRecord, "solana", "tok1", "user1")
	require.NoError(t, err)
	b, err := svc.Issue(models.StrategyDnsTxtRecord, "solana", "tok2", "user1")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(a.Value, "mth-verify="))
	assert.NotEqual(t, a.Value, b.Value)
}

func TestIssueSocialPostRejected(t *testing.T) {
	svc := NewChallengeService(time.Hour)

	_, err := svc.Issue(models.StrategySocialPost, "solana", "tok1", "user1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrValidation))
}

func TestConsumeRemovesChallenge(t *testing.T) {
	svc := NewChallengeService(time.Hour)

	_, err := svc.Issue(models.StrategyDnsTxtRecord, "solana", "tok1", "user1")
	require.NoError(t, err)

	svc.Consume(models.StrategyDnsTxtRecord, "solana", "tok1", "user1")
	_, ok := svc.Peek(models.StrategyDnsTxtRecord, "solana", "tok1", "user1")
	assert.False(t, ok)
}

func TestReissueOverwrites(t *testing.T) {
	svc := NewChallengeService(time.Hour)

	a, err := svc.Issue(models.StrategyDnsTxtRecord, "solana", "tok1", "user1")
	require.NoError(t, err)
	b, err := svc.Issue(models.StrategyDnsTxtRecord, "solana", "tok1", "user1")
	require.NoError(t, err)
	require.NotEqual(t, a.Value, b.Value)

	got, ok := svc.Peek(models.StrategyDnsTxtRecord, "solana", "tok1", "user1")
	require.True(t, ok)
	assert.Equal(t, b.Value, got.Value)
}
