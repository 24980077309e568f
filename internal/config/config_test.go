package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 1, cfg.CryptoApprovalThreshold)
	assert.Equal(t, 2, cfg.SocialApprovalThreshold)
	assert.Empty(t, cfg.Approvers())
	assert.Empty(t, cfg.Authorities())
}

// The reviewer-role and authority settings must be reachable through plain
// env vars, not only through a .env file.
func TestEnvOverridesSecuritySettings(t *testing.T) {
	t.Setenv("MTH_APPROVER_IDS", "alice, bob")
	t.Setenv("MTH_TOKEN_AUTHORITIES", "solana/Tok1=aabb, ,malformed")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, map[string]bool{"alice": true, "bob": true}, cfg.Approvers())

	authorities := cfg.Authorities()
	require.Len(t, authorities, 1)
	assert.Equal(t, "aabb", authorities["solana/tok1"])
}
