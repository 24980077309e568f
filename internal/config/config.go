package config

import (
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	ListenAddr   string `mapstructure:"LISTEN_ADDR"`
	DatabasePath string `mapstructure:"DB_PATH"`
	LogLevel     string `mapstructure:"LOG_LEVEL"`

	// Comma-separated ids allowed to approve/reject claims. The session
	// provider in front of this service authenticates callers; this list only
	// grants the reviewer role.
	ApproverIDs string `mapstructure:"APPROVER_IDS"`

	// Comma-separated "chain/tokenAddress=hexPublicKey" entries recording each
	// token's on-chain authority for SignedMessage verification.
	TokenAuthorities string `mapstructure:"TOKEN_AUTHORITIES"`

	// Distinct human approvals required before a claim becomes Approved.
	CryptoApprovalThreshold int `mapstructure:"CRYPTO_APPROVAL_THRESHOLD"`
	SocialApprovalThreshold int `mapstructure:"SOCIAL_APPROVAL_THRESHOLD"`

	ChallengeTTLMinutes int `mapstructure:"CHALLENGE_TTL_MINUTES"`
	EvalTimeoutSeconds  int `mapstructure:"EVAL_TIMEOUT_SECONDS"`

	// Requests per second allowed on the submit/challenge routes.
	SubmitRateLimit float64 `mapstructure:"SUBMIT_RATE_LIMIT"`

	// Prefix prepended to media refs when resolving them to display URLs.
	MediaBaseURL string `mapstructure:"MEDIA_BASE_URL"`
}

func LoadConfig() (*Config, error) {
	viper.SetDefault("LISTEN_ADDR", ":8080")
	viper.SetDefault("DB_PATH", "memetokenhub.db")
	viper.SetDefault("LOG_LEVEL", "info")
	// Registering defaults is what lets AutomaticEnv surface these keys
	// through Unmarshal; without them the env vars are ignored.
	viper.SetDefault("APPROVER_IDS", "")
	viper.SetDefault("TOKEN_AUTHORITIES", "")
	viper.SetDefault("CRYPTO_APPROVAL_THRESHOLD", 1)
	viper.SetDefault("SOCIAL_APPROVAL_THRESHOLD", 2)
	viper.SetDefault("CHALLENGE_TTL_MINUTES", 60)
	viper.SetDefault("EVAL_TIMEOUT_SECONDS", 5)
	viper.SetDefault("SUBMIT_RATE_LIMIT", 5)
	viper.SetDefault("MEDIA_BASE_URL", "")

	viper.SetEnvPrefix("MTH")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Fallback to a .env file for local development.
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// Approvers returns the reviewer id set.
func (c *Config) Approvers() map[string]bool {
	out := make(map[string]bool)
	for _, id := range strings.Split(c.ApproverIDs, ",") {
		id = strings.TrimSpace(id)
		if id != "" {
			out[id] = true
		}
	}
	return out
}

// Authorities parses TOKEN_AUTHORITIES into a chain/address → public key map.
// Keys are lowercased so lookups are case-insensitive.
func (c *Config) Authorities() map[string]string {
	out := make(map[string]string)
	for _, entry := range strings.Split(c.TokenAuthorities, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			continue
		}
		out[strings.ToLower(strings.TrimSpace(parts[0]))] = strings.TrimSpace(parts[1])
	}
	return out
}
