package models

import (
	"time"
)

// TokenProfile is the canonical public social data for a token, replaced each
// time a claim for that token reaches Approved. The public read path serves
// from this table only.
type TokenProfile struct {
	ID           uint   `gorm:"primaryKey" json:"-"`
	Chain        string `gorm:"not null;uniqueIndex:idx_profiles_token,priority:1" json:"chain"`
	TokenAddress string `gorm:"not null;uniqueIndex:idx_profiles_token,priority:2" json:"token_address"`

	DisplayName string `json:"display_name"`
	Description string `json:"description"`
	Website     string `json:"website"`
	Twitter     string `json:"twitter"`
	Discord     string `json:"discord"`
	Telegram    string `json:"telegram"`
	Reddit      string `json:"reddit"`
	Other       string `json:"other"`

	MediaRefs []string `gorm:"serializer:json" json:"media_refs"`

	ClaimID     string    `gorm:"not null" json:"claim_id"`
	PublishedAt time.Time `json:"published_at"`
}
