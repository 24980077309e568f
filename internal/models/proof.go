package models

type ProofStrategy string

const (
	// StrategySignedMessage: submitter signs a server-issued message with the
	// token authority's key. Cryptographic tier.
	StrategySignedMessage ProofStrategy = "SignedMessage"
	// StrategyDnsTxtRecord: submitter publishes a server-issued token as a TXT
	// record under _mth-claim.<domain>. Infrastructure tier.
	StrategyDnsTxtRecord ProofStrategy = "DnsTxtRecord"
	// StrategySocialPost: submitter links a public post; reviewed by humans.
	StrategySocialPost ProofStrategy = "SocialPost"
)

func (s ProofStrategy) Valid() bool {
	switch s {
	case StrategySignedMessage, StrategyDnsTxtRecord, StrategySocialPost:
		return true
	}
	return false
}

type Evaluation string

const (
	EvalUnverified Evaluation = "Unverified"
	EvalPassed     Evaluation = "Passed"
	EvalFailed     Evaluation = "Failed"
)

// ProofAttempt is embedded in Claim. Immutable after submit except for
// Evaluation/EvalReason, which re-evaluation may rewrite.
type ProofAttempt struct {
	Strategy  ProofStrategy `gorm:"not null" json:"strategy"`
	Challenge string        `json:"challenge,omitempty"`

	// Evidence, one field per strategy.
	Signature string `json:"signature,omitempty"`
	Domain    string `json:"domain,omitempty"`
	PostURL   string `json:"post_url,omitempty"`

	Evaluation Evaluation `gorm:"default:'Unverified'" json:"evaluation"`
	EvalReason string     `json:"eval_reason,omitempty"`
}
