package models

import (
	"time"
)

type ClaimStatus string

const (
	StatusPending     ClaimStatus = "Pending"
	StatusUnderReview ClaimStatus = "UnderReview"
	StatusApproved    ClaimStatus = "Approved"
	StatusRejected    ClaimStatus = "Rejected"
)

// Active reports whether the claim can still receive decisions.
func (s ClaimStatus) Active() bool {
	return s == StatusPending || s == StatusUnderReview
}

func (s ClaimStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// SystemApprover is the reserved approver id under which the evaluator's
// implicit approval is recorded. It never counts toward the human consensus
// threshold.
const SystemApprover = "system:evaluator"

type Claim struct {
	ID           string `gorm:"primaryKey" json:"id"`
	Chain        string `gorm:"not null;index:idx_claims_token,priority:1" json:"chain"`
	TokenAddress string `gorm:"not null;index:idx_claims_token,priority:2" json:"token_address"`
	SubmitterID  string `gorm:"not null;index" json:"submitter_id"`

	DisplayName string `json:"display_name"`
	Description string `json:"description"`
	Website     string `json:"website"`
	Twitter     string `json:"twitter"`
	Discord     string `json:"discord"`
	Telegram    string `json:"telegram"`
	Reddit      string `json:"reddit"`
	Other       string `json:"other"`

	// Opaque references into object storage. Bytes never pass through here.
	MediaRefs []string `gorm:"serializer:json" json:"media_refs"`

	Proof ProofAttempt `gorm:"embedded;embeddedPrefix:proof_" json:"proof"`

	Status              ClaimStatus `gorm:"not null;default:'Pending';index" json:"status"`
	AutoRejectCandidate bool        `json:"auto_reject_candidate"`

	Approvals []Approval `gorm:"foreignKey:ClaimID" json:"approvals"`

	// Bumped on every store update; writers lose with a conflict when it moved.
	Version uint `gorm:"not null;default:1" json:"-"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DecidedAt *time.Time `json:"decided_at"`
}

// HumanApprovals counts distinct approvers that currently stand on "approve",
// excluding the evaluator's implicit system decision.
func (c *Claim) HumanApprovals() int {
	n := 0
	for _, a := range c.Approvals {
		if a.ApproverID != SystemApprover && a.Decision == DecisionApprove {
			n++
		}
	}
	return n
}

// SetDecision records or overwrites a single approver's decision (at most one
// row per approver per claim).
func (c *Claim) SetDecision(approverID string, decision Decision, at time.Time) {
	for i := range c.Approvals {
		if c.Approvals[i].ApproverID == approverID {
			c.Approvals[i].Decision = decision
			c.Approvals[i].DecidedAt = at
			return
		}
	}
	c.Approvals = append(c.Approvals, Approval{
		ClaimID:    c.ID,
		ApproverID: approverID,
		Decision:   decision,
		DecidedAt:  at,
	})
}

type Approval struct {
	ID         uint      `gorm:"primaryKey" json:"-"`
	ClaimID    string    `gorm:"not null;uniqueIndex:idx_approvals_claim_approver,priority:1" json:"-"`
	ApproverID string    `gorm:"not null;uniqueIndex:idx_approvals_claim_approver,priority:2" json:"approver_id"`
	Decision   Decision  `gorm:"not null" json:"decision"`
	DecidedAt  time.Time `json:"decided_at"`
	CreatedAt  time.Time `json:"-"`
	UpdatedAt  time.Time `json:"-"`
}
