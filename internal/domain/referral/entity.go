package referral

import (
	"time"

	"github.com/google/uuid"
)

// Status of a referral. rewarded is terminal.
type Status string

const (
	StatusPending  Status = "pending"
	StatusRewarded Status = "rewarded"
)

// Reward amounts, in credits.
const (
	RewardReferrer = 40
	RewardReferred = 20
)

// ClaimWindow is how long after sign-up a user may still claim a code.
const ClaimWindow = 7 * 24 * time.Hour

// Code is a user's shareable referral code.
type Code struct {
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Code      string    `db:"code" json:"code"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Referral links an inviting user to an invited user.
type Referral struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	ReferrerUserID uuid.UUID  `db:"referrer_user_id" json:"referrer_user_id"`
	ReferredUserID uuid.UUID  `db:"referred_user_id" json:"referred_user_id"`
	Code           string     `db:"code" json:"code"`
	Status         Status     `db:"status" json:"status"`
	QualifiedAt    *time.Time `db:"qualified_at" json:"qualified_at,omitempty"`
	RewardedAt     *time.Time `db:"rewarded_at" json:"rewarded_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

// IsRewarded reports whether the reward already fired.
func (r *Referral) IsRewarded() bool {
	return r.Status == StatusRewarded
}

// Stats summarises a referrer's invitations.
type Stats struct {
	Code          string `json:"code,omitempty"`
	Invited       int    `json:"invited"`
	Pending       int    `json:"pending"`
	Rewarded      int    `json:"rewarded"`
	CreditsEarned int    `json:"credits_earned"`
}

// RewardResult reports the outcome of QualifyAndReward.
type RewardResult struct {
	Rewarded       bool      `json:"rewarded"`
	ReferralID     uuid.UUID `json:"referral_id,omitempty"`
	ReferrerUserID uuid.UUID `json:"referrer_user_id,omitempty"`
}
