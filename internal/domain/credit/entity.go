package credit

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/songstudio/studio-api/internal/domain/user"
)

// Tier is the membership class that sets the monthly allotment.
type Tier string

const (
	TierPublic Tier = "public"
	TierSkool  Tier = "skool"
)

// MonthlyAllotment returns the balance a profile is reset to each UTC month.
func (t Tier) MonthlyAllotment() int {
	if t == TierSkool {
		return 100
	}
	return 25
}

// Reason tags every ledger entry.
type Reason string

const (
	ReasonInitialGrant     Reason = "initial_grant"
	ReasonMonthlyReset     Reason = "monthly_reset"
	ReasonTierUpgrade      Reason = "tier_upgrade"
	ReasonGenerateSong     Reason = "generate_song"
	ReasonGenerateArt      Reason = "generate_art"
	ReasonGenerateSocial   Reason = "generate_social"
	ReasonGenerationRefund Reason = "generation_refund"
	ReasonStripeCheckout   Reason = "stripe_checkout"
	ReasonReferrer         Reason = "referral_reward_referrer"
	ReasonReferred         Reason = "referral_reward_referred"
	ReasonAdminGrant       Reason = "admin_grant"
)

// Metadata is free-form context stored with a ledger entry as JSONB.
type Metadata map[string]any

// Value implements driver.Valuer so sqlx can serialize Metadata → JSONB.
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal ledger metadata: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner so sqlx can deserialize JSONB → Metadata.
func (m *Metadata) Scan(src interface{}) error {
	var b []byte
	switch v := src.(type) {
	case string:
		b = []byte(v)
	case []byte:
		b = v
	case nil:
		*m = nil
		return nil
	default:
		return fmt.Errorf("unexpected type for metadata: %T", src)
	}
	return json.Unmarshal(b, m)
}

// Profile holds the balance, tier and last reset of one user.
type Profile struct {
	UserID        uuid.UUID `db:"user_id" json:"user_id"`
	Credits       int       `db:"credits" json:"credits"`
	Tier          Tier      `db:"tier" json:"tier"`
	LastResetDate time.Time `db:"last_reset_date" json:"last_reset_date"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// LedgerEntry is an immutable record of one balance change.
type LedgerEntry struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Delta     int       `db:"delta" json:"delta"`
	Reason    Reason    `db:"reason" json:"reason"`
	Metadata  Metadata  `db:"metadata" json:"metadata,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Account pairs a user with its locked profile inside an atomic unit.
type Account struct {
	User    *user.User
	Profile *Profile
}

// Pagination controls simple list pagination.
type Pagination struct {
	Limit  int
	Offset int
}

// LedgerTotals aggregates a user's ledger. Clamped is the part of recorded
// spends that the zero floor kept off the balance.
type LedgerTotals struct {
	Sum     int `db:"sum"`
	Clamped int `db:"clamped"`
	Entries int `db:"entries"`
}

// Reconciliation compares the stored balance against the ledger replay.
type Reconciliation struct {
	UserID     uuid.UUID `json:"user_id"`
	Email      string    `json:"email"`
	Balance    int       `json:"balance"`
	LedgerSum  int       `json:"ledger_sum"`
	Clamped    int       `json:"clamped"`
	Entries    int       `json:"entries"`
	Drift      int       `json:"drift"`
	Consistent bool      `json:"consistent"`
}

func sameMonth(a, b time.Time) bool {
	a, b = a.UTC(), b.UTC()
	return a.Year() == b.Year() && a.Month() == b.Month()
}
