package credit

import (
	"context"

	"github.com/google/uuid"

	"github.com/songstudio/studio-api/internal/domain/user"
)

// Tx is the set of writes available inside one atomic unit. Every method is
// called with the unit's ctx and sees the unit's own uncommitted writes.
type Tx interface {
	// EnsureUser returns the user for a normalized email, creating it if needed.
	EnsureUser(ctx context.Context, email string) (*user.User, error)
	// LockProfile returns the profile row locked for update, or nil if absent.
	LockProfile(ctx context.Context, userID uuid.UUID) (*Profile, error)
	// InsertProfile reports false when a concurrent unit created it first.
	InsertProfile(ctx context.Context, p *Profile) (bool, error)
	UpdateProfile(ctx context.Context, p *Profile) error
	InsertLedgerEntry(ctx context.Context, e *LedgerEntry) error
}

// Store is the credit persistence boundary.
type Store interface {
	Atomic(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	GetUserByEmail(ctx context.Context, email string) (*user.User, error)
	GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error)
	ListLedger(ctx context.Context, userID uuid.UUID, page Pagination) ([]LedgerEntry, error)
	SumLedger(ctx context.Context, userID uuid.UUID) (LedgerTotals, error)
}

// MembershipChecker answers whether an email is on the skool allowlist.
type MembershipChecker interface {
	IsMember(ctx context.Context, email string) (bool, error)
}
