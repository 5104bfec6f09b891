package referral

import (
	"context"

	"github.com/google/uuid"

	"github.com/songstudio/studio-api/internal/domain/credit"
	"github.com/songstudio/studio-api/internal/domain/user"
)

// Tx extends a ledger unit with referral tables.
type Tx interface {
	credit.Tx

	// GetCodeByUser and GetCodeByValue return nil when absent.
	GetCodeByUser(ctx context.Context, userID uuid.UUID) (*Code, error)
	GetCodeByValue(ctx context.Context, code string) (*Code, error)
	// InsertCode returns ErrCodeTaken when the user or the code already has a row.
	InsertCode(ctx context.Context, c *Code) error

	// GetByReferred returns the referral for the invited user, locked for
	// update, or nil.
	GetByReferred(ctx context.Context, referredUserID uuid.UUID) (*Referral, error)
	// InsertReferral returns ErrAlreadyReferred on a referred user collision.
	InsertReferral(ctx context.Context, r *Referral) error
	UpdateReferral(ctx context.Context, r *Referral) error
}

// Store is the referral persistence boundary.
type Store interface {
	Atomic(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	GetUserByEmail(ctx context.Context, email string) (*user.User, error)
	GetCode(ctx context.Context, userID uuid.UUID) (*Code, error)
	ListByReferrer(ctx context.Context, referrerUserID uuid.UUID) ([]Referral, error)
}
