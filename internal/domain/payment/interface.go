package payment

import (
	"context"

	"github.com/google/uuid"

	"github.com/songstudio/studio-api/internal/domain/credit"
	"github.com/songstudio/studio-api/internal/domain/user"
	"github.com/songstudio/studio-api/internal/pkg/stripe"
)

// Tx extends a ledger unit with the idempotency tables.
type Tx interface {
	credit.Tx

	// ClaimEvent records the event id and reports false if it was already
	// recorded. A concurrent claim of the same id blocks until the first unit ends.
	ClaimEvent(ctx context.Context, evt ProcessedEvent) (bool, error)
	// GetTransactionBySession returns nil when the session has no transaction.
	GetTransactionBySession(ctx context.Context, sessionID string) (*Transaction, error)
	// InsertTransaction returns ErrDuplicateSession on a session id collision.
	InsertTransaction(ctx context.Context, t *Transaction) error
}

// Store is the payment persistence boundary.
type Store interface {
	Atomic(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	GetUserByEmail(ctx context.Context, email string) (*user.User, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, page Pagination) ([]Transaction, error)
}

// Gateway is the subset of the Stripe client used here.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req stripe.CheckoutRequest) (*stripe.CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, sessionID string) (*stripe.CheckoutSession, error)
}
