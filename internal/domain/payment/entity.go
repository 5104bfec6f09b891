package payment

import (
	"time"

	"github.com/google/uuid"
)

// Transaction statuses
const (
	StatusCompleted = "completed"
)

// Apply result reasons
const (
	ReasonDuplicateEvent   = "duplicate_event"
	ReasonDuplicateSession = "duplicate_session"
)

// ProcessedEvent marks a payment event id as applied.
type ProcessedEvent struct {
	EventID   string    `db:"event_id" json:"event_id"`
	Type      string    `db:"type" json:"type"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Transaction is the user-facing purchase record, one per checkout session.
type Transaction struct {
	ID             uuid.UUID `db:"id" json:"id"`
	UserID         uuid.UUID `db:"user_id" json:"user_id"`
	SessionID      string    `db:"session_id" json:"session_id"`
	Item           string    `db:"item" json:"item"`
	AmountCents    int       `db:"amount_cents" json:"amount_cents"`
	CreditsGranted int       `db:"credits_granted" json:"credits_granted"`
	Status         string    `db:"status" json:"status"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// CheckoutGrant is one paid checkout to be credited.
type CheckoutGrant struct {
	EventID     string
	EventType   string
	SessionID   string
	Email       string
	Credits     int
	Item        string
	AmountCents int
}

// ApplyResult reports whether a grant changed the balance. Duplicates are
// results, not errors.
type ApplyResult struct {
	Applied bool   `json:"applied"`
	Reason  string `json:"reason,omitempty"`
	Credits int    `json:"credits,omitempty"`
	Balance int    `json:"balance,omitempty"`
}

// Pagination controls simple list pagination.
type Pagination struct {
	Limit  int
	Offset int
}
