package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/songstudio/studio-api/internal/domain/credit"
	"github.com/songstudio/studio-api/internal/domain/user"
	"github.com/songstudio/studio-api/internal/pkg/database"
)

const queryTimeout = 3 * time.Second

// PostgresStore keeps processed events and transactions next to the ledger.
type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Atomic(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return database.WithTx(ctx, s.db, func(ctx context.Context, tx *sqlx.Tx) error {
		return fn(ctx, &postgresTx{PostgresTx: credit.NewTx(tx)})
	})
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return user.GetByEmail(ctx, s.db, email)
}

func (s *PostgresStore) ListTransactions(ctx context.Context, userID uuid.UUID, page Pagination) ([]Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	out := make([]Transaction, 0)
	err := s.db.SelectContext(ctx, &out, `
		SELECT id, user_id, session_id, item, amount_cents, credits_granted, status, created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return out, nil
}

type postgresTx struct {
	*credit.PostgresTx
}

func (t *postgresTx) ClaimEvent(ctx context.Context, evt ProcessedEvent) (bool, error) {
	res, err := t.SQL().ExecContext(ctx, `
		INSERT INTO processed_payment_events (event_id, type, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (event_id) DO NOTHING
	`, evt.EventID, evt.Type, evt.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("claim payment event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim payment event: %w", err)
	}
	return n == 1, nil
}

func (t *postgresTx) GetTransactionBySession(ctx context.Context, sessionID string) (*Transaction, error) {
	var out Transaction
	err := t.SQL().GetContext(ctx, &out, `
		SELECT id, user_id, session_id, item, amount_cents, credits_granted, status, created_at
		FROM transactions WHERE session_id = $1
	`, sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction by session: %w", err)
	}
	return &out, nil
}

func (t *postgresTx) InsertTransaction(ctx context.Context, tr *Transaction) error {
	_, err := t.SQL().NamedExecContext(ctx, `
		INSERT INTO transactions (id, user_id, session_id, item, amount_cents, credits_granted, status, created_at)
		VALUES (:id, :user_id, :session_id, :item, :amount_cents, :credits_granted, :status, :created_at)
	`, tr)
	if database.IsUniqueViolation(err) {
		return ErrDuplicateSession
	}
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}
