package credit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/songstudio/studio-api/internal/domain/user"
	"github.com/songstudio/studio-api/internal/pkg/database"
)

const queryTimeout = 3 * time.Second

// PostgresStore keeps profiles and the ledger in Postgres.
type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Atomic(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return database.WithTx(ctx, s.db, func(ctx context.Context, tx *sqlx.Tx) error {
		return fn(ctx, NewTx(tx))
	})
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return user.GetByEmail(ctx, s.db, email)
}

func (s *PostgresStore) GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var p Profile
	err := s.db.GetContext(ctx, &p, `
		SELECT user_id, credits, tier, last_reset_date, created_at, updated_at
		FROM profiles WHERE user_id = $1
	`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get profile: %v", ErrInternal, err)
	}
	return &p, nil
}

func (s *PostgresStore) ListLedger(ctx context.Context, userID uuid.UUID, page Pagination) ([]LedgerEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	entries := make([]LedgerEntry, 0)
	err := s.db.SelectContext(ctx, &entries, `
		SELECT id, user_id, delta, reason, metadata, created_at
		FROM credit_ledger
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, userID, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("%w: list ledger: %v", ErrInternal, err)
	}
	return entries, nil
}

func (s *PostgresStore) SumLedger(ctx context.Context, userID uuid.UUID) (LedgerTotals, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var totals LedgerTotals
	err := s.db.GetContext(ctx, &totals, `
		SELECT COALESCE(SUM(delta), 0) AS sum,
		       COALESCE(SUM((metadata->>'clamped')::int), 0) AS clamped,
		       COUNT(*) AS entries
		FROM credit_ledger
		WHERE user_id = $1
	`, userID)
	if err != nil {
		return LedgerTotals{}, fmt.Errorf("%w: sum ledger: %v", ErrInternal, err)
	}
	return totals, nil
}

// PostgresTx implements Tx on an open sqlx transaction. Other domains embed it
// to extend a ledger unit with their own tables.
type PostgresTx struct {
	tx *sqlx.Tx
}

func NewTx(tx *sqlx.Tx) *PostgresTx {
	return &PostgresTx{tx: tx}
}

// SQL exposes the underlying transaction to embedding repositories.
func (t *PostgresTx) SQL() *sqlx.Tx {
	return t.tx
}

func (t *PostgresTx) EnsureUser(ctx context.Context, email string) (*user.User, error) {
	return user.EnsureByEmail(ctx, t.tx, email)
}

func (t *PostgresTx) LockProfile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	var p Profile
	err := t.tx.GetContext(ctx, &p, `
		SELECT user_id, credits, tier, last_reset_date, created_at, updated_at
		FROM profiles WHERE user_id = $1
		FOR UPDATE
	`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: lock profile: %v", ErrInternal, err)
	}
	return &p, nil
}

func (t *PostgresTx) InsertProfile(ctx context.Context, p *Profile) (bool, error) {
	res, err := t.tx.NamedExecContext(ctx, `
		INSERT INTO profiles (user_id, credits, tier, last_reset_date, created_at, updated_at)
		VALUES (:user_id, :credits, :tier, :last_reset_date, :created_at, :updated_at)
		ON CONFLICT (user_id) DO NOTHING
	`, p)
	if err != nil {
		return false, fmt.Errorf("%w: insert profile: %v", ErrInternal, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: rows affected", ErrInternal)
	}
	return n == 1, nil
}

func (t *PostgresTx) UpdateProfile(ctx context.Context, p *Profile) error {
	_, err := t.tx.ExecContext(ctx, `
		UPDATE profiles
		SET credits = $2, tier = $3, last_reset_date = $4, updated_at = $5
		WHERE user_id = $1
	`, p.UserID, p.Credits, p.Tier, p.LastResetDate, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%w: update profile: %v", ErrInternal, err)
	}
	return nil
}

func (t *PostgresTx) InsertLedgerEntry(ctx context.Context, e *LedgerEntry) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO credit_ledger (id, user_id, delta, reason, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, e.ID, e.UserID, e.Delta, e.Reason, e.Metadata, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: insert ledger entry: %v", ErrInternal, err)
	}
	return nil
}
