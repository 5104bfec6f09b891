// Package account deletes a user and everything keyed to them.
package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/songstudio/studio-api/internal/domain/credit"
	"github.com/songstudio/studio-api/internal/domain/user"
	"github.com/songstudio/studio-api/internal/pkg/database"
	"github.com/songstudio/studio-api/internal/pkg/logger"
)

// Summary counts the rows removed with an account.
type Summary struct {
	UserID        uuid.UUID `json:"user_id" db:"-"`
	Songs         int       `json:"songs" db:"songs"`
	LedgerEntries int       `json:"ledger_entries" db:"ledger_entries"`
	Transactions  int       `json:"transactions" db:"transactions"`
	Referrals     int       `json:"referrals" db:"referrals"`
}

// Tx is the set of operations available inside a deletion unit.
type Tx interface {
	GetUserByEmail(ctx context.Context, email string) (*user.User, error)
	Count(ctx context.Context, userID uuid.UUID) (Summary, error)
	// DeleteUser removes the user and every dependent row.
	DeleteUser(ctx context.Context, userID uuid.UUID) error
}

type Store interface {
	Atomic(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

type Service struct {
	store   Store
	credits *credit.Service
}

func NewService(store Store, credits *credit.Service) *Service {
	return &Service{store: store, credits: credits}
}

// Me returns the caller's profile, creating it on first touch.
func (s *Service) Me(ctx context.Context, email string) (*credit.Profile, error) {
	return s.credits.GetOrCreateProfile(ctx, email)
}

// DeleteAccount removes songs, referrals, referral code, transactions, ledger,
// profile and user as one unit. It is the only path that deletes ledger rows.
func (s *Service) DeleteAccount(ctx context.Context, email string) (*Summary, error) {
	email, err := user.ParseEmail(email)
	if err != nil {
		return nil, err
	}

	var summary Summary
	err = s.store.Atomic(ctx, func(ctx context.Context, tx Tx) error {
		u, err := tx.GetUserByEmail(ctx, email)
		if err != nil {
			return err
		}
		summary, err = tx.Count(ctx, u.ID)
		if err != nil {
			return err
		}
		summary.UserID = u.ID
		return tx.DeleteUser(ctx, u.ID)
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info().
		Str("user_id", summary.UserID.String()).
		Int("songs", summary.Songs).
		Int("ledger_entries", summary.LedgerEntries).
		Int("transactions", summary.Transactions).
		Int("referrals", summary.Referrals).
		Msg("account deleted")
	return &summary, nil
}

// PostgresStore relies on ON DELETE CASCADE from users to every owned table.
type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Atomic(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return database.WithTx(ctx, s.db, func(ctx context.Context, tx *sqlx.Tx) error {
		return fn(ctx, &postgresTx{tx: tx})
	})
}

type postgresTx struct {
	tx *sqlx.Tx
}

func (t *postgresTx) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	var u user.User
	err := t.tx.GetContext(ctx, &u, `SELECT id, email, created_at FROM users WHERE email = $1 FOR UPDATE`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, user.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock user: %w", err)
	}
	return &u, nil
}

func (t *postgresTx) Count(ctx context.Context, userID uuid.UUID) (Summary, error) {
	var out Summary
	err := t.tx.GetContext(ctx, &out, `
		SELECT
			(SELECT COUNT(*) FROM songs WHERE user_id = $1) AS songs,
			(SELECT COUNT(*) FROM credit_ledger WHERE user_id = $1) AS ledger_entries,
			(SELECT COUNT(*) FROM transactions WHERE user_id = $1) AS transactions,
			(SELECT COUNT(*) FROM referrals WHERE referrer_user_id = $1 OR referred_user_id = $1) AS referrals
	`, userID)
	if err != nil {
		return Summary{}, fmt.Errorf("count account rows: %w", err)
	}
	return out, nil
}

func (t *postgresTx) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	return user.Delete(ctx, t.tx, userID)
}
