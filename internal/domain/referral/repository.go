package referral

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

const referralColumns = `id, referrer_user_id, referred_user_id, code, status, qualified_at, rewarded_at, created_at`

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

func (s *PostgresStore) GetCode(ctx context.Context, userID uuid.UUID) (*Code, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return getCode(ctx, s.db, `SELECT user_id, code, created_at FROM referral_codes WHERE user_id = $1`, userID)
}

func (s *PostgresStore) ListByReferrer(ctx context.Context, referrerUserID uuid.UUID) ([]Referral, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	out := make([]Referral, 0)
	err := s.db.SelectContext(ctx, &out, `SELECT `+referralColumns+`
		FROM referrals WHERE referrer_user_id = $1
		ORDER BY created_at DESC`, referrerUserID)
	if err != nil {
		return nil, fmt.Errorf("list referrals: %w", err)
	}
	return out, nil
}

type postgresTx struct {
	*credit.PostgresTx
}

func (t *postgresTx) GetCodeByUser(ctx context.Context, userID uuid.UUID) (*Code, error) {
	return getCode(ctx, t.SQL(), `SELECT user_id, code, created_at FROM referral_codes WHERE user_id = $1`, userID)
}

func (t *postgresTx) GetCodeByValue(ctx context.Context, code string) (*Code, error) {
	return getCode(ctx, t.SQL(), `SELECT user_id, code, created_at FROM referral_codes WHERE code = $1`, code)
}

func (t *postgresTx) InsertCode(ctx context.Context, c *Code) error {
	_, err := t.SQL().ExecContext(ctx, `
		INSERT INTO referral_codes (user_id, code, created_at) VALUES ($1, $2, $3)
	`, c.UserID, c.Code, c.CreatedAt)
	if database.IsUniqueViolation(err) {
		return ErrCodeTaken
	}
	if err != nil {
		return fmt.Errorf("insert referral code: %w", err)
	}
	return nil
}

func (t *postgresTx) GetByReferred(ctx context.Context, referredUserID uuid.UUID) (*Referral, error) {
	var r Referral
	err := t.SQL().GetContext(ctx, &r, `SELECT `+referralColumns+`
		FROM referrals WHERE referred_user_id = $1
		FOR UPDATE`, referredUserID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get referral: %w", err)
	}
	return &r, nil
}

func (t *postgresTx) InsertReferral(ctx context.Context, r *Referral) error {
	_, err := t.SQL().NamedExecContext(ctx, `
		INSERT INTO referrals (id, referrer_user_id, referred_user_id, code, status, created_at)
		VALUES (:id, :referrer_user_id, :referred_user_id, :code, :status, :created_at)
	`, r)
	if database.IsUniqueViolation(err) {
		return ErrAlreadyReferred
	}
	if err != nil {
		return fmt.Errorf("insert referral: %w", err)
	}
	return nil
}

func (t *postgresTx) UpdateReferral(ctx context.Context, r *Referral) error {
	_, err := t.SQL().ExecContext(ctx, `
		UPDATE referrals SET status = $2, qualified_at = $3, rewarded_at = $4
		WHERE id = $1
	`, r.ID, r.Status, r.QualifiedAt, r.RewardedAt)
	if err != nil {
		return fmt.Errorf("update referral: %w", err)
	}
	return nil
}

func getCode(ctx context.Context, q sqlx.QueryerContext, query string, arg interface{}) (*Code, error) {
	var c Code
	err := sqlx.GetContext(ctx, q, &c, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get referral code: %w", err)
	}
	return &c, nil
}
