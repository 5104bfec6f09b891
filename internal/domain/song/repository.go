package song

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/songstudio/studio-api/internal/domain/user"
)

const queryTimeout = 3 * time.Second

const songColumns = `id, user_id, title, lyrics, genre, art_url, created_at`

type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return user.GetByEmail(ctx, s.db, email)
}

func (s *PostgresStore) Insert(ctx context.Context, song *Song) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO songs (`+songColumns+`)
		VALUES (:id, :user_id, :title, :lyrics, :genre, :art_url, :created_at)
	`, song)
	if err != nil {
		return fmt.Errorf("insert song: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID uuid.UUID, page Pagination) ([]Song, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	out := make([]Song, 0)
	err := s.db.SelectContext(ctx, &out, `SELECT `+songColumns+`
		FROM songs WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, userID, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("list songs: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Get(ctx context.Context, userID, id uuid.UUID) (*Song, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var out Song
	err := s.db.GetContext(ctx, &out, `SELECT `+songColumns+` FROM songs WHERE id = $1 AND user_id = $2`, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSongNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get song: %w", err)
	}
	return &out, nil
}

func (s *PostgresStore) Delete(ctx context.Context, userID, id uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `DELETE FROM songs WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete song: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSongNotFound
	}
	return nil
}
