package song

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Song is a saved piece of work. Saving one is the action that qualifies a
// pending referral.
type Song struct {
	ID        uuid.UUID      `db:"id" json:"id"`
	UserID    uuid.UUID      `db:"user_id" json:"user_id"`
	Title     string         `db:"title" json:"title"`
	Lyrics    string         `db:"lyrics" json:"lyrics"`
	Genre     string         `db:"genre" json:"genre"`
	ArtURL    sql.NullString `db:"art_url" json:"-"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}

// Pagination controls simple list pagination.
type Pagination struct {
	Limit  int
	Offset int
}
