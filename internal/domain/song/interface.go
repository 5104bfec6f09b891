package song

import (
	"context"

	"github.com/google/uuid"

	"github.com/songstudio/studio-api/internal/domain/referral"
	"github.com/songstudio/studio-api/internal/domain/user"
)

// Store is the song persistence boundary.
type Store interface {
	GetUserByEmail(ctx context.Context, email string) (*user.User, error)
	Insert(ctx context.Context, s *Song) error
	ListByUser(ctx context.Context, userID uuid.UUID, page Pagination) ([]Song, error)
	// Get returns ErrSongNotFound unless the song exists and belongs to userID.
	Get(ctx context.Context, userID, id uuid.UUID) (*Song, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// ReferralQualifier is notified after every saved song.
type ReferralQualifier interface {
	QualifyAndReward(ctx context.Context, referredUserID uuid.UUID) (*referral.RewardResult, error)
}
