package song

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/songstudio/studio-api/internal/domain/credit"
	"github.com/songstudio/studio-api/internal/domain/user"
	"github.com/songstudio/studio-api/internal/pkg/logger"
)

type Service struct {
	store     Store
	credits   *credit.Service
	referrals ReferralQualifier
}

// NewService creates the song service. referrals may be nil.
func NewService(store Store, credits *credit.Service, referrals ReferralQualifier) *Service {
	return &Service{store: store, credits: credits, referrals: referrals}
}

// Save stores a song for email and then qualifies the user's pending
// referral. The song is kept even if the reward fails; the next save retries it.
func (s *Service) Save(ctx context.Context, email string, req SaveRequest) (*Song, bool, error) {
	if _, err := s.credits.GetOrCreateProfile(ctx, email); err != nil {
		return nil, false, err
	}
	u, err := s.store.GetUserByEmail(ctx, user.NormalizeEmail(email))
	if err != nil {
		return nil, false, err
	}

	song := &Song{
		ID:        uuid.New(),
		UserID:    u.ID,
		Title:     strings.TrimSpace(req.Title),
		Lyrics:    req.Lyrics,
		Genre:     strings.TrimSpace(req.Genre),
		CreatedAt: s.credits.Now(),
	}
	if req.ArtURL != "" {
		song.ArtURL = sql.NullString{String: req.ArtURL, Valid: true}
	}
	if err := s.store.Insert(ctx, song); err != nil {
		return nil, false, err
	}

	rewarded := false
	if s.referrals != nil {
		res, err := s.referrals.QualifyAndReward(ctx, u.ID)
		if err != nil {
			logger.FromContext(ctx).Error().Err(err).Str("user_id", u.ID.String()).Msg("referral qualification failed")
		} else if res != nil {
			rewarded = res.Rewarded
		}
	}
	return song, rewarded, nil
}

// List returns the caller's songs, newest first.
func (s *Service) List(ctx context.Context, email string, page Pagination) ([]Song, error) {
	u, err := s.lookup(ctx, email)
	if errors.Is(err, user.ErrUserNotFound) {
		return []Song{}, nil
	}
	if err != nil {
		return nil, err
	}
	if page.Limit <= 0 || page.Limit > 100 {
		page.Limit = 20
	}
	if page.Offset < 0 {
		page.Offset = 0
	}
	return s.store.ListByUser(ctx, u.ID, page)
}

func (s *Service) Get(ctx context.Context, email string, id uuid.UUID) (*Song, error) {
	u, err := s.lookup(ctx, email)
	if errors.Is(err, user.ErrUserNotFound) {
		return nil, ErrSongNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.store.Get(ctx, u.ID, id)
}

func (s *Service) Delete(ctx context.Context, email string, id uuid.UUID) error {
	u, err := s.lookup(ctx, email)
	if errors.Is(err, user.ErrUserNotFound) {
		return ErrSongNotFound
	}
	if err != nil {
		return err
	}
	return s.store.Delete(ctx, u.ID, id)
}

func (s *Service) lookup(ctx context.Context, email string) (*user.User, error) {
	email, err := user.ParseEmail(email)
	if err != nil {
		return nil, err
	}
	return s.store.GetUserByEmail(ctx, email)
}
