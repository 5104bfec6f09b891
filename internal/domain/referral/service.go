package referral

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/songstudio/studio-api/internal/domain/credit"
	"github.com/songstudio/studio-api/internal/domain/user"
	"github.com/songstudio/studio-api/internal/pkg/logger"
)

const codeAttempts = 5

type Service struct {
	store   Store
	credits *credit.Service
}

func NewService(store Store, credits *credit.Service) *Service {
	return &Service{store: store, credits: credits}
}

// GetOrCreateCode returns the caller's code, allocating one on first use.
func (s *Service) GetOrCreateCode(ctx context.Context, email string) (string, error) {
	email, err := user.ParseEmail(email)
	if err != nil {
		return "", err
	}
	member := s.credits.IsMember(ctx, email)

	for attempt := 0; attempt < codeAttempts; attempt++ {
		var code string
		err := s.store.Atomic(ctx, func(ctx context.Context, tx Tx) error {
			acct, err := s.credits.ResolveTx(ctx, tx, email, member)
			if err != nil {
				return err
			}
			existing, err := tx.GetCodeByUser(ctx, acct.User.ID)
			if err != nil {
				return err
			}
			if existing != nil {
				code = existing.Code
				return nil
			}

			code, err = GenerateCode()
			if err != nil {
				return err
			}
			return tx.InsertCode(ctx, &Code{UserID: acct.User.ID, Code: code, CreatedAt: s.credits.Now()})
		})
		if errors.Is(err, ErrCodeTaken) {
			// Either the random code collided or a concurrent call created
			// this user's code; the next attempt resolves both.
			continue
		}
		if err != nil {
			return "", err
		}
		return code, nil
	}
	return "", ErrCodeExhausted
}

// Claim records a pending referral of the caller by the owner of code.
func (s *Service) Claim(ctx context.Context, email, code string) (*Referral, error) {
	email, err := user.ParseEmail(email)
	if err != nil {
		return nil, err
	}
	code = NormalizeCode(code)
	if !ValidCode(code) {
		return nil, ErrUnknownCode
	}
	member := s.credits.IsMember(ctx, email)

	var created *Referral
	err = s.store.Atomic(ctx, func(ctx context.Context, tx Tx) error {
		acct, err := s.credits.ResolveTx(ctx, tx, email, member)
		if err != nil {
			return err
		}
		owner, err := tx.GetCodeByValue(ctx, code)
		if err != nil {
			return err
		}
		if owner == nil {
			return ErrUnknownCode
		}
		if owner.UserID == acct.User.ID {
			return ErrSelfReferral
		}

		existing, err := tx.GetByReferred(ctx, acct.User.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrAlreadyReferred
		}
		if s.credits.Now().Sub(acct.Profile.CreatedAt) > ClaimWindow {
			return ErrClaimWindowClosed
		}

		upstream, err := tx.GetByReferred(ctx, owner.UserID)
		if err != nil {
			return err
		}
		if upstream != nil && upstream.ReferrerUserID == acct.User.ID {
			return ErrCircularReferral
		}

		created = &Referral{
			ID:             uuid.New(),
			ReferrerUserID: owner.UserID,
			ReferredUserID: acct.User.ID,
			Code:           code,
			Status:         StatusPending,
			CreatedAt:      s.credits.Now(),
		}
		return tx.InsertReferral(ctx, created)
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info().Str("email", email).Str("code", code).Str("referral_id", created.ID.String()).Msg("referral claimed")
	return created, nil
}

// QualifyAndReward pays both sides of a pending referral of referredUserID.
// It is a no-op when there is no referral or it was already rewarded, so it
// is safe to call on every qualifying action.
func (s *Service) QualifyAndReward(ctx context.Context, referredUserID uuid.UUID) (*RewardResult, error) {
	result := &RewardResult{}
	err := s.store.Atomic(ctx, func(ctx context.Context, tx Tx) error {
		ref, err := tx.GetByReferred(ctx, referredUserID)
		if err != nil {
			return err
		}
		if ref == nil || ref.IsRewarded() {
			return nil
		}

		// Lock both profiles in a fixed order so concurrent rewards that
		// share a user cannot deadlock.
		first, second := ref.ReferrerUserID, ref.ReferredUserID
		if second.String() < first.String() {
			first, second = second, first
		}
		profiles := make(map[uuid.UUID]*credit.Profile, 2)
		for _, id := range []uuid.UUID{first, second} {
			p, err := s.credits.LockByUserIDTx(ctx, tx, id)
			if err != nil {
				return err
			}
			profiles[id] = p
		}

		meta := credit.Metadata{"referral_id": ref.ID.String()}
		if err := s.credits.ApplyDeltaTx(ctx, tx, profiles[ref.ReferrerUserID], RewardReferrer, credit.ReasonReferrer, meta); err != nil {
			return err
		}
		if err := s.credits.ApplyDeltaTx(ctx, tx, profiles[ref.ReferredUserID], RewardReferred, credit.ReasonReferred, meta); err != nil {
			return err
		}

		now := s.credits.Now()
		ref.Status = StatusRewarded
		ref.QualifiedAt = &now
		ref.RewardedAt = &now
		if err := tx.UpdateReferral(ctx, ref); err != nil {
			return err
		}

		result.Rewarded = true
		result.ReferralID = ref.ID
		result.ReferrerUserID = ref.ReferrerUserID
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Rewarded {
		logger.FromContext(ctx).Info().Str("referral_id", result.ReferralID.String()).Str("referred_user_id", referredUserID.String()).Msg("referral rewarded")
	}
	return result, nil
}

// Stats summarises the caller's invitations.
func (s *Service) Stats(ctx context.Context, email string) (*Stats, error) {
	email, err := user.ParseEmail(email)
	if err != nil {
		return nil, err
	}
	u, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, user.ErrUserNotFound) {
		return &Stats{}, nil
	}
	if err != nil {
		return nil, err
	}

	stats := &Stats{}
	code, err := s.store.GetCode(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	if code != nil {
		stats.Code = code.Code
	}

	refs, err := s.store.ListByReferrer(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	for _, r := range refs {
		stats.Invited++
		if r.IsRewarded() {
			stats.Rewarded++
			stats.CreditsEarned += RewardReferrer
		} else {
			stats.Pending++
		}
	}
	return stats, nil
}
