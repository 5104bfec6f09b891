package generation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/songstudio/studio-api/internal/domain/credit"
	"github.com/songstudio/studio-api/internal/pkg/imaging"
	"github.com/songstudio/studio-api/internal/pkg/logger"
	"github.com/songstudio/studio-api/internal/pkg/storage"
)

type Service struct {
	credits *credit.Service
	model   Model
	art     storage.Storage
	images  *imaging.Processor
	costs   Costs
}

// NewService creates the generation service. art may be nil, in which case
// album art requests fail before any credit is spent.
func NewService(credits *credit.Service, model Model, art storage.Storage, images *imaging.Processor, costs Costs) *Service {
	if images == nil {
		images = imaging.NewProcessor(imaging.DefaultConfig())
	}
	return &Service{credits: credits, model: model, art: art, images: images, costs: costs}
}

// Costs returns the price list.
func (s *Service) Costs() Costs {
	return s.costs
}

// Generate charges the kind's price, calls the model and refunds the charge
// if the model or storage fails.
func (s *Service) Generate(ctx context.Context, email string, kind Kind, req Request) (*Result, error) {
	if _, err := ParseKind(string(kind)); err != nil {
		return nil, err
	}
	if kind == KindArt && s.art == nil {
		return nil, ErrArtUnavailable
	}

	var owner string
	if kind == KindArt {
		p, err := s.credits.GetOrCreateProfile(ctx, email)
		if err != nil {
			return nil, err
		}
		owner = p.UserID.String()
	}

	cost := s.costs.For(kind)
	balance, err := s.credits.SpendIfAvailable(ctx, email, cost, kind.Reason(), credit.Metadata{"kind": string(kind)})
	if errors.Is(err, credit.ErrInsufficientCredits) {
		return nil, &InsufficientCreditsError{Balance: balance, Required: cost}
	}
	if err != nil {
		return nil, err
	}

	result := &Result{Kind: kind, CreditsSpent: cost, Balance: balance}
	switch kind {
	case KindSong:
		result.Text, err = s.model.GenerateText(ctx, songPrompt(req))
	case KindSocial:
		result.Text, err = s.model.GenerateText(ctx, socialPrompt(req))
	case KindArt:
		err = s.generateArt(ctx, owner, req, result)
	}
	if err != nil {
		refunded, ok := s.refund(ctx, email, kind, cost, err, balance)
		return nil, &FailedError{Kind: kind, Balance: refunded, Refunded: ok, Err: err}
	}

	logger.FromContext(ctx).Info().Str("email", email).Str("kind", string(kind)).Int("cost", cost).Int("balance", balance).Msg("generation completed")
	return result, nil
}

func (s *Service) generateArt(ctx context.Context, owner string, req Request, out *Result) error {
	data, _, err := s.model.GenerateImage(ctx, artPrompt(req))
	if err != nil {
		return err
	}
	if _, err := storage.ValidateImage(data, storage.MaxArtSize); err != nil {
		return fmt.Errorf("model image rejected: %w", err)
	}

	img, err := s.images.Process(data)
	if err != nil {
		return err
	}

	coverKey, thumbKey := imaging.ArtPaths(owner, uuid.NewString(), storage.ExtensionForMime(img.ContentType))
	if err := s.art.Put(ctx, coverKey, bytes.NewReader(img.Cover), img.ContentType); err != nil {
		return fmt.Errorf("store cover: %w", err)
	}
	if err := s.art.Put(ctx, thumbKey, bytes.NewReader(img.Thumbnail), img.ContentType); err != nil {
		if delErr := s.art.Delete(context.WithoutCancel(ctx), coverKey); delErr != nil {
			logger.FromContext(ctx).Warn().Err(delErr).Str("key", coverKey).Msg("failed to remove orphaned cover")
		}
		return fmt.Errorf("store thumbnail: %w", err)
	}

	out.CoverURL = s.art.GetURL(coverKey)
	out.ThumbnailURL = s.art.GetURL(thumbKey)
	out.Width = img.Width
	out.Height = img.Height
	return nil
}

// refund returns the charge after a failed generation. It runs detached from
// the request context so a client disconnect does not lose the refund.
func (s *Service) refund(ctx context.Context, email string, kind Kind, cost int, cause error, balance int) (int, bool) {
	log := logger.FromContext(ctx)
	refunded, err := s.credits.Grant(context.WithoutCancel(ctx), email, cost, credit.ReasonGenerationRefund, credit.Metadata{
		"kind":  string(kind),
		"error": truncate(cause.Error(), 200),
	})
	if err != nil {
		log.Error().Err(err).Str("email", email).Str("kind", string(kind)).Int("amount", cost).Msg("generation refund failed")
		return balance, false
	}
	log.Warn().Err(cause).Str("email", email).Str("kind", string(kind)).Int("amount", cost).Msg("generation failed, credits refunded")
	return refunded, true
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
