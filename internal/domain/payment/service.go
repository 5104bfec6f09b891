package payment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/songstudio/studio-api/internal/domain/credit"
	"github.com/songstudio/studio-api/internal/domain/user"
	"github.com/songstudio/studio-api/internal/pkg/logger"
	"github.com/songstudio/studio-api/internal/pkg/stripe"
)

// confirmEventPrefix namespaces event ids synthesized by ConfirmSession.
const confirmEventPrefix = "session:"

// Config holds Stripe webhook and redirect settings.
type Config struct {
	WebhookSecret string
	FrontendURL   string
}

type Service struct {
	store   Store
	credits *credit.Service
	gateway Gateway
	cfg     Config
	now     func() time.Time
}

func NewService(store Store, credits *credit.Service, gateway Gateway, cfg Config) *Service {
	return &Service{store: store, credits: credits, gateway: gateway, cfg: cfg, now: time.Now}
}

// ApplyCheckoutCredits credits a paid checkout at most once per event id and
// at most once per session id. Event claim, balance change, ledger entry and
// transaction record commit together.
func (s *Service) ApplyCheckoutCredits(ctx context.Context, g CheckoutGrant) (*ApplyResult, error) {
	if strings.TrimSpace(g.EventID) == "" || strings.TrimSpace(g.SessionID) == "" || g.Credits <= 0 || g.AmountCents < 0 {
		return nil, ErrInvalidGrant
	}
	email, err := user.ParseEmail(g.Email)
	if err != nil {
		return nil, err
	}
	if g.EventType == "" {
		g.EventType = stripe.EventCheckoutSessionCompleted
	}
	member := s.credits.IsMember(ctx, email)

	result := &ApplyResult{}
	err = s.store.Atomic(ctx, func(ctx context.Context, tx Tx) error {
		claimed, err := tx.ClaimEvent(ctx, ProcessedEvent{EventID: g.EventID, Type: g.EventType, CreatedAt: s.now().UTC()})
		if err != nil {
			return err
		}
		if !claimed {
			result.Reason = ReasonDuplicateEvent
			return nil
		}

		existing, err := tx.GetTransactionBySession(ctx, g.SessionID)
		if err != nil {
			return err
		}
		if existing != nil {
			result.Reason = ReasonDuplicateSession
			return nil
		}

		acct, err := s.credits.ResolveTx(ctx, tx, email, member)
		if err != nil {
			return err
		}
		err = s.credits.ApplyDeltaTx(ctx, tx, acct.Profile, g.Credits, credit.ReasonStripeCheckout, credit.Metadata{
			"event_id":     g.EventID,
			"session_id":   g.SessionID,
			"item":         g.Item,
			"amount_cents": g.AmountCents,
		})
		if err != nil {
			return err
		}

		if err := tx.InsertTransaction(ctx, &Transaction{
			ID:             uuid.New(),
			UserID:         acct.User.ID,
			SessionID:      g.SessionID,
			Item:           g.Item,
			AmountCents:    g.AmountCents,
			CreditsGranted: g.Credits,
			Status:         StatusCompleted,
			CreatedAt:      s.now().UTC(),
		}); err != nil {
			return err
		}

		result.Applied = true
		result.Credits = g.Credits
		result.Balance = acct.Profile.Credits
		return nil
	})
	if errors.Is(err, ErrDuplicateSession) {
		// A concurrent unit recorded the same session first.
		return &ApplyResult{Reason: ReasonDuplicateSession}, nil
	}
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)
	if result.Applied {
		log.Info().Str("event_id", g.EventID).Str("session_id", g.SessionID).Str("email", email).Int("credits", g.Credits).Msg("checkout credits applied")
	} else {
		log.Info().Str("event_id", g.EventID).Str("session_id", g.SessionID).Str("reason", result.Reason).Msg("checkout already applied, skipping")
	}
	return result, nil
}

// CreateCheckout starts a Stripe Checkout for a catalog package.
func (s *Service) CreateCheckout(ctx context.Context, email, item string) (*CheckoutResponse, error) {
	if s.gateway == nil {
		return nil, ErrPaymentsDisabled
	}
	email, err := user.ParseEmail(email)
	if err != nil {
		return nil, err
	}
	pkg, ok := LookupPackage(item)
	if !ok {
		return nil, ErrUnknownPackage
	}

	base := strings.TrimRight(s.cfg.FrontendURL, "/")
	sess, err := s.gateway.CreateCheckoutSession(ctx, stripe.CheckoutRequest{
		Email:       email,
		Item:        pkg.Item,
		Description: fmt.Sprintf("%s (%d credits)", pkg.Name, pkg.Credits),
		AmountCents: pkg.AmountCents,
		SuccessURL:  base + "/billing/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:   base + "/billing/cancel",
		Metadata: map[string]string{
			"email":   email,
			"item":    pkg.Item,
			"credits": strconv.Itoa(pkg.Credits),
		},
	})
	if errors.Is(err, stripe.ErrNotConfigured) {
		return nil, ErrPaymentsDisabled
	}
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}

	return &CheckoutResponse{SessionID: sess.ID, URL: sess.URL, Package: pkg}, nil
}

// HandleWebhook verifies and applies a Stripe webhook delivery. Event types
// other than a paid checkout.session.completed are acknowledged untouched.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	evt, err := stripe.ConstructEvent(payload, signature, s.cfg.WebhookSecret)
	if err != nil {
		if errors.Is(err, stripe.ErrInvalidSignature) || errors.Is(err, stripe.ErrMissingSignature) || errors.Is(err, stripe.ErrSignatureExpired) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}

	out := &WebhookResult{EventID: evt.ID, Type: evt.Type}
	if evt.Type != stripe.EventCheckoutSessionCompleted {
		logger.FromContext(ctx).Debug().Str("event_id", evt.ID).Str("type", evt.Type).Msg("ignoring stripe event")
		return out, nil
	}

	sess, err := evt.CheckoutSession()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if !sess.Paid() {
		logger.FromContext(ctx).Info().Str("event_id", evt.ID).Str("session_id", sess.ID).Str("payment_status", sess.PaymentStatus).Msg("checkout not paid yet")
		return out, nil
	}

	grant, err := grantFromSession(evt.ID, evt.Type, sess)
	if err != nil {
		return nil, err
	}
	res, err := s.ApplyCheckoutCredits(ctx, grant)
	if err != nil {
		return nil, err
	}
	out.Handled = true
	out.Result = res
	return out, nil
}

// ConfirmSession is the client-driven fallback for a webhook that has not
// arrived yet. The session guard keeps it from double-applying with the webhook.
func (s *Service) ConfirmSession(ctx context.Context, email, sessionID string) (*ApplyResult, error) {
	if s.gateway == nil {
		return nil, ErrPaymentsDisabled
	}
	email, err := user.ParseEmail(email)
	if err != nil {
		return nil, err
	}

	sess, err := s.gateway.GetCheckoutSession(ctx, sessionID)
	switch {
	case errors.Is(err, stripe.ErrNotFound):
		return nil, ErrSessionNotFound
	case errors.Is(err, stripe.ErrNotConfigured):
		return nil, ErrPaymentsDisabled
	case err != nil:
		return nil, fmt.Errorf("get checkout session: %w", err)
	}

	if user.NormalizeEmail(sess.Email()) != email {
		return nil, ErrSessionMismatch
	}
	if !sess.Paid() {
		return nil, ErrSessionNotPaid
	}

	grant, err := grantFromSession(confirmEventPrefix+sess.ID, "checkout.session.confirmed", sess)
	if err != nil {
		return nil, err
	}
	return s.ApplyCheckoutCredits(ctx, grant)
}

// ListTransactions returns the caller's purchases, newest first.
func (s *Service) ListTransactions(ctx context.Context, email string, page Pagination) ([]Transaction, error) {
	email, err := user.ParseEmail(email)
	if err != nil {
		return nil, err
	}
	if page.Limit <= 0 || page.Limit > 100 {
		page.Limit = 20
	}
	if page.Offset < 0 {
		page.Offset = 0
	}

	u, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, user.ErrUserNotFound) {
		return []Transaction{}, nil
	}
	if err != nil {
		return nil, err
	}
	return s.store.ListTransactions(ctx, u.ID, page)
}

// grantFromSession prices a session from the catalog, falling back to the
// credits recorded in its metadata for retired packages.
func grantFromSession(eventID, eventType string, sess *stripe.CheckoutSession) (CheckoutGrant, error) {
	item := sess.Metadata["item"]
	credits := 0
	amount := sess.AmountTotal
	if pkg, ok := LookupPackage(item); ok {
		credits = pkg.Credits
		if amount == 0 {
			amount = pkg.AmountCents
		}
	} else if n, err := strconv.Atoi(sess.Metadata["credits"]); err == nil {
		credits = n
	}
	if credits <= 0 {
		return CheckoutGrant{}, fmt.Errorf("%w: session %s has no credit package", ErrUnknownPackage, sess.ID)
	}

	return CheckoutGrant{
		EventID:     eventID,
		EventType:   eventType,
		SessionID:   sess.ID,
		Email:       sess.Email(),
		Credits:     credits,
		Item:        item,
		AmountCents: amount,
	}, nil
}
