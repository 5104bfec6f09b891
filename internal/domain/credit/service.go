package credit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/songstudio/studio-api/internal/domain/user"
	"github.com/songstudio/studio-api/internal/pkg/logger"
)

const (
	defaultLedgerLimit = 20
	maxLedgerLimit     = 100
)

// Service owns every balance mutation. Other domains that must change a
// balance together with their own rows call the *Tx helpers from inside
// their store's Atomic.
type Service struct {
	store   Store
	members MembershipChecker
	now     func() time.Time
}

// NewService creates a new credit service. members may be nil, in which case
// nobody is treated as a skool member.
func NewService(store Store, members MembershipChecker) *Service {
	return &Service{store: store, members: members, now: time.Now}
}

// SetClock replaces the time source; used by tests that cross month boundaries.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Now returns the service clock in UTC.
func (s *Service) Now() time.Time {
	return s.now().UTC()
}

// IsMember consults the allowlist. Lookup failures are logged and treated as
// "not a member": tiers only move upward, so a later successful lookup still
// upgrades the profile.
func (s *Service) IsMember(ctx context.Context, email string) bool {
	if s.members == nil {
		return false
	}
	ok, err := s.members.IsMember(ctx, email)
	if err != nil {
		logger.FromContext(ctx).Warn().Err(err).Str("email", email).Msg("membership lookup failed")
		return false
	}
	return ok
}

// GetOrCreateProfile returns the profile for email, creating the user and
// profile on first touch and applying any pending tier upgrade or monthly reset.
func (s *Service) GetOrCreateProfile(ctx context.Context, email string) (*Profile, error) {
	email, err := user.ParseEmail(email)
	if err != nil {
		return nil, err
	}
	member := s.IsMember(ctx, email)

	var profile *Profile
	err = s.store.Atomic(ctx, func(ctx context.Context, tx Tx) error {
		acct, err := s.ResolveTx(ctx, tx, email, member)
		if err != nil {
			return err
		}
		profile = acct.Profile
		return nil
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// GetCredits returns the balance after applying the monthly reset if due.
func (s *Service) GetCredits(ctx context.Context, email string) (int, error) {
	p, err := s.GetOrCreateProfile(ctx, email)
	if err != nil {
		return 0, err
	}
	return p.Credits, nil
}

// HasEnoughCredits is an advisory read. Use SpendIfAvailable to charge.
func (s *Service) HasEnoughCredits(ctx context.Context, email string, amount int) (bool, error) {
	if amount <= 0 {
		return false, ErrInvalidAmount
	}
	balance, err := s.GetCredits(ctx, email)
	if err != nil {
		return false, err
	}
	return balance >= amount, nil
}

// Spend deducts amount, clamping the balance at zero. The ledger records the
// requested delta; the part the floor absorbed is kept in metadata as
// "clamped" so reconciliation can account for it.
func (s *Service) Spend(ctx context.Context, email string, amount int, reason Reason) (int, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	if err := validateReason(reason); err != nil {
		return 0, err
	}
	email, err := user.ParseEmail(email)
	if err != nil {
		return 0, err
	}
	member := s.IsMember(ctx, email)

	var balance int
	err = s.store.Atomic(ctx, func(ctx context.Context, tx Tx) error {
		acct, err := s.ResolveTx(ctx, tx, email, member)
		if err != nil {
			return err
		}
		if err := s.ApplyDeltaTx(ctx, tx, acct.Profile, -amount, reason, nil); err != nil {
			return err
		}
		balance = acct.Profile.Credits
		return nil
	})
	if err != nil {
		return 0, err
	}

	logger.FromContext(ctx).Info().Str("email", email).Int("amount", amount).Str("reason", string(reason)).Int("balance", balance).Msg("credits spent")
	return balance, nil
}

// SpendIfAvailable deducts amount only when the balance covers it, as one
// atomic check-and-spend. On ErrInsufficientCredits the returned int is the
// current balance and nothing was written.
func (s *Service) SpendIfAvailable(ctx context.Context, email string, amount int, reason Reason, meta Metadata) (int, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	if err := validateReason(reason); err != nil {
		return 0, err
	}
	email, err := user.ParseEmail(email)
	if err != nil {
		return 0, err
	}
	member := s.IsMember(ctx, email)

	var balance int
	err = s.store.Atomic(ctx, func(ctx context.Context, tx Tx) error {
		acct, err := s.ResolveTx(ctx, tx, email, member)
		if err != nil {
			return err
		}
		balance = acct.Profile.Credits
		if balance < amount {
			return ErrInsufficientCredits
		}
		if err := s.ApplyDeltaTx(ctx, tx, acct.Profile, -amount, reason, meta); err != nil {
			return err
		}
		balance = acct.Profile.Credits
		return nil
	})
	if errors.Is(err, ErrInsufficientCredits) {
		return balance, err
	}
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// Grant adds amount to the balance; used for refunds and operator grants.
func (s *Service) Grant(ctx context.Context, email string, amount int, reason Reason, meta Metadata) (int, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	if err := validateReason(reason); err != nil {
		return 0, err
	}
	email, err := user.ParseEmail(email)
	if err != nil {
		return 0, err
	}
	member := s.IsMember(ctx, email)

	var balance int
	err = s.store.Atomic(ctx, func(ctx context.Context, tx Tx) error {
		acct, err := s.ResolveTx(ctx, tx, email, member)
		if err != nil {
			return err
		}
		if err := s.ApplyDeltaTx(ctx, tx, acct.Profile, amount, reason, meta); err != nil {
			return err
		}
		balance = acct.Profile.Credits
		return nil
	})
	if err != nil {
		return 0, err
	}

	logger.FromContext(ctx).Info().Str("email", email).Int("amount", amount).Str("reason", string(reason)).Msg("credits granted")
	return balance, nil
}

// ListLedger returns the newest entries first. Unknown emails have no ledger.
func (s *Service) ListLedger(ctx context.Context, email string, page Pagination) ([]LedgerEntry, error) {
	email, err := user.ParseEmail(email)
	if err != nil {
		return nil, err
	}
	if page.Limit <= 0 {
		page.Limit = defaultLedgerLimit
	}
	if page.Limit > maxLedgerLimit {
		page.Limit = maxLedgerLimit
	}
	if page.Offset < 0 {
		page.Offset = 0
	}

	u, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, user.ErrUserNotFound) {
		return []LedgerEntry{}, nil
	}
	if err != nil {
		return nil, err
	}
	return s.store.ListLedger(ctx, u.ID, page)
}

// Reconcile replays the ledger and compares it with the stored balance.
func (s *Service) Reconcile(ctx context.Context, email string) (*Reconciliation, error) {
	email, err := user.ParseEmail(email)
	if err != nil {
		return nil, err
	}
	u, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	p, err := s.store.GetProfile(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	totals, err := s.store.SumLedger(ctx, u.ID)
	if err != nil {
		return nil, err
	}

	drift := p.Credits - (totals.Sum + totals.Clamped)
	rec := &Reconciliation{
		UserID:     u.ID,
		Email:      u.Email,
		Balance:    p.Credits,
		LedgerSum:  totals.Sum,
		Clamped:    totals.Clamped,
		Entries:    totals.Entries,
		Drift:      drift,
		Consistent: drift == 0,
	}
	if !rec.Consistent {
		logger.FromContext(ctx).Warn().Str("email", email).Int("drift", drift).Msg("ledger drift detected")
	}
	return rec, nil
}

// ResolveTx ensures the user and profile exist and brings the profile up to
// date: first creation grant, monthly reset, then skool upgrade. The returned
// profile stays locked until the unit ends.
func (s *Service) ResolveTx(ctx context.Context, tx Tx, email string, member bool) (*Account, error) {
	u, err := tx.EnsureUser(ctx, email)
	if err != nil {
		return nil, err
	}

	p, err := tx.LockProfile(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		p, err = s.createProfileTx(ctx, tx, u.ID, member)
		if err != nil {
			return nil, err
		}
		return &Account{User: u, Profile: p}, nil
	}

	if err := s.resetIfDueTx(ctx, tx, p); err != nil {
		return nil, err
	}
	if member && p.Tier != TierSkool {
		if err := s.upgradeTx(ctx, tx, p); err != nil {
			return nil, err
		}
	}
	return &Account{User: u, Profile: p}, nil
}

// LockByUserIDTx locks an existing profile by user id and applies a pending
// monthly reset. It does not create profiles.
func (s *Service) LockByUserIDTx(ctx context.Context, tx Tx, userID uuid.UUID) (*Profile, error) {
	p, err := tx.LockProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrProfileNotFound
	}
	if err := s.resetIfDueTx(ctx, tx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ApplyDeltaTx changes a locked profile's balance and appends the ledger
// entry. Negative results are clamped at zero.
func (s *Service) ApplyDeltaTx(ctx context.Context, tx Tx, p *Profile, delta int, reason Reason, meta Metadata) error {
	if delta == 0 {
		return ErrInvalidAmount
	}
	if err := validateReason(reason); err != nil {
		return err
	}

	next := p.Credits + delta
	if next < 0 {
		if meta == nil {
			meta = Metadata{}
		} else {
			meta = cloneMetadata(meta)
		}
		meta["clamped"] = -next
		next = 0
	}

	p.Credits = next
	p.UpdatedAt = s.Now()
	if err := tx.UpdateProfile(ctx, p); err != nil {
		return err
	}
	return s.appendTx(ctx, tx, p.UserID, delta, reason, meta)
}

func (s *Service) createProfileTx(ctx context.Context, tx Tx, userID uuid.UUID, member bool) (*Profile, error) {
	tier := TierPublic
	if member {
		tier = TierSkool
	}
	now := s.Now()
	p := &Profile{
		UserID:        userID,
		Credits:       tier.MonthlyAllotment(),
		Tier:          tier,
		LastResetDate: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	inserted, err := tx.InsertProfile(ctx, p)
	if err != nil {
		return nil, err
	}
	if !inserted {
		// Lost the race to a concurrent first touch; use the winner's row.
		existing, err := tx.LockProfile(ctx, userID)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, fmt.Errorf("%w: profile vanished after conflict", ErrInternal)
		}
		return existing, nil
	}

	if err := s.appendTx(ctx, tx, userID, p.Credits, ReasonInitialGrant, Metadata{"tier": string(tier)}); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) resetIfDueTx(ctx context.Context, tx Tx, p *Profile) error {
	now := s.Now()
	if sameMonth(p.LastResetDate, now) || p.LastResetDate.After(now) {
		return nil
	}

	previous := p.Credits
	p.Credits = p.Tier.MonthlyAllotment()
	p.LastResetDate = now
	p.UpdatedAt = now
	if err := tx.UpdateProfile(ctx, p); err != nil {
		return err
	}
	return s.appendTx(ctx, tx, p.UserID, p.Credits-previous, ReasonMonthlyReset, Metadata{
		"previous": previous,
		"period":   now.Format("2006-01"),
	})
}

func (s *Service) upgradeTx(ctx context.Context, tx Tx, p *Profile) error {
	previous := p.Credits
	p.Tier = TierSkool
	if floor := TierSkool.MonthlyAllotment(); p.Credits < floor {
		p.Credits = floor
	}
	p.UpdatedAt = s.Now()
	if err := tx.UpdateProfile(ctx, p); err != nil {
		return err
	}
	return s.appendTx(ctx, tx, p.UserID, p.Credits-previous, ReasonTierUpgrade, Metadata{"previous": previous})
}

func (s *Service) appendTx(ctx context.Context, tx Tx, userID uuid.UUID, delta int, reason Reason, meta Metadata) error {
	return tx.InsertLedgerEntry(ctx, &LedgerEntry{
		ID:        uuid.New(),
		UserID:    userID,
		Delta:     delta,
		Reason:    reason,
		Metadata:  meta,
		CreatedAt: s.Now(),
	})
}

func validateReason(reason Reason) error {
	r := string(reason)
	if r == "" || strings.TrimSpace(r) != r || strings.ToLower(r) != r {
		return ErrInvalidReason
	}
	return nil
}

func cloneMetadata(m Metadata) Metadata {
	out := make(Metadata, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}
