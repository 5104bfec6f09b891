// Package memory is an in-process implementation of every domain Store. All
// state sits behind one mutex; an atomic unit works on the live state and is
// rolled back to a snapshot if it fails.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/songstudio/studio-api/internal/domain/credit"
	"github.com/songstudio/studio-api/internal/domain/payment"
	"github.com/songstudio/studio-api/internal/domain/referral"
	"github.com/songstudio/studio-api/internal/domain/song"
	"github.com/songstudio/studio-api/internal/domain/user"
)

type state struct {
	users        map[uuid.UUID]user.User
	emails       map[string]uuid.UUID
	profiles     map[uuid.UUID]credit.Profile
	ledger       []credit.LedgerEntry
	events       map[string]payment.ProcessedEvent
	transactions map[string]payment.Transaction // by session id
	codes        map[uuid.UUID]referral.Code    // by owner
	codeOwners   map[string]uuid.UUID
	referrals    map[uuid.UUID]referral.Referral // by referred user
	songs        map[uuid.UUID]song.Song
}

func newState() *state {
	return &state{
		users:        make(map[uuid.UUID]user.User),
		emails:       make(map[string]uuid.UUID),
		profiles:     make(map[uuid.UUID]credit.Profile),
		events:       make(map[string]payment.ProcessedEvent),
		transactions: make(map[string]payment.Transaction),
		codes:        make(map[uuid.UUID]referral.Code),
		codeOwners:   make(map[string]uuid.UUID),
		referrals:    make(map[uuid.UUID]referral.Referral),
		songs:        make(map[uuid.UUID]song.Song),
	}
}

// clone copies every table. Ledger entries are never mutated after insert,
// so their metadata maps are shared.
func (s *state) clone() *state {
	c := newState()
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.emails {
		c.emails[k] = v
	}
	for k, v := range s.profiles {
		c.profiles[k] = v
	}
	c.ledger = append(make([]credit.LedgerEntry, 0, len(s.ledger)), s.ledger...)
	for k, v := range s.events {
		c.events[k] = v
	}
	for k, v := range s.transactions {
		c.transactions[k] = v
	}
	for k, v := range s.codes {
		c.codes[k] = v
	}
	for k, v := range s.codeOwners {
		c.codeOwners[k] = v
	}
	for k, v := range s.referrals {
		c.referrals[k] = v
	}
	for k, v := range s.songs {
		c.songs[k] = v
	}
	return c
}

// Store holds all tables. Use the view accessors to get a domain Store.
type Store struct {
	mu  sync.Mutex
	st  *state
	now func() time.Time
}

func New() *Store {
	return &Store{st: newState(), now: time.Now}
}

// SetClock replaces the clock used for rows the store timestamps itself.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) atomic(ctx context.Context, fn func(tx *txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(&txn{st: s.st, now: s.now}); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

func (s *Store) read(fn func(st *state)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.st)
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*user.User, error) {
	var (
		out *user.User
		err error
	)
	s.read(func(st *state) {
		out, err = st.userByEmail(email)
	})
	return out, err
}

func (st *state) userByEmail(email string) (*user.User, error) {
	id, ok := st.emails[user.NormalizeEmail(email)]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	u := st.users[id]
	return &u, nil
}

// Credit returns the credit.Store view.
func (s *Store) Credit() credit.Store { return &creditView{s} }

// Payments returns the payment.Store view.
func (s *Store) Payments() payment.Store { return &paymentView{s} }

// Referrals returns the referral.Store view.
func (s *Store) Referrals() referral.Store { return &referralView{s} }

// Songs returns the song.Store view.
func (s *Store) Songs() song.Store { return &songView{s} }

type creditView struct{ *Store }

func (v *creditView) Atomic(ctx context.Context, fn func(ctx context.Context, tx credit.Tx) error) error {
	return v.atomic(ctx, func(tx *txn) error { return fn(ctx, tx) })
}

func (v *creditView) GetProfile(_ context.Context, userID uuid.UUID) (*credit.Profile, error) {
	var (
		out *credit.Profile
		err error
	)
	v.read(func(st *state) {
		p, ok := st.profiles[userID]
		if !ok {
			err = credit.ErrProfileNotFound
			return
		}
		out = &p
	})
	return out, err
}

func (v *creditView) ListLedger(_ context.Context, userID uuid.UUID, page credit.Pagination) ([]credit.LedgerEntry, error) {
	out := make([]credit.LedgerEntry, 0)
	v.read(func(st *state) {
		skipped := 0
		for i := len(st.ledger) - 1; i >= 0; i-- {
			e := st.ledger[i]
			if e.UserID != userID {
				continue
			}
			if skipped < page.Offset {
				skipped++
				continue
			}
			if page.Limit > 0 && len(out) >= page.Limit {
				break
			}
			out = append(out, e)
		}
	})
	return out, nil
}

func (v *creditView) SumLedger(_ context.Context, userID uuid.UUID) (credit.LedgerTotals, error) {
	var totals credit.LedgerTotals
	v.read(func(st *state) {
		for _, e := range st.ledger {
			if e.UserID != userID {
				continue
			}
			totals.Entries++
			totals.Sum += e.Delta
			switch c := e.Metadata["clamped"].(type) {
			case int:
				totals.Clamped += c
			case float64:
				totals.Clamped += int(c)
			}
		}
	})
	return totals, nil
}

type paymentView struct{ *Store }

func (v *paymentView) Atomic(ctx context.Context, fn func(ctx context.Context, tx payment.Tx) error) error {
	return v.atomic(ctx, func(tx *txn) error { return fn(ctx, tx) })
}

func (v *paymentView) ListTransactions(_ context.Context, userID uuid.UUID, page payment.Pagination) ([]payment.Transaction, error) {
	var all []payment.Transaction
	v.read(func(st *state) {
		for _, t := range st.transactions {
			if t.UserID == userID {
				all = append(all, t)
			}
		}
	})
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return paginate(all, page.Limit, page.Offset), nil
}

type referralView struct{ *Store }

func (v *referralView) Atomic(ctx context.Context, fn func(ctx context.Context, tx referral.Tx) error) error {
	return v.atomic(ctx, func(tx *txn) error { return fn(ctx, tx) })
}

func (v *referralView) GetCode(_ context.Context, userID uuid.UUID) (*referral.Code, error) {
	var out *referral.Code
	v.read(func(st *state) {
		if c, ok := st.codes[userID]; ok {
			out = &c
		}
	})
	return out, nil
}

func (v *referralView) ListByReferrer(_ context.Context, referrerUserID uuid.UUID) ([]referral.Referral, error) {
	out := make([]referral.Referral, 0)
	v.read(func(st *state) {
		for _, r := range st.referrals {
			if r.ReferrerUserID == referrerUserID {
				out = append(out, r)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type songView struct{ *Store }

func (v *songView) Insert(_ context.Context, s *song.Song) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.st.users[s.UserID]; !ok {
		return user.ErrUserNotFound
	}
	v.st.songs[s.ID] = *s
	return nil
}

func (v *songView) ListByUser(_ context.Context, userID uuid.UUID, page song.Pagination) ([]song.Song, error) {
	var all []song.Song
	v.read(func(st *state) {
		for _, s := range st.songs {
			if s.UserID == userID {
				all = append(all, s)
			}
		}
	})
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return paginate(all, page.Limit, page.Offset), nil
}

func (v *songView) Get(_ context.Context, userID, id uuid.UUID) (*song.Song, error) {
	var out *song.Song
	v.read(func(st *state) {
		if s, ok := st.songs[id]; ok && s.UserID == userID {
			out = &s
		}
	})
	if out == nil {
		return nil, song.ErrSongNotFound
	}
	return out, nil
}

func (v *songView) Delete(_ context.Context, userID, id uuid.UUID) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	s, ok := v.st.songs[id]
	if !ok || s.UserID != userID {
		return song.ErrSongNotFound
	}
	delete(v.st.songs, id)
	return nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
