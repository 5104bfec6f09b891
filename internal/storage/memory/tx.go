package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/songstudio/studio-api/internal/domain/account"
	"github.com/songstudio/studio-api/internal/domain/credit"
	"github.com/songstudio/studio-api/internal/domain/payment"
	"github.com/songstudio/studio-api/internal/domain/referral"
	"github.com/songstudio/studio-api/internal/domain/user"
)

// txn implements every domain Tx on the live state. The store mutex is held
// for its whole lifetime.
type txn struct {
	st  *state
	now func() time.Time
}

var (
	_ credit.Tx   = (*txn)(nil)
	_ payment.Tx  = (*txn)(nil)
	_ referral.Tx = (*txn)(nil)
	_ account.Tx  = (*txn)(nil)
)

func (t *txn) EnsureUser(_ context.Context, email string) (*user.User, error) {
	email = user.NormalizeEmail(email)
	if u, err := t.st.userByEmail(email); err == nil {
		return u, nil
	}
	u := user.User{ID: uuid.New(), Email: email, CreatedAt: t.now().UTC()}
	t.st.users[u.ID] = u
	t.st.emails[email] = u.ID
	return &u, nil
}

func (t *txn) LockProfile(_ context.Context, userID uuid.UUID) (*credit.Profile, error) {
	p, ok := t.st.profiles[userID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (t *txn) InsertProfile(_ context.Context, p *credit.Profile) (bool, error) {
	if _, ok := t.st.profiles[p.UserID]; ok {
		return false, nil
	}
	t.st.profiles[p.UserID] = *p
	return true, nil
}

func (t *txn) UpdateProfile(_ context.Context, p *credit.Profile) error {
	if _, ok := t.st.profiles[p.UserID]; !ok {
		return credit.ErrProfileNotFound
	}
	t.st.profiles[p.UserID] = *p
	return nil
}

func (t *txn) InsertLedgerEntry(_ context.Context, e *credit.LedgerEntry) error {
	t.st.ledger = append(t.st.ledger, *e)
	return nil
}

func (t *txn) ClaimEvent(_ context.Context, evt payment.ProcessedEvent) (bool, error) {
	if _, ok := t.st.events[evt.EventID]; ok {
		return false, nil
	}
	t.st.events[evt.EventID] = evt
	return true, nil
}

func (t *txn) GetTransactionBySession(_ context.Context, sessionID string) (*payment.Transaction, error) {
	tr, ok := t.st.transactions[sessionID]
	if !ok {
		return nil, nil
	}
	return &tr, nil
}

func (t *txn) InsertTransaction(_ context.Context, tr *payment.Transaction) error {
	if _, ok := t.st.transactions[tr.SessionID]; ok {
		return payment.ErrDuplicateSession
	}
	t.st.transactions[tr.SessionID] = *tr
	return nil
}

func (t *txn) GetCodeByUser(_ context.Context, userID uuid.UUID) (*referral.Code, error) {
	c, ok := t.st.codes[userID]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (t *txn) GetCodeByValue(_ context.Context, code string) (*referral.Code, error) {
	owner, ok := t.st.codeOwners[code]
	if !ok {
		return nil, nil
	}
	c := t.st.codes[owner]
	return &c, nil
}

func (t *txn) InsertCode(_ context.Context, c *referral.Code) error {
	if _, ok := t.st.codes[c.UserID]; ok {
		return referral.ErrCodeTaken
	}
	if _, ok := t.st.codeOwners[c.Code]; ok {
		return referral.ErrCodeTaken
	}
	t.st.codes[c.UserID] = *c
	t.st.codeOwners[c.Code] = c.UserID
	return nil
}

func (t *txn) GetByReferred(_ context.Context, referredUserID uuid.UUID) (*referral.Referral, error) {
	r, ok := t.st.referrals[referredUserID]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (t *txn) InsertReferral(_ context.Context, r *referral.Referral) error {
	if _, ok := t.st.referrals[r.ReferredUserID]; ok {
		return referral.ErrAlreadyReferred
	}
	t.st.referrals[r.ReferredUserID] = *r
	return nil
}

func (t *txn) UpdateReferral(_ context.Context, r *referral.Referral) error {
	if _, ok := t.st.referrals[r.ReferredUserID]; !ok {
		return referral.ErrUnknownCode
	}
	t.st.referrals[r.ReferredUserID] = *r
	return nil
}

func (t *txn) GetUserByEmail(_ context.Context, email string) (*user.User, error) {
	return t.st.userByEmail(email)
}

func (t *txn) Count(_ context.Context, userID uuid.UUID) (account.Summary, error) {
	var out account.Summary
	for _, s := range t.st.songs {
		if s.UserID == userID {
			out.Songs++
		}
	}
	for _, e := range t.st.ledger {
		if e.UserID == userID {
			out.LedgerEntries++
		}
	}
	for _, tr := range t.st.transactions {
		if tr.UserID == userID {
			out.Transactions++
		}
	}
	for _, r := range t.st.referrals {
		if r.ReferrerUserID == userID || r.ReferredUserID == userID {
			out.Referrals++
		}
	}
	return out, nil
}

func (t *txn) DeleteUser(_ context.Context, userID uuid.UUID) error {
	u, ok := t.st.users[userID]
	if !ok {
		return user.ErrUserNotFound
	}

	for id, s := range t.st.songs {
		if s.UserID == userID {
			delete(t.st.songs, id)
		}
	}
	kept := t.st.ledger[:0]
	for _, e := range t.st.ledger {
		if e.UserID != userID {
			kept = append(kept, e)
		}
	}
	t.st.ledger = kept
	for session, tr := range t.st.transactions {
		if tr.UserID == userID {
			delete(t.st.transactions, session)
		}
	}
	for referred, r := range t.st.referrals {
		if r.ReferrerUserID == userID || r.ReferredUserID == userID {
			delete(t.st.referrals, referred)
		}
	}
	if c, ok := t.st.codes[userID]; ok {
		delete(t.st.codeOwners, c.Code)
		delete(t.st.codes, userID)
	}
	delete(t.st.profiles, userID)
	delete(t.st.emails, u.Email)
	delete(t.st.users, userID)
	return nil
}
