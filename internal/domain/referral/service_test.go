package referral_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/songstudio/studio-api/internal/domain/credit"
	"github.com/songstudio/studio-api/internal/domain/referral"
	"github.com/songstudio/studio-api/internal/storage/memory"
)

type fixture struct {
	store   *memory.Store
	credits *credit.Service
	svc     *referral.Service
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: memory.New(),
		now:   time.Date(2026, time.May, 4, 9, 0, 0, 0, time.UTC),
	}
	f.credits = credit.NewService(f.store.Credit(), nil)
	f.credits.SetClock(func() time.Time { return f.now })
	f.svc = referral.NewService(f.store.Referrals(), f.credits)
	return f
}

func (f *fixture) profile(t *testing.T, email string) credit.Profile {
	t.Helper()
	p, err := f.credits.GetOrCreateProfile(context.Background(), email)
	if err != nil {
		t.Fatalf("profile %s: %v", email, err)
	}
	return *p
}

func TestGetOrCreateCodeIsStable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	code, err := f.svc.GetOrCreateCode(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("code: %v", err)
	}
	if !referral.ValidCode(code) {
		t.Fatalf("invalid code %q", code)
	}
	again, err := f.svc.GetOrCreateCode(ctx, "ALICE@example.com")
	if err != nil || again != code {
		t.Fatalf("expected stable code %q, got %q %v", code, again, err)
	}
}

func TestClaimErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	aliceCode, err := f.svc.GetOrCreateCode(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("code: %v", err)
	}

	if _, err := f.svc.Claim(ctx, "bob@example.com", "ZZZZZZZZ"); !errors.Is(err, referral.ErrUnknownCode) {
		t.Fatalf("expected ErrUnknownCode, got %v", err)
	}
	if _, err := f.svc.Claim(ctx, "bob@example.com", "bad"); !errors.Is(err, referral.ErrUnknownCode) {
		t.Fatalf("expected ErrUnknownCode for malformed code, got %v", err)
	}
	if _, err := f.svc.Claim(ctx, "alice@example.com", aliceCode); !errors.Is(err, referral.ErrSelfReferral) {
		t.Fatalf("expected ErrSelfReferral, got %v", err)
	}

	ref, err := f.svc.Claim(ctx, "bob@example.com", aliceCode)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if ref.Status != referral.StatusPending {
		t.Fatalf("expected pending, got %s", ref.Status)
	}
	if _, err := f.svc.Claim(ctx, "bob@example.com", aliceCode); !errors.Is(err, referral.ErrAlreadyReferred) {
		t.Fatalf("expected ErrAlreadyReferred, got %v", err)
	}

	// Alice cannot claim the code of someone she referred.
	bobCode, err := f.svc.GetOrCreateCode(ctx, "bob@example.com")
	if err != nil {
		t.Fatalf("code: %v", err)
	}
	if _, err := f.svc.Claim(ctx, "alice@example.com", bobCode); !errors.Is(err, referral.ErrCircularReferral) {
		t.Fatalf("expected ErrCircularReferral, got %v", err)
	}
}

func TestClaimWindowCloses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	code, err := f.svc.GetOrCreateCode(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("code: %v", err)
	}
	f.profile(t, "old@example.com")

	f.now = f.now.Add(referral.ClaimWindow + time.Hour)
	if _, err := f.svc.Claim(ctx, "old@example.com", code); !errors.Is(err, referral.ErrClaimWindowClosed) {
		t.Fatalf("expected ErrClaimWindowClosed, got %v", err)
	}
}

func TestQualifyAndRewardFiresOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	code, err := f.svc.GetOrCreateCode(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("code: %v", err)
	}
	ref, err := f.svc.Claim(ctx, "bob@example.com", code)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		rewarded int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.svc.QualifyAndReward(ctx, ref.ReferredUserID)
			if err != nil {
				t.Errorf("qualify: %v", err)
				return
			}
			if res.Rewarded {
				mu.Lock()
				rewarded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if rewarded != 1 {
		t.Fatalf("expected one reward, got %d", rewarded)
	}
	if got, _ := f.credits.GetCredits(ctx, "alice@example.com"); got != 25+referral.RewardReferrer {
		t.Fatalf("referrer expected %d, got %d", 25+referral.RewardReferrer, got)
	}
	if got, _ := f.credits.GetCredits(ctx, "bob@example.com"); got != 25+referral.RewardReferred {
		t.Fatalf("referred expected %d, got %d", 25+referral.RewardReferred, got)
	}

	entries, _ := f.credits.ListLedger(ctx, "bob@example.com", credit.Pagination{Limit: 10})
	if entries[0].Reason != credit.ReasonReferred || entries[0].Metadata["referral_id"] != ref.ID.String() {
		t.Fatalf("unexpected referred ledger entry %+v", entries[0])
	}

	stats, err := f.svc.Stats(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Code != code || stats.Invited != 1 || stats.Rewarded != 1 || stats.Pending != 0 || stats.CreditsEarned != referral.RewardReferrer {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestQualifyAndRewardWithoutReferralIsNoop(t *testing.T) {
	f := newFixture(t)
	p := f.profile(t, "solo@example.com")

	res, err := f.svc.QualifyAndReward(context.Background(), p.UserID)
	if err != nil || res.Rewarded {
		t.Fatalf("expected no-op, got %+v %v", res, err)
	}
	if got, _ := f.credits.GetCredits(context.Background(), "solo@example.com"); got != 25 {
		t.Fatalf("expected untouched balance, got %d", got)
	}
}

func TestStatsUnknownUser(t *testing.T) {
	f := newFixture(t)
	stats, err := f.svc.Stats(context.Background(), "ghost@example.com")
	if err != nil || stats.Invited != 0 {
		t.Fatalf("expected empty stats, got %+v %v", stats, err)
	}
}
