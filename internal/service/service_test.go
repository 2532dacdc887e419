package service

import (
	"context"
	"errors"
	"io"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/GooferByte/wellness-rewards/internal/catalog"
	"github.com/GooferByte/wellness-rewards/internal/metrics"
	"github.com/GooferByte/wellness-rewards/internal/models"
	"github.com/GooferByte/wellness-rewards/internal/pricing"
	"github.com/GooferByte/wellness-rewards/internal/repository"
	"github.com/GooferByte/wellness-rewards/internal/repository/memory"
	"github.com/GooferByte/wellness-rewards/internal/repository/mocks"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 10, 15, 9, 0, 0, 0, time.Local)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func openEngine(t *testing.T, store repository.Store, clock *fakeClock) *Engine {
	t.Helper()
	e, err := Open(context.Background(), store, quietLogger(), Config{Now: clock.Now, Metrics: metrics.New()})
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e
}

// gatedStore blocks every Set until the test releases it.
type gatedStore struct {
	*memory.InMemoryStore
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStore) Set(ctx context.Context, key, value string) error {
	g.entered <- struct{}{}
	<-g.release
	return g.InMemoryStore.Set(ctx, key, value)
}

func TestConcreteScenario(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	e := openEngine(t, memory.New(), clock)

	assert.Equal(t, int64(0), e.Ledger.CurrentBalance())

	res, err := e.Ledger.Award(ctx, "login")
	require.NoError(t, err)
	assert.True(t, res.Awarded)
	assert.Equal(t, int64(5), e.Ledger.CurrentBalance())
	assert.Equal(t, int64(5), e.Ledger.TodayEarnedAmount())

	res, err = e.Ledger.Award(ctx, "login")
	require.NoError(t, err)
	assert.False(t, res.Awarded)
	assert.Equal(t, int64(5), res.State.CoinsTotal)

	_, err = e.Ledger.Award(ctx, "add_task")
	require.NoError(t, err)
	assert.Equal(t, int64(10), e.Ledger.CurrentBalance())

	_, err = e.Ledger.Redeem(ctx, "rec_center_day_pass")
	require.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, int64(10), e.Ledger.CurrentBalance())
	assert.Empty(t, e.Vouchers.List())

	clock.Advance(24 * time.Hour)
	_, err = e.Ledger.AwardPoints(ctx, "login", 290)
	require.NoError(t, err)
	require.Equal(t, int64(300), e.Ledger.CurrentBalance())

	v, err := e.Ledger.Redeem(ctx, "rec_center_day_pass")
	require.NoError(t, err)
	assert.Equal(t, int64(0), e.Ledger.CurrentBalance())
	assert.False(t, v.Used)
	assert.Equal(t, int64(300), v.PriceAtIssue.Coins())
	assert.Equal(t, "Rec Center", v.Provider)
	require.Len(t, e.Vouchers.Active(), 1)

	used, err := e.Vouchers.MarkUsed(ctx, v.ID)
	require.NoError(t, err)
	assert.True(t, used.Used)
	require.NotNil(t, used.UsedAt)

	_, err = e.Vouchers.MarkUsed(ctx, v.ID)
	require.ErrorIs(t, err, ErrAlreadyUsedVoucher)

	got, err := e.Vouchers.Get(v.ID)
	require.NoError(t, err)
	assert.True(t, got.Used)
	assert.Empty(t, e.Vouchers.Active())
	assert.Len(t, e.Vouchers.Redeemed(), 1)
	assert.Equal(t, int64(1), e.Vouchers.TodayRedeems())
}

func TestAwardIsIdempotentPerDay(t *testing.T) {
	for _, action := range catalog.DefaultActions().All() {
		t.Run(action.ID, func(t *testing.T) {
			ctx := context.Background()
			e := openEngine(t, memory.New(), newClock())

			_, err := e.Ledger.Award(ctx, action.ID)
			require.NoError(t, err)
			_, err = e.Ledger.Award(ctx, action.ID)
			require.NoError(t, err)

			assert.Equal(t, action.Points, e.Ledger.CurrentBalance())
			assert.True(t, e.Ledger.ActionCompletedToday(action.ID))
			assert.True(t, e.Ledger.State().AwardedToday[action.ID])
		})
	}
}

func TestAwardResetsOnNextDay(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	store := memory.New()
	e := openEngine(t, store, clock)

	_, err := e.Ledger.Award(ctx, "add_reminder")
	require.NoError(t, err)
	_, err = e.Ledger.Award(ctx, "login")
	require.NoError(t, err)
	assert.Equal(t, int64(15), e.Ledger.TodayEarnedAmount())

	clock.Advance(24 * time.Hour)
	assert.False(t, e.Ledger.ActionCompletedToday("add_reminder"))
	assert.Equal(t, int64(0), e.Ledger.TodayEarnedAmount(), "earnings belong to the previous day")

	_, err = e.Ledger.Award(ctx, "add_reminder")
	require.NoError(t, err)
	assert.Equal(t, int64(25), e.Ledger.CurrentBalance())
	assert.Equal(t, int64(10), e.Ledger.TodayEarnedAmount())

	raw, ok, err := store.Get(ctx, DefaultRecordKey)
	require.NoError(t, err)
	require.True(t, ok)
	rec, err := models.DecodeRecord(raw)
	require.NoError(t, err)
	assert.Equal(t, models.DayKey(clock.Now()), rec.Ledger.AwardDate["add_reminder"])
}

func TestAwardRefusesBalanceOverflow(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	clock := newClock()
	e := openEngine(t, store, clock)

	_, err := e.Ledger.AwardPoints(ctx, "login", math.MaxInt64)
	require.NoError(t, err)
	writes := store.Writes()

	clock.Advance(24 * time.Hour)
	_, err = e.Ledger.AwardPoints(ctx, "login", 10)
	require.ErrorIs(t, err, ErrInvalidAction)
	assert.Equal(t, int64(math.MaxInt64), e.Ledger.CurrentBalance())
	assert.False(t, e.Ledger.ActionCompletedToday("login"))
	assert.Equal(t, writes, store.Writes())

	_, err = e.Challenges.Complete(ctx, "stretch")
	require.ErrorIs(t, err, ErrInvalidAction)
	assert.Empty(t, e.Challenges.Today())

	e.Close()
	reopened, err := Open(ctx, store, quietLogger(), Config{Now: clock.Now})
	require.NoError(t, err)
	defer reopened.Close()
	assert.Equal(t, int64(math.MaxInt64), reopened.Ledger.CurrentBalance())
}

func TestAwardUnknownAction(t *testing.T) {
	store := memory.New()
	e := openEngine(t, store, newClock())

	_, err := e.Ledger.Award(context.Background(), "run_marathon")
	assert.ErrorIs(t, err, ErrInvalidAction)

	_, err = e.Ledger.AwardPoints(context.Background(), "login", 0)
	assert.ErrorIs(t, err, ErrInvalidAction)
	assert.Equal(t, 0, store.Writes())
}

func TestConcurrentAwardsApplyOnce(t *testing.T) {
	store := memory.New()
	e := openEngine(t, store, newClock())

	const n = 50
	var wg sync.WaitGroup
	granted := make(chan bool, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := e.Ledger.Award(context.Background(), "login")
			assert.NoError(t, err)
			granted <- res.Awarded
		}()
	}
	wg.Wait()
	close(granted)

	count := 0
	for g := range granted {
		if g {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.Equal(t, int64(5), e.Ledger.CurrentBalance())
	assert.Equal(t, 1, store.Writes())
}

func TestConcurrentRedeemsNeverOverdraw(t *testing.T) {
	ctx := context.Background()
	e := openEngine(t, memory.New(), newClock())
	_, err := e.Ledger.AwardPoints(ctx, "login", 250)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.Ledger.Redeem(ctx, "cafe_drip_coffee")
			if err != nil {
				assert.ErrorIs(t, err, ErrInsufficientBalance)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(10), e.Ledger.CurrentBalance())
	assert.Len(t, e.Vouchers.List(), 2)
}

func TestRedeemFailureLeavesRecordUntouched(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	e := openEngine(t, store, newClock())
	_, err := e.Ledger.Award(ctx, "add_reminder")
	require.NoError(t, err)

	before, _, err := store.Get(ctx, DefaultRecordKey)
	require.NoError(t, err)

	_, err = e.Ledger.Redeem(ctx, "library_study_room")
	require.ErrorIs(t, err, ErrInsufficientBalance)

	after, _, err := store.Get(ctx, DefaultRecordKey)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, 1, store.Writes())
	assert.Equal(t, int64(10), e.Ledger.CurrentBalance())
	assert.Empty(t, e.Vouchers.List())
}

func TestRedeemUnknownReward(t *testing.T) {
	e := openEngine(t, memory.New(), newClock())
	_, err := e.Ledger.Redeem(context.Background(), "yacht")
	assert.ErrorIs(t, err, ErrInvalidReward)
}

func TestRedeemFreeRewardWithEmptyBalance(t *testing.T) {
	e := openEngine(t, memory.New(), newClock())
	v, err := e.Ledger.Redeem(context.Background(), "island_theme_pack")
	require.NoError(t, err)
	assert.True(t, v.PriceAtIssue.IsFree())
	assert.Equal(t, int64(0), e.Ledger.CurrentBalance())
	assert.Len(t, e.Vouchers.Active(), 1)
}

func TestMarkUsedUnknownVoucher(t *testing.T) {
	e := openEngine(t, memory.New(), newClock())
	_, err := e.Vouchers.MarkUsed(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrVoucherNotFound)
	_, err = e.Vouchers.Get("nope")
	assert.ErrorIs(t, err, ErrVoucherNotFound)
}

func TestIssueKeepsOrderAndUniqueIDs(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	clock := newClock()
	e, err := Open(ctx, store, quietLogger(), Config{
		Now:   clock.Now,
		NewID: func(rewardID string, at time.Time) string { return rewardID },
	})
	require.NoError(t, err)
	defer e.Close()

	first, err := e.Vouchers.Issue(ctx, "gift", "Union Shop", "Tote bag", pricing.Free())
	require.NoError(t, err)
	second, err := e.Vouchers.Issue(ctx, "gift", "Union Shop", "Tote bag", pricing.Free())
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	list := e.Vouchers.List()
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)

	_, err = e.Vouchers.Issue(ctx, "", "Union Shop", "Tote bag", pricing.Free())
	assert.ErrorIs(t, err, ErrInvalidReward)
}

func TestNewVoucherIDDerivesFromRewardAndInstant(t *testing.T) {
	at := time.UnixMilli(1760518800000)
	id := NewVoucherID("cafe_drip_coffee", at)
	assert.Regexp(t, `^cafe_drip_coffee-1760518800000-[0-9a-f]{8}$`, id)
	assert.NotEqual(t, id, NewVoucherID("cafe_drip_coffee", at))
}

func TestPersistenceRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	clock := newClock()

	e, err := Open(ctx, store, quietLogger(), Config{Now: clock.Now})
	require.NoError(t, err)
	_, err = e.Ledger.AwardPoints(ctx, "login", 200)
	require.NoError(t, err)
	v, err := e.Ledger.Redeem(ctx, "cafe_drip_coffee")
	require.NoError(t, err)
	_, err = e.Ledger.Redeem(ctx, "island_theme_pack")
	require.NoError(t, err)
	_, err = e.Vouchers.MarkUsed(ctx, v.ID)
	require.NoError(t, err)
	_, err = e.Challenges.Complete(ctx, "breathing")
	require.NoError(t, err)

	wantState := e.Ledger.State()
	wantVouchers := e.Vouchers.List()
	wantChallenges := e.Challenges.Today()
	e.Close()

	reopened := openEngine(t, store, clock)
	assert.Equal(t, wantState, reopened.Ledger.State())
	assert.Equal(t, wantVouchers, reopened.Vouchers.List())
	assert.Equal(t, wantChallenges, reopened.Challenges.Today())
	assert.Equal(t, int64(1), reopened.Vouchers.TodayRedeems())
}

func TestOpenRejectsCorruptRecord(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.Set(ctx, DefaultRecordKey, `{"ledger":{"coinsTotal":-10}}`))

	_, err := Open(ctx, store, quietLogger(), Config{})
	assert.ErrorIs(t, err, models.ErrCorruptRecord)
}

func TestOpenLoadFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	store.EXPECT().Get(gomock.Any(), DefaultRecordKey).Return("", false, errors.New("io timeout"))

	_, err := Open(context.Background(), store, quietLogger(), Config{})
	assert.ErrorIs(t, err, ErrStorageFailure)
}

func TestStorageFailureRollsBackAward(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	gomock.InOrder(
		store.EXPECT().Get(gomock.Any(), DefaultRecordKey).Return("", false, nil),
		store.EXPECT().Set(gomock.Any(), DefaultRecordKey, gomock.Any()).Return(errors.New("disk full")),
		store.EXPECT().Set(gomock.Any(), DefaultRecordKey, gomock.Any()).Return(nil),
	)
	e := openEngine(t, store, newClock())

	_, err := e.Ledger.Award(ctx, "login")
	require.ErrorIs(t, err, ErrStorageFailure)
	assert.Equal(t, int64(0), e.Ledger.CurrentBalance())
	assert.False(t, e.Ledger.ActionCompletedToday("login"))

	res, err := e.Ledger.Award(ctx, "login")
	require.NoError(t, err)
	assert.True(t, res.Awarded, "retry after a failed write must still grant")
	assert.Equal(t, int64(5), e.Ledger.CurrentBalance())
}

func TestStorageFailureRollsBackRedeem(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)

	seed := models.NewRecord()
	seed.Ledger.CoinsTotal = 500
	raw, err := seed.Encode()
	require.NoError(t, err)

	gomock.InOrder(
		store.EXPECT().Get(gomock.Any(), DefaultRecordKey).Return(raw, true, nil),
		store.EXPECT().Set(gomock.Any(), DefaultRecordKey, gomock.Any()).Return(context.DeadlineExceeded),
	)
	e := openEngine(t, store, newClock())

	_, err = e.Ledger.Redeem(ctx, "rec_center_day_pass")
	require.ErrorIs(t, err, ErrStorageFailure)
	assert.Equal(t, int64(500), e.Ledger.CurrentBalance())
	assert.Empty(t, e.Vouchers.List())
}

func TestStorageFailureRollsBackMarkUsed(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)

	seed := models.NewRecord()
	seed.Vouchers = []models.Voucher{{ID: "v1", RewardID: "gift", Title: "Tote", PriceAtIssue: pricing.Free()}}
	raw, err := seed.Encode()
	require.NoError(t, err)

	gomock.InOrder(
		store.EXPECT().Get(gomock.Any(), DefaultRecordKey).Return(raw, true, nil),
		store.EXPECT().Set(gomock.Any(), DefaultRecordKey, gomock.Any()).Return(errors.New("read-only filesystem")),
	)
	e := openEngine(t, store, newClock())

	_, err = e.Vouchers.MarkUsed(ctx, "v1")
	require.ErrorIs(t, err, ErrStorageFailure)
	assert.Len(t, e.Vouchers.Active(), 1)
	assert.Equal(t, int64(0), e.Vouchers.TodayRedeems())
}

func TestReadsDoNotSeePendingWrites(t *testing.T) {
	gate := &gatedStore{InMemoryStore: memory.New(), entered: make(chan struct{}), release: make(chan struct{})}
	e := openEngine(t, gate, newClock())

	done := make(chan error, 1)
	go func() {
		_, err := e.Ledger.Award(context.Background(), "add_reminder")
		done <- err
	}()

	<-gate.entered
	assert.Equal(t, int64(0), e.Ledger.CurrentBalance(), "uncommitted award must stay invisible")
	assert.False(t, e.Ledger.ActionCompletedToday("add_reminder"))

	close(gate.release)
	require.NoError(t, <-done)
	assert.Equal(t, int64(10), e.Ledger.CurrentBalance())
}

func TestClosedEngineRejectsMutations(t *testing.T) {
	e, err := Open(context.Background(), memory.New(), quietLogger(), Config{})
	require.NoError(t, err)
	e.Close()
	e.Close()

	_, err = e.Ledger.Award(context.Background(), "login")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestChallengeThresholds(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	e := openEngine(t, memory.New(), clock)

	res, err := e.Challenges.Complete(ctx, "breathing")
	require.NoError(t, err)
	assert.Equal(t, []string{catalog.ActionCompleteChallenge}, res.Awarded)
	assert.Equal(t, int64(5), res.State.CoinsTotal)

	res, err = e.Challenges.Complete(ctx, "breathing")
	require.NoError(t, err)
	assert.Empty(t, res.Awarded)
	assert.Equal(t, []string{"breathing"}, res.Today)

	_, err = e.Challenges.Complete(ctx, "grounding")
	require.NoError(t, err)
	res, err = e.Challenges.Complete(ctx, "focus")
	require.NoError(t, err)
	assert.Equal(t, []string{catalog.ActionCompleteChallenges3}, res.Awarded)
	assert.Equal(t, int64(15), e.Ledger.CurrentBalance())

	res, err = e.Challenges.Complete(ctx, "stretch")
	require.NoError(t, err)
	assert.Empty(t, res.Awarded)
	assert.Equal(t, int64(15), e.Ledger.CurrentBalance())

	clock.Advance(24 * time.Hour)
	assert.Empty(t, e.Challenges.Today())
	res, err = e.Challenges.Complete(ctx, "breathing")
	require.NoError(t, err)
	assert.Equal(t, []string{"breathing"}, res.Today)
	assert.Equal(t, []string{catalog.ActionCompleteChallenge}, res.Awarded)
	assert.Equal(t, int64(20), e.Ledger.CurrentBalance())
}

func TestChallengeRequiresID(t *testing.T) {
	e := openEngine(t, memory.New(), newClock())
	_, err := e.Challenges.Complete(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrInvalidChallenge)
}
