package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/GooferByte/wellness-rewards/internal/catalog"
	"github.com/GooferByte/wellness-rewards/internal/metrics"
	"github.com/GooferByte/wellness-rewards/internal/models"
	"github.com/sirupsen/logrus"
)

// LedgerView is the caller-facing snapshot of the balance.
type LedgerView struct {
	CoinsTotal   int64           `json:"coinsTotal"`
	TodayEarned  int64           `json:"todayEarned"`
	AwardedToday map[string]bool `json:"awardedToday"`
}

// AwardResult describes the outcome of an award call. Awarded is false when the
// action had already been rewarded today and nothing changed.
type AwardResult struct {
	ActionID string     `json:"actionId"`
	Awarded  bool       `json:"awarded"`
	Points   int64      `json:"points"`
	State    LedgerView `json:"state"`
}

// RewardLedger owns the coin balance: it grants daily action awards and debits redemptions.
type RewardLedger struct {
	w        *writer
	actions  *catalog.ActionCatalog
	rewards  *catalog.RewardCatalog
	vouchers *VoucherBook
	now      func() time.Time
	logger   *logrus.Entry
	metrics  *metrics.Recorder
}

// State returns the latest committed balance without waiting on pending mutations.
func (l *RewardLedger) State() LedgerView {
	return l.viewOf(l.w.snapshot(), models.DayKey(l.now()))
}

func (l *RewardLedger) CurrentBalance() int64 {
	return l.w.snapshot().Ledger.CoinsTotal
}

// TodayEarnedAmount returns what was earned on the current calendar date.
func (l *RewardLedger) TodayEarnedAmount() int64 {
	return l.w.snapshot().Ledger.EarnedOn(models.DayKey(l.now()))
}

func (l *RewardLedger) ActionCompletedToday(actionID string) bool {
	return l.w.snapshot().Ledger.AwardedOn(actionID, models.DayKey(l.now()))
}

// Award grants the catalogued points for actionID unless it was already awarded today.
func (l *RewardLedger) Award(ctx context.Context, actionID string) (AwardResult, error) {
	action, err := l.actions.Lookup(actionID)
	if err != nil {
		l.metrics.Award(metrics.LabelUnknown, metrics.OutcomeRejected)
		return AwardResult{}, err
	}
	return l.award(ctx, action, action.Points)
}

// AwardPoints grants an explicit amount for a catalogued action, with the same once-per-day rule.
func (l *RewardLedger) AwardPoints(ctx context.Context, actionID string, points int64) (AwardResult, error) {
	action, err := l.actions.Lookup(actionID)
	if err != nil {
		l.metrics.Award(metrics.LabelUnknown, metrics.OutcomeRejected)
		return AwardResult{}, err
	}
	if points <= 0 {
		l.metrics.Award(action.ID, metrics.OutcomeRejected)
		return AwardResult{}, fmt.Errorf("%w: points must be positive, got %d", ErrInvalidAction, points)
	}
	return l.award(ctx, action, points)
}

func (l *RewardLedger) award(ctx context.Context, action catalog.Action, points int64) (AwardResult, error) {
	res, err := do(ctx, l.w, "award", func(draft *models.Record, now time.Time) (AwardResult, bool, error) {
		day := models.DayKey(now)
		granted, err := grant(&draft.Ledger, action.ID, points, day)
		if err != nil {
			return AwardResult{}, false, err
		}
		out := AwardResult{ActionID: action.ID, Awarded: granted, State: l.viewOf(draft, day)}
		if granted {
			out.Points = points
		}
		return out, granted, nil
	})
	switch {
	case err != nil:
		l.metrics.Award(action.ID, outcomeOf(err))
		return AwardResult{}, err
	case res.Awarded:
		l.metrics.Award(action.ID, metrics.OutcomeGranted)
		l.logger.WithFields(logrus.Fields{"action": action.ID, "points": points, "coins": res.State.CoinsTotal}).Info("coins awarded")
	default:
		l.metrics.Award(action.ID, metrics.OutcomeAlreadyToday)
	}
	return res, nil
}

// Redeem debits the reward's price and issues a voucher in one committed write.
func (l *RewardLedger) Redeem(ctx context.Context, rewardID string) (models.Voucher, error) {
	reward, err := l.rewards.Lookup(rewardID)
	if err != nil {
		l.metrics.Redemption(metrics.LabelUnknown, metrics.OutcomeRejected)
		return models.Voucher{}, err
	}
	price := reward.Price.Coins()

	v, err := do(ctx, l.w, "redeem", func(draft *models.Record, now time.Time) (models.Voucher, bool, error) {
		if !reward.Price.Affordable(draft.Ledger.CoinsTotal) {
			return models.Voucher{}, false, fmt.Errorf("%w: %s costs %d, balance is %d",
				ErrInsufficientBalance, reward.ID, price, draft.Ledger.CoinsTotal)
		}
		draft.Ledger.CoinsTotal -= price
		return l.vouchers.issueInto(draft, reward.ID, reward.Provider, reward.Title, reward.Price, now), true, nil
	})
	if err != nil {
		l.metrics.Redemption(reward.ID, outcomeOf(err))
		return models.Voucher{}, err
	}
	l.metrics.Redemption(reward.ID, metrics.OutcomeRedeemed)
	l.logger.WithFields(logrus.Fields{"reward": reward.ID, "price": price, "voucher": v.ID}).Info("reward redeemed")
	return v, nil
}

func (l *RewardLedger) viewOf(rec *models.Record, day string) LedgerView {
	awarded := make(map[string]bool)
	for _, a := range l.actions.All() {
		awarded[a.ID] = rec.Ledger.AwardedOn(a.ID, day)
	}
	return LedgerView{
		CoinsTotal:   rec.Ledger.CoinsTotal,
		TodayEarned:  rec.Ledger.EarnedOn(day),
		AwardedToday: awarded,
	}
}

// grant applies a once-per-day award to the ledger state. The today-earned
// counter restarts whenever the first award of a new date lands. An award that
// would overflow either counter is refused and leaves led untouched.
func grant(led *models.LedgerState, actionID string, points int64, day string) (bool, error) {
	if led.AwardedOn(actionID, day) {
		return false, nil
	}
	earned := led.EarnedOn(day)
	if led.CoinsTotal > math.MaxInt64-points || earned > math.MaxInt64-points {
		return false, fmt.Errorf("%w: awarding %d to %s overflows the balance of %d",
			ErrInvalidAction, points, actionID, led.CoinsTotal)
	}
	if led.EarnedDate != day {
		led.EarnedDate = day
		led.TodayEarned = 0
	}
	led.CoinsTotal += points
	led.TodayEarned += points
	if led.AwardDate == nil {
		led.AwardDate = map[string]string{}
	}
	led.AwardDate[actionID] = day
	return true, nil
}

func outcomeOf(err error) string {
	if errors.Is(err, ErrStorageFailure) {
		return metrics.OutcomeStorageError
	}
	return metrics.OutcomeRejected
}
