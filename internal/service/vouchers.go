package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/GooferByte/wellness-rewards/internal/metrics"
	"github.com/GooferByte/wellness-rewards/internal/models"
	"github.com/GooferByte/wellness-rewards/internal/pricing"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// VoucherBook owns the issued vouchers and their one-time-use lifecycle.
type VoucherBook struct {
	w       *writer
	now     func() time.Time
	newID   func(rewardID string, at time.Time) string
	logger  *logrus.Entry
	metrics *metrics.Recorder
}

// NewVoucherID derives an id from the reward and the issue instant. The random
// suffix keeps ids unique when two vouchers share a millisecond.
func NewVoucherID(rewardID string, at time.Time) string {
	return fmt.Sprintf("%s-%d-%s", rewardID, at.UnixMilli(), uuid.NewString()[:8])
}

// Issue appends a new unused voucher outside of a redemption, e.g. a free grant.
func (b *VoucherBook) Issue(ctx context.Context, rewardID, provider, title string, price pricing.Price) (models.Voucher, error) {
	if strings.TrimSpace(rewardID) == "" || strings.TrimSpace(title) == "" {
		return models.Voucher{}, fmt.Errorf("%w: reward id and title are required", ErrInvalidReward)
	}
	v, err := do(ctx, b.w, "issue", func(draft *models.Record, now time.Time) (models.Voucher, bool, error) {
		return b.issueInto(draft, rewardID, provider, title, price, now), true, nil
	})
	if err != nil {
		return models.Voucher{}, err
	}
	b.logger.WithFields(logrus.Fields{"reward": rewardID, "voucher": v.ID}).Info("voucher issued")
	return v, nil
}

func (b *VoucherBook) issueInto(draft *models.Record, rewardID, provider, title string, price pricing.Price, now time.Time) models.Voucher {
	id := b.newID(rewardID, now)
	for attempt := 1; draft.FindVoucher(id) >= 0; attempt++ {
		id = fmt.Sprintf("%s-%d", b.newID(rewardID, now), attempt)
	}
	v := models.Voucher{
		ID:           id,
		RewardID:     rewardID,
		Provider:     provider,
		Title:        title,
		PriceAtIssue: price,
		IssuedAt:     now.UTC(),
	}
	draft.Vouchers = append(draft.Vouchers, v)
	return v
}

// List returns every voucher in issue order.
func (b *VoucherBook) List() []models.Voucher {
	return copyVouchers(b.w.snapshot().Vouchers, func(models.Voucher) bool { return true })
}

// Active returns the vouchers that have not been used yet.
func (b *VoucherBook) Active() []models.Voucher {
	return copyVouchers(b.w.snapshot().Vouchers, func(v models.Voucher) bool { return !v.Used })
}

// Redeemed returns the vouchers already used at a counter.
func (b *VoucherBook) Redeemed() []models.Voucher {
	return copyVouchers(b.w.snapshot().Vouchers, func(v models.Voucher) bool { return v.Used })
}

func (b *VoucherBook) Get(id string) (models.Voucher, error) {
	rec := b.w.snapshot()
	i := rec.FindVoucher(id)
	if i < 0 {
		return models.Voucher{}, fmt.Errorf("%w: %q", ErrVoucherNotFound, id)
	}
	return copyVouchers(rec.Vouchers[i:i+1], func(models.Voucher) bool { return true })[0], nil
}

// TodayRedeems counts vouchers marked used on the current calendar date.
func (b *VoucherBook) TodayRedeems() int64 {
	return b.w.snapshot().Redeems.On(models.DayKey(b.now()))
}

// MarkUsed flips a voucher to used. Using a voucher twice is an error, not a no-op.
func (b *VoucherBook) MarkUsed(ctx context.Context, id string) (models.Voucher, error) {
	v, err := do(ctx, b.w, "mark_used", func(draft *models.Record, now time.Time) (models.Voucher, bool, error) {
		i := draft.FindVoucher(id)
		if i < 0 {
			return models.Voucher{}, false, fmt.Errorf("%w: %q", ErrVoucherNotFound, id)
		}
		v := &draft.Vouchers[i]
		if v.Used {
			return models.Voucher{}, false, fmt.Errorf("%w: %q", ErrAlreadyUsedVoucher, id)
		}
		at := now.UTC()
		v.Used = true
		v.UsedAt = &at

		day := models.DayKey(now)
		if draft.Redeems.Date != day {
			draft.Redeems = models.DailyCounter{Date: day}
		}
		draft.Redeems.Count++
		return copyVouchers(draft.Vouchers[i:i+1], func(models.Voucher) bool { return true })[0], true, nil
	})
	if err != nil {
		b.metrics.VoucherUse(outcomeOf(err))
		return models.Voucher{}, err
	}
	b.metrics.VoucherUse(metrics.OutcomeUsed)
	b.logger.WithField("voucher", id).Info("voucher used")
	return v, nil
}

func copyVouchers(src []models.Voucher, keep func(models.Voucher) bool) []models.Voucher {
	out := make([]models.Voucher, 0, len(src))
	for _, v := range src {
		if !keep(v) {
			continue
		}
		if v.UsedAt != nil {
			at := *v.UsedAt
			v.UsedAt = &at
		}
		out = append(out, v)
	}
	return out
}
