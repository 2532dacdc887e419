package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GooferByte/wellness-rewards/internal/catalog"
	"github.com/GooferByte/wellness-rewards/internal/metrics"
	"github.com/GooferByte/wellness-rewards/internal/models"
	"github.com/GooferByte/wellness-rewards/internal/repository"
	"github.com/sirupsen/logrus"
)

// DefaultRecordKey is the store key holding the whole ledger record.
const DefaultRecordKey = "rm_record"

// Config tunes an Engine. Zero values fall back to the bundled catalogs, the
// local wall clock and DefaultRecordKey.
type Config struct {
	Key       string
	Actions   *catalog.ActionCatalog
	Rewards   *catalog.RewardCatalog
	Metrics   *metrics.Recorder
	QueueSize int
	Now       func() time.Time
	NewID     func(rewardID string, at time.Time) string
}

// Engine is the process-wide reward core. It is constructed once and shared by
// every caller; all writes go through its single writer.
type Engine struct {
	Ledger     *RewardLedger
	Vouchers   *VoucherBook
	Challenges *ChallengeTracker
	Actions    *catalog.ActionCatalog
	Rewards    *catalog.RewardCatalog

	w *writer
}

// Open loads the ledger record from store, starting from zero defaults when
// none exists yet, and starts the writer.
func Open(ctx context.Context, store repository.Store, logger *logrus.Logger, cfg Config) (*Engine, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if cfg.Key == "" {
		cfg.Key = DefaultRecordKey
	}
	if cfg.Actions == nil {
		cfg.Actions = catalog.DefaultActions()
	}
	if cfg.Rewards == nil {
		cfg.Rewards = catalog.DefaultRewards()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = NewVoucherID
	}

	rec, err := load(ctx, store, cfg.Key)
	if err != nil {
		return nil, err
	}

	w := newWriter(store, cfg.Key, rec, cfg.QueueSize, cfg.Now, logger.WithField("component", "ledger-writer"), cfg.Metrics)
	vouchers := &VoucherBook{
		w:       w,
		now:     cfg.Now,
		newID:   cfg.NewID,
		logger:  logger.WithField("component", "voucher-book"),
		metrics: cfg.Metrics,
	}
	ledger := &RewardLedger{
		w:        w,
		actions:  cfg.Actions,
		rewards:  cfg.Rewards,
		vouchers: vouchers,
		now:      cfg.Now,
		logger:   logger.WithField("component", "reward-ledger"),
		metrics:  cfg.Metrics,
	}
	challenges := &ChallengeTracker{
		w:       w,
		ledger:  ledger,
		actions: cfg.Actions,
		now:     cfg.Now,
		logger:  logger.WithField("component", "challenge-tracker"),
		metrics: cfg.Metrics,
	}

	logger.WithFields(logrus.Fields{
		"key":      cfg.Key,
		"coins":    rec.Ledger.CoinsTotal,
		"vouchers": len(rec.Vouchers),
	}).Info("reward ledger loaded")

	return &Engine{
		Ledger:     ledger,
		Vouchers:   vouchers,
		Challenges: challenges,
		Actions:    cfg.Actions,
		Rewards:    cfg.Rewards,
		w:          w,
	}, nil
}

// Close waits for queued mutations to finish and stops the writer.
func (e *Engine) Close() {
	e.w.close()
}

func load(ctx context.Context, store repository.Store, key string) (*models.Record, error) {
	raw, ok, err := store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%w: load %s: %v", ErrStorageFailure, key, err)
	}
	if !ok {
		return models.NewRecord(), nil
	}
	rec, err := models.DecodeRecord(raw)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	return rec, nil
}
