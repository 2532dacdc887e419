package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GooferByte/wellness-rewards/internal/metrics"
	"github.com/GooferByte/wellness-rewards/internal/models"
	"github.com/GooferByte/wellness-rewards/internal/repository"
	"github.com/sirupsen/logrus"
)

// mutation edits a draft copy of the committed record. It reports whether the
// draft changed; unchanged drafts are not written.
type mutation func(draft *models.Record, now time.Time) (any, bool, error)

type job struct {
	ctx   context.Context
	name  string
	apply mutation
	done  chan jobResult
}

type jobResult struct {
	value any
	err   error
}

// writer is the single goroutine allowed to change the ledger record. Jobs are
// applied in arrival order; each one's store write finishes before the next
// job starts. Readers only ever see records whose write succeeded.
type writer struct {
	store   repository.Store
	key     string
	now     func() time.Time
	logger  *logrus.Entry
	metrics *metrics.Recorder

	committed atomic.Pointer[models.Record]
	jobs      chan job
	pending   atomic.Int64

	mu      sync.RWMutex
	closing bool
	stopped chan struct{}
}

func newWriter(store repository.Store, key string, rec *models.Record, queueSize int, now func() time.Time, logger *logrus.Entry, m *metrics.Recorder) *writer {
	w := &writer{
		store:   store,
		key:     key,
		now:     now,
		logger:  logger,
		metrics: m,
		jobs:    make(chan job, queueSize),
		stopped: make(chan struct{}),
	}
	w.committed.Store(rec)
	m.Balance(rec.Ledger.CoinsTotal)
	go w.run()
	return w
}

// snapshot returns the latest committed record. Callers must not modify it.
func (w *writer) snapshot() *models.Record {
	return w.committed.Load()
}

// do enqueues fn and waits for it to be applied. ctx only bounds admission to
// the queue; once accepted the job runs to completion.
func do[T any](ctx context.Context, w *writer, name string, fn func(draft *models.Record, now time.Time) (T, bool, error)) (T, error) {
	var zero T
	j := job{
		ctx:  context.WithoutCancel(ctx),
		name: name,
		apply: func(draft *models.Record, now time.Time) (any, bool, error) {
			return fn(draft, now)
		},
		done: make(chan jobResult, 1),
	}
	if err := w.submit(ctx, j); err != nil {
		return zero, err
	}
	res := <-j.done
	if res.err != nil {
		return zero, res.err
	}
	return res.value.(T), nil
}

func (w *writer) submit(ctx context.Context, j job) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closing {
		return ErrClosed
	}
	w.metrics.QueueDepth(int(w.pending.Add(1)))
	select {
	case w.jobs <- j:
		return nil
	case <-ctx.Done():
		w.metrics.QueueDepth(int(w.pending.Add(-1)))
		return ctx.Err()
	}
}

func (w *writer) run() {
	defer close(w.stopped)
	for j := range w.jobs {
		w.metrics.QueueDepth(int(w.pending.Add(-1)))
		j.done <- w.apply(j)
	}
}

func (w *writer) apply(j job) jobResult {
	now := w.now()
	draft := w.committed.Load().Clone()
	value, changed, err := j.apply(draft, now)
	if err != nil {
		return jobResult{err: err}
	}
	if !changed {
		return jobResult{value: value}
	}

	raw, err := draft.Encode()
	if err != nil {
		return jobResult{err: fmt.Errorf("%w: %v", ErrStorageFailure, err)}
	}
	start := time.Now()
	err = w.store.Set(j.ctx, w.key, raw)
	w.metrics.Commit(time.Since(start), err)
	if err != nil {
		w.logger.WithError(err).WithField("op", j.name).Error("ledger write failed, changes discarded")
		return jobResult{err: fmt.Errorf("%w: %v", ErrStorageFailure, err)}
	}

	w.committed.Store(draft)
	w.metrics.Balance(draft.Ledger.CoinsTotal)
	w.logger.WithFields(logrus.Fields{
		"op":       j.name,
		"coins":    draft.Ledger.CoinsTotal,
		"vouchers": len(draft.Vouchers),
	}).Debug("ledger committed")
	return jobResult{value: value}
}

// close stops accepting work, drains what is queued and waits for the worker to exit.
func (w *writer) close() {
	w.mu.Lock()
	if !w.closing {
		w.closing = true
		close(w.jobs)
	}
	w.mu.Unlock()
	<-w.stopped
}
