package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "wellness_rewards"

// LabelUnknown is the id label for rejected requests naming an id outside the catalogs.
const LabelUnknown = "unknown"

// Outcome labels.
const (
	OutcomeGranted      = "granted"
	OutcomeAlreadyToday = "already_today"
	OutcomeRedeemed     = "redeemed"
	OutcomeUsed         = "used"
	OutcomeRejected     = "rejected"
	OutcomeStorageError = "storage_error"
)

// Recorder holds the ledger's Prometheus collectors. A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	awards      *prometheus.CounterVec
	redemptions *prometheus.CounterVec
	voucherUses *prometheus.CounterVec
	commits     *prometheus.HistogramVec
	queueDepth  prometheus.Gauge
	balance     prometheus.Gauge
}

// New creates a Recorder on its own registry, including process and Go runtime collectors.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		awards: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "awards_total",
			Help:      "Award requests by action and outcome.",
		}, []string{"action", "outcome"}),
		redemptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "redemptions_total",
			Help:      "Redemption requests by reward and outcome.",
		}, []string{"reward", "outcome"}),
		voucherUses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "vouchers",
			Name:      "use_total",
			Help:      "Voucher use requests by outcome.",
		}, []string{"outcome"}),
		commits: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "commit_duration_seconds",
			Help:      "Duration of ledger record writes.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}, []string{"success"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "queue_depth",
			Help:      "Mutations waiting for the ledger writer.",
		}),
		balance: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "coins_balance",
			Help:      "Committed coin balance.",
		}),
	}
	r.registry.MustRegister(
		r.awards,
		r.redemptions,
		r.voucherUses,
		r.commits,
		r.queueDepth,
		r.balance,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
	return r
}

// Registry exposes the underlying registry, mainly for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registered collectors in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) Award(action, outcome string) {
	if r == nil {
		return
	}
	r.awards.WithLabelValues(action, outcome).Inc()
}

func (r *Recorder) Redemption(reward, outcome string) {
	if r == nil {
		return
	}
	r.redemptions.WithLabelValues(reward, outcome).Inc()
}

func (r *Recorder) VoucherUse(outcome string) {
	if r == nil {
		return
	}
	r.voucherUses.WithLabelValues(outcome).Inc()
}

func (r *Recorder) Commit(d time.Duration, err error) {
	if r == nil {
		return
	}
	success := "true"
	if err != nil {
		success = "false"
	}
	r.commits.WithLabelValues(success).Observe(d.Seconds())
}

func (r *Recorder) QueueDepth(n int) {
	if r == nil {
		return
	}
	r.queueDepth.Set(float64(n))
}

func (r *Recorder) Balance(coins int64) {
	if r == nil {
		return
	}
	r.balance.Set(float64(coins))
}
