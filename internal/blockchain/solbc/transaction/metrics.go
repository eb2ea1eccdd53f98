// internal/blockchain/solbc/transaction/metrics.go
package transaction

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	solrpc "github.com/rovshanmuradov/solana-sender/internal/blockchain/solbc/rpc"
)

const metricsNamespace = "solana_sender"

type Metrics struct {
	submissions       *prometheus.CounterVec
	polls             prometheus.Counter
	outcomes          *prometheus.CounterVec
	priorityFee       prometheus.Histogram
	durationHistogram prometheus.Histogram
}

// NewMetrics создает коллекторы и регистрирует их в reg. reg == nil отключает регистрацию.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "submissions_total",
			Help:      "Total number of transaction submissions by channel and result",
		}, []string{"channel", "result"}),
		polls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "status_polls_total",
			Help:      "Total number of signature status polls",
		}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "outcomes_total",
			Help:      "Total number of SendAndConfirm calls by terminal outcome",
		}, []string{"outcome"}),
		priorityFee: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "priority_fee_micro_lamports",
			Help:      "Compute unit price used for submitted transactions",
			Buckets:   prometheus.ExponentialBuckets(1_000, 4, 10),
		}),
		durationHistogram: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "duration_seconds",
			Help:      "SendAndConfirm duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
	}

	if reg != nil {
		m.submissions = register(reg, m.submissions)
		m.polls = register(reg, m.polls)
		m.outcomes = register(reg, m.outcomes)
		m.priorityFee = register(reg, m.priorityFee)
		m.durationHistogram = register(reg, m.durationHistogram)
	}
	return m
}

// register повторно использует уже зарегистрированный коллектор с тем же описанием.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// TrackSubmission считает отправку: result "ok" либо класс ошибки (retryable, critical, unknown).
func (tm *Metrics) TrackSubmission(channel Channel, class solrpc.Class) {
	result := "ok"
	if class != solrpc.ClassNone {
		result = string(class)
	}
	tm.submissions.WithLabelValues(channel.String(), result).Inc()
}

func (tm *Metrics) TrackPolls(n int) {
	tm.polls.Add(float64(n))
}

func (tm *Metrics) TrackFee(microLamports uint64) {
	tm.priorityFee.Observe(float64(microLamports))
}

func (tm *Metrics) TrackOutcome(outcome Outcome, start time.Time) {
	tm.outcomes.WithLabelValues(outcome.String()).Inc()
	tm.durationHistogram.Observe(time.Since(start).Seconds())
}
