package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce           sync.Once
	httpDurationHistogram  *prometheus.HistogramVec
	transactionCounter     *prometheus.CounterVec
	resolutionCounter      *prometheus.CounterVec
	sideEffectCounter      *prometheus.CounterVec
	workerRunCounter       *prometheus.CounterVec
	ledgerImbalanceCounter prometheus.Counter
	pendingEscrowGauge     prometheus.Gauge
)

// Init registers all Prometheus collectors.
func Init() {
	registerOnce.Do(func() {
		httpDurationHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"})

		transactionCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "masscoin_transactions_total",
			Help: "Ledger transactions recorded, by type",
		}, []string{"type"})

		resolutionCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "masscoin_transfer_request_resolutions_total",
			Help: "Transfer request terminal transitions, by outcome",
		}, []string{"outcome"})

		sideEffectCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "masscoin_side_effect_failures_total",
			Help: "Dropped notification/chat dispatches",
		}, []string{"kind"})

		workerRunCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_runs_total",
			Help: "Background worker run outcomes",
		}, []string{"worker", "result"})

		ledgerImbalanceCounter = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "masscoin_ledger_imbalance_total",
			Help: "Number of times the conservation check diverged",
		})

		pendingEscrowGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "masscoin_pending_escrow_micros",
			Help: "Value currently held against pending transfer requests",
		})

		prometheus.MustRegister(
			httpDurationHistogram,
			transactionCounter,
			resolutionCounter,
			sideEffectCounter,
			workerRunCounter,
			ledgerImbalanceCounter,
			pendingEscrowGauge,
		)
	})
}

func ObserveHTTP(method, path string, status int, duration time.Duration) {
	if httpDurationHistogram == nil {
		return
	}
	httpDurationHistogram.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}

func IncrementTransaction(txType string) {
	if transactionCounter == nil {
		return
	}
	transactionCounter.WithLabelValues(txType).Inc()
}

func IncrementRequestResolution(outcome string) {
	if resolutionCounter == nil {
		return
	}
	resolutionCounter.WithLabelValues(outcome).Inc()
}

func IncrementSideEffectFailure(kind string) {
	if sideEffectCounter == nil {
		return
	}
	sideEffectCounter.WithLabelValues(kind).Inc()
}

func IncrementWorkerRun(worker, result string) {
	if workerRunCounter == nil {
		return
	}
	workerRunCounter.WithLabelValues(worker, result).Inc()
}

func IncrementLedgerImbalance() {
	if ledgerImbalanceCounter == nil {
		return
	}
	ledgerImbalanceCounter.Inc()
}

func SetPendingEscrow(micros int64) {
	if pendingEscrowGauge == nil {
		return
	}
	pendingEscrowGauge.Set(float64(micros))
}
