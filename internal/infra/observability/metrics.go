package observability

import (
	"time"

	"github.com/boddenberg/bank-backend-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
	"github.com/shopspring/decimal"
)

var (
	ledgerTypes = []domain.TransactionType{
		domain.TxDeposit, domain.TxWithdrawal, domain.TxLoanCredit, domain.TxLoanRepayment,
	}
	loanStatuses = []domain.LoanStatus{
		domain.LoanPending, domain.LoanApproved, domain.LoanRejected, domain.LoanPaid,
	}
	rejectionReasons = []string{"not_found", "invalid_state", "insufficient_funds", "forbidden"}
)

// Metrics holds all Prometheus metrics for the bank back-end.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	ledgerEntries   *prometheus.CounterVec
	ledgerAmount    *prometheus.CounterVec
	loanTransitions *prometheus.CounterVec
	rejections      *prometheus.CounterVec
	externalErrors  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bank_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		ledgerEntries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bank_ledger_entries_total",
				Help: "Ledger entries committed, by transaction type.",
			},
			[]string{"type"},
		),
		ledgerAmount: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bank_ledger_amount_total",
				Help: "Sum of committed ledger amounts, by transaction type.",
			},
			[]string{"type"},
		),
		loanTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bank_loan_transitions_total",
				Help: "Loan status changes, by target status.",
			},
			[]string{"to"},
		),
		rejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bank_business_rejections_total",
				Help: "Operations refused by a business rule.",
			},
			[]string{"reason"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bank_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bank_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bank_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// RecordLedgerEntry counts a committed ledger entry and its amount.
func (m *Metrics) RecordLedgerEntry(txType domain.TransactionType, amount decimal.Decimal) {
	m.ledgerEntries.WithLabelValues(string(txType)).Inc()
	m.ledgerAmount.WithLabelValues(string(txType)).Add(amount.InexactFloat64())
}

// RecordLoanTransition counts a committed loan status change.
func (m *Metrics) RecordLoanTransition(to domain.LoanStatus) {
	m.loanTransitions.WithLabelValues(string(to)).Inc()
}

// IncrRejection counts an operation refused by a business rule.
func (m *Metrics) IncrRejection(reason string) {
	m.rejections.WithLabelValues(reason).Inc()
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// Snapshot returns the current counter values for GET /api/admin/metrics.
func (m *Metrics) Snapshot() *domain.MetricsSnapshot {
	snap := &domain.MetricsSnapshot{
		LedgerEntries:   make(map[string]int64, len(ledgerTypes)),
		LedgerAmounts:   make(map[string]float64, len(ledgerTypes)),
		LoanTransitions: make(map[string]int64, len(loanStatuses)),
		Rejections:      make(map[string]int64, len(rejectionReasons)),
	}
	for _, t := range ledgerTypes {
		snap.LedgerEntries[string(t)] = int64(getCounterValue(m.ledgerEntries, string(t)))
		snap.LedgerAmounts[string(t)] = getCounterValue(m.ledgerAmount, string(t))
	}
	for _, s := range loanStatuses {
		snap.LoanTransitions[string(s)] = int64(getCounterValue(m.loanTransitions, string(s)))
	}
	for _, r := range rejectionReasons {
		snap.Rejections[r] = int64(getCounterValue(m.rejections, r))
	}
	snap.EventPublishFails = int64(getCounterValue(m.externalErrors, "events"))

	hits := getCounterValue(m.cacheHits, "dashboard")
	misses := getCounterValue(m.cacheMisses, "dashboard")
	if hits+misses > 0 {
		snap.CacheHitRate = hits / (hits + misses)
	}
	return snap
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
