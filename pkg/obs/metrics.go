package obs

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricPrefix = "sessions_"

var (
	registerOnce sync.Once

	RegistrationsTotal  *prometheus.CounterVec
	CancellationsTotal  *prometheus.CounterVec
	LedgerEntriesTotal  *prometheus.CounterVec
	SettlementRunsTotal prometheus.Counter
)

// InitMetrics registers the domain counters once and returns the /metrics
// handler.
func InitMetrics() http.Handler {
	registerOnce.Do(func() {
		RegistrationsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "registrations_total",
				Help: "Signups by placement (active|waitlist)",
			},
			[]string{"placement"},
		)
		CancellationsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "cancellations_total",
				Help: "Cancellations by outcome (promoted|slot_opened|waitlist)",
			},
			[]string{"outcome"},
		)
		LedgerEntriesTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ledger_entries_total",
				Help: "Wallet ledger entries by type",
			},
			[]string{"type"},
		)
		SettlementRunsTotal = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "settlement_runs_total",
				Help: "Weekly settlement runs",
			},
		)
		prometheus.MustRegister(RegistrationsTotal, CancellationsTotal, LedgerEntriesTotal, SettlementRunsTotal)
	})
	return promhttp.Handler()
}
