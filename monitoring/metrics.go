package monitoring

import (
	"time"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "waitline_queue_depth",
			Help: "Current number of queue entries per status",
		},
		[]string{"status"},
	)

	tablesByStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "waitline_tables",
			Help: "Current number of tables per status",
		},
		[]string{"status"},
	)

	queueOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waitline_queue_operations_total",
			Help: "Total queue operations by outcome",
		},
		[]string{"operation", "status"},
	)

	estimatedWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "waitline_estimated_wait_minutes",
			Help:    "Wait estimates handed out at join time",
			Buckets: prometheus.ExponentialBuckets(5, 2, 8),
		},
	)

	historyWriteFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waitline_history_write_failures_total",
			Help: "Best-effort history writes that failed after a committed transition",
		},
		[]string{"kind"},
	)
)

type Monitor struct {
	app core.App
}

func NewMonitor(app core.App) *Monitor {
	monitor := &Monitor{app: app}

	// Start metrics collection
	go monitor.collectMetrics()

	return monitor
}

func (m *Monitor) collectMetrics() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.collectQueueMetrics()
		m.collectTableMetrics()
	}
}

func (m *Monitor) collectQueueMetrics() {
	for _, status := range []string{"waiting", "notified", "seated", "cancelled", "no_show"} {
		count, err := m.app.CountRecords("queue_entries", dbx.HashExp{"status": status})
		if err != nil {
			continue
		}
		queueDepth.WithLabelValues(status).Set(float64(count))
	}
}

func (m *Monitor) collectTableMetrics() {
	for _, status := range []string{"available", "occupied", "reserved"} {
		count, err := m.app.CountRecords("tables", dbx.HashExp{"status": status})
		if err != nil {
			continue
		}
		tablesByStatus.WithLabelValues(status).Set(float64(count))
	}
}

// TrackQueueOperation counts one engine operation outcome.
func TrackQueueOperation(operation, status string) {
	queueOperations.WithLabelValues(operation, status).Inc()
}

// TrackEstimate records a wait estimate handed out at join time.
func TrackEstimate(minutes int) {
	estimatedWait.Observe(float64(minutes))
}

// TrackHistoryWriteFailure counts a failed best-effort history write.
func TrackHistoryWriteFailure(kind string) {
	historyWriteFailures.WithLabelValues(kind).Inc()
}
