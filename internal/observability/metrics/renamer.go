package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/ai-image-renamer/internal/core/domain"
)

// RenamerMetrics observes rename runs and archive builds.
type RenamerMetrics struct {
	service string

	itemsTotal    *prometheus.CounterVec
	itemDuration  *prometheus.HistogramVec
	runsTotal     prometheus.Counter
	runDuration   prometheus.Histogram
	archiveTotal  *prometheus.CounterVec
	archiveSize   prometheus.Histogram
	archiveImages prometheus.Histogram
}

func NewRenamerMetrics(service string, registerer prometheus.Registerer) *RenamerMetrics {
	constLabels := prometheus.Labels{"service": service}

	itemsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "items_settled_total",
			Help:      "Total batch items settled by final status.",
		},
		[]string{"service", "status"},
	)
	itemDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "item_duration_seconds",
			Help:      "Time from analyzing to settled per item.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30, 60},
		},
		[]string{"service", "status"},
	)
	runsTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "batch",
			Name:        "runs_total",
			Help:        "Total completed rename runs.",
			ConstLabels: constLabels,
		},
	)
	runDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "batch",
			Name:        "run_duration_seconds",
			Help:        "Rename run duration in seconds.",
			Buckets:     []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
			ConstLabels: constLabels,
		},
	)
	archiveTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "archive",
			Name:      "builds_total",
			Help:      "Total archive builds by outcome.",
		},
		[]string{"service", "outcome"},
	)
	archiveSize := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "archive",
			Name:        "size_bytes",
			Help:        "Size of built archives.",
			Buckets:     prometheus.ExponentialBuckets(64*1024, 4, 8),
			ConstLabels: constLabels,
		},
	)
	archiveImages := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "archive",
			Name:        "entries",
			Help:        "Number of entries per built archive.",
			Buckets:     []float64{1, 2, 5, 10, 20, 50, 100, 200},
			ConstLabels: constLabels,
		},
	)

	registerer.MustRegister(itemsTotal, itemDuration, runsTotal, runDuration, archiveTotal, archiveSize, archiveImages)

	return &RenamerMetrics{
		service:       service,
		itemsTotal:    itemsTotal,
		itemDuration:  itemDuration,
		runsTotal:     runsTotal,
		runDuration:   runDuration,
		archiveTotal:  archiveTotal,
		archiveSize:   archiveSize,
		archiveImages: archiveImages,
	}
}

func (m *RenamerMetrics) ObserveItem(status domain.ItemStatus, duration time.Duration) {
	m.itemsTotal.WithLabelValues(m.service, string(status)).Inc()
	m.itemDuration.WithLabelValues(m.service, string(status)).Observe(duration.Seconds())
}

func (m *RenamerMetrics) ObserveRun(report domain.RunReport) {
	m.runsTotal.Inc()
	m.runDuration.Observe(report.Duration.Seconds())
}

func (m *RenamerMetrics) ObserveArchive(archive *domain.Archive, err error) {
	if err != nil {
		outcome := "error"
		if domain.IsKind(err, domain.ErrNothingToArchive) {
			outcome = "empty"
		}
		m.archiveTotal.WithLabelValues(m.service, outcome).Inc()
		return
	}
	m.archiveTotal.WithLabelValues(m.service, "success").Inc()
	m.archiveSize.Observe(float64(len(archive.Data)))
	m.archiveImages.Observe(float64(len(archive.Entries)))
}
