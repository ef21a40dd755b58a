package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	ProvenanceCreated prometheus.Counter
	ProvenanceDeleted prometheus.Counter
	FragmentsIngested prometheus.Counter

	ScansRun          prometheus.Counter
	AnomaliesUpserted prometheus.Counter
	RuleFailures      *prometheus.CounterVec
	ScanDuration      prometheus.Histogram
	SnapshotLatency   *prometheus.HistogramVec

	LockedWriteRejections *prometheus.CounterVec

	HTTPDuration *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		ProvenanceCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "carbonledger_provenance_records_created_total",
			Help: "Total number of field provenance records created.",
		}),
		ProvenanceDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "carbonledger_provenance_records_deleted_total",
			Help: "Total number of field provenance records hard-deleted.",
		}),
		FragmentsIngested: promauto.NewCounter(prometheus.CounterOpts{
			Name: "carbonledger_fragments_ingested_total",
			Help: "Total number of evidence fragments accepted from extraction.",
		}),
		ScansRun: promauto.NewCounter(prometheus.CounterOpts{
			Name: "carbonledger_anomaly_scans_total",
			Help: "Total number of anomaly scans executed.",
		}),
		AnomaliesUpserted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "carbonledger_anomaly_records_upserted_total",
			Help: "Total number of anomaly records inserted or refreshed by scans.",
		}),
		RuleFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "carbonledger_anomaly_rule_failures_total",
			Help: "Rule evaluations that errored or panicked, by rule.",
		}, []string{"rule_id"}),
		ScanDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "carbonledger_anomaly_scan_duration_seconds",
			Help:    "Wall-clock duration of anomaly scans.",
			Buckets: prometheus.DefBuckets,
		}),
		SnapshotLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "carbonledger_scan_snapshot_source_seconds",
			Help:    "Latency of each snapshot source gathered before a scan.",
			Buckets: prometheus.DefBuckets,
		}, []string{"source"}),
		LockedWriteRejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "carbonledger_locked_write_rejections_total",
			Help: "Mutations rejected because the reporting period is locked.",
		}, []string{"operation"}),
		HTTPDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "carbonledger_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status class.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}

// ObserveSnapshotLatency records the time taken to gather one snapshot source.
func (m *Metrics) ObserveSnapshotLatency(source string, d time.Duration) {
	if m == nil {
		return
	}
	m.SnapshotLatency.WithLabelValues(source).Observe(d.Seconds())
}

// IncRuleFailure counts a failed rule evaluation.
func (m *Metrics) IncRuleFailure(ruleID string) {
	if m == nil {
		return
	}
	m.RuleFailures.WithLabelValues(ruleID).Inc()
}

// IncLockedRejection counts a write denied by the period lock.
func (m *Metrics) IncLockedRejection(operation string) {
	if m == nil {
		return
	}
	m.LockedWriteRejections.WithLabelValues(operation).Inc()
}
