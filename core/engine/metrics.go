package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Commit retention metrics. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	safeCommitLocalCheckpoint prometheus.Gauge
	commitsRetained           prometheus.Gauge
	snapshottedCommits        prometheus.Gauge
	commitsDeleted            prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return nil
	}
	return &Metrics{
		safeCommitLocalCheckpoint: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: "esengine",
			Name:      "safe_commit_local_checkpoint",
			Help:      "Local checkpoint of the current safe commit",
		}),
		commitsRetained: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: "esengine",
			Name:      "commits_retained",
			Help:      "Number of index commits kept after the last deletion policy pass",
		}),
		snapshottedCommits: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: "esengine",
			Name:      "snapshotted_commits",
			Help:      "Number of index commits held by open snapshots",
		}),
		commitsDeleted: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "esengine",
			Name:      "commits_deleted_total",
			Help:      "Total number of index commits deleted by the deletion policy",
		}),
	}
}

func (m *Metrics) setSafeCommitLocalCheckpoint(localCheckpoint int64) {
	if m == nil {
		return
	}
	m.safeCommitLocalCheckpoint.Set(float64(localCheckpoint))
}

func (m *Metrics) setCommitsRetained(n int) {
	if m == nil {
		return
	}
	m.commitsRetained.Set(float64(n))
}

func (m *Metrics) setSnapshottedCommits(n int) {
	if m == nil {
		return
	}
	m.snapshottedCommits.Set(float64(n))
}

func (m *Metrics) addCommitsDeleted(n int) {
	if m == nil || n == 0 {
		return
	}
	m.commitsDeleted.Add(float64(n))
}
