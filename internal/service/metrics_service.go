package service

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/noah-isme/simulacro-scoring/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation of scoring runs and provides lightweight snapshots.
// All methods are no-ops on a nil receiver.
type MetricsService struct {
	registry         *prometheus.Registry
	studentsTotal    prometheus.Counter
	batchesTotal     prometheus.Counter
	subjectScore     *prometheus.HistogramVec
	globalScore      prometheus.Histogram
	batchDuration    prometheus.Histogram
	normalizedInputs *prometheus.CounterVec

	studentCount       uint64
	batchCount         uint64
	normalizedCount    uint64
	batchDurationTotal uint64
}

// NewMetricsService registers the scoring collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	studentsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scoring_students_total",
		Help: "Total number of students scored",
	})

	batchesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scoring_batches_total",
		Help: "Total number of scored batches",
	})

	subjectScore := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "scoring_subject_score",
		Help:    "Distribution of 0-100 subject scores",
		Buckets: prometheus.LinearBuckets(10, 10, 10),
	}, []string{"subject"})

	globalScore := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "scoring_global_score",
		Help:    "Distribution of 0-500 global scores",
		Buckets: prometheus.LinearBuckets(50, 50, 10),
	})

	batchDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "scoring_batch_duration_seconds",
		Help:    "Duration of batch scoring runs in seconds",
		Buckets: prometheus.DefBuckets,
	})

	normalizedInputs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scoring_normalized_inputs_total",
		Help: "Raw subject results clamped into the scoring domain",
	}, []string{"subject"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(studentsTotal, batchesTotal, subjectScore, globalScore, batchDuration, normalizedInputs, goroutines)

	return &MetricsService{
		registry:         registry,
		studentsTotal:    studentsTotal,
		batchesTotal:     batchesTotal,
		subjectScore:     subjectScore,
		globalScore:      globalScore,
		batchDuration:    batchDuration,
		normalizedInputs: normalizedInputs,
	}
}

// Registry exposes the underlying registry for gathering.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveStudent records the subject and global scores of one student.
func (m *MetricsService) ObserveStudent(scores map[models.Subject]int, global int) {
	if m == nil {
		return
	}
	for subject, score := range scores {
		m.subjectScore.WithLabelValues(string(subject)).Observe(float64(score))
	}
	m.globalScore.Observe(float64(global))
	m.studentsTotal.Inc()
	atomic.AddUint64(&m.studentCount, 1)
}

// ObserveBatch records a finished batch.
func (m *MetricsService) ObserveBatch(students int, duration time.Duration) {
	if m == nil {
		return
	}
	m.batchDuration.Observe(duration.Seconds())
	m.batchesTotal.Inc()
	atomic.AddUint64(&m.batchCount, 1)
	atomic.AddUint64(&m.batchDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordNormalizedInput counts a raw result that had to be clamped.
func (m *MetricsService) RecordNormalizedInput(subject models.Subject) {
	if m == nil {
		return
	}
	m.normalizedInputs.WithLabelValues(string(subject)).Inc()
	atomic.AddUint64(&m.normalizedCount, 1)
}

// WriteTextfile dumps the registry in the node exporter textfile format.
func (m *MetricsService) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// Snapshot returns aggregated counters suitable for reports.
func (m *MetricsService) Snapshot() models.ScoringMetricsSnapshot {
	if m == nil {
		return models.ScoringMetricsSnapshot{}
	}
	batches := atomic.LoadUint64(&m.batchCount)
	duration := atomic.LoadUint64(&m.batchDurationTotal)

	var avgBatchMs float64
	if batches > 0 {
		avgBatchMs = float64(duration) / float64(batches) / float64(time.Millisecond)
	}

	return models.ScoringMetricsSnapshot{
		BatchesTotal:           batches,
		StudentsTotal:          atomic.LoadUint64(&m.studentCount),
		NormalizedInputsTotal:  atomic.LoadUint64(&m.normalizedCount),
		AverageBatchDurationMs: avgBatchMs,
		GeneratedAt:            time.Now().UTC(),
	}
}
