package service

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/simulacro-scoring/internal/models"
)

func TestMetricsServiceObserve(t *testing.T) {
	m := NewMetricsService()
	m.ObserveStudent(map[models.Subject]int{models.SubjectMath: 80, models.SubjectEnglish: 40}, 250)
	m.ObserveStudent(map[models.Subject]int{models.SubjectMath: 60}, 180)
	m.ObserveBatch(2, 40*time.Millisecond)
	m.RecordNormalizedInput(models.SubjectEnglish)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.studentsTotal))
	assert.Equal(t, 2, testutil.CollectAndCount(m.subjectScore))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.normalizedInputs.WithLabelValues("english")))

	snap := m.Snapshot()
	assert.Equal(t, uint64(1), snap.BatchesTotal)
	assert.InDelta(t, 40, snap.AverageBatchDurationMs, 0.001)

	expected := `
# HELP scoring_students_total Total number of students scored
# TYPE scoring_students_total counter
scoring_students_total 2
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "scoring_students_total"))
}

func TestMetricsServiceWriteTextfile(t *testing.T) {
	m := NewMetricsService()
	m.ObserveBatch(3, time.Second)

	path := filepath.Join(t.TempDir(), "scoring.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "scoring_batches_total 1")
	assert.Contains(t, string(data), "scoring_batch_duration_seconds_count 1")
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService
	m.ObserveStudent(map[models.Subject]int{models.SubjectMath: 1}, 1)
	m.ObserveBatch(1, time.Millisecond)
	m.RecordNormalizedInput(models.SubjectMath)
	assert.NoError(t, m.WriteTextfile("unused"))
	assert.Nil(t, m.Registry())
	assert.Zero(t, m.Snapshot().StudentsTotal)
}
