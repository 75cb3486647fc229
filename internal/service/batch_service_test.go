package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/simulacro-scoring/internal/models"
)

func decodeStudents(t *testing.T, payload string) []models.StudentRecord {
	t.Helper()
	var students []models.StudentRecord
	require.NoError(t, json.Unmarshal([]byte(payload), &students))
	return students
}

func syntheticStudents(n int) []models.StudentRecord {
	students := make([]models.StudentRecord, n)
	for i := range students {
		rec := models.NewStudentRecord(fmt.Sprintf("s%03d", i), fmt.Sprintf("Student %d", i))
		for j, subject := range models.Subjects() {
			correct := (i*7 + j*3) % (subject.TotalQuestions() + 1)
			streak := (i + j) % 12
			rec.Areas[subject] = models.RawSubjectResult{CorrectCount: &correct, MaxStreak: &streak}
		}
		students[i] = rec
	}
	return students
}

func TestBatchProcessScoresStudents(t *testing.T) {
	students := decodeStudents(t, `[
		{"id":"a","name":"Ana","areas":{"math":{"correct_count":25,"maxStreak":10}}},
		{"id":"b","name":"Beto","areas":{"english":{"correct_count":15,"maxStreak":2}}},
		{"id":"c","name":"Caro"}
	]`)
	svc := NewBatchService(nil, nil, BatchConfig{}, zap.NewNop())

	scored, err := svc.Process(context.Background(), students)
	require.NoError(t, err)
	require.Len(t, scored, 3)

	assert.Equal(t, "a", scored[0].ID())
	assert.Equal(t, 100, scored[0].Score(models.SubjectMath))
	assert.Equal(t, 0, scored[0].Score(models.SubjectEnglish))
	assert.Equal(t, 115, scored[0].GlobalScore)

	assert.Equal(t, "b", scored[1].ID())
	assert.Equal(t, 23, scored[1].Score(models.SubjectEnglish))
	assert.Equal(t, 9, scored[1].GlobalScore)

	assert.Equal(t, "Caro", scored[2].Name())
	assert.Len(t, scored[2].Areas, len(models.Subjects()))
	assert.Equal(t, 0, scored[2].GlobalScore)
}

func TestBatchProcessNilAndEmpty(t *testing.T) {
	svc := NewBatchService(nil, nil, BatchConfig{}, nil)

	out, err := svc.Process(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, out)

	out, err = svc.Process(context.Background(), []models.StudentRecord{})
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Empty(t, out)
}

func TestBatchProcessParallelMatchesSequential(t *testing.T) {
	students := syntheticStudents(200)

	sequential, err := NewBatchService(nil, nil, BatchConfig{Workers: 1}, nil).Process(context.Background(), students)
	require.NoError(t, err)
	parallel, err := NewBatchService(nil, nil, BatchConfig{Workers: 8}, nil).Process(context.Background(), students)
	require.NoError(t, err)

	assert.Equal(t, sequential, parallel)
}

func TestBatchProcessIsIdempotentOnOwnOutput(t *testing.T) {
	svc := NewBatchService(nil, nil, BatchConfig{}, nil)
	first, err := svc.Process(context.Background(), syntheticStudents(20))
	require.NoError(t, err)

	payload, err := json.Marshal(first)
	require.NoError(t, err)
	second, err := svc.Process(context.Background(), decodeStudents(t, string(payload)))
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].Areas, second[i].Areas)
		assert.Equal(t, first[i].GlobalScore, second[i].GlobalScore)
	}
}

func TestBatchProcessDoesNotMutateInput(t *testing.T) {
	students := decodeStudents(t, `[{"id":"a","math_score":99,"areas":{"math":{"raw_correct":10,"maxStreak":3}}}]`)
	before, err := json.Marshal(students)
	require.NoError(t, err)

	scored, err := NewBatchService(nil, nil, BatchConfig{}, nil).Process(context.Background(), students)
	require.NoError(t, err)

	after, err := json.Marshal(students)
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
	assert.Equal(t, 15, scored[0].Score(models.SubjectMath))
}

func TestBatchProcessHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, workers := range []int{1, 4} {
		_, err := NewBatchService(nil, nil, BatchConfig{Workers: workers}, nil).Process(ctx, syntheticStudents(10))
		require.Error(t, err)
		assert.True(t, errors.Is(err, context.Canceled))
	}
}

func TestBatchProcessRecordsMetrics(t *testing.T) {
	metrics := NewMetricsService()
	students := decodeStudents(t, `[
		{"id":"a","areas":{"math":{"correct_count":40}}},
		{"id":"b","areas":{"math":{"correct_count":10}}}
	]`)

	_, err := NewBatchService(nil, metrics, BatchConfig{Workers: 2}, nil).Process(context.Background(), students)
	require.NoError(t, err)

	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.studentsTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.batchesTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.normalizedInputs.WithLabelValues(string(models.SubjectMath))))

	snap := metrics.Snapshot()
	assert.Equal(t, uint64(2), snap.StudentsTotal)
	assert.Equal(t, uint64(1), snap.BatchesTotal)
	assert.Equal(t, uint64(1), snap.NormalizedInputsTotal)
}
