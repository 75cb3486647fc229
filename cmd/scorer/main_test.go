package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/simulacro-scoring/pkg/config"
	appErrors "github.com/noah-isme/simulacro-scoring/pkg/errors"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Env:     config.EnvDevelopment,
		Scoring: config.ScoringConfig{Workers: 2},
		Output:  config.OutputConfig{
			Dir:     filepath.Join(t.TempDir(), "out"),
			Formats: []string{"json", "csv"},
			Title:   "Resultados",
			Prefix:  "simulacro",
		},
	}
}

func TestApplyFlagsOverridesConfig(t *testing.T) {
	cfg := testConfig(t)
	err := applyFlags(cfg, []string{"-input", "students.json", "-formats", "pdf, csv", "-workers", "4"}, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, "students.json", cfg.Input.Path)
	assert.Equal(t, []string{"pdf", "csv"}, cfg.Output.Formats)
	assert.Equal(t, 4, cfg.Scoring.Workers)
}

func TestApplyFlagsLowercasesFormats(t *testing.T) {
	cfg := testConfig(t)
	err := applyFlags(cfg, []string{"-input", "students.json", "-formats", "JSON,CSV", "-target", "300"}, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, []string{"json", "csv"}, cfg.Output.Formats)
	assert.Equal(t, 300, cfg.Scoring.TargetScore)
}

func TestApplyFlagsRequiresInput(t *testing.T) {
	cfg := testConfig(t)
	err := applyFlags(cfg, nil, io.Discard)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
}

func TestApplyFlagsRejectsUnknownFormat(t *testing.T) {
	cfg := testConfig(t)
	err := applyFlags(cfg, []string{"-input", "a.json", "-formats", "xlsx"}, io.Discard)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
}

func TestRunScoresJSONInput(t *testing.T) {
	cfg := testConfig(t)
	input := filepath.Join(t.TempDir(), "students.json")
	payload := `[
		{"id": "s1", "name": "Ana", "areas": {"math": {"correct_count": 25, "maxStreak": 10}}},
		{"id": "s2", "name": "Luis", "areas": {"english": {"correct_count": 15, "maxStreak": 2}}}
	]`
	require.NoError(t, os.WriteFile(input, []byte(payload), 0o644))
	cfg.Input.Path = input
	cfg.Metrics.Textfile = filepath.Join(t.TempDir(), "scoring.prom")
	cfg.Scoring.TargetScore = 300

	summary, err := run(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, summary.Artifacts, 2)
	assert.Equal(t, 2, summary.Marker.TotalStudents)
	assert.EqualValues(t, 2, summary.Metrics.StudentsTotal)
	assert.Equal(t, filepath.Join(cfg.Output.Dir, summary.Artifacts[0].RelativePath), summary.Artifacts[0].Path)

	data, err := os.ReadFile(filepath.Join(cfg.Output.Dir, summary.Artifacts[0].RelativePath))
	require.NoError(t, err)
	var report struct {
		Students        []map[string]interface{} `json:"students"`
		Classifications []struct {
			StudentID string `json:"student_id"`
			Levels    map[string]struct {
				Code string `json:"code"`
			} `json:"levels"`
			Gap *struct {
				Gap            int `json:"gap"`
				EstimatedWeeks int `json:"estimated_weeks"`
			} `json:"gap"`
		} `json:"classifications"`
		Metrics *struct {
			BatchesTotal  int `json:"batches_total"`
			StudentsTotal int `json:"students_total"`
		} `json:"metrics"`
	}
	require.NoError(t, json.Unmarshal(data, &report))
	require.Len(t, report.Students, 2)
	assert.EqualValues(t, 100, report.Students[0]["math_score"])
	assert.EqualValues(t, 23, report.Students[1]["english_score"])

	require.Len(t, report.Classifications, 2)
	assert.Equal(t, "s1", report.Classifications[0].StudentID)
	assert.Equal(t, "N4", report.Classifications[0].Levels["math"].Code)
	assert.Equal(t, "A1", report.Classifications[1].Levels["english"].Code)
	require.NotNil(t, report.Classifications[0].Gap)
	assert.Equal(t, 300-115, report.Classifications[0].Gap.Gap)
	assert.Equal(t, 37, report.Classifications[0].Gap.EstimatedWeeks)

	require.NotNil(t, report.Metrics)
	assert.Equal(t, 1, report.Metrics.BatchesTotal)
	assert.Equal(t, 2, report.Metrics.StudentsTotal)

	_, err = os.Stat(cfg.Metrics.Textfile)
	require.NoError(t, err)
}

func TestRunMissingInputFails(t *testing.T) {
	cfg := testConfig(t)
	cfg.Input.Path = filepath.Join(t.TempDir(), "missing.json")

	_, err := run(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
}
