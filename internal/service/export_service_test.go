package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/simulacro-scoring/internal/models"
	appErrors "github.com/noah-isme/simulacro-scoring/pkg/errors"
	"github.com/noah-isme/simulacro-scoring/pkg/export"
	"github.com/noah-isme/simulacro-scoring/pkg/storage"
)

func sampleReport(t *testing.T) Report {
	t.Helper()
	rec := models.NewStudentRecord("s-1", "Ana")
	correct, streak := 25, 10
	rec.Areas[models.SubjectMath] = models.RawSubjectResult{CorrectCount: &correct, MaxStreak: &streak}
	scored := NewBatchService(nil, nil, BatchConfig{}, nil).ScoreStudent(rec)

	marker := newAnalyticsForTest().GroupMarker([]models.ScoredStudent{scored})
	return Report{GeneratedAt: marker.GeneratedAt, Marker: marker, Students: []models.ScoredStudent{scored}}
}

func newExportServiceForTest(t *testing.T) (*ExportService, *storage.LocalStorage) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	svc := NewExportService(store, nil, ExportConfig{Title: "Resultados", Prefix: "simulacro"}, zap.NewNop(), export.NewCSVExporter(), export.NewPDFExporter())
	return svc, store
}

func TestExportJSON(t *testing.T) {
	svc, store := newExportServiceForTest(t)

	result, err := svc.Export(context.Background(), models.ReportFormatJSON, sampleReport(t))
	require.NoError(t, err)
	assert.Equal(t, "simulacro-batch-1.json", result.RelativePath)
	assert.Equal(t, store.Path(result.RelativePath), result.Path)

	data, err := os.ReadFile(result.Path)
	require.NoError(t, err)
	var doc struct {
		Marker   models.GroupMarker       `json:"marker"`
		Students []map[string]interface{} `json:"students"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "batch-1", doc.Marker.BatchID)
	require.Len(t, doc.Students, 1)
	assert.EqualValues(t, 100, doc.Students[0]["math_score"])
	assert.EqualValues(t, 115, doc.Students[0]["global_score"])
}

func TestExportCSV(t *testing.T) {
	svc, store := newExportServiceForTest(t)

	result, err := svc.Export(context.Background(), models.ReportFormatCSV, sampleReport(t))
	require.NoError(t, err)

	data, err := os.ReadFile(store.Path(result.RelativePath))
	require.NoError(t, err)
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{
		"ID", "Name", "Matemáticas", "Lectura Crítica", "Ciencias Naturales", "Sociales y Ciudadanas", "Inglés", "Global", "Band",
		"Matemáticas Level", "Lectura Crítica Level", "Ciencias Naturales Level", "Sociales y Ciudadanas Level", "Inglés Level",
	}, rows[0])
	assert.Equal(t, []string{"s-1", "Ana", "100", "0", "0", "0", "0", "115", "Critical", "N4", "N1", "N1", "N1", "A1"}, rows[1])
}

func TestBuildDatasetGapColumn(t *testing.T) {
	svc, _ := newExportServiceForTest(t)
	report := sampleReport(t)
	report.Classifications = NewClassificationService().ClassifyAll(report.Students, 300)

	dataset := svc.BuildDataset(report)
	require.Len(t, dataset.Rows, 1)
	assert.Equal(t, "Gap", dataset.Headers[len(dataset.Headers)-1])
	assert.Equal(t, "185", dataset.Rows[0][len(dataset.Rows[0])-1])

	report.Classifications = NewClassificationService().ClassifyAll(report.Students, 100)
	dataset = svc.BuildDataset(report)
	assert.Equal(t, "0", dataset.Rows[0][len(dataset.Rows[0])-1])
}

func TestExportPDF(t *testing.T) {
	svc, store := newExportServiceForTest(t)

	result, err := svc.Export(context.Background(), models.ReportFormatPDF, sampleReport(t))
	require.NoError(t, err)
	assert.Equal(t, "simulacro-batch-1.pdf", result.RelativePath)

	data, err := os.ReadFile(store.Path(result.RelativePath))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestExportUnsupportedFormat(t *testing.T) {
	svc, _ := newExportServiceForTest(t)

	_, err := svc.Export(context.Background(), models.ReportFormat("xlsx"), sampleReport(t))
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUnsupportedFormat.Code))
}

type failingRenderer struct{}

func (failingRenderer) Render(export.Dataset) ([]byte, error) {
	return nil, errors.New("boom")
}

func TestExportAllStopsOnFailure(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	svc := NewExportService(store, nil, ExportConfig{}, nil, failingRenderer{}, nil)

	results, err := svc.ExportAll(context.Background(), []models.ReportFormat{models.ReportFormatJSON, models.ReportFormatCSV, models.ReportFormatPDF}, sampleReport(t))
	require.Error(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "scores-batch-1.json", results[0].RelativePath)
}

func TestParseFormats(t *testing.T) {
	formats, err := ParseFormats([]string{"json", " PDF", "json", ""})
	require.NoError(t, err)
	assert.Equal(t, []models.ReportFormat{models.ReportFormatJSON, models.ReportFormatPDF}, formats)

	_, err = ParseFormats([]string{"json", "docx"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUnsupportedFormat.Code))
}

func TestBuildDatasetSubtitle(t *testing.T) {
	svc, _ := newExportServiceForTest(t)
	report := sampleReport(t)
	report.GeneratedAt = time.Time{}

	dataset := svc.BuildDataset(report)
	assert.Equal(t, "Resultados", dataset.Title)
	assert.Contains(t, dataset.Subtitle, "2024-05-10 13:00")
	assert.Contains(t, dataset.Subtitle, "1 students")
}
