package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/simulacro-scoring/internal/models"
	appErrors "github.com/noah-isme/simulacro-scoring/pkg/errors"
	"github.com/noah-isme/simulacro-scoring/pkg/export"
)

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Path(filename string) string
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	Title  string
	Prefix string
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Path         string
	Format       models.ReportFormat
	Size         int
}

// Report is the JSON document written for a scored batch.
type Report struct {
	GeneratedAt     time.Time                      `json:"generated_at"`
	Marker          models.GroupMarker             `json:"marker"`
	Students        []models.ScoredStudent         `json:"students"`
	Classifications []models.StudentClassification `json:"classifications,omitempty"`
	QuestionStats   models.QuestionStats           `json:"question_stats,omitempty"`
	Metrics         *models.ScoringMetricsSnapshot `json:"metrics,omitempty"`
}

// ExportService renders scored batches and persists the artifacts.
type ExportService struct {
	storage    fileStorage
	csv        datasetRenderer
	pdf        datasetRenderer
	classifier *ClassificationService
	logger     *zap.Logger
	cfg        ExportConfig
}

// NewExportService constructs an ExportService. Nil renderers fall back to the pkg/export defaults.
func NewExportService(storage fileStorage, classifier *ClassificationService, cfg ExportConfig, logger *zap.Logger, csv, pdf datasetRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if classifier == nil {
		classifier = NewClassificationService()
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "scores"
	}
	if cfg.Title == "" {
		cfg.Title = "Simulacro Results"
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		storage:    storage,
		csv:        csv,
		pdf:        pdf,
		classifier: classifier,
		logger:     logger,
		cfg:        cfg,
	}
}

// ParseFormats resolves format names, rejecting unknown ones with UNSUPPORTED_FORMAT.
// Duplicates are collapsed while keeping first-seen order.
func ParseFormats(raw []string) ([]models.ReportFormat, error) {
	seen := make(map[models.ReportFormat]bool, len(raw))
	out := make([]models.ReportFormat, 0, len(raw))
	for _, name := range raw {
		if strings.TrimSpace(name) == "" {
			continue
		}
		format, err := models.ParseReportFormat(name)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrUnsupportedFormat.Code, fmt.Sprintf("unsupported report format %q", name))
		}
		if !seen[format] {
			seen[format] = true
			out = append(out, format)
		}
	}
	return out, nil
}

// Export renders report in format and stores it as <prefix>-<batch_id>.<ext>.
func (s *ExportService) Export(ctx context.Context, format models.ReportFormat, report Report) (*ExportResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		payload []byte
		err     error
	)
	switch format {
	case models.ReportFormatJSON:
		payload, err = json.MarshalIndent(report, "", "  ")
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(s.BuildDataset(report))
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(s.BuildDataset(report))
	default:
		return nil, appErrors.Clone(appErrors.ErrUnsupportedFormat, fmt.Sprintf("unsupported report format %q", format))
	}
	if err != nil {
		return nil, fmt.Errorf("render %s report: %w", format, err)
	}

	relPath, err := s.storage.Save(s.buildFilename(report.Marker, format), payload)
	if err != nil {
		return nil, fmt.Errorf("store %s report: %w", format, err)
	}

	s.logger.Info("report exported",
		zap.String("format", string(format)),
		zap.String("path", relPath),
		zap.Int("bytes", len(payload)),
	)
	return &ExportResult{RelativePath: relPath, Path: s.storage.Path(relPath), Format: format, Size: len(payload)}, nil
}

// ExportAll renders every format in order and stops at the first failure.
func (s *ExportService) ExportAll(ctx context.Context, formats []models.ReportFormat, report Report) ([]ExportResult, error) {
	results := make([]ExportResult, 0, len(formats))
	for _, format := range formats {
		result, err := s.Export(ctx, format, report)
		if err != nil {
			return results, err
		}
		results = append(results, *result)
	}
	return results, nil
}

// BuildDataset flattens a report into one table row per student: subject scores, the global
// score and band, subject level codes, and the gap to target when one was requested.
// Classifications missing from the report are computed on the fly.
func (s *ExportService) BuildDataset(report Report) export.Dataset {
	classes := report.Classifications
	if len(classes) != len(report.Students) {
		classes = s.classifier.ClassifyAll(report.Students, 0)
	}
	withGap := false
	for _, c := range classes {
		if c.Gap != nil {
			withGap = true
			break
		}
	}

	headers := []string{"ID", "Name"}
	for _, subject := range models.Subjects() {
		headers = append(headers, subject.Label())
	}
	headers = append(headers, "Global", "Band")
	for _, subject := range models.Subjects() {
		headers = append(headers, subject.Label()+" Level")
	}
	if withGap {
		headers = append(headers, "Gap")
	}

	rows := make([][]string, 0, len(report.Students))
	for i, student := range report.Students {
		row := []string{student.ID(), student.Name()}
		for _, subject := range models.Subjects() {
			row = append(row, strconv.Itoa(student.Score(subject)))
		}
		row = append(row, strconv.Itoa(student.GlobalScore), classes[i].Band.Label)
		for _, subject := range models.Subjects() {
			row = append(row, classes[i].Levels[subject].Code)
		}
		if withGap {
			gap := ""
			if classes[i].Gap != nil {
				gap = strconv.Itoa(max(0, classes[i].Gap.Gap))
			}
			row = append(row, gap)
		}
		rows = append(rows, row)
	}

	generated := report.GeneratedAt
	if generated.IsZero() {
		generated = report.Marker.GeneratedAt
	}
	return export.Dataset{
		Title:    s.cfg.Title,
		Subtitle: fmt.Sprintf("Generated %s | %d students | average %.1f", generated.UTC().Format("2006-01-02 15:04"), report.Marker.TotalStudents, report.Marker.AverageGlobal),
		Headers:  headers,
		Rows:     rows,
	}
}

func (s *ExportService) buildFilename(marker models.GroupMarker, format models.ReportFormat) string {
	return fmt.Sprintf("%s-%s%s", sanitizeFilename(s.cfg.Prefix), sanitizeFilename(marker.BatchID), format.Extension())
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
