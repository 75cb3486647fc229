package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/simulacro-scoring/internal/models"
	"github.com/noah-isme/simulacro-scoring/internal/service"
	"github.com/noah-isme/simulacro-scoring/pkg/config"
	appErrors "github.com/noah-isme/simulacro-scoring/pkg/errors"
	"github.com/noah-isme/simulacro-scoring/pkg/logger"
	"github.com/noah-isme/simulacro-scoring/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := applyFlags(cfg, os.Args[1:], os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatalf("invalid arguments: %v", err)
	}

	logr := logger.Must(cfg)
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := run(ctx, cfg, logr)
	if err != nil {
		logr.Sugar().Fatalw("scoring run failed", "code", appErrors.FromError(err).Code, "error", err)
	}
	for _, artifact := range summary.Artifacts {
		logr.Sugar().Infow("artifact written", "format", artifact.Format, "path", artifact.Path, "bytes", artifact.Size)
	}
	logr.Sugar().Infow("scoring run finished",
		"batch_id", summary.Marker.BatchID,
		"students", summary.Marker.TotalStudents,
		"average_global", summary.Marker.AverageGlobal,
		"artifacts", len(summary.Artifacts),
		"normalized_inputs", summary.Metrics.NormalizedInputsTotal,
		"batch_ms", summary.Metrics.AverageBatchDurationMs,
	)
}

// applyFlags overrides environment configuration with command line flags.
func applyFlags(cfg *config.Config, args []string, output io.Writer) error {
	fs := flag.NewFlagSet("scorer", flag.ContinueOnError)
	fs.SetOutput(output)

	var formats string
	fs.StringVar(&cfg.Input.Path, "input", cfg.Input.Path, "Path to a JSON file of student records")
	fs.StringVar(&cfg.Input.SheetsDir, "sheets", cfg.Input.SheetsDir, "Directory holding per-subject CSV sheets")
	fs.StringVar(&cfg.Output.Dir, "out", cfg.Output.Dir, "Directory for report artifacts")
	fs.StringVar(&formats, "formats", "", "Comma separated report formats (json,csv,pdf)")
	fs.IntVar(&cfg.Scoring.Workers, "workers", cfg.Scoring.Workers, "Number of concurrent scoring workers")
	fs.IntVar(&cfg.Scoring.TargetScore, "target", cfg.Scoring.TargetScore, "Target global score for per-student gap analysis (0 disables)")
	fs.StringVar(&cfg.Metrics.Textfile, "metrics", cfg.Metrics.Textfile, "Write Prometheus metrics to this textfile")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if formats != "" {
		cfg.Output.Formats = config.SplitAndTrim(strings.ToLower(formats))
	}
	if cfg.Input.Path == "" && cfg.Input.SheetsDir == "" {
		return appErrors.Clone(appErrors.ErrValidation, "one of -input or -sheets is required")
	}
	return cfg.Validate()
}

type runSummary struct {
	Marker    models.GroupMarker
	Metrics   models.ScoringMetricsSnapshot
	Artifacts []service.ExportResult
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) (*runSummary, error) {
	formats, err := service.ParseFormats(cfg.Output.Formats)
	if err != nil {
		return nil, err
	}

	ingest := service.NewIngestService(nil, validator.New(), logr)
	var records []models.StudentRecord
	if cfg.Input.SheetsDir != "" {
		records, err = ingest.LoadSheets(cfg.Input.SheetsDir)
	} else {
		records, err = ingest.LoadJSON(cfg.Input.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("load students: %w", err)
	}

	metrics := service.NewMetricsService()
	batch := service.NewBatchService(service.NewScoringService(), metrics, service.BatchConfig{Workers: cfg.Scoring.Workers}, logr)
	scored, err := batch.Process(ctx, records)
	if err != nil {
		return nil, err
	}

	classifier := service.NewClassificationService()
	analytics := service.NewAnalyticsService(classifier, logr)
	marker := analytics.GroupMarker(scored)
	snapshot := metrics.Snapshot()
	report := service.Report{
		GeneratedAt:     marker.GeneratedAt,
		Marker:          marker,
		Students:        scored,
		Classifications: classifier.ClassifyAll(scored, cfg.Scoring.TargetScore),
		QuestionStats:   analytics.QuestionStats(records),
		Metrics:         &snapshot,
	}

	store, err := storage.NewLocalStorage(cfg.Output.Dir)
	if err != nil {
		return nil, err
	}
	exporter := service.NewExportService(store, classifier, service.ExportConfig{
		Title:  cfg.Output.Title,
		Prefix: cfg.Output.Prefix,
	}, logr, nil, nil)
	artifacts, err := exporter.ExportAll(ctx, formats, report)
	if err != nil {
		return nil, err
	}

	if cfg.Metrics.Textfile != "" {
		if err := metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			return nil, err
		}
	}

	return &runSummary{Marker: marker, Metrics: snapshot, Artifacts: artifacts}, nil
}
