package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/simulacro-scoring/internal/models"
)

// BatchConfig tunes batch execution.
type BatchConfig struct {
	// Workers above one scores students concurrently; output order is unaffected.
	Workers int
}

// BatchService applies subject scoring and aggregation to whole student collections.
type BatchService struct {
	scoring *ScoringService
	metrics *MetricsService
	logger  *zap.Logger
	workers int
}

// NewBatchService constructs BatchService.
func NewBatchService(scoring *ScoringService, metrics *MetricsService, cfg BatchConfig, logger *zap.Logger) *BatchService {
	if scoring == nil {
		scoring = NewScoringService()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &BatchService{scoring: scoring, metrics: metrics, logger: logger, workers: cfg.Workers}
}

// Process scores every student, preserving length and order. A nil input yields nil and an
// empty input an empty slice. The only error is context cancellation.
func (s *BatchService) Process(ctx context.Context, students []models.StudentRecord) ([]models.ScoredStudent, error) {
	if students == nil {
		return nil, nil
	}
	out := make([]models.ScoredStudent, len(students))
	if len(students) == 0 {
		return out, nil
	}

	start := time.Now()
	var err error
	if s.workers == 1 || len(students) == 1 {
		err = s.processSequential(ctx, students, out)
	} else {
		err = s.processParallel(ctx, students, out)
	}
	if err != nil {
		return nil, fmt.Errorf("score batch: %w", err)
	}

	elapsed := time.Since(start)
	s.metrics.ObserveBatch(len(students), elapsed)
	s.logger.Info("batch scored",
		zap.Int("students", len(students)),
		zap.Int("workers", s.workers),
		zap.Duration("elapsed", elapsed),
	)
	return out, nil
}

func (s *BatchService) processSequential(ctx context.Context, students []models.StudentRecord, out []models.ScoredStudent) error {
	for i := range students {
		if err := ctx.Err(); err != nil {
			return err
		}
		out[i] = s.ScoreStudent(students[i])
	}
	return nil
}

func (s *BatchService) processParallel(ctx context.Context, students []models.StudentRecord, out []models.ScoredStudent) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range students {
		i := i
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			// each goroutine owns slot i
			out[i] = s.ScoreStudent(students[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// ScoreStudent scores the five subjects of one student and assembles the enriched record.
// Prior score fields on the input are never read back.
func (s *BatchService) ScoreStudent(student models.StudentRecord) models.ScoredStudent {
	scored := models.ScoredStudent{
		Fields: cloneFields(student.Fields),
		Areas:  make(map[models.Subject]models.SubjectScore, len(models.Subjects())),
	}

	subjectScores := make(map[models.Subject]int, len(models.Subjects()))
	for _, subject := range models.Subjects() {
		var raw *models.RawSubjectResult
		if result, ok := student.Areas[subject]; ok {
			raw = &result
		}
		score, normalized := s.scoring.ScoreArea(subject, raw)
		if normalized {
			s.logger.Warn("raw subject result outside scoring domain, clamped",
				zap.String("student_id", student.ID()),
				zap.String("subject", string(subject)),
				zap.Int("raw_correct", raw.Correct()),
				zap.Int("max_streak", raw.Streak()),
			)
			s.metrics.RecordNormalizedInput(subject)
		}
		scored.Areas[subject] = score
		subjectScores[subject] = score.Score
	}

	scored.GlobalScore = s.scoring.GlobalScore(subjectScores)
	s.metrics.ObserveStudent(subjectScores, scored.GlobalScore)
	return scored
}

func cloneFields(fields map[string]json.RawMessage) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(fields))
	for key, value := range fields {
		out[key] = append(json.RawMessage(nil), value...)
	}
	return out
}
