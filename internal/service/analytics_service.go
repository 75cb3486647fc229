package service

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/simulacro-scoring/internal/models"
)

// distractorOptions are the answer choices tracked per question.
var distractorOptions = [...]string{"A", "B", "C", "D"}

// AnalyticsService derives group level summaries from scored batches.
type AnalyticsService struct {
	classifier *ClassificationService
	logger     *zap.Logger
	now        func() time.Time
	newID      func() string
}

// NewAnalyticsService constructs an analytics service.
func NewAnalyticsService(classifier *ClassificationService, logger *zap.Logger) *AnalyticsService {
	if classifier == nil {
		classifier = NewClassificationService()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{
		classifier: classifier,
		logger:     logger,
		now:        time.Now,
		newID:      func() string { return uuid.NewString() },
	}
}

// GroupMarker stamps a batch with an id and generation time and summarises its scores.
func (s *AnalyticsService) GroupMarker(students []models.ScoredStudent) models.GroupMarker {
	marker := models.GroupMarker{
		BatchID:          s.newID(),
		GeneratedAt:      s.now().UTC(),
		TotalStudents:    len(students),
		SubjectAverages:  make(map[models.Subject]float64, len(models.Subjects())),
		BandDistribution: make(map[models.BandKey]int),
	}
	for _, def := range globalBands {
		marker.BandDistribution[def.Key] = 0
	}
	for _, subject := range models.Subjects() {
		marker.SubjectAverages[subject] = 0
	}
	if len(students) == 0 {
		return marker
	}

	globalSum := 0
	subjectSums := make(map[models.Subject]int, len(models.Subjects()))
	for _, student := range students {
		globalSum += student.GlobalScore
		for _, subject := range models.Subjects() {
			subjectSums[subject] += student.Score(subject)
		}
		marker.BandDistribution[s.classifier.GlobalBand(student.GlobalScore).Key]++
	}

	n := float64(len(students))
	marker.AverageGlobal = roundTenth(float64(globalSum) / n)
	for subject, sum := range subjectSums {
		marker.SubjectAverages[subject] = roundTenth(float64(sum) / n)
	}

	s.logger.Debug("group marker built",
		zap.String("batch_id", marker.BatchID),
		zap.Int("students", marker.TotalStudents),
		zap.Float64("average_global", marker.AverageGlobal),
	)
	return marker
}

// QuestionStats aggregates per-question correctness and distractor choices from raw records.
// Only question details contribute; explicit counts carry no per-question information.
func (s *AnalyticsService) QuestionStats(records []models.StudentRecord) models.QuestionStats {
	stats := make(models.QuestionStats, len(models.Subjects()))
	for _, subject := range models.Subjects() {
		byQuestion := make(map[string]*models.QuestionStat)
		for _, record := range records {
			raw, ok := record.Areas[subject]
			if !ok {
				continue
			}
			for i, q := range raw.QuestionDetails {
				id := questionKey(q, i)
				stat, ok := byQuestion[id]
				if !ok {
					stat = &models.QuestionStat{QuestionID: id, Distractors: make(map[string]int, len(distractorOptions))}
					for _, option := range distractorOptions {
						stat.Distractors[option] = 0
					}
					byQuestion[id] = stat
				}
				stat.TotalAttempts++
				if q.IsCorrect {
					stat.CorrectResponses++
				}
				if option := strings.ToUpper(strings.TrimSpace(q.Value)); isDistractor(option) {
					stat.Distractors[option]++
				}
			}
		}

		list := make([]models.QuestionStat, 0, len(byQuestion))
		for _, stat := range byQuestion {
			if stat.TotalAttempts > 0 {
				stat.CorrectRate = float64(roundHalfUp(float64(stat.CorrectResponses)/float64(stat.TotalAttempts)*1000)) / 10
			}
			list = append(list, *stat)
		}
		sort.Slice(list, func(i, j int) bool {
			return questionLess(list[i].QuestionID, list[j].QuestionID)
		})
		stats[subject] = list
	}
	return stats
}

func questionKey(q models.QuestionOutcome, index int) string {
	switch {
	case q.ID != "":
		return q.ID
	case q.Label != "":
		return q.Label
	default:
		return "P" + strconv.Itoa(index+1)
	}
}

func isDistractor(option string) bool {
	for _, candidate := range distractorOptions {
		if option == candidate {
			return true
		}
	}
	return false
}

// questionLess orders ids like P2 before P10, falling back to plain string order.
func questionLess(a, b string) bool {
	na, okA := questionNumber(a)
	nb, okB := questionNumber(b)
	switch {
	case okA && okB && na != nb:
		return na < nb
	case okA != okB:
		return okA
	default:
		return a < b
	}
}

func questionNumber(id string) (int, bool) {
	digits := strings.TrimLeft(id, "PpQq")
	if digits == id || digits == "" {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return n, true
}

func roundTenth(v float64) float64 {
	return float64(roundHalfUp(v*10)) / 10
}
