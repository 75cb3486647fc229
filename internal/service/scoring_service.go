package service

import (
	"fmt"
	"math"

	"github.com/noah-isme/simulacro-scoring/internal/models"
	appErrors "github.com/noah-isme/simulacro-scoring/pkg/errors"
)

const (
	maxSubjectScore = 100

	// consistency bonus: one point per full streakBonusStep answers, capped, withheld above the ceiling
	streakBonusThreshold = 5
	streakBonusStep      = 5
	streakBonusCap       = 3
	streakBonusCeiling   = 86

	// inconsistency penalty: many errors and no streak to speak of
	penaltyErrorThreshold = 5
	penaltyStreakFloor    = 3
	penaltyPoints         = 2

	globalScale = 5
)

// curveSegment interpolates linearly from Base at From to Base+Span at From+Width.
type curveSegment struct {
	From  float64
	Width float64
	Base  float64
	Span  float64
}

// scoreCurve lists the fixed breakpoints from highest to lowest; percentages of 100 or more score 100.
var scoreCurve = [...]curveSegment{
	{From: 96, Width: 4, Base: 80, Span: 6},
	{From: 88, Width: 8, Base: 70, Span: 10},
	{From: 76, Width: 12, Base: 55, Span: 15},
	{From: 60, Width: 16, Base: 35, Span: 20},
	{From: 40, Width: 20, Base: 15, Span: 20},
	{From: 0, Width: 40, Base: 0, Span: 15},
}

// ScoringService converts raw answer counts into curved subject scores and weighted global scores.
type ScoringService struct{}

// NewScoringService constructs ScoringService.
func NewScoringService() *ScoringService {
	return &ScoringService{}
}

// SubjectScore scores one subject. The inputs must satisfy total > 0, 0 <= correct <= total
// and maxStreak >= 0; anything else is a caller bug reported as CONTRACT_VIOLATION.
func (s *ScoringService) SubjectScore(correct, total, maxStreak int) (int, error) {
	switch {
	case total <= 0:
		return 0, appErrors.Clone(appErrors.ErrContractViolation, fmt.Sprintf("total questions must be positive, got %d", total))
	case correct < 0 || correct > total:
		return 0, appErrors.Clone(appErrors.ErrContractViolation, fmt.Sprintf("correct count %d outside [0,%d]", correct, total))
	case maxStreak < 0:
		return 0, appErrors.Clone(appErrors.ErrContractViolation, fmt.Sprintf("max streak must not be negative, got %d", maxStreak))
	}
	return subjectScore(correct, total, maxStreak), nil
}

// GlobalScore combines subject scores into the weighted 0-500 scale. Missing subjects count as 0.
func (s *ScoringService) GlobalScore(scores map[models.Subject]int) int {
	weightedSum := 0
	for _, subject := range models.Subjects() {
		weightedSum += scores[subject] * subject.Weight()
	}
	return roundHalfUp(float64(weightedSum) / float64(models.TotalWeight()) * globalScale)
}

// ScoreArea resolves raw input for subject and scores it. Out of range counts and streaks are
// clamped into the scoring domain; normalized reports whether that happened.
// A nil raw result scores as zero correct with no streak.
func (s *ScoringService) ScoreArea(subject models.Subject, raw *models.RawSubjectResult) (score models.SubjectScore, normalized bool) {
	total := subject.TotalQuestions()
	if total <= 0 {
		return models.SubjectScore{}, false
	}

	correct, streak := 0, 0
	if raw != nil {
		correct, streak = raw.Correct(), raw.Streak()
	}
	if correct < 0 {
		correct, normalized = 0, true
	} else if correct > total {
		correct, normalized = total, true
	}
	if streak < 0 {
		streak, normalized = 0, true
	}

	return models.SubjectScore{
		Score:          subjectScore(correct, total, streak),
		RawCorrect:     correct,
		MaxStreak:      streak,
		TotalQuestions: total,
		Percentage:     roundHalfUp(float64(correct) / float64(total) * 100),
	}, normalized
}

func subjectScore(correct, total, maxStreak int) int {
	percentage := float64(correct) / float64(total) * 100

	// the bonus ceiling compares against the rounded base
	base := roundHalfUp(baseCurve(percentage))

	bonus := 0
	if maxStreak > streakBonusThreshold {
		potential := min(streakBonusCap, maxStreak/streakBonusStep)
		if base+potential <= streakBonusCeiling {
			bonus = potential
		}
	}

	penalty := 0
	if total-correct > penaltyErrorThreshold && maxStreak < penaltyStreakFloor {
		penalty = penaltyPoints
	}

	return max(0, min(maxSubjectScore, base+bonus-penalty))
}

func baseCurve(percentage float64) float64 {
	if percentage >= 100 {
		return 100
	}
	for _, seg := range scoreCurve {
		if percentage >= seg.From {
			return seg.Base + ((percentage-seg.From)/seg.Width)*seg.Span
		}
	}
	// reached only for negative percentages
	last := scoreCurve[len(scoreCurve)-1]
	return last.Base + ((percentage-last.From)/last.Width)*last.Span
}

// roundHalfUp rounds to the nearest integer with halves going towards +Inf.
func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}
