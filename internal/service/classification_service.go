package service

import (
	"strconv"

	"github.com/noah-isme/simulacro-scoring/internal/models"
)

// levelBand is an inclusive upper bound on the 0-100 subject scale.
type levelBand struct {
	Max   int
	Level int
	Code  string
	Badge models.PerformanceBadge
}

var standardBadges = [...]models.PerformanceBadge{
	models.BadgeBasic,
	models.BadgeIntermediate,
	models.BadgeSatisfactory,
	models.BadgeAdvanced,
}

func fourLevels(cuts [3]int) []levelBand {
	bounds := [4]int{cuts[0], cuts[1], cuts[2], maxSubjectScore}
	bands := make([]levelBand, len(bounds))
	for i, upper := range bounds {
		level := i + 1
		bands[i] = levelBand{Max: upper, Level: level, Code: "N" + strconv.Itoa(level), Badge: standardBadges[i]}
	}
	return bands
}

// subjectLevels holds the per-subject bands in ascending order.
var subjectLevels = map[models.Subject][]levelBand{
	models.SubjectMath:            fourLevels([3]int{35, 50, 70}),
	models.SubjectCriticalReading: fourLevels([3]int{35, 50, 65}),
	models.SubjectNaturalSciences: fourLevels([3]int{40, 55, 70}),
	models.SubjectSocialStudies:   fourLevels([3]int{40, 55, 70}),
	models.SubjectEnglish: {
		{Max: 47, Level: 1, Code: "A1", Badge: models.BadgeBasic},
		{Max: 57, Level: 2, Code: "A2", Badge: models.BadgeIntermediate},
		{Max: 67, Level: 3, Code: "B1", Badge: models.BadgeSatisfactory},
		{Max: 78, Level: 4, Code: "B1+", Badge: models.BadgeUpperIntermediate},
		{Max: maxSubjectScore, Level: 5, Code: "B+", Badge: models.BadgeAdvanced},
	},
}

type globalBandDef struct {
	Min         int
	Key         models.BandKey
	Label       string
	Description string
}

// globalBands is ordered from the highest threshold down; the last entry catches everything else.
var globalBands = [...]globalBandDef{
	{Min: 400, Key: models.BandElite, Label: "Elite", Description: "Exceptional performance."},
	{Min: 350, Key: models.BandAdvanced, Label: "Advanced", Description: "Very good work."},
	{Min: 300, Key: models.BandCompetent, Label: "Competent", Description: "Solid baseline."},
	{Min: 250, Key: models.BandDeveloping, Label: "Developing", Description: "Needs reinforcement."},
	{Min: 0, Key: models.BandCritical, Label: "Critical", Description: "Urgent attention required."},
}

const (
	gapPointsPerWeek = 5
	gapHoursPerPoint = 2
	gapHighFeasible  = 50
	bandWidth        = 50
)

// ClassificationService maps scores onto performance levels and global bands.
type ClassificationService struct{}

// NewClassificationService constructs ClassificationService.
func NewClassificationService() *ClassificationService {
	return &ClassificationService{}
}

// SubjectLevel returns the level whose band contains score. Scores above 100 fall into the top band.
func (s *ClassificationService) SubjectLevel(subject models.Subject, score int) (models.PerformanceLevel, bool) {
	bands, ok := subjectLevels[subject]
	if !ok {
		return models.PerformanceLevel{}, false
	}
	lower := 0
	for i, band := range bands {
		if score <= band.Max || i == len(bands)-1 {
			return models.PerformanceLevel{
				Subject: subject,
				Level:   band.Level,
				Code:    band.Code,
				Badge:   band.Badge,
				Min:     lower,
				Max:     band.Max,
			}, true
		}
		lower = band.Max + 1
	}
	return models.PerformanceLevel{}, false
}

// GlobalBand classifies a 0-500 global score.
func (s *ClassificationService) GlobalBand(score int) models.GlobalBand {
	def := globalBands[len(globalBands)-1]
	for _, candidate := range globalBands {
		if score >= candidate.Min {
			def = candidate
			break
		}
	}
	return models.GlobalBand{
		Key:             def.Key,
		Label:           def.Label,
		Description:     def.Description,
		Min:             def.Min,
		PositionInRange: max(0, min(100, (score%bandWidth)*2)),
	}
}

// GapAnalysis estimates the weeks and study hours needed to reach target from current.
func (s *ClassificationService) GapAnalysis(current, target int) models.GapAnalysis {
	gap := target - current
	analysis := models.GapAnalysis{
		Current:     current,
		Target:      target,
		Gap:         gap,
		Feasibility: models.FeasibilityHigh,
	}
	if gap <= 0 {
		return analysis
	}
	analysis.EstimatedWeeks = (gap + gapPointsPerWeek - 1) / gapPointsPerWeek
	analysis.EstimatedHours = gap * gapHoursPerPoint
	if gap >= gapHighFeasible {
		analysis.Feasibility = models.FeasibilityMedium
	}
	return analysis
}

// Classify bundles the band and subject levels for one scored student.
func (s *ClassificationService) Classify(student models.ScoredStudent) models.StudentClassification {
	out := models.StudentClassification{
		StudentID: student.ID(),
		Band:      s.GlobalBand(student.GlobalScore),
		Levels:    make(map[models.Subject]models.PerformanceLevel, len(models.Subjects())),
	}
	for _, subject := range models.Subjects() {
		if level, ok := s.SubjectLevel(subject, student.Score(subject)); ok {
			out.Levels[subject] = level
		}
	}
	return out
}

// ClassifyAll classifies every student in order. A positive target adds a gap analysis
// toward that global score.
func (s *ClassificationService) ClassifyAll(students []models.ScoredStudent, target int) []models.StudentClassification {
	out := make([]models.StudentClassification, len(students))
	for i, student := range students {
		out[i] = s.Classify(student)
		if target > 0 {
			gap := s.GapAnalysis(student.GlobalScore, target)
			out[i].Gap = &gap
		}
	}
	return out
}
