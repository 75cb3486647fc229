package models

// PerformanceBadge names the qualitative tier of a subject level.
type PerformanceBadge string

const (
	BadgeBasic             PerformanceBadge = "basic"
	BadgeIntermediate      PerformanceBadge = "intermediate"
	BadgeSatisfactory      PerformanceBadge = "satisfactory"
	BadgeUpperIntermediate PerformanceBadge = "upper_intermediate"
	BadgeAdvanced          PerformanceBadge = "advanced"
)

// PerformanceLevel is the level a subject score falls into.
type PerformanceLevel struct {
	Subject Subject          `json:"subject"`
	Level   int              `json:"level"`
	Code    string           `json:"code"`
	Badge   PerformanceBadge `json:"badge"`
	Min     int              `json:"min"`
	Max     int              `json:"max"`
}

// BandKey identifies a global score band.
type BandKey string

const (
	BandElite      BandKey = "elite"
	BandAdvanced   BandKey = "advanced"
	BandCompetent  BandKey = "competent"
	BandDeveloping BandKey = "developing"
	BandCritical   BandKey = "critical"
)

// GlobalBand classifies a 0-500 global score.
type GlobalBand struct {
	Key             BandKey `json:"key"`
	Label           string  `json:"label"`
	Description     string  `json:"description"`
	Min             int     `json:"min"`
	PositionInRange int     `json:"position_in_range"`
}

// Feasibility grades how reachable a target score is.
type Feasibility string

const (
	FeasibilityHigh   Feasibility = "high"
	FeasibilityMedium Feasibility = "medium"
)

// GapAnalysis estimates the effort needed to move from a current to a target global score.
type GapAnalysis struct {
	Current        int         `json:"current"`
	Target         int         `json:"target"`
	Gap            int         `json:"gap"`
	EstimatedWeeks int         `json:"estimated_weeks"`
	EstimatedHours int         `json:"estimated_hours"`
	Feasibility    Feasibility `json:"feasibility"`
}

// StudentClassification bundles the band and subject levels of one scored student.
type StudentClassification struct {
	StudentID string                       `json:"student_id"`
	Band      GlobalBand                   `json:"band"`
	Levels    map[Subject]PerformanceLevel `json:"levels"`
	// Gap is set only when a target global score was requested.
	Gap *GapAnalysis `json:"gap,omitempty"`
}
