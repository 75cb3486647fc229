package models

import "time"

// GroupMarker summarises one scored batch for reporting layers.
type GroupMarker struct {
	BatchID          string              `json:"batch_id"`
	GeneratedAt      time.Time           `json:"generated_at"`
	TotalStudents    int                 `json:"total_students"`
	AverageGlobal    float64             `json:"average_global"`
	SubjectAverages  map[Subject]float64 `json:"subject_averages"`
	BandDistribution map[BandKey]int     `json:"band_distribution"`
}

// QuestionStat aggregates responses to a single question across a group.
type QuestionStat struct {
	QuestionID       string         `json:"question_id"`
	TotalAttempts    int            `json:"total_attempts"`
	CorrectResponses int            `json:"correct_responses"`
	CorrectRate      float64        `json:"correct_rate"`
	Distractors      map[string]int `json:"distractors"`
}

// QuestionStats groups question statistics by subject.
type QuestionStats map[Subject][]QuestionStat

// ScoringMetricsSnapshot is a plain view over the scoring instrumentation.
type ScoringMetricsSnapshot struct {
	BatchesTotal           uint64    `json:"batches_total"`
	StudentsTotal          uint64    `json:"students_total"`
	NormalizedInputsTotal  uint64    `json:"normalized_inputs_total"`
	AverageBatchDurationMs float64   `json:"average_batch_duration_ms"`
	GeneratedAt            time.Time `json:"generated_at"`
}
