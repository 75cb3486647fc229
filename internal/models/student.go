package models

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
)

const (
	areasKey       = "areas"
	globalScoreKey = "global_score"
)

// QuestionOutcome is a single answered question within a subject.
type QuestionOutcome struct {
	ID        string `json:"id,omitempty"`
	Label     string `json:"label,omitempty"`
	IsCorrect bool   `json:"isCorrect"`
	Value     string `json:"value,omitempty"`
}

// RawSubjectResult carries a student's raw answers for one subject.
// The correct count resolves from CorrectCount, then QuestionDetails, then RawCorrect.
type RawSubjectResult struct {
	CorrectCount    *int              `json:"correct_count,omitempty"`
	QuestionDetails []QuestionOutcome `json:"question_details,omitempty"`
	RawCorrect      *int              `json:"raw_correct,omitempty"`
	MaxStreak       *int              `json:"maxStreak,omitempty"`
}

// Correct returns the resolved number of correct answers.
func (r RawSubjectResult) Correct() int {
	switch {
	case r.CorrectCount != nil:
		return *r.CorrectCount
	case len(r.QuestionDetails) > 0:
		n := 0
		for _, q := range r.QuestionDetails {
			if q.IsCorrect {
				n++
			}
		}
		return n
	case r.RawCorrect != nil:
		return *r.RawCorrect
	}
	return 0
}

// Streak returns the longest run of consecutive correct answers, zero when absent.
func (r RawSubjectResult) Streak() int {
	if r.MaxStreak == nil {
		return 0
	}
	return *r.MaxStreak
}

// UnmarshalJSON decodes leniently: fields holding unexpected types are treated as absent
// so that one malformed entry never rejects a whole student file.
func (r *RawSubjectResult) UnmarshalJSON(data []byte) error {
	*r = RawSubjectResult{}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil
	}
	r.CorrectCount = intField(fields["correct_count"])
	r.RawCorrect = intField(fields["raw_correct"])
	r.MaxStreak = intField(fields["maxStreak"])
	r.QuestionDetails = questionsField(fields["question_details"])
	return nil
}

// StudentRecord is an input student: opaque metadata fields plus raw per-subject results.
type StudentRecord struct {
	Fields map[string]json.RawMessage
	Areas  map[Subject]RawSubjectResult
}

// NewStudentRecord builds a record carrying id and name metadata.
func NewStudentRecord(id, name string) StudentRecord {
	rec := StudentRecord{
		Fields: make(map[string]json.RawMessage),
		Areas:  make(map[Subject]RawSubjectResult),
	}
	_ = rec.SetField("id", id)
	_ = rec.SetField("name", name)
	return rec
}

// SetField stores value as a metadata field.
func (r *StudentRecord) SetField(key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if r.Fields == nil {
		r.Fields = make(map[string]json.RawMessage)
	}
	r.Fields[key] = raw
	return nil
}

// ID returns the textual id metadata, if any.
func (r StudentRecord) ID() string {
	return textField(r.Fields["id"])
}

// Name returns the textual name metadata, if any.
func (r StudentRecord) Name() string {
	return textField(r.Fields["name"])
}

// UnmarshalJSON keeps every top-level field verbatim and decodes areas by subject.
// Area keys that match no subject are dropped. Anything other than an object decodes as an
// empty record, which scores zero in every subject.
func (r *StudentRecord) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if !IsJSONObject(data) || json.Unmarshal(data, &fields) != nil {
		fields = nil
	}
	rec := StudentRecord{
		Fields: make(map[string]json.RawMessage, len(fields)),
		Areas:  decodeAreas(fields[areasKey]),
	}
	for key, value := range fields {
		if key == areasKey {
			continue
		}
		rec.Fields[key] = value
	}
	*r = rec
	return nil
}

// MarshalJSON writes the metadata fields back with areas keyed by canonical subject.
func (r StudentRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(r.Fields)+1)
	for key, value := range r.Fields {
		out[key] = value
	}
	areas := make(map[string]RawSubjectResult, len(r.Areas))
	for subject, result := range r.Areas {
		areas[string(subject)] = result
	}
	out[areasKey] = areas
	return json.Marshal(out)
}

// SubjectScore is the scored view of one subject.
type SubjectScore struct {
	Score          int `json:"score"`
	RawCorrect     int `json:"raw_correct"`
	MaxStreak      int `json:"maxStreak"`
	TotalQuestions int `json:"total_questions"`
	Percentage     int `json:"percentage"`
}

// ScoredStudent is the enriched output record.
type ScoredStudent struct {
	Fields      map[string]json.RawMessage
	Areas       map[Subject]SubjectScore
	GlobalScore int
}

// ID returns the textual id metadata, if any.
func (s ScoredStudent) ID() string {
	return textField(s.Fields["id"])
}

// Name returns the textual name metadata, if any.
func (s ScoredStudent) Name() string {
	return textField(s.Fields["name"])
}

// Score returns the 0-100 score of subject, zero when unscored.
func (s ScoredStudent) Score(subject Subject) int {
	return s.Areas[subject].Score
}

// SubjectScores returns the plain subject to score mapping.
func (s ScoredStudent) SubjectScores() map[Subject]int {
	out := make(map[Subject]int, len(s.Areas))
	for subject, score := range s.Areas {
		out[subject] = score.Score
	}
	return out
}

// MarshalJSON emits metadata, the scored areas, one convenience field per subject and global_score.
func (s ScoredStudent) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(s.Fields)+7)
	for key, value := range s.Fields {
		out[key] = value
	}
	areas := make(map[string]SubjectScore, len(s.Areas))
	for subject, score := range s.Areas {
		areas[string(subject)] = score
	}
	out[areasKey] = areas
	for _, subject := range Subjects() {
		out[subject.ScoreKey()] = s.Areas[subject].Score
	}
	out[globalScoreKey] = s.GlobalScore
	return json.Marshal(out)
}

// UnmarshalJSON reads a record produced by MarshalJSON.
func (s *ScoredStudent) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	out := ScoredStudent{
		Fields: make(map[string]json.RawMessage, len(fields)),
		Areas:  make(map[Subject]SubjectScore),
	}
	reserved := map[string]bool{areasKey: true, globalScoreKey: true}
	for _, subject := range Subjects() {
		reserved[subject.ScoreKey()] = true
	}
	for key, value := range fields {
		if !reserved[key] {
			out.Fields[key] = value
		}
	}
	var areas map[string]SubjectScore
	if raw, ok := fields[areasKey]; ok {
		if err := json.Unmarshal(raw, &areas); err != nil {
			return err
		}
	}
	for key, score := range areas {
		if subject, ok := ParseSubject(key); ok {
			out.Areas[subject] = score
		}
	}
	if raw, ok := fields[globalScoreKey]; ok {
		if err := json.Unmarshal(raw, &out.GlobalScore); err != nil {
			return err
		}
	}
	*s = out
	return nil
}

func decodeAreas(raw json.RawMessage) map[Subject]RawSubjectResult {
	areas := make(map[Subject]RawSubjectResult)
	if len(raw) == 0 {
		return areas
	}
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return areas
	}
	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		subject, ok := ParseSubject(key)
		if !ok {
			continue
		}
		// canonical keys win over legacy aliases of the same subject
		if _, seen := areas[subject]; seen && !IsCanonicalKey(key) {
			continue
		}
		var result RawSubjectResult
		_ = json.Unmarshal(entries[key], &result)
		areas[subject] = result
	}
	return areas
}

// IsJSONObject reports whether data holds a JSON object.
func IsJSONObject(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

func intField(raw json.RawMessage) *int {
	if len(raw) == 0 {
		return nil
	}
	var f *float64
	if err := json.Unmarshal(raw, &f); err != nil || f == nil {
		return nil
	}
	if *f >= float64(math.MaxInt) || *f < float64(math.MinInt) {
		return nil
	}
	n := int(*f)
	return &n
}

func questionsField(raw json.RawMessage) []QuestionOutcome {
	if len(raw) == 0 {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	out := make([]QuestionOutcome, 0, len(items))
	for _, item := range items {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(item, &fields); err != nil {
			out = append(out, QuestionOutcome{})
			continue
		}
		out = append(out, QuestionOutcome{
			ID:        textField(fields["id"]),
			Label:     textField(fields["label"]),
			IsCorrect: truthy(fields["isCorrect"]),
			Value:     textField(fields["value"]),
		})
	}
	return out
}

func textField(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// truthy follows loose spreadsheet semantics: false, null, 0 and "" are false.
func truthy(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case float64:
		return val != 0
	case string:
		return val != ""
	default:
		return true
	}
}
