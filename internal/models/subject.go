package models

import "strings"

// Subject identifies one of the fixed exam areas.
type Subject string

const (
	SubjectMath            Subject = "math"
	SubjectCriticalReading Subject = "critical_reading"
	SubjectNaturalSciences Subject = "natural_sciences"
	SubjectSocialStudies   Subject = "social_studies"
	SubjectEnglish         Subject = "english"
)

// SubjectInfo holds the static attributes of a subject.
type SubjectInfo struct {
	Subject        Subject `json:"subject"`
	Label          string  `json:"label"`
	Weight         int     `json:"weight"`
	TotalQuestions int     `json:"total_questions"`
}

var subjectTable = [...]SubjectInfo{
	{Subject: SubjectMath, Label: "Matemáticas", Weight: 3, TotalQuestions: 25},
	{Subject: SubjectCriticalReading, Label: "Lectura Crítica", Weight: 3, TotalQuestions: 25},
	{Subject: SubjectNaturalSciences, Label: "Ciencias Naturales", Weight: 3, TotalQuestions: 25},
	{Subject: SubjectSocialStudies, Label: "Sociales y Ciudadanas", Weight: 3, TotalQuestions: 25},
	{Subject: SubjectEnglish, Label: "Inglés", Weight: 1, TotalQuestions: 30},
}

// subjectAliases maps legacy spreadsheet keys onto subjects.
var subjectAliases = map[string]Subject{
	"matematicas":           SubjectMath,
	"lectura critica":       SubjectCriticalReading,
	"lectura_critica":       SubjectCriticalReading,
	"ciencias naturales":    SubjectNaturalSciences,
	"ciencias_naturales":    SubjectNaturalSciences,
	"sociales y ciudadanas": SubjectSocialStudies,
	"sociales_ciudadanas":   SubjectSocialStudies,
	"ingles":                SubjectEnglish,
}

// Subjects returns the fixed subject set in reporting order.
func Subjects() []Subject {
	out := make([]Subject, len(subjectTable))
	for i, info := range subjectTable {
		out[i] = info.Subject
	}
	return out
}

// InfoFor returns the static attributes for s.
func InfoFor(s Subject) (SubjectInfo, bool) {
	for _, info := range subjectTable {
		if info.Subject == s {
			return info, true
		}
	}
	return SubjectInfo{}, false
}

// TotalWeight is the sum of all subject weights.
func TotalWeight() int {
	total := 0
	for _, info := range subjectTable {
		total += info.Weight
	}
	return total
}

// ParseSubject resolves a canonical key or a legacy alias, ignoring case and surrounding space.
func ParseSubject(key string) (Subject, bool) {
	normalized := strings.ToLower(strings.TrimSpace(key))
	if _, ok := InfoFor(Subject(normalized)); ok {
		return Subject(normalized), true
	}
	s, ok := subjectAliases[normalized]
	return s, ok
}

// IsCanonicalKey reports whether key is spelled exactly as a canonical subject.
func IsCanonicalKey(key string) bool {
	_, ok := InfoFor(Subject(key))
	return ok
}

// Weight returns the relative weight of s in the global score.
func (s Subject) Weight() int {
	info, _ := InfoFor(s)
	return info.Weight
}

// TotalQuestions returns the fixed question count of s.
func (s Subject) TotalQuestions() int {
	info, _ := InfoFor(s)
	return info.TotalQuestions
}

// Label returns the display name of s.
func (s Subject) Label() string {
	info, ok := InfoFor(s)
	if !ok {
		return string(s)
	}
	return info.Label
}

// ScoreKey is the name of the convenience score field on scored records.
func (s Subject) ScoreKey() string {
	return string(s) + "_score"
}
