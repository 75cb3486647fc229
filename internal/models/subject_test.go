package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubjectTable(t *testing.T) {
	assert.Equal(t, []Subject{SubjectMath, SubjectCriticalReading, SubjectNaturalSciences, SubjectSocialStudies, SubjectEnglish}, Subjects())
	assert.Equal(t, 13, TotalWeight())
	assert.Equal(t, 30, SubjectEnglish.TotalQuestions())
	assert.Equal(t, 1, SubjectEnglish.Weight())
	assert.Equal(t, 25, SubjectSocialStudies.TotalQuestions())
	assert.Equal(t, "math_score", SubjectMath.ScoreKey())
	assert.Equal(t, 0, Subject("art").Weight())
}

func TestParseSubject(t *testing.T) {
	tests := map[string]Subject{
		"math":                  SubjectMath,
		" English ":             SubjectEnglish,
		"matematicas":           SubjectMath,
		"Sociales y Ciudadanas": SubjectSocialStudies,
		"ciencias_naturales":    SubjectNaturalSciences,
	}
	for raw, want := range tests {
		got, ok := ParseSubject(raw)
		assert.True(t, ok, raw)
		assert.Equal(t, want, got, raw)
	}

	_, ok := ParseSubject("chemistry")
	assert.False(t, ok)
	assert.True(t, IsCanonicalKey("math"))
	assert.False(t, IsCanonicalKey("Math"))
}

func TestParseReportFormat(t *testing.T) {
	f, err := ParseReportFormat(" CSV ")
	assert.NoError(t, err)
	assert.Equal(t, ReportFormatCSV, f)
	assert.Equal(t, ".csv", f.Extension())

	_, err = ParseReportFormat("xlsx")
	assert.Error(t, err)
}
