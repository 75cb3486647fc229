package service

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/simulacro-scoring/internal/models"
	appErrors "github.com/noah-isme/simulacro-scoring/pkg/errors"
)

var (
	questionColumnPattern = regexp.MustCompile(`^P(\d+)$`)
	nonAlphanumeric       = regexp.MustCompile(`[^a-zA-Z0-9]`)
)

// scoreColumns are the spellings of the "correct/total" column in sheet exports.
var scoreColumns = [...]string{"PUNTUACIÓN", "Puntuación"}

// DefaultSheetFiles returns the export file name of each subject sheet.
func DefaultSheetFiles() map[models.Subject]string {
	return map[models.Subject]string{
		models.SubjectMath:            "CENTRALIZADOR DE DATOS - 1. MATEMÁTICAS.csv",
		models.SubjectCriticalReading: "CENTRALIZADOR DE DATOS - 2. LECTURA CRÍTICA.csv",
		models.SubjectNaturalSciences: "CENTRALIZADOR DE DATOS - 3. CIENCIAS NATURALES.csv",
		models.SubjectSocialStudies:   "CENTRALIZADOR DE DATOS - 4. SOCIALES Y CIUDADANAS.csv",
		models.SubjectEnglish:         "CENTRALIZADOR DE DATOS - 5. INGLÉS.csv",
	}
}

// SheetRow identifies a student row before it is accepted.
type SheetRow struct {
	ID   string `validate:"required,alphanum"`
	Name string `validate:"required"`
}

// IngestService loads student records from JSON files or per-subject sheet exports.
type IngestService struct {
	files     map[models.Subject]string
	validator *validator.Validate
	logger    *zap.Logger
}

// NewIngestService constructs IngestService. A nil files map uses DefaultSheetFiles.
func NewIngestService(files map[models.Subject]string, validate *validator.Validate, logger *zap.Logger) *IngestService {
	defaults := DefaultSheetFiles()
	for subject, name := range files {
		if name != "" {
			defaults[subject] = name
		}
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestService{files: defaults, validator: validate, logger: logger}
}

// LoadJSON reads student records from a JSON file.
func (s *IngestService) LoadJSON(path string) ([]models.StudentRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, "student file not found")
		}
		return nil, fmt.Errorf("read student file: %w", err)
	}
	return s.DecodeJSON(bytes.NewReader(data))
}

// DecodeJSON accepts either a JSON array of students or an object with a "students" array.
func (s *IngestService) DecodeJSON(r io.Reader) ([]models.StudentRecord, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidInput.Code, "decode student json")
	}
	trimmed := bytes.TrimSpace(raw)
	if bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var envelope struct {
			Students json.RawMessage `json:"students"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInvalidInput.Code, "decode student envelope")
		}
		if len(envelope.Students) == 0 {
			return nil, appErrors.Clone(appErrors.ErrInvalidInput, "student envelope has no students array")
		}
		trimmed = envelope.Students
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(trimmed, &entries); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidInput.Code, "decode students")
	}
	if entries == nil {
		return nil, nil
	}

	students := make([]models.StudentRecord, len(entries))
	for i, entry := range entries {
		if !models.IsJSONObject(entry) {
			s.logger.Warn("student entry is not an object, scoring it as empty",
				zap.Int("index", i),
				zap.String("kind", jsonKind(entry)),
			)
		}
		if err := json.Unmarshal(entry, &students[i]); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInvalidInput.Code, fmt.Sprintf("decode student %d", i))
		}
	}
	s.logger.Info("students decoded", zap.Int("count", len(students)))
	return students, nil
}

func jsonKind(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "empty"
	}
	switch trimmed[0] {
	case '{':
		return "object"
	case '[':
		return "array"
	case '"':
		return "string"
	case 't', 'f':
		return "bool"
	case 'n':
		return "null"
	default:
		return "number"
	}
}

// LoadSheets reads every subject sheet found in dir and merges rows by student id.
// Missing sheets are skipped; a directory with none of them is an error.
func (s *IngestService) LoadSheets(dir string) ([]models.StudentRecord, error) {
	var (
		order   []string
		byID    = make(map[string]*models.StudentRecord)
		matched int
	)
	for _, subject := range models.Subjects() {
		path := filepath.Join(dir, s.files[subject])
		file, err := os.Open(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				s.logger.Warn("sheet not found, skipping", zap.String("subject", string(subject)), zap.String("path", path))
				continue
			}
			return nil, fmt.Errorf("open sheet %s: %w", path, err)
		}
		rows, err := s.ParseSheet(subject, file)
		_ = file.Close()
		if err != nil {
			return nil, err
		}
		matched++
		for _, row := range rows {
			rec, ok := byID[row.ID]
			if !ok {
				fresh := models.NewStudentRecord(row.ID, row.Name)
				_ = fresh.SetField("role", "student")
				rec = &fresh
				byID[row.ID] = rec
				order = append(order, row.ID)
			}
			rec.Areas[subject] = row.Result
		}
	}
	if matched == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("no subject sheets found in %s", dir))
	}

	students := make([]models.StudentRecord, 0, len(order))
	for _, id := range order {
		students = append(students, *byID[id])
	}
	s.logger.Info("sheets loaded", zap.Int("sheets", matched), zap.Int("students", len(students)))
	return students, nil
}

// ParsedSheetRow is one accepted student row of a subject sheet.
type ParsedSheetRow struct {
	ID     string
	Name   string
	Result models.RawSubjectResult
}

// ParseSheet reads a subject sheet export. Rows without an id or name, or whose id is an
// email address, are skipped.
func (s *IngestService) ParseSheet(subject models.Subject, r io.Reader) ([]ParsedSheetRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidInput.Code, fmt.Sprintf("parse %s sheet", subject))
	}
	if len(records) == 0 {
		return nil, nil
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	questions := questionColumns(headers)

	rows := make([]ParsedSheetRow, 0, len(records)-1)
	for line, record := range records[1:] {
		if isBlankRecord(record) {
			continue
		}
		cells := make(map[string]string, len(headers))
		for i, header := range headers {
			if i < len(record) {
				cells[header] = strings.TrimSpace(record[i])
			}
		}

		rawID, name := cells["ID"], cells["NOMBRE"]
		if rawID == "" || name == "" || rawID == "nan" {
			continue
		}
		if strings.Contains(rawID, "@") {
			s.logger.Warn("skipping row with email id", zap.String("subject", string(subject)), zap.Int("line", line+2))
			continue
		}
		row := SheetRow{ID: nonAlphanumeric.ReplaceAllString(rawID, ""), Name: name}
		if err := s.validator.Struct(row); err != nil {
			s.logger.Warn("skipping invalid row",
				zap.String("subject", string(subject)),
				zap.Int("line", line+2),
				zap.String("code", appErrors.ErrValidation.Code),
				zap.Error(err),
			)
			continue
		}

		rows = append(rows, ParsedSheetRow{ID: row.ID, Name: row.Name, Result: sheetResult(cells, questions)})
	}
	return rows, nil
}

func sheetResult(cells map[string]string, questions []string) models.RawSubjectResult {
	details := make([]models.QuestionOutcome, 0, len(questions))
	streak, maxStreak, anyCorrect := 0, 0, false
	for _, q := range questions {
		correct := isCorrectFeedback(cells["FB_"+q])
		details = append(details, models.QuestionOutcome{ID: q, Label: q, IsCorrect: correct, Value: cells[q]})
		if correct {
			anyCorrect = true
			streak++
			maxStreak = max(maxStreak, streak)
		} else {
			streak = 0
		}
	}

	result := models.RawSubjectResult{MaxStreak: &maxStreak}
	if len(details) > 0 {
		result.QuestionDetails = details
	}
	if anyCorrect {
		return result
	}
	// without any feedback marked correct the sheet score is the only count available
	if correct, ok := sheetScore(cells); ok {
		result.CorrectCount = &correct
	}
	return result
}

func sheetScore(cells map[string]string) (int, bool) {
	for _, column := range scoreColumns {
		value := cells[column]
		if !strings.Contains(value, "/") {
			continue
		}
		correct, err := strconv.Atoi(strings.TrimSpace(strings.SplitN(value, "/", 2)[0]))
		if err != nil {
			continue
		}
		return correct, true
	}
	return 0, false
}

func isCorrectFeedback(feedback string) bool {
	if feedback == "" {
		return false
	}
	lower := strings.ToLower(feedback)
	if strings.Contains(feedback, "❌") || strings.Contains(lower, "incorrect") {
		return false
	}
	return strings.Contains(feedback, "✅") ||
		strings.Contains(feedback, "✓") ||
		feedback == "1" ||
		strings.Contains(lower, "correct")
}

func questionColumns(headers []string) []string {
	type column struct {
		name string
		n    int
	}
	var cols []column
	for _, header := range headers {
		m := questionColumnPattern.FindStringSubmatch(header)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		cols = append(cols, column{name: header, n: n})
	}
	sort.SliceStable(cols, func(i, j int) bool { return cols[i].n < cols[j].n })
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.name
	}
	return out
}

func isBlankRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
