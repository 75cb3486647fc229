package models

import (
	"fmt"
	"strings"
)

// ReportFormat enumerates supported export formats.
type ReportFormat string

const (
	ReportFormatJSON ReportFormat = "json"
	ReportFormatCSV  ReportFormat = "csv"
	ReportFormatPDF  ReportFormat = "pdf"
)

// ParseReportFormat normalises a user supplied format name.
func ParseReportFormat(raw string) (ReportFormat, error) {
	switch f := ReportFormat(strings.ToLower(strings.TrimSpace(raw))); f {
	case ReportFormatJSON, ReportFormatCSV, ReportFormatPDF:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported report format %q", raw)
	}
}

// Extension returns the file extension for the format.
func (f ReportFormat) Extension() string {
	return "." + string(f)
}
