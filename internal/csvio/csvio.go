// Package csvio handles roster CSV bulk import and export. Imported rows run
// through the registry so the same uniqueness and format rules apply as for
// interactive enrollment; bad rows are collected, not fatal.
package csvio

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/classmark/classmark/internal/registry"
)

var importHeader = []string{"Name", "RollNo", "Branch", "Section"}

var exportHeader = []string{"Name", "RollNo", "Branch", "Section", "Samples", "Registered"}

// RowError is one rejected import row with its reason.
type RowError struct {
	Row    int
	RollNo string
	Err    error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d (%s): %v", e.Row, e.RollNo, e.Err)
}

// ImportResult summarizes one bulk import run.
type ImportResult struct {
	Imported int
	Skipped  int
	Errors   []RowError
}

// ImportRoster reads a roster CSV and enrolls each valid row without face
// samples. Students land with a zero sample count and need capture before
// they appear in any trained model's coverage.
func ImportRoster(ctx context.Context, reg *registry.Registry, r io.Reader) (*ImportResult, error) {
	cr := csv.NewReader(r)
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading roster CSV: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("roster CSV is empty")
	}

	cols, err := headerIndex(rows[0])
	if err != nil {
		return nil, err
	}

	result := &ImportResult{}
	for i, row := range rows[1:] {
		rowNum := i + 2

		student := registry.Student{
			Name:    field(row, cols["Name"]),
			RollNo:  field(row, cols["RollNo"]),
			Branch:  field(row, cols["Branch"]),
			Section: field(row, cols["Section"]),
		}
		if student.Name == "" || student.RollNo == "" || student.Branch == "" || student.Section == "" {
			result.Skipped++
			result.Errors = append(result.Errors, RowError{Row: rowNum, RollNo: student.RollNo, Err: fmt.Errorf("missing required fields")})
			continue
		}

		// Same-name collisions within a class are expected in bulk rosters,
		// so imports confirm them implicitly. Roll collisions still fail.
		if _, err := reg.Enroll(ctx, student, nil, true); err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, RowError{Row: rowNum, RollNo: student.RollNo, Err: err})
			continue
		}
		result.Imported++
	}
	return result, nil
}

// ExportRoster writes enrolled students as CSV, optionally one class only.
func ExportRoster(ctx context.Context, reg *registry.Registry, w io.Writer, class *registry.ClassKey) error {
	students, err := reg.List(ctx, class)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("writing roster header: %w", err)
	}
	for _, s := range students {
		row := []string{
			s.Name,
			s.RollNo,
			s.Branch,
			s.Section,
			strconv.Itoa(s.SampleCount),
			s.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing roster row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing roster export: %w", err)
	}
	return nil
}

// WriteTemplate writes a sample roster CSV for operators to fill in.
func WriteTemplate(w io.Writer) error {
	cw := csv.NewWriter(w)
	rows := [][]string{
		importHeader,
		{"John Doe", "AIML001", "AIML", "A"},
		{"Jane Smith", "AIML002", "AIML", "A"},
		{"Mike Johnson", "CSE001", "CSE", "B"},
	}
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing template: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing template: %w", err)
	}
	return nil
}

func headerIndex(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, required := range importHeader {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("roster CSV must have headers %s, missing %q",
				strings.Join(importHeader, ", "), required)
		}
	}
	return cols, nil
}

func field(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
