package csvio

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/classmark/classmark/internal/registry"
	"github.com/classmark/classmark/internal/store"
)

func newTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	validator := registry.NewValidator([]string{"CSE", "AIML", "ECE"}, []string{"A", "B"})
	return registry.New(store.NewMemory(), store.NewMemorySamples(), validator)
}

func TestImportRoster(t *testing.T) {
	reg := newTestRegistry(t)
	input := strings.Join([]string{
		"Name,RollNo,Branch,Section",
		"John Doe,AIML001,AIML,A",
		"Jane Smith,AIML002,AIML,A",
		"Mike Johnson,CSE001,CSE,B",
	}, "\n")

	result, err := ImportRoster(context.Background(), reg, strings.NewReader(input))
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if result.Imported != 3 || result.Skipped != 0 {
		t.Errorf("expected 3 imported, 0 skipped; got %d/%d", result.Imported, result.Skipped)
	}

	count, err := reg.Count(context.Background(), nil)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 enrolled students, got %d", count)
	}

	s, err := reg.Get(context.Background(), "AIML001")
	if err != nil || s == nil {
		t.Fatalf("expected AIML001 enrolled, got %v, %v", s, err)
	}
	if s.SampleCount != 0 {
		t.Errorf("imported student must have no samples, got %d", s.SampleCount)
	}
}

func TestImportRoster_CollectsRowErrors(t *testing.T) {
	reg := newTestRegistry(t)
	if _, err := reg.Enroll(context.Background(), registry.Student{
		Name: "Existing Student", RollNo: "AIML001", Branch: "AIML", Section: "A",
	}, nil, false); err != nil {
		t.Fatalf("seeding registry: %v", err)
	}

	input := strings.Join([]string{
		"Name,RollNo,Branch,Section",
		"John Doe,AIML001,AIML,A",   // duplicate roll
		"Jane Smith,AIML002,MATH,A", // invalid branch
		",AIML003,AIML,A",           // missing name
		"Mike Johnson,CSE001,CSE,B", // valid
	}, "\n")

	result, err := ImportRoster(context.Background(), reg, strings.NewReader(input))
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if result.Imported != 1 {
		t.Errorf("expected 1 imported, got %d", result.Imported)
	}
	if result.Skipped != 3 || len(result.Errors) != 3 {
		t.Fatalf("expected 3 skipped rows with errors, got %d/%d", result.Skipped, len(result.Errors))
	}

	if !errors.Is(result.Errors[0].Err, registry.ErrDuplicateRoll) {
		t.Errorf("row 2: expected ErrDuplicateRoll, got %v", result.Errors[0].Err)
	}
	if !errors.Is(result.Errors[1].Err, registry.ErrInvalidFormat) {
		t.Errorf("row 3: expected ErrInvalidFormat, got %v", result.Errors[1].Err)
	}
	if result.Errors[2].Row != 4 {
		t.Errorf("expected error rows to carry row numbers, got %d", result.Errors[2].Row)
	}
}

func TestImportRoster_RejectsBadHeader(t *testing.T) {
	reg := newTestRegistry(t)
	input := "Name,Roll,Branch,Section\nJohn Doe,AIML001,AIML,A\n"

	if _, err := ImportRoster(context.Background(), reg, strings.NewReader(input)); err == nil {
		t.Error("expected error for missing RollNo header")
	}
}

func TestExportRoster(t *testing.T) {
	reg := newTestRegistry(t)
	students := []registry.Student{
		{Name: "John Doe", RollNo: "AIML001", Branch: "AIML", Section: "A"},
		{Name: "Mike Johnson", RollNo: "CSE001", Branch: "CSE", Section: "B"},
	}
	for _, s := range students {
		if _, err := reg.Enroll(context.Background(), s, nil, false); err != nil {
			t.Fatalf("seeding registry: %v", err)
		}
	}

	var buf bytes.Buffer
	if err := ExportRoster(context.Background(), reg, &buf, nil); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "Name,RollNo,Branch,Section") {
		t.Errorf("unexpected header: %s", lines[0])
	}
	if !strings.HasPrefix(lines[1], "John Doe,AIML001") {
		t.Errorf("expected roll-number order, got %s", lines[1])
	}

	// Class filter narrows the export.
	class := registry.ClassKey{Branch: "CSE", Section: "B"}
	buf.Reset()
	if err := ExportRoster(context.Background(), reg, &buf, &class); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if got := strings.Count(buf.String(), "\n"); got != 2 {
		t.Errorf("expected header plus 1 row, got %d lines", got)
	}
}

func TestTemplateRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTemplate(&buf); err != nil {
		t.Fatalf("template failed: %v", err)
	}

	reg := newTestRegistry(t)
	result, err := ImportRoster(context.Background(), reg, &buf)
	if err != nil {
		t.Fatalf("importing template failed: %v", err)
	}
	if result.Imported != 3 {
		t.Errorf("expected template rows to import cleanly, got %d of 3", result.Imported)
	}
}
