package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/classmark/classmark/internal/registry"
)

func testStudent(roll string) *registry.Student {
	return &registry.Student{
		RollNo:      roll,
		Name:        "Rahul Kumar",
		Branch:      "AIML",
		Section:     "A",
		SampleCount: 5,
		CreatedAt:   time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC),
	}
}

func TestJSONFile_PutGetRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "students.json")
	js, err := NewJSONFile(path)
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	ctx := context.Background()

	if err := js.Put(ctx, testStudent("AIML001")); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	got, err := js.Get(ctx, "AIML001")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected student, got nil")
	}
	if got.Name != "Rahul Kumar" || got.SampleCount != 5 {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if !got.CreatedAt.Equal(testStudent("AIML001").CreatedAt) {
		t.Errorf("timestamp mismatch: %v", got.CreatedAt)
	}
}

func TestJSONFile_GetMissing(t *testing.T) {
	js, err := NewJSONFile(filepath.Join(t.TempDir(), "students.json"))
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}

	got, err := js.Get(context.Background(), "CSE999")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing roll, got %+v", got)
	}
}

func TestJSONFile_Delete(t *testing.T) {
	js, err := NewJSONFile(filepath.Join(t.TempDir(), "students.json"))
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	ctx := context.Background()

	if err := js.Put(ctx, testStudent("AIML001")); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	removed, err := js.Delete(ctx, "AIML001")
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if !removed {
		t.Error("expected delete to report true")
	}

	removed, err = js.Delete(ctx, "AIML001")
	if err != nil {
		t.Fatalf("second delete failed: %v", err)
	}
	if removed {
		t.Error("expected second delete to report false")
	}
}

func TestJSONFile_PersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "students.json")
	ctx := context.Background()

	js1, err := NewJSONFile(path)
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	if err := js1.Put(ctx, testStudent("AIML001")); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	if err := js1.Put(ctx, testStudent("AIML002")); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	js2, err := NewJSONFile(path)
	if err != nil {
		t.Fatalf("reopening store: %v", err)
	}
	students, err := js2.List(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(students) != 2 {
		t.Errorf("expected 2 students after reopen, got %d", len(students))
	}
}

func TestJSONFile_NoTempFileLeftBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "students.json")
	js, err := NewJSONFile(path)
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	if err := js.Put(context.Background(), testStudent("AIML001")); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("expected temp file to be renamed away")
	}
}

func TestDirSamples(t *testing.T) {
	ds, err := NewDirSamples(t.TempDir())
	if err != nil {
		t.Fatalf("creating sample store: %v", err)
	}
	ctx := context.Background()

	for i := range 3 {
		if err := ds.Save(ctx, "AIML001", []byte{byte(i + 1)}); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}
	if err := ds.Save(ctx, "CSE001", []byte{9}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	samples, err := ds.ListByRoll(ctx, "AIML001")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(samples) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(samples))
	}
	// Order is by filename, which follows insertion order.
	if samples[0][0] != 1 || samples[2][0] != 3 {
		t.Errorf("samples out of order: %v", samples)
	}

	all, err := ds.All(ctx)
	if err != nil {
		t.Fatalf("all failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 identities, got %d", len(all))
	}

	if err := ds.DeleteByRoll(ctx, "AIML001"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	samples, err = ds.ListByRoll(ctx, "AIML001")
	if err != nil {
		t.Fatalf("list after delete failed: %v", err)
	}
	if len(samples) != 0 {
		t.Errorf("expected no samples after delete, got %d", len(samples))
	}
}
