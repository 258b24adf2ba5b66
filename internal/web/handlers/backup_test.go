package handlers

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/classmark/classmark/internal/backup"
)

func setupBackupTest(t *testing.T) (*BackupHandler, string) {
	t.Helper()
	dir := t.TempDir()

	studentsPath := filepath.Join(dir, "students.json")
	if err := os.WriteFile(studentsPath, []byte("{}"), 0o644); err != nil {
		t.Fatalf("writing students file: %v", err)
	}

	manager, err := backup.NewManager(filepath.Join(dir, "backups"), 5)
	if err != nil {
		t.Fatalf("creating backup manager: %v", err)
	}

	handler := NewBackupHandler(manager, []BackupTarget{
		{Store: "students", Path: func() string { return studentsPath }},
		{Store: "attendance", Path: func() string { return filepath.Join(dir, "attendance.csv") }},
	})
	return handler, dir
}

func TestBackupHandler_CreateAndList(t *testing.T) {
	handler, _ := setupBackupTest(t)

	req := httptest.NewRequest("POST", "/api/v1/backup", nil)
	recorder := httptest.NewRecorder()
	handler.Create(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var created map[string]string
	parseJSONResponse(t, recorder, &created)
	if created["students"] != "ok" {
		t.Errorf("expected students snapshot ok, got %q", created["students"])
	}
	// A missing attendance ledger is a no-op, not a failure.
	if created["attendance"] != "ok" {
		t.Errorf("expected attendance snapshot ok, got %q", created["attendance"])
	}

	req = httptest.NewRequest("GET", "/api/v1/backup", nil)
	recorder = httptest.NewRecorder()
	handler.List(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var listed map[string][]string
	parseJSONResponse(t, recorder, &listed)
	if len(listed["students"]) != 1 {
		t.Errorf("expected 1 students snapshot, got %d", len(listed["students"]))
	}
	if len(listed["attendance"]) != 0 {
		t.Errorf("expected no attendance snapshots, got %d", len(listed["attendance"]))
	}
}
