package web

import (
	"context"
	"image"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/classmark/classmark/internal/backup"
	"github.com/classmark/classmark/internal/config"
	"github.com/classmark/classmark/internal/ledger"
	"github.com/classmark/classmark/internal/recognizer"
	"github.com/classmark/classmark/internal/registry"
	"github.com/classmark/classmark/internal/session"
	"github.com/classmark/classmark/internal/store"
)

type noopSource struct{}

func (noopSource) Read(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return image.NewRGBA(image.Rect(0, 0, 8, 8)), nil
}

func (noopSource) Close() error { return nil }

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()

	validator := registry.NewValidator([]string{"CSE", "AIML"}, []string{"A", "B"})
	reg := registry.New(store.NewMemory(), store.NewMemorySamples(), validator)

	led, err := ledger.NewCSV(filepath.Join(dir, "attendance.csv"))
	if err != nil {
		t.Fatalf("creating ledger: %v", err)
	}
	backups, err := backup.NewManager(filepath.Join(dir, "backups"), 5)
	if err != nil {
		t.Fatalf("creating backup manager: %v", err)
	}

	sessions := session.NewManager(session.ManagerConfig{
		Registry:      reg,
		Ledger:        led,
		Detector:      recognizer.NewVarianceDetector(),
		Model:         func() (recognizer.Predictor, error) { return nil, recognizer.ErrInsufficientData },
		Source:        func() (session.FrameSource, error) { return noopSource{}, nil },
		Cooldown:      5 * time.Second,
		FrameInterval: 50 * time.Millisecond,
		ReadTimeout:   time.Second,
		BatchSize:     10,
	})

	cfg := &config.Config{
		Academics: config.AcademicsConfig{
			Branches: []string{"CSE", "AIML"},
			Sections: []string{"A", "B"},
		},
	}

	return NewServer(Deps{
		Config:   cfg,
		Registry: reg,
		Ledger:   led,
		Sessions: sessions,
		Backups:  backups,
	}, "127.0.0.1", 0)
}

func TestRoutes(t *testing.T) {
	server := newTestServer(t)

	cases := []struct {
		method string
		path   string
		want   int
	}{
		{"GET", "/api/v1/health", http.StatusOK},
		{"GET", "/api/v1/students", http.StatusOK},
		{"GET", "/api/v1/students/count", http.StatusOK},
		{"GET", "/api/v1/students/AIML001", http.StatusNotFound},
		{"GET", "/api/v1/attendance/today", http.StatusOK},
		{"GET", "/api/v1/attendance/export", http.StatusOK},
		{"GET", "/api/v1/classes/summary", http.StatusOK},
		{"GET", "/api/v1/backup", http.StatusOK},
		{"GET", "/api/v1/nope", http.StatusNotFound},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		recorder := httptest.NewRecorder()
		server.Router().ServeHTTP(recorder, req)
		if recorder.Code != tc.want {
			t.Errorf("%s %s: expected %d, got %d", tc.method, tc.path, tc.want, recorder.Code)
		}
	}
}

func TestStartWithoutModelFailsPrecondition(t *testing.T) {
	server := newTestServer(t)

	body := strings.NewReader(`{"branch":"AIML","section":"A"}`)
	req := httptest.NewRequest("POST", "/api/v1/attendance/start", body)
	recorder := httptest.NewRecorder()
	server.Router().ServeHTTP(recorder, req)
	if recorder.Code != http.StatusPreconditionFailed {
		t.Errorf("expected 412 without a trained model, got %d", recorder.Code)
	}
}
