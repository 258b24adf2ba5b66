package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/classmark/classmark/internal/ledger"
	"github.com/classmark/classmark/internal/registry"
	"github.com/classmark/classmark/internal/store"
)

// testRegistry creates an in-memory registry with a small academic setup.
func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	validator := registry.NewValidator([]string{"CSE", "AIML"}, []string{"A", "B"})
	return registry.New(store.NewMemory(), store.NewMemorySamples(), validator)
}

func testLedger(t *testing.T) *ledger.CSV {
	t.Helper()
	l, err := ledger.NewCSV(filepath.Join(t.TempDir(), "attendance.csv"))
	if err != nil {
		t.Fatalf("creating ledger: %v", err)
	}
	return l
}

// requestWithChiParams creates a request with chi URL parameters.
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, want int) {
	t.Helper()
	if recorder.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, recorder.Code, recorder.Body.String())
	}
}

func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, want string) {
	t.Helper()
	if got := recorder.Header().Get("Content-Type"); got != want {
		t.Errorf("expected content type %q, got %q", want, got)
	}
}

func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nbody: %s", err, recorder.Body.String())
	}
}

func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, wantSubstring string) {
	t.Helper()
	var resp map[string]string
	parseJSONResponse(t, recorder, &resp)
	if resp["error"] == "" {
		t.Fatalf("expected error field in response, got %v", resp)
	}
	if !strings.Contains(resp["error"], wantSubstring) {
		t.Errorf("expected error containing %q, got %q", wantSubstring, resp["error"])
	}
}
