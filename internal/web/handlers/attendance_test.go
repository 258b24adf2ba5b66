package handlers

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/classmark/classmark/internal/ledger"
	"github.com/classmark/classmark/internal/recognizer"
	"github.com/classmark/classmark/internal/registry"
	"github.com/classmark/classmark/internal/session"
)

// fakeSource serves frames until the context is canceled.
type fakeSource struct{}

func (fakeSource) Read(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := range 8 {
		for x := range 8 {
			img.Set(x, y, color.Gray{Y: uint8(x * 30)})
		}
	}
	return img, nil
}

func (fakeSource) Close() error { return nil }

type fakeDetector struct{}

func (fakeDetector) Detect(frame image.Image) []image.Rectangle {
	return []image.Rectangle{frame.Bounds()}
}

type fakePredictor struct{ roll string }

func (p fakePredictor) Predict(ctx context.Context, face image.Image) (recognizer.Prediction, error) {
	return recognizer.Prediction{RollNo: p.roll, Distance: 0.1}, nil
}

func (p fakePredictor) Covers(rollNo string) bool { return rollNo == p.roll }

func testSessionManager(t *testing.T, reg *registry.Registry, led *ledger.CSV) *session.Manager {
	t.Helper()
	return session.NewManager(session.ManagerConfig{
		Registry:      reg,
		Ledger:        led,
		Detector:      fakeDetector{},
		Model:         func() (recognizer.Predictor, error) { return fakePredictor{roll: "AIML001"}, nil },
		Source:        func() (session.FrameSource, error) { return fakeSource{}, nil },
		Cooldown:      5 * time.Second,
		FrameInterval: time.Millisecond,
		ReadTimeout:   100 * time.Millisecond,
		BatchSize:     10,
	})
}

func setupAttendanceTest(t *testing.T) (*AttendanceHandler, *session.Manager, *ledger.CSV) {
	t.Helper()
	reg := testRegistry(t)
	enrollTestStudent(t, reg, "Rahul Kumar", "AIML001", "AIML", "A")
	enrollTestStudent(t, reg, "Priya Sharma", "AIML002", "AIML", "A")
	led := testLedger(t)
	manager := testSessionManager(t, reg, led)
	return NewAttendanceHandler(manager, led), manager, led
}

func TestAttendanceHandler_StartStop(t *testing.T) {
	handler, manager, _ := setupAttendanceTest(t)

	body := bytes.NewBufferString(`{"branch":"AIML","section":"A"}`)
	req := httptest.NewRequest("POST", "/api/v1/attendance/start", body)
	recorder := httptest.NewRecorder()
	handler.Start(recorder, req)

	assertStatusCode(t, recorder, http.StatusCreated)
	var resp sessionResponse
	parseJSONResponse(t, recorder, &resp)
	if resp.SessionID == "" || resp.Class != "AIML-A" {
		t.Fatalf("unexpected session response: %+v", resp)
	}

	// Second start conflicts.
	body = bytes.NewBufferString(`{"branch":"CSE","section":"B"}`)
	req = httptest.NewRequest("POST", "/api/v1/attendance/start", body)
	recorder = httptest.NewRecorder()
	handler.Start(recorder, req)
	assertStatusCode(t, recorder, http.StatusConflict)

	// Stop the running session.
	stopBody := bytes.NewBufferString(fmt.Sprintf(`{"session_id":%q}`, resp.SessionID))
	req = httptest.NewRequest("POST", "/api/v1/attendance/stop", stopBody)
	recorder = httptest.NewRecorder()
	handler.Stop(recorder, req)
	assertStatusCode(t, recorder, http.StatusOK)

	if sess := manager.Active(); sess != nil && sess.State() != session.StateStopped {
		t.Error("expected session to be stopped")
	}

	// Stopping again is a 404.
	stopBody = bytes.NewBufferString(fmt.Sprintf(`{"session_id":%q}`, resp.SessionID))
	req = httptest.NewRequest("POST", "/api/v1/attendance/stop", stopBody)
	recorder = httptest.NewRecorder()
	handler.Stop(recorder, req)
	assertStatusCode(t, recorder, http.StatusNotFound)
}

func TestAttendanceHandler_Start_MissingClass(t *testing.T) {
	handler, _, _ := setupAttendanceTest(t)

	body := bytes.NewBufferString(`{"branch":"AIML"}`)
	req := httptest.NewRequest("POST", "/api/v1/attendance/start", body)
	recorder := httptest.NewRecorder()
	handler.Start(recorder, req)

	assertStatusCode(t, recorder, http.StatusBadRequest)
}

func TestAttendanceHandler_Live(t *testing.T) {
	handler, manager, _ := setupAttendanceTest(t)

	sess, err := manager.Start(context.Background(), registry.ClassKey{Branch: "AIML", Section: "A"})
	if err != nil {
		t.Fatalf("starting session: %v", err)
	}
	defer manager.Stop(sess.ID)

	// The fake predictor keeps recognizing AIML001; wait for the mark.
	deadline := time.Now().Add(2 * time.Second)
	for {
		req := httptest.NewRequest("GET", "/api/v1/attendance/live?session_id="+sess.ID, nil)
		recorder := httptest.NewRecorder()
		handler.Live(recorder, req)
		assertStatusCode(t, recorder, http.StatusOK)

		var resp struct {
			Present int    `json:"present"`
			Total   int    `json:"total"`
			State   string `json:"state"`
		}
		parseJSONResponse(t, recorder, &resp)
		if resp.Total != 2 {
			t.Fatalf("expected total 2, got %d", resp.Total)
		}
		if resp.Present == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected present 1, still %d", resp.Present)
		}
		time.Sleep(5 * time.Millisecond)
	}

	// Unknown session is a 404.
	req := httptest.NewRequest("GET", "/api/v1/attendance/live?session_id=nope", nil)
	recorder := httptest.NewRecorder()
	handler.Live(recorder, req)
	assertStatusCode(t, recorder, http.StatusNotFound)
}

func TestAttendanceHandler_TodayAndExport(t *testing.T) {
	handler, _, led := setupAttendanceTest(t)

	now := time.Now()
	events := []ledger.Event{
		{RollNo: "AIML001", Name: "Rahul Kumar", Branch: "AIML", Section: "A", Timestamp: now, Confidence: 0.1},
		{RollNo: "CSE001", Name: "Amit Patel", Branch: "CSE", Section: "B", Timestamp: now, Confidence: 0.2},
		{RollNo: "AIML001", Name: "Rahul Kumar", Branch: "AIML", Section: "A", Timestamp: now.AddDate(0, 0, -1), Confidence: 0.1},
	}
	for _, e := range events {
		if err := led.Append(context.Background(), e); err != nil {
			t.Fatalf("seeding ledger: %v", err)
		}
	}

	req := httptest.NewRequest("GET", "/api/v1/attendance/today?branch=AIML&section=A", nil)
	recorder := httptest.NewRecorder()
	handler.Today(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var resp []eventResponse
	parseJSONResponse(t, recorder, &resp)
	if len(resp) != 1 || resp[0].RollNo != "AIML001" {
		t.Errorf("expected today's single AIML-A event, got %v", resp)
	}

	req = httptest.NewRequest("GET", "/api/v1/attendance/export", nil)
	recorder = httptest.NewRecorder()
	handler.Export(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	assertContentType(t, recorder, "text/csv")
	imported, err := ledger.Import(recorder.Body)
	if err != nil {
		t.Fatalf("parsing exported CSV: %v", err)
	}
	if len(imported) != 3 {
		t.Errorf("expected 3 exported events, got %d", len(imported))
	}

	// Bad date filter.
	req = httptest.NewRequest("GET", "/api/v1/attendance/export?from=30-08-2026", nil)
	recorder = httptest.NewRecorder()
	handler.Export(recorder, req)
	assertStatusCode(t, recorder, http.StatusBadRequest)
}
