package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/classmark/classmark/internal/ledger"
	"github.com/classmark/classmark/internal/recognizer"
	"github.com/classmark/classmark/internal/session"
)

// AttendanceHandler handles live session control and ledger queries.
type AttendanceHandler struct {
	sessions *session.Manager
	ledger   *ledger.CSV
}

func NewAttendanceHandler(sessions *session.Manager, led *ledger.CSV) *AttendanceHandler {
	return &AttendanceHandler{sessions: sessions, ledger: led}
}

type startRequest struct {
	Branch  string `json:"branch"`
	Section string `json:"section"`
}

type sessionResponse struct {
	SessionID string `json:"session_id"`
	Class     string `json:"class"`
	State     string `json:"state"`
	StartedAt string `json:"started_at"`
	// UncoveredRolls warns about enrolled students the current model cannot
	// recognize; retraining clears it.
	UncoveredRolls []string `json:"uncovered_rolls,omitempty"`
}

// Start handles POST /attendance/start.
func (h *AttendanceHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	class, err := parseClassBody(req.Branch, req.Section)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := h.sessions.Start(r.Context(), *class)
	switch {
	case errors.Is(err, session.ErrSessionAlreadyActive):
		respondError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, session.ErrCameraUnavailable):
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	case errors.Is(err, recognizer.ErrInsufficientData):
		respondError(w, http.StatusPreconditionFailed, "no trained model, run training first")
		return
	case err != nil:
		log.Printf("starting session: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to start session")
		return
	}

	respondJSON(w, http.StatusCreated, sessionResponse{
		SessionID:      sess.ID,
		Class:          sess.Class.String(),
		State:          sess.State().String(),
		StartedAt:      sess.StartedAt.Format(time.RFC3339),
		UncoveredRolls: sess.Uncovered,
	})
}

type stopRequest struct {
	SessionID string `json:"session_id"`
}

// Stop handles POST /attendance/stop. A session that died on a camera
// failure still stops cleanly; the failure is reported in the response.
func (h *AttendanceHandler) Stop(w http.ResponseWriter, r *http.Request) {
	var req stopRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	err := h.sessions.Stop(req.SessionID)
	if errors.Is(err, session.ErrNoActiveSession) {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	resp := map[string]string{"session_id": req.SessionID, "state": session.StateStopped.String()}
	if err != nil {
		resp["warning"] = err.Error()
	}
	respondJSON(w, http.StatusOK, resp)
}

// Live handles GET /attendance/live.
func (h *AttendanceHandler) Live(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("session_id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	present, total, err := h.sessions.LiveCount(r.Context(), id)
	if errors.Is(err, session.ErrNoActiveSession) {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to read live counts")
		return
	}

	state := session.StateStopped
	if sess := h.sessions.Active(); sess != nil && sess.ID == id {
		state = sess.State()
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"present": present,
		"total":   total,
		"state":   state.String(),
	})
}

type eventResponse struct {
	RollNo     string  `json:"roll_no"`
	Name       string  `json:"name"`
	Class      string  `json:"class"`
	Date       string  `json:"date"`
	Time       string  `json:"time"`
	Confidence float64 `json:"confidence"`
}

// Today handles GET /attendance/today with an optional class filter.
func (h *AttendanceHandler) Today(w http.ResponseWriter, r *http.Request) {
	class, err := parseClassQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	today := time.Now()
	events, err := h.ledger.Query(r.Context(), class, &today)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to read ledger")
		return
	}

	out := make([]eventResponse, len(events))
	for i, e := range events {
		out[i] = eventResponse{
			RollNo:     e.RollNo,
			Name:       e.Name,
			Class:      e.Class().String(),
			Date:       e.Timestamp.Format("2006-01-02"),
			Time:       e.Timestamp.Format("15:04:05"),
			Confidence: e.Confidence,
		}
	}
	respondJSON(w, http.StatusOK, out)
}

// Export handles GET /attendance/export, streaming the ledger as CSV.
// Optional filters: branch+section, from, to (dates, inclusive).
func (h *AttendanceHandler) Export(w http.ResponseWriter, r *http.Request) {
	class, err := parseClassQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	from, err := parseDateQuery(r, "from", false)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	to, err := parseDateQuery(r, "to", true)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=attendance_%s.csv", time.Now().Format("20060102_150405")))

	if err := h.ledger.Export(r.Context(), w, class, from, to); err != nil {
		// Headers are gone; all that remains is logging.
		log.Printf("exporting attendance: %v", err)
	}
}

// parseDateQuery parses an optional YYYY-MM-DD query parameter. End-of-range
// dates cover the whole day.
func parseDateQuery(r *http.Request, name string, endOfDay bool) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid %s date %q, expected YYYY-MM-DD", name, raw)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Second)
	}
	return &t, nil
}
