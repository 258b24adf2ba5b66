package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/classmark/classmark/internal/registry"
)

// StudentsHandler handles enrollment endpoints.
type StudentsHandler struct {
	registry *registry.Registry
}

func NewStudentsHandler(reg *registry.Registry) *StudentsHandler {
	return &StudentsHandler{registry: reg}
}

type enrollRequest struct {
	Name    string `json:"name"`
	RollNo  string `json:"roll_no"`
	Branch  string `json:"branch"`
	Section string `json:"section"`

	// Samples are base64-encoded face images captured client-side.
	Samples []string `json:"samples"`

	// ConfirmDuplicateName admits a student whose name collides with an
	// existing student in the same class. Roll collisions always fail.
	ConfirmDuplicateName bool `json:"confirm_duplicate_name"`
}

type studentResponse struct {
	RollNo      string `json:"roll_no"`
	Name        string `json:"name"`
	Branch      string `json:"branch"`
	Section     string `json:"section"`
	Class       string `json:"class"`
	SampleCount int    `json:"sample_count"`
	CreatedAt   string `json:"created_at"`
}

func toStudentResponse(s *registry.Student) studentResponse {
	return studentResponse{
		RollNo:      s.RollNo,
		Name:        s.Name,
		Branch:      s.Branch,
		Section:     s.Section,
		Class:       s.Class().String(),
		SampleCount: s.SampleCount,
		CreatedAt:   s.CreatedAt.Format(time.RFC3339),
	}
}

// Enroll handles POST /students.
func (h *StudentsHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	var req enrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	samples := make([][]byte, 0, len(req.Samples))
	for i, encoded := range req.Samples {
		data, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("sample %d is not valid base64", i))
			return
		}
		samples = append(samples, data)
	}

	student, err := h.registry.Enroll(r.Context(), registry.Student{
		Name:    req.Name,
		RollNo:  req.RollNo,
		Branch:  req.Branch,
		Section: req.Section,
	}, samples, req.ConfirmDuplicateName)
	switch {
	case errors.Is(err, registry.ErrInvalidFormat):
		respondError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, registry.ErrDuplicateRoll), errors.Is(err, registry.ErrDuplicateName):
		respondError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		log.Printf("enrollment failed: %v", err)
		respondError(w, http.StatusInternalServerError, "enrollment failed")
		return
	}

	log.Printf("enrolled %s (%s) in %s", sanitizeForLog(student.Name), student.RollNo, student.Class())
	respondJSON(w, http.StatusCreated, toStudentResponse(student))
}

// List handles GET /students with an optional class filter.
func (h *StudentsHandler) List(w http.ResponseWriter, r *http.Request) {
	class, err := parseClassQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	students, err := h.registry.List(r.Context(), class)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list students")
		return
	}

	out := make([]studentResponse, len(students))
	for i := range students {
		out[i] = toStudentResponse(&students[i])
	}
	respondJSON(w, http.StatusOK, out)
}

// Get handles GET /students/{roll}.
func (h *StudentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	roll := chi.URLParam(r, "roll")
	student, err := h.registry.Get(r.Context(), strings.ToUpper(roll))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load student")
		return
	}
	if student == nil {
		respondError(w, http.StatusNotFound, "student not found")
		return
	}
	respondJSON(w, http.StatusOK, toStudentResponse(student))
}

// Delete handles DELETE /students/{roll}.
func (h *StudentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	roll := strings.ToUpper(chi.URLParam(r, "roll"))
	removed, err := h.registry.Remove(r.Context(), roll)
	if err != nil {
		log.Printf("removing %s: %v", roll, err)
	}
	if !removed {
		respondError(w, http.StatusNotFound, "student not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Count handles GET /students/count with an optional class filter.
func (h *StudentsHandler) Count(w http.ResponseWriter, r *http.Request) {
	class, err := parseClassQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	count, err := h.registry.Count(r.Context(), class)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to count students")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"count": count})
}

// parseClassQuery reads the optional branch/section query pair. Both must be
// present to filter; neither means no filter.
func parseClassQuery(r *http.Request) (*registry.ClassKey, error) {
	branch := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("branch")))
	section := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("section")))

	if branch == "" && section == "" {
		return nil, nil
	}
	if branch == "" || section == "" {
		return nil, errors.New("branch and section must be provided together")
	}
	return &registry.ClassKey{Branch: branch, Section: section}, nil
}

// parseClassBody reads a required branch/section pair from a request body.
func parseClassBody(branch, section string) (*registry.ClassKey, error) {
	branch = strings.ToUpper(strings.TrimSpace(branch))
	section = strings.ToUpper(strings.TrimSpace(section))
	if branch == "" || section == "" {
		return nil, errors.New("branch and section are required")
	}
	return &registry.ClassKey{Branch: branch, Section: section}, nil
}
