package handlers

import (
	"net/http"
	"time"

	"github.com/classmark/classmark/internal/config"
	"github.com/classmark/classmark/internal/ledger"
	"github.com/classmark/classmark/internal/registry"
)

// ClassesHandler serves per-class statistics.
type ClassesHandler struct {
	config   *config.Config
	registry *registry.Registry
	ledger   *ledger.CSV
}

func NewClassesHandler(cfg *config.Config, reg *registry.Registry, led *ledger.CSV) *ClassesHandler {
	return &ClassesHandler{config: cfg, registry: reg, ledger: led}
}

type classSummaryResponse struct {
	Class        string `json:"class"`
	Branch       string `json:"branch"`
	Section      string `json:"section"`
	Registered   int    `json:"registered"`
	PresentToday int    `json:"present_today"`
}

// Summary handles GET /classes/summary: registered and present-today counts
// for every configured class.
func (h *ClassesHandler) Summary(w http.ResponseWriter, r *http.Request) {
	today := time.Now()

	var out []classSummaryResponse
	for _, branch := range h.config.Academics.Branches {
		for _, section := range h.config.Academics.Sections {
			class := registry.ClassKey{Branch: branch, Section: section}

			registered, err := h.registry.Count(r.Context(), &class)
			if err != nil {
				respondError(w, http.StatusInternalServerError, "failed to count students")
				return
			}
			events, err := h.ledger.Query(r.Context(), &class, &today)
			if err != nil {
				respondError(w, http.StatusInternalServerError, "failed to read ledger")
				return
			}

			out = append(out, classSummaryResponse{
				Class:        class.String(),
				Branch:       branch,
				Section:      section,
				Registered:   registered,
				PresentToday: len(events),
			})
		}
	}
	respondJSON(w, http.StatusOK, out)
}
