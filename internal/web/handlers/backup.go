package handlers

import (
	"log"
	"net/http"

	"github.com/classmark/classmark/internal/backup"
)

// BackupTarget names one store file the backup manager can snapshot. Path is
// resolved at snapshot time since stores may move between requests in tests.
type BackupTarget struct {
	Store string
	Path  func() string
}

// BackupHandler triggers and lists snapshots.
type BackupHandler struct {
	manager *backup.Manager
	targets []BackupTarget
}

func NewBackupHandler(m *backup.Manager, targets []BackupTarget) *BackupHandler {
	return &BackupHandler{manager: m, targets: targets}
}

// Create handles POST /backup: snapshots every registered store.
func (h *BackupHandler) Create(w http.ResponseWriter, r *http.Request) {
	results := make(map[string]string, len(h.targets))
	failed := false
	for _, target := range h.targets {
		path := target.Path()
		if path == "" {
			results[target.Store] = "skipped"
			continue
		}
		if err := h.manager.Snapshot(target.Store, path); err != nil {
			log.Printf("backup of %s failed: %v", target.Store, err)
			results[target.Store] = "failed"
			failed = true
			continue
		}
		results[target.Store] = "ok"
	}

	status := http.StatusOK
	if failed {
		status = http.StatusInternalServerError
	}
	respondJSON(w, status, results)
}

// List handles GET /backup: snapshot filenames per store, oldest first.
func (h *BackupHandler) List(w http.ResponseWriter, r *http.Request) {
	out := make(map[string][]string, len(h.targets))
	for _, target := range h.targets {
		names, err := h.manager.List(target.Store)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to list backups")
			return
		}
		if names == nil {
			names = []string{}
		}
		out[target.Store] = names
	}
	respondJSON(w, http.StatusOK, out)
}
