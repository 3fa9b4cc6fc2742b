package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/CreativeUnicorns/navsync"
)

// autoSyncRequest changes the auto-sync settings. Omitted fields are left as they are.
type autoSyncRequest struct {
	Enabled  *bool  `json:"enabled,omitempty"`
	Interval string `json:"interval,omitempty"`
}

func (s *Server) handleSyncStats(w http.ResponseWriter, r *http.Request) {
	s.respondWithJSON(w, r, http.StatusOK, s.coordinator.Stats())
}

// handleCheckSync runs one staleness check. Failures are logged by the
// coordinator and reported as updated=false.
func (s *Server) handleCheckSync(w http.ResponseWriter, r *http.Request) {
	updated := s.coordinator.CheckSync(r.Context())
	s.respondWithJSON(w, r, http.StatusOK, map[string]bool{"updated": updated})
}

func (s *Server) handleForceSync(w http.ResponseWriter, r *http.Request) {
	if err := s.coordinator.ForceSync(r.Context()); err != nil {
		s.respondWithFailure(w, r, "Sync failed", err)
		return
	}
	s.respondWithJSON(w, r, http.StatusOK, s.coordinator.Stats())
}

func (s *Server) handleAutoSync(w http.ResponseWriter, r *http.Request) {
	var req autoSyncRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.Interval != "" {
		d, err := time.ParseDuration(req.Interval)
		if err != nil || d <= 0 {
			s.respondWithError(w, r, http.StatusBadRequest, "Invalid sync interval",
				fmt.Errorf("%w: interval %q", navsync.ErrInvalidInput, req.Interval))
			return
		}
		s.coordinator.SetSyncInterval(d)
	}
	if req.Enabled != nil {
		s.coordinator.ToggleAutoSync(*req.Enabled)
	}
	s.respondWithJSON(w, r, http.StatusOK, s.coordinator.Stats())
}

func (s *Server) handleListBackups(w http.ResponseWriter, r *http.Request) {
	backups, err := s.coordinator.ListLocalBackups(r.Context())
	if err != nil {
		s.respondWithFailure(w, r, "Failed to list backups", err)
		return
	}
	s.respondWithJSON(w, r, http.StatusOK, backups)
}

func (s *Server) handleCreateBackup(w http.ResponseWriter, r *http.Request) {
	snap, err := s.coordinator.CreateBackup(r.Context())
	if err != nil {
		s.respondWithFailure(w, r, "Failed to create backup", err)
		return
	}
	s.respondWithJSON(w, r, http.StatusCreated, map[string]time.Time{"timestamp": snap.Timestamp})
}

func (s *Server) handleRestoreBackup(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := s.coordinator.RestoreLocalBackup(r.Context(), key); err != nil {
		s.respondWithFailure(w, r, "Failed to restore backup", err)
		return
	}
	s.respondWithJSON(w, r, http.StatusOK, s.coordinator.Stats())
}
