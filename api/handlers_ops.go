package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleErrorStats(w http.ResponseWriter, r *http.Request) {
	s.respondWithJSON(w, r, http.StatusOK, s.errors.Stats())
}

func (s *Server) handleExportErrors(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Disposition", `attachment; filename="navsync-errors.json"`)
	s.respondWithJSON(w, r, http.StatusOK, s.errors.ExportLog())
}

func (s *Server) handleClearErrors(w http.ResponseWriter, _ *http.Request) {
	s.errors.ClearErrors()
	s.errors.ClearNetworkErrors()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	s.respondWithJSON(w, r, http.StatusOK, s.coordinator.CacheStats())
}

func (s *Server) handleClearCache(w http.ResponseWriter, _ *http.Request) {
	s.coordinator.ClearCache()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	if s.notifications == nil {
		s.respondWithError(w, r, http.StatusNotFound, "Notifications are not enabled", nil)
		return
	}
	s.respondWithJSON(w, r, http.StatusOK, s.notifications.List())
}

func (s *Server) handleClearNotifications(w http.ResponseWriter, r *http.Request) {
	if s.notifications == nil {
		s.respondWithError(w, r, http.StatusNotFound, "Notifications are not enabled", nil)
		return
	}
	s.notifications.ClearAll()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDismissNotification(w http.ResponseWriter, r *http.Request) {
	if s.notifications == nil {
		s.respondWithError(w, r, http.StatusNotFound, "Notifications are not enabled", nil)
		return
	}
	if !s.notifications.Remove(chi.URLParam(r, "id")) {
		s.respondWithError(w, r, http.StatusNotFound, "Notification not found", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
