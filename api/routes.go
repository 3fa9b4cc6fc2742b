package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(LoggerMiddleware(s.logger))
	s.router.Use(MetricsMiddleware)
	s.router.Use(middleware.Recoverer)

	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.SetHeader("Content-Type", "application/json"))

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			s.respondWithJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Route("/sync", func(r chi.Router) {
			r.Get("/", s.handleSyncStats)
			r.Post("/check", s.handleCheckSync)
			r.Post("/force", s.handleForceSync)
			r.Put("/auto", s.handleAutoSync)
		})

		r.Route("/backups", func(r chi.Router) {
			r.Get("/", s.handleListBackups)
			r.Post("/", s.handleCreateBackup)
			r.Post("/{key}/restore", s.handleRestoreBackup)
		})

		r.Route("/errors", func(r chi.Router) {
			r.Get("/", s.handleErrorStats)
			r.Get("/export", s.handleExportErrors)
			r.Delete("/", s.handleClearErrors)
		})

		r.Route("/cache", func(r chi.Router) {
			r.Get("/", s.handleCacheStats)
			r.Delete("/", s.handleClearCache)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", s.handleListNotifications)
			r.Delete("/", s.handleClearNotifications)
			r.Delete("/{id}", s.handleDismissNotification)
		})

		r.Route("/content", func(r chi.Router) {
			r.Get("/navigation", s.handleGetNavigation)
			r.Put("/navigation", s.handlePutNavigation)
			r.Get("/navigation/stats", s.handleNavigationStats)
			r.Route("/navigation/categories", func(r chi.Router) {
				r.Post("/", s.handleAddCategory)
				r.Put("/{categoryID}", s.handleUpdateCategory)
				r.Delete("/{categoryID}", s.handleDeleteCategory)
				r.Post("/{categoryID}/items", s.handleAddItem)
				r.Put("/{categoryID}/items/{itemID}", s.handleUpdateItem)
				r.Delete("/{categoryID}/items/{itemID}", s.handleDeleteItem)
			})
			r.Get("/site", s.handleGetSite)
			r.Put("/site", s.handlePutSite)
			r.Get("/resources", s.handleGetResources)
			r.Put("/resources", s.handlePutResources)
			r.Post("/{collection}/reload", s.handleReload)
		})
	})
}
