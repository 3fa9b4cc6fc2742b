package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/CreativeUnicorns/navsync"
)

func (s *Server) handleGetNavigation(w http.ResponseWriter, r *http.Request) {
	categories, err := s.content.Navigation(r.Context())
	if err != nil {
		s.respondWithFailure(w, r, "Failed to load navigation", err)
		return
	}
	s.respondWithJSON(w, r, http.StatusOK, categories)
}

func (s *Server) handlePutNavigation(w http.ResponseWriter, r *http.Request) {
	var categories []navsync.NavigationCategory
	if !s.decodeJSON(w, r, &categories) {
		return
	}
	if categories == nil {
		categories = []navsync.NavigationCategory{}
	}
	if err := s.content.UpdateNavigation(r.Context(), categories); err != nil {
		s.respondWithFailure(w, r, "Failed to update navigation", err)
		return
	}
	s.respondWithJSON(w, r, http.StatusOK, categories)
}

func (s *Server) handleNavigationStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.content.Stats(r.Context())
	if err != nil {
		s.respondWithFailure(w, r, "Failed to compute navigation stats", err)
		return
	}
	s.respondWithJSON(w, r, http.StatusOK, stats)
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	var category navsync.NavigationCategory
	if !s.decodeJSON(w, r, &category) {
		return
	}
	if err := s.content.AddCategory(r.Context(), category); err != nil {
		s.respondWithFailure(w, r, "Failed to add category", err)
		return
	}
	s.respondWithJSON(w, r, http.StatusCreated, category)
}

// handleUpdateCategory replaces a category with the request body. The id in
// the path wins over the one in the body.
func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var category navsync.NavigationCategory
	if !s.decodeJSON(w, r, &category) {
		return
	}
	id := chi.URLParam(r, "categoryID")
	err := s.content.UpdateCategory(r.Context(), id, func(c *navsync.NavigationCategory) {
		createdAt := c.CreatedAt
		*c = category
		if c.CreatedAt == "" {
			c.CreatedAt = createdAt
		}
	})
	if err != nil {
		s.respondWithFailure(w, r, "Failed to update category", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.content.DeleteCategory(r.Context(), chi.URLParam(r, "categoryID")); err != nil {
		s.respondWithFailure(w, r, "Failed to delete category", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var item navsync.NavigationItem
	if !s.decodeJSON(w, r, &item) {
		return
	}
	if err := s.content.AddItem(r.Context(), chi.URLParam(r, "categoryID"), item); err != nil {
		s.respondWithFailure(w, r, "Failed to add item", err)
		return
	}
	s.respondWithJSON(w, r, http.StatusCreated, item)
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	var item navsync.NavigationItem
	if !s.decodeJSON(w, r, &item) {
		return
	}
	categoryID, itemID := chi.URLParam(r, "categoryID"), chi.URLParam(r, "itemID")
	err := s.content.UpdateItem(r.Context(), categoryID, itemID, func(it *navsync.NavigationItem) {
		createdAt := it.CreatedAt
		*it = item
		if it.CreatedAt == "" {
			it.CreatedAt = createdAt
		}
	})
	if err != nil {
		s.respondWithFailure(w, r, "Failed to update item", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	categoryID, itemID := chi.URLParam(r, "categoryID"), chi.URLParam(r, "itemID")
	if err := s.content.DeleteItem(r.Context(), categoryID, itemID); err != nil {
		s.respondWithFailure(w, r, "Failed to delete item", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetSite(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.content.Site(r.Context())
	if err != nil {
		s.respondWithFailure(w, r, "Failed to load site configuration", err)
		return
	}
	s.respondWithJSON(w, r, http.StatusOK, cfg)
}

func (s *Server) handlePutSite(w http.ResponseWriter, r *http.Request) {
	var cfg navsync.SiteConfig
	if !s.decodeJSON(w, r, &cfg) {
		return
	}
	if err := s.content.UpdateSite(r.Context(), cfg); err != nil {
		s.respondWithFailure(w, r, "Failed to update site configuration", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetResources(w http.ResponseWriter, r *http.Request) {
	sections, err := s.content.Resources(r.Context())
	if err != nil {
		s.respondWithFailure(w, r, "Failed to load resources", err)
		return
	}
	s.respondWithJSON(w, r, http.StatusOK, sections)
}

func (s *Server) handlePutResources(w http.ResponseWriter, r *http.Request) {
	var sections []navsync.ResourceSection
	if !s.decodeJSON(w, r, &sections) {
		return
	}
	if err := s.content.UpdateResources(r.Context(), sections); err != nil {
		s.respondWithFailure(w, r, "Failed to update resources", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.content.Reload(r.Context(), chi.URLParam(r, "collection")); err != nil {
		s.respondWithFailure(w, r, "Failed to reload collection", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
