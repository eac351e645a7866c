package httpserver

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

// pageParam parses the optional ?page= query parameter, defaulting to 1.
func pageParam(r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("page")
	if raw == "" {
		return 1, true
	}
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 0, false
	}
	return page, true
}

// handleLatest serves a page of the unfiltered feed.
func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	page, ok := pageParam(r)
	if !ok {
		s.writeErrorResponse(w, "Invalid page parameter", http.StatusBadRequest)
		return
	}
	s.writeResponse(w, s.service.GetLatestNews(r.Context(), page))
}

// handleFeatured serves the featured posts.
func (s *Server) handleFeatured(w http.ResponseWriter, r *http.Request) {
	s.writeResponse(w, s.service.GetFeaturedNews(r.Context()))
}

// handleCategory serves a page filtered by UI category id.
func (s *Server) handleCategory(w http.ResponseWriter, r *http.Request) {
	page, ok := pageParam(r)
	if !ok {
		s.writeErrorResponse(w, "Invalid page parameter", http.StatusBadRequest)
		return
	}

	categoryID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		s.writeErrorResponse(w, "Invalid category id", http.StatusBadRequest)
		return
	}

	s.writeResponse(w, s.service.GetPostsByCategory(r.Context(), categoryID, page))
}

// handleSearch serves a page of search results. Queries below the minimum
// length come back as the empty shape, mirroring the facade contract.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	page, ok := pageParam(r)
	if !ok {
		s.writeErrorResponse(w, "Invalid page parameter", http.StatusBadRequest)
		return
	}
	s.writeResponse(w, s.service.SearchPosts(r.Context(), r.URL.Query().Get("q"), page))
}

// handleDiagnostics serves the metrics snapshot.
func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	s.writeResponse(w, s.service.Metrics())
}
