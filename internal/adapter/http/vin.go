package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	res, err := s.vins.Lookup(r.Context(), chi.URLParam(r, "vin"))
	if err != nil {
		s.writeLookupError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"items": s.vins.History(r.Context())})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	s.vins.ClearHistory(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveHistory(w http.ResponseWriter, r *http.Request) {
	s.vins.RemoveHistory(r.Context(), chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCacheStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.vins.CacheStats())
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	s.vins.ClearCache(r.Context())
	w.WriteHeader(http.StatusNoContent)
}
