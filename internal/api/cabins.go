package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/stayflow-core/internal/lodging"
	"github.com/nerrad567/stayflow-core/internal/lodging/stay"
)

// handleListCabins returns cabins, optionally filtered by ?status=.
func (s *Server) handleListCabins(w http.ResponseWriter, r *http.Request) {
	status := lodging.CabinStatus(r.URL.Query().Get("status"))
	cabins, err := s.stays.ListCabins(r.Context(), propertyID(r), status)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"cabins": cabins,
		"count":  len(cabins),
	})
}

func (s *Server) handleGetCabin(w http.ResponseWriter, r *http.Request) {
	c, err := s.stays.GetCabin(r.Context(), propertyID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// handleRegisterCabin adds a cabin in the available state.
func (s *Server) handleRegisterCabin(w http.ResponseWriter, r *http.Request) {
	var req stay.CabinRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	c, err := s.stays.RegisterCabin(r.Context(), propertyID(r), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}
