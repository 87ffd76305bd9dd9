package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/stayflow-core/internal/lodging"
	"github.com/nerrad567/stayflow-core/internal/lodging/stay"
)

// undoCheckOutRequest names the cabin whose check-out is being reverted.
type undoCheckOutRequest struct {
	CabinID string `json:"cabinId"`
}

// cancelStayRequest carries the optional cancellation note.
type cancelStayRequest struct {
	Notes string `json:"notes"`
}

// handleListStays returns stays filtered by the status, cabinId, guestId
// and groupId query parameters.
func (s *Server) handleListStays(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := stay.StayFilter{
		Status:  lodging.StayStatus(q.Get("status")),
		CabinID: q.Get("cabinId"),
		GuestID: q.Get("guestId"),
		GroupID: q.Get("groupId"),
	}

	stays, err := s.stays.ListStays(r.Context(), propertyID(r), filter)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"stays": stays,
		"count": len(stays),
	})
}

// handleBookStay books a guest into one or more cabins.
func (s *Server) handleBookStay(w http.ResponseWriter, r *http.Request) {
	var req stay.BookingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	var booking *stay.Booking
	err := retryOnConflict(r.Context(), func() error {
		var err error
		booking, err = s.stays.BookStay(r.Context(), propertyID(r), req)
		return err
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

// handleGetStay returns one stay.
func (s *Server) handleGetStay(w http.ResponseWriter, r *http.Request) {
	st, err := s.stays.GetStay(r.Context(), propertyID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleGetGuest returns one guest.
func (s *Server) handleGetGuest(w http.ResponseWriter, r *http.Request) {
	g, err := s.stays.GetGuest(r.Context(), propertyID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// handlePreCheckin records the guest's pre-arrival form.
func (s *Server) handlePreCheckin(w http.ResponseWriter, r *http.Request) {
	var req stay.PreCheckinRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	s.stayTransition(w, r, func(pid, id string) error {
		return s.stays.CompletePreCheckin(r.Context(), pid, id, req)
	})
}

func (s *Server) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	s.stayTransition(w, r, func(pid, id string) error {
		return s.stays.CheckIn(r.Context(), pid, id)
	})
}

func (s *Server) handleCheckOut(w http.ResponseWriter, r *http.Request) {
	s.stayTransition(w, r, func(pid, id string) error {
		return s.stays.CheckOut(r.Context(), pid, id)
	})
}

// handleUndoCheckOut reverts a check-out while the cabin is still being
// turned over. The body must name the cabin.
func (s *Server) handleUndoCheckOut(w http.ResponseWriter, r *http.Request) {
	var req undoCheckOutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.CabinID == "" {
		writeBadRequest(w, "cabinId is required")
		return
	}
	s.stayTransition(w, r, func(pid, id string) error {
		return s.stays.UndoCheckOut(r.Context(), pid, id, req.CabinID)
	})
}

func (s *Server) handleCancelStay(w http.ResponseWriter, r *http.Request) {
	var req cancelStayRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	s.stayTransition(w, r, func(pid, id string) error {
		return s.stays.CancelStay(r.Context(), pid, id, req.Notes)
	})
}

func (s *Server) handleArchiveStay(w http.ResponseWriter, r *http.Request) {
	s.stayTransition(w, r, func(pid, id string) error {
		return s.stays.ArchiveStay(r.Context(), pid, id)
	})
}

// stayTransition runs op for the stay in the URL, retrying lost write
// races, and responds with the stay as committed.
func (s *Server) stayTransition(w http.ResponseWriter, r *http.Request, op func(propertyID, stayID string) error) {
	pid, id := propertyID(r), chi.URLParam(r, "id")
	if err := retryOnConflict(r.Context(), func() error { return op(pid, id) }); err != nil {
		s.fail(w, r, err)
		return
	}
	st, err := s.stays.GetStay(r.Context(), pid, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
