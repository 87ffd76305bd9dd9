package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/stayflow-core/internal/auth"
	"github.com/nerrad567/stayflow-core/internal/lodging"
	"github.com/nerrad567/stayflow-core/internal/lodging/housekeeping"
)

type assignRequest struct {
	WorkerIDs []string `json:"workerIds"`
}

// startRequest may name the worker; it defaults to the caller.
type startRequest struct {
	WorkerID string `json:"workerId"`
}

type finishRequest struct {
	Checklist    []lodging.ChecklistItem `json:"checklist"`
	Observations string                  `json:"observations"`
}

type conferRequest struct {
	CabinID  string `json:"cabinId"`
	Approved *bool  `json:"approved"`
	Note     string `json:"note"`
}

type cancelTaskRequest struct {
	Reason string `json:"reason"`
}

// handleListTasks returns tasks filtered by cabinId, stayId, type, status
// and assignedTo. A housekeeper sees only their own tasks.
func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := housekeeping.TaskFilter{
		CabinID:    q.Get("cabinId"),
		StayID:     q.Get("stayId"),
		Type:       lodging.TaskType(q.Get("type")),
		Status:     lodging.TaskStatus(q.Get("status")),
		AssignedTo: q.Get("assignedTo"),
	}
	if c := claimsFrom(r.Context()); c.Role == auth.RoleHousekeeper {
		filter.AssignedTo = c.Subject
	}

	tasks, err := s.housekeeping.List(r.Context(), propertyID(r), filter)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tasks": tasks,
		"count": len(tasks),
	})
}

// handleCreateTask schedules a task outside the check-out flow.
func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req housekeeping.CreateTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	var task *lodging.HousekeepingTask
	err := retryOnConflict(r.Context(), func() error {
		var err error
		task, err = s.housekeeping.CreateTask(r.Context(), propertyID(r), req)
		return err
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.housekeeping.Get(r.Context(), propertyID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// handleAssignTask replaces the assignee set.
func (s *Server) handleAssignTask(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	s.taskTransition(w, r, func(pid, id string) error {
		return s.housekeeping.Assign(r.Context(), pid, id, req.WorkerIDs)
	})
}

// handleStartTask begins work. Housekeepers may only start as themselves.
func (s *Server) handleStartTask(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	claims := claimsFrom(r.Context())
	if req.WorkerID == "" {
		req.WorkerID = claims.Subject
	}
	if claims.Role == auth.RoleHousekeeper && req.WorkerID != claims.Subject {
		writeForbidden(w, "housekeepers can only start tasks as themselves")
		return
	}
	s.taskTransition(w, r, func(pid, id string) error {
		return s.housekeeping.Start(r.Context(), pid, id, req.WorkerID)
	})
}

func (s *Server) handleFinishTask(w http.ResponseWriter, r *http.Request) {
	var req finishRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	s.taskTransition(w, r, func(pid, id string) error {
		return s.housekeeping.Finish(r.Context(), pid, id, req.Checklist, req.Observations)
	})
}

// handleConferTask records the supervisor's verdict. approved is required.
func (s *Server) handleConferTask(w http.ResponseWriter, r *http.Request) {
	var req conferRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Approved == nil {
		writeBadRequest(w, "approved is required")
		return
	}
	s.taskTransition(w, r, func(pid, id string) error {
		return s.housekeeping.Confer(r.Context(), pid, id, req.CabinID, *req.Approved, req.Note)
	})
}

func (s *Server) handleCancelTask(w http.ResponseWriter, r *http.Request) {
	var req cancelTaskRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	s.taskTransition(w, r, func(pid, id string) error {
		return s.housekeeping.Cancel(r.Context(), pid, id, req.Reason)
	})
}

// handleUpdateTask applies an administrative override.
func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	var patch housekeeping.TaskPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	s.taskTransition(w, r, func(pid, id string) error {
		return s.housekeeping.UpdateTask(r.Context(), pid, id, patch)
	})
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	pid, id := propertyID(r), chi.URLParam(r, "id")
	err := retryOnConflict(r.Context(), func() error {
		return s.housekeeping.DeleteTask(r.Context(), pid, id)
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// taskTransition runs op for the task in the URL, retrying lost write
// races, and responds with the task as committed.
func (s *Server) taskTransition(w http.ResponseWriter, r *http.Request, op func(propertyID, taskID string) error) {
	pid, id := propertyID(r), chi.URLParam(r, "id")
	if err := retryOnConflict(r.Context(), func() error { return op(pid, id) }); err != nil {
		s.fail(w, r, err)
		return
	}
	task, err := s.housekeeping.Get(r.Context(), pid, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}
