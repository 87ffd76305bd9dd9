package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/stayflow-core/internal/automation"
)

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := s.automation.ListRules(r.Context(), propertyID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rules": rules})
}

// handleUpdateRule changes the rule for the trigger event in the URL.
func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	var u automation.RuleUpdate
	if err := decodeJSON(r, &u); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	event := automation.TriggerEvent(chi.URLParam(r, "event"))
	var rule *automation.Rule
	err := retryOnConflict(r.Context(), func() error {
		var err error
		rule, err = s.automation.UpdateRule(r.Context(), propertyID(r), event, u)
		return err
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.automation.ListTemplates(r.Context(), propertyID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"templates": templates})
}

// handleSaveTemplate creates a template, or replaces one when the body
// carries an existing id.
func (s *Server) handleSaveTemplate(w http.ResponseWriter, r *http.Request) {
	var t automation.Template
	if err := decodeJSON(r, &t); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	var saved *automation.Template
	err := retryOnConflict(r.Context(), func() error {
		var err error
		saved, err = s.automation.SaveTemplate(r.Context(), propertyID(r), t)
		return err
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := s.automation.DeleteTemplate(r.Context(), propertyID(r), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListMessages returns queued messages, optionally by ?status=.
func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	status := automation.MessageStatus(r.URL.Query().Get("status"))
	msgs, err := s.automation.ListMessages(r.Context(), propertyID(r), status)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"messages": msgs,
		"count":    len(msgs),
	})
}

func (s *Server) handleGetMessage(w http.ResponseWriter, r *http.Request) {
	msg, err := s.automation.GetMessage(r.Context(), propertyID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

// handleRetryMessage puts a failed message back in the queue.
func (s *Server) handleRetryMessage(w http.ResponseWriter, r *http.Request) {
	var msg *automation.QueuedMessage
	err := retryOnConflict(r.Context(), func() error {
		var err error
		msg, err = s.automation.RetryFailedMessage(r.Context(), propertyID(r), chi.URLParam(r, "id"))
		return err
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}
