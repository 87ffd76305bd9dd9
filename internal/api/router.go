package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/stayflow-core/internal/auth"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware())
	r.Use(s.bodySizeLimitMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeNotFound(w, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllow, "method not allowed")
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// WebSocket (auth via ticket, validated in handler)
		r.Get("/ws", s.handleWebSocket)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Use(s.rateLimitMiddleware)
			r.Use(s.propertyMiddleware)

			r.Post("/auth/ws-ticket", s.handleWSTicket)

			r.Route("/stays", func(r chi.Router) {
				r.With(s.require(auth.PermStayRead)).Get("/", s.handleListStays)
				r.With(s.require(auth.PermStayManage)).Post("/", s.handleBookStay)

				r.Route("/{id}", func(r chi.Router) {
					r.With(s.require(auth.PermStayRead)).Get("/", s.handleGetStay)

					r.Group(func(r chi.Router) {
						r.Use(s.require(auth.PermStayManage))
						r.Post("/pre-checkin", s.handlePreCheckin)
						r.Post("/check-in", s.handleCheckIn)
						r.Post("/check-out", s.handleCheckOut)
						r.Post("/undo-check-out", s.handleUndoCheckOut)
						r.Post("/cancel", s.handleCancelStay)
						r.Post("/archive", s.handleArchiveStay)
					})
				})
			})

			r.Route("/guests/{id}", func(r chi.Router) {
				r.Use(s.require(auth.PermStayRead))
				r.Get("/", s.handleGetGuest)
			})

			r.Route("/cabins", func(r chi.Router) {
				r.Get("/", s.handleListCabins)
				r.Get("/{id}", s.handleGetCabin)
				r.With(s.require(auth.PermCabinManage)).Post("/", s.handleRegisterCabin)
			})

			r.Route("/tasks", func(r chi.Router) {
				r.With(s.require(auth.PermTaskRead)).Get("/", s.handleListTasks)
				r.With(s.require(auth.PermTaskManage)).Post("/", s.handleCreateTask)

				r.Route("/{id}", func(r chi.Router) {
					r.With(s.require(auth.PermTaskRead)).Get("/", s.handleGetTask)
					r.With(s.require(auth.PermTaskWork)).Post("/start", s.handleStartTask)
					r.With(s.require(auth.PermTaskWork)).Post("/finish", s.handleFinishTask)
					r.With(s.require(auth.PermTaskConfer)).Post("/confer", s.handleConferTask)

					r.Group(func(r chi.Router) {
						r.Use(s.require(auth.PermTaskManage))
						r.Put("/assignees", s.handleAssignTask)
						r.Post("/cancel", s.handleCancelTask)
						r.Patch("/", s.handleUpdateTask)
						r.Delete("/", s.handleDeleteTask)
					})
				})
			})

			r.Route("/automation", func(r chi.Router) {
				r.Group(func(r chi.Router) {
					r.Use(s.require(auth.PermAutomationManage))
					r.Get("/rules", s.handleListRules)
					r.Put("/rules/{event}", s.handleUpdateRule)
					r.Get("/templates", s.handleListTemplates)
					r.Post("/templates", s.handleSaveTemplate)
					r.Delete("/templates/{id}", s.handleDeleteTemplate)
				})

				r.Group(func(r chi.Router) {
					r.Use(s.require(auth.PermMessageManage))
					r.Get("/messages", s.handleListMessages)
					r.Get("/messages/{id}", s.handleGetMessage)
					r.Post("/messages/{id}/retry", s.handleRetryMessage)
				})
			})

			r.With(s.require(auth.PermAuditRead)).Get("/audit", s.handleListAuditLogs)
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"version":    s.version,
		"properties": s.properties.IDs(),
	})
}
