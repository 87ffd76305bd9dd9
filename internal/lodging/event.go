package lodging

import (
	"context"
	"time"
)

// Event types published after an operation commits.
const (
	EventStayBooked          = "stay.booked"
	EventStayPreCheckin      = "stay.pre_checkin_done"
	EventStayCheckedIn       = "stay.checked_in"
	EventStayCheckedOut      = "stay.checked_out"
	EventStayCheckOutUndone  = "stay.check_out_undone"
	EventStayCancelled       = "stay.cancelled"
	EventStayArchived        = "stay.archived"
	EventCabinStatusChanged  = "cabin.status_changed"
	EventTaskCreated         = "task.created"
	EventTaskAssigned        = "task.assigned"
	EventTaskStarted         = "task.started"
	EventTaskFinished        = "task.finished"
	EventTaskApproved        = "task.approved"
	EventTaskReworkRequested = "task.rework_requested"
	EventTaskCancelled       = "task.cancelled"
	EventTaskUpdated         = "task.updated"
	EventTaskDeleted         = "task.deleted"
)

// Event is a committed change, fanned out to live panels, the message bus
// and metrics. Events are informational: losing one never loses state.
type Event struct {
	Type       string         `json:"type"`
	PropertyID string         `json:"propertyId"`
	Entity     string         `json:"entity"`
	EntityID   string         `json:"entityId"`
	At         time.Time      `json:"at"`
	Data       map[string]any `json:"data,omitempty"`
}

// Publisher receives events after their transaction commits.
type Publisher interface {
	Publish(ctx context.Context, events []Event)
}

// NopPublisher discards events.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, []Event) {}

// Logger is the logging surface the lodging packages use.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NopLogger discards log output.
type NopLogger struct{}

func (NopLogger) Debug(string, ...any) {}
func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Warn(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}
