package lodging

import "fmt"

// StayStatus is the lifecycle state of a Stay.
type StayStatus string

const (
	StayPending        StayStatus = "pending"
	StayPreCheckinDone StayStatus = "pre_checkin_done"
	StayActive         StayStatus = "active"
	StayFinished       StayStatus = "finished"
	StayCancelled      StayStatus = "cancelled"
	StayArchived       StayStatus = "archived"
)

// finished -> active is the undo of a check-out.
var stayTransitions = map[StayStatus][]StayStatus{
	StayPending:        {StayPreCheckinDone, StayCancelled},
	StayPreCheckinDone: {StayActive, StayCancelled},
	StayActive:         {StayFinished},
	StayFinished:       {StayArchived, StayActive},
}

// CanTransition reports whether from -> to is allowed.
func (s StayStatus) CanTransition(to StayStatus) bool {
	return allowed(stayTransitions, s, to)
}

// Transition returns to when the move is allowed, or ErrInvalidTransition.
func (s StayStatus) Transition(to StayStatus) (StayStatus, error) {
	if !s.CanTransition(to) {
		return s, fmt.Errorf("%w: stay %s -> %s", ErrInvalidTransition, s, to)
	}
	return to, nil
}

// Live reports whether a stay in this status still holds its dates and access code.
func (s StayStatus) Live() bool {
	switch s {
	case StayPending, StayPreCheckinDone, StayActive:
		return true
	}
	return false
}

// CabinStatus is the occupancy state of a Cabin.
type CabinStatus string

const (
	CabinAvailable CabinStatus = "available"
	CabinOccupied  CabinStatus = "occupied"
	CabinCleaning  CabinStatus = "cleaning"
)

// cleaning -> occupied is the undo of a check-out.
var cabinTransitions = map[CabinStatus][]CabinStatus{
	CabinAvailable: {CabinOccupied, CabinCleaning},
	CabinOccupied:  {CabinCleaning},
	CabinCleaning:  {CabinAvailable, CabinOccupied},
}

// CanTransition reports whether from -> to is allowed.
func (s CabinStatus) CanTransition(to CabinStatus) bool {
	return allowed(cabinTransitions, s, to)
}

// Transition returns to when the move is allowed, or ErrInvalidTransition.
func (s CabinStatus) Transition(to CabinStatus) (CabinStatus, error) {
	if !s.CanTransition(to) {
		return s, fmt.Errorf("%w: cabin %s -> %s", ErrInvalidTransition, s, to)
	}
	return to, nil
}

// TaskStatus is the lifecycle state of a HousekeepingTask.
type TaskStatus string

const (
	TaskPending           TaskStatus = "pending"
	TaskInProgress        TaskStatus = "in_progress"
	TaskWaitingConference TaskStatus = "waiting_conference"
	TaskCompleted         TaskStatus = "completed"
	TaskCancelled         TaskStatus = "cancelled"
)

// waiting_conference -> in_progress is a rework loop. Cancellation is
// reachable from every non-terminal state.
var taskTransitions = map[TaskStatus][]TaskStatus{
	TaskPending:           {TaskInProgress, TaskCancelled},
	TaskInProgress:        {TaskWaitingConference, TaskCancelled},
	TaskWaitingConference: {TaskCompleted, TaskInProgress, TaskCancelled},
}

// CanTransition reports whether from -> to is allowed.
func (s TaskStatus) CanTransition(to TaskStatus) bool {
	return allowed(taskTransitions, s, to)
}

// Transition returns to when the move is allowed, or ErrInvalidTransition.
func (s TaskStatus) Transition(to TaskStatus) (TaskStatus, error) {
	if !s.CanTransition(to) {
		return s, fmt.Errorf("%w: task %s -> %s", ErrInvalidTransition, s, to)
	}
	return to, nil
}

// Terminal reports whether no further transition is possible.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskCancelled
}

// OpenTaskStatuses lists the non-terminal task statuses.
var OpenTaskStatuses = []TaskStatus{TaskPending, TaskInProgress, TaskWaitingConference}

// TaskType distinguishes routine servicing from post-departure cleaning.
type TaskType string

const (
	TaskDaily    TaskType = "daily"
	TaskTurnover TaskType = "turnover"
)

// Valid reports whether t is a known task type.
func (t TaskType) Valid() bool {
	return t == TaskDaily || t == TaskTurnover
}

func allowed[S comparable](table map[S][]S, from, to S) bool {
	for _, next := range table[from] {
		if next == to {
			return true
		}
	}
	return false
}
