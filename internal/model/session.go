package model

import "time"

// SessionState is the trading session lifecycle state.
type SessionState int32

const (
	SessionIdle SessionState = iota
	SessionRunning
	SessionStopping
)

func (s SessionState) String() string {
	switch s {
	case SessionIdle:
		return "IDLE"
	case SessionRunning:
		return "RUNNING"
	case SessionStopping:
		return "STOPPING"
	default:
		return "UNKNOWN"
	}
}

// SessionEventKind identifies a session transition.
type SessionEventKind string

const (
	EventStarted  SessionEventKind = "STARTED"
	EventStopping SessionEventKind = "STOPPING"
	EventTimedOut SessionEventKind = "TIMED_OUT"
	EventStopped  SessionEventKind = "STOPPED"
)

// SessionEvent is published to observers on every session transition.
type SessionEvent struct {
	Kind      SessionEventKind
	State     SessionState
	StartedAt time.Time
	At        time.Time
	Reason    string
}
