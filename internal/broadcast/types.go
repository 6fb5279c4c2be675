package broadcast

import (
	"errors"
	"time"

	"recruitpulse/internal/hiring"
)

// EventDataUpdated is the only outbound event name.
const EventDataUpdated = "data_updated"

var ErrStopped = errors.New("broadcaster stopped")

// Trigger says why a payload was computed.
type Trigger string

const (
	TriggerConnect    Trigger = "connect"
	TriggerRefresh    Trigger = "refresh"
	TriggerFileChange Trigger = "file_change"
	TriggerSchedule   Trigger = "schedule"
)

// Session is one connected viewer.
//
// Send must not block on the network; transports enqueue and return.
type Session interface {
	ID() string
	Send(event string, p hiring.Payload) error
}

// Source computes a fresh payload. *hiring.Loader implements it.
type Source interface {
	ComputeSnapshot() hiring.Payload
}

type Config struct {
	// QueueSize bounds pending commands.
	QueueSize int
	// Debounce > 0 merges change signals inside the window into one
	// recomputation after the window closes.
	Debounce time.Duration
	// ComputeRatePerSec > 0 paces recomputations; excess triggers wait.
	ComputeRatePerSec float64
}

type cmdKind int

const (
	cmdConnect cmdKind = iota
	cmdDisconnect
	cmdRefresh
	cmdSourceChanged
	cmdSchedule
)

type command struct {
	kind    cmdKind
	session Session
	path    string
}

// Result summarizes one computed-and-delivered payload.
type Result struct {
	Trigger    Trigger
	SessionID  string
	Recipients int
	Delivered  int
	Failed     int
	Error      string
	Took       time.Duration
}
