package app

import "time"

// DefaultAnswerTimeout is how long a question stays open without a correct answer.
const DefaultAnswerTimeout = 30 * time.Second

// Clock creates timers; tests swap in a manual implementation.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending deadline handle.
type Timer interface {
	Stop() bool
}

type systemClock struct{}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SystemClock is backed by time.AfterFunc.
var SystemClock Clock = systemClock{}

// Deadline tags a timeout with the question it was armed for. The orchestrator
// re-validates the tag against the current session before honoring it.
type Deadline struct {
	ChannelID string
	SessionID string
	Index     int
}

// DeadlineScheduler arms one deadline per session question and delivers
// expired tags to its handler.
type DeadlineScheduler struct {
	clock   Clock
	timeout time.Duration
	fire    func(Deadline)
}

func NewDeadlineScheduler(clock Clock, timeout time.Duration, fire func(Deadline)) *DeadlineScheduler {
	if clock == nil {
		clock = SystemClock
	}
	if timeout <= 0 {
		timeout = DefaultAnswerTimeout
	}
	return &DeadlineScheduler{clock: clock, timeout: timeout, fire: fire}
}

// Timeout returns the configured answer window.
func (d *DeadlineScheduler) Timeout() time.Duration {
	return d.timeout
}

func (d *DeadlineScheduler) schedule(tag Deadline) Timer {
	return d.clock.AfterFunc(d.timeout, func() {
		d.fire(tag)
	})
}
