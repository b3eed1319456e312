package domain

import "errors"

var (
	// ErrGenerationFailed is returned when the question generator fails or yields malformed/empty output.
	ErrGenerationFailed = errors.New("question generation failed")
	// ErrSessionConflict is returned when a quiz is requested on a channel that already has one.
	ErrSessionConflict = errors.New("a quiz is already running in this channel")
	// ErrNoActiveSession is returned when an answer, timeout or stop targets a channel without a running quiz.
	ErrNoActiveSession = errors.New("no active quiz in this channel")
	// ErrStaleTransition is returned when a terminal trigger targets a question that was already consumed.
	ErrStaleTransition = errors.New("question already closed")
	// ErrInvalidRequest indicates a start request with an empty topic or an out-of-range question count.
	ErrInvalidRequest = errors.New("invalid quiz request")
	// ErrInvalidAnswer indicates a multiple-choice answer outside the label set.
	ErrInvalidAnswer = errors.New("answer is not a valid choice")
	// ErrStandingsUnavailable is returned when no all-time standings store is configured.
	ErrStandingsUnavailable = errors.New("standings are not kept")
)
