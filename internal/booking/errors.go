package booking

import (
	"errors"
	"fmt"
)

// Kind classifies a booking failure so callers can react without
// string-matching messages.
type Kind string

const (
	// KindNotFound means the requested train does not exist
	KindNotFound Kind = "not_found"
	// KindInsufficientCapacity means the class has fewer free seats
	// than the request needs
	KindInsufficientCapacity Kind = "insufficient_capacity"
	// KindTatkalWindow means a tatkal booking was attempted outside
	// the daily tatkal window
	KindTatkalWindow Kind = "tatkal_window_violation"
	// KindInvalidRoute means the train does not serve the requested
	// source/destination pair
	KindInvalidRoute Kind = "invalid_route"
)

// Error is a booking failure with a machine-readable kind
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the failure kind from an error chain. Returns the
// empty string for nil or non-booking errors.
func KindOf(err error) Kind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return ""
}
