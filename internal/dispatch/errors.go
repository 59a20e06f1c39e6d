package dispatch

import (
	"errors"
	"fmt"
)

// ErrNoEventLoaded reports a command that needs an event before one was set.
// It is surfaced to the command's originator; commands never fall back to a
// previous or default event.
var ErrNoEventLoaded = errors.New("no event loaded")

// ErrNoActiveItem reports a start/stop with nothing loaded or running.
var ErrNoActiveItem = errors.New("no active item")

// StoreUnavailableError wraps a transient failure reading or writing timer
// state. It is the one category a caller may reasonably retry; the core
// itself never retries.
type StoreUnavailableError struct {
	Op  string
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("store unavailable during %s: %v", e.Op, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error {
	return e.Err
}

func storeErr(op string, err error) error {
	return &StoreUnavailableError{Op: op, Err: err}
}
