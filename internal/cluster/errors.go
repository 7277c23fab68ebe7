package cluster

import (
	"errors"
	"fmt"
)

// Error kinds. Every error the harness returns matches exactly one of them
// with errors.Is.
var (
	// ErrProvisioning is returned when a node's storage or configuration
	// cannot be prepared.
	ErrProvisioning = errors.New("cluster: provisioning failed")

	// ErrStartupFailure is returned when a node fails to start.
	ErrStartupFailure = errors.New("cluster: startup failed")

	// ErrStartupTimeout is returned when nodes do not finish starting
	// before the deadline.
	ErrStartupTimeout = errors.New("cluster: startup timed out")

	// ErrNoLeaderElected is returned when no node reports leadership.
	ErrNoLeaderElected = errors.New("cluster: no leader elected")

	// ErrFailoverTimeout is returned when no other node takes over after
	// the leader is stopped.
	ErrFailoverTimeout = errors.New("cluster: failover timed out")

	// ErrClientConnect is returned when a client cannot connect in time.
	ErrClientConnect = errors.New("cluster: client connect failed")

	// ErrTeardown aggregates teardown failures. It is logged, not returned
	// by Teardown.
	ErrTeardown = errors.New("cluster: teardown failed")
)

// Error describes a failed harness operation.
type Error struct {
	Op   string // Operation that failed, e.g. "start"
	Kind error  // One of the Err* kinds above
	Err  error  // Underlying cause, may be nil
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Kind)
}

// Unwrap returns the kind and the cause so errors.Is matches either.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(op string, kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}
