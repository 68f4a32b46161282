package supervisor

import (
	"errors"
	"fmt"
)

var (
	// ErrNotRunning is matched by NotRunningError.
	ErrNotRunning = errors.New("node is not running")
	// errNotSignalled is returned by Result.Raise when the child exited normally.
	errNotSignalled = errors.New("child was not terminated by a signal")
	// errRaiseUnsupported is returned where a process cannot signal itself.
	errRaiseUnsupported = errors.New("re-raising signals is not supported on this platform")
)

// NotRunningError reports a stop request for a child that is absent or gone.
type NotRunningError struct {
	Pid int // zero when the child was never started
}

func (e *NotRunningError) Error() string {
	if e.Pid == 0 {
		return ErrNotRunning.Error()
	}

	return fmt.Sprintf("%s: pid %d", ErrNotRunning, e.Pid)
}

// Is makes errors.Is(err, ErrNotRunning) work.
func (e *NotRunningError) Is(target error) bool {
	return target == ErrNotRunning
}
