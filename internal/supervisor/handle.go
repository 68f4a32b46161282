package supervisor

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"sync/atomic"

	ps "github.com/mitchellh/go-ps"
)

// Result is the outcome of a child process.
type Result struct {
	// ExitCode is the code to propagate. For a signal-terminated child it is
	// 128 plus the signal number.
	ExitCode int
	// Signal is the signal that terminated the child, or nil.
	Signal os.Signal
	// Err reports a failure to wait for the child.
	Err error
}

// Signalled reports whether the child was terminated by a signal.
func (r Result) Signalled() bool {
	return r.Signal != nil
}

// Handle owns one running child.
type Handle struct {
	cmd *exec.Cmd
	pid int

	// done is closed once result is set.
	done   chan struct{}
	result Result

	// stopped is set by the first Stop.
	stopped atomic.Bool

	stdin  io.WriteCloser
	stdout io.ReadCloser
	stderr io.ReadCloser
}

func newHandle(cmd *exec.Cmd) *Handle {
	h := &Handle{
		cmd:  cmd,
		pid:  cmd.Process.Pid,
		done: make(chan struct{}),
	}

	go h.wait()

	return h
}

func (h *Handle) wait() {
	err := h.cmd.Wait()
	h.result = resultFrom(h.cmd.ProcessState, err)
	close(h.done)
}

func resultFrom(state *os.ProcessState, err error) Result {
	if state == nil {
		return Result{ExitCode: 1, Err: err}
	}

	if sig, code, ok := exitSignal(state); ok {
		return Result{ExitCode: code, Signal: sig}
	}

	var res Result

	res.ExitCode = state.ExitCode()

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		res.Err = err
	}

	return res
}

// Done is closed when the child has exited and its Result is available.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the child exits and returns its Result.
func (h *Handle) Wait() Result {
	<-h.done

	return h.result
}

// Pid returns the child's process id.
func (h *Handle) Pid() int {
	return h.pid
}

// Exited reports whether the child has been reaped.
func (h *Handle) Exited() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Alive reports whether the child is still present in the OS process table.
func (h *Handle) Alive() bool {
	if h.Exited() {
		return false
	}

	proc, err := ps.FindProcess(h.pid)

	return err == nil && proc != nil
}

// Stdin is the child's standard input in pipe mode, nil otherwise.
func (h *Handle) Stdin() io.WriteCloser {
	return h.stdin
}

// Stdout is the child's standard output in pipe mode, nil otherwise.
func (h *Handle) Stdout() io.ReadCloser {
	return h.stdout
}

// Stderr is the child's standard error in pipe mode, nil otherwise.
func (h *Handle) Stderr() io.ReadCloser {
	return h.stderr
}

// Close releases the launcher's ends of the child's pipes. Output not read by
// then is lost. It is a no-op in inherit mode.
func (h *Handle) Close() error {
	var errs []error

	for _, c := range []io.Closer{h.stdin, h.stdout, h.stderr} {
		if c == nil {
			continue
		}

		if err := c.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
