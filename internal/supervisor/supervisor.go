package supervisor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"time"

	"github.com/oshokin/nonodo-launcher/internal/logger"
)

// DefaultEscalationWindow is the time a child gets between SIGINT and SIGTERM.
const DefaultEscalationWindow = 3 * time.Second

// Mode selects how the child's standard streams are wired.
type Mode int

const (
	// ModeInherit shares the launcher's stdin, stdout and stderr with the child.
	ModeInherit Mode = iota
	// ModePipe exposes the child's streams through the Handle.
	ModePipe
)

// IOOptions configures the child's environment and streams.
type IOOptions struct {
	Mode Mode
	// Env replaces the inherited environment when not nil.
	Env []string
	// Dir is the working directory; empty keeps the launcher's.
	Dir string
}

// Supervisor starts children and relays signals to them.
type Supervisor struct {
	escalationWindow time.Duration
}

// Option configures supervisor behaviour.
type Option func(*Supervisor)

// WithEscalationWindow sets the delay between SIGINT and SIGTERM.
func WithEscalationWindow(d time.Duration) Option {
	return func(s *Supervisor) {
		if d > 0 {
			s.escalationWindow = d
		}
	}
}

// New creates a supervisor.
func New(opts ...Option) *Supervisor {
	s := &Supervisor{
		escalationWindow: DefaultEscalationWindow,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Run starts path with args. The arguments are passed verbatim.
func (s *Supervisor) Run(ctx context.Context, path string, args []string, opts IOOptions) (*Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Running binary", "path", path, "args", args)

	//nolint:gosec // The executable path comes from the verified cache.
	cmd := exec.Command(path, args...)
	cmd.Env = opts.Env
	cmd.Dir = opts.Dir

	if opts.Mode == ModeInherit {
		cmd.Stdin = os.Stdin
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Start(); err != nil {
			return nil, fmt.Errorf("start %s: %w", path, err)
		}

		return newHandle(cmd), nil
	}

	return startPiped(cmd)
}

// startPiped starts cmd with OS pipes so reads never race with Wait closing them.
func startPiped(cmd *exec.Cmd) (*Handle, error) {
	var pipes [3][2]*os.File

	closeAll := func() {
		for _, p := range pipes {
			for _, f := range p {
				if f != nil {
					_ = f.Close()
				}
			}
		}
	}

	for i := range pipes {
		r, w, err := os.Pipe()
		if err != nil {
			closeAll()

			return nil, fmt.Errorf("create pipe: %w", err)
		}

		pipes[i] = [2]*os.File{r, w}
	}

	stdinR, stdinW := pipes[0][0], pipes[0][1]
	stdoutR, stdoutW := pipes[1][0], pipes[1][1]
	stderrR, stderrW := pipes[2][0], pipes[2][1]

	cmd.Stdin = stdinR
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	if err := cmd.Start(); err != nil {
		closeAll()

		return nil, fmt.Errorf("start %s: %w", cmd.Path, err)
	}

	// The child holds its own copies now.
	_ = stdinR.Close()
	_ = stdoutW.Close()
	_ = stderrW.Close()

	h := newHandle(cmd)
	h.stdin = stdinW
	h.stdout = stdoutR
	h.stderr = stderrR

	return h, nil
}

// Stop sends sig to the child; nil means an interrupt. It fails with
// NotRunningError when the child is absent, has exited or was already stopped.
func (s *Supervisor) Stop(h *Handle, sig os.Signal) error {
	if h == nil || h.cmd == nil || h.cmd.Process == nil {
		return &NotRunningError{}
	}

	if h.Exited() || h.stopped.Swap(true) {
		return &NotRunningError{Pid: h.pid}
	}

	if sig == nil {
		return interruptChild(h.cmd.Process)
	}

	return sendSignal(h.cmd.Process, sig)
}

// Forward relays host interrupts to the child until it exits and returns its
// Result. The signal subscription lives only for the duration of the call.
// Cancelling ctx counts as a host interrupt.
func (s *Supervisor) Forward(ctx context.Context, h *Handle) Result {
	if h == nil {
		return Result{ExitCode: 1, Err: &NotRunningError{}}
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, forwardedSignals...)

	defer signal.Stop(signals)

	logger.DebugKV(ctx, "Forwarding signals", "pid", h.pid)

	var (
		interrupted bool
		received    int
		escalate    <-chan time.Time
		ctxDone     = ctx.Done()
	)

	for {
		select {
		case <-h.Done():
			return h.Wait()
		case sig := <-signals:
			logger.InfoKV(ctx, "Received signal", "signal", sig.String())

			// Only a second delivered signal skips the grace period.
			received++
			if received > 1 {
				s.terminate(ctx, h)

				escalate = nil

				continue
			}

			if !interrupted {
				interrupted = true
				escalate = s.interrupt(ctx, h)
			}
		case <-ctxDone:
			ctxDone = nil

			if !interrupted {
				interrupted = true
				escalate = s.interrupt(ctx, h)
			}
		case <-escalate:
			escalate = nil

			if h.Alive() {
				s.terminate(ctx, h)
			}
		}
	}
}

// interrupt sends the first stop request and returns the escalation timer.
func (s *Supervisor) interrupt(ctx context.Context, h *Handle) <-chan time.Time {
	logger.InfoKV(ctx, "Interrupting child", "pid", h.pid)

	h.stopped.Store(true)

	if err := interruptChild(h.cmd.Process); err != nil {
		logger.DebugKV(ctx, "Cannot interrupt child", "pid", h.pid, "error", err)
	}

	return time.After(s.escalationWindow)
}

func (s *Supervisor) terminate(ctx context.Context, h *Handle) {
	if h.Exited() {
		return
	}

	logger.InfoKV(ctx, "Terminating child", "pid", h.pid)

	if err := terminateChild(h.cmd.Process); err != nil {
		logger.DebugKV(ctx, "Cannot terminate child", "pid", h.pid, "error", err)
	}
}

// Raise re-delivers the signal that killed the child to the launcher itself,
// after restoring the default handler. It fails when the child exited normally.
func (r Result) Raise() error {
	if r.Signal == nil {
		return errNotSignalled
	}

	signal.Reset(r.Signal)

	return raise(r.Signal)
}
