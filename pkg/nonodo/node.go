package nonodo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/oshokin/nonodo-launcher/internal/config"
	"github.com/oshokin/nonodo-launcher/internal/logger"
	"github.com/oshokin/nonodo-launcher/internal/service/launcher"
	"github.com/oshokin/nonodo-launcher/internal/supervisor"
)

var (
	// ErrNotRunning is returned by Stop and Wait when no node was started.
	ErrNotRunning = supervisor.ErrNotRunning
	// ErrAlreadyRunning is returned by Start while a node is running.
	ErrAlreadyRunning = errors.New("node is already running")
)

// Result is the outcome of a finished node.
type Result = supervisor.Result

// Node is a supervised nonodo process.
type Node struct {
	cfg  *config.Config
	args []string
	io   supervisor.IOOptions

	mu     sync.Mutex
	sup    *supervisor.Supervisor
	handle *supervisor.Handle
	path   string
}

// Option configures a Node.
type Option func(*Node)

// WithConfig uses cfg instead of the PACKAGE_NONODO_* environment.
func WithConfig(cfg *config.Config) Option {
	return func(n *Node) {
		n.cfg = cfg
	}
}

// WithArgs sets the arguments passed to nonodo.
func WithArgs(args ...string) Option {
	return func(n *Node) {
		n.args = args
	}
}

// WithIO configures the node's standard streams.
func WithIO(opts supervisor.IOOptions) Option {
	return func(n *Node) {
		n.io = opts
	}
}

// New creates a node. Nothing is downloaded or started until Start.
func New(opts ...Option) *Node {
	n := new(Node)

	for _, opt := range opts {
		opt(n)
	}

	return n
}

// Start provisions the executable and starts it in the background.
func (n *Node) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.handle != nil {
		if !n.handle.Exited() {
			return ErrAlreadyRunning
		}

		_ = n.handle.Close()
	}

	ctx = logger.WithName(ctx, "nonodo")

	cfg, err := launcher.Configure(ctx, n.cfg)
	if err != nil {
		return err
	}

	path, err := launcher.Provision(ctx, cfg)
	if err != nil {
		return err
	}

	sup := supervisor.New(supervisor.WithEscalationWindow(cfg.EscalationWindow))

	handle, err := sup.Run(ctx, path, n.args, n.io)
	if err != nil {
		return err
	}

	n.cfg = cfg
	n.sup = sup
	n.handle = handle
	n.path = path

	return nil
}

// Stop interrupts the running node. It does not wait for it to exit.
func (n *Node) Stop() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.handle == nil {
		return &supervisor.NotRunningError{}
	}

	return n.sup.Stop(n.handle, nil)
}

// Wait blocks until the node exits. In pipe mode it then closes the node's
// streams, so Stdout and Stderr must be read to EOF before calling Wait.
func (n *Node) Wait() (Result, error) {
	n.mu.Lock()
	handle := n.handle
	n.mu.Unlock()

	if handle == nil {
		return Result{}, &supervisor.NotRunningError{}
	}

	res := handle.Wait()
	if err := handle.Close(); err != nil {
		return res, fmt.Errorf("close node streams: %w", err)
	}

	return res, nil
}

// Stdin is the node's standard input in pipe mode, nil otherwise.
func (n *Node) Stdin() io.WriteCloser {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.handle == nil {
		return nil
	}

	return n.handle.Stdin()
}

// Stdout is the node's standard output in pipe mode, nil otherwise.
// The node blocks once the pipe buffer is full, so it has to be drained.
func (n *Node) Stdout() io.Reader {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.handle == nil {
		return nil
	}

	return n.handle.Stdout()
}

// Stderr is the node's standard error in pipe mode, nil otherwise.
func (n *Node) Stderr() io.Reader {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.handle == nil {
		return nil
	}

	return n.handle.Stderr()
}

// Pid returns the process id of the running node, or zero.
func (n *Node) Pid() int {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.handle == nil {
		return 0
	}

	return n.handle.Pid()
}

// Path returns the executable the node was started from.
func (n *Node) Path() string {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.path
}

// Running reports whether the node process is still alive.
func (n *Node) Running() bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.handle != nil && n.handle.Alive()
}
