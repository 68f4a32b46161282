package launcher

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/oshokin/nonodo-launcher/internal/checksum"
	"github.com/oshokin/nonodo-launcher/internal/config"
	"github.com/oshokin/nonodo-launcher/internal/download"
	"github.com/oshokin/nonodo-launcher/internal/logger"
	"github.com/oshokin/nonodo-launcher/internal/platform"
	"github.com/oshokin/nonodo-launcher/internal/provision"
	"github.com/oshokin/nonodo-launcher/internal/release"
	"github.com/oshokin/nonodo-launcher/internal/supervisor"
	"github.com/oshokin/nonodo-launcher/internal/version"
)

const (
	// ExitProvisionFailure is returned when no child could be started.
	ExitProvisionFailure = 1

	// raiseGrace is how long to wait for a re-raised signal to take effect.
	raiseGrace = time.Second
)

// Options controls a launcher invocation.
type Options struct {
	// Args are passed to the child verbatim.
	Args []string
	// Config overrides the environment-derived settings.
	Config *config.Config
	// IO configures the child's streams; the zero value inherits them.
	IO supervisor.IOOptions
}

// Main runs the launcher and returns the process exit code.
func Main(ctx context.Context, opts *Options) int {
	ctx = logger.WithName(ctx, "nonodo")

	res, err := Run(ctx, opts)
	if err != nil {
		Report(ctx, err)

		return ExitProvisionFailure
	}

	return Exit(ctx, res)
}

// Run provisions the executable, starts it and waits for it to exit.
// An error means no child was started.
func Run(ctx context.Context, opts *Options) (supervisor.Result, error) {
	cfg, err := Configure(ctx, opts.Config)
	if err != nil {
		return supervisor.Result{}, err
	}

	path, err := Provision(ctx, cfg)
	if err != nil {
		return supervisor.Result{}, err
	}

	sup := supervisor.New(supervisor.WithEscalationWindow(cfg.EscalationWindow))

	handle, err := sup.Run(ctx, path, opts.Args, opts.IO)
	if err != nil {
		return supervisor.Result{}, fmt.Errorf("run %s: %w", path, err)
	}

	var drain errgroup.Group

	if opts.IO.Mode == supervisor.ModePipe {
		_ = handle.Stdin().Close()

		drain.Go(func() error { return logStream(ctx, "stdout", handle.Stdout()) })
		drain.Go(func() error { return logStream(ctx, "stderr", handle.Stderr()) })
	}

	res := sup.Forward(ctx, handle)

	if err = drain.Wait(); err != nil {
		logger.DebugKV(ctx, "Cannot read child output", "error", err)
	}

	if err = handle.Close(); err != nil {
		logger.DebugKV(ctx, "Cannot release child streams", "error", err)
	}

	logger.DebugKV(ctx, "Child exited", "code", res.ExitCode, "signalled", res.Signalled())

	return res, nil
}

// logStream copies piped child output into the debug log line by line until EOF.
func logStream(ctx context.Context, name string, r io.Reader) error {
	reader := bufio.NewReader(r)

	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			logger.DebugKV(ctx, "Child output", "stream", name, "line", strings.TrimRight(line, "\r\n"))
		}

		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
	}
}

// Configure loads settings from the environment unless cfg is given and applies the log level.
func Configure(ctx context.Context, cfg *config.Config) (*config.Config, error) {
	if cfg == nil {
		var err error

		cfg, err = config.FromEnv(nil)
		if err != nil {
			return nil, fmt.Errorf("load configuration: %w", err)
		}
	} else if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate configuration: %w", err)
	}

	if level, ok := logger.ParseLogLevel(cfg.LogLevel); ok {
		logger.SetLevel(level)
	}

	host, err := platform.Describe(ctx)
	if err != nil {
		logger.DebugKV(ctx, "Cannot describe host", "error", err)
	}

	logger.InfoKV(ctx, "Running nonodo launcher",
		"launcher", version.Version,
		"nonodo", cfg.Version,
		"os", host.OS,
		"arch", host.Arch,
		"kernel", host.KernelVersion,
	)

	return cfg, nil
}

// Provision makes the configured release available and returns its path.
func Provision(ctx context.Context, cfg *config.Config) (string, error) {
	path, err := provision.FromConfig(cfg).EnsureAvailable(ctx)
	if err != nil {
		return "", err
	}

	logger.InfoKV(ctx, "Nonodo path", "path", path)

	return path, nil
}

// Report logs a provisioning failure. Cancellation is expected and logged at info level.
func Report(ctx context.Context, err error) {
	switch {
	case errors.Is(err, download.ErrCancelled), errors.Is(err, context.Canceled):
		logger.Info(ctx, "Download cancelled")
	case errors.Is(err, release.ErrUnsupportedPlatform):
		logger.ErrorKV(ctx, "Incompatible platform", "error", err)
	case errors.Is(err, checksum.ErrIntegrity):
		logger.ErrorKV(ctx, "Hash mismatch for nonodo binary", "error", err)
	case errors.Is(err, provision.ErrNotProvisioned):
		logger.ErrorKV(ctx, "Nonodo binary not found and downloads are disabled", "error", err)
	default:
		logger.ErrorKV(ctx, "Cannot start nonodo", "error", err)
	}
}

// Exit turns a child's Result into the launcher's exit code. A child killed by
// a signal makes the launcher re-raise it; the returned code is the fallback.
func Exit(ctx context.Context, res supervisor.Result) int {
	if res.Err != nil {
		logger.ErrorKV(ctx, "Waiting for child failed", "error", res.Err)
	}

	if !res.Signalled() {
		return res.ExitCode
	}

	logger.InfoKV(ctx, "Child terminated by signal", "signal", res.Signal.String())
	logger.Sync()

	if err := res.Raise(); err != nil {
		logger.DebugKV(ctx, "Cannot re-raise signal", "error", err)

		return res.ExitCode
	}

	time.Sleep(raiseGrace)

	return res.ExitCode
}
