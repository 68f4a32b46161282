//go:build !windows

package supervisor

import (
	"os"
	"syscall"
)

//nolint:gochecknoglobals // Fixed per platform.
var forwardedSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

func interruptChild(p *os.Process) error {
	return p.Signal(os.Interrupt)
}

func terminateChild(p *os.Process) error {
	return p.Signal(syscall.SIGTERM)
}

func sendSignal(p *os.Process, sig os.Signal) error {
	return p.Signal(sig)
}

// exitSignal extracts the terminating signal from a wait status.
func exitSignal(state *os.ProcessState) (os.Signal, int, bool) {
	ws, ok := state.Sys().(syscall.WaitStatus)
	if !ok || !ws.Signaled() {
		return nil, 0, false
	}

	sig := ws.Signal()

	return sig, 128 + int(sig), true
}

func raise(sig os.Signal) error {
	s, ok := sig.(syscall.Signal)
	if !ok {
		return errRaiseUnsupported
	}

	return syscall.Kill(os.Getpid(), s)
}
