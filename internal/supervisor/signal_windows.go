//go:build windows

package supervisor

import "os"

//nolint:gochecknoglobals // Fixed per platform.
var forwardedSignals = []os.Signal{os.Interrupt}

// Windows cannot deliver an interrupt to a child process, so both stages kill.
func interruptChild(p *os.Process) error {
	return p.Kill()
}

func terminateChild(p *os.Process) error {
	return p.Kill()
}

func sendSignal(p *os.Process, sig os.Signal) error {
	if sig == os.Kill || sig == os.Interrupt {
		return p.Kill()
	}

	return p.Signal(sig)
}

func exitSignal(*os.ProcessState) (os.Signal, int, bool) {
	return nil, 0, false
}

func raise(os.Signal) error {
	return errRaiseUnsupported
}
