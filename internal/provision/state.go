package provision

// State is a step of the provisioning pipeline.
type State int

// Provisioning states.
const (
	StateNotResolved State = iota
	StateCacheHit
	StateDownloading
	StateVerifying
	StateExtracting
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNotResolved:
		return "not-resolved"
	case StateCacheHit:
		return "cache-hit"
	case StateDownloading:
		return "downloading"
	case StateVerifying:
		return "verifying"
	case StateExtracting:
		return "extracting"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Done reports whether s is terminal.
func (s State) Done() bool {
	return s == StateCacheHit || s == StateReady || s == StateFailed
}
