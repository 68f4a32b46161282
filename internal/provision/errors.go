package provision

import "errors"

var (
	// ErrNotProvisioned is returned in offline mode when the cache has no executable.
	ErrNotProvisioned = errors.New("executable is not provisioned")
	// errExecutableMissing is wrapped when extraction reported success but left nothing behind.
	errExecutableMissing = errors.New("executable missing after extraction")
	// errLockNotAcquired is returned when the cache lock could not be taken.
	errLockNotAcquired = errors.New("cache lock not acquired")
)
