package checksum

import (
	"errors"
	"fmt"
)

var (
	// ErrIntegrity is matched by IntegrityError.
	ErrIntegrity = errors.New("integrity check failed")
	// ErrIO is matched by IOError.
	ErrIO = errors.New("checksum io failure")
	// ErrUnknownAlgorithm is returned by ParseAlgorithm.
	ErrUnknownAlgorithm = errors.New("unknown checksum algorithm")
	// ErrHashUnavailable is returned when the hash is not linked into the binary.
	ErrHashUnavailable = errors.New("hash function unavailable")
	// errNoDigest is returned when a checksum file has no usable entry.
	errNoDigest = errors.New("no digest found in checksum file")
)

// IntegrityError reports a digest mismatch. The artifact is kept on disk.
type IntegrityError struct {
	Path     string
	Expected string
	Actual   string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("hash mismatch for %s: expected %s, got %s", e.Path, e.Expected, e.Actual)
}

// Is makes errors.Is(err, ErrIntegrity) work.
func (e *IntegrityError) Is(target error) bool {
	return target == ErrIntegrity
}

// IOError reports a file that could not be read while hashing.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrIO) work.
func (e *IOError) Is(target error) bool {
	return target == ErrIO
}
