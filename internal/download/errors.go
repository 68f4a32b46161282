package download

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork is matched by NetworkError.
	ErrNetwork = errors.New("network failure")
	// ErrCancelled is matched by CancelledError.
	ErrCancelled = errors.New("download cancelled")
	// ErrTooManyRedirects is wrapped by NetworkError when the hop cap is exceeded.
	ErrTooManyRedirects = errors.New("too many redirects")
)

// NetworkError reports a transport failure or an unexpected HTTP status.
type NetworkError struct {
	URL        string
	StatusCode int    // zero for transport failures
	Status     string // e.g. "404 Not Found"
	Err        error
}

func (e *NetworkError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("error %s when downloading %s", e.Status, e.URL)
	case e.Err != nil:
		return fmt.Sprintf("download %s: %v", e.URL, e.Err)
	default:
		return "download " + e.URL + ": network failure"
	}
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrNetwork) work.
func (e *NetworkError) Is(target error) bool {
	return target == ErrNetwork
}

// CancelledError reports a download aborted by the caller's context.
type CancelledError struct {
	URL string
	Err error
}

func (e *CancelledError) Error() string {
	return "download " + e.URL + ": request aborted"
}

func (e *CancelledError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrCancelled) work.
func (e *CancelledError) Is(target error) bool {
	return target == ErrCancelled
}
