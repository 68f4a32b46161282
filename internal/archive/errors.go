package archive

import (
	"errors"
	"fmt"
)

// ErrExtract is matched by ExtractError.
var ErrExtract = errors.New("extraction failed")

// ExtractError reports a member that could not be located or written.
type ExtractError struct {
	Member  string
	Archive string
	Err     error
}

func (e *ExtractError) Error() string {
	msg := fmt.Sprintf("problem on unpack %s from %s", e.Member, e.Archive)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *ExtractError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrExtract) work.
func (e *ExtractError) Is(target error) bool {
	return target == ErrExtract
}

var (
	// ErrMemberNotFound is wrapped when the archive has no entry with the requested name.
	ErrMemberNotFound = errors.New("member not found")
	// ErrTruncated is wrapped when a tar entry claims more bytes than remain.
	ErrTruncated = errors.New("truncated archive")
	// ErrBadHeader is wrapped when a tar size field is not octal.
	ErrBadHeader = errors.New("malformed tar header")
)
