package release

import (
	"errors"
	"fmt"
	"strings"

	"github.com/oshokin/nonodo-launcher/internal/platform"
)

var (
	// ErrUnsupportedPlatform is matched by UnsupportedPlatformError.
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	// errVersionRequired is returned when the version string is blank.
	errVersionRequired = errors.New("version must be provided")
	// errBaseURLRequired is returned when the base URL is blank.
	errBaseURLRequired = errors.New("base url must be provided")
)

// UnsupportedPlatformError reports a host for which no build is published.
type UnsupportedPlatformError struct {
	Platform platform.Key
}

func (e *UnsupportedPlatformError) Error() string {
	keys := platform.Supported()

	names := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, k.String())
	}

	return fmt.Sprintf("incompatible platform %s, nonodo supports: %s",
		e.Platform, strings.Join(names, ", "))
}

// Is makes errors.Is(err, ErrUnsupportedPlatform) work.
func (e *UnsupportedPlatformError) Is(target error) bool {
	return target == ErrUnsupportedPlatform
}
