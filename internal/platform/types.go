// Package platform resolves the host's operating system and CPU architecture
// into the canonical names used by the nonodo release store.
package platform

import "runtime"

// Canonical operating system names.
const (
	OSDarwin  = "darwin"
	OSLinux   = "linux"
	OSWindows = "windows"
)

// Canonical architecture names.
const (
	ArchAMD64 = "amd64"
	ArchARM64 = "arm64"
)

// Key identifies which prebuilt artifact to fetch.
type Key struct {
	OS   string // "darwin", "linux", "windows"
	Arch string // "amd64", "arm64"
}

// supported is the fixed allow-list of published builds.
//
//nolint:gochecknoglobals // Read-only lookup table.
var supported = []Key{
	{OS: OSDarwin, Arch: ArchAMD64},
	{OS: OSDarwin, Arch: ArchARM64},
	{OS: OSLinux, Arch: ArchAMD64},
	{OS: OSLinux, Arch: ArchARM64},
	{OS: OSWindows, Arch: ArchAMD64},
}

// String renders the key as "<os>-<arch>".
func (k Key) String() string {
	return k.OS + "-" + k.Arch
}

// IsWindows reports whether the key targets Windows.
func (k Key) IsWindows() bool {
	return k.OS == OSWindows
}

// Supported reports whether a release is published for the key.
func (k Key) Supported() bool {
	for _, s := range supported {
		if s == k {
			return true
		}
	}

	return false
}

// Supported returns a copy of the allow-list.
func Supported() []Key {
	out := make([]Key, len(supported))
	copy(out, supported)

	return out
}

// Resolve returns the key of the running host. It never fails: whether the
// key is published is decided later by the release locator.
func Resolve() Key {
	return Normalize(runtime.GOOS, runtime.GOARCH)
}
