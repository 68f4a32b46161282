package platform

import "strings"

// osAliases maps raw operating system identifiers to canonical names.
//
//nolint:gochecknoglobals // Read-only lookup table.
var osAliases = map[string]string{
	"win32":   OSWindows,
	"windows": OSWindows,
	"darwin":  OSDarwin,
	"macos":   OSDarwin,
	"linux":   OSLinux,
}

// archAliases maps raw CPU identifiers to canonical names.
//
//nolint:gochecknoglobals // Read-only lookup table.
var archAliases = map[string]string{
	"x64":     ArchAMD64,
	"x86_64":  ArchAMD64,
	"amd64":   ArchAMD64,
	"aarch64": ArchARM64,
	"arm64":   ArchARM64,
}

// Normalize converts raw identifiers into a Key. Unknown values are kept
// lower-cased so the error message can name them.
func Normalize(goos, goarch string) Key {
	return Key{
		OS:   normalizeOS(goos),
		Arch: normalizeArch(goarch),
	}
}

func normalizeOS(raw string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	if canonical, ok := osAliases[value]; ok {
		return canonical
	}

	return value
}

func normalizeArch(raw string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	if canonical, ok := archAliases[value]; ok {
		return canonical
	}

	return value
}
