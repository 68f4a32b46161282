package release

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/Masterminds/semver/v3"
	securejoin "github.com/cyphar/filepath-securejoin"

	"github.com/oshokin/nonodo-launcher/internal/platform"
)

const (
	// DefaultTool is the name of the provisioned executable.
	DefaultTool = "nonodo"
	// DefaultVersion is the release fetched when no override is given.
	DefaultVersion = "0.1.0"
	// DefaultChecksumAlgorithm is the digest published next to each archive.
	DefaultChecksumAlgorithm = "md5"

	tarGzSuffix = ".tar.gz"
	zipSuffix   = ".zip"
	exeSuffix   = ".exe"
)

// DefaultBaseURL returns the GitHub release folder of the given version.
func DefaultBaseURL(version string) string {
	return fmt.Sprintf("https://github.com/gligneul/nonodo/releases/download/v%s/", trimVersion(version))
}

// Descriptor is the immutable description of one artifact of one release.
type Descriptor struct {
	tool      string
	version   string
	platform  platform.Key
	baseURL   *url.URL
	algorithm string
}

// Option customizes Locate.
type Option func(*Descriptor)

// WithChecksumAlgorithm selects the extension of the published checksum file.
func WithChecksumAlgorithm(name string) Option {
	return func(d *Descriptor) {
		if name != "" {
			d.algorithm = strings.ToLower(name)
		}
	}
}

// Locate builds the Descriptor of version for key. It fails with
// *UnsupportedPlatformError when no build is published for key.
func Locate(version string, key platform.Key, baseURL string, opts ...Option) (*Descriptor, error) {
	if !key.Supported() {
		return nil, &UnsupportedPlatformError{Platform: key}
	}

	version = trimVersion(version)
	if version == "" {
		return nil, errVersionRequired
	}

	if _, err := semver.NewVersion(version); err != nil {
		return nil, fmt.Errorf("invalid version %q: %w", version, err)
	}

	if strings.TrimSpace(baseURL) == "" {
		return nil, errBaseURLRequired
	}

	parsed, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}

	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid base url %q: scheme and host are required", baseURL)
	}

	d := &Descriptor{
		tool:      DefaultTool,
		version:   version,
		platform:  key,
		baseURL:   parsed,
		algorithm: DefaultChecksumAlgorithm,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d, nil
}

// Tool returns the tool name.
func (d *Descriptor) Tool() string { return d.tool }

// Version returns the release version without a leading "v".
func (d *Descriptor) Version() string { return d.version }

// Platform returns the target platform.
func (d *Descriptor) Platform() platform.Key { return d.platform }

// ChecksumAlgorithm returns the name of the published digest algorithm.
func (d *Descriptor) ChecksumAlgorithm() string { return d.algorithm }

// BaseURL returns a copy of the release folder URL.
func (d *Descriptor) BaseURL() *url.URL {
	u := *d.baseURL
	return &u
}

// stem is "<tool>-v<version>-<os>-<arch>".
func (d *Descriptor) stem() string {
	return fmt.Sprintf("%s-v%s-%s", d.tool, d.version, d.platform)
}

// ArchiveFileName is the name of the published archive.
func (d *Descriptor) ArchiveFileName() string {
	if d.platform.IsWindows() {
		return d.stem() + zipSuffix
	}

	return d.stem() + tarGzSuffix
}

// ChecksumFileName is the name of the published digest of the archive.
func (d *Descriptor) ChecksumFileName() string {
	return d.ArchiveFileName() + "." + d.algorithm
}

// BinaryFileName is the name of the executable in the cache directory.
func (d *Descriptor) BinaryFileName() string {
	if d.platform.IsWindows() {
		return d.stem() + exeSuffix
	}

	return d.stem()
}

// MemberName is the name of the executable inside the archive.
func (d *Descriptor) MemberName() string {
	if d.platform.IsWindows() {
		return d.tool + exeSuffix
	}

	return d.tool
}

// ArchiveURL is "<baseURL>/<archive>".
func (d *Descriptor) ArchiveURL() string {
	return d.baseURL.JoinPath(d.ArchiveFileName()).String()
}

// ChecksumURL is "<baseURL>/<archive>.<algorithm>".
func (d *Descriptor) ChecksumURL() string {
	return d.baseURL.JoinPath(d.ChecksumFileName()).String()
}

// CachePath is where the final executable lives inside dir.
func (d *Descriptor) CachePath(dir string) (string, error) {
	return securejoin.SecureJoin(dir, d.BinaryFileName())
}

// ArchivePath is where the downloaded archive is kept inside dir.
func (d *Descriptor) ArchivePath(dir string) (string, error) {
	return securejoin.SecureJoin(dir, d.ArchiveFileName())
}

// ChecksumPath is where the downloaded checksum file is kept inside dir.
func (d *Descriptor) ChecksumPath(dir string) (string, error) {
	return securejoin.SecureJoin(dir, d.ChecksumFileName())
}

func trimVersion(version string) string {
	return strings.TrimPrefix(strings.TrimSpace(version), "v")
}
