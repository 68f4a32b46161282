package provision

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"github.com/oshokin/nonodo-launcher/internal/archive"
	"github.com/oshokin/nonodo-launcher/internal/checksum"
	"github.com/oshokin/nonodo-launcher/internal/config"
	"github.com/oshokin/nonodo-launcher/internal/download"
	"github.com/oshokin/nonodo-launcher/internal/logger"
	"github.com/oshokin/nonodo-launcher/internal/platform"
	"github.com/oshokin/nonodo-launcher/internal/release"
	"github.com/oshokin/nonodo-launcher/internal/repository/receipt"
)

const (
	// lockSuffix is appended to the executable name to form the lock file name.
	lockSuffix = ".lock"
	// lockRetryDelay is how often a busy cache lock is polled.
	lockRetryDelay = 100 * time.Millisecond
	// cacheDirMode is the permission set of a created cache directory.
	cacheDirMode = 0o755
)

// Fetcher retrieves the body at a URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// Options configures a Provisioner. Zero values select defaults.
type Options struct {
	// Version of the release to provision.
	Version string
	// BaseURL of the release folder; empty selects the default location for Version.
	BaseURL string
	// Platform overrides the host platform.
	Platform platform.Key
	// Algorithm names the published checksum; empty selects md5.
	Algorithm string
	// CacheDir holds archives and executables; empty selects os.TempDir().
	CacheDir string
	// Offline turns a cache miss into ErrNotProvisioned.
	Offline bool
	// Fetcher performs downloads; nil selects a download.Client logging progress.
	Fetcher Fetcher
}

// Provisioner ensures one release executable is present in the cache.
type Provisioner struct {
	opts Options

	// mu guards state.
	mu    sync.Mutex
	state State
}

// New creates a provisioner.
func New(opts Options) *Provisioner {
	if opts.Version == "" {
		opts.Version = release.DefaultVersion
	}

	if opts.BaseURL == "" {
		opts.BaseURL = release.DefaultBaseURL(opts.Version)
	}

	if opts.Platform == (platform.Key{}) {
		opts.Platform = platform.Resolve()
	}

	if opts.Algorithm == "" {
		opts.Algorithm = release.DefaultChecksumAlgorithm
	}

	if opts.CacheDir == "" {
		opts.CacheDir = os.TempDir()
	}

	return &Provisioner{
		opts:  opts,
		state: StateNotResolved,
	}
}

// FromConfig creates a provisioner for the launcher settings.
func FromConfig(cfg *config.Config) *Provisioner {
	return New(Options{
		Version:   cfg.Version,
		BaseURL:   cfg.ResolvedBaseURL(),
		Algorithm: cfg.Algorithm,
		CacheDir:  cfg.CacheDir,
		Offline:   cfg.Offline,
	})
}

// State reports the current pipeline step.
func (p *Provisioner) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.state
}

// Descriptor resolves the release for the configured platform without touching the network.
func (p *Provisioner) Descriptor() (*release.Descriptor, error) {
	return release.Locate(p.opts.Version, p.opts.Platform, p.opts.BaseURL,
		release.WithChecksumAlgorithm(p.opts.Algorithm))
}

// EnsureAvailable returns the path of an executable, downloading, verifying and
// unpacking the release first when the cache does not have it.
func (p *Provisioner) EnsureAvailable(ctx context.Context) (string, error) {
	ctx = logger.WithName(ctx, "provision")

	path, err := p.ensure(ctx)
	if err != nil {
		p.setState(ctx, StateFailed)

		return "", err
	}

	return path, nil
}

func (p *Provisioner) ensure(ctx context.Context) (string, error) {
	p.setState(ctx, StateNotResolved)

	algo, err := checksum.ParseAlgorithm(p.opts.Algorithm)
	if err != nil {
		return "", err
	}

	desc, err := p.Descriptor()
	if err != nil {
		return "", err
	}

	cachePath, err := desc.CachePath(p.opts.CacheDir)
	if err != nil {
		return "", fmt.Errorf("cache path: %w", err)
	}

	ctx = logger.WithKV(ctx, "binary", desc.BinaryFileName())

	if isCached(cachePath) {
		p.setState(ctx, StateCacheHit)
		logger.DebugKV(ctx, "Using cached executable", "path", cachePath)

		return cachePath, nil
	}

	if p.opts.Offline {
		return "", fmt.Errorf("%s: %w", cachePath, ErrNotProvisioned)
	}

	logger.InfoKV(ctx, "Executable not found in cache", "path", cachePath)

	if err = os.MkdirAll(p.opts.CacheDir, cacheDirMode); err != nil {
		return "", fmt.Errorf("create cache directory: %w", err)
	}

	unlock, err := lockCache(ctx, filepath.Join(p.opts.CacheDir, desc.BinaryFileName()+lockSuffix))
	if err != nil {
		return "", err
	}

	defer unlock()

	// Another process may have finished while we waited for the lock.
	if isCached(cachePath) {
		p.setState(ctx, StateCacheHit)

		return cachePath, nil
	}

	return p.install(ctx, desc, algo, cachePath)
}

// install runs the download, verify and extract steps for a cache miss.
func (p *Provisioner) install(
	ctx context.Context,
	desc *release.Descriptor,
	algo checksum.Algorithm,
	cachePath string,
) (string, error) {
	p.setState(ctx, StateDownloading)

	archiveData, checksumData, err := p.fetch(ctx, desc)
	if err != nil {
		return "", err
	}

	archivePath, err := desc.ArchivePath(p.opts.CacheDir)
	if err != nil {
		return "", fmt.Errorf("archive path: %w", err)
	}

	checksumPath, err := desc.ChecksumPath(p.opts.CacheDir)
	if err != nil {
		return "", fmt.Errorf("checksum path: %w", err)
	}

	if err = os.WriteFile(archivePath, archiveData, config.DefaultFilePermissions); err != nil {
		return "", fmt.Errorf("save archive: %w", err)
	}

	if err = os.WriteFile(checksumPath, checksumData, config.DefaultFilePermissions); err != nil {
		return "", fmt.Errorf("save checksum: %w", err)
	}

	p.setState(ctx, StateVerifying)

	digest, err := verify(ctx, archivePath, checksumData, desc.ArchiveFileName(), algo)
	if err != nil {
		return "", err
	}

	if err = ctx.Err(); err != nil {
		return "", &download.CancelledError{URL: desc.ArchiveURL(), Err: err}
	}

	p.setState(ctx, StateExtracting)

	// Unpack the verified copy on disk, not the downloaded buffer.
	err = archive.ExtractFile(archivePath, desc.MemberName(), cachePath, desc.Platform().OS)
	if err != nil {
		return "", err
	}

	if !isCached(cachePath) {
		return "", &archive.ExtractError{Member: desc.MemberName(), Archive: archivePath, Err: errExecutableMissing}
	}

	p.saveReceipt(ctx, desc, cachePath, digest)
	p.setState(ctx, StateReady)
	logger.InfoKV(ctx, "Executable ready", "path", cachePath)

	return cachePath, nil
}

// fetch downloads the archive and its checksum file concurrently.
func (p *Provisioner) fetch(ctx context.Context, desc *release.Descriptor) ([]byte, []byte, error) {
	var (
		archiveData  []byte
		checksumData []byte
		group, gctx  = errgroup.WithContext(ctx)
	)

	group.Go(func() error {
		var err error

		archiveData, err = p.fetcher(ctx).Fetch(gctx, desc.ArchiveURL())

		return err
	})

	group.Go(func() error {
		var err error

		checksumData, err = p.fetcher(ctx).Fetch(gctx, desc.ChecksumURL())

		return err
	})

	if err := group.Wait(); err != nil {
		return nil, nil, err
	}

	logger.InfoKV(ctx, "Downloaded release", "archive", desc.ArchiveFileName(), "bytes", len(archiveData))

	return archiveData, checksumData, nil
}

func (p *Provisioner) fetcher(ctx context.Context) Fetcher {
	if p.opts.Fetcher != nil {
		return p.opts.Fetcher
	}

	return download.NewClient(download.WithProgress(progressLogger(ctx)))
}

// verify digests the archive on disk and compares it with the published value.
func verify(
	ctx context.Context,
	archivePath string,
	checksumData []byte,
	archiveName string,
	algo checksum.Algorithm,
) (string, error) {
	expected, err := checksum.ParseChecksumFile(checksumData, archiveName)
	if err != nil {
		return "", err
	}

	actual, err := checksum.Digest(ctx, archivePath, algo)
	if err != nil {
		return "", err
	}

	logger.DebugKV(ctx, "Computed digest", "algorithm", algo.String(), "digest", actual)

	if !checksum.Verify(expected, actual) {
		return "", &checksum.IntegrityError{Path: archivePath, Expected: expected, Actual: actual}
	}

	return actual, nil
}

// saveReceipt records the install. Failures are logged only.
func (p *Provisioner) saveReceipt(ctx context.Context, desc *release.Descriptor, cachePath, digest string) {
	actor, err := receipt.DetectActor()
	if err != nil {
		logger.DebugKV(ctx, "Cannot detect installing actor", "error", err)
	}

	entry := &receipt.Receipt{
		Tool:        desc.Tool(),
		Version:     desc.Version(),
		Platform:    desc.Platform().String(),
		Archive:     desc.ArchiveFileName(),
		Algorithm:   desc.ChecksumAlgorithm(),
		Digest:      digest,
		SourceURL:   desc.ArchiveURL(),
		InstalledAt: time.Now().UTC(),
		InstalledBy: actor,
	}

	repo := receipt.NewFileRepository(receipt.PathFor(cachePath))
	if err = repo.Save(ctx, entry); err != nil {
		logger.WarnKV(ctx, "Cannot write install receipt", "path", repo.Path(), "error", err)
	}
}

func (p *Provisioner) setState(ctx context.Context, next State) {
	p.mu.Lock()
	prev := p.state
	p.state = next
	p.mu.Unlock()

	if prev == next {
		return
	}

	if next.Done() {
		logger.DebugKV(ctx, "Provisioning finished", "state", next.String())

		return
	}

	logger.DebugKV(ctx, "Provisioning state changed", "from", prev.String(), "to", next.String())
}

// lockCache takes the inter-process cache lock, waiting as long as ctx allows.
func lockCache(ctx context.Context, lockPath string) (func(), error) {
	fileLock := flock.New(lockPath)

	locked, err := fileLock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, &download.CancelledError{URL: lockPath, Err: ctxErr}
		}

		return nil, fmt.Errorf("acquire cache lock: %w", err)
	}

	if !locked {
		return nil, fmt.Errorf("%s: %w", lockPath, errLockNotAcquired)
	}

	return func() {
		_ = fileLock.Unlock()
	}, nil
}

// isCached reports whether a file exists at path. Its content is trusted.
func isCached(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}

	return !info.IsDir()
}
