package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/nonodo-launcher/internal/checksum"
	"github.com/oshokin/nonodo-launcher/internal/logger"
	"github.com/oshokin/nonodo-launcher/internal/release"
)

// Config holds the provisioning and supervision settings.
type Config struct {
	// Version is the release of the tool to provision.
	Version string `yaml:"version"`
	// BaseURL is the release store directory holding archives and checksum files.
	// Empty means the default location for Version.
	BaseURL string `yaml:"url,omitempty"`
	// CacheDir is where archives and executables are kept.
	CacheDir string `yaml:"dir"`
	// Algorithm names the checksum published next to every archive.
	Algorithm string `yaml:"hash"`
	// LogLevel is the minimum level of launcher records.
	LogLevel string `yaml:"log_level"`
	// Offline forbids downloads; a cache miss is then an error.
	Offline bool `yaml:"offline"`
	// EscalationWindow is the delay between SIGINT and SIGTERM sent to the child.
	EscalationWindow time.Duration `yaml:"escalation_window"`
}

// Environment variables understood by FromEnv.
const (
	EnvVersion  = "PACKAGE_NONODO_VERSION"
	EnvURL      = "PACKAGE_NONODO_URL"
	EnvDir      = "PACKAGE_NONODO_DIR"
	EnvConfig   = "PACKAGE_NONODO_CONFIG"
	EnvLogLevel = "PACKAGE_NONODO_LOG_LEVEL"
	EnvOffline  = "PACKAGE_NONODO_OFFLINE"
	EnvHash     = "PACKAGE_NONODO_HASH"
)

const (
	// DefaultLogLevel is used when no level is configured.
	DefaultLogLevel = "info"

	// DefaultEscalationWindow is how long a child gets to honour SIGINT.
	DefaultEscalationWindow = 3 * time.Second

	// DefaultFilePermissions is the permission set for files the launcher writes.
	DefaultFilePermissions = 0o644
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errConfigPathRequired is returned when Save gets no destination.
	errConfigPathRequired = errors.New("configuration path must be provided")
	// errNegativeWindow is returned for a negative escalation window.
	errNegativeWindow = errors.New("escalation window must not be negative")
	// errUnknownLogLevel is returned for a level ParseLogLevel does not know.
	errUnknownLogLevel = errors.New("unknown log level")
)

// Default returns a configuration populated with defaults only.
func Default() *Config {
	return &Config{
		Version:          release.DefaultVersion,
		BaseURL:          "",
		CacheDir:         os.TempDir(),
		Algorithm:        release.DefaultChecksumAlgorithm,
		LogLevel:         DefaultLogLevel,
		Offline:          false,
		EscalationWindow: DefaultEscalationWindow,
	}
}

// Load reads configuration from the provided path on top of the defaults and validates it.
func Load(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.merge(path); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes cfg to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		return errConfigPathRequired
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// FromEnv assembles the configuration from defaults, the YAML file named by
// PACKAGE_NONODO_CONFIG (if any) and the remaining PACKAGE_NONODO_* variables.
// A nil lookup reads the process environment.
func FromEnv(lookup func(string) (string, bool)) (*Config, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	cfg := Default()

	if path, ok := nonEmpty(lookup, EnvConfig); ok {
		if err := cfg.merge(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the provided settings and fills unset fields with defaults.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	cfg.Version = strings.TrimSpace(cfg.Version)
	if cfg.Version == "" {
		cfg.Version = release.DefaultVersion
	}

	if cfg.CacheDir == "" {
		cfg.CacheDir = os.TempDir()
	}

	if cfg.Algorithm == "" {
		cfg.Algorithm = release.DefaultChecksumAlgorithm
	}

	if _, err := checksum.ParseAlgorithm(cfg.Algorithm); err != nil {
		return fmt.Errorf("invalid hash: %w", err)
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}

	if _, ok := logger.ParseLogLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("%q: %w", cfg.LogLevel, errUnknownLogLevel)
	}

	if cfg.EscalationWindow < 0 {
		return errNegativeWindow
	}

	if cfg.EscalationWindow == 0 {
		cfg.EscalationWindow = DefaultEscalationWindow
	}

	if cfg.BaseURL == "" {
		return nil
	}

	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return fmt.Errorf("invalid release URL: %w", err)
	}

	return nil
}

// ResolvedBaseURL returns BaseURL, or the default release location for Version.
func (c *Config) ResolvedBaseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}

	return release.DefaultBaseURL(strings.TrimPrefix(c.Version, "v"))
}

// merge overlays the YAML file at path onto c.
func (c *Config) merge(path string) error {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("read settings: %w", err)
	}

	if err := yaml.Unmarshal(contents, c); err != nil {
		return fmt.Errorf("unmarshal settings: %w", err)
	}

	return nil
}

// applyEnv overlays the PACKAGE_NONODO_* variables onto c.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := nonEmpty(lookup, EnvVersion); ok {
		c.Version = v
	}

	if v, ok := nonEmpty(lookup, EnvURL); ok {
		c.BaseURL = v
	}

	if v, ok := nonEmpty(lookup, EnvDir); ok {
		c.CacheDir = v
	}

	if v, ok := nonEmpty(lookup, EnvLogLevel); ok {
		c.LogLevel = v
	}

	if v, ok := nonEmpty(lookup, EnvHash); ok {
		c.Algorithm = v
	}

	if v, ok := nonEmpty(lookup, EnvOffline); ok {
		offline, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvOffline, err)
		}

		c.Offline = offline
	}

	return nil
}

func nonEmpty(lookup func(string) (string, bool), key string) (string, bool) {
	v, ok := lookup(key)
	if !ok {
		return "", false
	}

	v = strings.TrimSpace(v)

	return v, v != ""
}
