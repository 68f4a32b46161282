package receipt

import (
	"fmt"
	"os"
	"os/user"
	"time"
)

// FileSuffix is appended to the executable name to form the receipt file name.
const FileSuffix = ".receipt.yaml"

// Receipt describes one completed provisioning.
type Receipt struct {
	Tool        string    `yaml:"tool"`
	Version     string    `yaml:"version"`
	Platform    string    `yaml:"platform"`
	Archive     string    `yaml:"archive"`
	Algorithm   string    `yaml:"algorithm"`
	Digest      string    `yaml:"digest"`
	SourceURL   string    `yaml:"source_url"`
	InstalledAt time.Time `yaml:"installed_at"`
	InstalledBy *Actor    `yaml:"installed_by,omitempty"`
}

// Actor identifies the machine and account that performed an install.
type Actor struct {
	Hostname string `yaml:"hostname"`
	Username string `yaml:"username"`
}

// DetectActor gathers host and user information for the receipt.
func DetectActor() (*Actor, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("hostname: %w", err)
	}

	currentUser, err := user.Current()
	if err != nil {
		return nil, fmt.Errorf("current user: %w", err)
	}

	return &Actor{
		Hostname: hostname,
		Username: currentUser.Username,
	}, nil
}
