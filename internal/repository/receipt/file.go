package receipt

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/nonodo-launcher/internal/config"
)

// Repository defines persistence operations for install receipts.
type Repository interface {
	Load(ctx context.Context) (*Receipt, error)
	Save(ctx context.Context, receipt *Receipt) error
}

// FileRepository persists a receipt to a YAML file on disk.
type FileRepository struct {
	// path is the filesystem location of the receipt file.
	path string
	// mu protects concurrent access to the receipt file.
	mu sync.Mutex
}

var (
	// ErrNotFound is returned when the receipt file does not exist yet.
	ErrNotFound = errors.New("receipt not found")
	// errReceiptIsNotSet is returned when Save gets nil.
	errReceiptIsNotSet = errors.New("receipt is not set")
)

// NewFileRepository creates a repository that reads/writes YAML at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// PathFor returns the receipt location for a cached executable.
func PathFor(executablePath string) string {
	return executablePath + FileSuffix
}

// Path returns the receipt file location.
func (r *FileRepository) Path() string {
	return r.path
}

// Load reads the receipt from disk.
func (r *FileRepository) Load(_ context.Context) (*Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read receipt file: %w", err)
	}

	var receipt Receipt
	if err = yaml.Unmarshal(contents, &receipt); err != nil {
		return nil, fmt.Errorf("decode receipt file: %w", err)
	}

	return &receipt, nil
}

// Save writes the receipt to disk.
func (r *FileRepository) Save(_ context.Context, receipt *Receipt) error {
	if receipt == nil {
		return errReceiptIsNotSet
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := yaml.Marshal(receipt)
	if err != nil {
		return fmt.Errorf("encode receipt: %w", err)
	}

	if err = os.WriteFile(r.path, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write receipt file: %w", err)
	}

	return nil
}
