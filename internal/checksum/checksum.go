package checksum

import (
	"bufio"
	"bytes"
	"context"
	"crypto"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	// Register the supported hash implementations.
	_ "crypto/md5"    //nolint:gosec // The release store publishes md5 digests.
	_ "crypto/sha256" // sha256 digests.
	_ "crypto/sha512" // sha512 digests.
)

// ChunkSize is the size of the buffer used to stream files through the hash.
const ChunkSize = 32 * 1024

// Algorithm is a named hash function.
type Algorithm struct {
	name string
	hash crypto.Hash
}

// Supported algorithms.
//
//nolint:gochecknoglobals // Read-only values.
var (
	MD5    = Algorithm{name: "md5", hash: crypto.MD5}
	SHA256 = Algorithm{name: "sha256", hash: crypto.SHA256}
	SHA512 = Algorithm{name: "sha512", hash: crypto.SHA512}
)

// ParseAlgorithm returns the Algorithm called name.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "md5":
		return MD5, nil
	case "sha256":
		return SHA256, nil
	case "sha512":
		return SHA512, nil
	default:
		return Algorithm{}, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}
}

// String returns the algorithm name, which is also the checksum file extension.
func (a Algorithm) String() string {
	return a.name
}

// Digest streams the file at path through algo and returns the lowercase hex
// digest. The context is checked between chunks.
func Digest(ctx context.Context, path string, algo Algorithm) (string, error) {
	if algo.hash == 0 || !algo.hash.Available() {
		return "", fmt.Errorf("%s: %w", algo, ErrHashUnavailable)
	}

	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return "", &IOError{Path: path, Err: err}
	}

	defer func() {
		_ = file.Close()
	}()

	hasher := algo.hash.New()
	buf := make([]byte, ChunkSize)

	for {
		if err = ctx.Err(); err != nil {
			return "", err
		}

		n, readErr := file.Read(buf)
		if n > 0 {
			// hash.Hash.Write never returns an error.
			_, _ = hasher.Write(buf[:n])
		}

		if readErr == io.EOF {
			break
		}

		if readErr != nil {
			return "", &IOError{Path: path, Err: readErr}
		}
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// Verify reports whether the observed digest equals the trusted one.
func Verify(expected, actual string) bool {
	return expected == actual
}

// ParseChecksumFile extracts the digest for fileName from the contents of a
// checksum file. Both a bare digest and "<digest>  <name>" lines are accepted.
func ParseChecksumFile(data []byte, fileName string) (string, error) {
	var first string

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		if len(fields) == 1 {
			if first == "" {
				first = fields[0]
			}

			continue
		}

		// sha*sum prefixes binary-mode names with '*'.
		name := strings.TrimPrefix(fields[1], "*")
		if name == fileName || filepath.Base(name) == fileName {
			return fields[0], nil
		}
	}

	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("scan checksum file: %w", err)
	}

	if first == "" {
		return "", fmt.Errorf("%s: %w", fileName, errNoDigest)
	}

	return first, nil
}
