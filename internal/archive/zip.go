package archive

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zip"
)

// FindZipMember returns the decompressed content of the zip entry named exactly name.
func FindZipMember(data []byte, name string) ([]byte, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}

	for _, file := range reader.File {
		if file.Name != name {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("open %q: %w", name, err)
		}

		content, err := io.ReadAll(rc)

		_ = rc.Close()

		if err != nil {
			return nil, fmt.Errorf("read %q: %w", name, err)
		}

		return content, nil
	}

	return nil, fmt.Errorf("%q: %w", name, ErrMemberNotFound)
}
