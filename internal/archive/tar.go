package archive

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

const (
	tarBlockSize = 512

	tarNameOffset = 0
	tarNameLength = 100
	tarSizeOffset = 124
	tarSizeLength = 12
)

// FindTarMember scans an uncompressed tar stream and returns the content of the
// entry whose header name equals name.
//
// Only the name and size fields of each header are consulted. The scan stops
// at the end-of-archive marker (two zero blocks) or when the stream runs out.
func FindTarMember(data []byte, name string) ([]byte, error) {
	var zeroBlock [tarBlockSize]byte

	for offset := 0; offset+tarBlockSize <= len(data); {
		header := data[offset : offset+tarBlockSize]

		if bytes.Equal(header, zeroBlock[:]) {
			next := offset + tarBlockSize
			if next+tarBlockSize > len(data) || bytes.Equal(data[next:next+tarBlockSize], zeroBlock[:]) {
				break
			}

			offset = next

			continue
		}

		entryName := headerName(header)

		size, err := headerSize(header)
		if err != nil {
			return nil, fmt.Errorf("entry %q: %w", entryName, err)
		}

		start := offset + tarBlockSize
		if size > int64(len(data)-start) {
			return nil, fmt.Errorf("entry %q needs %d bytes: %w", entryName, size, ErrTruncated)
		}

		if entryName == name {
			content := make([]byte, size)
			copy(content, data[start:start+int(size)])

			return content, nil
		}

		offset = start + int(paddedSize(size))
	}

	return nil, fmt.Errorf("%q: %w", name, ErrMemberNotFound)
}

// headerName returns bytes 0-99 up to the first NUL.
func headerName(header []byte) string {
	field := header[tarNameOffset : tarNameOffset+tarNameLength]
	if i := bytes.IndexByte(field, 0); i >= 0 {
		field = field[:i]
	}

	return string(field)
}

// headerSize parses the octal size field in bytes 124-135.
func headerSize(header []byte) (int64, error) {
	field := string(header[tarSizeOffset : tarSizeOffset+tarSizeLength])
	field = strings.Trim(field, "\x00 ")

	if field == "" {
		return 0, nil
	}

	size, err := strconv.ParseInt(field, 8, 64)
	if err != nil || size < 0 {
		return 0, fmt.Errorf("size field %q: %w", field, ErrBadHeader)
	}

	return size, nil
}

// paddedSize rounds size up to a whole number of blocks.
func paddedSize(size int64) int64 {
	return (size + tarBlockSize - 1) / tarBlockSize * tarBlockSize
}
