package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	goupdate "github.com/doitdistributed/go-update"
	"github.com/klauspost/compress/gzip"
)

const (
	// ExecutableMode is the permission set of an extracted executable.
	ExecutableMode os.FileMode = 0o755

	goosWindows = "windows"
	dirMode     = 0o755
)

// ExtractFile locates member inside the archive at archivePath and writes it
// to destPath. goos selects the container format: zip for windows, tar+gzip otherwise.
func ExtractFile(archivePath, member, destPath, goos string) error {
	data, err := os.ReadFile(archivePath)
	if err != nil {
		return &ExtractError{Member: member, Archive: archivePath, Err: err}
	}

	return extract(data, member, destPath, goos, archivePath)
}

// extract unpacks member from an in-memory archive; label names it in errors.
func extract(archive []byte, member, destPath, goos, label string) error {
	content, err := findMember(archive, member, goos)
	if err != nil {
		return &ExtractError{Member: member, Archive: label, Err: err}
	}

	if err = writeExecutable(destPath, content); err != nil {
		return &ExtractError{Member: member, Archive: label, Err: err}
	}

	return nil
}

func findMember(archive []byte, member, goos string) ([]byte, error) {
	if goos == goosWindows {
		return FindZipMember(archive, member)
	}

	tarBytes, err := gunzip(archive)
	if err != nil {
		return nil, err
	}

	return FindTarMember(tarBytes, member)
}

// gunzip decompresses the whole envelope into memory.
func gunzip(data []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open gzip: %w", err)
	}

	defer func() {
		_ = reader.Close()
	}()

	out, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("decompress gzip: %w", err)
	}

	return out, nil
}

// writeExecutable replaces destPath with content through go-update so a
// reader never observes a partially written executable.
func writeExecutable(destPath string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(destPath), dirMode); err != nil {
		return err
	}

	// go-update renames the current target aside, so it has to exist.
	placeholder := false

	if _, err := os.Stat(destPath); errors.Is(err, os.ErrNotExist) {
		f, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY, ExecutableMode)
		if err != nil {
			return err
		}

		_ = f.Close()
		placeholder = true
	}

	err := goupdate.Apply(bytes.NewReader(content), goupdate.Options{
		TargetPath: destPath,
		TargetMode: ExecutableMode,
	})
	if err != nil {
		if placeholder {
			_ = os.Remove(destPath)
		}

		return fmt.Errorf("apply %s: %w", destPath, err)
	}

	// Apply leaves the previous file behind on some platforms.
	_ = os.Remove(oldPath(destPath))

	return os.Chmod(destPath, ExecutableMode)
}

// oldPath mirrors go-update's default name for the replaced file.
func oldPath(destPath string) string {
	return filepath.Join(filepath.Dir(destPath), "."+filepath.Base(destPath)+".old")
}
