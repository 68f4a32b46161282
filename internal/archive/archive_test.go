package archive

import (
	"archive/tar"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// rawTarHeader builds a 512-byte header with only the name and size fields set.
func rawTarHeader(name string, size int) []byte {
	header := make([]byte, tarBlockSize)
	copy(header[tarNameOffset:], name)
	copy(header[tarSizeOffset:], fmt.Sprintf("%011o\x00", size))

	return header
}

// rawTar lays out entries in the tar block format and appends the end marker.
func rawTar(entries ...[2]string) []byte {
	var buf bytes.Buffer

	for _, entry := range entries {
		buf.Write(rawTarHeader(entry[0], len(entry[1])))
		buf.WriteString(entry[1])

		if pad := int(paddedSize(int64(len(entry[1])))) - len(entry[1]); pad > 0 {
			buf.Write(make([]byte, pad))
		}
	}

	buf.Write(make([]byte, 2*tarBlockSize))

	return buf.Bytes()
}

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()

	var buf bytes.Buffer

	w := gzip.NewWriter(&buf)
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	return buf.Bytes()
}

func zipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer

	w := zip.NewWriter(&buf)

	for name, content := range files {
		f, err := w.Create(name)
		require.NoError(t, err)

		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}

	require.NoError(t, w.Close())

	return buf.Bytes()
}

// TestFindTarMember checks lookup across entries with unaligned sizes.
func TestFindTarMember(t *testing.T) {
	t.Parallel()

	readme := strings.Repeat("r", 700)
	binary := strings.Repeat("\x7fELF", 301)

	data := rawTar([2]string{"README.md", readme}, [2]string{"nonodo", binary})

	got, err := FindTarMember(data, "nonodo")
	require.NoError(t, err)
	require.Equal(t, binary, string(got))

	got, err = FindTarMember(data, "README.md")
	require.NoError(t, err)
	require.Equal(t, readme, string(got))

	_, err = FindTarMember(data, "missing")
	require.ErrorIs(t, err, ErrMemberNotFound)
}

// TestFindTarMemberStdlibWriter ensures headers produced by archive/tar are understood.
func TestFindTarMemberStdlibWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	tw := tar.NewWriter(&buf)
	for _, f := range []struct{ name, body string }{
		{"LICENSE", "MIT"},
		{"nonodo", "binary-content"},
	} {
		require.NoError(t, tw.WriteHeader(&tar.Header{Name: f.name, Mode: 0o755, Size: int64(len(f.body))}))
		_, err := tw.Write([]byte(f.body))
		require.NoError(t, err)
	}

	require.NoError(t, tw.Close())

	got, err := FindTarMember(buf.Bytes(), "nonodo")
	require.NoError(t, err)
	require.Equal(t, "binary-content", string(got))
}

// TestFindTarMemberErrors covers truncation, bad size fields and an empty stream.
func TestFindTarMemberErrors(t *testing.T) {
	t.Parallel()

	truncated := append(rawTarHeader("nonodo", 1000), make([]byte, 10)...)
	_, err := FindTarMember(truncated, "nonodo")
	require.ErrorIs(t, err, ErrTruncated)

	bad := rawTarHeader("nonodo", 1)
	copy(bad[tarSizeOffset:], "9zz\x00")
	_, err = FindTarMember(bad, "nonodo")
	require.ErrorIs(t, err, ErrBadHeader)

	_, err = FindTarMember(nil, "nonodo")
	require.ErrorIs(t, err, ErrMemberNotFound)

	_, err = FindTarMember(make([]byte, 4*tarBlockSize), "nonodo")
	require.ErrorIs(t, err, ErrMemberNotFound)
}

// TestFindTarMemberProperty checks that any member of a generated archive is found intact.
func TestFindTarMemberProperty(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		count := rapid.IntRange(1, 5).Draw(t, "count")
		entries := make([][2]string, 0, count)

		for i := range count {
			body := rapid.SliceOfN(rapid.Byte(), 0, 2000).Draw(t, fmt.Sprintf("body%d", i))
			entries = append(entries, [2]string{fmt.Sprintf("file-%d", i), string(body)})
		}

		pick := rapid.IntRange(0, count-1).Draw(t, "pick")

		got, err := FindTarMember(rawTar(entries...), entries[pick][0])
		if err != nil {
			t.Fatalf("find %s: %v", entries[pick][0], err)
		}

		if string(got) != entries[pick][1] {
			t.Fatalf("content mismatch for %s", entries[pick][0])
		}
	})
}

// TestFindZipMember checks exact-name lookup in a zip archive.
func TestFindZipMember(t *testing.T) {
	t.Parallel()

	data := zipBytes(t, map[string]string{
		"nonodo.exe":     "MZ-windows",
		"docs/README.md": "docs",
	})

	got, err := FindZipMember(data, "nonodo.exe")
	require.NoError(t, err)
	require.Equal(t, "MZ-windows", string(got))

	_, err = FindZipMember(data, "nonodo")
	require.ErrorIs(t, err, ErrMemberNotFound)

	_, err = FindZipMember([]byte("not a zip"), "nonodo.exe")
	require.Error(t, err)
}

// TestExtractTarGz extracts a single member whose length is not block-aligned.
func TestExtractTarGz(t *testing.T) {
	t.Parallel()

	content := strings.Repeat("nonodo!", 99)
	archive := gzipBytes(t, rawTar([2]string{"nonodo", content}))
	dest := filepath.Join(t.TempDir(), "bin", "nonodo-v0.1.0-linux-amd64")

	require.NoError(t, extract(archive, "nonodo", dest, "linux", "archive"))

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, content, string(got))

	if runtime.GOOS != goosWindows {
		info, err := os.Stat(dest)
		require.NoError(t, err)
		require.Equal(t, ExecutableMode, info.Mode().Perm())
	}

	_, err = os.Stat(oldPath(dest))
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestExtractReplacesExisting overwrites a stale destination.
func TestExtractReplacesExisting(t *testing.T) {
	t.Parallel()

	dest := filepath.Join(t.TempDir(), "nonodo")
	require.NoError(t, os.WriteFile(dest, []byte("stale"), 0o600))

	archive := gzipBytes(t, rawTar([2]string{"nonodo", "fresh"}))
	require.NoError(t, extract(archive, "nonodo", dest, "darwin", "archive"))

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, "fresh", string(got))
}

// TestExtractZip uses the zip path for windows.
func TestExtractZip(t *testing.T) {
	t.Parallel()

	archive := zipBytes(t, map[string]string{"nonodo.exe": "MZ"})
	dest := filepath.Join(t.TempDir(), "nonodo-v0.1.0-windows-amd64.exe")

	require.NoError(t, extract(archive, "nonodo.exe", dest, "windows", "archive"))

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, "MZ", string(got))
}

// TestExtractMissingMember reports ExtractError and leaves no file behind.
func TestExtractMissingMember(t *testing.T) {
	t.Parallel()

	archive := gzipBytes(t, rawTar([2]string{"other", "x"}))
	dest := filepath.Join(t.TempDir(), "nonodo")

	err := extract(archive, "nonodo", dest, "linux", "archive")
	require.ErrorIs(t, err, ErrExtract)
	require.ErrorIs(t, err, ErrMemberNotFound)

	var extractErr *ExtractError
	require.ErrorAs(t, err, &extractErr)
	require.Equal(t, "nonodo", extractErr.Member)
	require.Contains(t, err.Error(), "problem on unpack")

	_, err = os.Stat(dest)
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestExtractNotGzip rejects a tar path input that is not gzip-compressed.
func TestExtractNotGzip(t *testing.T) {
	t.Parallel()

	err := extract(rawTar([2]string{"nonodo", "x"}), "nonodo", filepath.Join(t.TempDir(), "nonodo"), "linux", "archive")
	require.ErrorIs(t, err, ErrExtract)
}

// TestExtractFile reads the archive from disk.
func TestExtractFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	archivePath := filepath.Join(dir, "nonodo-v0.1.0-linux-arm64.tar.gz")
	require.NoError(t, os.WriteFile(archivePath, gzipBytes(t, rawTar([2]string{"nonodo", "arm"})), 0o600))

	dest := filepath.Join(dir, "nonodo-v0.1.0-linux-arm64")
	require.NoError(t, ExtractFile(archivePath, "nonodo", dest, "linux"))

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, "arm", string(got))

	err = ExtractFile(filepath.Join(dir, "absent.tar.gz"), "nonodo", dest, "linux")
	require.ErrorIs(t, err, ErrExtract)
	require.ErrorIs(t, err, os.ErrNotExist)
}
