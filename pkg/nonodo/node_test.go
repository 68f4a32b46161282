//go:build !windows

package nonodo

import (
	"archive/tar"
	"bufio"
	"bytes"
	"context"
	"crypto/md5" //nolint:gosec // The release store publishes md5 digests.
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"syscall"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/nonodo-launcher/internal/config"
	"github.com/oshokin/nonodo-launcher/internal/platform"
	"github.com/oshokin/nonodo-launcher/internal/supervisor"
)

func releaseServer(t *testing.T, script string) *httptest.Server {
	t.Helper()

	if !platform.Resolve().Supported() {
		t.Skip("host platform has no release")
	}

	var buf bytes.Buffer

	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "nonodo", Mode: 0o755, Size: int64(len(script))}))
	_, err := tw.Write([]byte(script))
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())

	archiveData := buf.Bytes()
	sum := md5.Sum(archiveData) //nolint:gosec // Test fixture digest.

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, ".md5") {
			_, _ = w.Write([]byte(hex.EncodeToString(sum[:])))

			return
		}

		_, _ = w.Write(archiveData)
	}))
	t.Cleanup(srv.Close)

	return srv
}

// TestNodeLifecycle starts a node, stops it and observes the interrupt.
func TestNodeLifecycle(t *testing.T) {
	srv := releaseServer(t, "#!/bin/sh\nexec sleep 60\n")
	node := New(
		WithConfig(&config.Config{BaseURL: srv.URL + "/", CacheDir: t.TempDir()}),
		WithIO(supervisor.IOOptions{Mode: supervisor.ModePipe}),
	)

	require.ErrorIs(t, node.Stop(), ErrNotRunning)

	_, err := node.Wait()
	require.ErrorIs(t, err, ErrNotRunning)

	require.NoError(t, node.Start(context.Background()))
	require.Positive(t, node.Pid())
	require.NotEmpty(t, node.Path())
	require.ErrorIs(t, node.Start(context.Background()), ErrAlreadyRunning)

	require.NoError(t, node.Stop())
	require.ErrorIs(t, node.Stop(), ErrNotRunning)

	res, err := node.Wait()
	require.NoError(t, err)
	require.Equal(t, syscall.SIGINT, res.Signal)
	require.False(t, node.Running())
}

// TestNodeArgs passes arguments through to the executable.
func TestNodeArgs(t *testing.T) {
	srv := releaseServer(t, "#!/bin/sh\nexit \"$1\"\n")
	node := New(
		WithConfig(&config.Config{BaseURL: srv.URL + "/", CacheDir: t.TempDir()}),
		WithArgs("4"),
		WithIO(supervisor.IOOptions{Mode: supervisor.ModePipe}),
	)

	require.NoError(t, node.Start(context.Background()))

	res, err := node.Wait()
	require.NoError(t, err)
	require.Equal(t, 4, res.ExitCode)
}

// TestNodePipedOutput reads structured output followed by a large stream from the node.
func TestNodePipedOutput(t *testing.T) {
	script := "#!/bin/sh\n" +
		"echo '{\"event\":\"ready\",\"port\":8080}'\n" +
		"head -c 200000 /dev/zero\n" +
		"exit 3\n"
	srv := releaseServer(t, script)
	node := New(
		WithConfig(&config.Config{BaseURL: srv.URL + "/", CacheDir: t.TempDir()}),
		WithIO(supervisor.IOOptions{Mode: supervisor.ModePipe}),
	)

	require.Nil(t, node.Stdout())
	require.NoError(t, node.Start(context.Background()))
	require.NotNil(t, node.Stdin())
	require.NotNil(t, node.Stderr())

	out := bufio.NewReader(node.Stdout())

	line, err := out.ReadBytes('\n')
	require.NoError(t, err)

	var event struct {
		Event string `json:"event"`
		Port  int    `json:"port"`
	}

	require.NoError(t, json.Unmarshal(line, &event))
	require.Equal(t, "ready", event.Event)
	require.Equal(t, 8080, event.Port)

	rest, err := io.Copy(io.Discard, out)
	require.NoError(t, err)
	require.Equal(t, int64(200000), rest)

	res, err := node.Wait()
	require.NoError(t, err)
	require.Equal(t, 3, res.ExitCode)

	_, err = node.Stdout().Read(make([]byte, 1))
	require.ErrorIs(t, err, os.ErrClosed)
}
