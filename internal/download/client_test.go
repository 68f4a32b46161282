package download

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestFetchFollowsRedirect checks that a relative 302 is resolved against the
// requesting URL and the final body is returned.
func TestFetchFollowsRedirect(t *testing.T) {
	t.Parallel()

	var userAgents []string

	var mu sync.Mutex

	mux := http.NewServeMux()
	mux.HandleFunc("/releases/a.tar.gz", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		userAgents = append(userAgents, r.UserAgent())
		mu.Unlock()
		http.Redirect(w, r, "../cdn/a.tar.gz", http.StatusFound)
	})
	mux.HandleFunc("/cdn/a.tar.gz", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		userAgents = append(userAgents, r.UserAgent())
		mu.Unlock()
		_, _ = w.Write([]byte("X"))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c := NewClient(WithUserAgent("test-agent/1"))
	body, err := c.Fetch(context.Background(), srv.URL+"/releases/a.tar.gz")
	require.NoError(t, err)
	require.Equal(t, []byte("X"), body)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"test-agent/1", "test-agent/1"}, userAgents)
}

// TestFetchRedirectCap verifies an endless redirect loop fails with ErrTooManyRedirects.
func TestFetchRedirectCap(t *testing.T) {
	t.Parallel()

	var hits int

	var mu sync.Mutex

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
		http.Redirect(w, r, "/loop", http.StatusMovedPermanently)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(WithMaxRedirects(3))
	_, err := c.Fetch(context.Background(), srv.URL+"/loop")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrNetwork)
	require.ErrorIs(t, err, ErrTooManyRedirects)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 4, hits)
}

// TestFetchBadStatus ensures non-2xx responses carry the status in a NetworkError.
func TestFetchBadStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	_, err := NewClient().Fetch(context.Background(), srv.URL+"/missing")
	require.Error(t, err)

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	require.Equal(t, http.StatusNotFound, netErr.StatusCode)
	require.Contains(t, err.Error(), "404")
	require.NotErrorIs(t, err, ErrCancelled)
}

// TestFetchRedirectWithoutLocation treats a 3xx without Location as a failure.
func TestFetchRedirectWithoutLocation(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusFound)
	}))
	t.Cleanup(srv.Close)

	_, err := NewClient().Fetch(context.Background(), srv.URL)
	require.ErrorIs(t, err, ErrNetwork)
}

// TestFetchProgressUnknownLength checks that a chunked response reports Total as -1.
func TestFetchProgressUnknownLength(t *testing.T) {
	t.Parallel()

	payload := strings.Repeat("n", 3*readChunkSize+7)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		flusher, _ := w.(http.Flusher)

		for i := 0; i < len(payload); i += 1000 {
			end := min(i+1000, len(payload))
			_, _ = w.Write([]byte(payload[i:end]))
			flusher.Flush()
		}
	}))
	t.Cleanup(srv.Close)

	var updates []Progress

	c := NewClient(WithProgress(func(p Progress) { updates = append(updates, p) }))
	body, err := c.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, payload, string(body))

	require.NotEmpty(t, updates)

	last := updates[len(updates)-1]
	require.Equal(t, int64(len(payload)), last.Received)
	require.Equal(t, int64(-1), last.Total)
	require.InDelta(t, -1, last.Percent(), 0)

	for i := 1; i < len(updates); i++ {
		require.GreaterOrEqual(t, updates[i].Received, updates[i-1].Received)
	}
}

// TestFetchProgressKnownLength checks that Content-Length is reported as Total.
func TestFetchProgressKnownLength(t *testing.T) {
	t.Parallel()

	payload := strings.Repeat("z", 100)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		_, _ = w.Write([]byte(payload))
	}))
	t.Cleanup(srv.Close)

	var last Progress

	c := NewClient(WithProgress(func(p Progress) { last = p }))
	_, err := c.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, int64(100), last.Total)
	require.InDelta(t, 100, last.Percent(), 0.001)
}

// TestFetchOversizedContentLength fails cleanly when the server announces far
// more bytes than it sends.
func TestFetchOversizedContentLength(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Length", "1099511627776000")
		_, _ = w.Write([]byte("x"))
	}))
	t.Cleanup(srv.Close)

	var last Progress

	c := NewClient(WithProgress(func(p Progress) { last = p }))
	_, err := c.Fetch(context.Background(), srv.URL)
	require.ErrorIs(t, err, ErrNetwork)
	require.NotErrorIs(t, err, ErrCancelled)
	require.Equal(t, int64(1099511627776000), last.Total)
}

// TestFetchCancelled verifies that cancelling mid-body yields CancelledError.
func TestFetchCancelled(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000")
		_, _ = w.Write([]byte("partial"))
		w.(http.Flusher).Flush()

		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())

	c := NewClient(WithProgress(func(p Progress) {
		if p.Received > 0 {
			cancel()
		}
	}))

	_, err := c.Fetch(ctx, srv.URL)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrCancelled)
	require.NotErrorIs(t, err, ErrNetwork)
	require.True(t, errors.Is(err, context.Canceled))
}

// TestFetchCancelledBeforeStart ensures an already-cancelled context never succeeds.
func TestFetchCancelledBeforeStart(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("X"))
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient().Fetch(ctx, srv.URL)
	require.ErrorIs(t, err, ErrCancelled)
}

// TestFetchInvalidURL reports malformed URLs as network failures.
func TestFetchInvalidURL(t *testing.T) {
	t.Parallel()

	_, err := NewClient().Fetch(context.Background(), "http://[::1")
	require.ErrorIs(t, err, ErrNetwork)
}
