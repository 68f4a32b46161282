package download

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/oshokin/nonodo-launcher/internal/logger"
	"github.com/oshokin/nonodo-launcher/internal/version"
)

const (
	// DefaultMaxRedirects caps the number of followed redirects.
	DefaultMaxRedirects = 10
	// DefaultTimeout bounds the time to receive response headers.
	DefaultTimeout = 30 * time.Second

	readChunkSize = 32 * 1024
	// maxPreallocate bounds the buffer reserved from Content-Length up front.
	maxPreallocate = 64 << 20
)

// Progress is a snapshot of a running transfer.
type Progress struct {
	URL      string
	Received int64
	// Total is the Content-Length, or -1 when the server did not send one.
	Total int64
}

// Percent returns the completed share in [0, 100], or -1 when Total is unknown.
func (p Progress) Percent() float64 {
	if p.Total <= 0 {
		return -1
	}

	return float64(p.Received) * 100 / float64(p.Total)
}

// Client downloads artifacts into memory.
type Client struct {
	// httpClient performs single requests; it never follows redirects itself.
	httpClient *http.Client
	// userAgent is sent with every request.
	userAgent string
	// maxRedirects is the number of hops allowed per Fetch.
	maxRedirects int
	// progress receives transfer updates; may be nil.
	progress func(Progress)
}

// Option configures client behaviour.
type Option func(*Client)

// WithHTTPClient uses c for requests. Its redirect policy is replaced.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		if c != nil {
			copied := *c
			client.httpClient = &copied
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

// WithMaxRedirects sets the redirect cap.
func WithMaxRedirects(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRedirects = n
		}
	}
}

// WithProgress registers a progress callback. It runs on the downloading goroutine.
func WithProgress(fn func(Progress)) Option {
	return func(c *Client) {
		c.progress = fn
	}
}

// NewClient creates a download client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				ResponseHeaderTimeout: DefaultTimeout,
				TLSHandshakeTimeout:   DefaultTimeout,
			},
		},
		userAgent:    version.UserAgent(),
		maxRedirects: DefaultMaxRedirects,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.httpClient.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	return c
}

// Fetch downloads rawURL, following up to the configured number of redirects,
// and returns the response body.
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	current, err := url.Parse(rawURL)
	if err != nil {
		return nil, &NetworkError{URL: rawURL, Err: err}
	}

	for hops := 0; ; hops++ {
		logger.DebugKV(ctx, "Requesting", "url", current.String(), "hop", hops)

		body, next, err := c.fetchOnce(ctx, current)
		if err != nil {
			return nil, err
		}

		if next == nil {
			return body, nil
		}

		if hops >= c.maxRedirects {
			return nil, &NetworkError{URL: rawURL, Err: fmt.Errorf("%w: more than %d", ErrTooManyRedirects, c.maxRedirects)}
		}

		logger.DebugKV(ctx, "Redirecting", "from", current.String(), "to", next.String())
		current = next
	}
}

// fetchOnce performs one request. It returns either the body or the redirect target.
func (c *Client) fetchOnce(ctx context.Context, target *url.URL) ([]byte, *url.URL, error) {
	rawURL := target.String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, nil, &NetworkError{URL: rawURL, Err: err}
	}

	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, c.wrap(ctx, rawURL, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices:
		body, err := c.readBody(ctx, rawURL, resp)
		if err != nil {
			return nil, nil, err
		}

		return body, nil, nil
	case resp.StatusCode >= http.StatusMultipleChoices && resp.StatusCode < http.StatusBadRequest:
		location := resp.Header.Get("Location")
		if location == "" {
			break
		}

		next, err := target.Parse(location)
		if err != nil {
			return nil, nil, &NetworkError{URL: rawURL, StatusCode: resp.StatusCode, Status: resp.Status, Err: err}
		}

		return nil, next, nil
	}

	return nil, nil, &NetworkError{URL: rawURL, StatusCode: resp.StatusCode, Status: resp.Status}
}

// readBody streams the response into memory and reports progress by bytes.
func (c *Client) readBody(ctx context.Context, rawURL string, resp *http.Response) ([]byte, error) {
	total := resp.ContentLength // -1 when unknown

	// Content-Length is only a hint: a larger body grows the buffer as it arrives.
	var buf bytes.Buffer
	if total > 0 && total <= maxPreallocate {
		buf.Grow(int(total))
	}

	chunk := make([]byte, readChunkSize)

	for {
		n, err := resp.Body.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			c.report(Progress{URL: rawURL, Received: int64(buf.Len()), Total: total})
		}

		if errors.Is(err, io.EOF) {
			return buf.Bytes(), nil
		}

		if err != nil {
			return nil, c.wrap(ctx, rawURL, err)
		}
	}
}

func (c *Client) report(p Progress) {
	if c.progress != nil {
		c.progress(p)
	}
}

// wrap classifies err as a cancellation or a network failure.
func (c *Client) wrap(ctx context.Context, rawURL string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return &CancelledError{URL: rawURL, Err: ctxErr}
	}

	return &NetworkError{URL: rawURL, Err: err}
}
