// Package fetch retrieves the raw cyclist dataset in a single request.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/okian/dopingplot/internal/domain/model"
	"github.com/okian/dopingplot/internal/domain/normalize"
	"github.com/okian/dopingplot/pkg/logger"
	"github.com/okian/dopingplot/pkg/metrics"
)

// Default fetch configuration constants.
const (
	defaultTimeout  = 10 * time.Second
	defaultMaxBytes = 8 << 20
	userAgent       = "dopingplot/1.0"
)

// Fetcher loads the raw record set.
type Fetcher interface {
	Fetch(ctx context.Context, src string) ([]model.RawRecord, error)
}

// Client performs one GET per call with no retries.
type Client struct {
	http     *http.Client
	timeout  time.Duration
	maxBytes int64
	logger   logger.Logger
}

// New creates a Client.
func New(opts ...Option) *Client {
	c := &Client{
		http:     &http.Client{},
		timeout:  defaultTimeout,
		maxBytes: defaultMaxBytes,
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch retrieves and decodes the dataset at src. http(s) URLs are fetched
// over the network; file:// URLs and bare paths are read from disk.
// Transport, status and size failures wrap ErrFetch; a payload that is not a
// JSON array wraps normalize.ErrInvalidInput.
func (c *Client) Fetch(ctx context.Context, src string) ([]model.RawRecord, error) {
	start := time.Now()
	records, err := c.fetch(ctx, src)
	took := time.Since(start)
	metrics.RecordFetch(float64(took.Milliseconds()), err)

	if err != nil {
		c.logger.Error(ctx, "dataset fetch failed", logger.String("src", src), logger.Duration("took", took), logger.Error(err))
		return nil, err
	}
	c.logger.Info(ctx, "dataset fetched", logger.String("src", src), logger.Int("records", len(records)), logger.Duration("took", took))
	return records, nil
}

func (c *Client) fetch(ctx context.Context, src string) ([]model.RawRecord, error) {
	u, err := url.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("%w: parse %q: %w", ErrFetch, src, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return c.fetchHTTP(ctx, src)
	case "file":
		return c.readFile(u.Path)
	case "":
		return c.readFile(src)
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrFetch, u.Scheme)
	}
}

func (c *Client) fetchHTTP(ctx context.Context, src string) ([]model.RawRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrFetch, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%w: %w: %s", ErrFetch, ErrBadStatus, resp.Status)
	}
	return c.decode(resp.Body)
}

func (c *Client) readFile(path string) ([]model.RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer func() { _ = f.Close() }()
	return c.decode(f)
}

func (c *Client) decode(r io.Reader) ([]model.RawRecord, error) {
	data, err := io.ReadAll(io.LimitReader(r, c.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrFetch, err)
	}
	if int64(len(data)) > c.maxBytes {
		return nil, fmt.Errorf("%w: %w: over %d bytes", ErrFetch, ErrTooLarge, c.maxBytes)
	}
	return normalize.Decode(bytes.NewReader(data))
}
