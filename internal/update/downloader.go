package update

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/natefinch/atomic"
)

// HTTPDownloader streams release artifacts to disk.
type HTTPDownloader struct {
	client    *http.Client
	userAgent string
	retry     RetryPolicy
	logger    *slog.Logger
}

// NewHTTPDownloader creates a new HTTP downloader.
func NewHTTPDownloader() *HTTPDownloader {
	return &HTTPDownloader{
		client: &http.Client{
			Timeout: 10 * time.Minute,
		},
		userAgent: "teddy-upgrader",
		retry:     DefaultRetryPolicy(),
		logger:    slog.Default(),
	}
}

// WithTimeout sets the per-artifact download timeout.
func (d *HTTPDownloader) WithTimeout(timeout time.Duration) *HTTPDownloader {
	d.client.Timeout = timeout
	return d
}

// WithRetryPolicy sets the retry policy for each artifact.
func (d *HTTPDownloader) WithRetryPolicy(p RetryPolicy) *HTTPDownloader {
	d.retry = p
	return d
}

// WithUserAgent sets the User-Agent header.
func (d *HTTPDownloader) WithUserAgent(ua string) *HTTPDownloader {
	if ua != "" {
		d.userAgent = ua
	}
	return d
}

// WithLogger sets the logger.
func (d *HTTPDownloader) WithLogger(logger *slog.Logger) *HTTPDownloader {
	if logger != nil {
		d.logger = logger
	}
	return d
}

// Download fetches url into dst and returns the number of bytes written.
// The body is streamed through a temporary file in dst's directory and
// renamed into place, so dst is either complete or absent.
func (d *HTTPDownloader) Download(ctx context.Context, url, dst string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return 0, fmt.Errorf("failed to create directory for %s: %w", dst, err)
	}

	var written int64
	err := withRetry(ctx, d.retry, d.logger, url, func() error {
		n, err := d.fetch(ctx, url, dst)
		written = n
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to download %s: %w", url, err)
	}

	d.logger.Debug("Downloaded file", "url", url, "path", dst, "size", humanize.Bytes(uint64(written)))
	return written, nil
}

func (d *HTTPDownloader) fetch(ctx context.Context, url, dst string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Accept", "application/octet-stream")

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	counter := &countingReader{r: resp.Body}
	if err := atomic.WriteFile(dst, counter); err != nil {
		return counter.n, fmt.Errorf("failed to write %s: %w", dst, err)
	}
	return counter.n, nil
}

// countingReader counts bytes passed through it.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
