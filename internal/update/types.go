package update

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrRequestFailed wraps non-success HTTP responses.
var ErrRequestFailed = errors.New("request failed")

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s returned status %d", e.URL, e.StatusCode)
}

// Unwrap lets errors.Is match ErrRequestFailed.
func (e *StatusError) Unwrap() error {
	return ErrRequestFailed
}

// Temporary reports whether retrying the request may succeed.
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests
}

// LatestResolver determines the installed and the latest published versions.
type LatestResolver interface {
	Current(root string) VersionResult
	Latest(ctx context.Context) VersionResult
}

// Fetcher streams a remote artifact to a local path.
type Fetcher interface {
	Download(ctx context.Context, url, dst string) (int64, error)
}
