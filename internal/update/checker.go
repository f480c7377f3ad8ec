package update

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/teddyful/teddy-upgrader/internal/instance"
)

// maxMetadataBytes caps the release metadata response body.
const maxMetadataBytes = 1 << 20

// ErrNoReleaseVersion is returned when release metadata names no version.
var ErrNoReleaseVersion = errors.New("release metadata has neither tag_name nor name")

// ReleaseMetadata represents the parts of a "latest release" response the
// upgrader uses.
type ReleaseMetadata struct {
	TagName     string `json:"tag_name"`
	Name        string `json:"name"`
	HTMLURL     string `json:"html_url"`
	Prerelease  bool   `json:"prerelease"`
	Draft       bool   `json:"draft"`
	PublishedAt string `json:"published_at"`
}

// VersionString returns tag_name, falling back to name.
func (m *ReleaseMetadata) VersionString() string {
	if m.TagName != "" {
		return m.TagName
	}
	return m.Name
}

// Resolver reads the installed version and fetches the latest published one.
type Resolver struct {
	latestURL   string
	versionFile string
	userAgent   string
	client      *http.Client
	retry       RetryPolicy
	logger      *slog.Logger
}

// NewResolver creates a resolver querying latestURL for release metadata.
// The metadata request is made once unless WithRetryPolicy says otherwise.
func NewResolver(latestURL string) *Resolver {
	return &Resolver{
		latestURL:   latestURL,
		versionFile: instance.DefaultVersionFile,
		userAgent:   "teddy-upgrader",
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		retry:  RetryPolicy{},
		logger: slog.Default(),
	}
}

// WithTimeout sets the metadata request timeout.
func (r *Resolver) WithTimeout(d time.Duration) *Resolver {
	r.client.Timeout = d
	return r
}

// WithRetryPolicy sets the retry policy for the metadata request.
func (r *Resolver) WithRetryPolicy(p RetryPolicy) *Resolver {
	r.retry = p
	return r
}

// WithVersionFile sets the installation file holding the version.
func (r *Resolver) WithVersionFile(name string) *Resolver {
	if name != "" {
		r.versionFile = name
	}
	return r
}

// WithUserAgent sets the User-Agent header.
func (r *Resolver) WithUserAgent(ua string) *Resolver {
	if ua != "" {
		r.userAgent = ua
	}
	return r
}

// WithLogger sets the logger used for retry notices.
func (r *Resolver) WithLogger(logger *slog.Logger) *Resolver {
	if logger != nil {
		r.logger = logger
	}
	return r
}

// Current reads and normalizes the installed version under root.
func (r *Resolver) Current(root string) VersionResult {
	raw, err := instance.ReadVersion(root, r.versionFile)
	if err != nil {
		return Unresolved(err)
	}
	return Resolve(raw)
}

// Latest fetches and normalizes the latest published version.
func (r *Resolver) Latest(ctx context.Context) VersionResult {
	var meta *ReleaseMetadata
	err := withRetry(ctx, r.retry, r.logger, r.latestURL, func() error {
		m, err := r.fetchLatest(ctx)
		if err != nil {
			return err
		}
		meta = m
		return nil
	})
	if err != nil {
		return Unresolved(fmt.Errorf("failed to get latest release from %s: %w", r.latestURL, err))
	}

	raw := meta.VersionString()
	if raw == "" {
		return Unresolved(ErrNoReleaseVersion)
	}
	return Resolve(raw)
}

// fetchLatest performs a single metadata request.
func (r *Resolver) fetchLatest(ctx context.Context) (*ReleaseMetadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.latestURL, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxMetadataBytes))
		return nil, &StatusError{URL: r.latestURL, StatusCode: resp.StatusCode}
	}

	var meta ReleaseMetadata
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxMetadataBytes)).Decode(&meta); err != nil {
		return nil, &decodeError{err: fmt.Errorf("failed to decode response: %w", err)}
	}

	return &meta, nil
}
