package update

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/teddyful/teddy-upgrader/internal/logging"
)

func fastRetry(n int) RetryPolicy {
	return RetryPolicy{MaxRetries: n, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}
}

func newTestResolver(url string) *Resolver {
	return NewResolver(url).WithRetryPolicy(fastRetry(2)).WithLogger(logging.Discard())
}

func TestResolverLatest(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		want     string
		resolved bool
	}{
		{"tag_name", http.StatusOK, `{"tag_name": "v1.3.0", "name": "Teddy 1.3"}`, "1.3.0", true},
		{"name fallback", http.StatusOK, `{"name": "1.4.0"}`, "1.4.0", true},
		{"empty tag falls back", http.StatusOK, `{"tag_name": "", "name": "v1.4.1"}`, "1.4.1", true},
		{"no version fields", http.StatusOK, `{"html_url": "https://example.com"}`, "", false},
		{"unparsable tag", http.StatusOK, `{"tag_name": "nightly"}`, "", false},
		{"malformed json", http.StatusOK, `{"tag_name":`, "", false},
		{"not found", http.StatusNotFound, `{"message": "Not Found"}`, "", false},
		{"non-200 success", http.StatusNonAuthoritativeInfo, `{"tag_name": "1.5.0"}`, "1.5.0", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if got := r.Header.Get("Accept"); got != "application/json" {
					t.Errorf("Accept = %q, want application/json", got)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			got := newTestResolver(server.URL).Latest(context.Background())
			if got.Resolved() != tt.resolved {
				t.Fatalf("Latest().Resolved() = %v, want %v (err %v)", got.Resolved(), tt.resolved, got.Err)
			}
			if tt.resolved && got.String() != tt.want {
				t.Errorf("Latest() = %s, want %s", got.String(), tt.want)
			}
			if !tt.resolved && got.Err == nil {
				t.Error("Latest() unresolved without an error")
			}
		})
	}
}

func TestResolverLatest_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"tag_name": "v1.3.0"}`))
	}))
	defer server.Close()

	got := newTestResolver(server.URL).Latest(context.Background())
	if !got.Resolved() {
		t.Fatalf("Latest() unresolved: %v", got.Err)
	}
	if calls.Load() != 3 {
		t.Errorf("server called %d times, want 3", calls.Load())
	}
}

func TestResolverLatest_SingleRequestByDefault(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"tag_name": "v1.3.0"}`))
	}))
	defer server.Close()

	got := NewResolver(server.URL).WithLogger(logging.Discard()).Latest(context.Background())
	if got.Resolved() {
		t.Errorf("Latest() = %s, want unresolved", got)
	}
	if calls.Load() != 1 {
		t.Errorf("server called %d times, want 1", calls.Load())
	}
}

func TestResolverLatest_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	got := newTestResolver(server.URL).Latest(context.Background())
	if got.Resolved() {
		t.Fatal("Latest() resolved on 403")
	}
	var statusErr *StatusError
	if !errors.As(got.Err, &statusErr) || statusErr.StatusCode != http.StatusForbidden {
		t.Errorf("Latest() error = %v, want StatusError 403", got.Err)
	}
	if calls.Load() != 1 {
		t.Errorf("server called %d times, want 1", calls.Load())
	}
}

func TestResolverLatest_RetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	got := NewResolver(server.URL).
		WithRetryPolicy(fastRetry(1)).
		WithLogger(logging.Discard()).
		Latest(context.Background())
	if got.Resolved() {
		t.Fatal("Latest() resolved on 503")
	}
	if calls.Load() != 2 {
		t.Errorf("server called %d times, want 2", calls.Load())
	}
}

func TestResolverLatest_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	got := NewResolver(server.URL).
		WithTimeout(50 * time.Millisecond).
		WithRetryPolicy(fastRetry(0)).
		WithLogger(logging.Discard()).
		Latest(context.Background())
	if got.Resolved() {
		t.Fatal("Latest() resolved despite timeout")
	}
}

func TestResolverCurrent(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "package.json"), []byte(`{"version": "1.2.0"}`), 0644); err != nil {
		t.Fatal(err)
	}

	got := NewResolver("http://unused").Current(root)
	if !got.Resolved() || got.String() != "1.2.0" {
		t.Errorf("Current() = %+v", got)
	}

	missing := NewResolver("http://unused").Current(t.TempDir())
	if missing.Resolved() || missing.Err == nil {
		t.Errorf("Current() on empty dir = %+v, want unresolved", missing)
	}
}

func TestResolverCurrent_CustomVersionFile(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "teddy.json"), []byte(`{"version": "v2.0.0"}`), 0644); err != nil {
		t.Fatal(err)
	}

	got := NewResolver("http://unused").WithVersionFile("teddy.json").Current(root)
	if got.String() != "2.0.0" {
		t.Errorf("Current() = %s, want 2.0.0", got.String())
	}
}
