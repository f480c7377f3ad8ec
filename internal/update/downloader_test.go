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

	"github.com/teddyful/teddy-upgrader/internal/logging"
)

func newTestDownloader() *HTTPDownloader {
	return NewHTTPDownloader().WithRetryPolicy(fastRetry(2)).WithLogger(logging.Discard())
}

func TestNewHTTPDownloader(t *testing.T) {
	downloader := NewHTTPDownloader()

	if downloader.client == nil {
		t.Error("HTTP client should not be nil")
	}
	if downloader.client.Timeout == 0 {
		t.Error("HTTP client should have a timeout")
	}
}

func TestHTTPDownloaderDownload_Success(t *testing.T) {
	testContent := []byte("release archive bytes")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(testContent)
	}))
	defer server.Close()

	dstPath := filepath.Join(t.TempDir(), "nested", "teddy-1.3.0.zip")

	n, err := newTestDownloader().Download(context.Background(), server.URL+"/teddy-1.3.0.zip", dstPath)
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if n != int64(len(testContent)) {
		t.Errorf("Download() = %d bytes, want %d", n, len(testContent))
	}

	content, err := os.ReadFile(dstPath)
	if err != nil {
		t.Fatalf("Failed to read downloaded file: %v", err)
	}
	if string(content) != string(testContent) {
		t.Errorf("Downloaded content = %q, want %q", content, testContent)
	}
}

func TestHTTPDownloaderDownload_NotFound(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	dstPath := filepath.Join(t.TempDir(), "missing.zip")
	_, err := newTestDownloader().Download(context.Background(), server.URL, dstPath)
	if err == nil {
		t.Fatal("Download() expected error for 404")
	}

	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
		t.Errorf("Download() error = %v, want StatusError 404", err)
	}
	if !errors.Is(err, ErrRequestFailed) {
		t.Error("Download() error should wrap ErrRequestFailed")
	}
	if calls.Load() != 1 {
		t.Errorf("server called %d times, want 1", calls.Load())
	}
	if _, statErr := os.Stat(dstPath); !os.IsNotExist(statErr) {
		t.Error("Download() left a file behind after failure")
	}
}

func TestHTTPDownloaderDownload_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	dstPath := filepath.Join(t.TempDir(), "file")
	if _, err := newTestDownloader().Download(context.Background(), server.URL, dstPath); err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("server called %d times, want 2", calls.Load())
	}
}

func TestHTTPDownloaderDownload_ReplacesExisting(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("new"))
	}))
	defer server.Close()

	dstPath := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(dstPath, []byte("old contents that are longer"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := newTestDownloader().Download(context.Background(), server.URL, dstPath); err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	content, err := os.ReadFile(dstPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "new" {
		t.Errorf("content = %q, want new", content)
	}
}

func TestHTTPDownloaderDownload_Cancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("x"))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := newTestDownloader().Download(ctx, server.URL, filepath.Join(t.TempDir(), "f")); err == nil {
		t.Error("Download() expected error for cancelled context")
	}
}
