package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ameins/delver/internal/model"
)

func init() {
	// Disable retry sleep in all tests for fast execution
	verifySleepFunc = func(d time.Duration) {}
}

func testVerifier() *Verifier {
	return NewVerifier(model.HTTPConfig{
		Timeout:   5 * time.Second,
		UserAgent: "test-agent",
	}, 20, nil)
}

func TestVerify_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("expected HEAD request, got %s", r.Method)
		}
		w.Header().Set("Last-Modified", "Mon, 02 Jan 2023 15:04:05 GMT")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	status := testVerifier().verify(context.Background(), server.URL)

	if !status.IsAccessible {
		t.Error("expected source to be accessible")
	}
	if status.StatusCode != http.StatusOK {
		t.Errorf("status code = %d, want 200", status.StatusCode)
	}
	if status.IsDead {
		t.Error("expected source not to be dead")
	}
	if status.LastModified == nil {
		t.Error("expected Last-Modified to be parsed")
	}
	if !status.IsStale {
		t.Error("a 2023 document should be stale by now")
	}
}

func TestVerify_404(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	status := testVerifier().verify(context.Background(), server.URL)

	if status.IsAccessible {
		t.Error("404 source must not be accessible")
	}
	if !status.IsDead {
		t.Error("404 source must be marked dead")
	}
}

func TestVerify_Redirect(t *testing.T) {
	finalServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer finalServer.Close()

	redirectServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, finalServer.URL, http.StatusMovedPermanently)
	}))
	defer redirectServer.Close()

	status := testVerifier().verify(context.Background(), redirectServer.URL)

	if !status.IsAccessible {
		t.Error("redirected source should be accessible")
	}
	if status.RedirectURL != finalServer.URL {
		t.Errorf("redirect URL = %q, want %q", status.RedirectURL, finalServer.URL)
	}
}

func TestVerifyWithRetry_Transient(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	status := testVerifier().verifyWithRetry(context.Background(), server.URL)

	if !status.IsAccessible {
		t.Errorf("expected success after retries, got %+v", status)
	}
	if attempts.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts.Load())
	}
}

func TestVerifyAll_PreservesOrder(t *testing.T) {
	okServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer okServer.Close()

	deadServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer deadServer.Close()

	urls := []string{okServer.URL, deadServer.URL, okServer.URL + "/b"}
	results := testVerifier().VerifyAll(context.Background(), urls)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, res := range results {
		if res.URL != urls[i] {
			t.Errorf("results[%d].URL = %q, want %q", i, res.URL, urls[i])
		}
	}
	if !results[0].IsAccessible || results[1].IsAccessible || !results[2].IsAccessible {
		t.Errorf("accessibility pattern wrong: %+v", results)
	}
}

func TestVerifyAll_Empty(t *testing.T) {
	results := testVerifier().VerifyAll(context.Background(), nil)
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestIsRetryableStatus(t *testing.T) {
	tests := []struct {
		status    model.SourceStatus
		retryable bool
	}{
		{model.SourceStatus{StatusCode: 503}, true},
		{model.SourceStatus{StatusCode: 429}, true},
		{model.SourceStatus{StatusCode: 404}, false},
		{model.SourceStatus{StatusCode: 200}, false},
		{model.SourceStatus{Error: "request failed: context deadline exceeded (Client.Timeout)"}, true},
		{model.SourceStatus{Error: "request failed: connection refused"}, true},
		{model.SourceStatus{Error: "create request: invalid URL"}, false},
	}

	for _, tt := range tests {
		if got := isRetryableStatus(tt.status); got != tt.retryable {
			t.Errorf("isRetryableStatus(%+v) = %v, want %v", tt.status, got, tt.retryable)
		}
	}
}
