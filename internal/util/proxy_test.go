package util

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewProxyFunc_Defaults(t *testing.T) {
	fn := NewProxyFunc("", "", "")
	// Must fall back to the environment-based selector
	if fn == nil {
		t.Fatal("Expected a proxy func")
	}
}

func TestNewProxyFunc_ExplicitProxies(t *testing.T) {
	fn := NewProxyFunc("http://proxy.local:3128", "http://sproxy.local:3128", "")

	req, _ := http.NewRequest(http.MethodGet, "https://example.com/page", nil)
	u, err := fn(req)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if u == nil || u.Host != "sproxy.local:3128" {
		t.Errorf("Expected HTTPS proxy for https request, got %v", u)
	}

	req, _ = http.NewRequest(http.MethodGet, "http://example.com/page", nil)
	u, err = fn(req)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if u == nil || u.Host != "proxy.local:3128" {
		t.Errorf("Expected HTTP proxy for http request, got %v", u)
	}
}

func TestNewProxyFunc_NoProxyBypass(t *testing.T) {
	fn := NewProxyFunc("http://proxy.local:3128", "", "internal.example.com, example.org")

	tests := []struct {
		url    string
		bypass bool
	}{
		{"http://internal.example.com/x", true},
		{"http://svc.internal.example.com/x", true},
		{"http://example.org/x", true},
		{"http://example.com/x", false},
	}

	for _, tt := range tests {
		req, _ := http.NewRequest(http.MethodGet, tt.url, nil)
		u, err := fn(req)
		if err != nil {
			t.Fatalf("Expected no error for %s, got %v", tt.url, err)
		}
		if tt.bypass && u != nil {
			t.Errorf("Expected %s to bypass the proxy, got %v", tt.url, u)
		}
		if !tt.bypass && u == nil {
			t.Errorf("Expected %s to use the proxy", tt.url)
		}
	}
}

func TestRobotsChecker_Disallow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /private/\n"))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	checker := NewRobotsChecker("Delver/0.2", 0)

	if checker.IsAllowed(t.Context(), server.URL+"/private/page") {
		t.Error("Expected /private/ to be disallowed")
	}
	if !checker.IsAllowed(t.Context(), server.URL+"/public/page") {
		t.Error("Expected /public/ to be allowed")
	}
}

func TestRobotsChecker_MissingRobotsAllows(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	checker := NewRobotsChecker("Delver/0.2", 0)
	if !checker.IsAllowed(t.Context(), server.URL+"/anything") {
		t.Error("Expected missing robots.txt to allow fetching")
	}
}
