package sources

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ameins/delver/internal/model"
	"github.com/ameins/delver/internal/util"
)

const verifyMaxRetries = 3

// verifySleepFunc is the sleep function used between retries (injectable for tests)
var verifySleepFunc = time.Sleep

// Verifier checks source URLs concurrently before a research run:
// liveness, redirects and document age via HEAD requests.
type Verifier struct {
	httpClient *http.Client
	userAgent  string
	maxWorkers int
	classifier *TierClassifier
}

// NewVerifier creates a verifier
func NewVerifier(cfg model.HTTPConfig, maxWorkers int, sourcesCfg *model.SourcesConfig) *Verifier {
	if maxWorkers <= 0 {
		maxWorkers = 20
	}

	return &Verifier{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent:  cfg.UserAgent,
		maxWorkers: maxWorkers,
		classifier: NewTierClassifier(sourcesCfg),
	}
}

// VerifyAll checks all URLs concurrently, bounded by maxWorkers.
// Results keep the input order.
func (v *Verifier) VerifyAll(ctx context.Context, urls []string) []model.SourceStatus {
	if len(urls) == 0 {
		return []model.SourceStatus{}
	}

	results := make([]model.SourceStatus, len(urls))
	var wg sync.WaitGroup

	semaphore := make(chan struct{}, v.maxWorkers)

	for i, u := range urls {
		wg.Add(1)
		go func(idx int, rawURL string) {
			defer wg.Done()

			select {
			case <-ctx.Done():
				results[idx] = model.SourceStatus{
					URL:   rawURL,
					Tier:  v.classifier.Classify(rawURL),
					Error: "context cancelled",
				}
				return
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()

			results[idx] = v.verifyWithRetry(ctx, rawURL)
		}(i, u)
	}

	wg.Wait()

	return results
}

// verify checks a single URL
func (v *Verifier) verify(ctx context.Context, rawURL string) model.SourceStatus {
	status := model.SourceStatus{
		URL:  rawURL,
		Tier: v.classifier.Classify(rawURL),
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		status.Error = fmt.Sprintf("create request: %v", err)
		status.IsDead = true
		return status
	}

	req.Header.Set("User-Agent", v.userAgent)

	resp, err := v.httpClient.Do(req)
	if err != nil {
		status.Error = fmt.Sprintf("request failed: %v", err)
		status.IsDead = true
		return status
	}
	defer func() { _ = resp.Body.Close() }()

	status.StatusCode = resp.StatusCode

	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		status.IsAccessible = true
	} else if resp.StatusCode == 404 || resp.StatusCode == 410 {
		status.IsDead = true
	}

	if resp.Request.URL.String() != rawURL {
		status.RedirectURL = resp.Request.URL.String()
	}

	if lastModified := resp.Header.Get("Last-Modified"); lastModified != "" {
		if t, err := time.Parse(time.RFC1123, lastModified); err == nil {
			status.LastModified = &t

			ageDays := int(time.Since(t).Hours() / 24)
			status.AgeDays = &ageDays

			if ageDays > 365 {
				status.IsStale = true
			}
			if ageDays > 365*3 {
				status.IsVeryStale = true
			}
		}
	}

	return status
}

// verifyWithRetry retries transient failures with exponential backoff
func (v *Verifier) verifyWithRetry(ctx context.Context, rawURL string) model.SourceStatus {
	var status model.SourceStatus
	for attempt := 0; attempt < verifyMaxRetries; attempt++ {
		status = v.verify(ctx, rawURL)
		if !isRetryableStatus(status) {
			return status
		}
		if attempt < verifyMaxRetries-1 {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			verifySleepFunc(backoff)
		}
	}
	return status
}

// isRetryableStatus returns true for results that indicate transient failures
func isRetryableStatus(status model.SourceStatus) bool {
	if status.StatusCode >= 500 && status.StatusCode < 600 {
		return true
	}
	if status.StatusCode == 429 {
		return true
	}
	if status.Error != "" {
		s := strings.ToLower(status.Error)
		return strings.Contains(s, "timeout") ||
			strings.Contains(s, "connection refused") ||
			strings.Contains(s, "connection reset")
	}
	return false
}
