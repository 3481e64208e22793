package retrieve

import (
	"context"
	"strings"
	"time"

	"github.com/ameins/delver/internal/model"
)

const maxFetchAttempts = 3

// fetchSleepFunc is overridable in tests
var fetchSleepFunc = time.Sleep

// FetchWithRetry fetches with up to three attempts, backing off between
// transient failures. Non-retryable errors fail immediately.
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) (*model.Document, error) {
	var lastErr error

	for attempt := 1; attempt <= maxFetchAttempts; attempt++ {
		doc, err := f.Fetch(ctx, rawURL)
		if err == nil {
			return doc, nil
		}

		lastErr = err
		if !isRetryableFetchError(err) {
			return nil, err
		}
		if attempt < maxFetchAttempts {
			fetchSleepFunc(time.Duration(attempt) * 500 * time.Millisecond)
		}
	}

	return nil, lastErr
}

// isRetryableFetchError reports whether the fetch failure is transient:
// 5xx and 429 statuses and connection-level errors are worth retrying
func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}

	msg := err.Error()

	if strings.Contains(msg, "unexpected status: 5") {
		return true
	}
	if strings.Contains(msg, "unexpected status: 429") {
		return true
	}
	if strings.HasPrefix(msg, "fetch: ") {
		return true
	}

	return false
}
