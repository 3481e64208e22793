package retrieve

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html/charset"

	"github.com/ameins/delver/internal/cache"
	"github.com/ameins/delver/internal/model"
	"github.com/ameins/delver/internal/util"
	"github.com/ameins/delver/internal/worker"
)

// Fetcher retrieves raw documents over HTTP. It checks robots.txt,
// rate-limits per host and caches results so repeated runs against the
// same sources do not hit the network.
type Fetcher struct {
	client        *http.Client
	userAgent     string
	maxBytes      int64
	respectRobots bool
	robots        *util.RobotsChecker
	limiter       *worker.Limiter
	store         cache.Cache
}

// NewFetcher creates a fetcher from the HTTP configuration. store may
// be nil to disable caching.
func NewFetcher(cfg model.HTTPConfig, store cache.Cache) *Fetcher {
	transport := &http.Transport{
		Proxy: util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
	}
	if cfg.InsecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &Fetcher{
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent:     cfg.UserAgent,
		maxBytes:      cfg.MaxBodyBytes,
		respectRobots: cfg.RespectRobots,
		robots:        util.NewRobotsChecker(cfg.UserAgent, cfg.Timeout),
		limiter:       worker.NewLimiter(cfg.RatePerHost, cfg.RateBurst),
		store:         store,
	}
}

// Fetch retrieves the document at rawURL. HTML and PDF responses are
// typed but carry no content since no extraction is performed.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*model.Document, error) {
	if f.store != nil {
		if cached, found := f.store.Get(cache.Key(rawURL)); found {
			var doc model.Document
			if err := json.Unmarshal(cached, &doc); err == nil {
				return &doc, nil
			}
		}
	}

	if f.respectRobots {
		allowed, delay, err := f.robots.CanFetch(ctx, rawURL)
		if err != nil {
			return nil, fmt.Errorf("robots check: %w", err)
		}
		if !allowed {
			return nil, fmt.Errorf("disallowed by robots.txt: %s", rawURL)
		}
		if err := f.limiter.WaitWithDelay(ctx, rawURL, delay); err != nil {
			return nil, err
		}
	} else if err := f.limiter.Wait(ctx, rawURL); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/plain,text/markdown;q=0.9,text/html;q=0.8,*/*;q=0.5")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	finalURL := resp.Request.URL.String()
	contentType := resp.Header.Get("Content-Type")
	docType := classifyContentType(contentType)

	doc := &model.Document{
		Title:     titleFromURL(finalURL),
		URL:       finalURL,
		Type:      docType,
		FetchedAt: time.Now().UTC(),
	}

	// Only plain-text bodies are carried as content
	if docType == model.DocTypeText {
		content, err := decodeText(body, contentType)
		if err != nil {
			return nil, fmt.Errorf("decode body: %w", err)
		}
		doc.Content = content
		doc.Snippet = makeSnippet(content)
	}

	if f.store != nil {
		if data, err := json.Marshal(doc); err == nil {
			_ = f.store.Set(cache.Key(rawURL), data, 0)
		}
	}

	return doc, nil
}

// decodeText converts the body to UTF-8 using the charset declared in
// the Content-Type header, falling back to sniffing
func decodeText(body []byte, contentType string) (string, error) {
	reader, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return "", err
	}
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

func classifyContentType(contentType string) model.DocumentType {
	mediaType := contentType
	if idx := strings.Index(mediaType, ";"); idx >= 0 {
		mediaType = mediaType[:idx]
	}
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))

	switch {
	case mediaType == "text/html", mediaType == "application/xhtml+xml":
		return model.DocTypeHTML
	case mediaType == "application/pdf":
		return model.DocTypePDF
	case strings.HasPrefix(mediaType, "text/"),
		mediaType == "application/json",
		mediaType == "application/xml":
		return model.DocTypeText
	default:
		return model.DocTypeUnknown
	}
}

// titleFromURL derives a human-readable title from the URL path
func titleFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	path := strings.Trim(parsed.Path, "/")
	if path == "" {
		return parsed.Host
	}

	segments := strings.Split(path, "/")
	last := segments[len(segments)-1]

	// De-slugify: underscores and hyphens become spaces
	last = strings.ReplaceAll(last, "_", " ")
	last = strings.ReplaceAll(last, "-", " ")

	if idx := strings.LastIndex(last, "."); idx > 0 {
		last = last[:idx]
	}

	return last
}

func makeSnippet(content string) string {
	snippet := strings.Join(strings.Fields(content), " ")
	if len(snippet) > 200 {
		snippet = snippet[:200]
	}
	return snippet
}
