package originality

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ameins/delver/internal/model"
)

// Detector computes the maximum similarity between a candidate text and a
// set of reference texts. Two variants exist: local vector similarity
// (always available) and an external detection service (optional, behind
// configuration). Both are selected at construction time and conform to
// the same contract.
type Detector interface {
	// Name returns the detector name for reporting
	Name() string

	// MaxSimilarity returns the highest similarity in [0,1] between text
	// and any single reference. refs is never empty when called by the
	// scorer; an error means the caller should fall back to 0.0.
	MaxSimilarity(ctx context.Context, text string, refs []string) (float64, error)
}

// LocalDetector scores similarity with TF-IDF cosine over a shared vector
// space built from the candidate and all references in one batch.
type LocalDetector struct {
	vectorizer *Vectorizer
}

// NewLocalDetector creates a local vector-similarity detector
func NewLocalDetector(vocabCap int) *LocalDetector {
	return &LocalDetector{vectorizer: NewVectorizer(vocabCap)}
}

// Name returns the detector name
func (d *LocalDetector) Name() string {
	return "local"
}

// MaxSimilarity vectorizes {text} ∪ refs and takes the maximum cosine
// similarity between the candidate vector and each reference vector
func (d *LocalDetector) MaxSimilarity(_ context.Context, text string, refs []string) (float64, error) {
	corpus := make([]string, 0, len(refs)+1)
	corpus = append(corpus, text)
	corpus = append(corpus, refs...)

	vectors := d.vectorizer.Vectorize(corpus)
	if vectors == nil {
		// Vocabulary collapsed to nothing; treat as dissimilar
		return 0, nil
	}

	candidate := vectors[0]
	var maxSim float64
	for _, ref := range vectors[1:] {
		if sim := Cosine(candidate, ref); sim > maxSim {
			maxSim = sim
		}
	}
	return maxSim, nil
}

// RemoteDetector delegates similarity scoring to an external plagiarism
// detection service over HTTP. The service receives the candidate and
// references as JSON and answers with a max_similarity figure.
type RemoteDetector struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewRemoteDetector creates a detector backed by an external service
func NewRemoteDetector(cfg model.OriginalityConfig, timeout time.Duration) (*RemoteDetector, error) {
	if cfg.RemoteURL == "" {
		return nil, fmt.Errorf("remote detector requires a service URL")
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &RemoteDetector{
		baseURL:    strings.TrimSuffix(cfg.RemoteURL, "/"),
		apiKey:     cfg.RemoteAPIKey,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Name returns the detector name
func (d *RemoteDetector) Name() string {
	return "remote"
}

type remoteCheckRequest struct {
	Text    string   `json:"text"`
	Sources []string `json:"sources"`
}

type remoteCheckResponse struct {
	MaxSimilarity float64 `json:"max_similarity"`
	Error         string  `json:"error,omitempty"`
}

// MaxSimilarity posts the candidate and references to the detection service
func (d *RemoteDetector) MaxSimilarity(ctx context.Context, text string, refs []string) (float64, error) {
	payload, err := json.Marshal(remoteCheckRequest{Text: text, Sources: refs})
	if err != nil {
		return 0, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/v1/check", bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if d.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+d.apiKey)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("detection service: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("detection service status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result remoteCheckResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}
	if result.Error != "" {
		return 0, fmt.Errorf("detection service: %s", result.Error)
	}

	if result.MaxSimilarity < 0 || result.MaxSimilarity > 1 {
		return 0, fmt.Errorf("detection service returned similarity out of range: %f", result.MaxSimilarity)
	}
	return result.MaxSimilarity, nil
}
