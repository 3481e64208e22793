package retrieve

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ameins/delver/internal/model"
)

// Retriever acquires reference documents for one research sub-question
type Retriever interface {
	Name() string
	Retrieve(ctx context.Context, task model.Task) ([]model.Document, error)
}

// FileRetriever serves documents from a local corpus directory of
// .txt and .md files. Files are ranked by overlap with the question
// so MaxResults keeps the most relevant ones.
type FileRetriever struct {
	dir        string
	maxResults int
	maxLength  int
}

// NewFileRetriever creates a retriever over the given corpus directory
func NewFileRetriever(dir string, maxResults, maxContentLength int) *FileRetriever {
	if maxResults <= 0 {
		maxResults = 5
	}
	return &FileRetriever{
		dir:        dir,
		maxResults: maxResults,
		maxLength:  maxContentLength,
	}
}

// Name identifies the retriever in logs and reports
func (r *FileRetriever) Name() string {
	return "file"
}

// Retrieve loads corpus files relevant to the task question
func (r *FileRetriever) Retrieve(ctx context.Context, task model.Task) ([]model.Document, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("read corpus dir: %w", err)
	}

	type scored struct {
		name  string
		text  string
		score int
	}

	terms := questionTerms(task.Question)

	var candidates []scored
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".txt" && ext != ".md" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(r.dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read corpus file %s: %w", entry.Name(), err)
		}

		text := string(data)
		candidates = append(candidates, scored{
			name:  entry.Name(),
			text:  text,
			score: relevance(text, terms),
		})
	}

	// Higher overlap first; name order breaks ties so results are stable
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].name < candidates[j].name
	})

	if len(candidates) > r.maxResults {
		candidates = candidates[:r.maxResults]
	}

	docs := make([]model.Document, 0, len(candidates))
	for i, c := range candidates {
		content := c.text
		if r.maxLength > 0 && len(content) > r.maxLength {
			content = content[:r.maxLength]
		}
		docs = append(docs, model.Document{
			ID:        fmt.Sprintf("S%d", i+1),
			Title:     titleFromFilename(c.name),
			URL:       filepath.Join(r.dir, c.name),
			Content:   content,
			Snippet:   makeSnippet(content),
			Type:      model.DocTypeText,
			FetchedAt: time.Now().UTC(),
		})
	}

	return docs, nil
}

func questionTerms(question string) []string {
	fields := strings.Fields(strings.ToLower(question))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,;:!?\"'()")
		if len(f) >= 3 {
			terms = append(terms, f)
		}
	}
	return terms
}

func relevance(text string, terms []string) int {
	lower := strings.ToLower(text)
	score := 0
	for _, term := range terms {
		score += strings.Count(lower, term)
	}
	return score
}

func titleFromFilename(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	base = strings.ReplaceAll(base, "_", " ")
	base = strings.ReplaceAll(base, "-", " ")
	return base
}

// URLRetriever fetches a fixed set of caller-supplied URLs. Every task
// sees the same source list; the fetcher's cache keeps repeat calls cheap.
type URLRetriever struct {
	fetcher    *Fetcher
	urls       []string
	maxResults int
	maxLength  int
}

// NewURLRetriever creates a retriever over the given URL list
func NewURLRetriever(fetcher *Fetcher, urls []string, maxResults, maxContentLength int) *URLRetriever {
	if maxResults <= 0 {
		maxResults = 5
	}
	return &URLRetriever{
		fetcher:    fetcher,
		urls:       urls,
		maxResults: maxResults,
		maxLength:  maxContentLength,
	}
}

// Name identifies the retriever in logs and reports
func (r *URLRetriever) Name() string {
	return "url"
}

// Retrieve fetches up to MaxResults of the configured URLs. A failed
// fetch yields an error-typed document instead of aborting the task.
func (r *URLRetriever) Retrieve(ctx context.Context, task model.Task) ([]model.Document, error) {
	urls := r.urls
	if len(urls) > r.maxResults {
		urls = urls[:r.maxResults]
	}

	docs := make([]model.Document, 0, len(urls))
	for i, rawURL := range urls {
		if err := ctx.Err(); err != nil {
			return docs, err
		}

		doc, err := r.fetcher.FetchWithRetry(ctx, rawURL)
		if err != nil {
			docs = append(docs, model.Document{
				ID:        fmt.Sprintf("S%d", i+1),
				URL:       rawURL,
				Snippet:   err.Error(),
				Type:      model.DocTypeError,
				FetchedAt: time.Now().UTC(),
			})
			continue
		}

		doc.ID = fmt.Sprintf("S%d", i+1)
		if r.maxLength > 0 && len(doc.Content) > r.maxLength {
			doc.Content = doc.Content[:r.maxLength]
		}
		docs = append(docs, *doc)
	}

	return docs, nil
}
