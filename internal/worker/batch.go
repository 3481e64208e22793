package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ameins/delver/internal/model"
)

// Researcher runs the full pipeline for a single query
type Researcher interface {
	Research(ctx context.Context, query string) (*model.Report, error)
}

// ResearchJob wraps one query for pool execution
type ResearchJob struct {
	Query      string
	Researcher Researcher
}

// Execute runs the job
func (j *ResearchJob) Execute(ctx context.Context) Result {
	report, err := j.Researcher.Research(ctx, j.Query)
	if err != nil {
		return &ResearchResult{Query: j.Query, Error: err}
	}
	return &ResearchResult{Query: j.Query, Report: report}
}

// ResearchResult is the outcome for one query
type ResearchResult struct {
	Query  string
	Report *model.Report
	Error  error
}

// GetError returns the error from the result
func (r *ResearchResult) GetError() error {
	return r.Error
}

// BatchProcessor runs many research queries concurrently
type BatchProcessor struct {
	researcher  Researcher
	concurrency int
}

// NewBatchProcessor creates a batch processor
func NewBatchProcessor(researcher Researcher, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		researcher:  researcher,
		concurrency: concurrency,
	}
}

// ProcessQueries runs all queries through a worker pool
func (b *BatchProcessor) ProcessQueries(ctx context.Context, queries []string) []*ResearchResult {
	if len(queries) == 0 {
		return []*ResearchResult{}
	}

	pool := NewPool(b.concurrency)
	pool.Start()

	for _, query := range queries {
		pool.Submit(&ResearchJob{
			Query:      query,
			Researcher: b.researcher,
		})
	}

	results := pool.Wait()

	researchResults := make([]*ResearchResult, len(results))
	for i, result := range results {
		researchResults[i] = result.(*ResearchResult)
	}

	return researchResults
}

// ProcessFile reads queries from a file and processes them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*ResearchResult, error) {
	queries, err := ReadLines(filePath)
	if err != nil {
		return nil, fmt.Errorf("read queries: %w", err)
	}

	return b.ProcessQueries(ctx, queries), nil
}

// ReadLines reads non-blank lines from a file, one entry per line.
// Lines starting with # are skipped and duplicates collapsed. Both
// query lists and URL lists use this format.
func ReadLines(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var lines []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			lines = append(lines, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return lines, nil
}
