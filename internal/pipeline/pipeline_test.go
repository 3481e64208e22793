package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/ameins/delver/internal/model"
	"github.com/ameins/delver/internal/originality"
)

// stubRetriever returns a fixed document set for every task
type stubRetriever struct {
	docs []model.Document
	err  error
}

func (r *stubRetriever) Name() string { return "stub" }

func (r *stubRetriever) Retrieve(ctx context.Context, task model.Task) ([]model.Document, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.docs, nil
}

func testConfig() *model.Config {
	cfg := model.DefaultConfig()
	cfg.LLM.Provider = "" // No provider in tests; planner and summarizer degrade
	return cfg
}

func TestResearch_EmptyQuery(t *testing.T) {
	p := NewPipeline(testConfig(), nil)
	if _, err := p.Research(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty query")
	}
}

func TestResearch_NoRetriever(t *testing.T) {
	p := NewPipeline(testConfig(), nil)

	report, err := p.Research(context.Background(), "ocean acidification")
	if err != nil {
		t.Fatalf("Research failed: %v", err)
	}

	if report.Query != "ocean acidification" {
		t.Errorf("Query = %q", report.Query)
	}
	if len(report.Plan.Tasks) != 3 {
		t.Errorf("expected fallback plan with 3 tasks, got %d", len(report.Plan.Tasks))
	}
	if report.TotalDocuments() != 0 {
		t.Errorf("expected no documents, got %d", report.TotalDocuments())
	}
	for _, sec := range report.Summary.Sections {
		if !strings.Contains(sec.Content, "No sources found") {
			t.Errorf("section without sources should say so, got %q", sec.Content)
		}
	}
	// No references means nothing to compare against
	if report.Originality.OriginalityScore != 1.0 {
		t.Errorf("originality = %v, want 1.0", report.Originality.OriginalityScore)
	}
	if len(report.Originality.Flags) != 0 {
		t.Errorf("expected no flags, got %d", len(report.Originality.Flags))
	}
	if report.Rewrite != nil {
		t.Error("expected no rewrite pass")
	}
	if report.Elapsed <= 0 {
		t.Error("expected positive elapsed time")
	}
}

func TestResearch_RetrievesPerTask(t *testing.T) {
	docs := []model.Document{
		{ID: "S1", Title: "coral reefs", Content: "Coral reefs bleach under sustained heat stress.", Type: model.DocTypeText},
	}
	p := NewPipeline(testConfig(), &stubRetriever{docs: docs})

	report, err := p.Research(context.Background(), "coral bleaching")
	if err != nil {
		t.Fatalf("Research failed: %v", err)
	}

	if len(report.Documents) != len(report.Plan.Tasks) {
		t.Errorf("documents for %d tasks, want %d", len(report.Documents), len(report.Plan.Tasks))
	}
	for taskID, taskDocs := range report.Documents {
		if len(taskDocs) != 1 {
			t.Errorf("task %s has %d docs, want 1", taskID, len(taskDocs))
		}
	}
	// Degraded synthesis still names key sources
	if !strings.Contains(report.Summary.Content, "coral reefs") {
		t.Errorf("summary should reference source titles, got %q", report.Summary.Content)
	}
}

func TestResearch_RetrievalFailureDegrades(t *testing.T) {
	p := NewPipeline(testConfig(), &stubRetriever{err: context.DeadlineExceeded})

	report, err := p.Research(context.Background(), "some topic")
	if err != nil {
		t.Fatalf("Research failed: %v", err)
	}
	if report.TotalDocuments() != 0 {
		t.Errorf("expected no documents after retrieval failure, got %d", report.TotalDocuments())
	}
}

// markedDetector reports high similarity until it sees rewritten text
type markedDetector struct{}

func (d *markedDetector) Name() string { return "marked" }

func (d *markedDetector) MaxSimilarity(ctx context.Context, text string, refs []string) (float64, error) {
	if strings.Contains(text, "rephrased") {
		return 0.1, nil
	}
	return 0.95, nil
}

func TestRewriteFlagged_ClearsFlags(t *testing.T) {
	cfg := testConfig()
	cfg.Originality.Policy = "whole-text"
	cfg.Rewrite.MinSpanLength = 10

	scorer := originality.NewScorerWith(cfg.Originality, &markedDetector{}, originality.NewWholeTextPolicy(cfg.Originality))

	var calls int
	p := &Pipeline{
		scorer:   scorer,
		rewriter: originality.NewRewriter(cfg.Rewrite),
		rewriteFn: func(ctx context.Context, span string) (string, error) {
			calls++
			return "This passage has been rephrased into something new.", nil
		},
		config: cfg,
	}

	content := "A flagged summary that closely tracks its source material."
	refs := []model.Document{{Content: "source material", Type: model.DocTypeText}}

	report := &model.Report{Summary: model.Summary{Content: content}}
	report.Originality = scorer.CheckDocuments(context.Background(), content, refs)

	if len(report.Originality.Flags) != 1 {
		t.Fatalf("expected 1 flag before rewrite, got %d", len(report.Originality.Flags))
	}

	p.rewriteFlagged(context.Background(), report, refs)

	if calls != 1 {
		t.Errorf("rewrite fn called %d times, want 1", calls)
	}
	if report.Rewrite == nil || report.Rewrite.ChangedSegments != 1 {
		t.Fatalf("expected 1 changed segment, got %+v", report.Rewrite)
	}
	if !strings.Contains(report.Rewrite.Content, "rephrased") {
		t.Errorf("rewritten content missing replacement: %q", report.Rewrite.Content)
	}
	if report.PostRewrite == nil {
		t.Fatal("expected post-rewrite check")
	}
	if len(report.PostRewrite.Flags) != 0 {
		t.Errorf("expected no flags after rewrite, got %d", len(report.PostRewrite.Flags))
	}
	if report.FinalContent() != report.Rewrite.Content {
		t.Error("FinalContent should prefer the rewritten text")
	}
}
