package synth

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ameins/delver/internal/llm"
	"github.com/ameins/delver/internal/model"
)

// mockProvider implements llm.Provider for testing
type mockProvider struct {
	response *llm.CompletionResponse
	err      error
	requests []llm.CompletionRequest
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

func (m *mockProvider) IsAvailable(ctx context.Context) bool { return true }

func testPlan() model.Plan {
	return model.Plan{
		Query: "test query",
		Tasks: []model.Task{
			{ID: "T1", Question: "What is X?", Instructions: "Define X"},
		},
	}
}

func TestSummarize_NoSources(t *testing.T) {
	s := NewSummarizer(&mockProvider{})

	summary := s.Summarize(context.Background(), testPlan(), nil)

	if len(summary.Sections) != 1 {
		t.Fatalf("Expected 1 section, got %d", len(summary.Sections))
	}
	if !strings.Contains(summary.Sections[0].Content, "No sources found for: What is X?") {
		t.Errorf("Expected placeholder content, got %q", summary.Sections[0].Content)
	}
	if len(summary.Sections[0].Citations) != 0 {
		t.Error("Expected no citations without sources")
	}
}

func TestSummarize_SourcesWithoutContent(t *testing.T) {
	s := NewSummarizer(&mockProvider{})

	docs := map[string][]model.Document{
		"T1": {{ID: "S1", Title: "Empty Doc", URL: "https://example.com", Type: model.DocTypeError}},
	}
	summary := s.Summarize(context.Background(), testPlan(), docs)

	sec := summary.Sections[0]
	if !strings.Contains(sec.Content, "no readable content") {
		t.Errorf("Expected unreadable-content placeholder, got %q", sec.Content)
	}
	if len(sec.Citations) != 1 {
		t.Errorf("Expected citation even for empty doc, got %d", len(sec.Citations))
	}
}

func TestSummarize_Success(t *testing.T) {
	provider := &mockProvider{
		response: &llm.CompletionResponse{Content: "X is a thing [1]."},
	}
	s := NewSummarizer(provider)

	docs := map[string][]model.Document{
		"T1": {
			{ID: "S1", Title: "Source One", URL: "https://example.com/1", Content: "X is a thing."},
			{ID: "S2", Title: "Source Two", URL: "https://example.com/2", Content: "More about X."},
		},
	}
	summary := s.Summarize(context.Background(), testPlan(), docs)

	sec := summary.Sections[0]
	if sec.Content != "X is a thing [1]." {
		t.Errorf("Unexpected section content: %q", sec.Content)
	}
	if len(sec.Citations) != 2 {
		t.Fatalf("Expected 2 citations, got %d", len(sec.Citations))
	}
	if sec.Citations[0] != "[1] Source One - https://example.com/1" {
		t.Errorf("Unexpected citation format: %q", sec.Citations[0])
	}
	if summary.Content != sec.Content {
		t.Errorf("Expected joined content to equal the single section")
	}

	// Source material travels in a separate user message
	if len(provider.requests) != 1 {
		t.Fatalf("Expected 1 provider call, got %d", len(provider.requests))
	}
	req := provider.requests[0]
	if len(req.Messages) != 2 || !strings.HasPrefix(req.Messages[1].Content, "Source Material:") {
		t.Error("Expected prompt plus source-material message")
	}
}

func TestSummarize_ProviderErrorDegrades(t *testing.T) {
	s := NewSummarizer(&mockProvider{err: errors.New("quota exceeded")})

	docs := map[string][]model.Document{
		"T1": {{ID: "S1", Title: "Key Source", URL: "https://example.com", Content: "content"}},
	}
	summary := s.Summarize(context.Background(), testPlan(), docs)

	sec := summary.Sections[0]
	if !strings.Contains(sec.Content, "Error generating summary") {
		t.Errorf("Expected degraded content, got %q", sec.Content)
	}
	if !strings.Contains(sec.Content, "Key Source") {
		t.Errorf("Expected key sources named, got %q", sec.Content)
	}
}

func TestSummarize_JoinsSections(t *testing.T) {
	provider := &mockProvider{response: &llm.CompletionResponse{Content: "Section body."}}
	s := NewSummarizer(provider)

	plan := model.Plan{
		Query: "q",
		Tasks: []model.Task{
			{ID: "T1", Question: "A?"},
			{ID: "T2", Question: "B?"},
		},
	}
	docs := map[string][]model.Document{
		"T1": {{ID: "S1", Content: "a"}},
		"T2": {{ID: "S1", Content: "b"}},
	}

	summary := s.Summarize(context.Background(), plan, docs)
	if summary.Content != "Section body.\n\nSection body." {
		t.Errorf("Unexpected joined content: %q", summary.Content)
	}
}

func TestRewriteCapability_DoublesTemperature(t *testing.T) {
	provider := &mockProvider{response: &llm.CompletionResponse{Content: "reworded"}}
	fn := NewRewriteCapability(provider, 0.3)

	out, err := fn(context.Background(), "span text")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if out != "reworded" {
		t.Errorf("Expected reworded output, got %q", out)
	}
	if got := provider.requests[0].Temperature; got != 0.6 {
		t.Errorf("Expected temperature 0.6, got %f", got)
	}
	if !strings.Contains(provider.requests[0].Messages[0].Content, "span text") {
		t.Error("Expected the span to be passed through to the prompt")
	}
}

func TestRewriteCapability_NilProvider(t *testing.T) {
	fn := NewRewriteCapability(nil, 0.3)
	if _, err := fn(context.Background(), "span"); err == nil {
		t.Error("Expected error with nil provider")
	}
}
