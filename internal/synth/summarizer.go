package synth

import (
	"context"
	"fmt"
	"strings"

	"github.com/ameins/delver/internal/llm"
	"github.com/ameins/delver/internal/model"
)

const contextChunkLength = 3000 // Chars of each source fed to the provider

// Summarizer synthesizes a cited summary section per research task from
// the retrieved documents. A provider failure degrades the affected
// section to an error note naming the key sources; the run continues.
type Summarizer struct {
	provider llm.Provider
}

// NewSummarizer creates a summarizer on top of the given provider
func NewSummarizer(provider llm.Provider) *Summarizer {
	return &Summarizer{provider: provider}
}

const summarizerSystem = "You are an expert research analyst. Synthesize information from multiple sources with proper citations."

// Summarize produces one section per task and the joined full content
func (s *Summarizer) Summarize(ctx context.Context, plan model.Plan, docsByTask map[string][]model.Document) model.Summary {
	summary := model.Summary{Query: plan.Query}

	for _, task := range plan.Tasks {
		summary.Sections = append(summary.Sections, s.summarizeTask(ctx, task, docsByTask[task.ID]))
	}

	parts := make([]string, len(summary.Sections))
	for i, sec := range summary.Sections {
		parts[i] = sec.Content
	}
	summary.Content = strings.Join(parts, "\n\n")
	return summary
}

// summarizeTask synthesizes one section
func (s *Summarizer) summarizeTask(ctx context.Context, task model.Task, docs []model.Document) model.Section {
	section := model.Section{
		TaskID:   task.ID,
		Question: task.Question,
	}

	if len(docs) == 0 {
		section.Content = fmt.Sprintf("No sources found for: %s", task.Question)
		return section
	}

	var contextChunks []string
	for i, doc := range docs {
		title := doc.Title
		if title == "" {
			title = "Unknown Source"
		}
		if len(title) > 100 {
			title = title[:100]
		}
		section.Citations = append(section.Citations, fmt.Sprintf("[%d] %s - %s", i+1, title, doc.URL))

		chunk := doc.Content
		if len(chunk) > contextChunkLength {
			chunk = chunk[:contextChunkLength]
		}
		if chunk != "" {
			contextChunks = append(contextChunks, chunk)
		}
	}

	if len(contextChunks) == 0 {
		section.Content = fmt.Sprintf("Sources found but no readable content for: %s", task.Question)
		return section
	}

	instructions := task.Instructions
	if instructions == "" {
		instructions = "Summarize findings"
	}

	prompt := fmt.Sprintf(
		"Research Question: %s\n\nInstructions: %s\n\n"+
			"Based on the provided sources, write a comprehensive summary addressing this research question. "+
			"Use in-text citations [1], [2], etc. that correspond to the source list. "+
			"Focus on key facts, findings, and insights. Be objective and cite frequently.",
		task.Question, instructions)

	if s.provider == nil {
		section.Content = degradedContent(task.Question, docs, fmt.Errorf("no LLM provider configured"))
		return section
	}

	resp, err := s.provider.Complete(ctx, llm.CompletionRequest{
		System: summarizerSystem,
		Messages: []llm.Message{
			{Role: "user", Content: prompt},
			{Role: "user", Content: "Source Material:\n" + strings.Join(contextChunks, "\n\n---\n\n")},
		},
		Temperature: -1,
	})
	if err != nil {
		section.Content = degradedContent(task.Question, docs, err)
		return section
	}

	section.Content = resp.Content
	return section
}

// degradedContent is the section body used when synthesis fails
func degradedContent(question string, docs []model.Document, err error) string {
	titles := make([]string, 0, 3)
	for _, doc := range docs {
		title := doc.Title
		if title == "" {
			title = "Unknown"
		}
		titles = append(titles, title)
		if len(titles) == 3 {
			break
		}
	}
	return fmt.Sprintf("Error generating summary: %v\n\nKey sources: %s", err, strings.Join(titles, ", "))
}
