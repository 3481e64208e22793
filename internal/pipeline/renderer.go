package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ameins/delver/internal/model"
)

// Renderer writes research reports as Markdown and JSON
type Renderer struct {
	includeFooter bool
}

// NewRenderer creates a renderer
func NewRenderer(includeFooter bool) *Renderer {
	return &Renderer{includeFooter: includeFooter}
}

// RenderJSON writes the full report as indented JSON
func (r *Renderer) RenderJSON(report *model.Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write JSON: %w", err)
	}
	return nil
}

// RenderMarkdown writes the human-readable report
func (r *Renderer) RenderMarkdown(report *model.Report, path string) error {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("# Research Report: %s\n\n", report.Query))
	b.WriteString(fmt.Sprintf("*Generated: %s*\n\n", report.GeneratedAt.Format("2006-01-02 15:04 UTC")))

	b.WriteString("## Research Plan\n\n")
	for _, task := range report.Plan.Tasks {
		b.WriteString(fmt.Sprintf("- **%s**: %s\n", task.ID, task.Question))
	}
	b.WriteString("\n")

	b.WriteString("## Findings\n\n")
	b.WriteString(report.FinalContent())
	b.WriteString("\n\n")

	r.writeSources(&b, report)
	r.writeQuality(&b, report)

	if r.includeFooter {
		b.WriteString("---\n\n")
		b.WriteString(fmt.Sprintf("*Report generated by delver in %s*\n", report.Elapsed.Round(time.Millisecond)))
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("write markdown: %w", err)
	}
	return nil
}

func (r *Renderer) writeSources(b *strings.Builder, report *model.Report) {
	if report.TotalDocuments() == 0 {
		return
	}

	b.WriteString("## Sources\n\n")
	for _, task := range report.Plan.Tasks {
		docs := report.Documents[task.ID]
		if len(docs) == 0 {
			continue
		}
		b.WriteString(fmt.Sprintf("### %s\n\n", task.Question))
		for _, doc := range docs {
			title := doc.Title
			if title == "" {
				title = doc.URL
			}
			if doc.Type == model.DocTypeError {
				b.WriteString(fmt.Sprintf("- %s (unavailable: %s)\n", title, doc.Snippet))
				continue
			}
			if doc.URL != "" {
				b.WriteString(fmt.Sprintf("- [%s](%s)\n", title, doc.URL))
			} else {
				b.WriteString(fmt.Sprintf("- %s\n", title))
			}
		}
		b.WriteString("\n")
	}
}

func (r *Renderer) writeQuality(b *strings.Builder, report *model.Report) {
	b.WriteString("## Quality Assessment\n\n")
	b.WriteString(fmt.Sprintf("- Originality score: %.2f (detector: %s)\n",
		report.Originality.OriginalityScore, report.Originality.Detector))
	b.WriteString(fmt.Sprintf("- Max similarity to sources: %.2f\n", report.Originality.MaxSimilarity))
	b.WriteString(fmt.Sprintf("- Flagged passages: %d\n", len(report.Originality.Flags)))

	if report.Rewrite != nil {
		b.WriteString(fmt.Sprintf("- Rewritten segments: %d\n", report.Rewrite.ChangedSegments))
	}
	if report.PostRewrite != nil {
		b.WriteString(fmt.Sprintf("- Post-rewrite originality: %.2f (%d flags remaining)\n",
			report.PostRewrite.OriginalityScore, len(report.PostRewrite.Flags)))
	}
	if report.LLM.Provider != "" {
		b.WriteString(fmt.Sprintf("- Synthesis: %s (%s)\n", report.LLM.Provider, report.LLM.Model))
	}
	b.WriteString("\n")
}

// RenderSummary prints a short result summary to stdout
func (r *Renderer) RenderSummary(report *model.Report) {
	fmt.Printf("\nQuery:       %s\n", report.Query)
	fmt.Printf("Tasks:       %d\n", len(report.Plan.Tasks))
	fmt.Printf("Documents:   %d\n", report.TotalDocuments())
	fmt.Printf("Originality: %.2f", report.Originality.OriginalityScore)
	if report.PostRewrite != nil {
		fmt.Printf(" → %.2f after rewrite", report.PostRewrite.OriginalityScore)
	}
	fmt.Println()
	if n := len(report.Originality.Flags); n > 0 {
		fmt.Printf("Flags:       %d\n", n)
	}
	fmt.Printf("Elapsed:     %s\n", report.Elapsed.Round(time.Millisecond))
}

// runLogEntry is one line of the append-only run log
type runLogEntry struct {
	Timestamp   time.Time `json:"timestamp"`
	Query       string    `json:"query"`
	Tasks       int       `json:"tasks"`
	Documents   int       `json:"documents"`
	Originality float64   `json:"originality"`
	Flags       int       `json:"flags"`
	Rewritten   int       `json:"rewritten,omitempty"`
	ElapsedMS   int64     `json:"elapsed_ms"`
}

// AppendRunLog appends a one-line JSON record of the run to path
func (r *Renderer) AppendRunLog(report *model.Report, path string) error {
	entry := runLogEntry{
		Timestamp:   report.GeneratedAt,
		Query:       report.Query,
		Tasks:       len(report.Plan.Tasks),
		Documents:   report.TotalDocuments(),
		Originality: report.Originality.OriginalityScore,
		Flags:       len(report.Originality.Flags),
		ElapsedMS:   report.Elapsed.Milliseconds(),
	}
	if report.Rewrite != nil {
		entry.Rewritten = report.Rewrite.ChangedSegments
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal run log entry: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open run log: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write run log: %w", err)
	}
	return nil
}
