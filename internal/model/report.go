package model

import "time"

// Report represents the complete result of one research run
type Report struct {
	Query       string    `json:"query"`
	GeneratedAt time.Time `json:"generated_at"`

	Plan      Plan                  `json:"plan"`
	Documents map[string][]Document `json:"documents"` // Keyed by task ID

	Summary Summary `json:"summary"`

	Originality OriginalityReport  `json:"originality"`
	Rewrite     *RewriteResult     `json:"rewrite,omitempty"`      // Present when flags triggered a rewrite pass
	PostRewrite *OriginalityReport `json:"post_rewrite,omitempty"` // Re-check after the rewrite pass

	LLM LLMInfo `json:"llm"`

	Elapsed time.Duration `json:"elapsed_ns"`
}

// LLMInfo records which provider produced the synthesis and rewrites
type LLMInfo struct {
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
}

// TotalDocuments counts the retrieved documents across all tasks
func (r *Report) TotalDocuments() int {
	n := 0
	for _, docs := range r.Documents {
		n += len(docs)
	}
	return n
}

// FinalContent returns the rewritten summary when a rewrite pass ran,
// otherwise the original synthesis
func (r *Report) FinalContent() string {
	if r.Rewrite != nil && r.Rewrite.ChangedSegments > 0 {
		return r.Rewrite.Content
	}
	return r.Summary.Content
}
