package model

// OriginalityReport is the output of an originality check.
// The score is 1 minus the maximum cosine similarity between the candidate
// text and any reference text. 1.0 means maximally original; by convention
// an empty candidate or an empty reference set also scores 1.0, because
// absence of sources must never be read as plagiarism.
type OriginalityReport struct {
	OriginalityScore float64 `json:"originality_score"` // In [0,1]
	MaxSimilarity    float64 `json:"max_similarity"`    // Highest similarity to any single reference
	Detector         string  `json:"detector,omitempty"`
	Flags            []Flag  `json:"flags"` // Ordered; empty when the text passes
}

// Flag marks a span of candidate text as insufficiently original
type Flag struct {
	Span    string  `json:"span"`              // Literal substring of the candidate text
	Reason  string  `json:"reason"`            // Human-readable classification
	Score   float64 `json:"score"`             // The score that triggered the flag
	Segment int     `json:"segment,omitempty"` // Paragraph index for segment-level flags
}

// RewriteResult is the output of a targeted rewrite pass
type RewriteResult struct {
	Content         string `json:"content"`          // Candidate text with flagged spans replaced
	ChangedSegments int    `json:"changed_segments"` // Spans actually substituted, not flags processed
}
