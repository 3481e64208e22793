package originality

import (
	"strings"
	"unicode/utf8"

	"github.com/ameins/delver/internal/model"
)

// FlaggingPolicy decides which spans of the candidate text to flag for a
// given originality score. Policies never alter the score itself.
type FlaggingPolicy interface {
	// Name returns the policy name for reporting
	Name() string

	// Flags returns the flags for the candidate text. originality is the
	// holistic document score, maxSim the similarity that produced it.
	Flags(text string, originality, maxSim float64) []model.Flag
}

// WholeTextPolicy emits a single coarse flag covering a bounded prefix of
// the candidate text when the originality score falls below the threshold.
type WholeTextPolicy struct {
	Threshold  float64
	SpanLength int // Bytes of leading text carried in the flag
}

// NewWholeTextPolicy builds the policy from configuration
func NewWholeTextPolicy(cfg model.OriginalityConfig) *WholeTextPolicy {
	return &WholeTextPolicy{
		Threshold:  cfg.WholeTextThreshold,
		SpanLength: cfg.LeadSpanLength,
	}
}

// Name returns the policy name
func (p *WholeTextPolicy) Name() string {
	return "whole-text"
}

// Flags emits at most one flag, spanning the leading slice of the text
func (p *WholeTextPolicy) Flags(text string, originality, _ float64) []model.Flag {
	if originality >= p.Threshold {
		return nil
	}
	return []model.Flag{{
		Span:   truncateSpan(text, p.SpanLength),
		Reason: "High similarity to sources",
		Score:  originality,
	}}
}

// PerParagraphPolicy emits one flag per over-length paragraph when the
// holistic score falls below the threshold. All flags share the single
// document-level similarity figure; paragraphs are not scored
// independently.
type PerParagraphPolicy struct {
	Threshold        float64
	MinSegmentLength int // Paragraphs at or below this length are skipped
	SpanLength       int // Flagged span cap per paragraph
}

// NewPerParagraphPolicy builds the policy from configuration
func NewPerParagraphPolicy(cfg model.OriginalityConfig) *PerParagraphPolicy {
	return &PerParagraphPolicy{
		Threshold:        cfg.Threshold,
		MinSegmentLength: cfg.MinSegmentLength,
		SpanLength:       cfg.SegmentSpanLength,
	}
}

// Name returns the policy name
func (p *PerParagraphPolicy) Name() string {
	return "per-paragraph"
}

// Flags splits the text on blank lines and flags each long paragraph
func (p *PerParagraphPolicy) Flags(text string, originality, maxSim float64) []model.Flag {
	if originality >= p.Threshold {
		return nil
	}

	var flags []model.Flag
	for i, segment := range strings.Split(text, "\n\n") {
		if len(segment) <= p.MinSegmentLength {
			continue
		}
		flags = append(flags, model.Flag{
			Span:    truncateSpan(segment, p.SpanLength),
			Reason:  "High similarity to source material",
			Score:   maxSim,
			Segment: i,
		})
	}
	return flags
}

// truncateSpan takes a leading slice of at most n bytes, backing off to a
// rune boundary so the span stays valid UTF-8 and a verbatim substring
func truncateSpan(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
