package originality

import (
	"context"
	"fmt"
	"os"

	"github.com/ameins/delver/internal/model"
)

// Scorer computes a similarity-based originality score for a candidate
// text against a set of reference texts and flags spans that exceed the
// similarity threshold. Scoring is advisory: the scorer never returns an
// error, every failure mode degrades to a conservative default so the
// surrounding pipeline always receives a well-formed report.
type Scorer struct {
	cfg      model.OriginalityConfig
	detector Detector
	policy   FlaggingPolicy
}

// NewScorer creates a scorer with detector and flagging policy selected
// from configuration. An unknown or misconfigured detector falls back to
// local vector similarity.
func NewScorer(cfg model.OriginalityConfig) *Scorer {
	var detector Detector
	switch cfg.Detector {
	case "remote":
		d, err := NewRemoteDetector(cfg, 0)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: remote detector unavailable (%v), using local similarity\n", err)
			detector = NewLocalDetector(cfg.VocabCap)
		} else {
			detector = d
		}
	default:
		detector = NewLocalDetector(cfg.VocabCap)
	}

	var policy FlaggingPolicy
	switch cfg.Policy {
	case "whole-text":
		policy = NewWholeTextPolicy(cfg)
	default:
		policy = NewPerParagraphPolicy(cfg)
	}

	return &Scorer{cfg: cfg, detector: detector, policy: policy}
}

// NewScorerWith creates a scorer with an explicit detector and policy
func NewScorerWith(cfg model.OriginalityConfig, detector Detector, policy FlaggingPolicy) *Scorer {
	return &Scorer{cfg: cfg, detector: detector, policy: policy}
}

// Policy returns the name of the active flagging policy
func (s *Scorer) Policy() string {
	return s.policy.Name()
}

// Check scores the candidate text against the reference texts.
// An empty candidate or an empty reference set scores 1.0 with no flags:
// absence of sources is never interpreted as plagiarism. Reference texts
// are truncated to the configured maximum length; every non-empty
// reference participates in the comparison.
func (s *Scorer) Check(ctx context.Context, candidate string, refs []string) model.OriginalityReport {
	report := model.OriginalityReport{
		OriginalityScore: 1.0,
		Detector:         s.detector.Name(),
		Flags:            []model.Flag{},
	}

	bounded := s.boundedRefs(refs)
	if candidate == "" || len(bounded) == 0 {
		return report
	}

	maxSim, err := s.detector.MaxSimilarity(ctx, candidate, bounded)
	if err != nil {
		// Advisory signal: treat a failed comparison as dissimilar
		fmt.Fprintf(os.Stderr, "Warning: %s detector failed: %v\n", s.detector.Name(), err)
		maxSim = 0
	}
	if maxSim < 0 {
		maxSim = 0
	} else if maxSim > 1 {
		maxSim = 1
	}

	report.MaxSimilarity = maxSim
	report.OriginalityScore = 1 - maxSim

	if flags := s.policy.Flags(candidate, report.OriginalityScore, maxSim); len(flags) > 0 {
		report.Flags = flags
	}
	return report
}

// CheckDocuments scores the candidate against document contents
func (s *Scorer) CheckDocuments(ctx context.Context, candidate string, docs []model.Document) model.OriginalityReport {
	refs := make([]string, 0, len(docs))
	for _, d := range docs {
		refs = append(refs, d.Content)
	}
	return s.Check(ctx, candidate, refs)
}

// boundedRefs drops empty references and truncates the rest to the
// configured prefix, bounding vectorization cost
func (s *Scorer) boundedRefs(refs []string) []string {
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		if r == "" {
			continue
		}
		out = append(out, truncateSpan(r, s.cfg.MaxRefLength))
	}
	return out
}
