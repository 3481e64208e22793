package originality

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ameins/delver/internal/model"
)

// RewriteFunc is the external paraphrasing capability. It receives the
// exact flagged span and returns a replacement that preserves meaning,
// tone, and citation markers. Failures are expected and recoverable.
type RewriteFunc func(ctx context.Context, span string) (string, error)

// Rewriter replaces flagged spans in a candidate text, leaving everything
// else verbatim. Flags are processed strictly in input order against a
// working copy of the text: a successful substitution mutates the copy,
// so a later flag whose span was destroyed by an earlier rewrite is
// silently skipped. That ordering-dependent behavior is deliberate.
type Rewriter struct {
	cfg model.RewriteConfig
}

// NewRewriter creates a rewriter with the given limits
func NewRewriter(cfg model.RewriteConfig) *Rewriter {
	if cfg.MinSpanLength <= 0 {
		cfg.MinSpanLength = 50
	}
	if cfg.MinReplacementLength <= 0 {
		cfg.MinReplacementLength = 20
	}
	return &Rewriter{cfg: cfg}
}

// Rewrite applies fn to each eligible flagged span and substitutes the
// result into the text. The capability is never invoked speculatively:
// with no flags the input is returned unchanged and fn is not called.
// A replacement is applied only when the original span is still present
// verbatim in the working text and the replacement is non-empty and
// longer than the configured minimum; otherwise the span stays untouched
// and does not count as changed. A single failed rewrite never aborts
// the batch.
func (r *Rewriter) Rewrite(ctx context.Context, text string, flags []model.Flag, fn RewriteFunc) model.RewriteResult {
	result := model.RewriteResult{Content: text}
	if len(flags) == 0 {
		return result
	}

	for _, flag := range flags {
		span := flag.Span
		if span == "" || len(span) < r.cfg.MinSpanLength {
			// Too small to rewrite meaningfully, and short spans risk
			// matching unrelated locations in the text
			continue
		}

		replacement, err := r.callRewrite(ctx, span, fn)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to rewrite segment: %v\n", err)
			continue
		}

		if replacement == "" || len(replacement) <= r.cfg.MinReplacementLength {
			continue
		}
		if !strings.Contains(result.Content, span) {
			// Span already mutated away by an earlier substitution
			continue
		}

		result.Content = strings.Replace(result.Content, span, replacement, 1)
		result.ChangedSegments++
	}

	return result
}

// callRewrite invokes the capability under the per-flag deadline
func (r *Rewriter) callRewrite(ctx context.Context, span string, fn RewriteFunc) (string, error) {
	if r.cfg.PerFlagTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.PerFlagTimeout)
		defer cancel()
	}

	replacement, err := fn(ctx, span)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(replacement), nil
}
