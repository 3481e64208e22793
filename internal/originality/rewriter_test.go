package originality

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ameins/delver/internal/model"
)

func rewriteConfig() model.RewriteConfig {
	return model.DefaultConfig().Rewrite
}

func TestRewrite_NoFlags(t *testing.T) {
	r := NewRewriter(rewriteConfig())

	calls := 0
	fn := func(ctx context.Context, span string) (string, error) {
		calls++
		return "should never be used", nil
	}

	text := "Original text that must pass through unchanged."
	result := r.Rewrite(context.Background(), text, nil, fn)

	if result.Content != text {
		t.Errorf("Expected unchanged text, got %q", result.Content)
	}
	if result.ChangedSegments != 0 {
		t.Errorf("Expected 0 changed segments, got %d", result.ChangedSegments)
	}
	if calls != 0 {
		t.Errorf("Expected zero rewrite calls, got %d", calls)
	}
}

func TestRewrite_ShortSpanNeverCalled(t *testing.T) {
	r := NewRewriter(rewriteConfig())

	calls := 0
	fn := func(ctx context.Context, span string) (string, error) {
		calls++
		return strings.Repeat("replacement ", 5), nil
	}

	text := "A short flagged span lives inside this sentence somewhere."
	flags := []model.Flag{
		{Span: "short flagged span"}, // 18 chars, below the 50-char minimum
		{Span: ""},
	}

	result := r.Rewrite(context.Background(), text, flags, fn)

	if calls != 0 {
		t.Errorf("Expected no rewrite calls for short spans, got %d", calls)
	}
	if result.Content != text || result.ChangedSegments != 0 {
		t.Error("Expected text unchanged with no counted segments")
	}
}

func TestRewrite_ShortReplacementRejected(t *testing.T) {
	r := NewRewriter(rewriteConfig())

	span := "This flagged span is comfortably longer than fifty characters in total."
	text := "Lead-in. " + span + " Trailing text."

	fn := func(ctx context.Context, s string) (string, error) {
		return "only 15 chars!!", nil // Below the >20 character requirement
	}

	result := r.Rewrite(context.Background(), text, []model.Flag{{Span: span}}, fn)

	if result.Content != text {
		t.Errorf("Expected span left unmodified, got %q", result.Content)
	}
	if result.ChangedSegments != 0 {
		t.Errorf("Expected 0 changed segments, got %d", result.ChangedSegments)
	}
}

func TestRewrite_EmptyReplacementRejected(t *testing.T) {
	r := NewRewriter(rewriteConfig())

	span := "Another flagged span that is comfortably longer than fifty characters."
	text := "Intro. " + span

	fn := func(ctx context.Context, s string) (string, error) {
		return "   ", nil // Whitespace trims to empty
	}

	result := r.Rewrite(context.Background(), text, []model.Flag{{Span: span}}, fn)

	if result.Content != text || result.ChangedSegments != 0 {
		t.Error("Expected empty replacement to be rejected")
	}
}

func TestRewrite_Success(t *testing.T) {
	r := NewRewriter(rewriteConfig())

	span := "The original passage flagged for high similarity to its sources."
	text := "Before. " + span + " After."
	replacement := "A reworded passage with the same meaning and citations [1]."

	result := r.Rewrite(context.Background(), text, []model.Flag{{Span: span}}, func(ctx context.Context, s string) (string, error) {
		if s != span {
			t.Errorf("Expected the exact span to be passed through, got %q", s)
		}
		return replacement, nil
	})

	want := "Before. " + replacement + " After."
	if result.Content != want {
		t.Errorf("Expected %q, got %q", want, result.Content)
	}
	if result.ChangedSegments != 1 {
		t.Errorf("Expected 1 changed segment, got %d", result.ChangedSegments)
	}
}

func TestRewrite_FailureSkipsAndContinues(t *testing.T) {
	r := NewRewriter(rewriteConfig())

	spanA := "First flagged span that is comfortably longer than fifty characters."
	spanB := "Second flagged span, also comfortably longer than fifty characters."
	text := spanA + " middle. " + spanB

	replacement := "Successfully reworded second span with preserved meaning."
	fn := func(ctx context.Context, s string) (string, error) {
		if s == spanA {
			return "", errors.New("capability timeout")
		}
		return replacement, nil
	}

	result := r.Rewrite(context.Background(), text, []model.Flag{{Span: spanA}, {Span: spanB}}, fn)

	if strings.Contains(result.Content, spanB) {
		t.Error("Expected second span to be rewritten despite first failing")
	}
	if !strings.Contains(result.Content, spanA) {
		t.Error("Expected failed span to remain untouched")
	}
	if result.ChangedSegments != 1 {
		t.Errorf("Expected 1 changed segment, got %d", result.ChangedSegments)
	}
}

func TestRewrite_DuplicateSpanSkippedAfterMutation(t *testing.T) {
	r := NewRewriter(rewriteConfig())

	span := "A flagged span appearing once in the text, longer than fifty characters."
	text := "Start. " + span + " End."
	replacement := "Substituted wording that no longer matches the original span."

	calls := 0
	fn := func(ctx context.Context, s string) (string, error) {
		calls++
		return replacement, nil
	}

	// Two flags carrying the same span: the first substitution removes the
	// span from the working text, so the second verbatim-match check fails
	flags := []model.Flag{{Span: span}, {Span: span}}
	result := r.Rewrite(context.Background(), text, flags, fn)

	if result.ChangedSegments != 1 {
		t.Errorf("Expected 1 changed segment, got %d", result.ChangedSegments)
	}
	if strings.Count(result.Content, replacement) != 1 {
		t.Errorf("Expected exactly one substitution, got %q", result.Content)
	}
}

func TestRewrite_FirstOccurrenceOnly(t *testing.T) {
	r := NewRewriter(rewriteConfig())

	span := "Repeated passage that is comfortably longer than fifty characters here."
	text := span + " | " + span
	replacement := "Reworded passage substituted for the first occurrence only."

	result := r.Rewrite(context.Background(), text, []model.Flag{{Span: span}}, func(ctx context.Context, s string) (string, error) {
		return replacement, nil
	})

	if !strings.HasPrefix(result.Content, replacement) {
		t.Error("Expected first occurrence replaced")
	}
	if !strings.HasSuffix(result.Content, span) {
		t.Error("Expected second occurrence untouched")
	}
}

func TestRewrite_PerFlagDeadline(t *testing.T) {
	cfg := rewriteConfig()
	cfg.PerFlagTimeout = 5 * time.Second
	r := NewRewriter(cfg)

	span := "Span under a deadline that is comfortably longer than fifty characters."
	var sawDeadline bool
	fn := func(ctx context.Context, s string) (string, error) {
		_, sawDeadline = ctx.Deadline()
		return "Replacement text that satisfies the minimum length rule.", nil
	}

	r.Rewrite(context.Background(), span+" trailing.", []model.Flag{{Span: span}}, fn)

	if !sawDeadline {
		t.Error("Expected the rewrite capability to receive a deadline-bound context")
	}
}
