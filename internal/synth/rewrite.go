package synth

import (
	"context"
	"fmt"

	"github.com/ameins/delver/internal/llm"
	"github.com/ameins/delver/internal/originality"
)

const rewriteSystem = "You are an expert academic editor specializing in rewriting for originality while maintaining accuracy."

const rewritePromptTemplate = "Rewrite the following text to improve originality while preserving all factual content and citations. " +
	"Restructure sentences, use different vocabulary, and vary sentence patterns. " +
	"Maintain the same meaning, tone, and all citation numbers [1], [2], etc.\n\n" +
	"Original text:\n%s\n\n" +
	"Rewritten version:"

// NewRewriteCapability adapts an LLM provider into the rewrite capability
// consumed by the originality rewriter. Rewriting uses a higher sampling
// temperature than synthesis to push wording away from the sources.
func NewRewriteCapability(provider llm.Provider, baseTemperature float64) originality.RewriteFunc {
	return func(ctx context.Context, span string) (string, error) {
		if provider == nil {
			return "", fmt.Errorf("no LLM provider configured")
		}

		resp, err := provider.Complete(ctx, llm.CompletionRequest{
			System: rewriteSystem,
			Messages: []llm.Message{
				{Role: "user", Content: fmt.Sprintf(rewritePromptTemplate, span)},
			},
			Temperature: baseTemperature * 2,
		})
		if err != nil {
			return "", err
		}
		return resp.Content, nil
	}
}
