package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ameins/delver/internal/llm"
	"github.com/ameins/delver/internal/model"
	"github.com/ameins/delver/internal/originality"
	"github.com/ameins/delver/internal/synth"
)

var (
	checkSources   string
	checkCorpus    string
	checkThreshold float64
	checkPolicy    string
	checkRewrite   bool
	checkOut       string
	checkTimeout   time.Duration
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check <file>",
	Short: "Check a local text file for originality against reference sources",
	Long: `Check scores an existing text against reference documents without
running the research pipeline. Scoring needs no language model; the
optional --rewrite pass does.

By default the whole text is scored and flagged at threshold 0.85.
Use --policy per-paragraph to flag individual paragraphs instead.

Example:
  delver check draft.md --corpus ./notes
  delver check draft.md --sources urls.txt --policy per-paragraph
  delver check draft.md --corpus ./notes --rewrite --out draft.revised.md`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&checkSources, "sources", "", "file with reference URLs, one per line")
	checkCmd.Flags().StringVar(&checkCorpus, "corpus", "", "reference corpus directory of .txt/.md files")
	checkCmd.Flags().Float64Var(&checkThreshold, "threshold", 0.85, "similarity threshold for flagging")
	checkCmd.Flags().StringVar(&checkPolicy, "policy", "whole-text", "flagging policy (whole-text, per-paragraph)")
	checkCmd.Flags().BoolVar(&checkRewrite, "rewrite", false, "rewrite flagged passages (requires an LLM provider)")
	checkCmd.Flags().StringVar(&checkOut, "out", "", "write the rewritten text to this path (default: <file>.revised)")
	checkCmd.Flags().DurationVar(&checkTimeout, "timeout", 5*time.Minute, "overall check timeout")

	checkCmd.Flags().BoolVar(&noLLM, "no-llm", false, "disable LLM rewriting")
	checkCmd.Flags().StringVar(&llmProvider, "llm-provider", "openai", "LLM provider (openai, anthropic, ollama)")
	checkCmd.Flags().StringVar(&llmModel, "llm-model", "gpt-4o-mini", "LLM model name")
}

func runCheck(cmd *cobra.Command, args []string) error {
	path := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	text := string(data)

	cfg := model.DefaultConfig()
	cfg.Originality.Policy = checkPolicy
	if checkPolicy == "whole-text" {
		cfg.Originality.WholeTextThreshold = checkThreshold
	} else {
		cfg.Originality.Threshold = checkThreshold
	}

	// Score against every reference, full length
	cfg.Retrieval.MaxResults = 1000
	cfg.Retrieval.MaxContentLength = 0

	sourcesFile = checkSources
	corpusDir = checkCorpus
	retriever, err := buildRetriever(cfg)
	if err != nil {
		return err
	}
	if retriever == nil {
		return fmt.Errorf("check needs reference sources: pass --sources or --corpus")
	}

	docs, err := retriever.Retrieve(ctx, model.Task{ID: "check", Question: ""})
	if err != nil {
		return fmt.Errorf("load references: %w", err)
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "Loaded %d reference documents\n", len(docs))
	}

	scorer := originality.NewScorer(cfg.Originality)
	report := scorer.CheckDocuments(ctx, text, docs)

	printCheckReport(&report, checkPolicy)

	if !checkRewrite || len(report.Flags) == 0 {
		return nil
	}

	rewriteFn, err := buildRewriteFn(cfg)
	if err != nil {
		return err
	}

	rewriter := originality.NewRewriter(cfg.Rewrite)
	result := rewriter.Rewrite(ctx, text, report.Flags, rewriteFn)

	recheck := scorer.CheckDocuments(ctx, result.Content, docs)
	fmt.Printf("\nRewrote %d segment(s)\n", result.ChangedSegments)
	fmt.Printf("Post-rewrite originality: %.2f (%d flags remaining)\n",
		recheck.OriginalityScore, len(recheck.Flags))

	outPath := checkOut
	if outPath == "" {
		outPath = path + ".revised"
	}
	if err := os.WriteFile(outPath, []byte(result.Content), 0644); err != nil {
		return fmt.Errorf("write revised text: %w", err)
	}
	fmt.Printf("Wrote: %s\n", outPath)

	return nil
}

func printCheckReport(report *model.OriginalityReport, policy string) {
	fmt.Printf("Originality:    %.2f (detector: %s)\n", report.OriginalityScore, report.Detector)
	fmt.Printf("Max similarity: %.2f\n", report.MaxSimilarity)
	fmt.Printf("Flags:          %d\n", len(report.Flags))

	for i, flag := range report.Flags {
		span := flag.Span
		if len(span) > 80 {
			span = span[:80] + "..."
		}
		fmt.Printf("\n[%d] %s (score %.2f", i+1, flag.Reason, flag.Score)
		if policy == "per-paragraph" {
			fmt.Printf(", paragraph %d", flag.Segment+1)
		}
		fmt.Printf(")\n    %q\n", span)
	}
}

func buildRewriteFn(cfg *model.Config) (originality.RewriteFunc, error) {
	if noLLM {
		return nil, fmt.Errorf("--rewrite needs a language model; remove --no-llm")
	}

	cfg.LLM.Provider = llmProvider
	cfg.LLM.Model = llmModel

	switch llmProvider {
	case "openai":
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		if cfg.LLM.APIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	case "anthropic", "claude":
		cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		if cfg.LLM.APIKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
		}
	case "ollama":
		if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
			cfg.LLM.BaseURL = baseURL
		}
	}

	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM))
	if err != nil {
		return nil, fmt.Errorf("initialize LLM provider: %w", err)
	}

	return synth.NewRewriteCapability(provider, cfg.LLM.Temperature), nil
}
