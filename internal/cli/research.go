package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ameins/delver/internal/cache"
	"github.com/ameins/delver/internal/model"
	"github.com/ameins/delver/internal/pipeline"
	"github.com/ameins/delver/internal/retrieve"
	"github.com/ameins/delver/internal/worker"
)

var (
	sourcesFile string
	corpusDir   string
	outDir      string
	timeout     time.Duration
	userAgent   string
	maxBytes    int64
	noCache     bool
	noFooter    bool
	noRobots    bool
	insecureTLS bool
	httpProxy   string
	httpsProxy  string

	noLLM       bool
	llmProvider string
	llmModel    string

	origThreshold float64
	origPolicy    string
	rewritePasses int
)

// researchCmd represents the research command
var researchCmd = &cobra.Command{
	Use:   "research <query>",
	Short: "Research a query and generate a cited, originality-checked report",
	Long: `Research runs the full pipeline for one query:
- Break the query into focused sub-questions
- Retrieve reference documents for each sub-question
- Synthesize a summary with numbered citations
- Score the summary for originality against its sources
- Rewrite flagged passages when a language model is configured

Sources come from a URL list (--sources) or a local corpus
directory of .txt/.md files (--corpus).

Example:
  delver research "history of container shipping" --corpus ./notes
  delver research "lithium battery recycling" --sources urls.txt
  delver research "fusion startups" --sources urls.txt --llm-provider anthropic`,
	Args: cobra.MinimumNArgs(1),
	RunE: runResearch,
}

func init() {
	rootCmd.AddCommand(researchCmd)

	// Source flags
	researchCmd.Flags().StringVar(&sourcesFile, "sources", "", "file with source URLs, one per line")
	researchCmd.Flags().StringVar(&corpusDir, "corpus", "", "local corpus directory of .txt/.md files")

	// Output flags
	researchCmd.Flags().StringVar(&outDir, "out-dir", "./delver-reports", "output directory for reports")

	// HTTP flags
	researchCmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "overall research timeout")
	researchCmd.Flags().StringVar(&userAgent, "ua", "Delver/0.2 (+https://github.com/ameins/delver)", "HTTP User-Agent")
	researchCmd.Flags().Int64Var(&maxBytes, "max-bytes", 2_000_000, "max response bytes to read")
	researchCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable document cache (force fresh fetch)")
	researchCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
	researchCmd.Flags().BoolVar(&noRobots, "no-robots", false, "skip robots.txt checks")
	researchCmd.Flags().BoolVar(&insecureTLS, "insecure", false, "skip TLS certificate verification (use for self-signed certs)")
	researchCmd.Flags().StringVar(&httpProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	researchCmd.Flags().StringVar(&httpsProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")

	// LLM flags
	researchCmd.Flags().BoolVar(&noLLM, "no-llm", false, "disable LLM synthesis and rewriting")
	researchCmd.Flags().StringVar(&llmProvider, "llm-provider", "openai", "LLM provider (openai, anthropic, ollama)")
	researchCmd.Flags().StringVar(&llmModel, "llm-model", "gpt-4o-mini", "LLM model name")

	// Originality flags
	researchCmd.Flags().Float64Var(&origThreshold, "originality-threshold", 0.8, "similarity threshold for flagging")
	researchCmd.Flags().StringVar(&origPolicy, "originality-policy", "per-paragraph", "flagging policy (per-paragraph, whole-text)")
	researchCmd.Flags().IntVar(&rewritePasses, "rewrite-passes", 1, "max rewrite passes (0 disables rewriting)")
}

func runResearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	retriever, err := buildRetriever(cfg)
	if err != nil {
		return err
	}
	if retriever == nil {
		fmt.Fprintln(os.Stderr, "Warning: no --sources or --corpus given; running without reference documents")
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Researching: %s\n", query)
		if retriever != nil {
			fmt.Fprintf(os.Stderr, "Retriever:   %s\n", retriever.Name())
		}
		fmt.Fprintf(os.Stderr, "Timeout:     %v\n\n", timeout)
	}

	p := pipeline.NewPipeline(cfg, retriever)

	report, err := p.Research(ctx, query)
	if err != nil {
		return fmt.Errorf("research failed: %w", err)
	}

	slug := sanitizeFilename(query)
	jsonPath := filepath.Join(outDir, slug+".json")
	mdPath := filepath.Join(outDir, slug+".md")

	if err := p.RenderReport(report, jsonPath, mdPath, verbose); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}

	if err := p.AppendRunLog(report, filepath.Join(outDir, "runs.jsonl")); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to append run log: %v\n", err)
	}

	return nil
}

// buildConfig assembles the effective configuration from defaults,
// flags and environment
func buildConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	cfg.HTTP.Timeout = 20 * time.Second
	cfg.HTTP.UserAgent = userAgent
	cfg.HTTP.MaxBodyBytes = maxBytes
	cfg.HTTP.InsecureTLS = insecureTLS
	cfg.HTTP.RespectRobots = !noRobots
	cfg.HTTP.HTTPProxy = httpProxy
	cfg.HTTP.HTTPSProxy = httpsProxy
	cfg.Cache.Enabled = !noCache
	cfg.Output.Dir = outDir
	cfg.Output.Verbose = verbose
	cfg.Output.IncludeFooter = !noFooter
	cfg.Originality.Threshold = origThreshold
	cfg.Originality.Policy = origPolicy
	cfg.Rewrite.MaxPasses = rewritePasses

	if noLLM {
		cfg.LLM.Provider = ""
		return cfg, nil
	}

	cfg.LLM.Provider = llmProvider
	cfg.LLM.Model = llmModel

	// API keys come from the environment, never from flags or config
	switch llmProvider {
	case "openai":
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		if cfg.LLM.APIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set (use --no-llm to run without a model)")
		}
	case "anthropic", "claude":
		cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		if cfg.LLM.APIKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable not set (use --no-llm to run without a model)")
		}
	case "ollama":
		// Ollama doesn't need an API key
		if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
			cfg.LLM.BaseURL = baseURL
		}
	}

	return cfg, nil
}

// buildRetriever creates the document retriever selected by flags.
// Returns nil when neither a URL list nor a corpus is configured.
func buildRetriever(cfg *model.Config) (retrieve.Retriever, error) {
	if sourcesFile != "" && corpusDir != "" {
		return nil, fmt.Errorf("--sources and --corpus are mutually exclusive")
	}

	if corpusDir != "" {
		if _, err := os.Stat(corpusDir); err != nil {
			return nil, fmt.Errorf("corpus directory: %w", err)
		}
		return retrieve.NewFileRetriever(corpusDir, cfg.Retrieval.MaxResults, cfg.Retrieval.MaxContentLength), nil
	}

	if sourcesFile != "" {
		urls, err := worker.ReadLines(sourcesFile)
		if err != nil {
			return nil, fmt.Errorf("read sources: %w", err)
		}
		if len(urls) == 0 {
			return nil, fmt.Errorf("no URLs in %s", sourcesFile)
		}

		var store cache.Cache
		if cfg.Cache.Enabled {
			store = cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
		}
		fetcher := retrieve.NewFetcher(cfg.HTTP, store)
		return retrieve.NewURLRetriever(fetcher, urls, cfg.Retrieval.MaxResults, cfg.Retrieval.MaxContentLength), nil
	}

	return nil, nil
}

// sanitizeFilename turns a query into a safe file name
func sanitizeFilename(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_', r == '/':
			b.WriteRune('-')
		}
	}

	out := strings.Trim(b.String(), "-")
	if out == "" {
		out = "report"
	}
	if len(out) > 100 {
		out = out[:100]
	}
	return out
}
