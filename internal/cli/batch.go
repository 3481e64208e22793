package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/ameins/delver/internal/pipeline"
	"github.com/ameins/delver/internal/worker"
)

var (
	concurrency  int
	batchOutDir  string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Research multiple queries from a file in parallel",
	Long: `Batch runs the research pipeline for many queries concurrently:
- Read queries from the input file (one per line, # for comments)
- Process queries in parallel with a configurable worker count
- Write an individual report pair (.md + .json) per query

All queries share the same source configuration (--sources or --corpus).

Example:
  delver batch queries.txt --corpus ./notes
  delver batch queries.txt --sources urls.txt --concurrency 4
  delver batch queries.txt --corpus ./notes --out-dir ./reports`,
	Args: cobra.ExactArgs(1),
	RunE: runBatchCmd,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent queries")
	batchCmd.Flags().StringVar(&batchOutDir, "out-dir", "./delver-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total timeout for batch processing")

	batchCmd.Flags().StringVar(&sourcesFile, "sources", "", "file with source URLs, one per line")
	batchCmd.Flags().StringVar(&corpusDir, "corpus", "", "local corpus directory of .txt/.md files")
	batchCmd.Flags().StringVar(&userAgent, "ua", "Delver/0.2 (+https://github.com/ameins/delver)", "HTTP User-Agent")
	batchCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable document cache (force fresh fetch)")
	batchCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
	batchCmd.Flags().StringVar(&httpProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	batchCmd.Flags().StringVar(&httpsProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")

	batchCmd.Flags().BoolVar(&noLLM, "no-llm", false, "disable LLM synthesis and rewriting")
	batchCmd.Flags().StringVar(&llmProvider, "llm-provider", "openai", "LLM provider (openai, anthropic, ollama)")
	batchCmd.Flags().StringVar(&llmModel, "llm-model", "gpt-4o-mini", "LLM model name")
}

func runBatchCmd(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	cfg, err := buildConfig()
	if err != nil {
		return err
	}
	cfg.Concurrency.Workers = concurrency
	cfg.Output.Dir = batchOutDir

	retriever, err := buildRetriever(cfg)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Input file:  %s\n", file)
	fmt.Fprintf(os.Stderr, "Workers:     %d\n", concurrency)
	fmt.Fprintf(os.Stderr, "Output dir:  %s\n", batchOutDir)
	if cfg.LLM.Provider != "" {
		fmt.Fprintf(os.Stderr, "LLM:         %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
	}
	fmt.Fprintln(os.Stderr)

	if err := os.MkdirAll(batchOutDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	p := pipeline.NewPipeline(cfg, retriever)
	processor := worker.NewBatchProcessor(p, concurrency)

	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	renderer := pipeline.NewRenderer(cfg.Output.IncludeFooter)

	successCount := 0
	failureCount := 0

	for _, result := range results {
		if result.Error != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Query, result.Error)
			continue
		}

		slug := sanitizeFilename(result.Query)
		jsonPath := filepath.Join(batchOutDir, slug+".json")
		mdPath := filepath.Join(batchOutDir, slug+".md")

		if err := renderer.RenderJSON(result.Report, jsonPath); err != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write JSON: %v\n", result.Query, err)
			continue
		}
		if err := renderer.RenderMarkdown(result.Report, mdPath); err != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write Markdown: %v\n", result.Query, err)
			continue
		}
		if err := renderer.AppendRunLog(result.Report, filepath.Join(batchOutDir, "runs.jsonl")); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to append run log: %v\n", err)
		}

		successCount++
		fmt.Fprintf(os.Stderr, "✓ %s (originality: %.2f)\n", result.Query, result.Report.Originality.OriginalityScore)
	}

	fmt.Fprintf(os.Stderr, "\nTotal:    %d queries\n", len(results))
	fmt.Fprintf(os.Stderr, "Success:  %d\n", successCount)
	fmt.Fprintf(os.Stderr, "Failures: %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "Output:   %s\n", batchOutDir)

	return nil
}
