package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ameins/delver/internal/model"
	"github.com/ameins/delver/internal/sources"
	"github.com/ameins/delver/internal/worker"
)

var (
	verifyWorkers int
	verifyTimeout time.Duration
)

// sourcesCmd represents the sources command
var sourcesCmd = &cobra.Command{
	Use:   "sources <file>",
	Short: "Verify a source URL list before researching with it",
	Long: `Sources checks every URL in the file with a HEAD request:
- Liveness (dead links, redirects)
- Document age from the Last-Modified header
- A credibility tier for the host (primary, secondary, tertiary)

Use it to clean a URL list before passing it to research --sources.

Example:
  delver sources urls.txt
  delver sources urls.txt --workers 50`,
	Args: cobra.ExactArgs(1),
	RunE: runSources,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)

	sourcesCmd.Flags().IntVar(&verifyWorkers, "workers", 20, "concurrent HEAD requests")
	sourcesCmd.Flags().DurationVar(&verifyTimeout, "timeout", 2*time.Minute, "total verification timeout")
}

func runSources(cmd *cobra.Command, args []string) error {
	urls, err := worker.ReadLines(args[0])
	if err != nil {
		return fmt.Errorf("read sources: %w", err)
	}
	if len(urls) == 0 {
		return fmt.Errorf("no URLs in %s", args[0])
	}

	ctx, cancel := context.WithTimeout(context.Background(), verifyTimeout)
	defer cancel()

	cfg := model.DefaultConfig()
	verifier := sources.NewVerifier(cfg.HTTP, verifyWorkers, &cfg.Sources)

	fmt.Fprintf(os.Stderr, "Verifying %d sources...\n\n", len(urls))

	results := verifier.VerifyAll(ctx, urls)

	dead := 0
	stale := 0
	for _, res := range results {
		mark := "✓"
		if !res.IsAccessible {
			mark = "✗"
			dead++
		}

		fmt.Printf("%s %-9s %s", mark, res.Tier, res.URL)
		if res.StatusCode != 0 && !res.IsAccessible {
			fmt.Printf(" (%d)", res.StatusCode)
		}
		if res.Error != "" {
			fmt.Printf(" (%s)", res.Error)
		}
		if res.RedirectURL != "" {
			fmt.Printf("\n  → %s", res.RedirectURL)
		}
		if res.IsVeryStale {
			fmt.Printf("  [very stale: %dd]", *res.AgeDays)
			stale++
		} else if res.IsStale {
			fmt.Printf("  [stale: %dd]", *res.AgeDays)
			stale++
		}
		fmt.Println()
	}

	fmt.Printf("\nTotal: %d  Reachable: %d  Dead: %d  Stale: %d\n",
		len(results), len(results)-dead, dead, stale)

	if dead > 0 {
		return fmt.Errorf("%d source(s) unreachable", dead)
	}
	return nil
}
