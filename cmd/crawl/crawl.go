// Package crawl implements the one-shot crawl command.
package crawl

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/harvester/cmd/common"
	crawlengine "github.com/jonesrussell/harvester/internal/crawl"
)

// Command returns the crawl command.
func Command() *cobra.Command {
	var (
		limit       int
		depth       int
		fullContent bool
		followLinks bool
		timeoutMS   int
		waitMS      int
	)

	cmd := &cobra.Command{
		Use:   "crawl [source-id]",
		Short: "Run a single crawl for a source",
		Long: `Run one crawl for the given source and print the run counters.
The source's backend and selectors come from the database; the flags
tune this run only.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile, _ := cmd.Flags().GetString("config")
			deps, err := common.NewCommandDeps(cfgFile)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			db, err := common.OpenDatabase(ctx, deps)
			if err != nil {
				return err
			}
			defer db.Close()

			engine, err := common.BuildEngine(deps, db)
			if err != nil {
				return err
			}
			defer engine.Shutdown()

			opts := crawlengine.Defaults()
			opts.Limit = limit
			opts.Depth = depth
			opts.FullContent = fullContent
			opts.FollowLinks = followLinks
			opts.TimeoutMillis = timeoutMS
			opts.WaitMillis = waitMS

			result, err := engine.Crawl.RunCrawl(ctx, args[0], opts)
			if err != nil {
				var validationErr *crawlengine.ValidationError
				if errors.As(err, &validationErr) {
					for _, violation := range validationErr.Violations {
						fmt.Fprintln(os.Stderr, "invalid option:", violation)
					}
				}
				return fmt.Errorf("crawl failed: %w", err)
			}

			fmt.Printf("source=%s status=%s found=%d processed=%d new=%d errors=%d duration=%s\n",
				result.SourceID, result.Status, result.Found,
				result.Processed, result.New, result.Errors, result.Duration)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", crawlengine.DefaultLimit, "maximum articles to process")
	cmd.Flags().IntVar(&depth, "depth", crawlengine.DefaultDepth, "maximum link-follow depth")
	cmd.Flags().BoolVar(&fullContent, "full-content", false, "extract article bodies")
	cmd.Flags().BoolVar(&followLinks, "follow-links", false, "follow internal links from new articles")
	cmd.Flags().IntVar(&timeoutMS, "timeout", crawlengine.DefaultTimeoutMillis, "page load timeout in milliseconds")
	cmd.Flags().IntVar(&waitMS, "wait", crawlengine.DefaultWaitMillis, "content wait time in milliseconds")

	return cmd
}
