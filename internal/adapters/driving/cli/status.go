package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

var statusHistory int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index, knowledge pack and background task status",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().IntVar(&statusHistory, "history", 5, "number of recent task runs to show per task")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if indexService == nil || compressionService == nil {
		return errors.New("services not configured")
	}
	ctx := commandContext(cmd)
	st := outputStyles(cmd)

	cmd.Println(st.Title.Render("Vector index"))
	stats, err := indexService.Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to read index: %w", err)
	}
	printIndexStats(cmd, stats)
	cmd.Println()

	cmd.Println(st.Title.Render("Knowledge pack"))
	pack, err := compressionService.Pack(ctx)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		cmd.Println("  Pack: none (run 'sercha-kb compress')")
	case err != nil:
		return fmt.Errorf("failed to read pack: %w", err)
	default:
		cmd.Printf("  Domains: %d from %d documents\n", len(pack.Domains), pack.Stats.Documents)
		cmd.Printf("  Built: %s\n", pack.CreatedAt.Local().Format("2006-01-02 15:04:05"))
		stale, err := compressionService.IsStale(ctx)
		if err != nil {
			return fmt.Errorf("failed to check pack: %w", err)
		}
		if stale {
			cmd.Println("  " + st.Warning.Render("Stale: corpus changed since the pack was built"))
		} else {
			cmd.Println("  " + st.Success.Render("Up to date"))
		}
	}

	if taskHistory == nil || statusHistory <= 0 {
		return nil
	}
	cmd.Println()
	cmd.Println(st.Title.Render("Background tasks"))
	for _, taskID := range []string{domain.TaskIDIndexRebuild, domain.TaskIDCompression} {
		runs, err := taskHistory.History(ctx, taskID, statusHistory)
		if err != nil {
			return fmt.Errorf("failed to read task history: %w", err)
		}
		cmd.Printf("  %s:\n", taskID)
		if len(runs) == 0 {
			cmd.Println("    no runs recorded")
			continue
		}
		for _, r := range runs {
			cmd.Printf("    %s\n", formatTaskResult(st.Success.Render, st.Error.Render, r))
		}
	}
	return nil
}

// formatTaskResult renders one run on a single line.
func formatTaskResult(ok, failed func(...string) string, r domain.TaskResult) string {
	when := r.StartedAt.Local().Format("2006-01-02 15:04:05")
	switch {
	case !r.Success:
		return fmt.Sprintf("%s %s %s", when, failed("failed"), r.Error)
	case r.Skipped:
		return fmt.Sprintf("%s %s (%s)", when, ok("unchanged"), r.Duration().Round(time.Millisecond))
	default:
		return fmt.Sprintf("%s %s %d items (%s)", when, ok("ok"), r.ItemsProcessed, r.Duration().Round(time.Millisecond))
	}
}
