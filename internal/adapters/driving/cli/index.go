package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

var indexJSON bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Update the vector index",
	Long: `Brings the vector index up to date with the corpus. Only new or
changed documents are embedded again; entries of removed documents are
dropped.`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

var indexStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show vector index statistics",
	Args:  cobra.NoArgs,
	RunE:  runIndexStats,
}

func init() {
	indexCmd.PersistentFlags().BoolVar(&indexJSON, "json", false, "output as JSON")
	indexCmd.AddCommand(indexStatsCmd)
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}

	var result domain.RebuildResult
	err := runTask(cmd, "Indexing corpus", []domain.Phase{domain.PhaseEmbedding, domain.PhaseDone}, indexJSON,
		func(ctx context.Context, onProgress domain.ProgressFunc) error {
			var err error
			result, err = indexService.Rebuild(ctx, onProgress)
			return err
		})
	if err != nil {
		return fmt.Errorf("index rebuild failed: %w", err)
	}

	if indexJSON {
		return writeJSON(cmd, result)
	}

	st := outputStyles(cmd)
	cmd.Printf("%s %d entries (%d added, %d removed)\n",
		st.Success.Render("Index updated:"), result.Total, result.Added, result.Removed)
	cmd.Printf("  Changed documents: %d\n", result.ChangedDocuments)
	cmd.Printf("  Removed documents: %d\n", result.RemovedDocuments)
	printSkipped(cmd, result.Skipped)
	return nil
}

func runIndexStats(cmd *cobra.Command, _ []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}

	stats, err := indexService.Stats(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to read index: %w", err)
	}

	if indexJSON {
		return writeJSON(cmd, stats)
	}
	printIndexStats(cmd, stats)
	return nil
}

func printIndexStats(cmd *cobra.Command, stats domain.IndexStats) {
	if stats.Entries == 0 {
		cmd.Println("  Index: empty (run 'sercha-kb index')")
		return
	}
	cmd.Printf("  Entries: %d from %d documents\n", stats.Entries, stats.Documents)
	cmd.Printf("  Model: %s (%d dimensions)\n", stats.Model, stats.Dimensions)
	cmd.Printf("  Updated: %s\n", stats.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
}

func printSkipped(cmd *cobra.Command, skipped []domain.SkippedDocument) {
	if len(skipped) == 0 {
		return
	}
	st := outputStyles(cmd)
	cmd.Println(st.Warning.Render(fmt.Sprintf("  Skipped %d documents:", len(skipped))))
	for _, s := range skipped {
		cmd.Printf("    %s: %s\n", s.Path, s.Reason)
	}
}
