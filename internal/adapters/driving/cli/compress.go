package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

var (
	compressJSON  bool
	compressForce bool
)

var compressCmd = &cobra.Command{
	Use:   "compress",
	Short: "Build the knowledge pack",
	Long: `Runs the compression pipeline over the corpus: chunk, embed, remove
near-duplicates, cluster into domains, then summarise each domain and the
whole corpus. The new pack replaces the previous one only on success.

Unless --force is given, compression is skipped when no document changed
since the last pack.`,
	Args: cobra.NoArgs,
	RunE: runCompress,
}

func init() {
	compressCmd.Flags().BoolVar(&compressJSON, "json", false, "print the pack as JSON")
	compressCmd.Flags().BoolVarP(&compressForce, "force", "f", false, "compress even when the corpus is unchanged")
	rootCmd.AddCommand(compressCmd)
}

func runCompress(cmd *cobra.Command, _ []string) error {
	if compressionService == nil {
		return errors.New("compression service not configured")
	}
	ctx := commandContext(cmd)

	if !compressForce {
		stale, err := compressionService.IsStale(ctx)
		if err != nil {
			return fmt.Errorf("checking pack: %w", err)
		}
		if !stale {
			pack, err := compressionService.Pack(ctx)
			switch {
			case err == nil:
				if compressJSON {
					return writeJSON(cmd, pack)
				}
				cmd.Println("Knowledge pack is up to date.")
				printPack(cmd, pack)
				return nil
			case !errors.Is(err, domain.ErrNotFound):
				return fmt.Errorf("loading pack: %w", err)
			}
		}
	}

	var pack *domain.KnowledgePack
	err := runTask(cmd, "Compressing corpus", domain.Phases(), compressJSON,
		func(ctx context.Context, onProgress domain.ProgressFunc) error {
			var err error
			pack, err = compressionService.Compress(ctx, onProgress)
			return err
		})
	if err != nil {
		return fmt.Errorf("compression failed: %w", err)
	}

	if compressJSON {
		return writeJSON(cmd, pack)
	}
	printPack(cmd, pack)
	return nil
}

// printPack renders the overview, stats and every domain.
func printPack(cmd *cobra.Command, pack *domain.KnowledgePack) {
	st := outputStyles(cmd)

	cmd.Println()
	cmd.Println(st.Title.Render("Overview"))
	cmd.Println(st.Summary.Render(pack.Overview))
	cmd.Println()

	s := pack.Stats
	cmd.Println(st.Dim.Render(fmt.Sprintf(
		"%d documents (%d skipped), %d chunks, %d embedded, %d duplicates, %d domains, silhouette %.2f",
		s.Documents, s.Skipped, s.Chunks, s.Embedded, s.Duplicates, s.Clusters, s.Silhouette)))
	cmd.Println()

	for _, d := range pack.Domains {
		cmd.Printf("%s %s\n", st.Domain.Render(d.Label), st.Dim.Render(fmt.Sprintf("(%d chunks)", d.MemberCount)))
		if d.Summary != "" {
			cmd.Println(st.Summary.Render(d.Summary))
		}
		for _, fact := range d.Facts {
			cmd.Println(st.Fact.Render("- " + fact))
		}
		cmd.Println()
	}
}
