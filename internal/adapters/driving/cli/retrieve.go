package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

var retrieveJSON bool

var retrieveCmd = &cobra.Command{
	Use:   "retrieve [question]",
	Short: "Answer context for a question from domains and raw chunks",
	Long: `Matches the question against the compressed domains, then searches
the vector index with a budget sized by how well those domains cover it.
Raw chunks that repeat a matched domain are dropped.

Without a knowledge pack, retrieval falls back to plain search.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRetrieve,
}

func init() {
	retrieveCmd.Flags().BoolVar(&retrieveJSON, "json", false, "output plan and results as JSON")
	rootCmd.AddCommand(retrieveCmd)
}

// retrieval is the JSON shape of a retrieve run.
type retrieval struct {
	Plan    domain.RetrievalPlan  `json:"plan"`
	Results []domain.SearchResult `json:"results"`
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}
	ctx := commandContext(cmd)
	query := strings.Join(args, " ")

	plan, err := retrievalService.Plan(ctx, query)
	if err != nil {
		return fmt.Errorf("planning failed: %w", err)
	}
	results, err := retrievalService.Retrieve(ctx, plan)
	if err != nil {
		return fmt.Errorf("retrieval failed: %w", err)
	}

	if retrieveJSON {
		return writeJSON(cmd, retrieval{Plan: plan, Results: results})
	}

	st := outputStyles(cmd)
	if len(plan.DomainMatches) > 0 {
		cmd.Println(st.Title.Render("Domains"))
		for _, m := range plan.DomainMatches {
			cmd.Printf("%s (%s)\n", st.Domain.Render(m.Label), st.Score(m.Similarity))
			if m.Summary != "" {
				cmd.Println(st.Summary.Render(m.Summary))
			}
			for _, fact := range m.Facts {
				cmd.Println(st.Fact.Render("- " + fact))
			}
			cmd.Println()
		}
	}

	cmd.Println(st.Title.Render(fmt.Sprintf("Chunks (budget %d)", plan.Budget)))
	outputSearchTable(cmd, results)
	return nil
}
