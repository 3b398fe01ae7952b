package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

var (
	searchLimit    int
	searchMinScore float64
	searchDomain   string
	searchJSON     bool
	searchOpen     int
	searchCopy     int
)

var searchCmd = &cobra.Command{
	Use:   "search [query...]",
	Short: "Search the vector index",
	Long: `Embeds each query and returns the most similar chunks from the
vector index. With several queries the results are merged, keeping each
chunk once with its best score.

Use --open or --copy with a result number to act on it.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", domain.DefaultTopK, "maximum number of results")
	searchCmd.Flags().Float64Var(&searchMinScore, "min-score", domain.DefaultMinScore, "minimum similarity score")
	searchCmd.Flags().StringVarP(&searchDomain, "domain", "d", "", "only return chunks under this domain tag")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	searchCmd.Flags().IntVar(&searchOpen, "open", 0, "open the source of result N")
	searchCmd.Flags().IntVar(&searchCopy, "copy", 0, "copy the text of result N to the clipboard")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}
	ctx := commandContext(cmd)

	opts := domain.SearchOptions{
		TopK:         searchLimit,
		MinScore:     searchMinScore,
		DomainFilter: searchDomain,
	}

	var results []domain.SearchResult
	var err error
	if len(args) == 1 {
		results, err = indexService.Search(ctx, args[0], opts)
	} else {
		results, err = indexService.MultiSearch(ctx, args, opts)
	}
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return writeJSON(cmd, results)
	}
	outputSearchTable(cmd, results)

	return resultAction(cmd, results)
}

// resultAction runs --open or --copy against the numbered results.
func resultAction(cmd *cobra.Command, results []domain.SearchResult) error {
	if searchOpen == 0 && searchCopy == 0 {
		return nil
	}
	if resultActionService == nil {
		return errors.New("result action service not configured")
	}
	ctx := commandContext(cmd)

	if searchOpen != 0 {
		result, err := pickResult(results, searchOpen)
		if err != nil {
			return err
		}
		if err := resultActionService.OpenDocument(ctx, result); err != nil {
			return fmt.Errorf("open failed: %w", err)
		}
		path, _ := resultActionService.Path(result) //nolint:errcheck // display only
		cmd.Printf("Opened %s\n", path)
	}
	if searchCopy != 0 {
		result, err := pickResult(results, searchCopy)
		if err != nil {
			return err
		}
		if err := resultActionService.CopyToClipboard(ctx, result); err != nil {
			return fmt.Errorf("copy failed: %w", err)
		}
		cmd.Printf("Copied result %d to clipboard\n", searchCopy)
	}
	return nil
}

func pickResult(results []domain.SearchResult, n int) (*domain.SearchResult, error) {
	if n < 1 || n > len(results) {
		return nil, fmt.Errorf("no result %d (have %d)", n, len(results))
	}
	return &results[n-1], nil
}

func outputSearchTable(cmd *cobra.Command, results []domain.SearchResult) {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return
	}

	st := outputStyles(cmd)
	for i := range results {
		r := &results[i]
		location := r.SourcePath
		if r.StartLine > 0 {
			location += ":" + strconv.Itoa(r.StartLine)
		}

		cmd.Printf("  [%d] %s (%s)\n", i+1, r.Heading, st.Score(r.Score))
		cmd.Printf("      %s\n", st.Dim.Render(location))
		if snippet := snippetOf(r.Text, 160); snippet != "" {
			cmd.Printf("      %s\n", snippet)
		}
		cmd.Println()
	}
}

// snippetOf collapses whitespace and truncates to limit runes.
func snippetOf(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
