package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/sercha-kb/internal/adapters/driving/tui"
	"github.com/custodia-labs/sercha-kb/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// outputStyles colours output on a terminal and leaves pipes plain.
func outputStyles(cmd *cobra.Command) *styles.Styles {
	if isTerminal(cmd.OutOrStdout()) {
		return styles.DefaultStyles()
	}
	return styles.PlainStyles()
}

// commandContext returns the command's context or Background.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// runTask runs task behind the progress view on a terminal, or with one
// line per progress change otherwise. quiet suppresses progress output.
func runTask(cmd *cobra.Command, title string, phases []domain.Phase, quiet bool, task tui.Task) error {
	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()

	switch {
	case quiet:
		return task(ctx, nil)
	case isTerminal(out):
		return tui.RunProgress(ctx, out, title, phases, task)
	default:
		return task(ctx, tui.LineReporter(cmd.ErrOrStderr()))
	}
}

// writeJSON prints v indented.
func writeJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
