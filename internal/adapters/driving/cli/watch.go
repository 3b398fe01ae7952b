package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/logger"
)

// historyKeep is the number of runs kept per task.
const historyKeep = 50

var (
	watchInterval   time.Duration
	watchDebounce   time.Duration
	watchNoCompress bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the index and knowledge pack fresh",
	Long: `Refreshes the vector index immediately, then whenever documents under
the corpus root change and on a fixed interval. The knowledge pack is
rebuilt when it is stale unless --no-compress is given.

Runs until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	defaults := domain.DefaultSchedulerConfig()
	watchCmd.Flags().DurationVar(&watchInterval, "interval", defaults.Interval, "periodic refresh interval (0 disables)")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", defaults.Debounce, "quiet period after a change before refreshing")
	watchCmd.Flags().BoolVar(&watchNoCompress, "no-compress", false, "only refresh the vector index")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	if newScheduler == nil {
		return errors.New("scheduler not configured")
	}

	scheduler := newScheduler(domain.SchedulerConfig{
		Interval: watchInterval,
		Debounce: watchDebounce,
		Compress: !watchNoCompress,
	})

	ctx := commandContext(cmd)
	st := outputStyles(cmd)
	scheduler.OnResult(func(r domain.TaskResult) {
		recordTaskResult(ctx, r)
		cmd.Printf("%s %s\n", r.TaskID, formatTaskResult(st.Success.Render, st.Error.Render, r))
	})

	cmd.Println("Watching for changes (ctrl+c to stop)")
	err := scheduler.Start(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("scheduler stopped: %w", err)
	}
	return nil
}

// recordTaskResult stores r and trims old runs. History is best effort.
func recordTaskResult(ctx context.Context, r domain.TaskResult) {
	if taskHistory == nil {
		return
	}
	// Record even when ctx was cancelled mid-run.
	ctx = context.WithoutCancel(ctx)
	if err := taskHistory.RecordResult(ctx, &r); err != nil {
		logger.Warn("recording %s result: %v", r.TaskID, err)
		return
	}
	if err := taskHistory.Prune(ctx, historyKeep); err != nil {
		logger.Warn("pruning task history: %v", err)
	}
}
