// Package cli implements the sercha-kb command line with cobra.
//
// Commands reach the core through package-level services set by the
// composition root, either directly with SetServices or lazily through a
// Factory that receives the global flags.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-kb/internal/logger"
)

// version is set at build time with -ldflags "-X ...cli.version=1.2.3".
var version = "dev"

// Options are the global flags handed to the Factory.
type Options struct {
	// Root overrides corpus.root when non-empty.
	Root string

	// DataDir overrides the directory holding config, prompts and kb.db.
	DataDir string

	Verbose bool
}

// Services groups everything the commands drive.
type Services struct {
	Compression  driving.CompressionService
	Index        driving.IndexService
	Retrieval    driving.RetrievalService
	Settings     driving.SettingsService
	ResultAction driving.ResultActionService

	// History is optional; without it status shows no task history.
	History driven.TaskHistoryStore

	// NewScheduler builds a scheduler for watch. Optional.
	NewScheduler func(domain.SchedulerConfig) driving.Scheduler

	// Close releases stores and AI clients. Optional.
	Close func() error
}

// Factory builds Services from the global flags.
type Factory func(ctx context.Context, opts Options) (*Services, error)

var (
	compressionService  driving.CompressionService
	indexService        driving.IndexService
	retrievalService    driving.RetrievalService
	settingsService     driving.SettingsService
	resultActionService driving.ResultActionService
	taskHistory         driven.TaskHistoryStore
	newScheduler        func(domain.SchedulerConfig) driving.Scheduler
	closeServices       func() error

	factory Factory
	ready   bool
)

var (
	verboseFlag bool
	rootFlag    string
	dataDirFlag string
)

var rootCmd = &cobra.Command{
	Use:   "sercha-kb",
	Short: "Compress a document corpus into a searchable knowledge base",
	Long: `sercha-kb splits your notes and documents into chunks, removes
near-duplicates, clusters the rest into topic domains with short summaries
and facts, and keeps a vector index for retrieval.

Retrieval fuses the compressed domains with raw search results, sizing
the raw budget by how well the domains already cover the question.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentPreRunE = setup
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&rootFlag, "root", "", "corpus directory (overrides corpus.root)")
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "directory for config, prompts and the database (default ~/.sercha-kb)")
}

// SetServices installs services directly, bypassing the factory.
func SetServices(s *Services) {
	if s == nil {
		s = &Services{}
	}
	compressionService = s.Compression
	indexService = s.Index
	retrievalService = s.Retrieval
	settingsService = s.Settings
	resultActionService = s.ResultAction
	taskHistory = s.History
	newScheduler = s.NewScheduler
	closeServices = s.Close
	ready = true
}

// SetFactory registers the builder run before any command that needs services.
func SetFactory(f Factory) {
	factory = f
}

// SetVersion overrides the reported version.
func SetVersion(v string) {
	version = v
}

// Execute runs the root command and releases services afterwards.
func Execute(ctx context.Context) error {
	defer func() {
		if closeServices != nil {
			if err := closeServices(); err != nil {
				logger.Warn("closing services: %v", err)
			}
		}
	}()
	rootCmd.SetOut(os.Stdout)
	return rootCmd.ExecuteContext(ctx)
}

// setup applies global flags and builds services once.
func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verboseFlag)

	if factory == nil || !needsServices(cmd) || ready {
		return nil
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := factory(ctx, Options{Root: rootFlag, DataDir: dataDirFlag, Verbose: verboseFlag})
	if err != nil {
		return fmt.Errorf("initialising: %w", err)
	}
	SetServices(s)
	return nil
}

// needsServices is false for commands that run without any store.
func needsServices(cmd *cobra.Command) bool {
	switch cmd {
	case versionCmd, rootCmd:
		return false
	}
	return cmd.Runnable()
}

// errorHint turns well-known failures into a one-line suggestion.
func errorHint(err error) string {
	switch {
	case errors.Is(err, domain.ErrEmbeddingUnavailable):
		return "configure an embedding provider: sercha-kb settings embedding"
	case errors.Is(err, domain.ErrNoCorpus):
		return "point corpus.root at a directory of documents: sercha-kb settings set corpus.root <dir>"
	case errors.Is(err, domain.ErrRebuildInProgress):
		return "another rebuild is running; try again shortly"
	}
	return ""
}

// PrintError writes err and any hint to stderr.
func PrintError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	if hint := errorHint(err); hint != "" {
		fmt.Fprintf(os.Stderr, "Hint: %s\n", hint)
	}
}
