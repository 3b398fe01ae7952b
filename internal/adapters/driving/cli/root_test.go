package cli

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

func TestRootCmd_GlobalFlags(t *testing.T) {
	for _, name := range []string{"verbose", "root", "data-dir"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), "missing --%s", name)
	}
	assert.Equal(t, "v", rootCmd.PersistentFlags().Lookup("verbose").Shorthand)
}

func TestRootCmd_Subcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"compress", "index", "search", "retrieve", "status", "watch", "settings", "mcp", "version"} {
		assert.True(t, names[want], "missing command %q", want)
	}
}

func TestSetup_UsesFactory(t *testing.T) {
	var got Options
	calls := 0
	SetFactory(func(_ context.Context, opts Options) (*Services, error) {
		calls++
		got = opts
		return &Services{Index: &mockIndexService{stats: domain.IndexStats{}}}, nil
	})
	t.Cleanup(func() {
		SetFactory(nil)
		SetServices(nil)
		ready = false
	})

	_, err := executeCommand(t, "--root", "/notes", "--data-dir", "/tmp/kb", "index", "stats")

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, Options{Root: "/notes", DataDir: "/tmp/kb"}, got)

	// Services are built once.
	_, err = executeCommand(t, "index", "stats")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestSetup_SkipsFactoryForVersion(t *testing.T) {
	SetFactory(func(_ context.Context, _ Options) (*Services, error) {
		return nil, errors.New("should not be called")
	})
	t.Cleanup(func() { SetFactory(nil) })

	out, err := executeCommand(t, "version")

	require.NoError(t, err)
	assert.Contains(t, out, "sercha-kb version")
}

func TestSetup_FactoryError(t *testing.T) {
	SetFactory(func(_ context.Context, _ Options) (*Services, error) {
		return nil, errors.New("no database")
	})
	t.Cleanup(func() {
		SetFactory(nil)
		ready = false
	})

	_, err := executeCommand(t, "status")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "initialising: no database")
}

func TestErrorHint(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains string
	}{
		{"embedding", fmt.Errorf("compress: %w", domain.ErrEmbeddingUnavailable), "settings embedding"},
		{"no corpus", domain.ErrNoCorpus, "corpus.root"},
		{"rebuild running", domain.ErrRebuildInProgress, "try again"},
		{"other", errors.New("boom"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hint := errorHint(tt.err)
			if tt.contains == "" {
				assert.Empty(t, hint)
				return
			}
			assert.Contains(t, hint, tt.contains)
		})
	}
}

func TestCommands_WithoutServices(t *testing.T) {
	SetServices(nil)
	t.Cleanup(func() { ready = false })

	tests := []struct {
		args []string
		msg  string
	}{
		{[]string{"compress"}, "compression service not configured"},
		{[]string{"index"}, "index service not configured"},
		{[]string{"search", "q"}, "index service not configured"},
		{[]string{"retrieve", "q"}, "retrieval service not configured"},
		{[]string{"status"}, "services not configured"},
		{[]string{"watch"}, "scheduler not configured"},
		{[]string{"settings"}, "settings service not configured"},
		{[]string{"mcp", "serve"}, "index service not configured"},
	}

	for _, tt := range tests {
		t.Run(tt.args[0], func(t *testing.T) {
			_, err := executeCommand(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}
