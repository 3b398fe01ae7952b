package services

import (
	"context"
	"io"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

func TestResultActionService_Path(t *testing.T) {
	root := t.TempDir()
	service := NewResultActionService(root)

	path, err := service.Path(&domain.SearchResult{SourcePath: "health/sleep.md"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "health", "sleep.md"), path)

	_, err = service.Path(&domain.SearchResult{SourcePath: "../outside.md"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = service.Path(nil)
	assert.Error(t, err)
}

func TestResultActionService_OpenDocument(t *testing.T) {
	if runtime.GOOS != osLinux && runtime.GOOS != osDarwin {
		t.Skip("open command differs on this platform")
	}
	root := t.TempDir()
	service := NewResultActionService(root)
	var got []string
	service.run = func(cmd *exec.Cmd) error {
		got = cmd.Args
		return nil
	}

	err := service.OpenDocument(context.Background(), &domain.SearchResult{SourcePath: "a.md"})

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, filepath.Join(root, "a.md"), got[1])
}

func TestResultActionService_CopyToClipboard(t *testing.T) {
	if _, err := clipboardCommand(); err != nil {
		t.Skip("no clipboard utility")
	}
	service := NewResultActionService(t.TempDir())
	var copied string
	service.run = func(cmd *exec.Cmd) error {
		data, err := io.ReadAll(cmd.Stdin)
		copied = string(data)
		return err
	}

	err := service.CopyToClipboard(context.Background(), &domain.SearchResult{Text: "remember the milk"})

	require.NoError(t, err)
	assert.Equal(t, "remember the milk", copied)
	assert.Error(t, service.CopyToClipboard(context.Background(), nil))
}
