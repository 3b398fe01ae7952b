package services

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driving"
)

// Operating system identifiers.
const (
	osDarwin  = "darwin"
	osLinux   = "linux"
	osWindows = "windows"
)

// Ensure ResultActionService implements the interface.
var _ driving.ResultActionService = (*ResultActionService)(nil)

var errNilResult = errors.New("result is nil")

// ResultActionService provides actions on search results.
type ResultActionService struct {
	root string
	run  func(cmd *exec.Cmd) error
}

// NewResultActionService creates a result action service for files under root.
func NewResultActionService(root string) *ResultActionService {
	return &ResultActionService{
		root: root,
		run:  func(cmd *exec.Cmd) error { return cmd.Run() },
	}
}

// CopyToClipboard copies the result's text to the system clipboard.
func (s *ResultActionService) CopyToClipboard(_ context.Context, result *domain.SearchResult) error {
	if result == nil {
		return errNilResult
	}

	cmd, err := clipboardCommand()
	if err != nil {
		return err
	}
	cmd.Stdin = strings.NewReader(result.Text)
	return s.run(cmd)
}

// OpenDocument opens the result's source file in the default application.
func (s *ResultActionService) OpenDocument(_ context.Context, result *domain.SearchResult) error {
	path, err := s.Path(result)
	if err != nil {
		return err
	}

	cmd, err := openCommand(path)
	if err != nil {
		return err
	}
	return s.run(cmd)
}

// Path resolves the result's source path against the corpus root.
// Paths escaping the root are rejected.
func (s *ResultActionService) Path(result *domain.SearchResult) (string, error) {
	if result == nil {
		return "", errNilResult
	}
	root, err := filepath.Abs(s.root)
	if err != nil {
		return "", fmt.Errorf("resolve root: %w", err)
	}
	path := filepath.Join(root, filepath.FromSlash(result.SourcePath))
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s is outside the corpus", domain.ErrInvalidInput, result.SourcePath)
	}
	return path, nil
}

// clipboardCommand returns the OS-specific clipboard writer.
func clipboardCommand() (*exec.Cmd, error) {
	switch runtime.GOOS {
	case osDarwin:
		return exec.Command("pbcopy"), nil
	case osLinux:
		// Try xclip first, fall back to xsel
		if _, err := exec.LookPath("xclip"); err == nil {
			return exec.Command("xclip", "-selection", "clipboard"), nil
		}
		if _, err := exec.LookPath("xsel"); err == nil {
			return exec.Command("xsel", "--clipboard", "--input"), nil
		}
		return nil, fmt.Errorf("no clipboard utility found (install xclip or xsel)")
	case osWindows:
		return exec.Command("cmd", "/c", "clip"), nil
	default:
		return nil, fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

// openCommand returns the OS-specific command opening path.
func openCommand(path string) (*exec.Cmd, error) {
	switch runtime.GOOS {
	case osDarwin:
		return exec.Command("open", path), nil
	case osLinux:
		return exec.Command("xdg-open", path), nil
	case osWindows:
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", path), nil
	default:
		return nil, fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}
