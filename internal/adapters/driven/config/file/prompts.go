package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-kb/internal/logger"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// PromptStore loads LLM prompts from user-editable files on disk.
// The directory and default files are created on first Load, not in the
// constructor. A file whose format verbs differ from the default's is
// ignored in favour of the default.
type PromptStore struct {
	promptDir string
	initOnce  sync.Once
	initErr   error

	mu    sync.Mutex
	cache map[string]string
}

// defaultPrompts seeds the prompt directory and backs missing files.
var defaultPrompts = map[string]string{
	driven.PromptClusterSummary: `You compress notes into a knowledge base.
The following excerpts all belong to the topic %q.
Write a dense summary of 3 to 5 sentences covering the key facts, decisions and open items.
Return ONLY the summary.`,

	driven.PromptOverview: `You compress notes into a knowledge base.
Given the topic summaries below, write a short overview of the whole knowledge base:
what it covers and how the topics relate. Return ONLY the overview.`,
}

const promptReadme = `# Knowledge base prompts

These prompts drive summarisation during ` + "`sercha-kb compress`" + `.

- ` + "`cluster_summary.txt`" + ` summarises one topic cluster. Keep exactly one ` + "`%q`" + ` for the topic label.
- ` + "`overview.txt`" + ` summarises the whole pack from its topic summaries. It takes no placeholders.

Edits apply on the next compression. Delete a file to restore its default.
`

// NewPromptStore creates a new file-based prompt store.
// If promptDir is empty, defaults to ~/.sercha-kb/prompts/.
func NewPromptStore(promptDir string) (*PromptStore, error) {
	if promptDir == "" {
		dir, err := DefaultDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		promptDir = filepath.Join(dir, "prompts")
	}

	return &PromptStore{
		promptDir: promptDir,
		cache:     make(map[string]string),
	}, nil
}

// Load returns the prompt template for name, preferring the file on disk.
// Known prompts always resolve: unreadable or invalid files fall back to
// the built-in default. Unknown names without a file are an error.
func (s *PromptStore) Load(name string) (string, error) {
	s.initOnce.Do(s.initialise)

	s.mu.Lock()
	defer s.mu.Unlock()

	if prompt, ok := s.cache[name]; ok {
		return prompt, nil
	}

	fallback, known := defaultPrompts[name]
	if s.initErr != nil {
		if known {
			return fallback, nil
		}
		return "", fmt.Errorf("prompt store init failed: %w", s.initErr)
	}

	prompt, err := s.loadFromFile(name)
	switch {
	case err != nil && !known:
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	case err != nil:
		prompt = fallback
	case known && verbCount(prompt) != verbCount(fallback):
		logger.Warn("prompt %q: expected %d format verbs, using default", name, verbCount(fallback))
		prompt = fallback
	}

	s.cache[name] = prompt
	return prompt, nil
}

// Reload clears the prompt cache, forcing fresh loads from disk.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.promptDir
}

// initialise creates the prompt directory, missing default files and a README.
func (s *PromptStore) initialise() {
	if err := os.MkdirAll(s.promptDir, 0700); err != nil {
		s.initErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	files := map[string]string{"README.md": promptReadme}
	for name, content := range defaultPrompts {
		files[name+".txt"] = content
	}
	for file, content := range files {
		path := filepath.Join(s.promptDir, file)
		if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			s.initErr = fmt.Errorf("create %s: %w", file, err)
			return
		}
	}
}

func (s *PromptStore) loadFromFile(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.promptDir, name+".txt"))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// verbCount counts fmt verbs, ignoring escaped percent signs.
func verbCount(template string) int {
	return strings.Count(strings.ReplaceAll(template, "%%", ""), "%")
}
