// Package filesystem reads the corpus from a local directory tree.
package filesystem

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
)

// MaxFileSize is the largest file read into the corpus.
const MaxFileSize = 4 << 20

// Skip reasons reported for unusable files.
const (
	ReasonTooLarge   = "file too large"
	ReasonNotText    = "not UTF-8 text"
	ReasonUnreadable = "unreadable"
)

var (
	_ driven.DocumentProvider = (*Provider)(nil)
	_ driven.ChangeNotifier   = (*Provider)(nil)
)

// Provider serves text files under a root directory. Hidden files and
// directories are ignored. Only files with a listed extension are read.
type Provider struct {
	root       string
	extensions []string

	mu       sync.Mutex
	closed   bool
	watchers []*fsnotify.Watcher
}

// New creates a provider for root. Extensions are matched case-insensitively;
// an empty list uses domain.DefaultExtensions.
func New(root string, extensions []string) *Provider {
	if len(extensions) == 0 {
		extensions = domain.DefaultExtensions()
	}
	normalised := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		normalised = append(normalised, ext)
	}
	return &Provider{root: root, extensions: normalised}
}

// Root returns the corpus root directory.
func (p *Provider) Root() string {
	return p.root
}

// Documents walks the root and returns documents sorted by path.
// A missing or unreadable root is an error; a bad file is skipped.
func (p *Provider) Documents(ctx context.Context) ([]domain.Document, []domain.SkippedDocument, error) {
	info, err := os.Stat(p.root)
	if err != nil {
		return nil, nil, fmt.Errorf("root path error: %w", err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("root path error: %s is not a directory", p.root)
	}

	var docs []domain.Document
	var skipped []domain.SkippedDocument

	err = filepath.WalkDir(p.root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, relErr := filepath.Rel(p.root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if walkErr != nil {
			if path == p.root {
				return walkErr
			}
			skipped = append(skipped, domain.SkippedDocument{Path: rel, Reason: ReasonUnreadable})
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if rel != "." && isHidden(d.Name()) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() || !p.wanted(path) {
			return nil
		}

		doc, reason := readDocument(path, rel)
		if reason != "" {
			skipped = append(skipped, domain.SkippedDocument{Path: rel, Reason: reason})
			return nil
		}
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("walk %s: %w", p.root, err)
	}

	slices.SortFunc(docs, func(a, b domain.Document) int { return strings.Compare(a.Path, b.Path) })
	return docs, skipped, nil
}

// wanted reports whether path has one of the provider's extensions.
func (p *Provider) wanted(path string) bool {
	return slices.Contains(p.extensions, strings.ToLower(filepath.Ext(path)))
}

// readDocument loads one file. A non-empty reason means it was skipped.
func readDocument(path, rel string) (domain.Document, string) {
	info, err := os.Stat(path)
	if err != nil {
		return domain.Document{}, ReasonUnreadable
	}
	if info.Size() > MaxFileSize {
		return domain.Document{}, ReasonTooLarge
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Document{}, ReasonUnreadable
	}
	if !utf8.Valid(data) || bytes.IndexByte(data, 0) >= 0 {
		return domain.Document{}, ReasonNotText
	}

	content := normaliseText(data)
	return domain.Document{
		Path:        rel,
		Content:     content,
		Fingerprint: domain.Fingerprint(content),
	}, ""
}

// normaliseText drops a UTF-8 byte order mark and converts CRLF and CR
// line endings to LF so line numbers and fingerprints are platform neutral.
func normaliseText(data []byte) string {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}

// isHidden reports whether a file or directory name starts with a dot.
// "." and ".." are not hidden.
func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

// isHiddenPath reports whether any element of a slash or OS path is hidden.
func isHiddenPath(path string) bool {
	for _, part := range strings.FieldsFunc(filepath.ToSlash(path), func(r rune) bool { return r == '/' }) {
		if isHidden(part) {
			return true
		}
	}
	return false
}

// Close stops every watcher. It is safe to call more than once.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	var errs []error
	for _, w := range p.watchers {
		errs = append(errs, w.Close())
	}
	p.watchers = nil
	return errors.Join(errs...)
}
