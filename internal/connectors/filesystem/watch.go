package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/sercha-kb/internal/logger"
)

// Watch reports corpus changes until ctx is done, then closes the channel.
// Notifications carry no payload and coalesce: a burst of edits yields at
// least one signal. New subdirectories are watched as they appear.
func (p *Provider) Watch(ctx context.Context) (<-chan struct{}, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, errors.New("filesystem: provider is closed")
	}
	p.mu.Unlock()

	info, err := os.Stat(p.root)
	if err != nil {
		return nil, fmt.Errorf("root path error: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root path error: %s is not a directory", p.root)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := p.addTree(watcher, p.root); err != nil {
		watcher.Close()
		return nil, err
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		watcher.Close()
		return nil, errors.New("filesystem: provider is closed")
	}
	p.watchers = append(p.watchers, watcher)
	p.mu.Unlock()

	changes := make(chan struct{}, 1)
	go p.watchLoop(ctx, watcher, changes)
	return changes, nil
}

func (p *Provider) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, changes chan<- struct{}) {
	defer close(changes)
	defer p.release(watcher)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !p.handleFsEvent(watcher, event) {
				continue
			}
			select {
			case changes <- struct{}{}:
			default: // a signal is already pending
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("filesystem: watch error: %v", err)
		}
	}
}

// handleFsEvent reports whether event affects the corpus. Created
// directories are added to the watcher.
func (p *Provider) handleFsEvent(watcher *fsnotify.Watcher, event fsnotify.Event) bool {
	rel, err := filepath.Rel(p.root, event.Name)
	if err != nil || isHiddenPath(rel) {
		return false
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := p.addTree(watcher, event.Name); err != nil {
				logger.Warn("filesystem: %v", err)
			}
			// A directory moved in may already hold documents.
			return true
		}
	}

	// Removed or renamed paths may have been directories, so only
	// extension-less paths and wanted files count.
	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		return p.wanted(event.Name) || filepath.Ext(event.Name) == ""
	}
	return p.wanted(event.Name)
}

// addTree watches dir and every non-hidden directory below it.
func (p *Provider) addTree(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != p.root && isHidden(d.Name()) {
			return fs.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func (p *Provider) release(watcher *fsnotify.Watcher) {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx := slices.Index(p.watchers, watcher)
	if idx < 0 {
		return // already closed by Close
	}
	p.watchers = slices.Delete(p.watchers, idx, idx+1)
	watcher.Close()
}
