package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-kb/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

// Scheduler keeps the vector index and knowledge pack fresh in the background.
// It refreshes on a fixed interval and shortly after corpus change
// notifications. It is a pure core service with no external control API.
type Scheduler struct {
	config      domain.SchedulerConfig
	index       driving.IndexService
	compression driving.CompressionService
	notifier    driven.ChangeNotifier
	onResult    func(domain.TaskResult)

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewScheduler creates a scheduler with configuration.
// The compression service and notifier are optional (can be nil).
func NewScheduler(
	config domain.SchedulerConfig,
	index driving.IndexService,
	compression driving.CompressionService,
	notifier driven.ChangeNotifier,
) *Scheduler {
	return &Scheduler{
		config:      config,
		index:       index,
		compression: compression,
		notifier:    notifier,
	}
}

// OnResult registers a callback invoked after every task run.
func (s *Scheduler) OnResult(fn func(domain.TaskResult)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onResult = fn
}

// Start begins the scheduler loop. This method blocks until Stop is called
// or ctx is done. An initial refresh runs immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		close(doneCh)
	}()

	// Cancelling releases the watcher when Stop is called.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var changes <-chan struct{}
	if s.notifier != nil {
		ch, err := s.notifier.Watch(ctx)
		if err != nil {
			logger.Warn("scheduler: watching corpus failed, using interval only: %v", err)
		} else {
			changes = ch
		}
	}

	return s.run(ctx, stopCh, changes)
}

// Stop gracefully shuts down the scheduler and waits for a running refresh.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	doneCh := s.doneCh
	s.mu.Unlock()

	<-doneCh
	return nil
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context, stopCh <-chan struct{}, changes <-chan struct{}) error {
	s.Refresh(ctx)

	var tick <-chan time.Time
	if s.config.Interval > 0 {
		ticker := time.NewTicker(s.config.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	// A nil timer channel blocks until a change arms it.
	var debounce *time.Timer
	var fire <-chan time.Time
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stopCh:
			return nil
		case <-tick:
			s.Refresh(ctx)
		case _, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			logger.Debug("scheduler: corpus changed, refreshing in %s", s.config.Debounce)
			if debounce == nil {
				debounce = time.NewTimer(s.config.Debounce)
			} else {
				debounce.Reset(s.config.Debounce)
			}
			fire = debounce.C
		case <-fire:
			fire = nil
			s.Refresh(ctx)
		}
	}
}

// Refresh rebuilds the index and, when enabled and stale, the knowledge pack.
// Results go to the OnResult callback.
func (s *Scheduler) Refresh(ctx context.Context) {
	s.report(s.runIndexRebuild(ctx))
	if s.config.Compress && s.compression != nil {
		s.report(s.runCompression(ctx))
	}
}

func (s *Scheduler) runIndexRebuild(ctx context.Context) domain.TaskResult {
	result := domain.TaskResult{TaskID: domain.TaskIDIndexRebuild, StartedAt: time.Now()}
	rebuild, err := s.index.Rebuild(ctx, nil)
	result.EndedAt = time.Now()

	switch {
	case errors.Is(err, domain.ErrRebuildInProgress):
		result.Success = true
		result.Skipped = true
	case err != nil:
		result.Error = err.Error()
	default:
		result.Success = true
		result.ItemsProcessed = rebuild.Added
		result.Skipped = rebuild.ChangedDocuments == 0 && rebuild.RemovedDocuments == 0
	}
	return result
}

func (s *Scheduler) runCompression(ctx context.Context) domain.TaskResult {
	result := domain.TaskResult{TaskID: domain.TaskIDCompression, StartedAt: time.Now()}

	stale, err := s.compression.IsStale(ctx)
	if err != nil || !stale {
		result.EndedAt = time.Now()
		result.Success = err == nil
		result.Skipped = err == nil
		if err != nil {
			result.Error = err.Error()
		}
		return result
	}

	pack, err := s.compression.Compress(ctx, nil)
	result.EndedAt = time.Now()
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Success = true
	result.ItemsProcessed = len(pack.Domains)
	return result
}

func (s *Scheduler) report(result domain.TaskResult) {
	if result.Success {
		logger.Debug("scheduler: %s finished in %s (%d items, skipped=%t)",
			result.TaskID, result.Duration(), result.ItemsProcessed, result.Skipped)
	} else {
		logger.Warn("scheduler: %s failed: %s", result.TaskID, result.Error)
	}

	s.mu.Lock()
	fn := s.onResult
	s.mu.Unlock()
	if fn != nil {
		fn(result)
	}
}
