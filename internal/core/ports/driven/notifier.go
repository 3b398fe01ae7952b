package driven

import "context"

// ChangeNotifier reports that the corpus may have changed.
// Notifications are hints; consumers confirm changes by fingerprint.
type ChangeNotifier interface {
	// Watch starts watching and returns a channel that receives a value
	// after each burst of changes. The channel is closed when ctx is done.
	Watch(ctx context.Context) (<-chan struct{}, error)
}
