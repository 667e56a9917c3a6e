package snapshot

import (
	"context"
	"sync"
)

// Writer saves snapshots on its own goroutine so callers never wait on I/O.
// Snapshots are written in the order they were queued; if several arrive
// while a save is in flight, only the newest is written next.
type Writer struct {
	store Store
	logf  func(format string, args ...any)

	mu      sync.Mutex
	pending *Snapshot

	wake chan struct{}
}

func NewWriter(store Store, logf func(format string, args ...any)) *Writer {
	if logf == nil {
		logf = func(string, ...any) {}
	}

	return &Writer{
		store: store,
		logf:  logf,
		wake:  make(chan struct{}, 1),
	}
}

// Enqueue copies s and schedules it for writing.
func (w *Writer) Enqueue(s *Snapshot) {
	c := s.Clone()

	w.mu.Lock()
	w.pending = c
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Run writes queued snapshots until ctx is cancelled, then flushes whatever
// is still pending.
func (w *Writer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.flush(context.WithoutCancel(ctx))
			return nil
		case <-w.wake:
			w.flush(ctx)
		}
	}
}

func (w *Writer) flush(ctx context.Context) {
	w.mu.Lock()
	s := w.pending
	w.pending = nil
	w.mu.Unlock()

	if s == nil {
		return
	}

	if err := w.store.Save(ctx, s); err != nil {
		w.logf("STORE: Failed to save snapshot: %v", err)
		return
	}

	w.logf("STORE: Saved snapshot for game %q", s.CurrentGameID)
}
