// Package store provides canvas persistence backends: an in-process memory
// store for hosting and tests, and a durable SQLite store. Both honor the
// same contract: watch feeds always carry full document snapshots.
package store

import (
	"context"
	"sync"

	"sharedink/internal/state"
)

// hub fans full-document snapshots out to watchers of each canvas. Watcher
// channels hold a single snapshot: when a watcher lags, the stale snapshot is
// replaced by the newer one, which is safe precisely because deliveries are
// whole documents and never deltas.
type hub struct {
	mu       sync.Mutex
	watchers map[string]map[int]chan state.Document
	nextID   int
}

func newHub() *hub {
	return &hub{watchers: make(map[string]map[int]chan state.Document)}
}

// subscribe registers a watcher for a canvas and delivers current to it
// immediately. The subscription is released and the channel closed when ctx
// is cancelled.
func (h *hub) subscribe(ctx context.Context, canvasID string, current state.Document) <-chan state.Document {
	ch := make(chan state.Document, 1)
	ch <- current

	h.mu.Lock()
	if h.watchers[canvasID] == nil {
		h.watchers[canvasID] = make(map[int]chan state.Document)
	}
	id := h.nextID
	h.nextID++
	h.watchers[canvasID][id] = ch
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.watchers[canvasID], id)
		h.mu.Unlock()
		close(ch)
	}()

	return ch
}

// broadcast delivers a snapshot to every watcher of the canvas, replacing
// any undelivered older snapshot.
func (h *hub) broadcast(doc state.Document) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.watchers[doc.CanvasID] {
		select {
		case ch <- doc:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- doc:
		default:
		}
	}
}
