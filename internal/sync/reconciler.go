package sync

import (
	"context"
	"fmt"
	"log/slog"
	stdsync "sync"
	"sync/atomic"

	"sharedink/internal/state"
)

// outboxSize bounds the queue of pending remote writes. When the network is
// slower than the pen, the oldest pending write is dropped rather than
// blocking the session.
const outboxSize = 64

type opKind int

const (
	opSave opKind = iota
	opRemove
	opClear
)

func (k opKind) String() string {
	switch k {
	case opSave:
		return "save"
	case opRemove:
		return "remove"
	case opClear:
		return "clear"
	}
	return "unknown"
}

type pendingWrite struct {
	kind     opKind
	stroke   state.Stroke
	strokeID string
}

// Reconciler mediates between a Session and a Store. Local mutations are
// applied to the session first (optimistic) and written out asynchronously,
// best effort: a failed write is logged, never retried, and never rolls the
// session back. Remote snapshots from the store's watch feed replace the
// local document wholesale, unless a stroke is open or another snapshot is
// already being applied.
type Reconciler struct {
	store    Store
	session  *state.Session
	canvasID string
	log      *slog.Logger

	// applying prevents the feedback loop where applying a snapshot could
	// surface as a fresh mutation and re-enter the reconciler. A boolean flag
	// is enough in a strictly single-threaded host; goroutines are not that,
	// so it is a compare-and-swap.
	applying atomic.Bool

	outbox chan pendingWrite
	cancel context.CancelFunc
	wg     stdsync.WaitGroup
}

// NewReconciler wires a session to a store for one canvas. A nil logger
// falls back to slog.Default.
func NewReconciler(store Store, session *state.Session, canvasID string, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		store:    store,
		session:  session,
		canvasID: canvasID,
		log:      logger,
		outbox:   make(chan pendingWrite, outboxSize),
	}
}

// Start loads the current remote document into the session, subscribes to
// the change feed, and begins draining the outbox. It returns an error only
// when the initial load or subscribe fails; after that the reconciler runs
// until Close or ctx cancellation.
func (r *Reconciler) Start(ctx context.Context) error {
	// The subscription must live under the reconciler's own cancellable
	// context so that Close actually unsubscribes from the feed.
	ctx, r.cancel = context.WithCancel(ctx)

	doc, err := r.store.Load(ctx, r.canvasID)
	if err != nil {
		r.cancel()
		return fmt.Errorf("load canvas %s: %w", r.canvasID, err)
	}
	r.session.ReplaceIfIdle(doc)

	feed, err := r.store.Watch(ctx, r.canvasID)
	if err != nil {
		r.cancel()
		return fmt.Errorf("watch canvas %s: %w", r.canvasID, err)
	}

	r.wg.Add(2)
	go func() {
		defer r.wg.Done()
		r.watchLoop(ctx, feed)
	}()
	go func() {
		defer r.wg.Done()
		r.drainOutbox(ctx)
	}()
	return nil
}

// Close unsubscribes from the feed and stops the write drain. In-flight
// writes that have not completed are abandoned; the store is expected to
// either finish them or let a future session retry.
func (r *Reconciler) Close() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}

// StrokeSaved queues a durable append of a locally finalized or redone
// stroke. Fire and forget: the session is already updated.
func (r *Reconciler) StrokeSaved(s state.Stroke) {
	r.enqueue(pendingWrite{kind: opSave, stroke: s})
}

// StrokeRemoved queues the durable removal of a locally undone stroke.
func (r *Reconciler) StrokeRemoved(strokeID string) {
	r.enqueue(pendingWrite{kind: opRemove, strokeID: strokeID})
}

// Cleared queues the durable removal of every stroke.
func (r *Reconciler) Cleared() {
	r.enqueue(pendingWrite{kind: opClear})
}

func (r *Reconciler) enqueue(w pendingWrite) {
	for {
		select {
		case r.outbox <- w:
			return
		default:
		}
		select {
		case dropped := <-r.outbox:
			r.log.Warn("outbox full, dropping oldest pending write",
				"canvas", r.canvasID, "op", dropped.kind.String())
		default:
		}
	}
}

func (r *Reconciler) drainOutbox(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case w := <-r.outbox:
			r.write(ctx, w)
		}
	}
}

func (r *Reconciler) write(ctx context.Context, w pendingWrite) {
	var err error
	switch w.kind {
	case opSave:
		err = r.store.SaveStroke(ctx, r.canvasID, w.stroke)
	case opRemove:
		err = r.store.RemoveStroke(ctx, r.canvasID, w.strokeID)
	case opClear:
		err = r.store.Clear(ctx, r.canvasID)
	}
	if err != nil {
		// Logged and swallowed: the local session stays authoritative and is
		// not rolled back.
		r.log.Error("remote write failed",
			"canvas", r.canvasID, "op", w.kind.String(), "error", err)
	}
}

func (r *Reconciler) watchLoop(ctx context.Context, feed <-chan state.Document) {
	for {
		select {
		case <-ctx.Done():
			return
		case doc, ok := <-feed:
			if !ok {
				r.log.Warn("canvas feed closed", "canvas", r.canvasID)
				return
			}
			r.onRemoteSnapshot(doc)
		}
	}
}

// onRemoteSnapshot applies one full remote snapshot. A snapshot arriving
// while another is being applied is ignored outright; one arriving while a
// stroke is open is dropped, not buffered — the next feed delivery
// supersedes it.
func (r *Reconciler) onRemoteSnapshot(doc state.Document) {
	if !r.applying.CompareAndSwap(false, true) {
		return
	}
	defer r.applying.Store(false)

	if !r.session.ReplaceIfIdle(doc) {
		r.log.Debug("dropped remote snapshot mid-gesture",
			"canvas", r.canvasID, "version", doc.Version)
	}
}
