// Package sync keeps a local drawing session eventually consistent with a
// remote copy of the same canvas, without feedback loops and without tearing
// an in-progress gesture.
package sync

import (
	"context"

	"sharedink/internal/state"
)

// Store is the remote persistence collaborator. Implementations serialize
// and merge concurrent writers themselves; this package only pushes local
// mutations out and folds remote snapshots back in.
type Store interface {
	// Load returns the current document, or an empty one when the canvas
	// does not exist yet.
	Load(ctx context.Context, canvasID string) (state.Document, error)

	// SaveStroke appends one stroke durably. Idempotent on stroke id.
	SaveStroke(ctx context.Context, canvasID string, s state.Stroke) error

	// RemoveStroke removes a stroke by id. No-op when absent.
	RemoveStroke(ctx context.Context, canvasID, strokeID string) error

	// Clear removes every stroke durably.
	Clear(ctx context.Context, canvasID string) error

	// Watch emits the current document immediately on subscribe and again
	// after every durable mutation by any writer. Every delivery is a FULL
	// snapshot, never a delta: the reconciler drops deliveries that arrive
	// mid-gesture and relies on the next one to catch up, which is only safe
	// against whole documents. The feed stays alive across individual
	// delivery errors; the channel closes when ctx is cancelled or the feed
	// is irrecoverably broken.
	Watch(ctx context.Context, canvasID string) (<-chan state.Document, error)
}
