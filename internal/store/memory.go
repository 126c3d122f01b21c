package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"sharedink/internal/state"
)

// Memory is an in-process canvas store. The hosting peer runs one and serves
// it to the LAN; tests use it as a drop-in store.
type Memory struct {
	mu   sync.RWMutex
	docs map[string]*state.Document
	hub  *hub
	log  *slog.Logger
}

// NewMemory creates an empty in-memory store.
func NewMemory(logger *slog.Logger) *Memory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Memory{
		docs: make(map[string]*state.Document),
		hub:  newHub(),
		log:  logger,
	}
}

// Load returns a copy of the canvas document, or an empty document when the
// canvas has never been written to.
func (m *Memory) Load(ctx context.Context, canvasID string) (state.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if doc, ok := m.docs[canvasID]; ok {
		return doc.Clone(), nil
	}
	return state.NewDocument(canvasID), nil
}

// SaveStroke appends one stroke. Saving a stroke id that is already present
// is a no-op: the version does not move and watchers are not notified.
func (m *Memory) SaveStroke(ctx context.Context, canvasID string, s state.Stroke) error {
	m.mu.Lock()
	doc := m.get(canvasID)
	for _, existing := range doc.Strokes {
		if existing.ID == s.ID {
			m.mu.Unlock()
			return nil
		}
	}
	if err := doc.AddStroke(s.Clone()); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("save stroke %s: %w", s.ID, err)
	}
	m.hub.broadcast(m.bump(doc))
	m.mu.Unlock()
	return nil
}

// RemoveStroke removes a stroke by id; absent ids are a silent no-op.
func (m *Memory) RemoveStroke(ctx context.Context, canvasID, strokeID string) error {
	m.mu.Lock()
	doc := m.get(canvasID)
	if !doc.RemoveStroke(strokeID) {
		m.mu.Unlock()
		return nil
	}
	m.hub.broadcast(m.bump(doc))
	m.mu.Unlock()
	return nil
}

// Clear removes every stroke from the canvas.
func (m *Memory) Clear(ctx context.Context, canvasID string) error {
	m.mu.Lock()
	doc := m.get(canvasID)
	doc.Clear()
	m.hub.broadcast(m.bump(doc))
	m.mu.Unlock()
	return nil
}

// Watch emits the current document immediately, then a full snapshot after
// every accepted mutation, until ctx is cancelled.
func (m *Memory) Watch(ctx context.Context, canvasID string) (<-chan state.Document, error) {
	m.mu.RLock()
	var current state.Document
	if doc, ok := m.docs[canvasID]; ok {
		current = doc.Clone()
	} else {
		current = state.NewDocument(canvasID)
	}
	m.mu.RUnlock()

	return m.hub.subscribe(ctx, canvasID, current), nil
}

// get returns the live document for a canvas, creating it on first touch.
// Callers must hold m.mu.
func (m *Memory) get(canvasID string) *state.Document {
	doc, ok := m.docs[canvasID]
	if !ok {
		d := state.NewDocument(canvasID)
		doc = &d
		m.docs[canvasID] = doc
	}
	return doc
}

// bump advances the version after an accepted mutation and returns the
// snapshot to broadcast. Broadcasting happens under m.mu so watchers always
// see snapshots in version order. Callers must hold m.mu.
func (m *Memory) bump(doc *state.Document) state.Document {
	doc.Version++
	doc.LastUpdated = time.Now()
	return doc.Clone()
}
