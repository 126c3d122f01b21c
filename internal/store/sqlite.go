package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"sharedink/internal/state"
)

// SQLite is a durable canvas store. Strokes are stored one row each, keyed
// by (canvas_id, stroke_id), with the append order captured by the rowid so
// documents load back in the order they were drawn.
type SQLite struct {
	db  *sql.DB
	hub *hub
	log *slog.Logger
}

// OpenSQLite creates or opens the store at the given path.
func OpenSQLite(path string, logger *slog.Logger) (*SQLite, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}

	s := &SQLite{db: db, hub: newHub(), log: logger}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS canvases (
		id TEXT PRIMARY KEY,
		version INTEGER NOT NULL DEFAULT 0,
		last_updated DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS strokes (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		canvas_id TEXT NOT NULL,
		stroke_id TEXT NOT NULL,
		data TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_strokes_canvas_stroke ON strokes(canvas_id, stroke_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Load returns the canvas document in append order, or an empty document for
// an unknown canvas.
func (s *SQLite) Load(ctx context.Context, canvasID string) (state.Document, error) {
	doc := state.NewDocument(canvasID)

	err := s.db.QueryRowContext(ctx,
		`SELECT version, last_updated FROM canvases WHERE id = ?`, canvasID).
		Scan(&doc.Version, &doc.LastUpdated)
	if err == sql.ErrNoRows {
		return doc, nil
	}
	if err != nil {
		return state.Document{}, fmt.Errorf("load canvas %s: %w", canvasID, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM strokes WHERE canvas_id = ? ORDER BY seq`, canvasID)
	if err != nil {
		return state.Document{}, fmt.Errorf("load strokes for %s: %w", canvasID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return state.Document{}, fmt.Errorf("scan stroke: %w", err)
		}
		var st state.Stroke
		if err := json.Unmarshal(data, &st); err != nil {
			return state.Document{}, fmt.Errorf("decode stroke: %w", err)
		}
		doc.Strokes = append(doc.Strokes, st)
	}
	if err := rows.Err(); err != nil {
		return state.Document{}, fmt.Errorf("iterate strokes: %w", err)
	}
	return doc, nil
}

// SaveStroke appends one stroke durably. Idempotent on stroke id: re-saving
// an existing id changes nothing and notifies nobody.
func (s *SQLite) SaveStroke(ctx context.Context, canvasID string, st state.Stroke) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode stroke %s: %w", st.ID, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save stroke %s: %w", st.ID, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO strokes (canvas_id, stroke_id, data) VALUES (?, ?, ?)`,
		canvasID, st.ID, string(data))
	if err != nil {
		return fmt.Errorf("insert stroke %s: %w", st.ID, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		// Already saved: idempotent success, even on a full canvas.
		return tx.Commit()
	}

	// Capacity only binds genuinely new strokes, so it is checked after the
	// insert; the deferred rollback undoes the row on overflow.
	var count int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM strokes WHERE canvas_id = ?`, canvasID).Scan(&count); err != nil {
		return fmt.Errorf("count strokes: %w", err)
	}
	if count > state.MaxStrokes {
		return fmt.Errorf("save stroke %s: %w", st.ID, state.ErrCapacityExceeded)
	}

	if err := s.bump(ctx, tx, canvasID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit stroke %s: %w", st.ID, err)
	}

	s.notify(ctx, canvasID)
	return nil
}

// RemoveStroke deletes a stroke by id; absent ids are a silent no-op.
func (s *SQLite) RemoveStroke(ctx context.Context, canvasID, strokeID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("remove stroke %s: %w", strokeID, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM strokes WHERE canvas_id = ? AND stroke_id = ?`, canvasID, strokeID)
	if err != nil {
		return fmt.Errorf("delete stroke %s: %w", strokeID, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return nil
	}

	if err := s.bump(ctx, tx, canvasID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit removal of %s: %w", strokeID, err)
	}

	s.notify(ctx, canvasID)
	return nil
}

// Clear removes every stroke of the canvas durably.
func (s *SQLite) Clear(ctx context.Context, canvasID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("clear canvas %s: %w", canvasID, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM strokes WHERE canvas_id = ?`, canvasID); err != nil {
		return fmt.Errorf("clear canvas %s: %w", canvasID, err)
	}
	if err := s.bump(ctx, tx, canvasID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit clear of %s: %w", canvasID, err)
	}

	s.notify(ctx, canvasID)
	return nil
}

// Watch emits the current document immediately, then after every accepted
// mutation, until ctx is cancelled.
func (s *SQLite) Watch(ctx context.Context, canvasID string) (<-chan state.Document, error) {
	current, err := s.Load(ctx, canvasID)
	if err != nil {
		return nil, err
	}
	return s.hub.subscribe(ctx, canvasID, current), nil
}

// bump advances the canvas version row inside the mutation's transaction.
func (s *SQLite) bump(ctx context.Context, tx *sql.Tx, canvasID string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO canvases (id, version, last_updated) VALUES (?, 1, ?)
		ON CONFLICT(id) DO UPDATE SET version = version + 1, last_updated = excluded.last_updated`,
		canvasID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("bump version for %s: %w", canvasID, err)
	}
	return nil
}

// notify reloads the document and fans it out to watchers. A load failure
// here only costs watchers one notification; the mutation itself is already
// committed.
func (s *SQLite) notify(ctx context.Context, canvasID string) {
	doc, err := s.Load(ctx, canvasID)
	if err != nil {
		s.log.Error("reload after mutation failed", "canvas", canvasID, "error", err)
		return
	}
	s.hub.broadcast(doc)
}
