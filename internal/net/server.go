package net

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"sharedink/internal/geometry"
	boardsync "sharedink/internal/sync"
)

// Server serves a canvas store to LAN peers over websockets. Every connected
// peer receives a full snapshot immediately and after each accepted mutation
// by any writer; mutations from peers are applied to the store, whose watch
// feed then fans the new snapshot back out to everyone.
type Server struct {
	store    boardsync.Store
	log      *slog.Logger
	upgrader websocket.Upgrader
}

// NewServer creates a board server over the given store.
func NewServer(store boardsync.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store: store,
		log:   logger,
		upgrader: websocket.Upgrader{
			// LAN tool: peers are whoever can reach the port.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Handler returns the HTTP routes of the board server.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/canvas/{canvasID}/ws", s.handleWS)
	return r
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	canvasID := chi.URLParam(r, "canvasID")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("websocket upgrade failed", "canvas", canvasID, "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	feed, err := s.store.Watch(ctx, canvasID)
	if err != nil {
		s.log.Error("watch failed", "canvas", canvasID, "error", err)
		return
	}

	remote := conn.RemoteAddr().String()
	s.log.Info("peer connected", "canvas", canvasID, "peer", remote)
	defer s.log.Info("peer disconnected", "canvas", canvasID, "peer", remote)

	// Single writer per connection: only this goroutine touches conn writes.
	go func() {
		defer cancel()
		for doc := range feed {
			d := doc
			msg := Message{Type: MessageSnapshot, Document: &d}
			if err := conn.WriteJSON(msg); err != nil {
				s.log.Warn("snapshot send failed", "canvas", canvasID, "peer", remote, "error", err)
				return
			}
		}
	}()

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn("peer read failed", "canvas", canvasID, "peer", remote, "error", err)
			}
			return
		}
		s.apply(ctx, canvasID, remote, msg)
	}
}

// apply runs one peer mutation against the store. Store errors cost the peer
// that one mutation, not the connection.
func (s *Server) apply(ctx context.Context, canvasID, remote string, msg Message) {
	var err error
	switch msg.Type {
	case MessageSave:
		if msg.Stroke == nil {
			s.log.Warn("save without stroke", "canvas", canvasID, "peer", remote)
			return
		}
		if err := geometry.Validate(msg.Stroke.Points); err != nil {
			s.log.Warn("stroke rejected", "canvas", canvasID, "peer", remote,
				"stroke", msg.Stroke.ID, "error", err)
			return
		}
		err = s.store.SaveStroke(ctx, canvasID, *msg.Stroke)
	case MessageRemove:
		err = s.store.RemoveStroke(ctx, canvasID, msg.StrokeID)
	case MessageClear:
		err = s.store.Clear(ctx, canvasID)
	default:
		s.log.Warn("unknown message type", "canvas", canvasID, "peer", remote, "type", msg.Type)
		return
	}
	if err != nil {
		s.log.Error("mutation rejected", "canvas", canvasID, "peer", remote,
			"type", msg.Type, "error", err)
	}
}
