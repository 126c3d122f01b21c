package net

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"sharedink/internal/state"
)

// Client connects to a board server and exposes it through the store
// contract: mutations are written as protocol frames, and the server's
// snapshot stream backs Load and Watch. Watcher channels hold a single
// snapshot; a lagging watcher sees the newest document, never a stale one.
type Client struct {
	conn *websocket.Conn
	log  *slog.Logger

	writeMu sync.Mutex // gorilla allows one concurrent writer

	mu       sync.Mutex
	latest   state.Document
	haveDoc  bool
	ready    chan struct{} // closed once the first snapshot lands
	watchers map[int]chan state.Document
	nextID   int
	closed   bool
}

// Dial connects to the board server at addr (host:port) for one canvas and
// starts consuming its snapshot stream.
func Dial(ctx context.Context, addr, canvasID string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	url := fmt.Sprintf("ws://%s/canvas/%s/ws", addr, canvasID)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial board server %s: %w", addr, err)
	}

	c := &Client{
		conn:     conn,
		log:      logger,
		ready:    make(chan struct{}),
		watchers: make(map[int]chan state.Document),
	}
	go c.readPump()
	return c, nil
}

// Close tears down the connection and closes every watcher channel.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) readPump() {
	defer c.shutdownWatchers()
	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("board connection lost", "error", err)
			}
			return
		}
		if msg.Type != MessageSnapshot || msg.Document == nil {
			// One bad delivery does not kill the feed.
			c.log.Warn("unexpected frame from server", "type", msg.Type)
			continue
		}
		c.deliver(*msg.Document)
	}
}

func (c *Client) deliver(doc state.Document) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.latest = doc
	if !c.haveDoc {
		c.haveDoc = true
		close(c.ready)
	}

	for _, ch := range c.watchers {
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

func (c *Client) shutdownWatchers() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for id, ch := range c.watchers {
		delete(c.watchers, id)
		close(ch)
	}
	select {
	case <-c.ready:
	default:
		close(c.ready)
	}
}

// Load returns the most recent snapshot from the server, waiting for the
// initial one the server sends right after connect.
func (c *Client) Load(ctx context.Context, canvasID string) (state.Document, error) {
	select {
	case <-c.ready:
	case <-ctx.Done():
		return state.Document{}, fmt.Errorf("load canvas %s: %w", canvasID, ctx.Err())
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.haveDoc {
		return state.Document{}, fmt.Errorf("load canvas %s: connection closed before first snapshot", canvasID)
	}
	return c.latest.Clone(), nil
}

// SaveStroke sends one stroke to the server. The server's reply is the next
// snapshot on the feed, not an acknowledgement.
func (c *Client) SaveStroke(ctx context.Context, canvasID string, s state.Stroke) error {
	return c.send(Message{Type: MessageSave, Stroke: &s})
}

// RemoveStroke asks the server to delete a stroke by id.
func (c *Client) RemoveStroke(ctx context.Context, canvasID, strokeID string) error {
	return c.send(Message{Type: MessageRemove, StrokeID: strokeID})
}

// Clear asks the server to wipe the canvas.
func (c *Client) Clear(ctx context.Context, canvasID string) error {
	return c.send(Message{Type: MessageClear})
}

func (c *Client) send(msg Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("send %s: %w", msg.Type, err)
	}
	return nil
}

// Watch mirrors the server's snapshot stream: the current document is
// delivered immediately once known, then every subsequent server snapshot.
func (c *Client) Watch(ctx context.Context, canvasID string) (<-chan state.Document, error) {
	ch := make(chan state.Document, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		close(ch)
		return ch, nil
	}
	if c.haveDoc {
		ch <- c.latest
	}
	id := c.nextID
	c.nextID++
	c.watchers[id] = ch
	c.mu.Unlock()

	go func() {
		<-ctx.Done()
		c.mu.Lock()
		defer c.mu.Unlock()
		if _, ok := c.watchers[id]; ok {
			delete(c.watchers, id)
			close(ch)
		}
	}()

	return ch, nil
}
