// Package net exposes a canvas store over the network: a websocket board
// server that LAN peers connect to, a client that speaks the same protocol
// and satisfies the store contract, and mDNS discovery so joiners do not
// have to type addresses.
package net

import "sharedink/internal/state"

// MessageType discriminates the websocket protocol messages.
type MessageType string

const (
	// Client to server: mutations.
	MessageSave   MessageType = "save"
	MessageRemove MessageType = "remove"
	MessageClear  MessageType = "clear"

	// Server to client: one full document after every accepted mutation.
	MessageSnapshot MessageType = "snapshot"
)

// Message is one frame of the board protocol, JSON encoded.
type Message struct {
	Type     MessageType     `json:"type"`
	Stroke   *state.Stroke   `json:"stroke,omitempty"`
	StrokeID string          `json:"stroke_id,omitempty"`
	Document *state.Document `json:"document,omitempty"`
}
