// Package ws carries the player change feed over a websocket.
package ws

import "encoding/json"

// EventConnected is the first frame sent on every connection
const EventConnected = "connected"

// FeedPath is the websocket endpoint relative to the server URL
const FeedPath = "/api/v1/players/ws"

// Frame is the JSON envelope of every text message on the socket
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}
