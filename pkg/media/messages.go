// ABOUTME: Media endpoint message definitions
// ABOUTME: JSON envelopes exchanged between media players and the position endpoint
package media

import "encoding/json"

// ProtocolVersion is the version of the player protocol
const ProtocolVersion = 1

// Message types
const (
	TypePlayerHello   = "player/hello"
	TypePlayerState   = "player/state"
	TypePlayerGoodbye = "player/goodbye"
	TypeServerHello   = "server/hello"
	TypeServerCommand = "server/command"
)

// Message is the envelope for every message
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// outgoing is the envelope for messages the endpoint sends
type outgoing struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// PlayerHello opens a session
type PlayerHello struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Version  int    `json:"version"`
}

// ServerHello answers PlayerHello
type ServerHello struct {
	ServerID string `json:"server_id"`
	Name     string `json:"name"`
	Version  int    `json:"version"`
}

// PlayerState reports playback. Positions are seconds.
type PlayerState struct {
	Position float64 `json:"position"`
	Duration float64 `json:"duration"`
	Speed    float64 `json:"speed"`
	Playing  bool    `json:"playing"`
	Path     string  `json:"path,omitempty"`
}

// PlayerGoodbye ends a session
type PlayerGoodbye struct {
	Reason string `json:"reason"`
}

// Command asks players to change playback
type Command struct {
	Command  string  `json:"command"` // "play", "pause" or "seek"
	Position float64 `json:"position,omitempty"`
}
