package websocket

import "encoding/json"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing Action = "ping"
)

// RequestEnvelope is the only client message shape on the admin feed.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError     Event = "error"
	EventReady     Event = "ready"
	EventExam      Event = "exam"
	EventPong      Event = "pong"
	EventKeepAlive Event = "keepalive"
)

// ReadyResponse is sent once the subscription is live.
type ReadyResponse struct {
	Event   Event  `json:"event"`
	Channel string `json:"channel"`
}

// ExamEventResponse forwards one exam lifecycle event. Data is the raw
// JSON published on the channel.
type ExamEventResponse struct {
	Event Event           `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
