package server

import "time"

// Message types sent by the server.
const (
	MessageHello  = "hello"
	MessageRender = "render"
	MessageError  = "error"
)

// ClientMessage is a DOM event forwarded by the page.
type ClientMessage struct {
	Type  string `json:"type"`
	Event string `json:"event"`
	// Path is the element's position below the fixture root as child
	// element indices.
	Path []int `json:"path"`
	Seq  int64 `json:"seq"`

	Value   *string           `json:"value,omitempty"`
	Checked *bool             `json:"checked,omitempty"`
	Key     string            `json:"key,omitempty"`
	Detail  map[string]string `json:"detail,omitempty"`
}

// ServerMessage carries the rendered fixture back to the page.
type ServerMessage struct {
	Type    string `json:"type"`
	Session string `json:"session,omitempty"`
	HTML    string `json:"html,omitempty"`
	// Pending is the number of tasks the fixture still has scheduled.
	Pending int `json:"pending"`
	// Ack is the sequence number of the event this message answers, or 0.
	Ack     int64     `json:"ack"`
	Initial bool      `json:"initial,omitempty"`
	Error   string    `json:"error,omitempty"`
	Time    time.Time `json:"timestamp"`
}
