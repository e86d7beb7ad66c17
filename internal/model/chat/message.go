package chat

import "time"

// Sender identifies who authored a widget turn.
type Sender string

const (
	SenderUser  Sender = "user"
	SenderAgent Sender = "agent"
)

// Message is a single entry in a widget transcript.
// A placeholder entry is shown while an inference call is outstanding and is
// later rewritten in place with the final reply.
type Message struct {
	ID          int64     `json:"id"`
	Text        string    `json:"text"`
	Sender      Sender    `json:"sender"`
	Timestamp   time.Time `json:"timestamp"`
	Placeholder bool      `json:"isPlaceholder,omitempty"`
	Error       bool      `json:"isError,omitempty"`
}

// Clock renders the timestamp the way the widget shows it under a bubble.
func (m Message) Clock() string {
	return m.Timestamp.Format("15:04")
}
