package widget

import (
	"sync"

	"github.com/zhouzirui/support-chat/backend/internal/model/chat"
)

// EventKind names what changed in a widget.
type EventKind string

const (
	EventMessages     EventKind = "messages"
	EventVisibility   EventKind = "visibility"
	EventNotification EventKind = "notification"
)

// Event carries a full snapshot taken right after the change.
type Event struct {
	Kind    EventKind    `json:"kind"`
	Session chat.Session `json:"session"`
}

// hub fans events out to subscribers. A subscriber that falls behind loses
// events instead of blocking the widget.
type hub struct {
	mu     sync.Mutex
	next   int
	subs   map[int]chan Event
	closed bool
}

func newHub() *hub {
	return &hub{subs: make(map[int]chan Event)}
}

func (h *hub) subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := h.next
	h.next++
	h.subs[id] = ch
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

func (h *hub) publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			metricEventsDropped.Inc()
		}
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
