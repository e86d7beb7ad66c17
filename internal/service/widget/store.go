package widget

import (
	"time"

	"github.com/zhouzirui/support-chat/backend/internal/model/chat"
)

// ChangeFunc receives the transcript after every sequence change. The view
// layer uses it as its scroll-to-latest trigger.
type ChangeFunc func(messages []chat.Message)

// Store is an ordered, append-only transcript with a single mutable
// placeholder slot. It is not safe for concurrent use; Widget serializes
// access to it.
type Store struct {
	messages    []chat.Message
	lastID      int64
	placeholder int
	onChange    ChangeFunc
	now         func() time.Time
}

// NewStore creates an empty store. onChange may be nil.
func NewStore(onChange ChangeFunc) *Store {
	return &Store{
		messages:    make([]chat.Message, 0, 16),
		placeholder: -1,
		onChange:    onChange,
		now:         time.Now,
	}
}

// Append assigns the next id to msg, inserts it at the tail and returns the
// id. Placeholders are only created through UpsertPlaceholder, so the
// Placeholder flag of msg is ignored.
func (s *Store) Append(msg chat.Message) int64 {
	msg.Placeholder = false
	id := s.insert(msg)
	s.changed()
	return id
}

// UpsertPlaceholder inserts msg as the placeholder unless one already exists.
// It returns the id of the placeholder and whether a new one was inserted.
func (s *Store) UpsertPlaceholder(msg chat.Message) (int64, bool) {
	if s.placeholder >= 0 {
		return s.messages[s.placeholder].ID, false
	}

	msg.Placeholder = true
	msg.Error = false
	id := s.insert(msg)
	s.placeholder = len(s.messages) - 1
	s.changed()
	return id, true
}

// ResolvePlaceholder rewrites the placeholder with the text and error flag of
// final, keeping its id and position. It reports false and leaves the
// transcript untouched when there is no placeholder.
func (s *Store) ResolvePlaceholder(final chat.Message) (chat.Message, bool) {
	if s.placeholder < 0 {
		return chat.Message{}, false
	}

	msg := &s.messages[s.placeholder]
	msg.Text = final.Text
	msg.Error = final.Error
	msg.Placeholder = false
	if final.Timestamp.IsZero() {
		msg.Timestamp = s.now()
	} else {
		msg.Timestamp = final.Timestamp
	}

	resolved := *msg
	s.placeholder = -1
	s.changed()
	return resolved, true
}

// Placeholder returns the outstanding placeholder, if any.
func (s *Store) Placeholder() (chat.Message, bool) {
	if s.placeholder < 0 {
		return chat.Message{}, false
	}
	return s.messages[s.placeholder], true
}

// Messages returns a copy of the transcript in insertion order.
func (s *Store) Messages() []chat.Message {
	copied := make([]chat.Message, len(s.messages))
	copy(copied, s.messages)
	return copied
}

// Len returns the number of messages.
func (s *Store) Len() int {
	return len(s.messages)
}

func (s *Store) insert(msg chat.Message) int64 {
	s.lastID++
	msg.ID = s.lastID
	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.now()
	}
	s.messages = append(s.messages, msg)
	return msg.ID
}

func (s *Store) changed() {
	if s.onChange != nil {
		s.onChange(s.Messages())
	}
}
