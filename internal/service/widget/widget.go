package widget

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/zhouzirui/support-chat/backend/internal/model/chat"
	"github.com/zhouzirui/support-chat/backend/internal/service/inference"
)

var (
	// ErrEmptyInput is returned for blank submissions; nothing changes.
	ErrEmptyInput = errors.New("input is empty")
	// ErrTurnInProgress is returned when a submit arrives while the previous
	// reply is still outstanding.
	ErrTurnInProgress = errors.New("a reply is still pending")
)

// DefaultThinkingText is the placeholder text shown while waiting for a reply.
const DefaultThinkingText = "..."

// Completer is the inference side of a widget turn.
type Completer interface {
	Submit(ctx context.Context, userText string) inference.Result
}

// Options configures a new Widget.
type Options struct {
	ID           string
	ProfileID    string
	Greeting     string
	ThinkingText string
	Client       Completer
}

// Widget orchestrates one chat session: user input goes into the store, the
// placeholder is shown, the inference client is called and the placeholder is
// resolved with the outcome. All state is guarded by a single mutex; the
// inference call runs outside it.
type Widget struct {
	id           string
	profileID    string
	createdAt    time.Time
	thinkingText string
	client       Completer
	events       *hub

	mu         sync.Mutex
	store      *Store
	visibility *Visibility
	draft      string
	pending    bool
}

// New creates a widget in the CLOSED state, seeded with the greeting if set.
func New(opts Options) *Widget {
	thinking := opts.ThinkingText
	if thinking == "" {
		thinking = DefaultThinkingText
	}

	w := &Widget{
		id:           opts.ID,
		profileID:    opts.ProfileID,
		createdAt:    time.Now().UTC(),
		thinkingText: thinking,
		client:       opts.Client,
		events:       newHub(),
		visibility:   NewVisibility(),
	}
	w.store = NewStore(func([]chat.Message) {
		w.events.publish(Event{Kind: EventMessages, Session: w.snapshotLocked()})
	})

	if opts.Greeting != "" {
		w.store.Append(chat.Message{Text: opts.Greeting, Sender: chat.SenderAgent})
	}
	return w
}

// ID returns the session identifier.
func (w *Widget) ID() string {
	return w.id
}

// SetDraft replaces the input buffer.
func (w *Widget) SetDraft(text string) chat.Session {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.draft = text
	return w.snapshotLocked()
}

// Submit sends the current draft. See Send.
func (w *Widget) Submit(ctx context.Context) (<-chan chat.Message, error) {
	w.mu.Lock()
	text, err := w.beginLocked()
	w.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return w.dispatch(ctx, text), nil
}

// Send places text in the draft and submits it. Before returning, the user
// message is appended, the draft cleared and the placeholder inserted; the
// returned channel yields the resolved agent message once the inference call
// completes. Blank text yields ErrEmptyInput and a submit while a reply is
// outstanding yields ErrTurnInProgress; in both cases nothing changes.
func (w *Widget) Send(ctx context.Context, text string) (<-chan chat.Message, error) {
	w.mu.Lock()
	previous := w.draft
	w.draft = text
	userText, err := w.beginLocked()
	if err != nil {
		w.draft = previous
	}
	w.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return w.dispatch(ctx, userText), nil
}

func (w *Widget) beginLocked() (string, error) {
	text := w.draft
	if strings.TrimSpace(text) == "" {
		metricSubmitsRejected.WithLabelValues("empty").Inc()
		return "", ErrEmptyInput
	}
	if w.pending {
		metricSubmitsRejected.WithLabelValues("busy").Inc()
		return "", ErrTurnInProgress
	}

	w.store.Append(chat.Message{Text: text, Sender: chat.SenderUser})
	w.draft = ""
	w.store.UpsertPlaceholder(chat.Message{Text: w.thinkingText, Sender: chat.SenderAgent})
	w.pending = true
	return text, nil
}

func (w *Widget) dispatch(ctx context.Context, userText string) <-chan chat.Message {
	done := make(chan chat.Message, 1)
	go func() {
		defer close(done)
		done <- w.await(ctx, userText)
	}()
	return done
}

func (w *Widget) await(ctx context.Context, userText string) chat.Message {
	var result inference.Result
	if w.client == nil {
		result = inference.Failure(inference.ErrNotInitialized)
	} else {
		result = w.client.Submit(ctx, userText)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	resolved, ok := w.store.ResolvePlaceholder(chat.Message{
		Text:   result.Text,
		Sender: chat.SenderAgent,
		Error:  result.Failed(),
	})
	w.pending = false
	if !ok {
		log.Printf("[widget] session=%s resolved without a placeholder", w.id)
	}

	before := w.visibility.Notification()
	if w.visibility.ReplyResolved() && !before {
		metricNotifications.Inc()
		w.events.publish(Event{Kind: EventNotification, Session: w.snapshotLocked()})
	}

	log.Printf("[widget] session=%s reply resolved kind=%s visibility=%s", w.id, result.Kind, w.visibility.State())
	return resolved
}

// ToggleOpen opens or closes the chat surface.
func (w *Widget) ToggleOpen() chat.Session {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.visibility.ToggleOpen()
	return w.visibilityChangedLocked()
}

// ToggleMinimize collapses or expands an open chat surface.
func (w *Widget) ToggleMinimize() chat.Session {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.visibility.ToggleMinimize()
	return w.visibilityChangedLocked()
}

func (w *Widget) visibilityChangedLocked() chat.Session {
	snapshot := w.snapshotLocked()
	w.events.publish(Event{Kind: EventVisibility, Session: snapshot})
	return snapshot
}

// Snapshot returns a copy of the current state.
func (w *Widget) Snapshot() chat.Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

// Subscribe streams change events until cancel is called or the widget is
// closed. buffer bounds how many events may queue before newer ones are dropped.
func (w *Widget) Subscribe(buffer int) (<-chan Event, func()) {
	return w.events.subscribe(buffer)
}

// Close ends all subscriptions.
func (w *Widget) Close() {
	w.events.closeAll()
}

func (w *Widget) snapshotLocked() chat.Session {
	return chat.Session{
		ID:           w.id,
		ProfileID:    w.profileID,
		Messages:     w.store.Messages(),
		Visibility:   w.visibility.State(),
		Notification: w.visibility.Notification(),
		Draft:        w.draft,
		Pending:      w.pending,
		CreatedAt:    w.createdAt,
	}
}
