package widget

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/support-chat/backend/internal/model/chat"
)

func countPlaceholders(messages []chat.Message) int {
	n := 0
	for _, m := range messages {
		if m.Placeholder {
			n++
		}
	}
	return n
}

func TestStoreAppendAssignsMonotonicIDs(t *testing.T) {
	store := NewStore(nil)

	first := store.Append(chat.Message{Text: "a", Sender: chat.SenderUser})
	second := store.Append(chat.Message{Text: "b", Sender: chat.SenderAgent})

	assert.Equal(t, int64(1), first)
	assert.Equal(t, int64(2), second)

	messages := store.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, "a", messages[0].Text)
	assert.Equal(t, "b", messages[1].Text)
	assert.False(t, messages[0].Timestamp.IsZero())
}

func TestStoreAppendIgnoresPlaceholderFlag(t *testing.T) {
	store := NewStore(nil)
	store.Append(chat.Message{Text: "x", Placeholder: true})

	_, ok := store.Placeholder()
	assert.False(t, ok)
	assert.Zero(t, countPlaceholders(store.Messages()))
}

func TestStoreUpsertPlaceholderOnlyOnce(t *testing.T) {
	store := NewStore(nil)

	id, inserted := store.UpsertPlaceholder(chat.Message{Text: "...", Sender: chat.SenderAgent})
	require.True(t, inserted)

	again, inserted := store.UpsertPlaceholder(chat.Message{Text: "other", Sender: chat.SenderAgent})
	assert.False(t, inserted)
	assert.Equal(t, id, again)
	assert.Equal(t, 1, store.Len())
}

func TestStoreResolvePlaceholderKeepsIDAndPosition(t *testing.T) {
	store := NewStore(nil)
	store.Append(chat.Message{Text: "Hello", Sender: chat.SenderUser})
	id, _ := store.UpsertPlaceholder(chat.Message{Text: "...", Sender: chat.SenderAgent})

	resolved, ok := store.ResolvePlaceholder(chat.Message{Text: "Hi there", Error: true})
	require.True(t, ok)
	assert.Equal(t, id, resolved.ID)
	assert.Equal(t, chat.SenderAgent, resolved.Sender)

	messages := store.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, id, messages[1].ID)
	assert.Equal(t, "Hi there", messages[1].Text)
	assert.True(t, messages[1].Error)
	assert.False(t, messages[1].Placeholder)
}

func TestStoreResolveWithoutPlaceholderIsNoop(t *testing.T) {
	changes := 0
	store := NewStore(func([]chat.Message) { changes++ })
	store.Append(chat.Message{Text: "Hello", Sender: chat.SenderUser})
	before := store.Messages()

	_, ok := store.ResolvePlaceholder(chat.Message{Text: "late"})

	assert.False(t, ok)
	assert.Equal(t, before, store.Messages())
	assert.Equal(t, 1, changes)
}

func TestStoreSecondResolveIsNoop(t *testing.T) {
	store := NewStore(nil)
	store.UpsertPlaceholder(chat.Message{Text: "...", Sender: chat.SenderAgent})
	_, ok := store.ResolvePlaceholder(chat.Message{Text: "done"})
	require.True(t, ok)
	after := store.Messages()

	_, ok = store.ResolvePlaceholder(chat.Message{Text: "again", Error: true})
	assert.False(t, ok)
	assert.Equal(t, after, store.Messages())
}

func TestStoreSignalsEverySequenceChange(t *testing.T) {
	var seen []int
	store := NewStore(func(messages []chat.Message) { seen = append(seen, len(messages)) })

	store.Append(chat.Message{Text: "Hello"})
	store.UpsertPlaceholder(chat.Message{Text: "..."})
	store.UpsertPlaceholder(chat.Message{Text: "..."})
	store.ResolvePlaceholder(chat.Message{Text: "Hi"})

	assert.Equal(t, []int{1, 2, 2}, seen)
}

func TestStoreAtMostOnePlaceholder(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	store := NewStore(nil)

	for i := 0; i < 2000; i++ {
		switch rng.Intn(3) {
		case 0:
			store.Append(chat.Message{Text: "m", Placeholder: rng.Intn(2) == 0})
		case 1:
			store.UpsertPlaceholder(chat.Message{Text: "..."})
		case 2:
			store.ResolvePlaceholder(chat.Message{Text: "r"})
		}

		messages := store.Messages()
		require.LessOrEqual(t, countPlaceholders(messages), 1)
		for j := 1; j < len(messages); j++ {
			require.Greater(t, messages[j].ID, messages[j-1].ID)
		}
	}
}
