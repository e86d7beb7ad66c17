package inference

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubModule struct {
	initErr error
	gate    chan struct{}
}

func (m *stubModule) Init(ctx context.Context) error {
	if m.gate != nil {
		select {
		case <-m.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return m.initErr
}

func (m *stubModule) Invoke(context.Context, string, string) (json.RawMessage, error) {
	return json.RawMessage(`{"choices":[{"message":{"content":"ready"}}]}`), nil
}

func TestInitializerRejectsCallsBeforeReady(t *testing.T) {
	module := &stubModule{gate: make(chan struct{})}
	loader := NewInitializer(module)
	loader.Start(context.Background())

	result := NewClient(loader, "key").Submit(context.Background(), "hi")
	require.True(t, result.Failed())
	assert.ErrorIs(t, result.Err, ErrNotInitialized)
	assert.False(t, loader.Ready())

	close(module.gate)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, loader.Wait(ctx))
	assert.True(t, loader.Ready())

	result = NewClient(loader, "key").Submit(context.Background(), "hi")
	assert.Equal(t, "ready", result.Text)
}

func TestInitializerFailureKeepsFailingCalls(t *testing.T) {
	loadErr := errors.New("wasm fetch failed")
	loader := NewInitializer(&stubModule{initErr: loadErr})
	loader.Start(context.Background())
	loader.Start(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := loader.Wait(ctx)
	assert.ErrorIs(t, err, loadErr)
	assert.False(t, loader.Ready())

	result := NewClient(loader, "key").Submit(context.Background(), "hi")
	assert.ErrorIs(t, result.Err, ErrNotInitialized)
}
