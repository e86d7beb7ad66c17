package inference

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrNotInitialized is returned for invocations issued before the module finished loading.
var ErrNotInitialized = errors.New("inference module not initialized")

// Invoker performs a single inference call. The returned payload is the raw
// JSON value produced by the module: usually a chat completion object, but any
// JSON value is accepted.
type Invoker interface {
	Invoke(ctx context.Context, userText, credential string) (json.RawMessage, error)
}

// Module is the external inference boundary: loaded once, invoked per turn.
type Module interface {
	Invoker
	Init(ctx context.Context) error
}

// InvokerFunc adapts a plain function to Invoker.
type InvokerFunc func(ctx context.Context, userText, credential string) (json.RawMessage, error)

// Invoke calls f.
func (f InvokerFunc) Invoke(ctx context.Context, userText, credential string) (json.RawMessage, error) {
	return f(ctx, userText, credential)
}
