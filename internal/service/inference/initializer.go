package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
)

// Initializer loads a Module in the background and gates invocations on it.
// Calls made before Init succeeded fail with ErrNotInitialized.
type Initializer struct {
	module Module

	once  sync.Once
	done  chan struct{}
	ready atomic.Bool
	err   error
}

// NewInitializer wraps module. Start must be called to begin loading.
func NewInitializer(module Module) *Initializer {
	return &Initializer{
		module: module,
		done:   make(chan struct{}),
	}
}

// Start runs Module.Init once in its own goroutine.
func (i *Initializer) Start(ctx context.Context) {
	i.once.Do(func() {
		go i.run(ctx)
	})
}

func (i *Initializer) run(ctx context.Context) {
	defer close(i.done)

	if err := i.module.Init(ctx); err != nil {
		i.err = fmt.Errorf("initialize inference module: %w", err)
		log.Printf("[inference] failed to initialize module: %v", err)
		return
	}

	i.ready.Store(true)
	metricModuleReady.Set(1)
	log.Println("[inference] module initialized")
}

// Ready reports whether initialization completed successfully.
func (i *Initializer) Ready() bool {
	return i.ready.Load()
}

// Wait blocks until initialization finishes or ctx is done and returns the
// initialization error, if any.
func (i *Initializer) Wait(ctx context.Context) error {
	select {
	case <-i.done:
		return i.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Invoke forwards to the module once it is ready.
func (i *Initializer) Invoke(ctx context.Context, userText, credential string) (json.RawMessage, error) {
	if !i.ready.Load() {
		return nil, ErrNotInitialized
	}
	return i.module.Invoke(ctx, userText, credential)
}
