package inference

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/zhouzirui/support-chat/backend/internal/service/inference"

// ErrEmptyPrompt guards against submitting blank user text.
var ErrEmptyPrompt = errors.New("user text is empty")

// Client wraps an Invoker with response normalization. The credential is fixed
// at construction and passed on every call.
type Client struct {
	invoker    Invoker
	credential string
	tracer     trace.Tracer
}

// NewClient creates a client bound to invoker and credential. An empty
// credential is forwarded as is; rejecting it is the module's job.
func NewClient(invoker Invoker, credential string) *Client {
	return &Client{
		invoker:    invoker,
		credential: credential,
		tracer:     otel.Tracer(tracerName),
	}
}

// Submit issues exactly one call to the module and normalizes the outcome.
// It never returns an error: failures come back as a KindFailure result and
// are logged. The call is not bound to ctx cancellation and has no timeout.
func (c *Client) Submit(ctx context.Context, userText string) Result {
	ctx = context.WithoutCancel(ctx)
	ctx, span := c.tracer.Start(ctx, "inference.Submit",
		trace.WithAttributes(attribute.Int("inference.user_text.length", len(userText))),
	)
	defer span.End()

	if strings.TrimSpace(userText) == "" {
		log.Printf("[inference] rejected blank submission")
		span.SetStatus(codes.Error, ErrEmptyPrompt.Error())
		return c.record(Failure(ErrEmptyPrompt), 0)
	}

	start := time.Now()
	raw, err := c.invoke(ctx, userText)
	elapsed := time.Since(start)

	if err != nil {
		log.Printf("[inference] invocation failed after %s: %v", elapsed.Round(time.Millisecond), err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "invocation failed")
		return c.record(Failure(err), elapsed)
	}

	result := Decode(raw)
	span.SetAttributes(attribute.String("inference.result.kind", result.Kind.String()))
	if result.Kind == KindEmpty {
		log.Printf("[inference] response carried no usable choices")
	}
	return c.record(result, elapsed)
}

func (c *Client) invoke(ctx context.Context, userText string) (raw []byte, err error) {
	if c.invoker == nil {
		return nil, ErrNotInitialized
	}

	defer func() {
		if p := recover(); p != nil {
			raw = nil
			err = fmt.Errorf("inference module panicked: %v", p)
		}
	}()

	return c.invoker.Invoke(ctx, userText, c.credential)
}

func (c *Client) record(result Result, elapsed time.Duration) Result {
	metricResults.WithLabelValues(result.Kind.String()).Inc()
	if elapsed > 0 {
		metricLatency.Observe(elapsed.Seconds())
	}
	return result
}
