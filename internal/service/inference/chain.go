package inference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
)

// ModelFactory builds a chat model authorized with credential.
type ModelFactory func(ctx context.Context, credential string) (model.ChatModel, error)

// ChainModule is a Module backed by an eino prompt → chat model chain. One
// chain is compiled per distinct credential on first use.
type ChainModule struct {
	systemPrompt string
	factory      ModelFactory

	mu       sync.Mutex
	template prompt.ChatTemplate
	chains   map[string]compose.Runnable[map[string]any, *schema.Message]
}

// NewChainModule creates a chain-backed module. Init must succeed before Invoke.
func NewChainModule(systemPrompt string, factory ModelFactory) *ChainModule {
	return &ChainModule{
		systemPrompt: systemPrompt,
		factory:      factory,
		chains:       make(map[string]compose.Runnable[map[string]any, *schema.Message]),
	}
}

// Init prepares the prompt template.
func (m *ChainModule) Init(_ context.Context) error {
	if m.factory == nil {
		return errors.New("chat model factory is nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// User text goes through a placeholder so braces in it are never
	// interpreted as template variables.
	m.template = prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("turn", false),
	)
	return nil
}

// Invoke runs the chain for userText and returns a chat completion body.
func (m *ChainModule) Invoke(ctx context.Context, userText, credential string) (json.RawMessage, error) {
	runnable, err := m.runnable(ctx, credential)
	if err != nil {
		return nil, err
	}

	response, err := runnable.Invoke(ctx, map[string]any{
		"system": m.systemPrompt,
		"turn":   []*schema.Message{schema.UserMessage(userText)},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to run chat chain: %w", err)
	}

	log.Printf("[inference] chain produced response length=%d", len(response.Content))
	return encodeCompletion(response)
}

func (m *ChainModule) runnable(ctx context.Context, credential string) (compose.Runnable[map[string]any, *schema.Message], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.template == nil {
		return nil, ErrNotInitialized
	}
	if runnable, ok := m.chains[credential]; ok {
		return runnable, nil
	}

	chatModel, err := m.factory(ctx, credential)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(m.template)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	m.chains[credential] = runnable
	return runnable, nil
}

type completionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionChoice struct {
	Index        int               `json:"index"`
	Message      completionMessage `json:"message"`
	FinishReason string            `json:"finish_reason,omitempty"`
}

type completionUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type completionBody struct {
	Object  string             `json:"object"`
	Choices []completionChoice `json:"choices"`
	Usage   *completionUsage   `json:"usage,omitempty"`
}

func encodeCompletion(msg *schema.Message) (json.RawMessage, error) {
	if msg == nil {
		return json.RawMessage(`{"object":"chat.completion","choices":[]}`), nil
	}

	choice := completionChoice{
		Message: completionMessage{Role: string(schema.Assistant), Content: msg.Content},
	}
	body := completionBody{Object: "chat.completion", Choices: []completionChoice{choice}}

	if meta := msg.ResponseMeta; meta != nil {
		body.Choices[0].FinishReason = meta.FinishReason
		if meta.Usage != nil {
			body.Usage = &completionUsage{
				PromptTokens:     meta.Usage.PromptTokens,
				CompletionTokens: meta.Usage.CompletionTokens,
				TotalTokens:      meta.Usage.TotalTokens,
			}
		}
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode completion: %w", err)
	}
	return data, nil
}
