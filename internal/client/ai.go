package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type (
	// ChatMessage is one message of a chat-completion request
	ChatMessage struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}

	// ChatRequest is the engine's provider-neutral completion request.
	// Provider selects a named completer when routed through a
	// CompleterSet; an empty Provider uses the default
	ChatRequest struct {
		Provider string
		Model    string
		Messages []*ChatMessage
	}

	// ChatUsage reports token consumption for a completion
	ChatUsage struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
		TotalTokens      int64 `json:"total_tokens"`
	}

	// ChatResponse is the provider-neutral completion result. Raw holds
	// the provider's response JSON for per-path field extraction
	ChatResponse struct {
		Text  string
		Raw   string
		Usage ChatUsage
	}

	// ChatCompleter performs one chat-completion call. Retry policy
	// belongs to the node executor, not the client
	ChatCompleter interface {
		Complete(context.Context, *ChatRequest) (*ChatResponse, error)
	}

	// OpenAICompleter is the production ChatCompleter backed by the
	// OpenAI-compatible chat completions API
	OpenAICompleter struct {
		client openai.Client
		model  string
	}

	// CompleterSet routes completion requests to named providers,
	// falling back to the default completer when the request names none
	CompleterSet struct {
		providers map[string]ChatCompleter
		fallback  ChatCompleter
	}
)

var (
	ErrNoChoices       = errors.New("completion returned no choices")
	ErrNoModel         = errors.New("no model configured for completion")
	ErrUnknownProvider = errors.New("unknown completion provider")
)

var (
	_ ChatCompleter = (*OpenAICompleter)(nil)
	_ ChatCompleter = (*CompleterSet)(nil)
)

// NewOpenAICompleter creates a completer for the given credentials. A
// non-empty baseURL points the client at any OpenAI-compatible provider
func NewOpenAICompleter(apiKey, baseURL, model string) *OpenAICompleter {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAICompleter{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

// NewCompleterSet creates a provider router around a default completer
func NewCompleterSet(fallback ChatCompleter) *CompleterSet {
	return &CompleterSet{
		providers: map[string]ChatCompleter{},
		fallback:  fallback,
	}
}

// Register makes a completer addressable by provider name
func (s *CompleterSet) Register(name string, c ChatCompleter) {
	s.providers[name] = c
}

// Complete routes the request to its named provider, or to the default
// completer when the request names none
func (s *CompleterSet) Complete(
	ctx context.Context, req *ChatRequest,
) (*ChatResponse, error) {
	if req.Provider != "" {
		c, ok := s.providers[req.Provider]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, req.Provider)
		}
		return c.Complete(ctx, req)
	}
	return s.fallback.Complete(ctx, req)
}

// Complete performs one chat-completion call under the context deadline
func (c *OpenAICompleter) Complete(
	ctx context.Context, req *ChatRequest,
) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	if model == "" {
		return nil, ErrNoModel
	}

	messages := make([]openai.ChatCompletionMessageParamUnion,
		0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			messages = append(messages, openai.SystemMessage(m.Content))
		case "assistant":
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	completion, err := c.client.Chat.Completions.New(ctx,
		openai.ChatCompletionNewParams{
			Model:    openai.ChatModel(model),
			Messages: messages,
		},
	)
	if err != nil {
		return nil, err
	}
	if len(completion.Choices) == 0 {
		return nil, ErrNoChoices
	}

	return &ChatResponse{
		Text: completion.Choices[0].Message.Content,
		Raw:  completion.RawJSON(),
		Usage: ChatUsage{
			PromptTokens:     completion.Usage.PromptTokens,
			CompletionTokens: completion.Usage.CompletionTokens,
			TotalTokens:      completion.Usage.TotalTokens,
		},
	}, nil
}
