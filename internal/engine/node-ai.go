package engine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/talkweave/engine/internal/client"
	"github.com/talkweave/engine/pkg/api"
	"github.com/talkweave/engine/pkg/log"
	"github.com/tidwall/gjson"
)

var ErrNoCompleter = errors.New("no chat completer configured")

// execAI performs a chat-completion call with per-attempt timeout and
// bounded retries. The reply is stored in the configured variables and
// recorded as an assistant turn; after exhausted retries the configured
// fallback message is sent and the error edge taken
func (r *run) execAI(node *api.Node) (*outcome, error) {
	cfg := node.Config.AI
	if cfg == nil {
		return nil, ErrMissingConfig
	}
	if r.e.completer == nil {
		return nil, ErrNoCompleter
	}

	req, err := r.buildChatRequest(cfg)
	if err != nil {
		return nil, err
	}

	var (
		res     *client.ChatResponse
		lastErr error
	)
	attempts := cfg.Retries()
	timeout := cfg.Timeout()
	for i := 0; i < attempts; i++ {
		ctx, cancel := context.WithTimeout(r.ctx, timeout)
		res, lastErr = r.e.completer.Complete(ctx, req)
		cancel()
		if lastErr == nil {
			break
		}
	}
	if lastErr != nil {
		return r.aiFailure(node, cfg, lastErr)
	}

	if err := r.storeChatResult(cfg, res); err != nil {
		return nil, err
	}
	r.recordTranscript(api.RoleAssistant, res.Text)

	if next := r.handleNext(node, api.HandleSuccess); next != "" {
		return proceedTo(next), nil
	}
	return proceedTo(r.firstNext(node)), nil
}

// buildChatRequest assembles system prompt, optional transcript history
// and the interpolated user message in conversation order
func (r *run) buildChatRequest(
	cfg *api.AIConfig,
) (*client.ChatRequest, error) {
	var messages []*client.ChatMessage
	if cfg.SystemPrompt != "" {
		messages = append(messages, &client.ChatMessage{
			Role:    api.RoleSystem,
			Content: r.interpolate(cfg.SystemPrompt),
		})
	}

	if cfg.IncludeHistory {
		limit := cfg.HistoryLimit
		if limit <= 0 {
			limit = api.DefaultHistoryLimit
		}
		history, err := r.e.store.Transcript(r.ctx, r.session.ID, limit)
		if err != nil {
			return nil, err
		}
		for _, turn := range history {
			messages = append(messages, &client.ChatMessage{
				Role:    turn.Role,
				Content: turn.Content,
			})
		}
	}

	if user := r.interpolate(cfg.UserMessage); user != "" {
		messages = append(messages, &client.ChatMessage{
			Role:    api.RoleUser,
			Content: user,
		})
	}
	return &client.ChatRequest{
		Provider: cfg.Provider,
		Model:    cfg.Model,
		Messages: messages,
	}, nil
}

func (r *run) storeChatResult(
	cfg *api.AIConfig, res *client.ChatResponse,
) error {
	if cfg.ResponseVar != "" {
		if err := r.setSessionVar(cfg.ResponseVar, res.Text); err != nil {
			return err
		}
	}
	if cfg.RawVar != "" {
		if err := r.setSessionVar(
			cfg.RawVar, decodeBody([]byte(res.Raw)),
		); err != nil {
			return err
		}
	}
	if cfg.UsageVar != "" {
		usage := map[string]any{
			"prompt_tokens":     float64(res.Usage.PromptTokens),
			"completion_tokens": float64(res.Usage.CompletionTokens),
			"total_tokens":      float64(res.Usage.TotalTokens),
		}
		if err := r.setSessionVar(cfg.UsageVar, usage); err != nil {
			return err
		}
	}
	for _, m := range cfg.Extract {
		value := gjson.Get(res.Raw, m.Path)
		if !value.Exists() {
			continue
		}
		if err := r.setSessionVar(m.Variable, value.Value()); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) aiFailure(
	node *api.Node, cfg *api.AIConfig, cause error,
) (*outcome, error) {
	slog.Warn("AI call failed",
		log.SessionID(r.session.ID), log.NodeID(node.ID), log.Error(cause))

	if cfg.ErrorVar != "" {
		if err := r.setSessionVar(cfg.ErrorVar, cause.Error()); err != nil {
			return nil, err
		}
	}
	if cfg.Fallback != "" {
		r.send(api.Text(r.interpolate(cfg.Fallback)))
	}
	if next := r.handleNext(node, api.HandleError); next != "" {
		return proceedTo(next), nil
	}
	if cfg.Fallback != "" {
		return proceedTo(r.firstNext(node)), nil
	}
	return nil, cause
}
