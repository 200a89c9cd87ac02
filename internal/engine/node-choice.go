package engine

import (
	"github.com/talkweave/engine/pkg/api"
)

// execChoice drives BUTTON and LIST nodes. The first visit sends the
// prompt and pauses; a later event resolves an option edge. A selection
// routes by the edge whose handle matches the option id, then by the
// option's inline next reference. Unmatched input routes through the
// node's fallback when one is configured, otherwise the node re-pauses
func (r *run) execChoice(node *api.Node) (*outcome, error) {
	cfg := node.Config.Choice
	if cfg == nil {
		return nil, ErrMissingConfig
	}

	ev := r.takeInput()
	if ev == nil {
		r.send(r.choicePrompt(cfg))
		return pauseSession(), nil
	}

	if ev.IsSelection() {
		if next, ok := r.resolveOption(node, cfg, ev.SelectedOption); ok {
			return proceedTo(next), nil
		}
	}
	return r.choiceFallback(node, cfg)
}

func (r *run) choicePrompt(cfg *api.ChoiceConfig) *api.OutboundResponse {
	options := make([]*api.ResponseOption, 0, len(cfg.Options))
	for _, opt := range cfg.Options {
		options = append(options, &api.ResponseOption{
			ID:    opt.ID,
			Label: r.interpolate(opt.Label),
		})
	}
	return api.Prompt(r.interpolate(cfg.Prompt), options)
}

func (r *run) resolveOption(
	node *api.Node, cfg *api.ChoiceConfig, selected string,
) (api.NodeID, bool) {
	for _, opt := range cfg.Options {
		if opt.ID != selected {
			continue
		}
		if next := r.handleNext(node, api.Handle(opt.ID)); next != "" {
			return next, true
		}
		if opt.Next != "" {
			return opt.Next, true
		}
		return "", false
	}
	return "", false
}

func (r *run) choiceFallback(
	node *api.Node, cfg *api.ChoiceConfig,
) (*outcome, error) {
	if cfg.Fallback != "" {
		r.send(api.Text(r.interpolate(cfg.Fallback)))
	}
	if cfg.FallbackNext != "" {
		return proceedTo(cfg.FallbackNext), nil
	}
	if next := r.handleNext(node, api.HandleError); next != "" {
		return proceedTo(next), nil
	}
	// stay paused on the same node awaiting a valid selection
	r.send(r.choicePrompt(cfg))
	return pauseSession(), nil
}
