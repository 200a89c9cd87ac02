package engine

import (
	"github.com/talkweave/engine/pkg/api"
)

// execCondition evaluates the node's condition and routes accordingly.
// When the simple left/operator/right form is present it takes
// precedence and routes by the true and false handles. Otherwise the
// ordered branch expressions are evaluated and the first true branch
// wins, falling through to the default route
func (r *run) execCondition(node *api.Node) (*outcome, error) {
	cfg := node.Config.Condition
	if cfg == nil {
		return nil, ErrMissingConfig
	}

	if cfg.Operator != "" {
		res, err := Compare(
			r.interpolate(cfg.Left),
			cfg.Operator,
			r.interpolate(cfg.Right),
		)
		if err != nil {
			return nil, err
		}
		handle := api.HandleFalse
		if res {
			handle = api.HandleTrue
		}
		if next := r.handleNext(node, handle); next != "" {
			return proceedTo(next), nil
		}
		return proceedTo(cfg.DefaultNext), nil
	}

	for _, branch := range cfg.Branches {
		res, err := EvalExpression(branch.Expression, r.resolve)
		if err != nil {
			return nil, err
		}
		if res {
			return proceedTo(branch.Next), nil
		}
	}
	if cfg.DefaultNext != "" {
		return proceedTo(cfg.DefaultNext), nil
	}
	return proceedTo(r.handleNext(node, api.HandleFalse)), nil
}
