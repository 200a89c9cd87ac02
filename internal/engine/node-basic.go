package engine

import (
	"github.com/talkweave/engine/pkg/api"
)

// execStart proceeds to the graph's first real node. The start node has
// no observable behavior of its own
func (r *run) execStart(node *api.Node) (*outcome, error) {
	return proceedTo(r.firstNext(node)), nil
}

// execMessage sends interpolated text and proceeds
func (r *run) execMessage(node *api.Node) (*outcome, error) {
	cfg := node.Config.Message
	if cfg == nil {
		return nil, ErrMissingConfig
	}
	r.send(api.Text(r.interpolate(cfg.Text)))
	return proceedTo(r.firstNext(node)), nil
}

// execEnd terminates the session, optionally sending a farewell first.
// Close distinguishes an operator-style closure from normal completion
func (r *run) execEnd(node *api.Node) (*outcome, error) {
	status := api.SessionCompleted
	if cfg := node.Config.End; cfg != nil {
		if cfg.Text != "" {
			r.send(api.Text(r.interpolate(cfg.Text)))
		}
		if cfg.Close {
			status = api.SessionClosed
		}
	}
	return endSession(status), nil
}
