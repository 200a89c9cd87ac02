package engine

import (
	"fmt"
	"log/slog"

	"github.com/talkweave/engine/pkg/api"
	"github.com/talkweave/engine/pkg/log"
)

// execSubflow pushes a return frame and repositions the session at the
// target graph's production start node. Only production versions are
// ever entered at runtime; a missing one is fatal for the session.
// Dispatch continues immediately inside the subflow's graph
func (r *run) execSubflow(node *api.Node) (*outcome, error) {
	cfg := node.Config.Subflow
	if cfg == nil {
		return nil, ErrMissingConfig
	}

	sub, err := r.e.store.GetProductionVersion(r.ctx, cfg.Graph)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMissingSubflow, cfg.Graph, err)
	}
	start, ok := sub.Start()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStartNotFound, sub.ID)
	}

	frame := api.Frame{
		Version:    r.session.Version,
		ReturnNode: r.firstNext(node),
	}
	r.session = r.session.
		PushFrame(frame).
		SetVersion(sub.ID)
	r.graph = sub

	slog.Debug("Entering subflow",
		log.SessionID(r.session.ID),
		log.GraphID(cfg.Graph),
		slog.Int("depth", r.session.Depth()))
	return proceedTo(start.ID), nil
}
