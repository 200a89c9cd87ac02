package engine

import (
	"log/slog"
	"time"

	"github.com/talkweave/engine/pkg/log"
)

// sweepLoop periodically resumes sessions whose delay has expired but
// whose in-process timer never fired, typically after a restart. The
// first pass runs immediately so recovery does not wait a full interval
func (e *Engine) sweepLoop() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.config.SweepInterval)
	defer ticker.Stop()

	e.sweep()
	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			e.sweep()
		}
	}
}

func (e *Engine) sweep() {
	ids, err := e.store.DueSessions(e.ctx, e.clock())
	if err != nil {
		slog.Warn("Delay sweep failed", log.Error(err))
		return
	}
	for _, id := range ids {
		if err := e.ResumeDelayed(e.ctx, id); err != nil {
			slog.Warn("Failed to resume due session",
				log.SessionID(id), log.Error(err))
		}
	}
}
