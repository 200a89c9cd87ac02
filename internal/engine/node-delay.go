package engine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/talkweave/engine/internal/store"
	"github.com/talkweave/engine/pkg/api"
	"github.com/talkweave/engine/pkg/log"
)

// execDelay pauses the session until now plus the configured duration.
// Resumption re-enters this node with the resumed flag set, which routes
// straight to the successor instead of scheduling again
func (r *run) execDelay(node *api.Node) (*outcome, error) {
	if r.resumed {
		r.resumed = false
		return proceedTo(r.firstNext(node)), nil
	}

	cfg := node.Config.Delay
	if cfg == nil {
		return nil, ErrMissingConfig
	}
	r.session = r.session.SetResumeAt(r.e.clock().Add(cfg.Interval()))
	return pauseSession(), nil
}

func (e *Engine) scheduleResume(sess *api.Session) {
	id := sess.ID
	e.sched.Schedule(e.ctx, sessionPath(sess), sess.ResumeAt, func() error {
		return e.ResumeDelayed(e.ctx, id)
	})
}

// ResumeDelayed wakes a session paused on a delay node. The in-process
// timer and the store sweep both land here; the revision CAS on the
// wake-up write makes the race harmless, as the loser sees a conflict
// and backs off
func (e *Engine) ResumeDelayed(
	ctx context.Context, id api.SessionID,
) error {
	sess, err := e.store.GetSession(ctx, id)
	if errors.Is(err, store.ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if sess.Status != api.SessionPaused || sess.ResumeAt.IsZero() ||
		sess.ResumeAt.After(e.clock()) {
		return nil
	}

	awake := sess.
		SetStatus(api.SessionActive).
		ClearResumeAt().
		SetLastUpdated(e.clock())
	awake, err = e.store.UpdateSession(ctx, awake)
	if errors.Is(err, store.ErrConflict) {
		return nil
	}
	if err != nil {
		return err
	}
	slog.Debug("Resuming delayed session", log.SessionID(id))

	bot, err := e.store.GetBot(ctx, awake.Bot)
	if err != nil {
		return err
	}
	gv, err := e.store.GetGraphVersion(ctx, awake.Version)
	if err != nil {
		return err
	}
	r, err := e.newRun(ctx, bot, gv, awake, nil)
	if err != nil {
		return err
	}
	r.resumed = true

	err = r.dispatch()
	if len(r.responses) > 0 {
		e.respond(bot.ID, awake.Conversation, r.responses)
	}
	return err
}
