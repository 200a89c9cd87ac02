package engine_test

import (
	"testing"
	"time"

	"github.com/talkweave/engine/internal/assert"
	"github.com/talkweave/engine/internal/assert/helpers"
	"github.com/talkweave/engine/pkg/api"
)

func delayGraph(seconds int64) *api.GraphVersion {
	return helpers.Graph("g1", "v1").
		Start("start").
		Message("before", "Hold on").
		Node("wait", api.NodeDelay, api.NodeConfig{
			Delay: &api.DelayConfig{Duration: seconds},
		}).
		Message("after", "Thanks for waiting").
		End("end", "").
		Edge("start", "before").
		Edge("before", "wait").
		Edge("wait", "after").
		Edge("after", "end").
		Build()
}

func TestDelayPausesWithResumeAt(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEnv) {
		as := assert.New(t)

		env.PutGraph(t, delayGraph(5))
		env.Bot(t, "bot1", "g1")

		responses, err := env.Send("bot1", "conv1", "hi")
		as.NoError(err)
		as.ResponseText(responses, 0, "Hold on")

		sess := env.OpenSession(t, "bot1", "conv1")
		as.SessionStatus(sess, api.SessionPaused)
		as.SessionAt(sess, "wait")
		as.True(sess.ResumeAt.Equal(env.Clock.Now().Add(5 * time.Second)))
	})
}

func TestDelayResumeIdempotent(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEnv) {
		as := assert.New(t)

		env.PutGraph(t, delayGraph(5))
		env.Bot(t, "bot1", "g1")

		_, err := env.Send("bot1", "conv1", "hi")
		as.NoError(err)
		sess := env.OpenSession(t, "bot1", "conv1")

		// not due yet; the wake-up is a no-op
		as.NoError(env.Engine.ResumeDelayed(t.Context(), sess.ID))
		as.SessionStatus(env.Session(t, sess.ID), api.SessionPaused)

		env.Clock.Advance(6 * time.Second)

		// the timer and the sweep both land here; only one may resume
		as.NoError(env.Engine.ResumeDelayed(t.Context(), sess.ID))
		as.NoError(env.Engine.ResumeDelayed(t.Context(), sess.ID))

		as.Eventually(func() bool {
			return len(env.Delivered()) == 1
		}, 5*time.Second, "exactly one resumption should deliver")
		delivered := env.Delivered()
		as.Require.Len(delivered, 1)
		as.ResponseText(delivered[0], 0, "Thanks for waiting")
		as.SessionStatus(env.Session(t, sess.ID), api.SessionCompleted)
	})
}

func TestDelaySweepResumesDueSession(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEnv) {
		as := assert.New(t)

		env.PutGraph(t, delayGraph(5))
		env.Bot(t, "bot1", "g1")

		_, err := env.Send("bot1", "conv1", "hi")
		as.NoError(err)
		sess := env.OpenSession(t, "bot1", "conv1")

		env.Clock.Advance(6 * time.Second)

		as.Eventually(func() bool {
			return env.Session(t, sess.ID).Status == api.SessionCompleted
		}, 5*time.Second, "sweep should resume the due session")
		as.Require.Len(env.Delivered(), 1)
	})
}
