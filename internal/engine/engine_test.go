package engine_test

import (
	"strings"
	"testing"

	"github.com/talkweave/engine/internal/assert"
	"github.com/talkweave/engine/internal/assert/helpers"
	"github.com/talkweave/engine/pkg/api"
)

func TestMessageInterpolationFlow(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEnv) {
		as := assert.New(t)

		env.PutGraph(t, helpers.Graph("g1", "v1").
			Start("start").
			Node("ask", api.NodeInput, api.NodeConfig{
				Input: &api.InputConfig{
					Prompt:   "Your name?",
					Variable: "name",
				},
			}).
			Message("hello", "Hello {{name}}").
			End("end", "").
			Edge("start", "ask").
			Edge("ask", "hello").
			Edge("hello", "end").
			Build())
		env.Bot(t, "bot1", "g1")

		responses, err := env.Send("bot1", "conv1", "hi there")
		as.NoError(err)
		as.ResponseText(responses, 0, "Your name?")

		sess := env.OpenSession(t, "bot1", "conv1")
		as.SessionStatus(sess, api.SessionPaused)
		as.SessionAt(sess, "ask")

		responses, err = env.Send("bot1", "conv1", "Abhi")
		as.NoError(err)
		as.ResponseText(responses, 0, "Hello Abhi")

		as.SessionStatus(env.Session(t, sess.ID), api.SessionCompleted)
	})
}

func TestUnexpectedTextFallback(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEnv) {
		as := assert.New(t)

		env.PutGraph(t, helpers.Graph("g1", "v1").
			Start("start").
			Node("wait", api.NodeDelay, api.NodeConfig{
				Delay: &api.DelayConfig{Duration: 60},
			}).
			End("end", "bye").
			Edge("start", "wait").
			Edge("wait", "end").
			Build())
		env.PutBot(t, &api.BotConfig{
			ID:        "bot1",
			MainGraph: "g1",
			Fallback:  "One moment please",
		})

		_, err := env.Send("bot1", "conv1", "hello")
		as.NoError(err)

		sess := env.OpenSession(t, "bot1", "conv1")
		as.SessionStatus(sess, api.SessionPaused)

		// free text during a delay draws the fallback without mutation
		responses, err := env.Send("bot1", "conv1", "are you there?")
		as.NoError(err)
		as.ResponseText(responses, 0, "One moment please")

		after := env.Session(t, sess.ID)
		as.SessionStatus(after, api.SessionPaused)
		as.Equal(sess.Revision, after.Revision)
	})
}

func TestRestartKeyword(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEnv) {
		as := assert.New(t)

		env.PutGraph(t, helpers.Graph("g1", "v1").
			Start("start").
			Node("pick", api.NodeButton, api.NodeConfig{
				Choice: &api.ChoiceConfig{
					Prompt: "Choose one",
					Options: []*api.ChoiceOption{
						{ID: "A", Label: "First"},
						{ID: "B", Label: "Second"},
					},
				},
			}).
			End("end", "").
			Edge("start", "pick").
			EdgeH("pick", "end", "A").
			EdgeH("pick", "end", "B").
			Build())
		env.Bot(t, "bot1", "g1", "hi")

		_, err := env.Send("bot1", "conv1", "hello")
		as.NoError(err)
		first := env.OpenSession(t, "bot1", "conv1")
		as.SessionStatus(first, api.SessionPaused)

		responses, err := env.Send("bot1", "conv1", "Hi")
		as.NoError(err)
		as.ResponseOptions(responses, 0, "A", "B")

		as.SessionStatus(env.Session(t, first.ID), api.SessionClosed)

		second := env.OpenSession(t, "bot1", "conv1")
		as.NotEqual(first.ID, second.ID)
		as.SessionStatus(second, api.SessionPaused)
		as.SessionAt(second, "pick")
	})
}

func TestDispatchIterationCap(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEnv) {
		as := assert.New(t)

		env.PutGraph(t, helpers.Graph("g1", "v1").
			Start("start").
			Message("m1", "ping").
			Message("m2", "pong").
			Edge("start", "m1").
			Edge("m1", "m2").
			Edge("m2", "m1").
			Build())
		env.Bot(t, "bot1", "g1")

		_, err := env.Send("bot1", "conv1", "go")
		as.Error(err)
		as.True(strings.Contains(err.Error(), "iteration cap"))

		// the FAILED session released its identity; the next event
		// starts over rather than sticking
		_, err = env.Send("bot1", "conv1", "go")
		as.Error(err)
	})
}

func TestImplicitCompletion(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEnv) {
		as := assert.New(t)

		// no END node; the dead-end after the message completes the flow
		env.PutGraph(t, helpers.Graph("g1", "v1").
			Start("start").
			Message("m1", "all done").
			Edge("start", "m1").
			Build())
		env.Bot(t, "bot1", "g1")

		responses, err := env.Send("bot1", "conv1", "go")
		as.NoError(err)
		as.ResponseText(responses, 0, "all done")

		_, err = env.Store.FindOpenSession(
			t.Context(), "bot1", "conv1",
		)
		as.Error(err)
	})
}

func TestEndNodeClose(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEnv) {
		as := assert.New(t)

		env.PutGraph(t, helpers.Graph("g1", "v1").
			Start("start").
			Node("end", api.NodeEnd, api.NodeConfig{
				End: &api.EndConfig{Text: "Goodbye", Close: true},
			}).
			Edge("start", "end").
			Build())
		env.Bot(t, "bot1", "g1")

		responses, err := env.Send("bot1", "conv1", "go")
		as.NoError(err)
		as.ResponseText(responses, 0, "Goodbye")
	})
}

func TestTestSessionUsesExplicitVersion(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEnv) {
		as := assert.New(t)

		env.PutGraph(t, helpers.Graph("g1", "v1").
			Start("start").
			Message("m1", "production").
			Edge("start", "m1").
			Build())
		env.PutGraph(t, helpers.Graph("g1", "v2").Draft().
			Start("start").
			Message("m1", "draft").
			Edge("start", "m1").
			Build())
		env.Bot(t, "bot1", "g1")

		responses, sess, err := env.Engine.StartTestSession(
			t.Context(), "bot1", "v2", "tester",
		)
		as.NoError(err)
		as.ResponseText(responses, 0, "draft")
		as.True(sess.IsTest)
	})
}
