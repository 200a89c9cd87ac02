package engine_test

import (
	"testing"

	"github.com/talkweave/engine/internal/assert"
	"github.com/talkweave/engine/internal/assert/helpers"
	"github.com/talkweave/engine/pkg/api"
)

func mainWithSubflow(sub api.GraphID) *api.GraphVersion {
	return helpers.Graph("main", "main-v1").
		Start("start").
		Node("collect", api.NodeSubflow, api.NodeConfig{
			Subflow: &api.SubflowConfig{Graph: sub},
		}).
		Message("after", "Back in main").
		End("end", "").
		Edge("start", "collect").
		Edge("collect", "after").
		Edge("after", "end").
		Build()
}

func TestSubflowCallAndReturn(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEnv) {
		as := assert.New(t)

		env.PutGraph(t, mainWithSubflow("address"))
		env.PutGraph(t, helpers.Graph("address", "addr-v1").
			Start("start").
			Node("ask", api.NodeInput, api.NodeConfig{
				Input: &api.InputConfig{
					Prompt:   "Street?",
					Variable: "street",
				},
			}).
			Message("thanks", "Saved {{street}}").
			Edge("start", "ask").
			Edge("ask", "thanks").
			Build())
		env.Bot(t, "bot1", "main")

		responses, err := env.Send("bot1", "conv1", "hi")
		as.NoError(err)
		as.ResponseText(responses, 0, "Street?")

		// paused inside the subflow, one frame deep
		sess := env.OpenSession(t, "bot1", "conv1")
		as.SessionStatus(sess, api.SessionPaused)
		as.Equal(api.VersionID("addr-v1"), sess.Version)
		as.Require.Len(sess.CallStack, 1)
		as.Equal(api.VersionID("main-v1"), sess.CallStack[0].Version)
		as.Equal(api.NodeID("after"), sess.CallStack[0].ReturnNode)

		// the subflow's dead-end pops the frame back into the parent
		responses, err = env.Send("bot1", "conv1", "10 Downing St")
		as.NoError(err)
		as.ResponseText(responses, 0, "Saved 10 Downing St")
		as.ResponseText(responses, 1, "Back in main")

		final := env.Session(t, sess.ID)
		as.SessionStatus(final, api.SessionCompleted)
		as.Empty(final.CallStack)
	})
}

func TestSubflowRequiresProductionVersion(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEnv) {
		as := assert.New(t)

		env.PutGraph(t, mainWithSubflow("address"))
		env.PutGraph(t, helpers.Graph("address", "addr-v1").Draft().
			Start("start").
			Message("m", "never deployed").
			Edge("start", "m").
			Build())
		env.Bot(t, "bot1", "main")

		// a draft-only target is an engine fault, not a silent skip
		_, err := env.Send("bot1", "conv1", "hi")
		as.Error(err)
	})
}

func TestSubflowVariablesSpanFlows(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEnv) {
		as := assert.New(t)

		env.PutGraph(t, helpers.Graph("main", "main-v1").
			Start("start").
			Node("collect", api.NodeSubflow, api.NodeConfig{
				Subflow: &api.SubflowConfig{Graph: "naming"},
			}).
			Message("after", "Welcome back, {{name}}").
			End("end", "").
			Edge("start", "collect").
			Edge("collect", "after").
			Edge("after", "end").
			Build())
		env.PutGraph(t, helpers.Graph("naming", "nm-v1").
			Start("start").
			Node("ask", api.NodeInput, api.NodeConfig{
				Input: &api.InputConfig{
					Prompt:   "Name?",
					Variable: "name",
				},
			}).
			Edge("start", "ask").
			Build())
		env.Bot(t, "bot1", "main")

		_, err := env.Send("bot1", "conv1", "hi")
		as.NoError(err)

		// the variable written inside the subflow is visible after return
		responses, err := env.Send("bot1", "conv1", "Abhi")
		as.NoError(err)
		as.ResponseText(responses, 0, "Welcome back, Abhi")
	})
}
