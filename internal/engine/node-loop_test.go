package engine_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/talkweave/engine/internal/assert"
	"github.com/talkweave/engine/internal/assert/helpers"
	"github.com/talkweave/engine/internal/client"
	"github.com/talkweave/engine/pkg/api"
)

// loopTestGraph seeds the loop source from a scripted API response, runs
// the body once per item and announces completion
func loopTestGraph(loop *api.LoopConfig) *api.GraphVersion {
	return helpers.Graph("g1", "v1").
		Start("start").
		Node("fetch", api.NodeAPI, api.NodeConfig{
			API: &api.APIConfig{
				Method: "GET",
				URL:    "https://api.example.com/items",
				Extract: []*api.ExtractMapping{
					{Path: "items", Variable: "items"},
				},
			},
		}).
		Node("each", api.NodeLoop, api.NodeConfig{Loop: loop}).
		Message("say", "Item: {{item}}").
		Message("done", "All done").
		End("end", "").
		Edge("start", "fetch").
		Edge("fetch", "each").
		EdgeH("each", "say", api.HandleLoopBody).
		Edge("say", "each").
		EdgeH("each", "done", api.HandleDone).
		Edge("done", "end").
		Build()
}

func itemTexts(responses []*api.OutboundResponse) []string {
	var res []string
	for _, r := range responses {
		res = append(res, r.Content)
	}
	return res
}

func TestLoopForEach(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEnv) {
		as := assert.New(t)

		env.Caller.Respond(200, `{"items":["a","b","c","d","e"]}`)
		env.PutGraph(t, loopTestGraph(&api.LoopConfig{
			Mode:          api.LoopForEach,
			Source:        "items",
			ItemVar:       "item",
			MaxIterations: 3,
		}))
		env.Bot(t, "bot1", "g1")

		// five items but a cap of three; the body runs exactly thrice
		responses, err := env.Send("bot1", "conv1", "go")
		as.NoError(err)
		as.Equal(
			[]string{"Item: a", "Item: b", "Item: c", "All done"},
			itemTexts(responses),
		)
	})
}

func TestLoopForEachEmptySource(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEnv) {
		as := assert.New(t)

		env.Caller.Respond(200, `{"items":[]}`)
		env.PutGraph(t, loopTestGraph(&api.LoopConfig{
			Mode:    api.LoopForEach,
			Source:  "items",
			ItemVar: "item",
		}))
		env.Bot(t, "bot1", "g1")

		responses, err := env.Send("bot1", "conv1", "go")
		as.NoError(err)
		as.Equal([]string{"All done"}, itemTexts(responses))
	})
}

func TestLoopForEachExtractField(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEnv) {
		as := assert.New(t)

		env.Caller.Respond(200,
			`{"items":[{"name":"ada"},{"name":"grace"}]}`)
		env.PutGraph(t, loopTestGraph(&api.LoopConfig{
			Mode:         api.LoopForEach,
			Source:       "items",
			ItemVar:      "item",
			ExtractField: "name",
		}))
		env.Bot(t, "bot1", "g1")

		responses, err := env.Send("bot1", "conv1", "go")
		as.NoError(err)
		as.Equal(
			[]string{"Item: ada", "Item: grace", "All done"},
			itemTexts(responses),
		)
	})
}

func TestLoopCountBased(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEnv) {
		as := assert.New(t)

		env.PutGraph(t, helpers.Graph("g1", "v1").
			Start("start").
			Node("count", api.NodeLoop, api.NodeConfig{
				Loop: &api.LoopConfig{
					Mode:       api.LoopCount,
					Count:      3,
					Start:      10,
					Step:       5,
					CounterVar: "n",
				},
			}).
			Message("say", "n={{n}}").
			Message("done", "Counting finished").
			End("end", "").
			Edge("start", "count").
			EdgeH("count", "say", api.HandleLoopBody).
			Edge("say", "count").
			EdgeH("count", "done", api.HandleDone).
			Edge("done", "end").
			Build())
		env.Bot(t, "bot1", "g1")

		responses, err := env.Send("bot1", "conv1", "go")
		as.NoError(err)
		as.Equal(
			[]string{"n=10", "n=15", "n=20", "Counting finished"},
			itemTexts(responses),
		)
	})
}

// conditionLoopGraph wires a CONDITION_BASED loop whose body sends a
// message on every pass
func conditionLoopGraph(loop *api.LoopConfig) *api.GraphVersion {
	return helpers.Graph("g1", "v1").
		Start("start").
		Node("while", api.NodeLoop, api.NodeConfig{Loop: loop}).
		Message("say", "Working").
		Message("done", "All done").
		End("end", "").
		Edge("start", "while").
		EdgeH("while", "say", api.HandleLoopBody).
		Edge("say", "while").
		EdgeH("while", "done", api.HandleDone).
		Edge("done", "end").
		Build()
}

func TestLoopConditionBased(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEnv) {
		as := assert.New(t)

		// loop_count carries the completed pass count, so the condition
		// holds for the first three iterations and then fails
		env.PutGraph(t, conditionLoopGraph(&api.LoopConfig{
			Mode:       api.LoopCondition,
			Expression: "{{loop_count}} < 3",
		}))
		env.Bot(t, "bot1", "g1")

		responses, err := env.Send("bot1", "conv1", "go")
		as.NoError(err)
		as.Equal(
			[]string{"Working", "Working", "Working", "All done"},
			itemTexts(responses),
		)
	})
}

func TestLoopConditionIterationCap(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEnv) {
		as := assert.New(t)

		// an always-true condition still stops at max_iterations
		env.PutGraph(t, conditionLoopGraph(&api.LoopConfig{
			Mode:          api.LoopCondition,
			Expression:    "go == go",
			MaxIterations: 4,
		}))
		env.Bot(t, "bot1", "g1")

		responses, err := env.Send("bot1", "conv1", "go")
		as.NoError(err)
		as.Equal(
			[]string{"Working", "Working", "Working", "Working", "All done"},
			itemTexts(responses),
		)
	})
}

func TestLoopConditionUnsetVariableExits(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEnv) {
		as := assert.New(t)

		// an unset variable makes the condition false, ending the loop
		// rather than failing the session
		env.PutGraph(t, conditionLoopGraph(&api.LoopConfig{
			Mode:       api.LoopCondition,
			Expression: "{{never_set}} == go",
		}))
		env.Bot(t, "bot1", "g1")

		responses, err := env.Send("bot1", "conv1", "go")
		as.NoError(err)
		as.Equal([]string{"All done"}, itemTexts(responses))
	})
}

func TestLoopForEachAccumulatesResults(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEnv) {
		as := assert.New(t)

		// the seed call returns the items; every body call returns a
		// distinct value for the result source variable
		var workCalls int
		env.Caller.Handle(func(
			req *client.CallRequest,
		) (*client.CallResult, error) {
			if strings.HasSuffix(req.URL, "/items") {
				return &client.CallResult{
					StatusCode: 200,
					Body:       []byte(`{"items":["a","b"]}`),
				}, nil
			}
			workCalls++
			return &client.CallResult{
				StatusCode: 200,
				Body:       []byte(fmt.Sprintf(`{"value":"r%d"}`, workCalls)),
			}, nil
		})

		env.PutGraph(t, helpers.Graph("g1", "v1").
			Start("start").
			Node("fetch", api.NodeAPI, api.NodeConfig{
				API: &api.APIConfig{
					Method: "GET",
					URL:    "https://api.example.com/items",
					Extract: []*api.ExtractMapping{
						{Path: "items", Variable: "items"},
					},
				},
			}).
			Node("each", api.NodeLoop, api.NodeConfig{
				Loop: &api.LoopConfig{
					Mode:         api.LoopForEach,
					Source:       "items",
					ItemVar:      "item",
					ResultSource: "res",
					ResultVar:    "results",
				},
			}).
			Node("work", api.NodeAPI, api.NodeConfig{
				API: &api.APIConfig{
					Method: "GET",
					URL:    "https://api.example.com/work/{{item}}",
					Extract: []*api.ExtractMapping{
						{Path: "value", Variable: "res"},
					},
				},
			}).
			Message("done", "All done").
			Node("hold", api.NodeInput, api.NodeConfig{
				Input: &api.InputConfig{
					Prompt:   "Anything else?",
					Variable: "more",
				},
			}).
			Edge("start", "fetch").
			Edge("fetch", "each").
			EdgeH("each", "work", api.HandleLoopBody).
			Edge("work", "each").
			EdgeH("each", "done", api.HandleDone).
			Edge("done", "hold").
			Build())
		env.Bot(t, "bot1", "g1")

		responses, err := env.Send("bot1", "conv1", "go")
		as.NoError(err)
		as.Equal([]string{"All done", "Anything else?"}, itemTexts(responses))

		// each pass's result source value lands in the result array
		sess := env.OpenSession(t, "bot1", "conv1")
		vars := env.SessionVars(t, sess.ID)
		as.VarEquals(vars, "results", []any{"r1", "r2"})
	})
}

func TestLoopWithoutLoopbackExitsEarly(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEnv) {
		as := assert.New(t)

		env.Caller.Respond(200, `{"items":["a","b"]}`)

		// the body never leads back to the loop node; rather than run a
		// single orphaned pass the loop exits straight to done
		env.PutGraph(t, helpers.Graph("g1", "v1").
			Start("start").
			Node("fetch", api.NodeAPI, api.NodeConfig{
				API: &api.APIConfig{
					Method: "GET",
					URL:    "https://api.example.com/items",
					Extract: []*api.ExtractMapping{
						{Path: "items", Variable: "items"},
					},
				},
			}).
			Node("each", api.NodeLoop, api.NodeConfig{
				Loop: &api.LoopConfig{
					Mode:    api.LoopForEach,
					Source:  "items",
					ItemVar: "item",
				},
			}).
			Message("say", "Item: {{item}}").
			Message("done", "All done").
			End("end", "").
			Edge("start", "fetch").
			Edge("fetch", "each").
			EdgeH("each", "say", api.HandleLoopBody).
			EdgeH("each", "done", api.HandleDone).
			Edge("say", "end").
			Edge("done", "end").
			Build())
		env.Bot(t, "bot1", "g1")

		responses, err := env.Send("bot1", "conv1", "go")
		as.NoError(err)
		as.Equal([]string{"All done"}, itemTexts(responses))
	})
}
