package api_test

import (
	"testing"

	"github.com/talkweave/engine/internal/assert"
	"github.com/talkweave/engine/pkg/api"
)

func loopGraph(withLoopback bool) *api.GraphVersion {
	edges := []*api.Edge{
		{Source: "start", Target: "loop"},
		{Source: "loop", Target: "body", Handle: api.HandleLoopBody},
		{Source: "loop", Target: "end", Handle: api.HandleDone},
	}
	if withLoopback {
		edges = append(edges, &api.Edge{Source: "body", Target: "loop"})
	}
	return &api.GraphVersion{
		ID: "v1",
		Nodes: []*api.Node{
			{ID: "start", Type: api.NodeStart},
			{ID: "loop", Type: api.NodeLoop},
			{ID: "body", Type: api.NodeMessage},
			{ID: "end", Type: api.NodeEnd},
		},
		Edges: edges,
	}
}

func TestGraphLookups(t *testing.T) {
	as := assert.New(t)
	g := loopGraph(true)

	n, ok := g.Node("loop")
	as.True(ok)
	as.Equal(api.NodeLoop, n.Type)

	_, ok = g.Node("missing")
	as.False(ok)

	start, ok := g.Start()
	as.True(ok)
	as.Equal(api.NodeID("start"), start.ID)

	as.Len(g.Outgoing("loop"), 2)

	e, ok := g.EdgeFrom("loop", api.HandleDone)
	as.True(ok)
	as.Equal(api.NodeID("end"), e.Target)

	_, ok = g.EdgeFrom("loop", api.HandleError)
	as.False(ok)

	first, ok := g.FirstEdge("start")
	as.True(ok)
	as.Equal(api.NodeID("loop"), first.Target)
}

func TestHasLoopback(t *testing.T) {
	as := assert.New(t)

	as.True(loopGraph(true).HasLoopback("loop"))

	// the entry edge targeting the loop node must not count
	as.False(loopGraph(false).HasLoopback("loop"))
}

func TestHasLoopbackIndirect(t *testing.T) {
	as := assert.New(t)

	g := loopGraph(false)
	g.Nodes = append(g.Nodes, &api.Node{ID: "inner", Type: api.NodeMessage})
	g.Edges = append(g.Edges,
		&api.Edge{Source: "body", Target: "inner"},
		&api.Edge{Source: "inner", Target: "loop"},
	)
	as.True(g.HasLoopback("loop"))
}
