package helpers

import (
	"github.com/talkweave/engine/pkg/api"
)

// GraphBuilder assembles graph versions for tests without the ceremony
// of literal node and edge slices
type GraphBuilder struct {
	gv *api.GraphVersion
}

// Graph starts a production graph version with the given ids
func Graph(graph api.GraphID, version api.VersionID) *GraphBuilder {
	return &GraphBuilder{
		gv: &api.GraphVersion{
			ID:         version,
			Graph:      graph,
			Number:     1,
			Production: true,
		},
	}
}

// Draft marks the version as non-production
func (b *GraphBuilder) Draft() *GraphBuilder {
	b.gv.Production = false
	return b
}

// Node adds a node of the given type and config
func (b *GraphBuilder) Node(
	id api.NodeID, typ api.NodeType, cfg api.NodeConfig,
) *GraphBuilder {
	b.gv.Nodes = append(b.gv.Nodes, &api.Node{
		ID:     id,
		Type:   typ,
		Config: cfg,
	})
	return b
}

// Start adds the entry node
func (b *GraphBuilder) Start(id api.NodeID) *GraphBuilder {
	return b.Node(id, api.NodeStart, api.NodeConfig{})
}

// Message adds a MESSAGE node with the given text
func (b *GraphBuilder) Message(id api.NodeID, text string) *GraphBuilder {
	return b.Node(id, api.NodeMessage, api.NodeConfig{
		Message: &api.MessageConfig{Text: text},
	})
}

// End adds an END node with an optional farewell
func (b *GraphBuilder) End(id api.NodeID, text string) *GraphBuilder {
	return b.Node(id, api.NodeEnd, api.NodeConfig{
		End: &api.EndConfig{Text: text},
	})
}

// Edge links two nodes without a handle
func (b *GraphBuilder) Edge(src, dst api.NodeID) *GraphBuilder {
	b.gv.Edges = append(b.gv.Edges, &api.Edge{
		Source: src,
		Target: dst,
	})
	return b
}

// EdgeH links two nodes with a source handle
func (b *GraphBuilder) EdgeH(
	src, dst api.NodeID, handle api.Handle,
) *GraphBuilder {
	b.gv.Edges = append(b.gv.Edges, &api.Edge{
		Source: src,
		Target: dst,
		Handle: handle,
	})
	return b
}

// Build returns the assembled graph version
func (b *GraphBuilder) Build() *api.GraphVersion {
	return b.gv
}
