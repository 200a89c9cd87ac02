package api

type (
	// NodeType is the closed set of node behaviors the engine dispatches on
	NodeType string

	// Handle qualifies an outgoing edge of a multi-branch node
	Handle string

	// Node is one typed step in a graph. Position and label are
	// presentation-only and never reach the engine
	Node struct {
		ID     NodeID     `json:"node_id"`
		Type   NodeType   `json:"type"`
		Config NodeConfig `json:"config"`
	}

	// Edge is a directed link between two nodes, optionally qualified by a
	// handle when the source node branches
	Edge struct {
		ID     string `json:"edge_id,omitempty"`
		Source NodeID `json:"source_node_id"`
		Target NodeID `json:"target_node_id"`
		Handle Handle `json:"source_handle,omitempty"`
	}

	// GraphVersion is one immutable version of a flow graph. Deploying
	// creates a new production version; versions are never edited in place
	GraphVersion struct {
		ID         VersionID `json:"id"`
		Graph      GraphID   `json:"graph_id"`
		Number     int       `json:"version_number"`
		Production bool      `json:"is_production"`
		Nodes      []*Node   `json:"nodes"`
		Edges      []*Edge   `json:"edges"`
	}
)

const (
	NodeStart     NodeType = "START"
	NodeMessage   NodeType = "MESSAGE"
	NodeButton    NodeType = "BUTTON"
	NodeList      NodeType = "LIST"
	NodeInput     NodeType = "INPUT"
	NodeCondition NodeType = "CONDITION"
	NodeDelay     NodeType = "DELAY"
	NodeAPI       NodeType = "API"
	NodeAI        NodeType = "AI"
	NodeLoop      NodeType = "LOOP"
	NodeEnd       NodeType = "END"
	NodeSubflow   NodeType = "GOTO_SUBFLOW"
)

const (
	HandleTrue     Handle = "true"
	HandleFalse    Handle = "false"
	HandleSuccess  Handle = "success"
	HandleError    Handle = "error"
	HandleLoopBody Handle = "loop-body"
	HandleDone     Handle = "done"
)

// Node returns the node with the given id
func (g *GraphVersion) Node(id NodeID) (*Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return nil, false
}

// Start returns the graph's entry node
func (g *GraphVersion) Start() (*Node, bool) {
	for _, n := range g.Nodes {
		if n.Type == NodeStart {
			return n, true
		}
	}
	return nil, false
}

// Outgoing returns all edges leaving the given node
func (g *GraphVersion) Outgoing(id NodeID) []*Edge {
	var res []*Edge
	for _, e := range g.Edges {
		if e.Source == id {
			res = append(res, e)
		}
	}
	return res
}

// EdgeFrom returns the edge leaving the node with the given handle
func (g *GraphVersion) EdgeFrom(id NodeID, handle Handle) (*Edge, bool) {
	for _, e := range g.Edges {
		if e.Source == id && e.Handle == handle {
			return e, true
		}
	}
	return nil, false
}

// FirstEdge returns the first edge leaving the node regardless of handle
func (g *GraphVersion) FirstEdge(id NodeID) (*Edge, bool) {
	for _, e := range g.Edges {
		if e.Source == id {
			return e, true
		}
	}
	return nil, false
}

// HasLoopback reports whether some node reachable from the loop's body
// edge links back to the loop node itself. A loop without one cannot
// iterate safely and must exit early
func (g *GraphVersion) HasLoopback(loop NodeID) bool {
	body, ok := g.EdgeFrom(loop, HandleLoopBody)
	if !ok {
		return false
	}
	seen := map[NodeID]bool{loop: true}
	queue := []NodeID{body.Target}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if seen[id] {
			continue
		}
		seen[id] = true
		for _, e := range g.Outgoing(id) {
			if e.Target == loop {
				return true
			}
			queue = append(queue, e.Target)
		}
	}
	return false
}
