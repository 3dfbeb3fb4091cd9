package graph

// Graph is the in-memory document: node list, id index, and normalized
// links. Order of Nodes and Links follows the input document, which is
// what fixes the emission order of validation findings.
type Graph struct {
	Nodes []*Node `json:"nodes"`
	Links []Link  `json:"links"`

	byID map[string]*Node
}

// New builds a Graph from nodes and links and indexes the nodes by id.
// Links referencing unknown nodes are kept: resolving them is the
// validation engine's job, not the store's.
func New(nodes []*Node, links []Link) *Graph {
	g := &Graph{
		Nodes: nodes,
		Links: links,
		byID:  make(map[string]*Node, len(nodes)),
	}
	for _, n := range nodes {
		g.byID[n.ID] = n
	}
	return g
}

// NodeByID returns the node with the given id, or nil.
func (g *Graph) NodeByID(id string) *Node {
	return g.byID[id]
}

// AddNode appends a node, replacing an existing node with the same id
// in place (same upsert rule the remote mutator uses).
func (g *Graph) AddNode(n *Node) {
	if _, ok := g.byID[n.ID]; ok {
		for i, existing := range g.Nodes {
			if existing.ID == n.ID {
				g.Nodes[i] = n
				break
			}
		}
	} else {
		g.Nodes = append(g.Nodes, n)
	}
	g.byID[n.ID] = n
}

// RemoveNode deletes the node and every link touching it. Returns true
// if the node existed.
func (g *Graph) RemoveNode(id string) bool {
	if _, ok := g.byID[id]; !ok {
		return false
	}
	delete(g.byID, id)

	nodes := g.Nodes[:0]
	for _, n := range g.Nodes {
		if n.ID != id {
			nodes = append(nodes, n)
		}
	}
	g.Nodes = nodes

	links := g.Links[:0]
	for _, l := range g.Links {
		if l.Source != id && l.Target != id {
			links = append(links, l)
		}
	}
	g.Links = links
	return true
}

// Clone returns a deep-enough copy for optimistic-rollback snapshots:
// the node and link slices are copied, node pointers are shared (remote
// mutations replace whole nodes, they never edit one in place).
func (g *Graph) Clone() *Graph {
	nodes := make([]*Node, len(g.Nodes))
	copy(nodes, g.Nodes)
	links := make([]Link, len(g.Links))
	copy(links, g.Links)
	return New(nodes, links)
}

// CPDs returns the product nodes in document order.
func (g *Graph) CPDs() []*Node {
	var out []*Node
	for _, n := range g.Nodes {
		if n.Type == NodeCPD {
			out = append(out, n)
		}
	}
	return out
}
