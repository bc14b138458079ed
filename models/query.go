package models

// NodeFilter is a function type used to filter nodes in queries
type NodeFilter func(node *Node) bool

// EdgeFilter is a function type used to filter edges in queries
type EdgeFilter func(edge *Edge) bool

// FilterNodes returns nodes that match the provided filter function
func (d *Dataset) FilterNodes(filter NodeFilter) []Node {
	var result []Node
	for i, node := range d.Nodes {
		if filter(&d.Nodes[i]) {
			result = append(result, node)
		}
	}
	return result
}

// FilterEdges returns edges that match the provided filter function
func (d *Dataset) FilterEdges(filter EdgeFilter) []Edge {
	var result []Edge
	for i, edge := range d.Edges {
		if filter(&d.Edges[i]) {
			result = append(result, edge)
		}
	}
	return result
}

// FindNodeByID returns a node by its ID
func (d *Dataset) FindNodeByID(id string) (*Node, bool) {
	for i := range d.Nodes {
		if d.Nodes[i].ID == id {
			return &d.Nodes[i], true
		}
	}
	return nil, false
}
