// Package graph holds the filtered working graph that drives one simulation run.
package graph

import (
	"github.com/TFMV/topicweb/models"
	"github.com/google/uuid"
)

// Snapshot is an immutable filtered graph. A new one is built whenever the
// edge-weight threshold changes; it is never patched in place.
type Snapshot struct {
	Generation string
	Threshold  float64
	Nodes      []models.Node
	Edges      []models.Edge
	Stats      models.Stats

	index      map[string]int
	degree     map[string]int
	categories []models.Category
	minWeight  float64
	maxWeight  float64
}

// New creates a snapshot from already filtered nodes and edges. Edges whose
// endpoints are missing from nodes are dropped.
func New(nodes []models.Node, edges []models.Edge, stats models.Stats, threshold float64) *Snapshot {
	s := &Snapshot{
		Generation: uuid.New().String(),
		Threshold:  threshold,
		Nodes:      make([]models.Node, len(nodes)),
		Stats:      stats,
		index:      make(map[string]int, len(nodes)),
		degree:     make(map[string]int, len(nodes)),
	}
	copy(s.Nodes, nodes)

	seen := make(map[models.Category]bool)
	for i, node := range s.Nodes {
		s.index[node.ID] = i
		if !seen[node.Category] {
			seen[node.Category] = true
			s.categories = append(s.categories, node.Category)
		}
	}

	s.Edges = make([]models.Edge, 0, len(edges))
	for _, edge := range edges {
		if !s.Has(edge.Source) || !s.Has(edge.Target) {
			continue
		}
		if len(s.Edges) == 0 || edge.Weight < s.minWeight {
			s.minWeight = edge.Weight
		}
		if len(s.Edges) == 0 || edge.Weight > s.maxWeight {
			s.maxWeight = edge.Weight
		}
		s.degree[edge.Source]++
		s.degree[edge.Target]++
		s.Edges = append(s.Edges, edge)
	}

	return s
}

// Has reports whether a node with the given ID is part of the snapshot
func (s *Snapshot) Has(id string) bool {
	_, ok := s.index[id]
	return ok
}

// IndexOf returns the position of a node in Nodes
func (s *Snapshot) IndexOf(id string) (int, bool) {
	i, ok := s.index[id]
	return i, ok
}

// Node returns a node by ID
func (s *Snapshot) Node(id string) (models.Node, bool) {
	i, ok := s.index[id]
	if !ok {
		return models.Node{}, false
	}
	return s.Nodes[i], true
}

// Degree returns the number of edges incident to a node
func (s *Snapshot) Degree(id string) int {
	return s.degree[id]
}

// Categories returns the distinct categories in first-appearance order
func (s *Snapshot) Categories() []models.Category {
	out := make([]models.Category, len(s.categories))
	copy(out, s.categories)
	return out
}

// WeightExtent returns the minimum and maximum edge weight. ok is false when
// the snapshot has no edges.
func (s *Snapshot) WeightExtent() (lo, hi float64, ok bool) {
	if len(s.Edges) == 0 {
		return 0, 0, false
	}
	return s.minWeight, s.maxWeight, true
}

// Neighborhood returns the selected node plus every node sharing an edge with
// it, in either direction. Unknown IDs yield an empty set.
func (s *Snapshot) Neighborhood(id string) map[string]bool {
	set := make(map[string]bool)
	if !s.Has(id) {
		return set
	}
	set[id] = true
	for _, edge := range s.Edges {
		if edge.Source == id {
			set[edge.Target] = true
		}
		if edge.Target == id {
			set[edge.Source] = true
		}
	}
	return set
}

// Incident reports whether an edge touches the given node
func Incident(edge models.Edge, id string) bool {
	return edge.Source == id || edge.Target == id
}
