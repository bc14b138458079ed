package models

import (
	"math"
	"strings"
	"time"
)

const (
	minRadius = 8.0
	maxRadius = 35.0
)

// ParseCategory normalises a raw category name, falling back to CategoryOther
func ParseCategory(s string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := categories[c]; ok {
		return c
	}
	return CategoryOther
}

// Label returns the display name of the category
func (c Category) Label() string {
	if info, ok := categories[c]; ok {
		return info.label
	}
	return categories[CategoryOther].label
}

// Color returns the hex colour of the category
func (c Category) Color() string {
	if info, ok := categories[c]; ok {
		return info.color
	}
	return categories[CategoryOther].color
}

// AllCategories returns every known category in legend order
func AllCategories() []Category {
	out := make([]Category, len(legendOrder))
	copy(out, legendOrder)
	return out
}

// VisualSize returns the node size, using the mention count when no size was given
func (n Node) VisualSize() float64 {
	if n.Size > 0 {
		return n.Size
	}
	return float64(n.Count)
}

// Radius returns the drawn circle radius of the node
func (n Node) Radius() float64 {
	return math.Max(minRadius, math.Min(maxRadius, n.VisualSize()*0.8))
}

// NewDataset creates a dataset and normalises node categories
func NewDataset(nodes []Node, edges []Edge, stats Stats) *Dataset {
	ds := &Dataset{
		Nodes:    make([]Node, len(nodes)),
		Edges:    make([]Edge, len(edges)),
		Stats:    stats,
		LoadedAt: time.Now(),
	}
	copy(ds.Nodes, nodes)
	copy(ds.Edges, edges)
	ds.Normalize()
	return ds
}

// Normalize fills labels and maps unknown categories to CategoryOther
func (d *Dataset) Normalize() {
	for i := range d.Nodes {
		node := &d.Nodes[i]
		node.Category = ParseCategory(string(node.Category))
		if node.Label == "" {
			node.Label = node.ID
		}
	}
}

// DuplicateIDs returns node IDs that appear more than once
func (d *Dataset) DuplicateIDs() []string {
	seen := make(map[string]int, len(d.Nodes))
	var dups []string
	for _, node := range d.Nodes {
		seen[node.ID]++
		if seen[node.ID] == 2 {
			dups = append(dups, node.ID)
		}
	}
	return dups
}

// CategoryCounts returns how many nodes fall into each category
func (d *Dataset) CategoryCounts() map[Category]int {
	counts := make(map[Category]int)
	for _, node := range d.Nodes {
		counts[node.Category]++
	}
	return counts
}
