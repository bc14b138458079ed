// Package filter reduces a loaded keyword dataset to the working graph.
//
// Apply is pure: the same dataset and options always select the same nodes
// and edges. Only the snapshot generation ID differs between calls.
package filter

import (
	"github.com/TFMV/topicweb/graph"
	"github.com/TFMV/topicweb/models"
)

const (
	DefaultMinEdgeWeight = 10.0
	DefaultMinCount      = 6
)

// defaultExclude lists phrases extracted from abstracts that carry no topic
var defaultExclude = []string{
	"here we report", "here we present", "our findings", "our knowledge",
	"more than", "as well as", "some", "did not", "need to be", "in order to",
	"is available at", "available at https", "publicly available",
	"a wide range", "wide range of", "wide range", "a combination of",
	"of the phylum", "report the discovery", "closely related", "poorly understood",
	"species level", "relative abundance", "amino acid", "rrna gene",
}

// Options controls which nodes and edges survive filtering
type Options struct {
	MinEdgeWeight float64  `yaml:"min_edge_weight" toml:"min_edge_weight" validate:"gte=0"`
	MinCount      int      `yaml:"min_count" toml:"min_count" validate:"gte=6"`
	Exclude       []string `yaml:"exclude" toml:"exclude"`
}

// DefaultOptions returns the built-in thresholds and denylist
func DefaultOptions() Options {
	return Options{
		MinEdgeWeight: DefaultMinEdgeWeight,
		MinCount:      DefaultMinCount,
		Exclude:       DefaultExclude(),
	}
}

// DefaultExclude returns a copy of the built-in denylist
func DefaultExclude() []string {
	out := make([]string, len(defaultExclude))
	copy(out, defaultExclude)
	return out
}

// WithThreshold returns a copy of the options using a new minimum edge weight
func (o Options) WithThreshold(minEdgeWeight float64) Options {
	o.MinEdgeWeight = minEdgeWeight
	return o
}

// Apply filters the dataset. A node is kept when its count reaches MinCount
// and its ID is not excluded; an edge is kept when its weight reaches
// MinEdgeWeight and both of its endpoints were kept.
func Apply(ds *models.Dataset, opts Options) *graph.Snapshot {
	if ds == nil {
		return graph.New(nil, nil, models.Stats{}, opts.MinEdgeWeight)
	}

	excluded := make(map[string]bool, len(opts.Exclude))
	for _, phrase := range opts.Exclude {
		excluded[phrase] = true
	}

	nodes := ds.FilterNodes(func(n *models.Node) bool {
		return n.Count >= opts.MinCount && !excluded[n.ID]
	})

	kept := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		kept[n.ID] = true
	}

	edges := ds.FilterEdges(func(e *models.Edge) bool {
		return e.Weight >= opts.MinEdgeWeight && kept[e.Source] && kept[e.Target]
	})

	return graph.New(nodes, edges, ds.Stats, opts.MinEdgeWeight)
}
