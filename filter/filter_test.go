package filter

import (
	"fmt"
	"testing"

	"github.com/TFMV/topicweb/models"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func edgeKeys(edges []models.Edge) map[string]bool {
	keys := make(map[string]bool, len(edges))
	for _, e := range edges {
		keys[e.Source+"->"+e.Target] = true
	}
	return keys
}

func nodeIDs(nodes []models.Node) []string {
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	return ids
}

func TestApplyThreeNodeScenario(t *testing.T) {
	ds := models.NewDataset(
		[]models.Node{
			{ID: "A", Count: 20, Category: models.CategoryVirology},
			{ID: "B", Count: 10, Category: models.CategoryMethods},
			{ID: "C", Count: 3, Category: models.CategoryOther},
		},
		[]models.Edge{
			{Source: "A", Target: "B", Weight: 15},
			{Source: "B", Target: "C", Weight: 4},
		},
		models.Stats{},
	)

	s := Apply(ds, DefaultOptions())

	assert.Equal(t, []string{"A", "B"}, nodeIDs(s.Nodes))
	require.Len(t, s.Edges, 1)
	assert.Equal(t, models.Edge{Source: "A", Target: "B", Weight: 15}, s.Edges[0])
	assert.Equal(t, 10.0, s.Threshold)
}

func TestApplyDenylist(t *testing.T) {
	ds := models.NewDataset(
		[]models.Node{
			{ID: "as well as", Count: 100},
			{ID: "amino acid", Count: 40},
			{ID: "bacteriophage", Count: 40},
		},
		[]models.Edge{
			{Source: "as well as", Target: "bacteriophage", Weight: 30},
		},
		models.Stats{},
	)

	s := Apply(ds, DefaultOptions())

	assert.Equal(t, []string{"bacteriophage"}, nodeIDs(s.Nodes))
	assert.Empty(t, s.Edges)
}

func TestApplyThresholdAboveEveryWeight(t *testing.T) {
	ds := models.NewDataset(
		[]models.Node{{ID: "a", Count: 9}, {ID: "b", Count: 9}},
		[]models.Edge{{Source: "a", Target: "b", Weight: 12}},
		models.Stats{},
	)

	s := Apply(ds, DefaultOptions().WithThreshold(30))

	assert.Len(t, s.Nodes, 2)
	assert.Empty(t, s.Edges)
	_, _, ok := s.WeightExtent()
	assert.False(t, ok)
}

func TestApplyIsPure(t *testing.T) {
	ds := models.NewDataset(
		[]models.Node{{ID: "a", Count: 9}, {ID: "b", Count: 9}, {ID: "c", Count: 1}},
		[]models.Edge{{Source: "a", Target: "b", Weight: 12}, {Source: "a", Target: "c", Weight: 40}},
		models.Stats{TotalPublications: 7},
	)

	first := Apply(ds, DefaultOptions())
	second := Apply(ds, DefaultOptions())

	assert.Equal(t, first.Nodes, second.Nodes)
	assert.Equal(t, first.Edges, second.Edges)
	assert.Equal(t, 7, first.Stats.TotalPublications)
	assert.Len(t, ds.Nodes, 3, "input must not be modified")
}

func TestApplyNilDataset(t *testing.T) {
	s := Apply(nil, DefaultOptions())
	assert.Empty(t, s.Nodes)
	assert.Empty(t, s.Edges)
}

func genDataset() gopter.Gen {
	return gopter.CombineGens(
		gen.SliceOfN(12, gen.IntRange(0, 15)),
		gen.SliceOf(gen.IntRange(0, 11)),
		gen.SliceOf(gen.Float64Range(1, 40)),
	).Map(func(values []interface{}) *models.Dataset {
		counts := values[0].([]int)
		ends := values[1].([]int)
		weights := values[2].([]float64)

		nodes := make([]models.Node, len(counts))
		for i, c := range counts {
			nodes[i] = models.Node{ID: fmt.Sprintf("k%d", i), Count: c}
		}
		var edges []models.Edge
		for i := 0; i+1 < len(ends) && i/2 < len(weights); i += 2 {
			edges = append(edges, models.Edge{
				Source: fmt.Sprintf("k%d", ends[i]),
				Target: fmt.Sprintf("k%d", ends[i+1]),
				Weight: weights[i/2],
			})
		}
		return models.NewDataset(nodes, edges, models.Stats{})
	})
}

func TestApplyProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("retained edges reference retained nodes", prop.ForAll(
		func(ds *models.Dataset, threshold float64) bool {
			s := Apply(ds, DefaultOptions().WithThreshold(threshold))
			for _, e := range s.Edges {
				if !s.Has(e.Source) || !s.Has(e.Target) {
					return false
				}
				if e.Weight < threshold {
					return false
				}
			}
			for _, n := range s.Nodes {
				if n.Count < DefaultMinCount {
					return false
				}
			}
			return true
		},
		genDataset(),
		gen.Float64Range(0, 40),
	))

	properties.Property("raising the threshold only removes edges", prop.ForAll(
		func(ds *models.Dataset, t1, delta float64) bool {
			low := edgeKeys(Apply(ds, DefaultOptions().WithThreshold(t1)).Edges)
			high := edgeKeys(Apply(ds, DefaultOptions().WithThreshold(t1+delta)).Edges)
			for k := range high {
				if !low[k] {
					return false
				}
			}
			return true
		},
		genDataset(),
		gen.Float64Range(0, 30),
		gen.Float64Range(0.01, 10),
	))

	properties.TestingRun(t)
}
