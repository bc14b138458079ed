package render

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"math"
	"strings"
	"testing"

	"github.com/TFMV/topicweb/graph"
	"github.com/TFMV/topicweb/interact"
	"github.com/TFMV/topicweb/models"
	"github.com/TFMV/topicweb/physics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testView(t *testing.T, edges []models.Edge) interact.View {
	t.Helper()
	ds := models.NewDataset(
		[]models.Node{
			{ID: "phage", Label: "Phage", Count: 40, Category: models.CategoryVirology},
			{ID: "genome", Label: "Genome", Count: 16, Category: models.CategoryMethods},
			{ID: "soil", Label: "Soil <wet>", Count: 8, Category: models.CategoryEnvironment},
		},
		edges,
		models.Stats{TotalPublications: 99},
	)
	snap := graph.New(ds.Nodes, ds.Edges, ds.Stats, 10)
	sim := physics.New(snap, physics.DefaultParams())
	sim.Settle(50)

	return interact.View{
		Generation: snap.Generation,
		Threshold:  10,
		Snapshot:   snap,
		Bodies:     sim.Bodies(),
		Transform:  interact.Identity(),
		Alpha:      sim.Alpha(),
	}
}

var twoEdges = []models.Edge{
	{Source: "phage", Target: "genome", Weight: 10},
	{Source: "soil", Target: "genome", Weight: 30},
}

func TestBuildFrameStyles(t *testing.T) {
	frame := BuildFrame(testView(t, twoEdges))

	require.Len(t, frame.Nodes, 3)
	require.Len(t, frame.Edges, 2)

	phage := frame.Nodes[0]
	assert.Equal(t, 32.0, phage.Radius)
	assert.Equal(t, "#e67e22", phage.Color)
	assert.Equal(t, 10.0, phage.FontSize)
	assert.Equal(t, 600, phage.FontWeight)
	assert.Equal(t, 1.0, phage.LabelOpacity)
	assert.Equal(t, NodeOpacity, phage.Opacity)
	assert.Contains(t, phage.Tooltip, "Mentioned in 40 publications")

	genome := frame.Nodes[1]
	assert.Equal(t, 400, genome.FontWeight)
	assert.Equal(t, 1.0, genome.LabelOpacity)

	soil := frame.Nodes[2]
	assert.Equal(t, 8.0, soil.Radius)
	assert.Equal(t, 0.7, soil.LabelOpacity)

	light, heavy := frame.Edges[0], frame.Edges[1]
	assert.Equal(t, MinEdgeWidth, light.Width)
	assert.Equal(t, MaxEdgeWidth, heavy.Width)
	assert.InDelta(t, MinEdgeOpacity, light.Opacity, 1e-9)
	assert.InDelta(t, MaxEdgeOpacity, heavy.Opacity, 1e-9)
	assert.Equal(t, models.CategoryEnvironment.Color(), heavy.Color, "edges take the source colour")

	assert.Equal(t, Summary{Topics: 3, Connections: 2, Publications: 99}, frame.Summary)
	assert.Len(t, frame.Legend, len(models.AllCategories()))
}

func TestBuildFrameHighlight(t *testing.T) {
	v := testView(t, []models.Edge{{Source: "phage", Target: "genome", Weight: 12}})
	v.Selected = "phage"
	v.Highlight = v.Snapshot.Neighborhood("phage")

	frame := BuildFrame(v)

	byID := map[string]NodeStyle{}
	for _, n := range frame.Nodes {
		byID[n.ID] = n
	}
	assert.Equal(t, 1.0, byID["phage"].Opacity)
	assert.Equal(t, SelectedStroke, byID["phage"].StrokeWidth)
	assert.Equal(t, 700, byID["phage"].FontWeight)
	assert.Equal(t, 1.0, byID["genome"].Opacity)
	assert.Equal(t, NodeStrokeWidth, byID["genome"].StrokeWidth)
	assert.Equal(t, DimmedNodeOpacity, byID["soil"].Opacity)
	assert.Equal(t, DimmedLabelOpacity, byID["soil"].LabelOpacity)
	assert.Equal(t, IncidentEdgeOpacity, frame.Edges[0].Opacity)
}

func TestBuildFrameDegenerateWeights(t *testing.T) {
	t.Run("no edges", func(t *testing.T) {
		frame := BuildFrame(testView(t, nil))
		assert.Empty(t, frame.Edges)
		for _, n := range frame.Nodes {
			assert.False(t, math.IsNaN(n.X) || math.IsNaN(n.Y))
		}
	})

	t.Run("single weight", func(t *testing.T) {
		frame := BuildFrame(testView(t, []models.Edge{{Source: "phage", Target: "genome", Weight: 12}}))
		require.Len(t, frame.Edges, 1)
		assert.Equal(t, (MinEdgeWidth+MaxEdgeWidth)/2, frame.Edges[0].Width)
		assert.False(t, math.IsNaN(frame.Edges[0].Opacity))
	})

	t.Run("empty view", func(t *testing.T) {
		frame := BuildFrame(interact.View{})
		assert.Empty(t, frame.Nodes)
		assert.Empty(t, frame.Edges)
	})
}

func TestRenderers(t *testing.T) {
	v := testView(t, twoEdges)
	v.Transform = interact.Identity().Translate(5, 5)

	t.Run("svg", func(t *testing.T) {
		out, err := View(v, NewDefaultOptions("svg"))
		require.NoError(t, err)
		svg := string(out)
		assert.True(t, strings.HasPrefix(svg, "<?xml"))
		assert.Contains(t, svg, `transform="translate(5,5) scale(1)"`)
		assert.Equal(t, 2, strings.Count(svg, "<line "))
		assert.Contains(t, svg, "Soil &lt;wet&gt;")
		assert.Contains(t, svg, "3 topics, 2 connections from 99 publications")
		assert.Equal(t, 3, strings.Count(svg, "<title>"))
		assert.Contains(t, svg, `data-id="soil"`)
	})

	t.Run("png", func(t *testing.T) {
		out, err := View(v, NewDefaultOptions("png"))
		require.NoError(t, err)

		img, err := png.Decode(bytes.NewReader(out))
		require.NoError(t, err)
		assert.Equal(t, image.Rect(0, 0, 1200, 800), img.Bounds())

		frame := BuildFrame(v)
		node := frame.Nodes[0]
		r, g, b, _ := img.At(px(node.X+5), px(node.Y+5)).RGBA()
		assert.False(t, r == 0xffff && g == 0xffff && b == 0xffff, "node centre is painted")

		r, g, b, _ = img.At(1199, 0).RGBA()
		assert.Equal(t, [3]uint32{0xffff, 0xffff, 0xffff}, [3]uint32{r, g, b}, "background is white")
	})

	t.Run("json", func(t *testing.T) {
		out, err := View(v, NewDefaultOptions("json"))
		require.NoError(t, err)

		var doc map[string]any
		require.NoError(t, json.Unmarshal(out, &doc))
		assert.Equal(t, v.Generation, doc["generation"])
		assert.Len(t, doc["nodes"], 3)
		assert.Equal(t, 1200.0, doc["width"])
	})

	t.Run("dot", func(t *testing.T) {
		out, err := View(v, NewDefaultOptions("dot"))
		require.NoError(t, err)
		assert.Contains(t, string(out), `"soil" -- "genome"`)
	})

	t.Run("ascii", func(t *testing.T) {
		out, err := View(v, NewDefaultOptions("ascii"))
		require.NoError(t, err)
		assert.Contains(t, string(out), "V")
		assert.Contains(t, string(out), "3 topics")
	})

	t.Run("formats resolve", func(t *testing.T) {
		for _, f := range Formats() {
			_, err := GetRenderer(f)
			assert.NoError(t, err, f)
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := GetRenderer("webgl")
		assert.Error(t, err)
	})
}

func TestParseHex(t *testing.T) {
	assert.Equal(t, color.NRGBA{R: 0xe6, G: 0x7e, B: 0x22, A: 0xff}, parseHex("#e67e22", 1))
	assert.Equal(t, color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0x80}, parseHex("#fff", 0.5))
	assert.Equal(t, color.NRGBA{A: 0xff}, parseHex("teal", 2))
}
