package cmd

import (
	"bytes"
	"context"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/TFMV/topicweb/config"
	"github.com/TFMV/topicweb/ingest"
	"github.com/TFMV/topicweb/interact"
	"github.com/TFMV/topicweb/models"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const networkDoc = `{
	"nodes": [
		{"id": "phage", "label": "Phage", "category": "virology", "count": 40},
		{"id": "genome", "label": "Genome", "category": "methods", "count": 25},
		{"id": "soil", "label": "Soil", "category": "environment", "count": 12}
	],
	"edges": [
		{"source": "phage", "target": "genome", "weight": 22},
		{"source": "genome", "target": "soil", "weight": 11}
	],
	"stats": {"total_publications": 120}
}`

func testDataset() *models.Dataset {
	return models.NewDataset(
		[]models.Node{
			{ID: "phage", Label: "Phage", Category: models.ParseCategory("virology"), Count: 40},
			{ID: "genome", Label: "Genome", Category: models.ParseCategory("methods"), Count: 25},
			{ID: "soil", Label: "Soil", Category: models.ParseCategory("environment"), Count: 12},
		},
		[]models.Edge{
			{Source: "phage", Target: "genome", Weight: 22},
			{Source: "genome", Target: "soil", Weight: 11},
		},
		models.Stats{TotalPublications: 120},
	)
}

func TestSweep(t *testing.T) {
	assert.Equal(t, []float64{5, 10, 15, 20, 25, 30}, sweep(5, 30, 5))
	assert.Equal(t, []float64{5, 12, 19, 26, 30}, sweep(5, 30, 7))
	assert.Equal(t, []float64{10}, sweep(10, 10, 5))

	fine := sweep(0, 1, 0.1)
	require.Len(t, fine, 11)
	assert.Equal(t, 1.0, fine[10])
	for i, v := range fine {
		assert.InDelta(t, float64(i)*0.1, v, 1e-12)
	}
}

func TestSettle(t *testing.T) {
	cfg := config.Default()
	ds := testDataset()

	view, err := settle(ds, cfg, 10, 50, "", zap.NewNop())
	require.NoError(t, err)
	assert.Len(t, view.Snapshot.Nodes, 3)
	assert.Len(t, view.Snapshot.Edges, 2)
	assert.Len(t, view.Bodies, 3)
	assert.Equal(t, view.Snapshot.Generation, view.Generation)
	assert.Empty(t, view.Highlight)

	view, err = settle(ds, cfg, 20, 50, "soil", zap.NewNop())
	require.NoError(t, err)
	assert.Len(t, view.Snapshot.Edges, 1)
	assert.Equal(t, map[string]bool{"soil": true}, view.Highlight)

	_, err = settle(ds, cfg, 40, 50, "", zap.NewNop())
	assert.ErrorIs(t, err, interact.ErrThresholdOutOfRange)

	_, err = settle(ds, cfg, 10, 50, "nope", zap.NewNop())
	assert.ErrorIs(t, err, interact.ErrUnknownNode)

	hidden := testDataset()
	hidden.Nodes[2].Count = 1
	_, err = settle(hidden, cfg, 10, 50, "soil", zap.NewNop())
	assert.ErrorContains(t, err, "filtered out")
}

func TestFilterAll(t *testing.T) {
	cfg := config.Default()
	snaps, err := filterAll(testDataset(), cfg.Filter, []float64{5, 15, 25})
	require.NoError(t, err)
	require.Len(t, snaps, 3)
	assert.Len(t, snaps[0].Edges, 2)
	assert.Len(t, snaps[1].Edges, 1)
	assert.Empty(t, snaps[2].Edges)
	for _, s := range snaps {
		assert.Len(t, s.Nodes, 3, "node visibility does not depend on the threshold")
	}
}

func TestTable(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	Table(&buf, []string{"A", "LONG"}, [][]string{{"wide cell", "x"}, {"y", "z"}})
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "  A          LONG", lines[0])
	assert.Equal(t, "  wide cell  x", lines[2])

	buf.Reset()
	Table(&buf, []string{"A"}, nil)
	assert.Empty(t, buf.String())
}

func TestRenderCommand(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "network.json")
	out := filepath.Join(dir, "graph.dot")
	require.NoError(t, os.WriteFile(data, []byte(networkDoc), 0o644))

	var stderr bytes.Buffer
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs([]string{"render", "-d", data, "-f", "dot", "-o", out, "--iterations", "20"})
	require.NoError(t, rootCmd.Execute())

	body, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(body), "graph topics")
	assert.Contains(t, stderr.String(), "3 topics, 2 connections from 120 publications")
}

func TestRenderCommandPNG(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "network.json")
	out := filepath.Join(dir, "graph.png")
	require.NoError(t, os.WriteFile(data, []byte(networkDoc), 0o644))

	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs([]string{"render", "-d", data, "-f", "png", "-o", out, "--iterations", "20"})
	require.NoError(t, rootCmd.Execute())

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Positive(t, img.Bounds().Dx())
}

func TestLoadDatasetStrict(t *testing.T) {
	path := filepath.Join(t.TempDir(), "network.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"nodes": [{"id": "a", "count": 7}], "extra": true}`), 0o644))

	cfg := config.Default()
	cfg.Dataset.Source = path

	ds, err := loadDataset(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Len(t, ds.Nodes, 1)

	cfg.Dataset.Strict = true
	_, err = loadDataset(context.Background(), cfg, zap.NewNop())
	assert.ErrorIs(t, err, ingest.ErrMalformed)
}
