package render

import (
	"fmt"

	"github.com/TFMV/topicweb/graph"
	"github.com/TFMV/topicweb/interact"
	"github.com/TFMV/topicweb/models"
	"github.com/TFMV/topicweb/physics"
)

// Presentation constants of the keyword network
const (
	NodeOpacity       = 0.9
	NodeStroke        = "#1a1a1a"
	NodeStrokeWidth   = 2.0
	SelectedStroke    = 4.0
	DimmedNodeOpacity = 0.15

	LabelColor         = "#1a1a1a"
	LabelOffset        = 6.0
	DimmedLabelOpacity = 0.1

	IncidentEdgeOpacity = 0.9
	DimmedEdgeOpacity   = 0.03

	MinEdgeWidth   = 1.0
	MaxEdgeWidth   = 8.0
	MinEdgeOpacity = 0.15
	MaxEdgeOpacity = 0.6
)

// NodeStyle is a positioned, styled node
type NodeStyle struct {
	ID           string          `json:"id"`
	Label        string          `json:"label"`
	Category     models.Category `json:"category"`
	Count        int             `json:"count"`
	X            float64         `json:"x"`
	Y            float64         `json:"y"`
	Radius       float64         `json:"radius"`
	Color        string          `json:"color"`
	Opacity      float64         `json:"opacity"`
	StrokeWidth  float64         `json:"strokeWidth"`
	FontSize     float64         `json:"fontSize"`
	FontWeight   int             `json:"fontWeight"`
	LabelOpacity float64         `json:"labelOpacity"`
	Pinned       bool            `json:"pinned,omitempty"`
	Tooltip      string          `json:"tooltip"`
}

// EdgeStyle is a positioned, styled edge
type EdgeStyle struct {
	Source  string  `json:"source"`
	Target  string  `json:"target"`
	Weight  float64 `json:"weight"`
	X1      float64 `json:"x1"`
	Y1      float64 `json:"y1"`
	X2      float64 `json:"x2"`
	Y2      float64 `json:"y2"`
	Width   float64 `json:"width"`
	Opacity float64 `json:"opacity"`
	Color   string  `json:"color"`
}

// LegendEntry describes one category swatch
type LegendEntry struct {
	Category models.Category `json:"category"`
	Label    string          `json:"label"`
	Color    string          `json:"color"`
	Count    int             `json:"count"`
}

// Summary is the line shown under the network
type Summary struct {
	Topics       int `json:"topics"`
	Connections  int `json:"connections"`
	Publications int `json:"publications"`
}

func (s Summary) String() string {
	return fmt.Sprintf("%d topics, %d connections from %d publications", s.Topics, s.Connections, s.Publications)
}

// Frame is everything needed to draw one tick of the network
type Frame struct {
	Generation string             `json:"generation"`
	Threshold  float64            `json:"threshold"`
	Alpha      float64            `json:"alpha"`
	Stable     bool               `json:"stable"`
	Selected   string             `json:"selected,omitempty"`
	Transform  interact.Transform `json:"transform"`
	Nodes      []NodeStyle        `json:"nodes"`
	Edges      []EdgeStyle        `json:"edges"`
	Legend     []LegendEntry      `json:"legend"`
	Summary    Summary            `json:"summary"`
}

// BuildFrame styles the current view. It only reads the view.
func BuildFrame(v interact.View) *Frame {
	snap := v.Snapshot
	if snap == nil {
		snap = graph.New(nil, nil, models.Stats{}, v.Threshold)
	}

	positions := make(map[string]physics.Body, len(v.Bodies))
	for _, b := range v.Bodies {
		positions[b.ID] = b
	}

	highlighting := v.Selected != ""

	frame := &Frame{
		Generation: v.Generation,
		Threshold:  v.Threshold,
		Alpha:      v.Alpha,
		Stable:     v.Stable,
		Selected:   v.Selected,
		Transform:  v.Transform,
		Nodes:      make([]NodeStyle, 0, len(snap.Nodes)),
		Edges:      make([]EdgeStyle, 0, len(snap.Edges)),
		Summary: Summary{
			Topics:       len(snap.Nodes),
			Connections:  len(snap.Edges),
			Publications: snap.Stats.TotalPublications,
		},
	}

	for _, n := range snap.Nodes {
		b := positions[n.ID]
		style := NodeStyle{
			ID:           n.ID,
			Label:        n.Label,
			Category:     n.Category,
			Count:        n.Count,
			X:            b.X,
			Y:            b.Y,
			Radius:       n.Radius(),
			Color:        n.Category.Color(),
			Opacity:      NodeOpacity,
			StrokeWidth:  NodeStrokeWidth,
			FontSize:     labelFontSize(n.Count),
			FontWeight:   labelFontWeight(n.Count),
			LabelOpacity: labelOpacity(n.Count),
			Pinned:       b.Pinned(),
			Tooltip: fmt.Sprintf("%s\nMentioned in %d publications\nCategory: %s",
				n.Label, n.Count, n.Category.Label()),
		}
		if highlighting {
			if v.Highlight[n.ID] {
				style.Opacity = 1
				style.LabelOpacity = 1
			} else {
				style.Opacity = DimmedNodeOpacity
				style.LabelOpacity = DimmedLabelOpacity
			}
			if n.ID == v.Selected {
				style.StrokeWidth = SelectedStroke
				style.FontWeight = 700
			}
		}
		frame.Nodes = append(frame.Nodes, style)
	}

	lo, hi, _ := snap.WeightExtent()
	width := physics.NewLinearScale(lo, hi, MinEdgeWidth, MaxEdgeWidth)
	opacity := physics.NewLinearScale(lo, hi, MinEdgeOpacity, MaxEdgeOpacity)

	for _, e := range snap.Edges {
		src, tgt := positions[e.Source], positions[e.Target]
		style := EdgeStyle{
			Source:  e.Source,
			Target:  e.Target,
			Weight:  e.Weight,
			X1:      src.X,
			Y1:      src.Y,
			X2:      tgt.X,
			Y2:      tgt.Y,
			Width:   width.Map(e.Weight),
			Opacity: opacity.Map(e.Weight),
			Color:   models.CategoryOther.Color(),
		}
		if n, ok := snap.Node(e.Source); ok {
			style.Color = n.Category.Color()
		}
		if highlighting {
			if graph.Incident(e, v.Selected) {
				style.Opacity = IncidentEdgeOpacity
			} else {
				style.Opacity = DimmedEdgeOpacity
			}
		}
		frame.Edges = append(frame.Edges, style)
	}

	counts := make(map[models.Category]int)
	for _, n := range snap.Nodes {
		counts[n.Category]++
	}
	for _, c := range models.AllCategories() {
		frame.Legend = append(frame.Legend, LegendEntry{
			Category: c,
			Label:    c.Label(),
			Color:    c.Color(),
			Count:    counts[c],
		})
	}

	return frame
}

func labelFontSize(count int) float64 {
	return max(10, min(14, float64(count)/5))
}

func labelFontWeight(count int) int {
	if count > 30 {
		return 600
	}
	return 400
}

func labelOpacity(count int) float64 {
	if count > 15 {
		return 1
	}
	return 0.7
}
