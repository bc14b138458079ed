package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/TFMV/topicweb/models"
)

// JSONRenderer outputs the frame as JSON
type JSONRenderer struct{}

// Name returns the name of the renderer
func (r *JSONRenderer) Name() string {
	return "JSON Renderer"
}

// ContentType returns the MIME type of the output
func (r *JSONRenderer) ContentType() string {
	return "application/json"
}

// Render marshals the frame with canvas metadata
func (r *JSONRenderer) Render(frame *Frame, options *Options) ([]byte, error) {
	doc := struct {
		*Frame
		Width      float64 `json:"width"`
		Height     float64 `json:"height"`
		Background string  `json:"background"`
		Timestamp  string  `json:"timestamp,omitempty"`
	}{
		Frame:      frame,
		Width:      options.Width,
		Height:     options.Height,
		Background: options.Background,
	}
	if options.Timestamp {
		doc.Timestamp = time.Now().Format(time.RFC3339)
	}
	return json.MarshalIndent(doc, "", "  ")
}

// DOTRenderer outputs Graphviz DOT format with pinned positions
type DOTRenderer struct{}

// Name returns the name of the renderer
func (r *DOTRenderer) Name() string {
	return "DOT Renderer"
}

// ContentType returns the MIME type of the output
func (r *DOTRenderer) ContentType() string {
	return "text/vnd.graphviz"
}

// Render creates an undirected DOT graph. Positions are in inches so
// `neato -n` reproduces the layout.
func (r *DOTRenderer) Render(frame *Frame, options *Options) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("graph topics {\n")
	fmt.Fprintf(&buf, "  graph [bgcolor=%q, size=\"%g,%g\"];\n",
		options.Background, options.Width/72.0, options.Height/72.0)
	buf.WriteString("  node [shape=circle, style=filled, fontname=\"Arial\"];\n")

	for _, n := range frame.Nodes {
		fmt.Fprintf(&buf, "  %q [label=%q, fillcolor=%q, width=%.3f, fontsize=%g, pos=\"%.2f,%.2f!\"];\n",
			n.ID, n.Label, n.Color, 2*n.Radius/72.0, n.FontSize, n.X/72.0, -n.Y/72.0)
	}
	for _, e := range frame.Edges {
		fmt.Fprintf(&buf, "  %q -- %q [color=%q, penwidth=%.2f, weight=%g];\n",
			e.Source, e.Target, e.Color, e.Width, e.Weight)
	}

	buf.WriteString("}\n")
	return buf.Bytes(), nil
}

// ASCIIRenderer draws the frame on a character grid for terminals
type ASCIIRenderer struct{}

// Name returns the name of the renderer
func (r *ASCIIRenderer) Name() string {
	return "ASCII Renderer"
}

// ContentType returns the MIME type of the output
func (r *ASCIIRenderer) ContentType() string {
	return "text/plain; charset=utf-8"
}

var categorySymbols = map[models.Category]rune{
	models.CategoryVirology:     'V',
	models.CategoryMicrobiology: 'M',
	models.CategoryMethods:      'G',
	models.CategoryEnvironment:  'E',
	models.CategoryBiothreat:    'B',
	models.CategoryOther:        'O',
}

const edgeRune = '·'

// Render projects layout coordinates onto the grid
func (r *ASCIIRenderer) Render(frame *Frame, options *Options) ([]byte, error) {
	width := max(int(options.Width/10), 40)
	height := max(int(options.Height/20), 20)

	grid := make([][]rune, height)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(" ", width))
	}

	for i := 0; i < width; i++ {
		grid[0][i] = '-'
		grid[height-1][i] = '-'
	}
	for i := 0; i < height; i++ {
		grid[i][0] = '|'
		grid[i][width-1] = '|'
	}
	grid[0][0], grid[0][width-1] = '+', '+'
	grid[height-1][0], grid[height-1][width-1] = '+', '+'

	project := func(x, y float64) (int, int) {
		gx := int(x*float64(width-2)/options.Width) + 1
		gy := int(y*float64(height-2)/options.Height) + 1
		return clamp(gx, 1, width-2), clamp(gy, 1, height-2)
	}

	for _, e := range frame.Edges {
		x1, y1 := project(e.X1, e.Y1)
		x2, y2 := project(e.X2, e.Y2)
		drawLine(grid, x1, y1, x2, y2)
	}

	for _, n := range frame.Nodes {
		x, y := project(n.X, n.Y)
		symbol, ok := categorySymbols[n.Category]
		if !ok {
			symbol = 'O'
		}
		grid[y][x] = symbol

		if options.ShowLabels && n.Label != "" && y+1 < height-1 {
			label := []rune(n.Label)
			for i := 0; i < len(label) && x+i < width-1; i++ {
				grid[y+1][x+i] = label[i]
			}
		}
	}

	var out strings.Builder
	for _, row := range grid {
		out.WriteString(string(row))
		out.WriteRune('\n')
	}
	if options.ShowLegend {
		out.WriteString(frame.Summary.String())
		out.WriteRune('\n')
	}
	return []byte(out.String()), nil
}

func clamp(val, lo, hi int) int {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}

// drawLine plots an edge with Bresenham's algorithm without overwriting
// anything already on the grid
func drawLine(grid [][]rune, x1, y1, x2, y2 int) {
	dx := abs(x2 - x1)
	dy := -abs(y2 - y1)
	sx, sy := 1, 1
	if x1 >= x2 {
		sx = -1
	}
	if y1 >= y2 {
		sy = -1
	}
	err := dx + dy

	for {
		if y1 >= 0 && y1 < len(grid) && x1 >= 0 && x1 < len(grid[y1]) && grid[y1][x1] == ' ' {
			grid[y1][x1] = edgeRune
		}
		if x1 == x2 && y1 == y2 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x1 += sx
		}
		if e2 <= dx {
			err += dx
			y1 += sy
		}
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
