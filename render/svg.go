package render

import (
	"bytes"
	"fmt"
	"html"
	"math"
	"time"

	svg "github.com/ajstarks/svgo"
)

// SVGRenderer outputs SVG format
type SVGRenderer struct{}

// Name returns the name of the renderer
func (r *SVGRenderer) Name() string {
	return "SVG Renderer"
}

// ContentType returns the MIME type of the output
func (r *SVGRenderer) ContentType() string {
	return "image/svg+xml"
}

// Render creates an SVG document. Edges are drawn below nodes, and the pan
// and zoom transform is applied to the layer holding both.
func (r *SVGRenderer) Render(frame *Frame, options *Options) ([]byte, error) {
	var buf bytes.Buffer
	width, height := px(options.Width), px(options.Height)

	canvas := svg.New(&buf)
	canvas.Startview(width, height, 0, 0, width, height)
	canvas.Rect(0, 0, width, height, "fill:"+options.Background)

	canvas.Group(`class="network"`, attr("transform", frame.Transform.String()))

	canvas.Group(`class="edges"`, "stroke-linecap:round")
	for _, e := range frame.Edges {
		canvas.Line(px(e.X1), px(e.Y1), px(e.X2), px(e.Y2),
			fmt.Sprintf("stroke:%s;stroke-width:%.2f;stroke-opacity:%.3f", e.Color, e.Width, e.Opacity))
	}
	canvas.Gend()

	canvas.Group(`class="nodes"`, "font-family:sans-serif;text-anchor:middle")
	for _, n := range frame.Nodes {
		canvas.Group(`class="node"`, attr("data-id", n.ID), attr("transform", fmt.Sprintf("translate(%.2f,%.2f)", n.X, n.Y)))
		canvas.Circle(0, 0, px(n.Radius),
			fmt.Sprintf("fill:%s;stroke:%s;stroke-width:%g;opacity:%g", n.Color, NodeStroke, n.StrokeWidth, n.Opacity))
		if options.ShowLabels {
			canvas.Text(0, px(-n.Radius-LabelOffset), n.Label,
				fmt.Sprintf("fill:%s;font-size:%gpx;font-weight:%d;opacity:%g", LabelColor, n.FontSize, n.FontWeight, n.LabelOpacity))
		}
		canvas.Title(n.Tooltip)
		canvas.Gend()
	}
	canvas.Gend()

	canvas.Gend()

	if options.ShowLegend {
		writeLegend(canvas, frame, width, height)
	}

	if options.Timestamp {
		canvas.Text(5, height-5, time.Now().Format("2006-01-02 15:04:05"),
			"font-family:sans-serif;font-size:8px;fill:#808080")
	}

	canvas.End()
	return buf.Bytes(), nil
}

func writeLegend(canvas *svg.SVG, frame *Frame, width, height int) {
	canvas.Group(`class="legend"`, "font-family:sans-serif;font-size:11px")
	for i, entry := range frame.Legend {
		y := 20 + i*18
		canvas.Circle(16, y, 6, "fill:"+entry.Color)
		canvas.Text(28, y+4, entry.Label, "fill:"+LabelColor)
	}
	canvas.Gend()

	canvas.Text(width-10, height-10, frame.Summary.String(),
		`class="stats"`, fmt.Sprintf("text-anchor:end;font-family:sans-serif;font-size:12px;fill:%s", LabelColor))
}

// attr formats an XML attribute; svgo escapes element text but not
// attribute values
func attr(name, value string) string {
	return fmt.Sprintf(`%s="%s"`, name, html.EscapeString(value))
}

func px(v float64) int {
	return int(math.Round(v))
}
