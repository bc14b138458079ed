package render

import (
	"bytes"
	"fmt"
	"image/color"
	"strconv"
	"strings"
	"time"

	"git.sr.ht/~sbinet/gg"
)

// PNGRenderer rasterizes a frame. Labels use the built-in bitmap face, so
// font size and weight from the frame are not reproduced.
type PNGRenderer struct{}

// Name returns the name of the renderer
func (r *PNGRenderer) Name() string {
	return "PNG Renderer"
}

// ContentType returns the MIME type of the output
func (r *PNGRenderer) ContentType() string {
	return "image/png"
}

// Render draws edges, then nodes and labels under the view transform, and
// the legend and summary in screen space
func (r *PNGRenderer) Render(frame *Frame, options *Options) ([]byte, error) {
	width, height := px(options.Width), px(options.Height)
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid canvas size %dx%d", width, height)
	}

	dc := gg.NewContext(width, height)
	dc.SetColor(parseHex(options.Background, 1))
	dc.Clear()

	dc.Push()
	dc.Translate(frame.Transform.X, frame.Transform.Y)
	dc.Scale(frame.Transform.K, frame.Transform.K)

	dc.SetLineCapRound()
	for _, e := range frame.Edges {
		dc.SetColor(parseHex(e.Color, e.Opacity))
		dc.SetLineWidth(e.Width)
		dc.DrawLine(e.X1, e.Y1, e.X2, e.Y2)
		dc.Stroke()
	}

	for _, n := range frame.Nodes {
		dc.DrawCircle(n.X, n.Y, n.Radius)
		dc.SetColor(parseHex(n.Color, n.Opacity))
		dc.FillPreserve()
		dc.SetColor(parseHex(NodeStroke, n.Opacity))
		dc.SetLineWidth(n.StrokeWidth)
		dc.Stroke()
	}

	if options.ShowLabels {
		for _, n := range frame.Nodes {
			dc.SetColor(parseHex(LabelColor, n.LabelOpacity))
			dc.DrawStringAnchored(n.Label, n.X, n.Y-n.Radius-LabelOffset, 0.5, 0)
		}
	}
	dc.Pop()

	if options.ShowLegend {
		for i, entry := range frame.Legend {
			y := 20 + float64(i)*18
			dc.SetColor(parseHex(entry.Color, 1))
			dc.DrawCircle(16, y, 6)
			dc.Fill()
			dc.SetColor(parseHex(LabelColor, 1))
			dc.DrawStringAnchored(entry.Label, 28, y, 0, 0.35)
		}
		dc.SetColor(parseHex(LabelColor, 1))
		dc.DrawStringAnchored(frame.Summary.String(), options.Width-10, options.Height-10, 1, 0)
	}

	if options.Timestamp {
		dc.SetColor(color.RGBA{0x80, 0x80, 0x80, 0xff})
		dc.DrawString(time.Now().Format("2006-01-02 15:04:05"), 5, options.Height-5)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return buf.Bytes(), nil
}

// parseHex turns #rgb or #rrggbb into a colour with the given opacity.
// Anything else is drawn black.
func parseHex(s string, opacity float64) color.NRGBA {
	s = strings.TrimPrefix(s, "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	c := color.NRGBA{A: uint8(clamp01(opacity)*255 + 0.5)}
	if len(s) != 6 {
		return c
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return c
	}
	c.R, c.G, c.B = uint8(v>>16), uint8(v>>8), uint8(v)
	return c
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
