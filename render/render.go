// Package render turns a layout view into styled frames and draws them as
// SVG, PNG, JSON, Graphviz DOT or ASCII.
package render

import (
	"fmt"
	"strings"

	"github.com/TFMV/topicweb/interact"
)

// Options defines rendering configuration
type Options struct {
	Format     string  // Output format (svg, png, json, dot, ascii)
	Width      float64 // Canvas width
	Height     float64 // Canvas height
	Background string  // Background color
	ShowLabels bool    // Draw node labels
	ShowLegend bool    // Draw the category legend and summary line
	Timestamp  bool    // Include the render time
}

// Renderer is implemented by every output backend
type Renderer interface {
	// Render draws a frame using the provided options
	Render(frame *Frame, options *Options) ([]byte, error)

	// Name returns the name of the renderer
	Name() string

	// ContentType returns the MIME type of the output
	ContentType() string
}

// NewDefaultOptions creates the options used by the service and CLI
func NewDefaultOptions(format string) *Options {
	return &Options{
		Format:     format,
		Width:      1200,
		Height:     800,
		Background: "#ffffff",
		ShowLabels: true,
		ShowLegend: true,
	}
}

// GetRenderer returns the renderer for a format name
func GetRenderer(format string) (Renderer, error) {
	switch strings.ToLower(format) {
	case "svg":
		return &SVGRenderer{}, nil
	case "png":
		return &PNGRenderer{}, nil
	case "json":
		return &JSONRenderer{}, nil
	case "dot":
		return &DOTRenderer{}, nil
	case "ascii", "txt":
		return &ASCIIRenderer{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// Formats lists the accepted format names
func Formats() []string {
	return []string{"svg", "png", "json", "dot", "ascii"}
}

// View builds a frame from v and draws it in options.Format
func View(v interact.View, options *Options) ([]byte, error) {
	renderer, err := GetRenderer(options.Format)
	if err != nil {
		return nil, err
	}
	return renderer.Render(BuildFrame(v), options)
}
