package ffmpeg

import (
	"fmt"
	"strings"
)

// FilterBuilder constructs a simple comma-joined -vf/-af filter chain
type FilterBuilder struct {
	filters []string
}

// NewFilterBuilder creates a new filter builder
func NewFilterBuilder() *FilterBuilder {
	return &FilterBuilder{
		filters: make([]string, 0),
	}
}

// ScalePad letterboxes the input into width x height, preserving aspect
// ratio with centered padding.
func (fb *FilterBuilder) ScalePad(width, height int) *FilterBuilder {
	if width <= 0 || height <= 0 {
		return fb
	}
	fb.filters = append(fb.filters,
		fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease", width, height),
		fmt.Sprintf("pad=%d:%d:(ow-iw)/2:(oh-ih)/2", width, height))
	return fb
}

// Scale adds a plain scale filter
func (fb *FilterBuilder) Scale(width, height int) *FilterBuilder {
	if width <= 0 || height <= 0 {
		return fb
	}
	fb.filters = append(fb.filters, fmt.Sprintf("scale=%d:%d", width, height))
	return fb
}

// FPS forces a constant frame rate
func (fb *FilterBuilder) FPS(fps float64) *FilterBuilder {
	if fps <= 0 {
		return fb
	}
	fb.filters = append(fb.filters, fmt.Sprintf("fps=%g", fps))
	return fb
}

// Volume applies a linear volume multiplier
func (fb *FilterBuilder) Volume(multiplier float64) *FilterBuilder {
	fb.filters = append(fb.filters, fmt.Sprintf("volume=%.3f", multiplier))
	return fb
}

// Custom adds a custom filter string
func (fb *FilterBuilder) Custom(filter string) *FilterBuilder {
	fb.filters = append(fb.filters, filter)
	return fb
}

// Build returns the complete filter string joined with commas
func (fb *FilterBuilder) Build() string {
	if len(fb.filters) == 0 {
		return ""
	}
	return strings.Join(fb.filters, ",")
}

// Graph builds a -filter_complex graph as named operations over labeled
// input/output pads. Chains are joined with semicolons in insertion order.
type Graph struct {
	chains []string
}

// NewGraph creates an empty filter graph
func NewGraph() *Graph {
	return &Graph{}
}

// Chain appends one filter chain, formatted printf-style, e.g.
// Chain("[0:v][ovr]overlay=%d:%d[vout]", x, y).
func (g *Graph) Chain(format string, args ...interface{}) *Graph {
	g.chains = append(g.chains, fmt.Sprintf(format, args...))
	return g
}

// String returns the assembled filter_complex expression
func (g *Graph) String() string {
	return strings.Join(g.chains, ";")
}
