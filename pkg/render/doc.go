// Package render exports animation graphs as diagrams.
//
// # Overview
//
// [ToDOT] turns a [graph.Snapshot] into Graphviz DOT source: one box per
// node, an arrow from every producer to its consumers, and a note shape for
// each view a Props node drives. [RenderSVG] lays the DOT out in process with
// go-graphviz; [ToPDF] and [ToPNG] convert the SVG with rsvg-convert.
//
//	dot := render.ToDOT(engine.Snapshot(), render.Options{ShowValues: true})
//	svg, err := render.RenderSVG(ctx, dot)
//	png, err := render.ToPNG(ctx, svg, 2.0)
//
// # Styling
//
// Node fill colors follow the role of the node:
//
//   - value and const nodes: light yellow
//   - sinks (props, event, always): light blue
//   - clocks: orange while running, grey when stopped
//   - nodes whose cached value is invalid: red outline
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering. PDF and PNG conversion requires librsvg (rsvg-convert).
package render
