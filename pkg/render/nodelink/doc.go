// Package nodelink renders reference chains as node-link diagrams.
//
// # Overview
//
// Every holder on a chain becomes a box and every reference an arrow
// labeled with the field name. Holders shared by several chains appear
// once. GC roots are drawn as ellipses at the top, leaking instances are
// highlighted, and references matching an exclusion are dashed.
//
// # Usage
//
//	dot := nodelink.ToDOT(chains, nodelink.Options{Detailed: true})
//	svg, err := nodelink.RenderSVG(dot)
//	png, err := nodelink.RenderPNG(dot)
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process
// rendering; no Graphviz installation is needed.
package nodelink
