// Package render turns leak reports into diagrams.
//
// The [nodelink] subpackage draws reference chains as Graphviz node-link
// diagrams. Chains that share holders are merged, so a report with many
// targets shows the retention tree rooted at each GC root.
//
//	dot := nodelink.ToDOT(chains, nodelink.Options{})
//	svg, err := nodelink.RenderSVG(dot)
//
// [nodelink]: github.com/matzehuels/leakpath/pkg/render/nodelink
package render
