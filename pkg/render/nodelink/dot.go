package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/leakpath/pkg/chain"
	"github.com/matzehuels/leakpath/pkg/heap"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed adds the field dumps of each holder to its label.
	Detailed bool
}

type edge struct {
	from, to string
	label    string
	excluded string // exclusion matching, empty for clean references
}

// ToDOT converts chains to Graphviz DOT. Nodes keep the order in which the
// chains first mention them, so the output is deterministic.
func ToDOT(chains []*chain.Chain, opts Options) string {
	var (
		nodes     []string
		nodeAttrs = make(map[string][]string)
		edges     []edge
		seenEdge  = make(map[edge]bool)
	)
	addNode := func(id string, attrs []string) {
		if _, ok := nodeAttrs[id]; ok {
			return
		}
		nodes = append(nodes, id)
		nodeAttrs[id] = attrs
	}
	addEdge := func(e edge) {
		if !seenEdge[e] {
			seenEdge[e] = true
			edges = append(edges, e)
		}
	}

	for _, c := range chains {
		if c == nil || len(c.Elements) == 0 {
			continue
		}
		root := rootID(c.RootKind)
		addNode(root, []string{
			fmt.Sprintf("label=%q", "GC ROOT\n"+c.RootKind.String()),
			"shape=ellipse", "fillcolor=lightgrey",
		})
		prev := root
		var prevRef *chain.Reference
		var prevExcl string
		for i, el := range c.Elements {
			id := nodeID(el.ObjectID)
			addNode(id, fmtAttrs(el, i == len(c.Elements)-1, opts.Detailed))
			e := edge{from: prev, to: id, excluded: prevExcl}
			if prevRef != nil {
				e.label = prevRef.Name
			}
			addEdge(e)
			prev, prevRef, prevExcl = id, el.Reference, ""
			if el.Exclusion != nil {
				prevExcl = el.Exclusion.Matching
			}
		}
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  edge [fontsize=12];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for _, id := range nodes {
		fmt.Fprintf(&buf, "  %q [%s];\n", id, strings.Join(nodeAttrs[id], ", "))
	}

	buf.WriteString("\n")
	for _, e := range edges {
		var attrs []string
		if e.label != "" {
			attrs = append(attrs, fmt.Sprintf("label=%q", e.label))
		}
		if e.excluded != "" {
			attrs = append(attrs, "style=dashed", fmt.Sprintf("tooltip=%q", "matching exclusion "+e.excluded))
		}
		if len(attrs) == 0 {
			fmt.Fprintf(&buf, "  %q -> %q;\n", e.from, e.to)
			continue
		}
		fmt.Fprintf(&buf, "  %q -> %q [%s];\n", e.from, e.to, strings.Join(attrs, ", "))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func rootID(k heap.RootKind) string {
	return "root:" + k.String()
}

func nodeID(id heap.ObjID) string {
	return "obj:" + strconv.FormatUint(uint64(id), 10)
}

func fmtLabel(el chain.Element, detailed bool) string {
	lines := []string{fmt.Sprintf("%s@%d", el.ClassName, el.ObjectID)}
	if el.Holder == chain.HolderClass {
		lines[0] = "class " + el.ClassName
	}
	if el.Extra != "" {
		lines = append(lines, el.Extra)
	}
	if detailed {
		lines = append(lines, el.Fields...)
	}
	return strings.Join(lines, "\n")
}

func fmtAttrs(el chain.Element, target, detailed bool) []string {
	attrs := []string{fmt.Sprintf("label=%q", fmtLabel(el, detailed))}
	switch {
	case target:
		attrs = append(attrs, "fillcolor=lightpink", "penwidth=2")
	case el.Holder == chain.HolderThread:
		attrs = append(attrs, "fillcolor=lightyellow")
	case el.Holder == chain.HolderClass:
		attrs = append(attrs, "fillcolor=lightblue")
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(dot string) ([]byte, error) {
	out, err := render(dot, graphviz.SVG)
	if err != nil {
		return nil, err
	}
	return normalizeViewBox(out), nil
}

// RenderPNG renders a DOT graph to PNG using Graphviz.
func RenderPNG(dot string) ([]byte, error) {
	return render(dot, graphviz.PNG)
}

func render(dot string, format graphviz.Format) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's point-based svg element with one
// whose viewBox starts at the origin, so the diagram scales in browsers.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
