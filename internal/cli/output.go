package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/matzehuels/leakpath/pkg/analysis"
	"github.com/matzehuels/leakpath/pkg/chain"
	"github.com/matzehuels/leakpath/pkg/errors"
	"github.com/matzehuels/leakpath/pkg/render/nodelink"
)

// Output formats.
const (
	formatText = "text"
	formatJSON = "json"
	formatDOT  = "dot"
	formatSVG  = "svg"
	formatPNG  = "png"
)

var validFormats = []string{formatText, formatJSON, formatDOT, formatSVG, formatPNG}

// fileOnlyFormats cannot be written to a terminal.
var fileOnlyFormats = map[string]bool{formatSVG: true, formatPNG: true}

// parseFormats parses the --format flag. If empty, defaults to text.
func parseFormats(s string) ([]string, error) {
	if s == "" {
		return []string{formatText}, nil
	}
	var formats []string
	for _, f := range strings.Split(s, ",") {
		f = strings.ToLower(strings.TrimSpace(f))
		if !slices.Contains(validFormats, f) {
			return nil, errors.New(errors.ErrCodeInvalidFormat, "invalid format %q (must be one of %s)", f, strings.Join(validFormats, ", "))
		}
		if !slices.Contains(formats, f) {
			formats = append(formats, f)
		}
	}
	return formats, nil
}

// basePath derives the base of output file names. Without --output it is
// the snapshot path with ".leaks" in place of the extension; a format
// extension on output is stripped.
func basePath(output, input string) string {
	if output == "" {
		return strings.TrimSuffix(input, filepath.Ext(input)) + ".leaks"
	}
	ext := filepath.Ext(output)
	if slices.Contains(validFormats, strings.TrimPrefix(ext, ".")) {
		return strings.TrimSuffix(output, ext)
	}
	return output
}

// outputPath returns where format goes, or "" for c.out. A single format
// goes to output itself when given; text, JSON and DOT alone default to
// stdout.
func outputPath(format string, formats []string, input, output string) string {
	if len(formats) == 1 {
		if output != "" {
			return output
		}
		if !fileOnlyFormats[format] {
			return ""
		}
	}
	return basePath(output, input) + "." + format
}

// writeOutputs renders the report in every format.
func (c *CLI) writeOutputs(ctx context.Context, r *analysis.Report, formats []string, input, output string, detailed bool) error {
	logger := loggerFromContext(ctx)
	for _, format := range formats {
		data, err := renderReport(r, format, detailed)
		if err != nil {
			return fmt.Errorf("%s: %w", format, err)
		}
		logger.Debug("rendered report", "format", format, "bytes", len(data))

		path := outputPath(format, formats, input, output)
		if path == "" {
			if _, err := c.out.Write(data); err != nil {
				return err
			}
			continue
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return err
		}
		printFile(path)
	}
	return nil
}

// renderReport encodes the report in one format.
func renderReport(r *analysis.Report, format string, detailed bool) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case formatText:
		if err := writeText(&buf, r, detailed); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case formatJSON:
		if err := analysis.WriteJSON(&buf, r); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	dot := nodelink.ToDOT(chainsOf(r), nodelink.Options{Detailed: detailed})
	switch format {
	case formatDOT:
		return []byte(dot), nil
	case formatSVG:
		return nodelink.RenderSVG(dot)
	case formatPNG:
		return nodelink.RenderPNG(dot)
	}
	return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported format %q", format)
}

// writeText writes the leak traces, followed by the field dumps of each
// holder when detailed.
func writeText(w io.Writer, r *analysis.Report, detailed bool) error {
	if err := analysis.WriteText(w, r); err != nil {
		return err
	}
	if !detailed {
		return nil
	}
	for _, l := range r.Found() {
		fmt.Fprintf(w, "\nFields along the chain of %s@%d:\n", l.ClassName, l.Target)
		for _, el := range l.Chain.Elements {
			fmt.Fprintf(w, "  %s@%d\n", el.ClassName, el.ObjectID)
			for _, f := range el.Fields {
				if _, err := fmt.Fprintf(w, "    %s\n", f); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func chainsOf(r *analysis.Report) []*chain.Chain {
	var chains []*chain.Chain
	for _, l := range r.Found() {
		chains = append(chains, l.Chain)
	}
	return chains
}
