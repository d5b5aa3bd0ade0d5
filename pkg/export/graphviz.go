package export

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"
)

// RenderDOT renders DOT text to the given Graphviz output format.
func RenderDOT(ctx context.Context, dot string, format graphviz.Format) ([]byte, error) {
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

// RenderGraphvizSVG lays out and renders the DOT form of a scene as SVG.
func RenderGraphvizSVG(ctx context.Context, dot string) ([]byte, error) {
	return RenderDOT(ctx, dot, graphviz.SVG)
}

// RenderGraphvizPNG lays out and renders the DOT form of a scene as PNG.
func RenderGraphvizPNG(ctx context.Context, dot string) ([]byte, error) {
	return RenderDOT(ctx, dot, graphviz.PNG)
}
