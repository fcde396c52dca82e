// Package markdown turns docs pages into HTML.
//
// Rendering is goldmark with GFM and automatic heading IDs. Inline code spans
// go through a hook that marks the <code> element with a literal attribute
// (v-pre by default) so that {{ }} expressions inside it are left alone by
// Interpolate and by any client-side templating that honours the marker.
package markdown

import (
	"bytes"
	"fmt"
	"html/template"
	"io"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
)

// DefaultLiteralAttr is the attribute that disables {{ }} interpolation.
const DefaultLiteralAttr = "v-pre"

// Options configures a Renderer.
type Options struct {
	// LiteralCodeAttr is added to every inline <code> element. Empty disables
	// the inline code hook entirely.
	LiteralCodeAttr string
	HardWraps       bool
}

// Renderer converts markdown to HTML. It is safe for concurrent use.
type Renderer struct {
	md goldmark.Markdown
}

// New builds a Renderer. The inline code hook is registered here, once, and
// only read afterwards.
func New(opts Options) *Renderer {
	var (
		htmlOpts     []gmhtml.Option
		rendererOpts []renderer.Option
	)
	if opts.HardWraps {
		hw := gmhtml.WithHardWraps()
		htmlOpts = append(htmlOpts, hw)
		rendererOpts = append(rendererOpts, hw)
	}
	if opts.LiteralCodeAttr != "" {
		hook := newLiteralCodeSpan(opts.LiteralCodeAttr, htmlOpts...)
		rendererOpts = append(rendererOpts, renderer.WithNodeRenderers(util.Prioritized(hook, 100)))
	}

	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(rendererOpts...),
	)
	return &Renderer{md: md}
}

// Convert writes the HTML for source to w.
func (r *Renderer) Convert(source []byte, w io.Writer) error {
	if err := r.md.Convert(source, w); err != nil {
		return fmt.Errorf("convert markdown: %w", err)
	}
	return nil
}

// Render returns the HTML for source.
func (r *Renderer) Render(source []byte) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.Convert(source, &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}
