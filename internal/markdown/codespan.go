package markdown

import (
	"bufio"
	"bytes"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
)

const codeOpenTag = "<code"

// literalCodeSpan replaces the inline code rule. It runs the html renderer's
// own code span function and adds the marker attribute to its opening tag.
type literalCodeSpan struct {
	attr string
	base renderer.NodeRendererFunc
}

func newLiteralCodeSpan(attr string, opts ...gmhtml.Option) *literalCodeSpan {
	capture := &funcCapture{kind: ast.KindCodeSpan}
	gmhtml.NewRenderer(opts...).RegisterFuncs(capture)
	return &literalCodeSpan{attr: attr, base: capture.fn}
}

// RegisterFuncs implements renderer.NodeRenderer.
func (r *literalCodeSpan) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindCodeSpan, r.render)
}

func (r *literalCodeSpan) render(w util.BufWriter, source []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return r.base(w, source, n, entering)
	}

	var buf bytes.Buffer
	bw := bufio.NewWriter(&buf)
	status, err := r.base(bw, source, n, entering)
	if err != nil {
		return status, err
	}
	if err := bw.Flush(); err != nil {
		return status, err
	}
	if _, err := w.Write(AddMarker(buf.Bytes(), r.attr)); err != nil {
		return status, err
	}
	return status, nil
}

// AddMarker inserts attr into the leading <code> tag of out. Output that does
// not start with a code tag, or whose tag already carries attr, is returned
// unchanged.
func AddMarker(out []byte, attr string) []byte {
	if attr == "" || !bytes.HasPrefix(out, []byte(codeOpenTag)) {
		return out
	}
	end := bytes.IndexByte(out, '>')
	if end < 0 {
		return out
	}
	rest := out[len(codeOpenTag):end]
	if len(rest) > 0 && rest[0] != ' ' && rest[0] != '/' {
		// <codex>, not a code element
		return out
	}
	if hasAttrName(rest, attr) {
		return out
	}

	marked := make([]byte, 0, len(out)+len(attr)+1)
	marked = append(marked, codeOpenTag...)
	marked = append(marked, ' ')
	marked = append(marked, attr...)
	marked = append(marked, out[len(codeOpenTag):]...)
	return marked
}

func hasAttrName(attrs []byte, name string) bool {
	for _, field := range bytes.Fields(attrs) {
		if i := bytes.IndexByte(field, '='); i >= 0 {
			field = field[:i]
		}
		if string(bytes.TrimSuffix(field, []byte("/"))) == name {
			return true
		}
	}
	return false
}

// funcCapture records the function a NodeRenderer registers for one kind.
type funcCapture struct {
	kind ast.NodeKind
	fn   renderer.NodeRendererFunc
}

func (c *funcCapture) Register(kind ast.NodeKind, fn renderer.NodeRendererFunc) {
	if kind == c.kind {
		c.fn = fn
	}
}
