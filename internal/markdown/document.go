package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/adrg/frontmatter"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// SplitFrontmatter separates the front matter block from the markdown body.
// When the block cannot be decoded the whole input is returned as the body
// together with the decode error, so callers can warn and carry on.
func SplitFrontmatter(data []byte) (map[string]interface{}, []byte, error) {
	fm := make(map[string]interface{})
	body, err := frontmatter.Parse(bytes.NewReader(data), &fm)
	if err != nil {
		return make(map[string]interface{}), data, fmt.Errorf("parse front matter: %w", err)
	}
	return fm, body, nil
}

// FrontmatterString returns fm[key] when it is a non-empty string.
func FrontmatterString(fm map[string]interface{}, key string) string {
	if s, ok := fm[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// FrontmatterNumber returns fm[key] as a float when it holds a number.
func FrontmatterNumber(fm map[string]interface{}, key string) (float64, bool) {
	switch v := fm[key].(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

// FirstHeading returns the plain text of the first heading of the given level,
// or "" when the document has none.
func FirstHeading(source []byte, level int) string {
	doc := goldmark.DefaultParser().Parse(text.NewReader(source))

	var title string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if h, ok := n.(*ast.Heading); ok && h.Level == level {
			title = plainText(h, source)
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(title)
}

func plainText(n ast.Node, source []byte) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(source))
			if t.SoftLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		case *ast.RawHTML:
			// dropped
		default:
			b.WriteString(plainText(c, source))
		}
	}
	return b.String()
}
