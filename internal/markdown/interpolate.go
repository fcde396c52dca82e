package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// Resolver maps an expression such as "site.title" to its value.
type Resolver func(expr string) (string, bool)

var (
	openDelim  = []byte("{{")
	closeDelim = []byte("}}")
)

// Elements whose text is never interpolated, regardless of markers.
var literalElements = map[string]bool{
	"pre":    true,
	"script": true,
	"style":  true,
}

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true,
}

// Interpolate expands {{ expr }} in the text of rendered HTML. Text inside an
// element carrying the marker attribute, or inside pre, script and style, is
// copied verbatim. Expressions the resolver does not know are left as they
// are.
func Interpolate(src []byte, marker string, resolve Resolver) []byte {
	if resolve == nil || !bytes.Contains(src, openDelim) {
		return src
	}

	z := html.NewTokenizer(bytes.NewReader(src))
	out := bytes.NewBuffer(make([]byte, 0, len(src)))

	var (
		literalTag string
		depth      int
	)
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			// io.EOF; the tokenizer never fails on a bytes.Reader otherwise.
			break
		}
		// TagName lower-cases the underlying buffer, so copy first.
		raw := append([]byte(nil), z.Raw()...)

		switch tt {
		case html.StartTagToken:
			name, hasAttr := z.TagName()
			tag := string(name)
			switch {
			case depth > 0:
				if tag == literalTag {
					depth++
				}
			case voidElements[tag]:
			case literalElements[tag] || (hasAttr && tagHasAttr(z, marker)):
				literalTag, depth = tag, 1
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if depth > 0 && string(name) == literalTag {
				depth--
			}
		case html.TextToken:
			if depth == 0 {
				out.Write(expand(raw, resolve))
				continue
			}
		}
		out.Write(raw)
	}
	return out.Bytes()
}

func tagHasAttr(z *html.Tokenizer, name string) bool {
	if name == "" {
		return false
	}
	for {
		key, _, more := z.TagAttr()
		if string(key) == name {
			return true
		}
		if !more {
			return false
		}
	}
}

func expand(text []byte, resolve Resolver) []byte {
	if !bytes.Contains(text, openDelim) {
		return text
	}
	var out bytes.Buffer
	for {
		start := bytes.Index(text, openDelim)
		if start < 0 {
			break
		}
		end := bytes.Index(text[start+len(openDelim):], closeDelim)
		if end < 0 {
			break
		}
		end += start + len(openDelim)

		out.Write(text[:start])
		expr := html.UnescapeString(strings.TrimSpace(string(text[start+len(openDelim) : end])))
		if v, ok := resolve(expr); ok {
			out.WriteString(html.EscapeString(v))
		} else {
			out.Write(text[start : end+len(closeDelim)])
		}
		text = text[end+len(closeDelim):]
	}
	out.Write(text)
	return out.Bytes()
}

// ScopeResolver resolves fixed variables from vars and front matter lookups of
// the form "frontmatter.key" (or "$frontmatter.key") from fm. Nested maps are
// walked with further dots. Only scalar values resolve.
func ScopeResolver(vars map[string]string, fm map[string]interface{}) Resolver {
	return func(expr string) (string, bool) {
		expr = strings.TrimPrefix(expr, "$")
		if v, ok := vars[expr]; ok {
			return v, true
		}
		key, ok := strings.CutPrefix(expr, "frontmatter.")
		if !ok || key == "" {
			return "", false
		}
		return lookup(fm, strings.Split(key, "."))
	}
}

func lookup(v interface{}, path []string) (string, bool) {
	for _, p := range path {
		switch m := v.(type) {
		case map[string]interface{}:
			v = m[p]
		case map[interface{}]interface{}:
			v = m[p]
		default:
			return "", false
		}
	}
	switch s := v.(type) {
	case nil:
		return "", false
	case string:
		return s, true
	case bool, int, int64, uint64, float64:
		return fmt.Sprint(s), true
	}
	return "", false
}
