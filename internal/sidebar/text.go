package sidebar

import (
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TextOptions are the cosmetic rules applied to file and folder names.
type TextOptions struct {
	HyphenToSpace       bool `yaml:"hyphenToSpace"`
	UnderscoreToSpace   bool `yaml:"underscoreToSpace"`
	CapitalizeEachWords bool `yaml:"capitalizeEachWords"`
}

// Normalizer applies TextOptions. A cases.Caser keeps state between calls,
// so the normalizer serializes access to it.
type Normalizer struct {
	opts  TextOptions
	mu    sync.Mutex
	title cases.Caser
}

// Normalizer returns a Normalizer for o.
func (o TextOptions) Normalizer() *Normalizer {
	return &Normalizer{
		opts: o,
		// NoLower keeps acronyms such as "API" or "CTFd" intact.
		title: cases.Title(language.English, cases.NoLower),
	}
}

// Normalize renders name for display.
func (n *Normalizer) Normalize(name string) string {
	if n.opts.HyphenToSpace {
		name = strings.ReplaceAll(name, "-", " ")
	}
	if n.opts.UnderscoreToSpace {
		name = strings.ReplaceAll(name, "_", " ")
	}
	if n.opts.CapitalizeEachWords {
		n.mu.Lock()
		name = n.title.String(name)
		n.mu.Unlock()
	}
	return name
}
