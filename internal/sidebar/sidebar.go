// Package sidebar derives a sidebar tree from the layout of a docs directory.
package sidebar

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"

	"github.com/osusec/beavercds-ng/internal/log"
	"github.com/osusec/beavercds-ng/internal/markdown"
	"github.com/osusec/beavercds-ng/internal/model"
)

// ErrRootNotFound is returned when the documentation root does not exist or
// is not a directory.
var ErrRootNotFound = errors.New("sidebar root not found")

// Options controls sidebar generation.
type Options struct {
	Root string `yaml:"root"`

	// Title sources, in precedence order: first H1, front matter title,
	// normalized file name.
	UseTitleFromFileHeading bool `yaml:"useTitleFromFileHeading"`
	UseTitleFromFrontmatter bool `yaml:"useTitleFromFrontmatter"`

	// UseFolderTitleFromIndexFile names a folder group after the title of
	// its index.md instead of the folder name.
	UseFolderTitleFromIndexFile bool `yaml:"useFolderTitleFromIndexFile"`

	TextOptions `yaml:",inline"`

	IncludeRootIndexFile   bool `yaml:"includeRootIndexFile"`
	IncludeFolderIndexFile bool `yaml:"includeFolderIndexFile"`

	// SortByOrder puts entries with a numeric front matter "order" first,
	// ascending, ahead of the name-sorted rest.
	SortByOrder bool `yaml:"sortByOrder"`

	Collapsed *bool `yaml:"collapsed,omitempty"`

	// Exclude holds doublestar patterns matched against slash paths relative
	// to Root.
	Exclude []string `yaml:"exclude,omitempty"`

	// AssetDir is a root-level directory of static files that is never
	// listed. Defaults to "public".
	AssetDir string `yaml:"assetDir,omitempty"`
}

// Generate walks opts.Root and returns its sidebar.
func Generate(opts Options) ([]model.SidebarItem, error) {
	info, err := os.Stat(opts.Root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrRootNotFound, opts.Root)
		}
		return nil, fmt.Errorf("stat sidebar root %s: %w", opts.Root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrRootNotFound, opts.Root)
	}
	return GenerateFS(os.DirFS(opts.Root), opts)
}

// GenerateFS is Generate over an arbitrary file system rooted at the docs root.
func GenerateFS(fsys fs.FS, opts Options) ([]model.SidebarItem, error) {
	for _, p := range opts.Exclude {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid exclude pattern %q", p)
		}
	}
	if opts.AssetDir == "" {
		opts.AssetDir = "public"
	}

	g := &generator{
		fsys:   fsys,
		opts:   opts,
		text:   opts.TextOptions.Normalizer(),
		logger: log.WithComponent("sidebar"),
	}
	items, err := g.dir(".")
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.SidebarItem{}
	}
	return items, nil
}

type entry struct {
	item     model.SidebarItem
	name     string
	order    float64
	hasOrder bool
}

type generator struct {
	fsys   fs.FS
	opts   Options
	text   *Normalizer
	logger zerolog.Logger
}

func (g *generator) dir(dir string) ([]model.SidebarItem, error) {
	dirEntries, err := fs.ReadDir(g.fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}
	root := dir == "."

	var entries []entry
	for _, de := range dirEntries {
		name := de.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		rel := path.Join(dir, name)
		if g.excluded(rel) {
			continue
		}

		if de.IsDir() {
			if root && name == g.opts.AssetDir {
				continue
			}
			e, ok, err := g.folder(rel, name)
			if err != nil {
				return nil, err
			}
			if ok {
				entries = append(entries, e)
			}
			continue
		}

		if !strings.EqualFold(path.Ext(name), ".md") {
			continue
		}
		if name == "index.md" {
			if root && !g.opts.IncludeRootIndexFile {
				continue
			}
			if !root && !g.opts.IncludeFolderIndexFile {
				continue
			}
		}

		doc, err := g.read(rel)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry{
			item: model.SidebarItem{
				Text: g.title(doc, name),
				Link: model.Permalink(rel),
			},
			name:     name,
			order:    doc.order,
			hasOrder: doc.hasOrder,
		})
	}

	g.sort(entries)
	var items []model.SidebarItem
	for _, e := range entries {
		items = append(items, e.item)
	}
	return items, nil
}

func (g *generator) folder(rel, name string) (entry, bool, error) {
	children, err := g.dir(rel)
	if err != nil {
		return entry{}, false, err
	}
	if len(children) == 0 {
		return entry{}, false, nil
	}

	e := entry{
		item: model.SidebarItem{
			Text:      g.text.Normalize(name),
			Collapsed: g.opts.Collapsed,
			Items:     children,
		},
		name: name,
	}

	index := path.Join(rel, "index.md")
	if _, err := fs.Stat(g.fsys, index); err == nil {
		doc, err := g.read(index)
		if err != nil {
			return entry{}, false, err
		}
		e.order, e.hasOrder = doc.order, doc.hasOrder
		if g.opts.UseFolderTitleFromIndexFile {
			if t := g.docTitle(doc); t != "" {
				e.item.Text = t
			}
		}
	}
	return e, true, nil
}

func (g *generator) excluded(rel string) bool {
	for _, p := range g.opts.Exclude {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// title resolves a page's sidebar text.
func (g *generator) title(doc document, name string) string {
	if t := g.docTitle(doc); t != "" {
		return t
	}
	return g.text.Normalize(strings.TrimSuffix(name, path.Ext(name)))
}

func (g *generator) docTitle(doc document) string {
	if g.opts.UseTitleFromFileHeading && doc.heading != "" {
		return doc.heading
	}
	if g.opts.UseTitleFromFrontmatter && doc.fmTitle != "" {
		return doc.fmTitle
	}
	return ""
}

func (g *generator) sort(entries []entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if g.opts.SortByOrder && a.hasOrder != b.hasOrder {
			return a.hasOrder
		}
		if g.opts.SortByOrder && a.hasOrder && a.order != b.order {
			return a.order < b.order
		}
		return strings.ToLower(a.name) < strings.ToLower(b.name)
	})
}

type document struct {
	heading  string
	fmTitle  string
	order    float64
	hasOrder bool
}

func (g *generator) read(rel string) (document, error) {
	data, err := fs.ReadFile(g.fsys, rel)
	if err != nil {
		return document{}, fmt.Errorf("read %s: %w", rel, err)
	}
	fm, body, err := markdown.SplitFrontmatter(data)
	if err != nil {
		g.logger.Warn().Err(err).Str("file", rel).Msg("front matter ignored")
	}

	var doc document
	if g.opts.UseTitleFromFileHeading {
		doc.heading = markdown.FirstHeading(body, 1)
	}
	doc.fmTitle = markdown.FrontmatterString(fm, "title")
	doc.order, doc.hasOrder = markdown.FrontmatterNumber(fm, "order")
	return doc, nil
}
