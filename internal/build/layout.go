package build

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/osusec/beavercds-ng/internal/model"
)

//go:embed layouts
var defaultLayouts embed.FS

const (
	baseTemplate = "base.html"
	partialsDir  = "partials/"
	pageLayout   = "page"
	homeLayout   = "home"
)

// Layouts holds one template set per layout, each a clone of base.html and
// the partials with the layout's own definitions parsed on top.
type Layouts struct {
	byName map[string]*template.Template
}

// LoadLayouts parses the embedded layouts, replacing any file that also
// exists under dir.
func LoadLayouts(dir string) (*Layouts, error) {
	files := make(map[string]string)

	embedded, err := fs.Sub(defaultLayouts, "layouts")
	if err != nil {
		return nil, err
	}
	if err := readLayoutFiles(embedded, files); err != nil {
		return nil, fmt.Errorf("failed to read embedded layouts: %w", err)
	}
	if dir != "" {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			return nil, fmt.Errorf("layouts directory '%s' not found", dir)
		}
		if err := readLayoutFiles(os.DirFS(dir), files); err != nil {
			return nil, fmt.Errorf("failed to find layout files in '%s': %w", dir, err)
		}
	}

	baseSrc, ok := files[baseTemplate]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoLayout, baseTemplate)
	}
	root, err := template.New(baseTemplate).Funcs(templateFuncs).Parse(baseSrc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", baseTemplate, err)
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if !strings.HasPrefix(name, partialsDir) {
			continue
		}
		if _, err := root.New(name).Parse(files[name]); err != nil {
			return nil, fmt.Errorf("failed to parse partial %s: %w", name, err)
		}
	}

	l := &Layouts{byName: make(map[string]*template.Template)}
	for _, name := range names {
		if name == baseTemplate || strings.HasPrefix(name, partialsDir) {
			continue
		}
		set, err := root.Clone()
		if err != nil {
			return nil, fmt.Errorf("failed to clone base layout for %s: %w", name, err)
		}
		if _, err := set.New(name).Parse(files[name]); err != nil {
			return nil, fmt.Errorf("failed to parse layout %s: %w", name, err)
		}
		l.byName[strings.TrimSuffix(name, path.Ext(name))] = set
	}

	if l.byName[pageLayout] == nil {
		return nil, fmt.Errorf("%w: %s.html", ErrNoLayout, pageLayout)
	}
	return l, nil
}

// Names lists the available layouts.
func (l *Layouts) Names() []string {
	names := make([]string, 0, len(l.byName))
	for n := range l.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// For picks the layout for page: its front matter layout, otherwise home for
// the root page when a home layout exists, otherwise page. Unknown layouts
// fall back to page with a warning.
func (l *Layouts) For(page *model.Page, logger zerolog.Logger) (*template.Template, string) {
	name := strings.TrimSuffix(page.Layout, ".html")
	if name == "" {
		name = pageLayout
		if page.Permalink == "/" && l.byName[homeLayout] != nil {
			name = homeLayout
		}
	}
	if t, ok := l.byName[name]; ok {
		return t, name
	}
	logger.Warn().Str("page", page.RelativePath).Str("layout", name).Msgf("layout not found, using '%s'", pageLayout)
	return l.byName[pageLayout], pageLayout
}

func readLayoutFiles(fsys fs.FS, files map[string]string) error {
	return fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(path.Ext(p), ".html") {
			return nil
		}
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		files[p] = string(data)
		return nil
	})
}

// sidebarLevel is the data of one recursion step of the sidebar partial.
type sidebarLevel struct {
	Base    string
	Current string
	Items   []model.SidebarItem
}

var templateFuncs = template.FuncMap{
	"withBase": withBase,
	"isActive": isActive,
	"sidebarLevel": func(base, current string, items []model.SidebarItem) sidebarLevel {
		return sidebarLevel{Base: base, Current: current, Items: items}
	},
	"isCollapsed": func(item model.SidebarItem) bool {
		return item.Collapsed != nil && *item.Collapsed
	},
}

// withBase prefixes root-relative links with the site base path.
func withBase(base, link string) string {
	if !strings.HasPrefix(link, "/") || strings.HasPrefix(link, "//") {
		return link
	}
	return strings.TrimSuffix(base, "/") + link
}

// isActive reports whether link points at the current page or one of its
// ancestors. The root link is only active on the root page.
func isActive(link, current string) bool {
	if link == "/" {
		return current == "/"
	}
	return strings.HasPrefix(current, link)
}
