package model

import (
	"html/template"
	"path"
	"strings"
)

// NavItem is a top-level navigation link. Slice order is display order.
type NavItem struct {
	Text string `yaml:"text" json:"text"`
	Link string `yaml:"link" json:"link"`
}

// SidebarItem is either a link or a group of further items.
type SidebarItem struct {
	Text      string        `yaml:"text" json:"text"`
	Link      string        `yaml:"link,omitempty" json:"link,omitempty"`
	Collapsed *bool         `yaml:"collapsed,omitempty" json:"collapsed,omitempty"`
	Items     []SidebarItem `yaml:"items,omitempty" json:"items,omitempty"`
}

// IsGroup reports whether the item carries children.
func (s SidebarItem) IsGroup() bool {
	return len(s.Items) > 0
}

// SocialLink points at an external profile, rendered with a platform icon.
type SocialLink struct {
	Icon string `yaml:"icon" json:"icon"`
	Link string `yaml:"link" json:"link"`
}

// Page represents a single rendered markdown document.
type Page struct {
	Title        string
	Description  string
	RelativePath string // slash-separated path below the docs root, e.g. "guide/intro.md"
	SourcePath   string
	Permalink    string
	ContentHTML  template.HTML
	Frontmatter  map[string]interface{}
	Layout       string
}

// SiteData holds everything a layout can reach beyond the current page.
type SiteData struct {
	Title       string
	Description string
	Base        string
	Nav         []NavItem
	Sidebar     []SidebarItem
	SocialLinks []SocialLink
	Pages       []*Page
}

// Permalink maps a docs-relative markdown path to its URL. index.md maps to
// its directory; every other page gets a trailing-slash directory URL.
func Permalink(rel string) string {
	rel = strings.TrimPrefix(path.Clean("/"+filepathToSlash(rel)), "/")
	rel = strings.TrimSuffix(rel, path.Ext(rel))
	if rel == "index" {
		return "/"
	}
	rel = strings.TrimSuffix(rel, "/index")
	return "/" + rel + "/"
}

// OutputPath is the slash-separated file a permalink is written to, relative
// to the output directory.
func OutputPath(permalink string) string {
	p := strings.Trim(permalink, "/")
	if p == "" {
		return "index.html"
	}
	return p + "/index.html"
}

func filepathToSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}
