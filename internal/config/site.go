package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/osusec/beavercds-ng/internal/markdown"
	"github.com/osusec/beavercds-ng/internal/model"
	"github.com/osusec/beavercds-ng/internal/sidebar"
)

// Sidebar variants selectable with sidebarVariant.
const (
	VariantGenerated = "generated"
	VariantManual    = "manual"
)

// ErrSidebarConflict is returned when a site config declares both a manual
// sidebar and a generated one, or neither.
var ErrSidebarConflict = errors.New("sidebar needs exactly one of items or generate")

// SiteConfig describes the documentation site.
type SiteConfig struct {
	Title       string             `yaml:"title"`
	Description string             `yaml:"description"`
	Nav         []model.NavItem    `yaml:"nav"`
	Sidebar     SidebarConfig      `yaml:"sidebar"`
	SocialLinks []model.SocialLink `yaml:"socialLinks"`
	Markdown    MarkdownConfig     `yaml:"markdown"`
	// SrcExclude lists doublestar patterns, relative to the docs directory,
	// of markdown files that are not built.
	SrcExclude []string `yaml:"srcExclude,omitempty"`
}

// SidebarConfig holds exactly one of Items or Generate.
type SidebarConfig struct {
	Items    []model.SidebarItem `yaml:"items,omitempty"`
	Generate *sidebar.Options    `yaml:"generate,omitempty"`
}

// Manual reports whether the sidebar is hand-authored.
func (s SidebarConfig) Manual() bool {
	return s.Generate == nil
}

// MarkdownConfig tunes the markdown pipeline.
type MarkdownConfig struct {
	// LiteralCodeAttr marks inline code so {{ }} inside it stays literal.
	// Empty disables the marker.
	LiteralCodeAttr string `yaml:"literalCodeAttr"`
}

// DefaultSite is the compiled-in beaverCDS site with a sidebar generated from
// the docs directory.
func DefaultSite() SiteConfig {
	return SiteConfig{
		Title:       "beaverCDS Docs",
		Description: "Next-generation CTF deployment framework",
		Nav: []model.NavItem{
			{Text: "Home", Link: "/"},
		},
		Sidebar: SidebarConfig{
			Generate: &sidebar.Options{
				Root:                    DefaultDocsDir,
				UseTitleFromFileHeading: true,
				UseTitleFromFrontmatter: true,
				TextOptions: sidebar.TextOptions{
					HyphenToSpace:       true,
					UnderscoreToSpace:   true,
					CapitalizeEachWords: true,
				},
			},
		},
		SocialLinks: []model.SocialLink{
			{Icon: "github", Link: "https://github.com/osusec/beavercds-ng"},
		},
		Markdown: MarkdownConfig{
			LiteralCodeAttr: markdown.DefaultLiteralAttr,
		},
	}
}

// ManualSite is DefaultSite with a hand-authored sidebar.
func ManualSite() SiteConfig {
	s := DefaultSite()
	s.Sidebar = SidebarConfig{
		Items: []model.SidebarItem{
			{
				Text: "Examples",
				Items: []model.SidebarItem{
					{Text: "Markdown Examples", Link: "/markdown-examples/"},
					{Text: "Runtime API Examples", Link: "/api-examples/"},
				},
			},
		},
	}
	return s
}

// Site returns the compiled-in site for a sidebar variant.
func Site(variant string) (SiteConfig, error) {
	switch variant {
	case "", VariantGenerated:
		return DefaultSite(), nil
	case VariantManual:
		return ManualSite(), nil
	}
	return SiteConfig{}, fmt.Errorf("unknown sidebar variant %q (want %q or %q)", variant, VariantGenerated, VariantManual)
}

// siteFile is the YAML overlay. Absent keys keep the compiled-in value.
type siteFile struct {
	Title       *string            `yaml:"title"`
	Description *string            `yaml:"description"`
	Nav         []model.NavItem    `yaml:"nav"`
	Sidebar     *SidebarConfig     `yaml:"sidebar"`
	SocialLinks []model.SocialLink `yaml:"socialLinks"`
	Markdown    *MarkdownConfig    `yaml:"markdown"`
	SrcExclude  []string           `yaml:"srcExclude"`
}

// LoadSite overlays the YAML file at filename onto base. A sidebar key in the
// file replaces the base sidebar as a whole.
func LoadSite(filename string, base SiteConfig) (SiteConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return SiteConfig{}, fmt.Errorf("error reading site config %s: %w", filename, err)
	}

	var f siteFile
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return SiteConfig{}, fmt.Errorf("error unmarshalling site config %s: %w", filename, err)
	}

	site := base
	if f.Title != nil {
		site.Title = *f.Title
	}
	if f.Description != nil {
		site.Description = *f.Description
	}
	if f.Nav != nil {
		site.Nav = f.Nav
	}
	if f.Sidebar != nil {
		site.Sidebar = *f.Sidebar
	}
	if f.SocialLinks != nil {
		site.SocialLinks = f.SocialLinks
	}
	if f.Markdown != nil {
		site.Markdown = *f.Markdown
	}
	if f.SrcExclude != nil {
		site.SrcExclude = f.SrcExclude
	}

	if err := site.Validate(); err != nil {
		return SiteConfig{}, fmt.Errorf("site config %s: %w", filename, err)
	}
	return site, nil
}

// Validate checks the invariants every site must hold.
func (s SiteConfig) Validate() error {
	if s.Title == "" {
		return errors.New("title must not be empty")
	}
	if s.Description == "" {
		return errors.New("description must not be empty")
	}
	if len(s.Nav) == 0 {
		return errors.New("nav must have at least one entry")
	}
	for i, n := range s.Nav {
		if n.Text == "" || n.Link == "" {
			return fmt.Errorf("nav entry %d needs both text and link", i)
		}
	}
	hasItems := len(s.Sidebar.Items) > 0
	hasGenerate := s.Sidebar.Generate != nil
	if hasItems == hasGenerate {
		return ErrSidebarConflict
	}
	if hasGenerate && s.Sidebar.Generate.Root == "" {
		return errors.New("sidebar.generate.root must not be empty")
	}
	for i, l := range s.SocialLinks {
		if l.Icon == "" || l.Link == "" {
			return fmt.Errorf("social link %d needs both icon and link", i)
		}
	}
	return nil
}
