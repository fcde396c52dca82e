// Package build renders a docs directory into a static HTML site.
package build

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/osusec/beavercds-ng/internal/config"
	"github.com/osusec/beavercds-ng/internal/log"
	"github.com/osusec/beavercds-ng/internal/markdown"
	"github.com/osusec/beavercds-ng/internal/metrics"
	"github.com/osusec/beavercds-ng/internal/model"
	"github.com/osusec/beavercds-ng/internal/sidebar"
)

// Options configures one build.
type Options struct {
	DocsDir    string
	OutputDir  string
	PublicDir  string // relative to DocsDir
	LayoutsDir string // optional overrides for the embedded layouts
	Base       string
	Workers    int
	Site       config.SiteConfig
}

// Result summarizes a finished build.
type Result struct {
	Pages    int
	Duration time.Duration
	Sidebar  []model.SidebarItem
}

// Run builds the site described by opts.
func Run(ctx context.Context, opts Options) (res Result, err error) {
	start := time.Now()
	defer func() {
		res.Duration = time.Since(start)
		metrics.RecordBuild(res.Duration, err)
	}()

	logger := log.WithComponent("build")
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Base == "" {
		opts.Base = "/"
	}

	if err := opts.Site.Validate(); err != nil {
		return res, fmt.Errorf("invalid site config: %w", err)
	}
	if info, statErr := os.Stat(opts.DocsDir); statErr != nil || !info.IsDir() {
		return res, fmt.Errorf("docs directory '%s' not found. Please create it and add your Markdown files", opts.DocsDir)
	}
	if err := checkOutputDir(opts.DocsDir, opts.OutputDir); err != nil {
		return res, err
	}

	side, err := ResolveSidebar(opts.Site, opts.PublicDir)
	if err != nil {
		return res, err
	}
	res.Sidebar = side
	metrics.SetSidebarItems(CountLinks(side))

	layouts, err := LoadLayouts(opts.LayoutsDir)
	if err != nil {
		return res, err
	}

	sources, err := collectSources(opts.DocsDir, opts.PublicDir, opts.Site.SrcExclude)
	if err != nil {
		return res, err
	}
	logger.Debug().Int("sources", len(sources)).Str("docs", opts.DocsDir).Msg("collected markdown sources")

	site := &model.SiteData{
		Title:       opts.Site.Title,
		Description: opts.Site.Description,
		Base:        opts.Base,
		Nav:         opts.Site.Nav,
		Sidebar:     side,
		SocialLinks: opts.Site.SocialLinks,
	}

	pages, err := renderPages(ctx, opts, site, sources)
	if err != nil {
		return res, err
	}
	if err := checkPermalinks(pages); err != nil {
		return res, err
	}
	site.Pages = pages

	logger.Debug().Str("output", opts.OutputDir).Msg("cleaning output directory")
	if err := os.RemoveAll(opts.OutputDir); err != nil {
		return res, fmt.Errorf("failed to remove output directory '%s': %w", opts.OutputDir, err)
	}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return res, fmt.Errorf("failed to create output directory '%s': %w", opts.OutputDir, err)
	}

	publicDir := filepath.Join(opts.DocsDir, opts.PublicDir)
	if info, statErr := os.Stat(publicDir); statErr == nil && info.IsDir() {
		if err := copyDirContents(publicDir, opts.OutputDir); err != nil {
			return res, fmt.Errorf("failed to copy static assets: %w", err)
		}
		logger.Debug().Str("public", publicDir).Msg("static assets copied")
	}

	if err := writePages(ctx, opts, layouts, site, logger); err != nil {
		return res, err
	}

	res.Pages = len(pages)
	logger.Info().Int("pages", res.Pages).Dur("took", time.Since(start)).Str("output", opts.OutputDir).Msg("site built")
	return res, nil
}

// ResolveSidebar returns the manual sidebar items or generates them. Files
// excluded from the build are excluded from a generated sidebar too, and
// publicDir, the docs-relative asset directory, is never listed.
func ResolveSidebar(site config.SiteConfig, publicDir string) ([]model.SidebarItem, error) {
	if site.Sidebar.Manual() {
		return site.Sidebar.Items, nil
	}
	gen := *site.Sidebar.Generate
	gen.Exclude = append(append([]string(nil), gen.Exclude...), site.SrcExclude...)
	if publicDir != "" {
		gen.AssetDir = publicDir
	}
	items, err := sidebar.Generate(gen)
	if err != nil {
		return nil, fmt.Errorf("generate sidebar: %w", err)
	}
	return items, nil
}

// CountLinks counts the leaf links of a sidebar tree.
func CountLinks(items []model.SidebarItem) int {
	n := 0
	for _, it := range items {
		if it.Link != "" {
			n++
		}
		n += CountLinks(it.Items)
	}
	return n
}

func checkOutputDir(docsDir, outputDir string) error {
	docsAbs, err := filepath.Abs(docsDir)
	if err != nil {
		return fmt.Errorf("resolve docs directory: %w", err)
	}
	outAbs, err := filepath.Abs(outputDir)
	if err != nil {
		return fmt.Errorf("resolve output directory: %w", err)
	}
	rel, err := filepath.Rel(outAbs, docsAbs)
	if err != nil {
		return nil
	}
	outside := rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
	if !outside {
		return fmt.Errorf("output directory '%s' would remove docs directory '%s'", outputDir, docsDir)
	}
	return nil
}

// collectSources returns slash-separated paths of the markdown files to build,
// relative to docsDir, in lexical order.
func collectSources(docsDir, publicDir string, exclude []string) ([]string, error) {
	for _, p := range exclude {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid srcExclude pattern %q", p)
		}
	}

	var sources []string
	err := filepath.WalkDir(docsDir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return fmt.Errorf("error accessing path '%s' during walk: %w", p, walkErr)
		}
		rel, err := filepath.Rel(docsDir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") || (d.IsDir() && rel == publicDir) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !strings.EqualFold(path.Ext(rel), ".md") {
			return nil
		}
		for _, pattern := range exclude {
			if ok, _ := doublestar.Match(pattern, rel); ok {
				return nil
			}
		}
		sources = append(sources, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error during content collection walk: %w", err)
	}
	sort.Strings(sources)
	return sources, nil
}

// checkPermalinks fails when two sources would be written to the same file,
// e.g. guide.md and guide/index.md.
func checkPermalinks(pages []*model.Page) error {
	seen := make(map[string]string, len(pages))
	for _, p := range pages {
		if prev, ok := seen[p.Permalink]; ok {
			return fmt.Errorf("%w: '%s' and '%s' both map to %s", ErrDuplicatePermalink, prev, p.RelativePath, p.Permalink)
		}
		seen[p.Permalink] = p.RelativePath
	}
	return nil
}

func renderPages(ctx context.Context, opts Options, site *model.SiteData, sources []string) ([]*model.Page, error) {
	md := markdown.New(markdown.Options{LiteralCodeAttr: opts.Site.Markdown.LiteralCodeAttr})
	names := sidebar.TextOptions{HyphenToSpace: true, UnderscoreToSpace: true, CapitalizeEachWords: true}.Normalizer()
	logger := log.WithComponent("build")

	pages := make([]*model.Page, len(sources))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, rel := range sources {
		i, rel := i, rel
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p, err := renderPage(md, names, opts, site, rel, logger)
			if err != nil {
				return err
			}
			pages[i] = p
			metrics.IncPagesRendered()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return pages, nil
}

func renderPage(md *markdown.Renderer, names *sidebar.Normalizer, opts Options, site *model.SiteData, rel string, logger zerolog.Logger) (*model.Page, error) {
	src := filepath.Join(opts.DocsDir, filepath.FromSlash(rel))
	data, err := os.ReadFile(src)
	if err != nil {
		return nil, fmt.Errorf("failed to read file '%s': %w", src, err)
	}

	fm, body, err := markdown.SplitFrontmatter(data)
	if err != nil {
		logger.Warn().Err(err).Str("file", rel).Msg("could not parse front matter, treating as pure markdown")
	}

	page := &model.Page{
		Title:        pageTitle(fm, body, rel, site.Title, names),
		Description:  markdown.FrontmatterString(fm, "description"),
		RelativePath: rel,
		SourcePath:   src,
		Permalink:    model.Permalink(rel),
		Frontmatter:  fm,
		Layout:       markdown.FrontmatterString(fm, "layout"),
	}

	html, err := md.Render(body)
	if err != nil {
		return nil, fmt.Errorf("failed to convert markdown to HTML for file '%s': %w", src, err)
	}

	resolve := markdown.ScopeResolver(map[string]string{
		"site.title":        site.Title,
		"site.description":  site.Description,
		"page.title":        page.Title,
		"page.description":  page.Description,
		"page.relativePath": page.RelativePath,
	}, fm)
	page.ContentHTML = template.HTML(markdown.Interpolate([]byte(html), opts.Site.Markdown.LiteralCodeAttr, resolve))
	return page, nil
}

// pageTitle prefers the front matter title, then the first H1, then the file
// name. The root index falls back to the site title.
func pageTitle(fm map[string]interface{}, body []byte, rel, siteTitle string, names *sidebar.Normalizer) string {
	if t := markdown.FrontmatterString(fm, "title"); t != "" {
		return t
	}
	if t := markdown.FirstHeading(body, 1); t != "" {
		return t
	}
	base := strings.TrimSuffix(path.Base(rel), path.Ext(rel))
	if base == "index" {
		dir := path.Dir(rel)
		if dir == "." {
			return siteTitle
		}
		base = path.Base(dir)
	}
	return names.Normalize(base)
}

func writePages(ctx context.Context, opts Options, layouts *Layouts, site *model.SiteData, logger zerolog.Logger) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for _, page := range site.Pages {
		page := page
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			tpl, name := layouts.For(page, logger)
			if tpl == nil {
				return fmt.Errorf("%w: no layout for '%s'", ErrNoLayout, page.RelativePath)
			}

			var buf bytes.Buffer
			if err := tpl.ExecuteTemplate(&buf, baseTemplate, model.PageData{Site: site, Page: page}); err != nil {
				return fmt.Errorf("failed to execute layout '%s' for '%s': %w", name, page.RelativePath, err)
			}

			out := filepath.Join(opts.OutputDir, filepath.FromSlash(model.OutputPath(page.Permalink)))
			if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
				return fmt.Errorf("failed to create directory for '%s': %w", out, err)
			}
			if err := renameio.WriteFile(out, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("failed to write '%s': %w", out, err)
			}
			logger.Debug().Str("page", page.RelativePath).Str("layout", name).Str("out", out).Msg("page written")
			return nil
		})
	}
	return g.Wait()
}

// ErrNoLayout is returned when neither the requested nor the default page
// layout exists.
var ErrNoLayout = errors.New("layout not found")

// ErrDuplicatePermalink is returned when two markdown files render to the
// same URL.
var ErrDuplicatePermalink = errors.New("duplicate permalink")
