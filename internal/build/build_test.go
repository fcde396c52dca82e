package build

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osusec/beavercds-ng/internal/config"
	"github.com/osusec/beavercds-ng/internal/model"
)

func writeFile(t *testing.T, root, rel, body string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
}

func readFile(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

// newProject lays out a small docs tree and returns build options for it.
func newProject(t *testing.T) Options {
	t.Helper()
	dir := t.TempDir()
	docs := filepath.Join(dir, "docs")

	writeFile(t, docs, "index.md", "Deploy CTF challenges to Kubernetes.\n")
	writeFile(t, docs, "my-new-page.md", "Plain text page.\n")
	writeFile(t, docs, "guide/intro.md", "---\ndescription: First steps\n---\n# Intro\n\nWelcome to {{ site.title }}. Write `{{ site.title }}` to print it.\n")
	writeFile(t, docs, "drafts/wip.md", "# Work in progress\n")
	writeFile(t, docs, ".vitepress/notes.md", "# Hidden\n")
	writeFile(t, docs, "public/logo.txt", "beaver")

	site := config.DefaultSite()
	site.Sidebar.Generate.Root = docs
	site.SrcExclude = []string{"drafts/**"}

	return Options{
		DocsDir:   docs,
		OutputDir: filepath.Join(dir, "dist"),
		PublicDir: "public",
		Base:      "/",
		Workers:   2,
		Site:      site,
	}
}

func TestRun(t *testing.T) {
	opts := newProject(t)
	writeFile(t, opts.OutputDir, "stale.html", "old")

	res, err := Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Pages)
	assert.Positive(t, res.Duration)

	wantSidebar := []model.SidebarItem{
		{Text: "Guide", Items: []model.SidebarItem{
			{Text: "Intro", Link: "/guide/intro/"},
		}},
		{Text: "My New Page", Link: "/my-new-page/"},
	}
	if diff := cmp.Diff(wantSidebar, res.Sidebar); diff != "" {
		t.Errorf("sidebar mismatch (-want +got):\n%s", diff)
	}

	home := readFile(t, opts.OutputDir, "index.html")
	assert.Contains(t, home, "<title>beaverCDS Docs</title>")
	assert.Contains(t, home, `<p class="tagline">Next-generation CTF deployment framework</p>`)
	assert.Contains(t, home, `<a href="/" class="active">Home</a>`)
	assert.Contains(t, home, `href="https://github.com/osusec/beavercds-ng"`)
	assert.NotContains(t, home, `<aside class="sidebar">`)

	page := readFile(t, opts.OutputDir, "my-new-page/index.html")
	assert.Contains(t, page, "<title>My New Page | beaverCDS Docs</title>")
	assert.Contains(t, page, `<a href="/my-new-page/" class="active" aria-current="page">My New Page</a>`)
	assert.Contains(t, page, `<a href="/guide/intro/">Intro</a>`)
	assert.Contains(t, page, `<meta name="description" content="Next-generation CTF deployment framework">`)

	intro := readFile(t, opts.OutputDir, "guide/intro/index.html")
	assert.Contains(t, intro, "Welcome to beaverCDS Docs.")
	assert.Contains(t, intro, "<code v-pre>{{ site.title }}</code>")
	assert.Contains(t, intro, `<meta name="description" content="First steps">`)

	assert.Equal(t, "beaver", readFile(t, opts.OutputDir, "logo.txt"))
	assert.NoFileExists(t, filepath.Join(opts.OutputDir, "stale.html"))
	assert.NoDirExists(t, filepath.Join(opts.OutputDir, "drafts"))
	assert.NoDirExists(t, filepath.Join(opts.OutputDir, ".vitepress"))
}

func TestRun_ManualSidebarAndBase(t *testing.T) {
	opts := newProject(t)
	opts.Site = config.ManualSite()
	opts.Base = "/beavercds-ng/"

	res, err := Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, config.ManualSite().Sidebar.Items, res.Sidebar)

	page := readFile(t, opts.OutputDir, "my-new-page/index.html")
	assert.Contains(t, page, `<a href="/beavercds-ng/markdown-examples/">Markdown Examples</a>`)
	assert.Contains(t, page, `<summary>Examples</summary>`)
	assert.Contains(t, page, `<a class="title" href="/beavercds-ng/">`)
}

func TestRun_LiteralAttrDisabled(t *testing.T) {
	opts := newProject(t)
	opts.Site.Markdown.LiteralCodeAttr = ""

	_, err := Run(context.Background(), opts)
	require.NoError(t, err)

	intro := readFile(t, opts.OutputDir, "guide/intro/index.html")
	assert.Contains(t, intro, "<code>beaverCDS Docs</code>")
}

func TestRun_LayoutOverrides(t *testing.T) {
	opts := newProject(t)
	layouts := filepath.Join(t.TempDir(), "layouts")
	writeFile(t, layouts, "page.html", `{{ define "content" }}<div id="custom">{{ .Page.Title }}</div>{{ end }}`)
	writeFile(t, layouts, "wide.html", `{{ define "aside" }}{{ end }}{{ define "content" }}<div id="wide">{{ .Page.ContentHTML }}</div>{{ end }}`)
	writeFile(t, opts.DocsDir, "wide-page.md", "---\nlayout: wide\n---\nwide body\n")
	writeFile(t, opts.DocsDir, "odd.md", "---\nlayout: missing\n---\nodd body\n")
	opts.LayoutsDir = layouts

	res, err := Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Pages)

	assert.Contains(t, readFile(t, opts.OutputDir, "my-new-page/index.html"), `<div id="custom">My New Page</div>`)
	assert.Contains(t, readFile(t, opts.OutputDir, "wide-page/index.html"), `<div id="wide"><p>wide body</p>`)
	assert.Contains(t, readFile(t, opts.OutputDir, "odd/index.html"), `<div id="custom">Odd</div>`)
}

func TestRun_Errors(t *testing.T) {
	t.Run("missing docs", func(t *testing.T) {
		opts := newProject(t)
		opts.DocsDir = filepath.Join(t.TempDir(), "nope")
		_, err := Run(context.Background(), opts)
		assert.Error(t, err)
	})

	t.Run("output would remove docs", func(t *testing.T) {
		opts := newProject(t)
		opts.OutputDir = filepath.Dir(opts.DocsDir)
		_, err := Run(context.Background(), opts)
		assert.Error(t, err)
		assert.DirExists(t, opts.DocsDir)
	})

	t.Run("invalid site", func(t *testing.T) {
		opts := newProject(t)
		opts.Site.Sidebar.Items = []model.SidebarItem{{Text: "A", Link: "/a/"}}
		_, err := Run(context.Background(), opts)
		assert.ErrorIs(t, err, config.ErrSidebarConflict)
	})

	t.Run("missing sidebar root", func(t *testing.T) {
		opts := newProject(t)
		opts.Site.Sidebar.Generate.Root = filepath.Join(t.TempDir(), "missing")
		_, err := Run(context.Background(), opts)
		assert.Error(t, err)
	})

	t.Run("cancelled", func(t *testing.T) {
		opts := newProject(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Run(ctx, opts)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("bad template", func(t *testing.T) {
		opts := newProject(t)
		layouts := filepath.Join(t.TempDir(), "layouts")
		writeFile(t, layouts, "page.html", `{{ define "content" }}{{ .Nope`)
		opts.LayoutsDir = layouts
		_, err := Run(context.Background(), opts)
		assert.Error(t, err)
	})
}

func sidebarLinks(items []model.SidebarItem) []string {
	var links []string
	for _, it := range items {
		if it.Link != "" {
			links = append(links, it.Link)
		}
		links = append(links, sidebarLinks(it.Items)...)
	}
	return links
}

func TestRun_CustomPublicDir(t *testing.T) {
	opts := newProject(t)
	opts.PublicDir = "assets"
	writeFile(t, opts.DocsDir, "assets/readme.md", "# Asset readme\n")
	writeFile(t, opts.DocsDir, "assets/logo2.txt", "beaver2")
	writeFile(t, opts.DocsDir, "public/extra.md", "# Extra\n")

	res, err := Run(context.Background(), opts)
	require.NoError(t, err)

	links := sidebarLinks(res.Sidebar)
	assert.Contains(t, links, "/public/extra/")
	assert.NotContains(t, links, "/assets/readme/")

	assert.FileExists(t, filepath.Join(opts.OutputDir, "public", "extra", "index.html"))
	assert.NoFileExists(t, filepath.Join(opts.OutputDir, "assets", "readme", "index.html"))
	assert.Equal(t, "beaver2", readFile(t, opts.OutputDir, "logo2.txt"))

	side, err := ResolveSidebar(opts.Site, opts.PublicDir)
	require.NoError(t, err)
	assert.Equal(t, links, sidebarLinks(side))
}

func TestRun_DuplicatePermalink(t *testing.T) {
	opts := newProject(t)
	writeFile(t, opts.DocsDir, "guide.md", "# Guide page\n")
	writeFile(t, opts.DocsDir, "guide/index.md", "# Guide index\n")
	writeFile(t, opts.OutputDir, "keep.html", "previous build")

	_, err := Run(context.Background(), opts)
	require.ErrorIs(t, err, ErrDuplicatePermalink)
	assert.Contains(t, err.Error(), "'guide.md' and 'guide/index.md'")
	assert.Contains(t, err.Error(), "/guide/")
	assert.FileExists(t, filepath.Join(opts.OutputDir, "keep.html"))
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "run.sh")
	require.NoError(t, os.WriteFile(src, []byte("#!/bin/sh\n"), 0o755))

	dst := filepath.Join(dir, "out", "nested", "run.sh")
	require.NoError(t, copyFile(src, dst))
	assert.Equal(t, "#!/bin/sh\n", readFile(t, dir, "out/nested/run.sh"))
	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())

	assert.Error(t, copyFile(src, filepath.Join(dir, "out")))
	assert.Error(t, copyFile(filepath.Join(dir, "missing"), filepath.Join(dir, "x")))
}

func TestCollectSources(t *testing.T) {
	opts := newProject(t)
	writeFile(t, opts.DocsDir, "guide/README.MD", "# readme\n")
	writeFile(t, opts.DocsDir, "guide/image.png", "")

	got, err := collectSources(opts.DocsDir, "public", []string{"drafts/**"})
	require.NoError(t, err)
	assert.Equal(t, []string{"guide/README.MD", "guide/intro.md", "index.md", "my-new-page.md"}, got)

	_, err = collectSources(opts.DocsDir, "public", []string{"[bad"})
	assert.Error(t, err)
}

func TestPageTitle(t *testing.T) {
	names := config.DefaultSite().Sidebar.Generate.TextOptions.Normalizer()

	assert.Equal(t, "FM", pageTitle(map[string]interface{}{"title": "FM"}, []byte("# H\n"), "a.md", "Site", names))
	assert.Equal(t, "H", pageTitle(nil, []byte("# H\n"), "a.md", "Site", names))
	assert.Equal(t, "Local Testing", pageTitle(nil, nil, "guide/local_testing.md", "Site", names))
	assert.Equal(t, "Site", pageTitle(nil, nil, "index.md", "Site", names))
	assert.Equal(t, "Cluster Setup", pageTitle(nil, nil, "cluster-setup/index.md", "Site", names))
}

func TestCountLinks(t *testing.T) {
	assert.Equal(t, 2, CountLinks(config.ManualSite().Sidebar.Items))
	assert.Equal(t, 0, CountLinks(nil))
}
