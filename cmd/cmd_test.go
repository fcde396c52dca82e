package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osusec/beavercds-ng/internal/config"
	"github.com/osusec/beavercds-ng/internal/model"
)

func TestRouter(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("home"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "guide", "intro"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "guide", "intro", "index.html"), []byte("intro"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "assets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "assets", "logo.txt"), []byte("beaver"), 0o644))

	srv := httptest.NewServer(newRouter(dir, zerolog.Nop()))
	defer srv.Close()

	get := func(path string) (*http.Response, string) {
		t.Helper()
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		var buf bytes.Buffer
		_, err = buf.ReadFrom(resp.Body)
		require.NoError(t, err)
		return resp, buf.String()
	}

	resp, body := get("/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "home", body)
	assert.Contains(t, resp.Header.Get("Cache-Control"), "no-cache")

	resp, body = get("/guide/intro/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "intro", body)

	resp, _ = get("/assets/")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = get("/assets/logo.txt")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "beaver", body)

	resp, body = get("/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "go_goroutines")
}

func TestWriteSidebar(t *testing.T) {
	items := config.ManualSite().Sidebar.Items

	var buf bytes.Buffer
	require.NoError(t, writeSidebar(&buf, items, "yaml"))
	assert.Contains(t, buf.String(), "- text: Examples\n")
	assert.Contains(t, buf.String(), "link: /markdown-examples/\n")

	buf.Reset()
	require.NoError(t, writeSidebar(&buf, items, "json"))
	var got []model.SidebarItem
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	if diff := cmp.Diff(items, got); diff != "" {
		t.Errorf("sidebar mismatch (-want +got):\n%s", diff)
	}

	assert.Error(t, writeSidebar(&buf, items, "toml"))
}

func TestSidebarCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"sidebar", "--sidebar-variant", "manual", "--format", "json", "--log-level", "error"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())

	var got []model.SidebarItem
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, config.ManualSite().Sidebar.Items, got)
	assert.Equal(t, config.VariantManual, appConfig.SidebarVariant)
}

func TestSidebarCommand_GeneratedRootFollowsDocs(t *testing.T) {
	docs := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(docs, "cluster-setup.md"), []byte("# Cluster Setup\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(docs, "guide"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "guide", "local_testing.md"), []byte("Run it locally.\n"), 0o644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"sidebar", "--docs", docs, "--sidebar-variant", "generated", "--format", "json", "--log-level", "error"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		_ = rootCmd.PersistentFlags().Set("docs", config.DefaultDocsDir)
	})

	require.NoError(t, rootCmd.Execute())

	var got []model.SidebarItem
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	want := []model.SidebarItem{
		{Text: "Cluster Setup", Link: "/cluster-setup/"},
		{Text: "Guide", Items: []model.SidebarItem{
			{Text: "Local Testing", Link: "/guide/local_testing/"},
		}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("sidebar mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, docs, siteConfig.Sidebar.Generate.Root)
}

func TestCheckNotWatchingOutput(t *testing.T) {
	root := t.TempDir()
	docs := filepath.Join(root, "docs")

	assert.NoError(t, checkNotWatchingOutput(filepath.Join(root, "dist"), docs, ""))
	assert.Error(t, checkNotWatchingOutput(filepath.Join(docs, "dist"), docs))
	assert.Error(t, checkNotWatchingOutput(docs, docs))
	assert.NoError(t, checkNotWatchingOutput(filepath.Join(root, "docs-out"), docs))
}

func TestDisplayAddr(t *testing.T) {
	assert.Equal(t, "localhost:5173", displayAddr(":5173"))
	assert.Equal(t, "0.0.0.0:80", displayAddr("0.0.0.0:80"))
}
