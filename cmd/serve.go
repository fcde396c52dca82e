package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/osusec/beavercds-ng/internal/build"
	"github.com/osusec/beavercds-ng/internal/log"
	"github.com/osusec/beavercds-ng/internal/watch"
)

var (
	serverPort int
	serverHost string
	noWatch    bool
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the site locally and rebuilds on changes",
	Long: `The serve command performs an initial build, then serves the output
directory over HTTP. The docs and layouts directories are watched and the site
is rebuilt shortly after they change. Prometheus metrics are exposed at /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := log.WithComponent("serve")
		ctx := cmd.Context()

		if err := checkNotWatchingOutput(appConfig.OutputDir, appConfig.DocsDir, appConfig.LayoutsDir); err != nil {
			return err
		}

		logger.Info().Msg("performing initial build")
		if _, err := build.Run(ctx, buildOptions()); err != nil {
			return fmt.Errorf("initial build failed, fix the issues and try again: %w", err)
		}

		g, ctx := errgroup.WithContext(ctx)

		if !noWatch {
			w, err := watch.New([]string{appConfig.DocsDir, appConfig.LayoutsDir}, watch.DefaultDebounce)
			if err != nil {
				return err
			}
			logger.Info().Strs("dirs", w.Roots()).Msg("watching for changes")
			g.Go(func() error {
				return w.Run(ctx, func() { rebuild(ctx, logger) })
			})
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf("%s:%d", serverHost, serverPort),
			Handler:           newRouter(appConfig.OutputDir, logger),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			logger.Info().Str("dir", appConfig.OutputDir).Msgf("serving site on http://%s", displayAddr(srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			logger.Info().Msg("shutting down")
			return srv.Shutdown(shutdownCtx)
		})

		return g.Wait()
	},
}

// rebuild reloads the site config, so edits to it are picked up on the next
// docs change, and builds again. Failures are logged and serving continues.
func rebuild(ctx context.Context, logger zerolog.Logger) {
	site, err := loadSiteConfig()
	if err != nil {
		logger.Error().Err(err).Msg("reload site config failed, keeping previous")
	} else {
		siteConfig = site
	}
	logger.Info().Msg("rebuilding site due to changes")
	if _, err := build.Run(ctx, buildOptions()); err != nil {
		if ctx.Err() == nil {
			logger.Error().Err(err).Msg("rebuild failed")
		}
	}
}

// newRouter serves dir without directory listings or client caching.
func newRouter(dir string, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))
	r.Use(middleware.NoCache)

	r.Handle("/metrics", promhttp.Handler())

	files := http.FileServer(http.Dir(dir))
	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") && r.URL.Path != "/" {
			index := filepath.Join(dir, filepath.FromSlash(r.URL.Path), "index.html")
			if _, err := os.Stat(index); err != nil {
				http.NotFound(w, r)
				return
			}
		}
		files.ServeHTTP(w, r)
	})
	return r
}

func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("took", time.Since(start)).
				Msg("request")
		})
	}
}

// checkNotWatchingOutput rejects an output directory inside a watched
// directory; every build would trigger the next one.
func checkNotWatchingOutput(outputDir string, watched ...string) error {
	outAbs, err := filepath.Abs(outputDir)
	if err != nil {
		return fmt.Errorf("resolve output directory: %w", err)
	}
	for _, dir := range watched {
		if dir == "" {
			continue
		}
		abs, err := filepath.Abs(dir)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", dir, err)
		}
		rel, err := filepath.Rel(abs, outAbs)
		if err != nil {
			continue
		}
		if rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))) {
			return fmt.Errorf("output directory '%s' is inside watched directory '%s'", outputDir, dir)
		}
	}
	return nil
}

func displayAddr(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "localhost" + addr
	}
	return addr
}

func init() {
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 5173, "Port to serve the site on")
	serveCmd.Flags().StringVar(&serverHost, "host", "localhost", "Interface to listen on")
	serveCmd.Flags().BoolVar(&noWatch, "no-watch", false, "Serve without rebuilding on changes")
	rootCmd.AddCommand(serveCmd)
}
