package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/osusec/beavercds-ng/internal/config"
	"github.com/osusec/beavercds-ng/internal/log"
)

var (
	cfgFile    string
	appConfig  config.Config
	siteConfig config.SiteConfig
)

var rootCmd = &cobra.Command{
	Use:   "beaverdocs",
	Short: "beaverCDS documentation site builder",
	Long: `beaverdocs renders the beaverCDS documentation from Markdown in ./docs
into a static HTML site, with a sidebar generated from the folder layout.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initializeConfig(cmd)
	},
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command's
// context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// flag name -> config key
var configFlags = map[string]string{
	"docs":            "docsDir",
	"out":             "outputDir",
	"layouts":         "layoutsDir",
	"site":            "siteConfig",
	"sidebar-variant": "sidebarVariant",
	"base":            "base",
	"workers":         "workers",
	"log-level":       "logLevel",
	"log-format":      "logFormat",
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is ./beaverdocs.yaml)")
	pf.String("docs", config.DefaultDocsDir, "markdown source directory")
	pf.String("out", config.DefaultOutputDir, "output directory")
	pf.String("layouts", "", "directory of layout overrides")
	pf.String("site", "", "site config YAML overlaid on the built-in site")
	pf.String("sidebar-variant", config.VariantGenerated, "built-in sidebar: generated or manual")
	pf.String("base", "/", "base path the site is served under")
	pf.Int("workers", 4, "pages rendered in parallel")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("log-format", "console", "log format (console or json)")
}

func initializeConfig(cmd *cobra.Command) error {
	v := viper.New()
	config.SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("beaverdocs")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("BEAVERDOCS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for name, key := range configFlags {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("bind flag --%s: %w", name, err)
			}
		}
	}

	usedFile := ""
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || cfgFile != "" {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		usedFile = v.ConfigFileUsed()
	}

	if err := v.Unmarshal(&appConfig); err != nil {
		return fmt.Errorf("unable to decode config into struct: %w", err)
	}
	if err := appConfig.Normalize(); err != nil {
		return err
	}

	log.Configure(log.Config{Level: appConfig.LogLevel, Format: appConfig.LogFormat})
	logger := log.WithComponent("config")
	if usedFile != "" {
		logger.Debug().Str("file", usedFile).Msg("using config file")
	}

	site, err := loadSiteConfig()
	if err != nil {
		return err
	}
	siteConfig = site
	return nil
}

// loadSiteConfig resolves the built-in site for the configured variant and
// overlays the site config file when one is set.
func loadSiteConfig() (config.SiteConfig, error) {
	site, err := config.Site(appConfig.SidebarVariant)
	if err != nil {
		return config.SiteConfig{}, err
	}
	if site.Sidebar.Generate != nil && appConfig.DocsDir != config.DefaultDocsDir {
		site.Sidebar.Generate.Root = appConfig.DocsDir
	}
	if appConfig.SiteConfig == "" {
		return site, nil
	}
	return config.LoadSite(appConfig.SiteConfig, site)
}
