package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the builder's runtime settings, resolved by viper from
// defaults, an optional config file and BEAVERDOCS_* environment variables.
type Config struct {
	DocsDir        string `mapstructure:"docsDir"`
	OutputDir      string `mapstructure:"outputDir"`
	PublicDir      string `mapstructure:"publicDir"` // relative to DocsDir
	LayoutsDir     string `mapstructure:"layoutsDir"`
	SiteConfig     string `mapstructure:"siteConfig"`
	SidebarVariant string `mapstructure:"sidebarVariant"`
	Base           string `mapstructure:"base"`
	Workers        int    `mapstructure:"workers"`
	LogLevel       string `mapstructure:"logLevel"`
	LogFormat      string `mapstructure:"logFormat"`
}

const (
	DefaultDocsDir   = "docs"
	DefaultOutputDir = "dist"
	DefaultPublicDir = "public"
)

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("docsDir", DefaultDocsDir)
	v.SetDefault("outputDir", DefaultOutputDir)
	v.SetDefault("publicDir", DefaultPublicDir)
	v.SetDefault("layoutsDir", "")
	v.SetDefault("siteConfig", "")
	v.SetDefault("sidebarVariant", VariantGenerated)
	v.SetDefault("base", "/")
	v.SetDefault("workers", 4)
	v.SetDefault("logLevel", "info")
	v.SetDefault("logFormat", "console")
}

// Normalize fixes up values that viper accepts but the builder cannot use.
func (c *Config) Normalize() error {
	if c.DocsDir == "" {
		return fmt.Errorf("docsDir must not be empty")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("outputDir must not be empty")
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	if !strings.HasPrefix(c.Base, "/") {
		c.Base = "/" + c.Base
	}
	if !strings.HasSuffix(c.Base, "/") {
		c.Base += "/"
	}
	return nil
}
