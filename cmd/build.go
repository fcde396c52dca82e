package cmd

import (
	"github.com/spf13/cobra"

	"github.com/osusec/beavercds-ng/internal/build"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Builds the docs site",
	Long: `The build command renders every Markdown file under the docs directory,
resolves the sidebar, applies the layouts, copies the public assets and writes
the site to the output directory (default './dist/').`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := build.Run(cmd.Context(), buildOptions())
		return err
	},
}

func buildOptions() build.Options {
	return build.Options{
		DocsDir:    appConfig.DocsDir,
		OutputDir:  appConfig.OutputDir,
		PublicDir:  appConfig.PublicDir,
		LayoutsDir: appConfig.LayoutsDir,
		Base:       appConfig.Base,
		Workers:    appConfig.Workers,
		Site:       siteConfig,
	}
}

func init() {
	rootCmd.AddCommand(buildCmd)
}
