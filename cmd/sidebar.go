package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/osusec/beavercds-ng/internal/build"
	"github.com/osusec/beavercds-ng/internal/model"
)

var sidebarFormat string

var sidebarCmd = &cobra.Command{
	Use:   "sidebar",
	Short: "Prints the resolved sidebar",
	Long: `The sidebar command prints the sidebar the site would be built with:
the manual items, or the tree generated from the sidebar root.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		items, err := build.ResolveSidebar(siteConfig, appConfig.PublicDir)
		if err != nil {
			return err
		}
		return writeSidebar(cmd.OutOrStdout(), items, sidebarFormat)
	},
}

func writeSidebar(w io.Writer, items []model.SidebarItem, format string) error {
	switch format {
	case "yaml", "yml":
		out, err := yaml.Marshal(items)
		if err != nil {
			return fmt.Errorf("encode sidebar: %w", err)
		}
		_, err = w.Write(out)
		return err
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	default:
		return fmt.Errorf("unknown format %q, want yaml or json", format)
	}
}

func init() {
	sidebarCmd.Flags().StringVarP(&sidebarFormat, "format", "f", "yaml", "Output format (yaml or json)")
	rootCmd.AddCommand(sidebarCmd)
}
