package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/parangodev/parango"
	"github.com/parangodev/parango/views"
)

var buildOut string

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Export the site as static files",
	Long: `build renders every page, feed and sitemap into out_dir. The output
directory is emptied first. Any content error fails the build.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if buildOut != "" {
			cfg.OutDir = buildOut
		}
		cfg.Output = parango.OutputStatic

		app := parango.New(cfg, views.Default())
		defer app.Close()
		if err := app.Export(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Site written to %s\n", cfg.OutDir)
		return nil
	},
}

func init() {
	buildCmd.Flags().StringVarP(&buildOut, "out", "o", "", "output directory (overrides config)")
}
