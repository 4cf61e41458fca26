package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/parangodev/parango/content"
	"github.com/parangodev/parango/markdown"
	"github.com/parangodev/parango/site"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate configuration, site records and content",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		var errs []error
		if err := cfg.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("config: %w", err))
		}
		if err := site.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("site: %w", err))
		}

		exts := []string{".md"}
		if cfg.Integrations.MDX.Enabled {
			exts = cfg.Integrations.MDX.Extensions
		}
		loader := &content.Loader{
			Dir:        cfg.ContentDir,
			Extensions: exts,
			Renderer:   markdown.New(markdown.Options{Theme: cfg.Markdown.Theme, HardWraps: cfg.Markdown.HardWraps}),
		}
		entries, err := loader.Load()
		if err != nil {
			errs = append(errs, fmt.Errorf("content: %w", err))
		}

		out := cmd.OutOrStdout()
		for _, coll := range content.Collections {
			all := content.Filter(entries, coll)
			published := content.Published(all, false)
			fmt.Fprintf(out, "%-10s %3d entries (%d drafts)\n", coll, len(all), len(all)-len(published))
		}
		if err := errors.Join(errs...); err != nil {
			return err
		}
		fmt.Fprintln(out, "ok")
		return nil
	},
}
