package main

import (
	"github.com/spf13/cobra"

	"github.com/parangodev/parango"
	"github.com/parangodev/parango/views"
)

var (
	serveWatch bool
	serveAddr  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the site",
	Long: `serve indexes the content directory and serves the site until
interrupted. With --watch, content changes are reindexed as they happen.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if serveAddr != "" {
			cfg.Addr = serveAddr
		}

		app := parango.New(cfg, views.Default())
		defer app.Close()
		if err := app.Init(); err != nil {
			return err
		}

		ctx := cmd.Context()
		if serveWatch {
			go func() {
				if err := app.Watch(ctx); err != nil {
					app.Echo.Logger.Errorf("watch: %v", err)
				}
			}()
		}
		return app.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().BoolVarP(&serveWatch, "watch", "w", false, "reindex when content changes")
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
}
