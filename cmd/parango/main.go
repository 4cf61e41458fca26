package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/parangodev/parango"
)

// version is set at build time via ldflags.
var version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "parango",
	Short: "parango - a markdown blog served and exported with Go, Echo and templ",
	Long: `parango serves a blog and project portfolio from markdown collections,
or exports it as a static site.

Configuration is read from parango.yaml (or --config) and PARANGO_*
environment variables.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./parango.yaml)")
	rootCmd.AddCommand(serveCmd, buildCmd, newCmd, checkCmd, versionCmd)
}

func loadConfig() (parango.Config, error) {
	return parango.LoadConfig(cfgFile)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
