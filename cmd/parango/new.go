package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/parangodev/parango/scaffold"
)

var newSite string

var newCmd = &cobra.Command{
	Use:   "new <dir>",
	Short: "Create a new site",
	Example: `  parango new mi-blog
  parango new mi-blog --site https://mi-blog.dev`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := args[0]
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Creating new parango site: %s\n\n", dir)
		if err := scaffold.Generate(dir, scaffold.NewData(dir, newSite, time.Now()), out); err != nil {
			return err
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Done! Next steps:")
		fmt.Fprintln(out)
		fmt.Fprintf(out, "  cd %s\n", dir)
		fmt.Fprintln(out, "  parango serve --watch")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Set PARANGO_ADMIN_PASSWORD and PARANGO_SESSION_SECRET to enable /admin/.")
		return nil
	},
}

func init() {
	newCmd.Flags().StringVar(&newSite, "site", "", "canonical site URL")
}
