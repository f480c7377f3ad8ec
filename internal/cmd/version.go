package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _ = fmt.Fprintf(a.stdout, "teddy-upgrader version %s\n", a.build.Version)
			if a.v.GetBool("verbose") {
				_, _ = fmt.Fprintf(a.stdout, "  commit: %s\n", a.build.Commit)
				_, _ = fmt.Fprintf(a.stdout, "  built:  %s\n", a.build.Date)
			}
			return nil
		},
	}
}
