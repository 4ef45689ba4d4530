package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dhcgn/attachment-archiver/ids"
	"github.com/dhcgn/attachment-archiver/layout"
)

func newPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path <ids...>",
		Short: "Print the relative store path of each attachment id",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tokens := ids.Parse(strings.Join(args, "\n"))
			if len(tokens) == 0 {
				return fmt.Errorf("no attachment ids given")
			}

			out := cmd.OutOrStdout()
			for _, id := range tokens {
				rel, err := layout.DerivePath(id)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s\t%s\n", id, rel)
			}
			return nil
		},
	}
}
