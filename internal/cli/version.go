package cli

import (
	"fmt"

	"github.com/fmueller/transcriptor/internal/version"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	var detail bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.Get()
			if detail {
				fmt.Fprintln(cmd.OutOrStdout(), info.Detail())
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "transcriptor v%s\n", info)
			return nil
		},
	}

	cmd.Flags().BoolVar(&detail, "detail", false, "Print commit, build date and Go version")
	return cmd
}
