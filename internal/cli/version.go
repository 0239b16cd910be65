package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	furiosa "github.com/furiosa-ai/furiosa-client"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the client and compiler service versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "client: %s\n", furiosa.Version)

			c, err := rootOpts.client()
			if err != nil {
				return err
			}
			info, err := c.ServerVersion(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "server: %s\n", info)
			return nil
		},
	}
}
