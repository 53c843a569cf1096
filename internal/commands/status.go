package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Probe the configured storage backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, repo, _, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = repo.Close() }()

			st := repo.Status(cmd.Context())
			fmt.Printf("%s: %s", st.DatabaseType, st.State)
			if st.Message != "" {
				fmt.Printf(" (%s)", st.Message)
			}
			fmt.Println()
			return nil
		},
	}
	return cmd
}
