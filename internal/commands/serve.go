package commands

import (
	"finstmt/internal/api"
	"finstmt/internal/config"

	"github.com/spf13/cobra"
)

func newServeCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, repo, log, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = repo.Close() }()

			if addr == "" {
				addr = config.FromEnv().HTTPAddr
			}
			server := api.NewServer(repo, svc, log)
			return server.ListenAndServe(addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from FINSTMT_HTTP_ADDR)")
	return cmd
}
