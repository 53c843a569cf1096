// Package commands wires the CLI surface: the API server plus workbook
// import/export and a backend health probe for operators.
package commands

import (
	"context"

	"finstmt/internal/archive"
	"finstmt/internal/config"
	"finstmt/internal/ingest"
	"finstmt/internal/logging"
	"finstmt/internal/repository"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "finstmt",
		Short: "Financial statement record store",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newImportCommand())
	rootCmd.AddCommand(newExportCommand())
	rootCmd.AddCommand(newStatusCommand())

	return rootCmd
}

// bootstrap builds the shared service graph from the environment.
func bootstrap(ctx context.Context) (*ingest.Service, *repository.Repository, zerolog.Logger, error) {
	cfg := config.FromEnv()
	log := logging.New(cfg.LogLevel)

	repo, err := repository.Open(ctx, cfg, log)
	if err != nil {
		return nil, nil, log, err
	}
	arch, err := archive.Open(ctx, cfg)
	if err != nil {
		_ = repo.Close()
		return nil, nil, log, err
	}
	return ingest.NewService(repo, arch, log), repo, log, nil
}
