package commands

import (
	"fmt"
	"os"

	"finstmt/internal/ingest"
	"finstmt/pkg/domain"

	"github.com/spf13/cobra"
)

func newExportCommand() *cobra.Command {
	var (
		taxID      string
		year       int
		inMillions bool
	)

	cmd := &cobra.Command{
		Use:   "export <out.xlsx>",
		Short: "Render stored records into a workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, repo, _, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = repo.Close() }()

			data, err := svc.ExportWorkbook(cmd.Context(),
				domain.Filter{TaxID: taxID, FiscalYear: year},
				ingest.ExportOptions{InMillions: inMillions})
			if err != nil {
				return err
			}
			if err := os.WriteFile(args[0], data, 0o644); err != nil {
				return fmt.Errorf("write workbook: %w", err)
			}
			fmt.Printf("wrote %s (%d bytes)\n", args[0], len(data))
			return nil
		},
	}

	cmd.Flags().StringVar(&taxID, "tax-id", "", "restrict to one company")
	cmd.Flags().IntVar(&year, "year", 0, "restrict to one fiscal year")
	cmd.Flags().BoolVar(&inMillions, "in-millions", false, "rescale figures to millions")
	return cmd
}
