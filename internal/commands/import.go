package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newImportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <workbook.xlsx>",
		Short: "Reconcile a spreadsheet into the record store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, repo, _, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = repo.Close() }()

			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open workbook: %w", err)
			}
			defer func() { _ = file.Close() }()

			report, err := svc.ImportWorkbook(cmd.Context(), file)
			if err != nil {
				return err
			}
			for _, sheet := range report.Sheets {
				fmt.Printf("%s: %d inserted, %d updated, %d skipped\n",
					sheet.Sheet, sheet.Result.Inserted, sheet.Result.Updated, sheet.Result.Skipped)
				for _, re := range sheet.Result.Errors {
					fmt.Printf("  row %d: %s\n", re.Row, re.Reason)
				}
				for _, w := range sheet.Warnings {
					fmt.Printf("  unmapped column: %s\n", w)
				}
			}
			if report.ArchiveKey != "" {
				fmt.Printf("archived as %s\n", report.ArchiveKey)
			}
			return nil
		},
	}
	return cmd
}
