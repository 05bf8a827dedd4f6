package cli

import (
	"github.com/spf13/cobra"

	"github.com/dgallion1/studykit/internal/pdfdoc"
)

var imagesCmd = &cobra.Command{
	Use:   "images <input.pdf> <md_dir>",
	Short: "Extract embedded images and reference them from the page markdown",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := pdfdoc.ExtractImages(cmd.Context(), args[0], args[1])
		for _, e := range report.Errors {
			printWarn(cmd.ErrOrStderr(), "skipped: %s", e)
		}
		if err != nil {
			return err
		}
		printSummary(cmd.OutOrStdout(), "Images",
			stat{label: "Images", value: len(report.Images)},
			stat{label: "Pages updated", value: report.Pages},
			stat{label: "Errors", value: len(report.Errors), warn: len(report.Errors) > 0},
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(imagesCmd)
}
