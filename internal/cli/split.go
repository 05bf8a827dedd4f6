package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgallion1/studykit/internal/outline"
	"github.com/dgallion1/studykit/internal/pdfdoc"
)

var splitPointIndex bool

var splitCmd = &cobra.Command{
	Use:   "split <input.pdf> [output_dir]",
	Short: "Split a PDF into single-page files and write the section index",
	Long: `Split writes one PDF per page (page_0001.pdf, ...) into output_dir, which
defaults to <input>_pages, and builds index.json from the document outline:
each section maps to the pages from its start up to the next section's start.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := args[0]
		outDir := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input)) + "_pages"
		if len(args) > 1 {
			outDir = args[1]
		}

		pages, err := pdfdoc.Split(cmd.Context(), input, outDir)
		if err != nil {
			return err
		}
		logger.Info("pdf split", "pages", len(pages), "out", outDir)

		nodes, total, err := pdfdoc.ReadOutline(input)
		if err != nil {
			return fmt.Errorf("read outline: %w", err)
		}
		if total != len(pages) {
			logger.Warn("page count mismatch between readers", "split", len(pages), "outline", total)
			total = len(pages)
		}

		var idx *outline.Index
		if splitPointIndex {
			idx = outline.PointIndex(nodes, total)
		} else {
			idx = outline.RangeIndex(nodes, total)
		}
		indexPath := filepath.Join(outDir, outline.IndexFileName)
		if err := outline.WriteIndexFile(indexPath, idx); err != nil {
			return err
		}

		printSummary(cmd.OutOrStdout(), "Split complete",
			stat{label: "Pages", value: len(pages)},
			stat{label: "Sections", value: idx.Len(), warn: idx.Len() == 0},
			stat{label: "Output", value: outDir},
			stat{label: "Index", value: indexPath},
		)
		return nil
	},
}

func init() {
	splitCmd.Flags().BoolVar(&splitPointIndex, "point-index", false, "Map each section to its start page only")
	rootCmd.AddCommand(splitCmd)
}
