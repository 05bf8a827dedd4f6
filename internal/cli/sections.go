package cli

import (
	"github.com/spf13/cobra"

	"github.com/dgallion1/studykit/internal/outline"
	"github.com/dgallion1/studykit/internal/sections"
)

var (
	sectionsNoOverlap  bool
	sectionsSkipImages bool
)

var sectionsCmd = &cobra.Command{
	Use:   "sections [index.json] [pages_md_dir] [output_dir]",
	Short: "Reassemble page markdown into one file per outline section",
	Long: `Sections concatenates the markdown pages of every index entry into
<section>.md with a YAML header. By default each section also carries the
first page of the following section, since sections rarely start on a fresh
page. Arguments default to the configured index, pages and sections paths.`,
	Args: cobra.MaximumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		indexPath, pagesDir, outDir := cfg.IndexPath, cfg.PagesMDDir, cfg.SectionsDir
		if len(args) > 0 {
			indexPath = args[0]
		}
		if len(args) > 1 {
			pagesDir = args[1]
		}
		if len(args) > 2 {
			outDir = args[2]
		}

		idx, err := outline.ReadIndexFile(indexPath)
		if err != nil {
			return err
		}
		report, err := sections.Assemble(cmd.Context(), idx, sections.Options{
			PagesDir:   pagesDir,
			OutDir:     outDir,
			NoOverlap:  sectionsNoOverlap,
			SkipImages: sectionsSkipImages,
		}, logger)
		if err != nil {
			return err
		}

		missing, images := 0, 0
		for _, w := range report.Sections {
			missing += len(w.Missing)
			images += w.Images
		}
		printSummary(cmd.OutOrStdout(), "Sections",
			stat{label: "Written", value: len(report.Sections)},
			stat{label: "Empty", value: len(report.Skipped)},
			stat{label: "Missing pages", value: missing, warn: missing > 0},
			stat{label: "Images copied", value: images},
			stat{label: "Output", value: outDir},
		)
		return nil
	},
}

func init() {
	sectionsCmd.Flags().BoolVar(&sectionsNoOverlap, "no-overlap", false, "Do not append the next section's first page")
	sectionsCmd.Flags().BoolVar(&sectionsSkipImages, "skip-images", false, "Do not copy referenced images")
	rootCmd.AddCommand(sectionsCmd)
}
