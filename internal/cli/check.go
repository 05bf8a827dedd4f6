package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dgallion1/studykit/internal/mdcheck"
)

var checkOutput string

var checkCmd = &cobra.Command{
	Use:   "check [sections_dir]",
	Short: "Lint section markdown and write the issues as JSON",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := cfg.SectionsDir
		if len(args) > 0 {
			dir = args[0]
		}
		out := checkOutput
		if out == "" {
			out = filepath.Join(dir, mdcheck.IssuesFileName)
		}

		issues, files, err := mdcheck.Dir(dir)
		if err != nil {
			return err
		}
		if err := mdcheck.WriteIssues(out, issues); err != nil {
			return err
		}

		byType := map[string]int{}
		for _, is := range issues {
			byType[is.Type]++
		}
		stats := []stat{
			{label: "Files", value: files},
			{label: "Issues", value: len(issues), warn: len(issues) > 0},
		}
		for _, t := range []string{mdcheck.UnclosedCodeBlock, mdcheck.UnclosedYAML, mdcheck.InvalidYAML,
			mdcheck.MissingImage, mdcheck.TableColumnMismatch, mdcheck.MissingPage} {
			if n := byType[t]; n > 0 {
				stats = append(stats, stat{label: t, value: n, warn: true})
			}
		}
		stats = append(stats, stat{label: "Report", value: out})
		printSummary(cmd.OutOrStdout(), "Markdown check", stats...)
		return nil
	},
}

func init() {
	checkCmd.Flags().StringVarP(&checkOutput, "output", "o", "", "Issues file (default <sections_dir>/issues.json)")
	rootCmd.AddCommand(checkCmd)
}
