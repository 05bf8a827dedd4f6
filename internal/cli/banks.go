package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dgallion1/studykit/internal/bank"
)

var banksTest bool

var banksCmd = &cobra.Command{
	Use:   "banks",
	Short: "Build the per-bank and combined problem documents",
	Long: `Banks writes <bank>_all.tex and <bank>_all_solutions.tex for every configured
bank, plus all_problems.tex and all_problems_sol.tex combining every bank.
By default the build root is the source root: per-bank documents sit in
the bank directory and input problems by bare file name, while the combined
documents input banks/<bank>/<file>. Set STUDYKIT_BUILD_ROOT to build into a
separate tree instead. With --test it only checks that all expected files
exist and are non-empty.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		layout := bankLayout()
		if banksTest {
			missing, empty := bank.Verify(layout.ExpectedFiles())
			for _, p := range missing {
				printWarn(cmd.ErrOrStderr(), "missing: %s", p)
			}
			for _, p := range empty {
				printWarn(cmd.ErrOrStderr(), "empty: %s", p)
			}
			if n := len(missing) + len(empty); n > 0 {
				return fmt.Errorf("%d generated files missing or empty", n)
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("All generated files exist and are non-empty."))
			return nil
		}

		paths, err := newBuilder().All()
		printPaths(cmd.OutOrStdout(), "wrote", paths)
		return err
	},
}

func init() {
	banksCmd.Flags().BoolVar(&banksTest, "test", false, "Verify the generated files instead of building them")
	rootCmd.AddCommand(banksCmd)
}
