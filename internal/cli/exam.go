package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	examBank  string
	examCount int
)

var examCmd = &cobra.Command{
	Use:   "exam",
	Short: "Build main.tex and main_solutions.tex from a random selection",
	Long: `Exam samples problems from one bank (the first configured bank unless
--bank is given) and writes main.tex and main_solutions.tex into the build
root.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		b := newBuilder()
		layout := b.Layout()

		bankDir := layout.Banks[0]
		if examBank != "" {
			dir, ok := layout.BankDir(examBank)
			if !ok {
				return fmt.Errorf("unknown bank %q (available: %v)", examBank, layout.BankNames())
			}
			bankDir = dir
		}

		count, err := countFor(cmd, newPrompter(cmd.InOrStdin(), cmd.OutOrStdout()), b, bankDir, examCount)
		if err != nil {
			return err
		}
		paths, err := b.Exam(bankDir, count, newRand(cmd))
		if err != nil {
			return err
		}
		printPaths(cmd.OutOrStdout(), "wrote", paths)
		return nil
	},
}

func init() {
	examCmd.Flags().StringVar(&examBank, "bank", "", "Bank name (default: first configured bank)")
	examCmd.Flags().IntVarP(&examCount, "count", "n", 0, "Number of problems (asked interactively when unset)")
	examCmd.Flags().Uint64Var(&quizSeed, "seed", 0, "Random seed for a reproducible selection")
	rootCmd.AddCommand(examCmd)
}
