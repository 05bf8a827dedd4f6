package cli

import (
	"fmt"
	"math/rand/v2"

	"github.com/spf13/cobra"

	"github.com/dgallion1/studykit/internal/bank"
)

var (
	quizBank  string
	quizCount int
	quizSeed  uint64
)

var quizCmd = &cobra.Command{
	Use:   "quiz",
	Short: "Build a random quiz from one bank",
	Long: `Quiz samples problems from a bank and writes random_quiz.tex and
random_quiz_sol.tex into the bank's build directory. The bank and the number
of problems are asked for interactively unless given as flags.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		b := newBuilder()
		layout := b.Layout()
		ask := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())

		var bankDir string
		if quizBank != "" {
			dir, ok := layout.BankDir(quizBank)
			if !ok {
				return fmt.Errorf("unknown bank %q (available: %v)", quizBank, layout.BankNames())
			}
			bankDir = dir
		} else {
			names := layout.BankNames()
			fmt.Fprintln(cmd.OutOrStdout(), "Available banks:")
			for i, name := range names {
				fmt.Fprintf(cmd.OutOrStdout(), "%d: %s\n", i+1, name)
			}
			choice, err := ask.number(fmt.Sprintf("Select a bank by number (1-%d): ", len(names)))
			if err != nil {
				return err
			}
			if choice < 1 || choice > len(names) {
				return &bank.SelectionError{Requested: choice, Available: len(names)}
			}
			bankDir = layout.Banks[choice-1]
		}

		count, err := countFor(cmd, ask, b, bankDir, quizCount)
		if err != nil {
			return err
		}
		paths, err := b.Quiz(bankDir, count, newRand(cmd))
		if err != nil {
			return err
		}
		printPaths(cmd.OutOrStdout(), "wrote", paths)
		return nil
	},
}

// countFor returns flagValue when the flag is set, otherwise asks for it.
func countFor(cmd *cobra.Command, ask *prompter, b *bank.Builder, bankDir string, flagValue int) (int, error) {
	if cmd.Flags().Changed("count") {
		return flagValue, nil
	}
	problems, err := b.Problems(bankDir)
	if err != nil {
		return 0, err
	}
	if len(problems) == 0 {
		return 0, fmt.Errorf("no problems found in %s", bankDir)
	}
	return ask.number(fmt.Sprintf("How many problems to select (1-%d)? ", len(problems)))
}

// newRand seeds from --seed when given so a selection can be reproduced.
func newRand(cmd *cobra.Command) *rand.Rand {
	if cmd.Flags().Changed("seed") {
		return rand.New(rand.NewPCG(quizSeed, quizSeed))
	}
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

func init() {
	quizCmd.Flags().StringVar(&quizBank, "bank", "", "Bank name (asked interactively when empty)")
	quizCmd.Flags().IntVarP(&quizCount, "count", "n", 0, "Number of problems (asked interactively when unset)")
	quizCmd.Flags().Uint64Var(&quizSeed, "seed", 0, "Random seed for a reproducible selection")
	rootCmd.AddCommand(quizCmd)
}
