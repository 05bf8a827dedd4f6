package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dgallion1/studykit/internal/problemgen"
)

var (
	batchPrompts string
	batchCount   int
	batchBank    string
	batchAccept  bool
)

var problemCmd = &cobra.Command{
	Use:   "problem <bank> <number> <prompt>",
	Short: "Generate a bank problem with the language model",
	Long: `Problem asks the model for one exam problem and writes it as
problem<number>.tex into the bank (number 0 picks the next free number).

With --batch-prompts <dir>, every file in dir is treated as course material:
the model suggests --count prompts per file, and each prompt that is accepted
(interactively, or all of them with --accept) becomes a problem in --bank.
The optional context file is prepended to every problem prompt.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if batchPrompts != "" {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(3)(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newLLMClient(nil)
		if err != nil {
			return err
		}
		courseContext, err := problemgen.LoadContext(cfg.ContextFile)
		if err != nil {
			return err
		}
		gen := problemgen.New(client, bankPattern(), logger).
			WithRetry(retryPolicy()).
			WithContext(courseContext)
		layout := bankLayout()

		if batchPrompts != "" {
			return runBatch(cmd, gen)
		}

		bankDir, ok := layout.BankDir(args[0])
		if !ok {
			return fmt.Errorf("unknown bank %q (available: %v)", args[0], layout.BankNames())
		}
		number, err := strconv.Atoi(args[1])
		if err != nil || number < 0 {
			return fmt.Errorf("problem number must be a non-negative integer, got %q", args[1])
		}
		path, err := gen.Generate(cmd.Context(), bankDir, number, args[2])
		if err != nil {
			return err
		}
		printPaths(cmd.OutOrStdout(), "wrote", []string{path})
		return nil
	},
}

func runBatch(cmd *cobra.Command, gen *problemgen.Generator) error {
	layout := bankLayout()
	ask := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())

	bankName := batchBank
	if bankName == "" {
		bankName = layout.BankNames()[0]
	}
	bankDir, ok := layout.BankDir(bankName)
	if !ok {
		return fmt.Errorf("unknown bank %q (available: %v)", bankName, layout.BankNames())
	}

	var askErr error
	accept := func(file, prompt string) bool {
		if batchAccept {
			return true
		}
		if askErr != nil {
			return false
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\n%s %s\n", dimStyle.Render(file+":"), prompt)
		ok, err := ask.yes("Use this prompt to generate a problem? (y/n): ")
		if err != nil {
			askErr = err
			return false
		}
		return ok
	}

	results, err := gen.Batch(cmd.Context(), batchPrompts, problemgen.BatchOptions{
		Count:   batchCount,
		BankDir: bankDir,
		Accept:  accept,
	})
	generated, failed := 0, 0
	for _, r := range results {
		generated += len(r.Generated)
		printPaths(cmd.OutOrStdout(), "wrote", r.Generated)
		if r.Error != "" {
			failed++
			printWarn(cmd.ErrOrStderr(), "%s: %s", r.File, r.Error)
		}
	}
	printSummary(cmd.OutOrStdout(), "Batch generation",
		stat{label: "Files", value: len(results)},
		stat{label: "Problems", value: generated},
		stat{label: "Files with errors", value: failed, warn: failed > 0},
		stat{label: "Bank", value: bankName},
	)
	if err != nil {
		return err
	}
	return askErr
}

func init() {
	problemCmd.Flags().StringVar(&batchPrompts, "batch-prompts", "", "Directory of section files to draw prompts from")
	problemCmd.Flags().IntVar(&batchCount, "count", 3, "Prompts to suggest per file in batch mode")
	problemCmd.Flags().StringVar(&batchBank, "bank", "", "Destination bank in batch mode (default: first configured bank)")
	problemCmd.Flags().BoolVar(&batchAccept, "accept", false, "Accept every suggested prompt without asking")
	rootCmd.AddCommand(problemCmd)
}
