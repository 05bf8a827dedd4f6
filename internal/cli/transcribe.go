package cli

import (
	"github.com/spf13/cobra"

	"github.com/dgallion1/studykit/internal/llm"
	"github.com/dgallion1/studykit/internal/pdfdoc"
	"github.com/dgallion1/studykit/internal/transcribe"
)

var transcribeTables bool

var transcribeCmd = &cobra.Command{
	Use:   "transcribe <pages_dir> [output_dir]",
	Short: "Transcribe single-page PDFs to markdown with a language model",
	Long: `Transcribe sends the text of each page PDF to the configured model and writes
page_NNNN.md into output_dir (default <pages_dir>_md). Pages that already have
markdown are skipped, so an interrupted run can simply be restarted.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		pagesDir := args[0]
		outDir := transcribe.DefaultOutDir(pagesDir)
		if len(args) > 1 {
			outDir = args[1]
		}

		stats := llm.NewStats(cfg.LLMStatsWindow)
		client, err := newLLMClient(stats)
		if err != nil {
			return err
		}
		tables := cfg.ConvertHTMLTables
		if cmd.Flags().Changed("convert-tables") {
			tables = transcribeTables
		}

		runner := transcribe.NewRunner(client, &pdfdoc.TextExtractor{FallbackPdftotext: cfg.PDFFallbackPdftotext}, logger).
			WithRetry(retryPolicy()).
			WithTableConversion(tables)
		report, err := runner.Run(cmd.Context(), pagesDir, outDir)

		snap := stats.Snapshot()
		printSummary(cmd.OutOrStdout(), "Transcription",
			stat{label: "Written", value: len(report.Written)},
			stat{label: "Already done", value: report.Existed},
			stat{label: "No text", value: report.NoText, warn: report.NoText > 0},
			stat{label: "Empty output", value: report.Empty, warn: report.Empty > 0},
			stat{label: "Failed", value: len(report.Failed), warn: len(report.Failed) > 0},
			stat{label: "Model", value: client.Model()},
			stat{label: "Tokens", value: snap.Tokens},
			stat{label: "p95 latency", value: int64(snap.P95Ms)},
		)
		return err
	},
}

func init() {
	transcribeCmd.Flags().BoolVar(&transcribeTables, "convert-tables", true, "Rewrite HTML tables in model output as markdown tables")
	rootCmd.AddCommand(transcribeCmd)
}
