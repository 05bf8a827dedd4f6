// Package cli implements the studykit command line.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dgallion1/studykit/internal/bank"
	"github.com/dgallion1/studykit/internal/config"
	"github.com/dgallion1/studykit/internal/latex"
	"github.com/dgallion1/studykit/internal/llm"
	"github.com/dgallion1/studykit/internal/version"
)

var (
	envFile  string
	logLevel string
	jsonLogs bool

	cfg    config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "studykit",
	Short: "Turn a textbook PDF into study material",
	Long: `studykit splits a textbook PDF into pages, transcribes them to markdown with a
language model, reassembles the pages into outline sections, and builds LaTeX
quizzes and exams from banks of problem files.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadEnvFile(envFile); err != nil {
			return err
		}
		cfg = config.Load()
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
		}
		if jsonLogs {
			cfg.LogFormat = "json"
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("config: %w", err)
		}
		logger = newLogger(cfg)
		return nil
	},
}

func init() {
	rootCmd.Version = version.Version
	rootCmd.SetVersionTemplate(fmt.Sprintf("studykit %s\n", version.String()))

	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "Write logs as JSON")
}

// Execute runs the root command. Any error exits with status 1.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error:"), err)
		os.Exit(1)
	}
}

func newLogger(c config.Config) *slog.Logger {
	lvl, _ := c.SlogLevel()
	opts := &slog.HandlerOptions{Level: lvl}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// newLLMClient builds the configured model client. stats may be nil.
func newLLMClient(stats *llm.Stats) (llm.Client, error) {
	if err := cfg.RequireLLM(); err != nil {
		return nil, err
	}
	opts := []llm.Option{
		llm.WithHTTPClient(&http.Client{Timeout: cfg.LLMTimeout}),
		llm.WithLogger(logger),
	}
	if stats != nil {
		opts = append(opts, llm.WithStats(stats))
	}
	if cfg.LLMBaseURL != "" {
		opts = append(opts, llm.WithBaseURL(cfg.LLMBaseURL))
	}
	return llm.New(cfg.LLMProvider, cfg.APIKey(), cfg.LLMModel, opts...)
}

func retryPolicy() llm.RetryPolicy {
	p := llm.DefaultRetry
	p.Attempts = uint(cfg.LLMRetries)
	return p
}

func bankLayout() bank.Layout {
	return bank.Layout{SrcRoot: cfg.SrcRoot, BuildRoot: cfg.BuildRoot, Banks: cfg.BankDirs()}
}

func bankPattern() bank.Pattern {
	return bank.Pattern{Prefix: cfg.ProblemPrefix, Suffix: cfg.ProblemSuffix}
}

func newBuilder() *bank.Builder {
	meta := latex.Meta{Author: cfg.Author, Date: cfg.Date, Margin: cfg.Margin}
	return bank.NewBuilder(bankLayout(), bankPattern(), meta, logger)
}
