package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/studykit/internal/api"
	"github.com/dgallion1/studykit/internal/jobs"
	"github.com/dgallion1/studykit/internal/kb"
	"github.com/dgallion1/studykit/internal/llm"
	"github.com/dgallion1/studykit/internal/pdfdoc"
	"github.com/dgallion1/studykit/internal/transcribe"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve sections and problem banks over HTTP",
	Long: `Serve exposes the assembled sections, full-text search, the problem banks,
in-memory quiz rendering and background build jobs as a JSON API. Requests
must carry "Authorization: Bearer $STUDYKIT_API_KEY" when that key is set.
The transcribe job is only available when a model API key is configured.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("port") {
			cfg.Port = servePort
		}
		store, err := kb.Open(cfg.IndexPath, cfg.SectionsDir)
		if err != nil {
			return err
		}

		deps := api.Deps{KB: store, Builder: newBuilder()}
		if cfg.RequireLLM() == nil {
			deps.Stats = llm.NewStats(cfg.LLMStatsWindow)
			client, err := newLLMClient(deps.Stats)
			if err != nil {
				return err
			}
			deps.Model = client.Model()
			deps.Transcriber = transcribe.NewRunner(client, &pdfdoc.TextExtractor{FallbackPdftotext: cfg.PDFFallbackPdftotext}, logger).
				WithRetry(retryPolicy()).
				WithTableConversion(cfg.ConvertHTMLTables)
		} else {
			logger.Info("no model credentials, transcribe job disabled")
		}

		ctx := cmd.Context()
		queue := jobs.NewQueue(cfg.JobWorkers, cfg.JobQueue, cfg.JobTTL, logger)
		queue.Start(ctx)
		deps.Jobs = queue

		httpServer := &http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      api.NewServer(deps, logger, cfg),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		go func() {
			<-ctx.Done()
			logger.Info("shutting down...")

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			httpServer.Shutdown(shutdownCtx)

			queue.Stop()
		}()

		logger.Info("starting studykit api", "port", cfg.Port, "sections", cfg.SectionsDir, "auth", cfg.ServeAPIKey != "")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "8090", "Listen port (overrides PORT)")
	rootCmd.AddCommand(serveCmd)
}
