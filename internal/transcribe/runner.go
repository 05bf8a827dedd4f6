package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dgallion1/studykit/internal/llm"
)

// PageTexter extracts the text of a single-page PDF.
type PageTexter interface {
	PageText(path string) (string, error)
}

// Report counts what a run did with each page.
type Report struct {
	Written []string `json:"written"`
	Existed int      `json:"existed"`
	NoText  int      `json:"no_text"`
	Empty   int      `json:"empty"`
	Failed  []string `json:"failed"`
}

// Runner transcribes a directory of page PDFs, one page at a time.
type Runner struct {
	client        llm.Client
	text          PageTexter
	log           *slog.Logger
	retry         llm.RetryPolicy
	convertTables bool
}

func NewRunner(client llm.Client, text PageTexter, log *slog.Logger) *Runner {
	return &Runner{
		client: client,
		text:   text,
		log:    log,
		retry:  llm.DefaultRetry,
	}
}

// WithRetry overrides the per-page retry policy.
func (r *Runner) WithRetry(p llm.RetryPolicy) *Runner {
	r.retry = p
	return r
}

// WithTableConversion enables rewriting HTML tables into pipe tables.
func (r *Runner) WithTableConversion(on bool) *Runner {
	r.convertTables = on
	return r
}

// DefaultOutDir is pagesDir with an "_md" suffix.
func DefaultOutDir(pagesDir string) string {
	return strings.TrimRight(pagesDir, "/"+string(filepath.Separator)) + "_md"
}

// Run processes every *.pdf in pagesDir in file name order. The page number
// given to the model is the file's position plus one. Pages whose markdown
// already exists are skipped so an interrupted run can be resumed. Per-page
// failures are logged and skipped; only setup errors and cancellation are
// returned.
func (r *Runner) Run(ctx context.Context, pagesDir, outDir string) (Report, error) {
	var report Report

	entries, err := os.ReadDir(pagesDir)
	if err != nil {
		return report, fmt.Errorf("read pages dir: %w", err)
	}
	var pdfs []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".pdf") {
			pdfs = append(pdfs, e.Name())
		}
	}
	sort.Strings(pdfs)

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return report, fmt.Errorf("create output dir: %w", err)
	}

	for i, name := range pdfs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		page := i + 1
		log := r.log.With("file", name, "page", page)
		mdPath := filepath.Join(outDir, strings.TrimSuffix(name, ".pdf")+".md")

		if _, err := os.Stat(mdPath); err == nil {
			log.Info("markdown exists, skipping")
			report.Existed++
			continue
		}

		text, err := r.text.PageText(filepath.Join(pagesDir, name))
		if err != nil {
			log.Warn("text extraction failed", "error", err)
			report.Failed = append(report.Failed, name)
			continue
		}
		if strings.TrimSpace(text) == "" {
			log.Warn("no text extracted, skipping")
			report.NoText++
			continue
		}

		md, err := r.transcribe(ctx, log, text, page)
		if err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			log.Error("transcription failed", "error", err)
			report.Failed = append(report.Failed, name)
			continue
		}
		if md == "" {
			log.Warn("no markdown returned, skipping")
			report.Empty++
			continue
		}

		if err := os.WriteFile(mdPath, []byte(md), 0o644); err != nil {
			log.Error("write markdown failed", "error", err)
			report.Failed = append(report.Failed, name)
			continue
		}
		log.Info("page transcribed", "out", mdPath)
		report.Written = append(report.Written, mdPath)
	}
	return report, nil
}

func (r *Runner) transcribe(ctx context.Context, log *slog.Logger, text string, page int) (string, error) {
	resp, err := llm.CompleteWithRetry(ctx, r.client, llm.Request{
		System:    SystemPrompt,
		Prompt:    BuildPrompt(text, page),
		MaxTokens: llm.DefaultMaxTokens,
	}, r.retry, log)
	if err != nil {
		return "", err
	}
	log.Info("tokens used", "prompt", resp.Usage.PromptTokens, "completion", resp.Usage.CompletionTokens)

	md := StripCodeFence(resp.Text)
	if r.convertTables && md != "" {
		converted, err := ConvertHTMLTables(md)
		if err != nil {
			log.Warn("table conversion failed, keeping html", "error", err)
		} else {
			md = converted
		}
	}
	return md, nil
}
