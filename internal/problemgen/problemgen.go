// Package problemgen authors new bank problems with a language model.
package problemgen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/dgallion1/studykit/internal/bank"
	"github.com/dgallion1/studykit/internal/llm"
)

const (
	problemSystem = `You write exam problems for the LaTeX exam document class. Start the problem with \question and put the worked answer inside \begin{solution} ... \end{solution}. Output LaTeX only.`
	suggestSystem = "You are an instructor drafting exam questions from course material."

	problemMaxTokens = 500
)

// ErrEmptyOutput is returned when the model produced no content.
var ErrEmptyOutput = errors.New("no content generated")

var numberedLineRe = regexp.MustCompile(`^\s*\d+\.\s*(.*)`)

// Generator writes problem files into banks.
type Generator struct {
	client  llm.Client
	pattern bank.Pattern
	retry   llm.RetryPolicy
	context string
	log     *slog.Logger
}

func New(client llm.Client, pattern bank.Pattern, log *slog.Logger) *Generator {
	return &Generator{client: client, pattern: pattern, retry: llm.DefaultRetry, log: log}
}

// WithContext prepends shared course context to every problem prompt.
func (g *Generator) WithContext(text string) *Generator {
	g.context = strings.TrimSpace(text)
	return g
}

func (g *Generator) WithRetry(p llm.RetryPolicy) *Generator {
	g.retry = p
	return g
}

// LoadContext reads an optional context file. A missing file yields "".
func LoadContext(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read context: %w", err)
	}
	return string(data), nil
}

// Generate asks the model for one problem and writes it to bankDir as
// problem number. A number below 1 selects the bank's next free number.
func (g *Generator) Generate(ctx context.Context, bankDir string, number int, prompt string) (string, error) {
	if number < 1 {
		next, err := bank.NextNumber(bankDir, g.pattern)
		if err != nil {
			return "", err
		}
		number = next
	}

	full := prompt
	if g.context != "" {
		full = g.context + "\n\n" + prompt
	}
	resp, err := llm.CompleteWithRetry(ctx, g.client, llm.Request{
		System:    problemSystem,
		Prompt:    full,
		MaxTokens: problemMaxTokens,
	}, g.retry, g.log)
	if err != nil {
		return "", fmt.Errorf("generate problem: %w", err)
	}
	content := strings.TrimSpace(resp.Text)
	if content == "" {
		return "", ErrEmptyOutput
	}

	question, solution := bank.SplitQuestionSolution(content)
	path, err := bank.WriteProblem(bankDir, g.pattern, number, bank.FormatProblem(number, question, solution))
	if err != nil {
		return "", err
	}
	g.log.Info("generated problem", "path", path, "number", number)
	return path, nil
}

// SuggestPrompts asks for n problem prompts inspired by section text.
func (g *Generator) SuggestPrompts(ctx context.Context, section string, n int) ([]string, error) {
	prompt := fmt.Sprintf("Given the following section of text, generate a numbered list of %d distinct, high-quality LaTeX exam problem prompts (not full problems, just prompts) inspired by the content. "+
		"Do NOT include solutions or LaTeX markup, just the prompts.\n\nSection:\n%s\n\nList of %d distinct problem prompts:", n, section, n)

	resp, err := llm.CompleteWithRetry(ctx, g.client, llm.Request{
		System:    suggestSystem,
		Prompt:    prompt,
		MaxTokens: problemMaxTokens,
	}, g.retry, g.log)
	if err != nil {
		return nil, fmt.Errorf("suggest prompts: %w", err)
	}
	return ParsePrompts(resp.Text), nil
}

// ParsePrompts extracts the items of a numbered list, one per line.
func ParsePrompts(text string) []string {
	var prompts []string
	for _, line := range strings.Split(text, "\n") {
		if m := numberedLineRe.FindStringSubmatch(line); m != nil {
			if p := strings.TrimSpace(m[1]); p != "" {
				prompts = append(prompts, p)
			}
		}
	}
	return prompts
}

// BatchOptions drive Batch.
type BatchOptions struct {
	Count   int    // prompts requested per section file
	BankDir string // destination bank
	// Accept decides per suggested prompt whether to generate it. Nil
	// accepts everything.
	Accept func(file, prompt string) bool
}

// BatchResult records the outcome for one section file.
type BatchResult struct {
	File      string   `json:"file"`
	Prompts   []string `json:"prompts"`
	Generated []string `json:"generated"`
	Error     string   `json:"error,omitempty"`
}

// Batch suggests prompts for every regular file in dir, in name order, and
// generates a problem for each accepted prompt. Failures are recorded per
// file and do not stop the batch.
func (g *Generator) Batch(ctx context.Context, dir string, opts BatchOptions) ([]BatchResult, error) {
	if opts.Count < 1 {
		return nil, fmt.Errorf("count must be at least 1, got %d", opts.Count)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read prompts dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	var results []BatchResult
	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res := BatchResult{File: name}
		log := g.log.With("file", name)

		section, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			res.Error = err.Error()
			results = append(results, res)
			continue
		}
		res.Prompts, err = g.SuggestPrompts(ctx, string(section), opts.Count)
		if err != nil {
			log.Error("prompt suggestion failed", "error", err)
			res.Error = err.Error()
			results = append(results, res)
			continue
		}
		if len(res.Prompts) == 0 {
			log.Warn("no prompts parsed from model output")
		}

		for _, p := range res.Prompts {
			if opts.Accept != nil && !opts.Accept(name, p) {
				continue
			}
			path, err := g.Generate(ctx, opts.BankDir, 0, p)
			if err != nil {
				log.Error("problem generation failed", "prompt", p, "error", err)
				res.Error = err.Error()
				continue
			}
			res.Generated = append(res.Generated, path)
		}
		results = append(results, res)
	}
	return results, nil
}
