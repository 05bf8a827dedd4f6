package bank

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// PlaceholderSolution is used when generated content carries no solution.
const PlaceholderSolution = "<solution here>"

var pointsRe = regexp.MustCompile(`^\\question\s*\[[^\]]*\]`)

// SplitQuestionSolution separates generated LaTeX into question and solution
// parts, splitting on the first \begin{solution} or, failing that, the first
// "Solution:".
func SplitQuestionSolution(content string) (question, solution string) {
	if q, s, ok := strings.Cut(content, `\begin{solution}`); ok {
		return strings.TrimSpace(q), strings.TrimSpace(strings.ReplaceAll(s, `\end{solution}`, ""))
	}
	if q, s, ok := strings.Cut(content, "Solution:"); ok {
		return strings.TrimSpace(q), strings.TrimSpace(s)
	}
	return strings.TrimSpace(content), PlaceholderSolution
}

// FormatProblem renders a problem file body. Point allocations such as
// \question[10] are dropped and a missing \question command is added.
func FormatProblem(number int, question, solution string) string {
	question = strings.TrimSpace(question)
	if strings.HasPrefix(question, `\question`) {
		question = pointsRe.ReplaceAllString(question, `\question`)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%% Example problem %d\n", number)
	if !strings.HasPrefix(question, `\question`) {
		b.WriteString(`\question `)
	}
	b.WriteString(strings.TrimSpace(question))
	b.WriteString("\n\\begin{solution}\n")
	b.WriteString(strings.TrimSpace(solution))
	b.WriteString("\n\\end{solution}\n")
	return b.String()
}

// WriteProblem writes the problem file for number into dir and returns its
// path.
func WriteProblem(dir string, pat Pattern, number int, body string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create bank dir: %w", err)
	}
	path := filepath.Join(dir, pat.FileName(number))
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return "", fmt.Errorf("write problem: %w", err)
	}
	return path, nil
}
