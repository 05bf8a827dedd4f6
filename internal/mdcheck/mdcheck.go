// Package mdcheck lints assembled section markdown for formatting problems
// that commonly slip through model transcription.
package mdcheck

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/net/html"
	"gopkg.in/yaml.v3"

	"github.com/dgallion1/studykit/internal/markdown"
)

// Issue types.
const (
	UnclosedCodeBlock   = "unclosed_code_block"
	UnclosedYAML        = "unclosed_yaml"
	InvalidYAML         = "invalid_yaml"
	MissingImage        = "missing_image"
	TableColumnMismatch = "table_column_mismatch"
	MissingPage         = "missing_page"
)

// IssuesFileName is where Dir results are written by the CLI.
const IssuesFileName = "issues.json"

// Issue is one finding in one file.
type Issue struct {
	File    string `json:"file"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

var (
	fenceRe     = regexp.MustCompile("```")
	delimLineRe = regexp.MustCompile(`(?m)^---$`)
	tableRe     = regexp.MustCompile(`(\|.+\|\n(?:\|.+\|\n)+)`)
)

// Text checks one document. Relative image references are resolved against
// baseDir; an empty baseDir skips the image check.
func Text(src, name, baseDir string) []Issue {
	issues := []Issue{}
	add := func(typ, format string, args ...any) {
		issues = append(issues, Issue{File: name, Type: typ, Message: fmt.Sprintf(format, args...)})
	}

	if n := len(fenceRe.FindAllStringIndex(src, -1)); n%2 != 0 {
		add(UnclosedCodeBlock, "Odd number of triple backticks (```), possible unclosed code block.")
	}

	if strings.HasPrefix(strings.TrimSpace(src), "---") {
		if n := len(delimLineRe.FindAllStringIndex(src, -1)); n%2 != 0 {
			add(UnclosedYAML, "Odd number of YAML frontmatter delimiters (---), possible unclosed YAML.")
		} else if header, _, err := markdown.SplitFrontMatter([]byte(src)); err == nil && header != nil {
			var v map[string]any
			if err := yaml.Unmarshal(header, &v); err != nil {
				add(InvalidYAML, "Front matter is not valid YAML: %s", err)
			}
		}
	}

	if baseDir != "" {
		for _, ref := range markdown.ImageRefs([]byte(src)) {
			if strings.Contains(ref, "://") {
				continue
			}
			p := ref
			if !filepath.IsAbs(p) {
				p = filepath.Join(baseDir, filepath.FromSlash(ref))
			}
			if _, err := os.Stat(p); err != nil {
				add(MissingImage, "Image file not found: %s", ref)
			}
		}
	}

	for _, table := range tableRe.FindAllString(src, -1) {
		var counts []int
		for _, row := range strings.Split(strings.TrimSpace(table), "\n") {
			if strings.TrimSpace(row) != "" {
				counts = append(counts, strings.Count(row, "|")-strings.Count(row, `\|`))
			}
		}
		if len(counts) > 1 && !allEqual(counts) {
			add(TableColumnMismatch, "Table rows have inconsistent number of columns.")
		}
	}

	for _, page := range missingPages(src) {
		add(MissingPage, "Page markdown was missing when the section was assembled: %s", page)
	}
	return issues
}

// missingPages returns the file names recorded in placeholder comments.
func missingPages(src string) []string {
	var pages []string
	z := html.NewTokenizer(strings.NewReader(src))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return pages
		}
		if tt != html.CommentToken {
			continue
		}
		data := strings.TrimSpace(string(z.Text()))
		if name, ok := strings.CutPrefix(data, "Missing:"); ok {
			pages = append(pages, strings.TrimSpace(name))
		}
	}
}

func allEqual(xs []int) bool {
	for _, x := range xs[1:] {
		if x != xs[0] {
			return false
		}
	}
	return true
}

// Dir checks every *.md file directly inside dir, in name order.
func Dir(dir string) ([]Issue, int, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.md"))
	if err != nil {
		return nil, 0, err
	}
	sort.Strings(matches)

	issues := []Issue{}
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, 0, fmt.Errorf("read %s: %w", path, err)
		}
		issues = append(issues, Text(string(data), filepath.Base(path), dir)...)
	}
	return issues, len(matches), nil
}

// WriteIssues writes issues as indented JSON.
func WriteIssues(path string, issues []Issue) error {
	data, err := json.MarshalIndent(issues, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
