// Package sections reassembles per-page markdown into one file per outline
// section.
package sections

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dgallion1/studykit/internal/markdown"
	"github.com/dgallion1/studykit/internal/outline"
	"github.com/dgallion1/studykit/internal/pdfdoc"
)

var keyReplacer = strings.NewReplacer("/", "_", " ", "_")

// SanitizeKey turns a section key into a file name stem.
func SanitizeKey(key string) string {
	return keyReplacer.Replace(key)
}

// FileName is the section file written for key.
func FileName(key string) string {
	return SanitizeKey(key) + ".md"
}

// MissingPlaceholder marks a page whose markdown was not found.
func MissingPlaceholder(page, total int) string {
	return "<!-- Missing: " + pdfdoc.PageFileName(page, total, "md") + " -->"
}

// Combine concatenates the markdown of pages from pagesDir, separated by a
// blank line. Pages without a file are replaced by a placeholder comment.
func Combine(pages []int, pagesDir string, total int) (string, []int, error) {
	parts := make([]string, 0, len(pages))
	var missing []int
	for _, p := range pages {
		data, err := os.ReadFile(filepath.Join(pagesDir, pdfdoc.PageFileName(p, total, "md")))
		if os.IsNotExist(err) {
			parts = append(parts, MissingPlaceholder(p, total))
			missing = append(missing, p)
			continue
		}
		if err != nil {
			return "", nil, fmt.Errorf("read page %d: %w", p, err)
		}
		parts = append(parts, string(data))
	}
	return strings.Join(parts, "\n\n"), missing, nil
}

// Options control Assemble.
type Options struct {
	PagesDir string
	OutDir   string
	// NoOverlap disables appending the next section's first page.
	NoOverlap bool
	// SkipImages disables copying referenced images next to the sections.
	SkipImages bool
}

// Written describes one section file.
type Written struct {
	Key     string `json:"key"`
	Path    string `json:"path"`
	Pages   []int  `json:"pages"`
	Missing []int  `json:"missing,omitempty"`
	Images  int    `json:"images"`
}

// Report summarizes an Assemble run.
type Report struct {
	Sections []Written `json:"sections"`
	Skipped  []string  `json:"skipped"` // sections with no pages
}

// PagesWithOverlap returns the page list written for sec: its own pages plus
// the first page of the next section in start-page order, unless already
// present. The last section gets no overlap.
func PagesWithOverlap(sec outline.Section, next *outline.Section) []int {
	pages := slices.Clone(sec.Pages)
	if next == nil || len(next.Pages) == 0 {
		return pages
	}
	first := next.Pages[0]
	if !slices.Contains(pages, first) {
		pages = append(pages, first)
	}
	return pages
}

// Assemble writes one markdown file per non-empty section of idx into
// opts.OutDir. Sections whose sanitized names collide overwrite each other in
// index order.
func Assemble(ctx context.Context, idx *outline.Index, opts Options, log *slog.Logger) (Report, error) {
	var report Report
	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return report, fmt.Errorf("create output dir: %w", err)
	}

	next := make(map[string]*outline.Section)
	if !opts.NoOverlap {
		ordered := idx.ByStart()
		for i := 0; i+1 < len(ordered); i++ {
			next[ordered[i].Key] = &ordered[i+1]
		}
	}

	total := idx.TotalPages()
	for _, sec := range idx.Sections() {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if len(sec.Pages) == 0 {
			report.Skipped = append(report.Skipped, sec.Key)
			continue
		}

		w, err := writeSection(sec, next[sec.Key], total, opts)
		if err != nil {
			return report, fmt.Errorf("section %q: %w", sec.Key, err)
		}
		if len(w.Missing) > 0 {
			log.Warn("section has missing pages", "section", sec.Key, "missing", w.Missing)
		}
		log.Debug("section written", "section", sec.Key, "pages", w.Pages, "images", w.Images)
		report.Sections = append(report.Sections, w)
	}
	return report, nil
}

func writeSection(sec outline.Section, next *outline.Section, total int, opts Options) (Written, error) {
	pages := PagesWithOverlap(sec, next)
	w := Written{Key: sec.Key, Path: filepath.Join(opts.OutDir, FileName(sec.Key)), Pages: pages}

	body, missing, err := Combine(pages, opts.PagesDir, total)
	if err != nil {
		return w, err
	}
	w.Missing = missing

	header, err := markdown.EncodeFrontMatter(markdown.FrontMatter{Section: sec.Key, Pages: pages})
	if err != nil {
		return w, err
	}
	if err := os.WriteFile(w.Path, append(header, body...), 0o644); err != nil {
		return w, fmt.Errorf("write section: %w", err)
	}

	if !opts.SkipImages {
		n, err := copyImages([]byte(body), opts.PagesDir, opts.OutDir)
		if err != nil {
			return w, err
		}
		w.Images = n
	}
	return w, nil
}

// copyImages copies every locally referenced image found in pagesDir into
// outDir, keeping its relative path. References to absent files and remote
// URLs are ignored.
func copyImages(body []byte, pagesDir, outDir string) (int, error) {
	copied := 0
	for _, ref := range markdown.ImageRefs(body) {
		if strings.Contains(ref, "://") || filepath.IsAbs(ref) {
			continue
		}
		rel := filepath.Clean(filepath.FromSlash(ref))
		if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		src := filepath.Join(pagesDir, rel)
		info, err := os.Stat(src)
		if err != nil || info.IsDir() {
			continue
		}
		dst := filepath.Join(outDir, rel)
		if err := copyFile(src, dst); err != nil {
			return copied, fmt.Errorf("copy image %s: %w", ref, err)
		}
		copied++
	}
	return copied, nil
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
