package pdfdoc

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
)

var unsafeHintChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// ImageReport summarizes an image extraction run.
type ImageReport struct {
	Images []string // written image file names
	Pages  int      // pages whose markdown received references
	Errors []string // per-page failures, already skipped
}

// ImageFileName returns "page_<padded>_<hint>.<ext>" with the hint reduced to
// filesystem-safe characters.
func ImageFileName(page, total int, hint, ext string) string {
	hint = unsafeHintChars.ReplaceAllString(hint, "_")
	return PagePrefix + PadPageNumber(page, total) + "_" + hint + "." + ext
}

// ExtractImages writes the embedded images of every page of pdfPath into
// mdDir and appends a markdown image reference for each to that page's
// markdown file. Pages without a markdown file are left alone.
func ExtractImages(ctx context.Context, pdfPath, mdDir string) (ImageReport, error) {
	var report ImageReport

	pdfCtx, err := readContext(pdfPath)
	if err != nil {
		return report, err
	}
	total := pdfCtx.PageCount

	for page := 1; page <= total; page++ {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		mdPath := filepath.Join(mdDir, PageFileName(page, total, "md"))
		if _, err := os.Stat(mdPath); err != nil {
			continue
		}

		images, err := pdfcpu.ExtractPageImages(pdfCtx, page, false)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("page %d: %s", page, err))
			continue
		}
		if len(images) == 0 {
			continue
		}

		objNrs := make([]int, 0, len(images))
		for nr := range images {
			objNrs = append(objNrs, nr)
		}
		sort.Ints(objNrs)

		var refs []string
		used := make(map[string]bool)
		for i, nr := range objNrs {
			img := images[nr]
			hint := img.Name
			if hint == "" {
				hint = "img" + strconv.Itoa(i+1)
			}
			name := ImageFileName(page, total, hint, img.FileType)
			if used[name] {
				name = ImageFileName(page, total, hint+"_"+strconv.Itoa(nr), img.FileType)
			}
			used[name] = true

			if err := writeReader(filepath.Join(mdDir, name), img); err != nil {
				report.Errors = append(report.Errors, fmt.Sprintf("page %d image %s: %s", page, name, err))
				continue
			}
			report.Images = append(report.Images, name)
			refs = append(refs, name)
		}

		if len(refs) == 0 {
			continue
		}
		if err := appendImageRefs(mdPath, refs); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("page %d: %s", page, err))
			continue
		}
		report.Pages++
	}
	return report, nil
}

func appendImageRefs(mdPath string, names []string) error {
	f, err := os.OpenFile(mdPath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open markdown: %w", err)
	}
	for _, n := range names {
		if _, err := fmt.Fprintf(f, "\n![%s](%s)\n", n, n); err != nil {
			f.Close()
			return fmt.Errorf("append image ref: %w", err)
		}
	}
	return f.Close()
}
