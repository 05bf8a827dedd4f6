package pdfdoc

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// readContext loads and validates a PDF with pdfcpu's default configuration.
func readContext(path string) (*model.Context, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	ctx, err := api.ReadValidateAndOptimize(f, model.NewDefaultConfiguration())
	if err != nil {
		return nil, fmt.Errorf("read pdf %s: %w", filepath.Base(path), err)
	}
	return ctx, nil
}

// PageCount returns the number of pages of the PDF at path.
func PageCount(path string) (int, error) {
	pdfCtx, err := readContext(path)
	if err != nil {
		return 0, err
	}
	return pdfCtx.PageCount, nil
}

// Split writes one single-page PDF per page of inputPath into outDir, named
// page_<padded>.pdf, and returns their paths in page order. outDir is created
// if absent.
func Split(ctx context.Context, inputPath, outDir string) ([]string, error) {
	pdfCtx, err := readContext(inputPath)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	total := pdfCtx.PageCount
	paths := make([]string, 0, total)
	for page := 1; page <= total; page++ {
		if err := ctx.Err(); err != nil {
			return paths, err
		}
		r, err := api.ExtractPage(pdfCtx, page)
		if err != nil {
			return paths, fmt.Errorf("extract page %d: %w", page, err)
		}
		out := filepath.Join(outDir, PageFileName(page, total, "pdf"))
		if err := writeReader(out, r); err != nil {
			return paths, fmt.Errorf("write page %d: %w", page, err)
		}
		paths = append(paths, out)
	}
	return paths, nil
}

func writeReader(path string, r io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
