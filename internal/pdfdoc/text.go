package pdfdoc

import (
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"

	pdflib "github.com/ledongthuc/pdf"
)

// ErrNotSinglePage is returned for page artifacts holding more or fewer than
// one page.
var ErrNotSinglePage = errors.New("not a single-page pdf")

// TextExtractor reads the text of single-page PDFs. It tries the Go library
// first, then falls back to pdftotext if enabled.
type TextExtractor struct {
	FallbackPdftotext bool
}

// PageText returns the plain text of a single-page PDF. Files with any other
// page count are rejected.
func (e *TextExtractor) PageText(path string) (string, error) {
	text, err := extractPDFText(path)
	if err != nil && e.FallbackPdftotext && !errors.Is(err, ErrNotSinglePage) {
		if _, lookErr := exec.LookPath("pdftotext"); lookErr == nil {
			text, err = extractPdftotext(path)
		}
	}
	if err != nil {
		return "", fmt.Errorf("extract text from %s: %w", filepath.Base(path), err)
	}
	return text, nil
}

func extractPDFText(path string) (text string, err error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader: %v", r)
		}
	}()

	if n := reader.NumPage(); n != 1 {
		return "", fmt.Errorf("%w: found %d pages", ErrNotSinglePage, n)
	}
	page := reader.Page(1)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}

func extractPdftotext(path string) (string, error) {
	cmd := exec.Command("pdftotext", "-layout", path, "-")
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w", err)
	}
	return string(out), nil
}
