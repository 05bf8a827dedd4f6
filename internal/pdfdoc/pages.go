// Package pdfdoc reads and splits the paginated source documents: one PDF per
// page, the outline tree, per-page text and embedded images.
package pdfdoc

import (
	"fmt"
	"strconv"
	"strings"
)

// PagePrefix starts every per-page artifact name.
const PagePrefix = "page_"

// PadPageNumber zero-pads page to max(4, digits(total)).
func PadPageNumber(page, total int) string {
	width := max(4, len(strconv.Itoa(total)))
	return fmt.Sprintf("%0*d", width, page)
}

// PageFileName returns "page_<padded>.<ext>".
func PageFileName(page, total int, ext string) string {
	return PagePrefix + PadPageNumber(page, total) + "." + strings.TrimPrefix(ext, ".")
}
