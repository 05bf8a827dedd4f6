package transcribe

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

var htmlTableRe = regexp.MustCompile(`(?is)<table\b.*?</table>`)

var tableConverter = converter.NewConverter(
	converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
		table.NewTablePlugin(),
	),
)

// ConvertHTMLTables rewrites raw <table> blocks in model output into pipe
// tables. Everything outside the tables is left byte for byte.
func ConvertHTMLTables(md string) (string, error) {
	var convErr error
	out := htmlTableRe.ReplaceAllStringFunc(md, func(block string) string {
		if convErr != nil {
			return block
		}
		converted, err := tableConverter.ConvertString(block)
		if err != nil {
			convErr = fmt.Errorf("convert html table: %w", err)
			return block
		}
		return strings.TrimSpace(converted)
	})
	if convErr != nil {
		return md, convErr
	}
	return out, nil
}
