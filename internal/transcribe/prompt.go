// Package transcribe turns single-page PDFs into Obsidian markdown through a
// language model.
package transcribe

import (
	"fmt"
	"strings"
)

// SystemPrompt frames every transcription call.
const SystemPrompt = "You are a helpful assistant that converts PDF page text to clean, valid Obsidian Markdown."

const instructions = `Convert the following PDF page text into clean, well-structured Obsidian Markdown.

Use:
- ` + "`##` and `###`" + ` for headings and logical sectioning
- bullet points or numbered lists where appropriate
- ` + "`> blockquotes`" + ` for author commentary or insights
- ` + "`**bold**`" + ` for emphasis
- backticks or triple backticks for code or technical terms
- horizontal rules (` + "`---`" + `) to separate major segments if useful

Preserve all LaTeX-style math as inline (` + "`$...$`" + `) or block (` + "`$$...$$`" + `) where applicable.
Do not convert math to plain text. Reconstruct equations using standard LaTeX notation.

If content seems list-oriented or enumerative, structure it that way.
Do not hallucinate content or include explanations, extra commentary, or LaTeX artifacts.
Output only valid Obsidian-compatible Markdown, with no YAML frontmatter.
If the page is mostly blank or not useful, return an empty string.

`

// BuildPrompt returns the user prompt for one page.
func BuildPrompt(text string, page int) string {
	return instructions + fmt.Sprintf("Page %d text:\n%s\n\nMarkdown:", page, text)
}

// StripCodeFence removes a surrounding ```markdown or ``` fence the model
// sometimes wraps its answer in, and trims the result.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "```markdown"); ok {
		s = strings.TrimLeft(rest, "\n")
	}
	if rest, ok := strings.CutPrefix(s, "```"); ok {
		s = strings.TrimLeft(rest, "\n")
	}
	if rest, ok := strings.CutSuffix(s, "```"); ok {
		s = strings.TrimRight(rest, "\n")
	}
	return strings.TrimSpace(s)
}
