package transcribe

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/studykit/internal/llm"
)

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"plain", "## Title\n\nBody", "## Title\n\nBody"},
		{"markdown fence", "```markdown\n## Title\n```", "## Title"},
		{"bare fence", "```\n- a\n- b\n```", "- a\n- b"},
		{"surrounding space", "  \n```markdown\nx\n```\n ", "x"},
		{"empty", "   ", ""},
		{"fence only", "```markdown\n```", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripCodeFence(tt.in))
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt("some text", 7)
	assert.True(t, strings.HasPrefix(p, "Convert the following PDF page text"), p)
	assert.True(t, strings.HasSuffix(p, "Page 7 text:\nsome text\n\nMarkdown:"), p)
	assert.Contains(t, p, "no YAML frontmatter")
}

func TestConvertHTMLTables(t *testing.T) {
	in := "## Data\n\n<table><tr><th>x</th><th>y</th></tr><tr><td>1</td><td>2</td></tr></table>\n\nAfter $a^2$."
	out, err := ConvertHTMLTables(in)
	require.NoError(t, err)
	assert.NotContains(t, out, "<table")
	assert.NotContains(t, out, "<td>")
	assert.Contains(t, out, "|", "expected a pipe table")
	assert.True(t, strings.HasPrefix(out, "## Data\n\n"), out)
	assert.True(t, strings.HasSuffix(out, "\n\nAfter $a^2$."), out)

	plain := "no tables here"
	out, err = ConvertHTMLTables(plain)
	require.NoError(t, err)
	assert.Equal(t, plain, out)
}

func TestDefaultOutDir(t *testing.T) {
	assert.Equal(t, "book_pages_md", DefaultOutDir("book_pages/"))
}

type fakeTexter map[string]string

func (f fakeTexter) PageText(path string) (string, error) {
	text, ok := f[filepath.Base(path)]
	if !ok {
		return "", errors.New("unreadable")
	}
	return text, nil
}

type fakeClient struct {
	mu      sync.Mutex
	replies map[string]string // page marker -> reply
	errs    map[string]error
	prompts []string
}

func (c *fakeClient) Model() string { return "fake" }

func (c *fakeClient) Complete(_ context.Context, req llm.Request) (llm.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompts = append(c.prompts, req.Prompt)
	for marker, err := range c.errs {
		if strings.Contains(req.Prompt, marker) {
			return llm.Response{}, err
		}
	}
	for marker, reply := range c.replies {
		if strings.Contains(req.Prompt, marker) {
			return llm.Response{Text: reply}, nil
		}
	}
	return llm.Response{}, nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("%PDF"), 0o644))
	}
}

func TestRunnerRun(t *testing.T) {
	pagesDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "out")
	touch(t, pagesDir, "page_0001.pdf", "page_0002.pdf", "page_0003.pdf", "page_0004.pdf", "page_0005.pdf", "notes.txt")

	texter := fakeTexter{
		"page_0001.pdf": "first page",
		"page_0002.pdf": "   ",
		"page_0003.pdf": "third page",
		"page_0004.pdf": "fourth page",
		// page_0005 unreadable
	}
	client := &fakeClient{
		replies: map[string]string{
			"Page 1 text:": "```markdown\n## One\n```",
			"Page 3 text:": "   ",
		},
		errs: map[string]error{
			"Page 4 text:": errors.New("openai api status 401: bad key"),
		},
	}

	r := NewRunner(client, texter, discard()).WithRetry(llm.RetryPolicy{Attempts: 3, BaseDelay: time.Millisecond})
	report, err := r.Run(context.Background(), pagesDir, outDir)
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(outDir, "page_0001.md"))
	require.NoError(t, err)
	assert.Equal(t, "## One", string(got), "fence is stripped")
	for _, n := range []string{"page_0002.md", "page_0003.md", "page_0004.md", "page_0005.md"} {
		assert.NoFileExists(t, filepath.Join(outDir, n))
	}

	assert.Len(t, report.Written, 1)
	assert.Equal(t, 1, report.NoText)
	assert.Equal(t, 1, report.Empty)
	assert.Len(t, report.Failed, 2)
	// Blank page never reaches the model; the 401 is not retried.
	assert.Len(t, client.prompts, 3)
}

func TestRunnerResumes(t *testing.T) {
	pagesDir := t.TempDir()
	outDir := t.TempDir()
	touch(t, pagesDir, "page_0001.pdf", "page_0002.pdf")
	require.NoError(t, os.WriteFile(filepath.Join(outDir, "page_0001.md"), []byte("kept"), 0o644))

	client := &fakeClient{replies: map[string]string{"Page 2 text:": "two"}}
	texter := fakeTexter{"page_0001.pdf": "a", "page_0002.pdf": "b"}
	report, err := NewRunner(client, texter, discard()).Run(context.Background(), pagesDir, outDir)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Existed)
	assert.Len(t, report.Written, 1)
	kept, err := os.ReadFile(filepath.Join(outDir, "page_0001.md"))
	require.NoError(t, err)
	assert.Equal(t, "kept", string(kept), "existing markdown must not be overwritten")
	require.Len(t, client.prompts, 1)
	assert.Contains(t, client.prompts[0], "Page 2 text:\nb")
}

func TestRunnerRetriesServerErrors(t *testing.T) {
	pagesDir := t.TempDir()
	outDir := t.TempDir()
	touch(t, pagesDir, "page_0001.pdf")

	client := &flakyClient{failures: 2}
	r := NewRunner(client, fakeTexter{"page_0001.pdf": "x"}, discard()).
		WithRetry(llm.RetryPolicy{Attempts: 3, BaseDelay: time.Millisecond})
	report, err := r.Run(context.Background(), pagesDir, outDir)
	require.NoError(t, err)
	assert.Len(t, report.Written, 1)
	assert.Equal(t, 3, client.calls)
}

type flakyClient struct {
	failures int
	calls    int
}

func (c *flakyClient) Model() string { return "flaky" }

func (c *flakyClient) Complete(context.Context, llm.Request) (llm.Response, error) {
	c.calls++
	if c.calls <= c.failures {
		return llm.Response{}, &llm.RetryableError{StatusCode: 503, Message: "busy"}
	}
	return llm.Response{Text: "done"}, nil
}

func TestRunnerMissingDir(t *testing.T) {
	_, err := NewRunner(&fakeClient{}, fakeTexter{}, discard()).Run(context.Background(), filepath.Join(t.TempDir(), "nope"), t.TempDir())
	assert.Error(t, err)
}
