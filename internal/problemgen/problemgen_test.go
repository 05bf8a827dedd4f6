package problemgen

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/studykit/internal/bank"
	"github.com/dgallion1/studykit/internal/llm"
)

type scriptedClient struct {
	replies []string
	reqs    []llm.Request
}

func (c *scriptedClient) Model() string { return "scripted" }

func (c *scriptedClient) Complete(_ context.Context, req llm.Request) (llm.Response, error) {
	c.reqs = append(c.reqs, req)
	if len(c.replies) == 0 {
		return llm.Response{}, errors.New("no more replies")
	}
	r := c.replies[0]
	c.replies = c.replies[1:]
	return llm.Response{Text: r}, nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParsePrompts(t *testing.T) {
	text := "Here are prompts:\n1. Derive the mean.\n  2.   Compute a variance  \n3.\nnot numbered\n10. Tenth one"
	assert.Equal(t, []string{"Derive the mean.", "Compute a variance", "Tenth one"}, ParsePrompts(text))
	assert.Empty(t, ParsePrompts("nothing here"))
}

func TestGenerateWritesFormattedProblem(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "problem4.tex"), []byte("x"), 0o644))

	client := &scriptedClient{replies: []string{`\question[5] What is 2+2?\begin{solution}4\end{solution}`}}
	g := New(client, bank.DefaultPattern, discard()).WithContext("Course: arithmetic")

	path, err := g.Generate(context.Background(), dir, 0, "Ask about addition")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "problem5.tex"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "% Example problem 5\n\\question What is 2+2?\n\\begin{solution}\n4\n\\end{solution}\n", string(data))

	require.Len(t, client.reqs, 1)
	assert.Equal(t, "Course: arithmetic\n\nAsk about addition", client.reqs[0].Prompt)
}

func TestGenerateEmptyOutput(t *testing.T) {
	dir := t.TempDir()
	client := &scriptedClient{replies: []string{"   "}}
	_, err := New(client, bank.DefaultPattern, discard()).Generate(context.Background(), dir, 3, "p")
	assert.ErrorIs(t, err, ErrEmptyOutput)
	_, statErr := os.Stat(filepath.Join(dir, "problem3.tex"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestLoadContext(t *testing.T) {
	got, err := LoadContext(filepath.Join(t.TempDir(), "context"))
	require.NoError(t, err)
	assert.Equal(t, "", got)

	path := filepath.Join(t.TempDir(), "context")
	require.NoError(t, os.WriteFile(path, []byte("Test context content."), 0o644))
	got, err = LoadContext(path)
	require.NoError(t, err)
	assert.Equal(t, "Test context content.", got)
}

func TestBatch(t *testing.T) {
	sectionsDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(sectionsDir, "a.md"), []byte("Section A text"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(sectionsDir, "sub"), 0o755))
	bankDir := filepath.Join(t.TempDir(), "Bank1")

	client := &scriptedClient{replies: []string{
		"1. First prompt\n2. Second prompt",
		`\question First? Solution: yes`,
	}}
	g := New(client, bank.DefaultPattern, discard())

	results, err := g.Batch(context.Background(), sectionsDir, BatchOptions{
		Count:   2,
		BankDir: bankDir,
		Accept:  func(_, p string) bool { return strings.HasPrefix(p, "First") },
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, []string{"First prompt", "Second prompt"}, results[0].Prompts)
	assert.Equal(t, []string{filepath.Join(bankDir, "problem1.tex")}, results[0].Generated)
	assert.Empty(t, results[0].Error)

	assert.Contains(t, client.reqs[0].Prompt, "numbered list of 2 distinct")
	assert.Contains(t, client.reqs[0].Prompt, "Section:\nSection A text")
}

func TestBatchRejectsZeroCount(t *testing.T) {
	_, err := New(&scriptedClient{}, bank.DefaultPattern, discard()).Batch(context.Background(), t.TempDir(), BatchOptions{})
	assert.Error(t, err)
}
