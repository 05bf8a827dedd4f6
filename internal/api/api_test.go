package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/studykit/internal/bank"
	"github.com/dgallion1/studykit/internal/config"
	"github.com/dgallion1/studykit/internal/jobs"
	"github.com/dgallion1/studykit/internal/kb"
	"github.com/dgallion1/studykit/internal/latex"
	"github.com/dgallion1/studykit/internal/llm"
	"github.com/dgallion1/studykit/internal/outline"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	root   string
	layout bank.Layout
	cfg    config.Config
	srv    *Server
	queue  *jobs.Queue
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newFixture(t *testing.T, apiKey string) *fixture {
	t.Helper()
	root := t.TempDir()
	layout := bank.Layout{
		SrcRoot:   filepath.Join(root, "src"),
		BuildRoot: filepath.Join(root, "build"),
		Banks: []string{
			filepath.Join(root, "src", "banks", "Bank1"),
			filepath.Join(root, "src", "banks", "Bank2"),
		},
	}
	for _, n := range []string{"problem1.tex", "problem2.tex", "problem3.tex"} {
		write(t, filepath.Join(layout.Banks[0], n), "\\question "+n+"\n")
	}
	write(t, filepath.Join(layout.Banks[1], "problem1.tex"), "\\question only\n")

	cfg := config.Config{
		ServeAPIKey: apiKey,
		IndexPath:   filepath.Join(root, "book_pages", "index.json"),
		PagesMDDir:  filepath.Join(root, "book_pages_md"),
		SectionsDir: filepath.Join(root, "book_sections_md"),
	}
	idx := outline.NewIndex(2)
	idx.Set("Intro", []int{1})
	idx.Set("Chapter 1", []int{2})
	require.NoError(t, outline.WriteIndexFile(cfg.IndexPath, idx))
	write(t, filepath.Join(cfg.PagesMDDir, "page_0001.md"), "# Intro\n\nWelcome to **statistics**.")
	write(t, filepath.Join(cfg.PagesMDDir, "page_0002.md"), "# Chapter 1\n\nMeans and statistics.")
	write(t, filepath.Join(cfg.SectionsDir, "Intro.md"), "# Intro\n\nWelcome to **statistics**.\n")

	store, err := kb.Open(cfg.IndexPath, cfg.SectionsDir)
	require.NoError(t, err)

	queue := jobs.NewQueue(1, 4, time.Hour, discard())
	queue.Start(t.Context())
	t.Cleanup(queue.Stop)

	stats := llm.NewStats(time.Hour)
	stats.Record(200*time.Millisecond, 50)

	srv := NewServer(Deps{
		KB:      store,
		Builder: bank.NewBuilder(layout, bank.DefaultPattern, latex.Meta{}, discard()),
		Jobs:    queue,
		Stats:   stats,
		Model:   "gpt-4o",
		Rand:    func() *rand.Rand { return rand.New(rand.NewPCG(3, 4)) },
	}, discard(), cfg)
	return &fixture{root: root, layout: layout, cfg: cfg, srv: srv, queue: queue}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if f.cfg.ServeAPIKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.cfg.ServeAPIKey)
	}
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	f := newFixture(t, "secret")
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAuth(t *testing.T) {
	f := newFixture(t, "secret")

	req := httptest.NewRequest(http.MethodGet, "/api/sections", nil)
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid api key", decode(t, rec)["error"])

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/sections", nil).Code)
}

func TestIndex(t *testing.T) {
	f := newFixture(t, "")

	rec := f.do(t, http.MethodGet, "/api/index", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, []any{1.0}, body["Intro"])
	assert.Contains(t, body, outline.AllPagesKey)

	rec = f.do(t, http.MethodGet, "/api/index?nested=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	nested := decode(t, rec)
	assert.Contains(t, nested, "Chapter 1")
	assert.NotContains(t, nested, outline.AllPagesKey)
}

func TestSections(t *testing.T) {
	f := newFixture(t, "")

	rec := f.do(t, http.MethodGet, "/api/sections", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode(t, rec)["sections"].([]any)
	require.Len(t, list, 2)
	assert.Equal(t, true, list[0].(map[string]any)["available"])
	assert.Equal(t, false, list[1].(map[string]any)["available"])

	rec = f.do(t, http.MethodGet, "/api/sections/Intro", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sec := decode(t, rec)
	assert.Equal(t, "Intro", sec["key"])
	assert.Len(t, sec["headings"], 1)

	rec = f.do(t, http.MethodGet, "/api/sections/Intro?format=html", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "<strong>statistics</strong>")

	rec = f.do(t, http.MethodGet, "/api/sections/Intro?format=md", nil)
	assert.Equal(t, "# Intro\n\nWelcome to **statistics**.\n", rec.Body.String())

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/sections/Intro?format=pdf", nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/sections/Chapter%201", nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/sections/nope", nil).Code)
}

func TestSearch(t *testing.T) {
	f := newFixture(t, "")

	rec := f.do(t, http.MethodGet, "/api/search?q=statistics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	hits := decode(t, rec)["hits"].([]any)
	require.Len(t, hits, 1)
	assert.Equal(t, "Intro", hits[0].(map[string]any)["key"])

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/search", nil).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/search?q=x&limit=0", nil).Code)
}

func TestBanks(t *testing.T) {
	f := newFixture(t, "")

	rec := f.do(t, http.MethodGet, "/api/banks", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	banks := decode(t, rec)["banks"].([]any)
	require.Len(t, banks, 2)
	assert.Equal(t, "Bank1", banks[0].(map[string]any)["name"])
	assert.Equal(t, 3.0, banks[0].(map[string]any)["problems"])

	rec = f.do(t, http.MethodGet, "/api/banks/Bank1/problems", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	problems := decode(t, rec)["problems"].([]any)
	require.Len(t, problems, 3)
	assert.Equal(t, "problem3.tex", problems[2].(map[string]any)["file"])

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/banks/Bank9/problems", nil).Code)
}

func TestAddProblem(t *testing.T) {
	f := newFixture(t, "")

	rec := f.do(t, http.MethodPost, "/api/banks/Bank1/problems", map[string]any{"question": "What is 1+1?", "solution": "2"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "problem4.tex", decode(t, rec)["file"])

	data, err := os.ReadFile(filepath.Join(f.layout.Banks[0], "problem4.tex"))
	require.NoError(t, err)
	assert.Equal(t, "% Example problem 4\n\\question What is 1+1?\n\\begin{solution}\n2\n\\end{solution}\n", string(data))

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/banks/Bank1/problems", map[string]any{"question": " "}).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/banks/Bank1/problems", map[string]any{"question": "q", "number": -1}).Code)
}

func TestQuiz(t *testing.T) {
	f := newFixture(t, "")

	rec := f.do(t, http.MethodPost, "/api/banks/Bank1/quiz", map[string]int{"count": 2})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Len(t, body["problems"], 2)
	files := body["files"].(map[string]any)
	quiz := files[bank.QuizFile].(string)
	assert.Contains(t, quiz, `\title{Random Quiz from Bank1}`)
	assert.Equal(t, 2, strings.Count(quiz, `\input{../../../src/banks/Bank1/problem`))
	assert.Contains(t, files, bank.QuizSolFile)

	_, err := os.Stat(filepath.Join(f.layout.BuildDir(f.layout.Banks[0]), bank.QuizFile))
	assert.True(t, os.IsNotExist(err), "quiz endpoint must not write files")

	rec = f.do(t, http.MethodPost, "/api/banks/Bank1/quiz", map[string]int{"count": 4})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "between 1 and 3")
}

func TestLLMStats(t *testing.T) {
	f := newFixture(t, "")
	rec := f.do(t, http.MethodGet, "/api/stats/llm", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "gpt-4o", body["model"])
	assert.Equal(t, 1.0, body["stats"].(map[string]any)["count"])

	f.srv.deps.Stats = nil
	assert.Equal(t, http.StatusServiceUnavailable, f.do(t, http.MethodGet, "/api/stats/llm", nil).Code)
}

func waitJob(t *testing.T, f *fixture, id string) map[string]any {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		snap := decode(t, f.do(t, http.MethodGet, "/api/jobs/"+id, nil))
		switch snap["status"] {
		case string(jobs.StatusQueued), string(jobs.StatusRunning):
			time.Sleep(10 * time.Millisecond)
			continue
		}
		return snap
	}
	t.Fatalf("job %s did not finish", id)
	return nil
}

func TestBuildJob(t *testing.T) {
	f := newFixture(t, "")

	rec := f.do(t, http.MethodPost, "/api/jobs", map[string]string{"kind": "build"})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	id := decode(t, rec)["job_id"].(string)

	snap := waitJob(t, f, id)
	assert.Equal(t, string(jobs.StatusCompleted), snap["status"], snap)
	assert.Len(t, snap["outputs"], 6)
	_, err := os.Stat(filepath.Join(f.layout.BuildRoot, bank.CombinedFile))
	assert.NoError(t, err)
}

func TestSectionsJob(t *testing.T) {
	f := newFixture(t, "")

	rec := f.do(t, http.MethodPost, "/api/jobs", map[string]string{"kind": "sections"})
	require.Equal(t, http.StatusAccepted, rec.Code)
	snap := waitJob(t, f, decode(t, rec)["job_id"].(string))
	assert.Equal(t, string(jobs.StatusCompleted), snap["status"], snap)

	data, err := os.ReadFile(filepath.Join(f.cfg.SectionsDir, "Chapter_1.md"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Means and statistics.")
}

func TestJobErrors(t *testing.T) {
	f := newFixture(t, "")
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/jobs", map[string]string{"kind": "explode"}).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/jobs", map[string]string{"kind": "transcribe"}).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/jobs/unknown", nil).Code)

	f.srv.deps.Jobs = nil
	assert.Equal(t, http.StatusServiceUnavailable, f.do(t, http.MethodPost, "/api/jobs", map[string]string{"kind": "build"}).Code)
}

func TestOversizedBodies(t *testing.T) {
	f := newFixture(t, "")
	pad := strings.Repeat("x", maxRequestBytes)

	rec := f.do(t, http.MethodPost, "/api/banks/Bank1/quiz", map[string]any{"count": 2, "pad": pad})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "too large")

	rec = f.do(t, http.MethodPost, "/api/jobs", map[string]any{"kind": "build", "pad": pad})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "too large")

	rec = f.do(t, http.MethodPost, "/api/banks/Bank1/problems", map[string]any{"question": strings.Repeat("q", maxProblemBytes)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NoFileExists(t, filepath.Join(f.layout.Banks[0], "problem4.tex"))
}

func TestSubmitJobAfterQueueStopped(t *testing.T) {
	f := newFixture(t, "")
	f.queue.Stop()

	rec := f.do(t, http.MethodPost, "/api/jobs", map[string]string{"kind": "build"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "stopped")
}
