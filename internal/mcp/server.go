// Package mcp exposes the section knowledge base and the problem banks as
// Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/dgallion1/studykit/internal/bank"
	"github.com/dgallion1/studykit/internal/kb"
	"github.com/dgallion1/studykit/internal/markdown"
)

const Name = "studykit"

type GetSectionRequest struct {
	Name   string `json:"name"`   // section key or file name
	Format string `json:"format"` // "markdown" (default) or "html"
}

type SearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type ListProblemsRequest struct {
	Bank string `json:"bank"`
}

type QuizRequest struct {
	Bank  string `json:"bank"`
	Count int    `json:"count"`
}

type QuizResponse struct {
	Bank     string            `json:"bank"`
	Problems []string          `json:"problems"`
	Files    map[string]string `json:"files"`
}

// Tools holds what the tool handlers read from.
type Tools struct {
	KB      *kb.Store
	Builder *bank.Builder
	Rand    func() *rand.Rand
	Log     *slog.Logger
}

// NewServer creates the MCP server with the section and bank tools.
func NewServer(t *Tools, version string) *server.MCPServer {
	if t.Rand == nil {
		t.Rand = func() *rand.Rand { return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())) }
	}
	s := server.NewMCPServer(Name, version, server.WithToolCapabilities(false))

	s.AddTool(mcp.NewTool("list_sections",
		mcp.WithDescription("List the sections of the book with their page numbers"),
	), mcp.NewTypedToolHandler(t.listSections))

	s.AddTool(mcp.NewTool("get_section",
		mcp.WithDescription("Get the markdown of one book section"),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Section key (e.g. 'Chapter 1 > Basics') or its file name"),
		),
		mcp.WithString("format",
			mcp.Description("'markdown' (default) or 'html'"),
		),
	), mcp.NewTypedToolHandler(t.getSection))

	s.AddTool(mcp.NewTool("search_sections",
		mcp.WithDescription("Full-text search over the book sections"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Words to look for"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of hits (default 10)"),
		),
	), mcp.NewTypedToolHandler(t.searchSections))

	s.AddTool(mcp.NewTool("list_problems",
		mcp.WithDescription("List the problem files of a bank"),
		mcp.WithString("bank",
			mcp.Required(),
			mcp.Description("Bank name, e.g. 'Bank1'"),
		),
	), mcp.NewTypedToolHandler(t.listProblems))

	s.AddTool(mcp.NewTool("random_quiz",
		mcp.WithDescription("Render a random quiz (questions and solutions) from a bank without writing files"),
		mcp.WithString("bank",
			mcp.Required(),
			mcp.Description("Bank name, e.g. 'Bank1'"),
		),
		mcp.WithNumber("count",
			mcp.Required(),
			mcp.Description("Number of problems to draw"),
		),
	), mcp.NewTypedToolHandler(t.randomQuiz))

	return s
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}

func (t *Tools) listSections(ctx context.Context, _ mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, error) {
	entries, err := t.KB.Entries()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list sections: %v", err)), nil
	}
	if entries == nil {
		entries = []kb.Entry{}
	}
	return jsonResult(map[string]any{"sections": entries})
}

func (t *Tools) getSection(ctx context.Context, _ mcp.CallToolRequest, args GetSectionRequest) (*mcp.CallToolResult, error) {
	if args.Name == "" {
		return mcp.NewToolResultError("name is required"), nil
	}
	sec, err := t.KB.Section(args.Name)
	if errors.Is(err, kb.ErrNotFound) {
		return mcp.NewToolResultError("section not found: " + args.Name), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read section: %v", err)), nil
	}

	switch args.Format {
	case "", "markdown":
		return mcp.NewToolResultText(sec.Body), nil
	case "html":
		html, err := markdown.RenderHTML([]byte(sec.Body))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to render: %v", err)), nil
		}
		return mcp.NewToolResultText(string(html)), nil
	}
	return mcp.NewToolResultError("unsupported format: " + args.Format), nil
}

func (t *Tools) searchSections(ctx context.Context, _ mcp.CallToolRequest, args SearchRequest) (*mcp.CallToolResult, error) {
	if args.Query == "" {
		return mcp.NewToolResultError("query is required"), nil
	}
	limit := args.Limit
	if limit <= 0 {
		limit = 10
	}
	hits, err := t.KB.Search(args.Query, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	return jsonResult(map[string]any{"query": args.Query, "hits": hits})
}

func (t *Tools) listProblems(ctx context.Context, _ mcp.CallToolRequest, args ListProblemsRequest) (*mcp.CallToolResult, error) {
	dir, ok := t.Builder.Layout().BankDir(args.Bank)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unknown bank %q (available: %v)", args.Bank, t.Builder.Layout().BankNames())), nil
	}
	problems, err := t.Builder.Problems(dir)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read bank: %v", err)), nil
	}
	names := make([]string, len(problems))
	for i, p := range problems {
		names[i] = p.Name()
	}
	return jsonResult(map[string]any{"bank": args.Bank, "problems": names})
}

func (t *Tools) randomQuiz(ctx context.Context, _ mcp.CallToolRequest, args QuizRequest) (*mcp.CallToolResult, error) {
	dir, ok := t.Builder.Layout().BankDir(args.Bank)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unknown bank %q (available: %v)", args.Bank, t.Builder.Layout().BankNames())), nil
	}
	docs, err := t.Builder.QuizDocuments(dir, args.Count, t.Rand(), t.Builder.Layout().BuildDir(dir))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	files, err := t.Builder.Render(docs)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to render quiz: %v", err)), nil
	}
	if t.Log != nil {
		t.Log.Info("quiz rendered", "bank", args.Bank, "count", args.Count)
	}
	return jsonResult(QuizResponse{Bank: args.Bank, Problems: docs[0].Inputs, Files: files})
}
