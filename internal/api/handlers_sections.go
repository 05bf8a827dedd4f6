package api

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/studykit/internal/kb"
	"github.com/dgallion1/studykit/internal/markdown"
	"github.com/dgallion1/studykit/internal/outline"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	idx := s.deps.KB.Index()
	if idx == nil {
		jsonError(w, "no section index loaded", http.StatusNotFound)
		return
	}
	if nested, _ := strconv.ParseBool(r.URL.Query().Get("nested")); nested {
		writeJSON(w, http.StatusOK, outline.Nest(idx))
		return
	}
	writeJSON(w, http.StatusOK, idx)
}

func (s *Server) handleListSections(w http.ResponseWriter, r *http.Request) {
	entries, err := s.deps.KB.Entries()
	if err != nil {
		jsonError(w, "failed to list sections: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []kb.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sections": entries})
}

// handleGetSection returns a section as JSON, or its body as markdown or
// rendered HTML when ?format= asks for it.
func (s *Server) handleGetSection(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		jsonError(w, "invalid section name", http.StatusBadRequest)
		return
	}
	sec, err := s.deps.KB.Section(name)
	if errors.Is(err, kb.ErrNotFound) {
		jsonError(w, "section not found: "+name, http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		writeJSON(w, http.StatusOK, sec)
	case "markdown", "md":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Write([]byte(sec.Body))
	case "html":
		html, err := markdown.RenderHTML([]byte(sec.Body))
		if err != nil {
			jsonError(w, "render failed: "+err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(html)
	default:
		jsonError(w, "unsupported format: "+format, http.StatusBadRequest)
	}
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		jsonError(w, "q query parameter is required", http.StatusBadRequest)
		return
	}
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			jsonError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}
	hits, err := s.deps.KB.Search(q, limit)
	if err != nil {
		jsonError(w, "search failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"query": q, "hits": hits})
}
