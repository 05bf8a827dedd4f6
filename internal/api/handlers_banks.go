package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/studykit/internal/bank"
)

// Request bodies are small JSON objects; problems carry the most text.
const (
	maxProblemBytes = 256 << 10
	maxRequestBytes = 4 << 10
)

type bankInfo struct {
	Name     string `json:"name"`
	Dir      string `json:"dir"`
	Problems int    `json:"problems"`
}

type problemInfo struct {
	Number int    `json:"number"`
	File   string `json:"file"`
}

func (s *Server) bankDir(w http.ResponseWriter, r *http.Request) (string, bool) {
	name := chi.URLParam(r, "bank")
	dir, ok := s.deps.Builder.Layout().BankDir(name)
	if !ok {
		jsonError(w, "unknown bank: "+name, http.StatusNotFound)
	}
	return dir, ok
}

func (s *Server) handleListBanks(w http.ResponseWriter, r *http.Request) {
	layout := s.deps.Builder.Layout()
	banks := make([]bankInfo, 0, len(layout.Banks))
	for i, dir := range layout.Banks {
		problems, err := s.deps.Builder.Problems(dir)
		if err != nil {
			jsonError(w, "failed to read bank: "+err.Error(), http.StatusInternalServerError)
			return
		}
		banks = append(banks, bankInfo{Name: layout.BankNames()[i], Dir: dir, Problems: len(problems)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"banks": banks})
}

func (s *Server) handleListProblems(w http.ResponseWriter, r *http.Request) {
	dir, ok := s.bankDir(w, r)
	if !ok {
		return
	}
	problems, err := s.deps.Builder.Problems(dir)
	if err != nil {
		jsonError(w, "failed to read bank: "+err.Error(), http.StatusInternalServerError)
		return
	}
	out := make([]problemInfo, len(problems))
	for i, p := range problems {
		out[i] = problemInfo{Number: p.Number, File: p.Name()}
	}
	writeJSON(w, http.StatusOK, map[string]any{"bank": chi.URLParam(r, "bank"), "problems": out})
}

type addProblemRequest struct {
	Number   int    `json:"number"` // 0 picks the next free number
	Question string `json:"question"`
	Solution string `json:"solution"`
}

// handleAddProblem stores a hand-written problem in the bank.
func (s *Server) handleAddProblem(w http.ResponseWriter, r *http.Request) {
	dir, ok := s.bankDir(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxProblemBytes)

	var req addProblemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		jsonError(w, "question is required", http.StatusBadRequest)
		return
	}
	if req.Number < 0 {
		jsonError(w, "number must not be negative", http.StatusBadRequest)
		return
	}

	pattern := s.deps.Builder.Pattern()
	number := req.Number
	if number == 0 {
		next, err := bank.NextNumber(dir, pattern)
		if err != nil {
			jsonError(w, err.Error(), http.StatusInternalServerError)
			return
		}
		number = next
	}
	solution := strings.TrimSpace(req.Solution)
	if solution == "" {
		solution = bank.PlaceholderSolution
	}

	path, err := bank.WriteProblem(dir, pattern, number, bank.FormatProblem(number, req.Question, solution))
	if err != nil {
		jsonError(w, "failed to write problem: "+err.Error(), http.StatusInternalServerError)
		return
	}
	s.log.Info("problem added", "path", path, "number", number)
	writeJSON(w, http.StatusCreated, problemInfo{Number: number, File: pattern.FileName(number)})
}

type quizRequest struct {
	Count int `json:"count"`
}

// handleQuiz renders a random quiz pair without writing files.
func (s *Server) handleQuiz(w http.ResponseWriter, r *http.Request) {
	dir, ok := s.bankDir(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)

	var req quizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	b := s.deps.Builder
	docs, err := b.QuizDocuments(dir, req.Count, s.deps.Rand(), b.Layout().BuildDir(dir))
	var selErr *bank.SelectionError
	if errors.As(err, &selErr) {
		jsonError(w, selErr.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	files, err := b.Render(docs)
	if err != nil {
		jsonError(w, "render failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"bank":     chi.URLParam(r, "bank"),
		"problems": docs[0].Inputs,
		"files":    files,
	})
}
