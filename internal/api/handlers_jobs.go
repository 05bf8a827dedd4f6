package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/studykit/internal/jobs"
	"github.com/dgallion1/studykit/internal/mdcheck"
	"github.com/dgallion1/studykit/internal/outline"
	"github.com/dgallion1/studykit/internal/sections"
)

// Job kinds accepted by POST /api/jobs.
const (
	JobBuild      = "build"
	JobSections   = "sections"
	JobCheck      = "check"
	JobTranscribe = "transcribe"
)

func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	if s.deps.Jobs == nil {
		jsonError(w, "background jobs are disabled", http.StatusServiceUnavailable)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)

	var req struct {
		Kind string `json:"kind"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	kind := req.Kind
	run, err := s.jobFunc(kind)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	job := jobs.New(kind, run)
	if err := s.deps.Jobs.Submit(job); err != nil {
		if errors.Is(err, jobs.ErrQueueFull) {
			jsonError(w, err.Error(), http.StatusTooManyRequests)
			return
		}
		if errors.Is(err, jobs.ErrQueueStopped) {
			jsonError(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.log.Info("job queued", "job_id", job.ID, "kind", kind)
	writeJSON(w, http.StatusAccepted, job.Snapshot())
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	if s.deps.Jobs == nil {
		jsonError(w, "background jobs are disabled", http.StatusServiceUnavailable)
		return
	}
	job := s.deps.Jobs.Get(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

func (s *Server) jobFunc(kind string) (jobs.Func, error) {
	switch kind {
	case JobBuild:
		return s.runBuild, nil
	case JobSections:
		return s.runSections, nil
	case JobCheck:
		return s.runCheck, nil
	case JobTranscribe:
		if s.deps.Transcriber == nil {
			return nil, fmt.Errorf("transcription needs a configured language model")
		}
		return s.runTranscribe, nil
	}
	return nil, fmt.Errorf("unknown job kind %q", kind)
}

func (s *Server) runBuild(c jobs.Context) error {
	b := s.deps.Builder
	for _, dir := range b.Layout().Banks {
		c.Job.SetStatus(jobs.StatusRunning, "bank "+filepath.Base(dir))
		paths, err := b.PerBank(dir)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			c.Job.AddError("no problems in " + dir)
		}
		for _, p := range paths {
			c.Job.AddOutput(p)
		}
	}
	c.Job.SetStatus(jobs.StatusRunning, "combined")
	paths, err := b.Combined()
	for _, p := range paths {
		c.Job.AddOutput(p)
	}
	return err
}

func (s *Server) runSections(c jobs.Context) error {
	idx, err := outline.ReadIndexFile(s.cfg.IndexPath)
	if err != nil {
		return err
	}
	report, err := sections.Assemble(c, idx, sections.Options{
		PagesDir: s.cfg.PagesMDDir,
		OutDir:   s.cfg.SectionsDir,
	}, c.Log)
	for _, sec := range report.Sections {
		c.Job.AddOutput(sec.Path)
		if len(sec.Missing) > 0 {
			c.Job.AddError(fmt.Sprintf("%s: missing pages %v", sec.Key, sec.Missing))
		}
	}
	return err
}

func (s *Server) runCheck(c jobs.Context) error {
	issues, files, err := mdcheck.Dir(s.cfg.SectionsDir)
	if err != nil {
		return err
	}
	path := filepath.Join(s.cfg.SectionsDir, mdcheck.IssuesFileName)
	if err := mdcheck.WriteIssues(path, issues); err != nil {
		return err
	}
	c.Job.AddOutput(path)
	for _, is := range issues {
		c.Job.AddError(fmt.Sprintf("%s: %s", is.File, is.Message))
	}
	c.Log.Info("markdown check finished", "files", files, "issues", len(issues))
	return nil
}

func (s *Server) runTranscribe(c jobs.Context) error {
	pagesDir := filepath.Dir(s.cfg.IndexPath)
	report, err := s.deps.Transcriber.Run(c, pagesDir, s.cfg.PagesMDDir)
	for _, p := range report.Written {
		c.Job.AddOutput(p)
	}
	for _, p := range report.Failed {
		c.Job.AddError("failed: " + p)
	}
	return err
}
