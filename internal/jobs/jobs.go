// Package jobs runs long build steps in the background for the HTTP server.
package jobs

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusPartial   Status = "partial"
)

// Func does the work of a job. It reports outputs and per-item problems
// through the job; a returned error fails the whole job.
type Func func(ctx Context) error

// Job tracks one background task.
type Job struct {
	mu sync.Mutex

	ID        string
	Kind      string
	status    Status
	phase     string
	outputs   []string
	errors    []string
	createdAt time.Time
	updatedAt time.Time

	run Func
}

// New returns a queued job of the given kind.
func New(kind string, run Func) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.NewString(),
		Kind:      kind,
		status:    StatusQueued,
		createdAt: now,
		updatedAt: now,
		run:       run,
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status Status, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = status
	j.phase = phase
	j.updatedAt = time.Now()
}

// AddOutput records a file the job wrote.
func (j *Job) AddOutput(path string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.outputs = append(j.outputs, path)
	j.updatedAt = time.Now()
}

// AddError records a non-fatal problem.
func (j *Job) AddError(msg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, msg)
	j.updatedAt = time.Now()
}

func (j *Job) Status() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

func (j *Job) lastUpdate() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.updatedAt
}

// Snapshot is a read-only, JSON-safe copy of job state.
type Snapshot struct {
	ID        string    `json:"job_id"`
	Kind      string    `json:"kind"`
	Status    Status    `json:"status"`
	Phase     string    `json:"phase,omitempty"`
	Outputs   []string  `json:"outputs"`
	Errors    []string  `json:"errors"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (j *Job) Snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	return Snapshot{
		ID:        j.ID,
		Kind:      j.Kind,
		Status:    j.status,
		Phase:     j.phase,
		Outputs:   append([]string{}, j.outputs...),
		Errors:    append([]string{}, j.errors...),
		CreatedAt: j.createdAt,
		UpdatedAt: j.updatedAt,
	}
}

// Store is a thread-safe in-memory job registry with TTL eviction.
type Store struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewStore(ttl time.Duration) *Store {
	return &Store{jobs: make(map[string]*Job), ttl: ttl}
}

func (s *Store) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *Store) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup removes finished jobs not updated within the TTL.
func (s *Store) Cleanup(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, job := range s.jobs {
		st := job.Status()
		if st == StatusQueued || st == StatusRunning {
			continue
		}
		if now.Sub(job.lastUpdate()) > s.ttl {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed
}
