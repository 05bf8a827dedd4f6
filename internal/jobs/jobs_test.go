package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func noop(Context) error { return nil }

func TestNewJob(t *testing.T) {
	a := New("build", noop)
	b := New("build", noop)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)

	snap := a.Snapshot()
	assert.Equal(t, StatusQueued, snap.Status)
	assert.Equal(t, "build", snap.Kind)
	assert.NotNil(t, snap.Outputs)
	assert.NotNil(t, snap.Errors)
}

func TestJob_OutputsAndErrors(t *testing.T) {
	job := New("sections", noop)
	job.AddOutput("a.md")
	job.AddError("page 3 missing")
	snap := job.Snapshot()
	assert.Equal(t, []string{"a.md"}, snap.Outputs)
	assert.Len(t, snap.Errors, 1)

	snap.Outputs[0] = "mutated"
	assert.Equal(t, "a.md", job.Snapshot().Outputs[0], "snapshot must not alias job state")
}

func TestStore_Cleanup(t *testing.T) {
	store := NewStore(time.Minute)

	done := New("build", noop)
	done.SetStatus(StatusCompleted, "")
	running := New("build", noop)
	running.SetStatus(StatusRunning, "")
	store.Put(done)
	store.Put(running)

	assert.Equal(t, 0, store.Cleanup(time.Now()))
	assert.Equal(t, 1, store.Cleanup(time.Now().Add(time.Hour)))
	assert.Nil(t, store.Get(done.ID), "finished job should be evicted")
	assert.NotNil(t, store.Get(running.ID), "running job must survive cleanup")
}

func waitFor(t *testing.T, job *Job, want Status) {
	t.Helper()
	require.Eventually(t, func() bool { return job.Status() == want },
		2*time.Second, 5*time.Millisecond, "job %s never reached %s", job.ID, want)
}

func TestQueue_RunsJobs(t *testing.T) {
	q := NewQueue(2, 4, time.Hour, discard())
	q.Start(context.Background())
	defer q.Stop()

	ok := New("build", func(c Context) error {
		c.Job.AddOutput("out.tex")
		return nil
	})
	partial := New("build", func(c Context) error {
		c.Job.AddError("bank empty")
		return nil
	})
	failed := New("build", func(Context) error { return errors.New("boom") })

	for _, j := range []*Job{ok, partial, failed} {
		require.NoError(t, q.Submit(j))
	}
	waitFor(t, ok, StatusCompleted)
	waitFor(t, partial, StatusPartial)
	waitFor(t, failed, StatusFailed)

	assert.Equal(t, []string{"boom"}, q.Get(failed.ID).Snapshot().Errors)
}

func TestQueue_Full(t *testing.T) {
	// Not started: nothing drains the queue.
	q := NewQueue(1, 1, time.Hour, discard())
	require.NoError(t, q.Submit(New("build", noop)))

	overflow := New("build", noop)
	assert.ErrorIs(t, q.Submit(overflow), ErrQueueFull)
	assert.Equal(t, StatusFailed, overflow.Status())
	assert.Equal(t, 1, q.Depth())
}

func TestQueue_SubmitAfterStop(t *testing.T) {
	q := NewQueue(1, 4, time.Hour, discard())
	q.Start(context.Background())
	q.Stop()
	q.Stop()

	late := New("build", noop)
	assert.NotPanics(t, func() {
		assert.ErrorIs(t, q.Submit(late), ErrQueueStopped)
	})
	assert.Equal(t, StatusFailed, late.Status())
	assert.NotNil(t, q.Get(late.ID))
}
