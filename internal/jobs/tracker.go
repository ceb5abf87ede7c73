// Package jobs tracks in-flight analysis attempts in memory. The scheduler is
// the sole writer during processing; everyone else polls read-only copies.
package jobs

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stayscore/stayscore/internal/model"
)

var (
	ErrJobNotFound = errors.New("job not found")
	ErrJobTerminal = errors.New("job already in a terminal state")
)

// Tracker is an in-memory job registry safe for concurrent use.
type Tracker struct {
	mu   sync.Mutex
	jobs map[string]*model.Job
}

func NewTracker() *Tracker {
	return &Tracker{jobs: make(map[string]*model.Job)}
}

// Create registers a queued job for a domain and returns a copy of it.
func (t *Tracker) Create(domain string) model.Job {
	job := &model.Job{
		ID:        uuid.New().String(),
		Domain:    domain,
		Status:    model.JobQueued,
		CreatedAt: time.Now().UTC(),
	}
	t.mu.Lock()
	t.jobs[job.ID] = job
	t.mu.Unlock()
	return *job
}

// Get returns a copy of the job, or ErrJobNotFound.
func (t *Tracker) Get(id string) (model.Job, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	job, ok := t.jobs[id]
	if !ok {
		return model.Job{}, ErrJobNotFound
	}
	return *job, nil
}

// List returns copies of all jobs, newest first.
func (t *Tracker) List() []model.Job {
	t.mu.Lock()
	out := make([]model.Job, 0, len(t.jobs))
	for _, job := range t.jobs {
		out = append(out, *job)
	}
	t.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Start moves a queued job to running.
func (t *Tracker) Start(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	job, ok := t.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	if job.Status != model.JobQueued {
		return fmt.Errorf("job %s cannot start from %s", id, job.Status)
	}
	job.Status = model.JobRunning
	return nil
}

// SetProgress mirrors a progress callback onto a running job. Progress is
// monotonic: a lower value than the current one is ignored rather than
// rewinding the job.
func (t *Tracker) SetProgress(id string, percent int, step string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	job, ok := t.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	if job.Status != model.JobRunning {
		return nil // progress after settling is dropped
	}
	if percent > 100 {
		percent = 100
	}
	if percent > job.Progress {
		job.Progress = percent
	}
	if step != "" {
		job.CurrentStep = step
	}
	return nil
}

// Complete finalizes a job with its raw result. Progress freezes at 100.
func (t *Tracker) Complete(id string, result *model.RawResult) error {
	return t.finalize(id, model.JobCompleted, result, "")
}

// Fail finalizes a job with an error. Progress freezes at its last value.
func (t *Tracker) Fail(id string, errMsg string) error {
	return t.finalize(id, model.JobFailed, nil, errMsg)
}

func (t *Tracker) finalize(id string, status model.JobStatus, result *model.RawResult, errMsg string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	job, ok := t.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	if job.Status.Terminal() {
		return ErrJobTerminal
	}
	job.Status = status
	if status == model.JobCompleted {
		job.Progress = 100
		job.Result = result
	}
	job.Error = errMsg
	now := time.Now().UTC()
	job.CompletedAt = &now
	return nil
}

// Prune drops terminal jobs older than the retention window and returns how
// many were removed.
func (t *Tracker) Prune(retention time.Duration) int {
	cutoff := time.Now().UTC().Add(-retention)
	t.mu.Lock()
	defer t.mu.Unlock()
	removed := 0
	for id, job := range t.jobs {
		if job.Status.Terminal() && job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(t.jobs, id)
			removed++
		}
	}
	return removed
}
