// Package service provides the business logic behind docsum commands.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/raphaelgruber/docsum/internal/client"
	"github.com/raphaelgruber/docsum/internal/models"
)

var (
	// ErrInternal is reported when a document could not be submitted.
	ErrInternal = errors.New("internal error, retry later")

	// ErrTaskNotCompleted is returned by FetchResult for jobs that are not
	// known to have succeeded. No request is made in that case.
	ErrTaskNotCompleted = errors.New("task not completed yet")
)

// TaskAPI is the subset of the service API the tracker needs.
type TaskAPI interface {
	GenerateSummary(ctx context.Context, filename string, content io.Reader) (models.JobID, error)
	ListTasks(ctx context.Context) ([]client.Task, error)
	GetSummary(ctx context.Context, id models.JobID) (string, error)
}

// JobTracker owns the local list of summarization jobs. Operations may overlap;
// each one applies its change to the list atomically when it completes, so the
// last completing operation wins.
type JobTracker struct {
	api    TaskAPI
	logger *slog.Logger

	mu   sync.RWMutex
	jobs []models.Job
}

// NewJobTracker creates a tracker with an empty job list.
func NewJobTracker(api TaskAPI, logger *slog.Logger) *JobTracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &JobTracker{api: api, logger: logger}
}

// Jobs returns a snapshot of the current list.
func (t *JobTracker) Jobs() []models.Job {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.jobs)
}

// Job returns the locally known job with id.
func (t *JobTracker) Job(id models.JobID) (models.Job, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, j := range t.jobs {
		if j.ID == id {
			return j, true
		}
	}
	return models.Job{}, false
}

// Submit uploads a document and appends a pending job for it. The status the
// server reports at creation time is ignored; only Refresh changes it.
func (t *JobTracker) Submit(ctx context.Context, filename string, content io.Reader) (models.Job, error) {
	id, err := t.api.GenerateSummary(ctx, filename, content)
	if err != nil {
		t.logger.Warn("submit failed", "file", filename, "error", err)
		return models.Job{}, fmt.Errorf("%w: %w", ErrInternal, err)
	}

	job := models.Job{ID: id, Status: models.JobStatusPending}
	t.appendOne(job)
	t.logger.Info("job submitted", "job_id", id, "file", filename)
	return job, nil
}

// SubmitFile opens the file at path and submits it under its base name.
func (t *JobTracker) SubmitFile(ctx context.Context, path string) (models.Job, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.Job{}, fmt.Errorf("open document: %w", err)
	}
	defer f.Close()

	return t.Submit(ctx, filepath.Base(path), f)
}

// Refresh replaces the local list with the server's, succeeded jobs first.
// On failure the list is left as it was.
func (t *JobTracker) Refresh(ctx context.Context) ([]models.Job, error) {
	tasks, err := t.api.ListTasks(ctx)
	if err != nil {
		t.logger.Warn("refresh failed", "error", err)
		return nil, fmt.Errorf("refresh jobs: %w", err)
	}

	jobs := make([]models.Job, 0, len(tasks))
	for _, task := range tasks {
		jobs = append(jobs, models.Job{
			ID:     task.ID,
			Status: models.ParseJobStatus(task.Status),
		})
	}
	jobs = models.OrderJobs(jobs)

	t.replaceAll(jobs)
	t.logger.Debug("jobs refreshed", "count", len(jobs))
	return slices.Clone(jobs), nil
}

// FetchResult returns the summary of a succeeded job. The job list is not
// changed.
func (t *JobTracker) FetchResult(ctx context.Context, id models.JobID) (string, error) {
	job, ok := t.Job(id)
	if !ok || job.Status != models.JobStatusSucceeded {
		return "", ErrTaskNotCompleted
	}

	result, err := t.api.GetSummary(ctx, id)
	if err != nil {
		return "", fmt.Errorf("fetch result %s: %w", id, err)
	}
	return result, nil
}

// AllTerminal reports whether no job in the list is still pending.
func (t *JobTracker) AllTerminal() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, j := range t.jobs {
		if !j.Status.Terminal() {
			return false
		}
	}
	return true
}

func (t *JobTracker) replaceAll(jobs []models.Job) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.jobs = slices.Clone(jobs)
}

func (t *JobTracker) appendOne(job models.Job) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.jobs = append(t.jobs, job)
}
