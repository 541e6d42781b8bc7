package pipeline

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/menta2k/listingkit/pkg/types"
)

// Status is the final state of a batch job
type Status string

const (
	StatusRunning   Status = "running"
	StatusComplete  Status = "complete"
	StatusCancelled Status = "cancelled"
)

// ProgressFunc receives batch progress. It is called from the worker
// goroutine while the project is locked, so it must not call back into the
// pipeline for the same project.
type ProgressFunc func(types.Progress)

// Report summarizes one batch run
type Report struct {
	JobID          string        `json:"job_id"`
	Project        int           `json:"project"`
	Total          int           `json:"total"`
	Completed      int           `json:"completed"`
	Skipped        int           `json:"skipped"`
	Errors         []string      `json:"errors,omitempty"`
	Status         Status        `json:"status"`
	BackgroundPath string        `json:"background_path,omitempty"`
	Duration       time.Duration `json:"duration"`
}

// Job is a queued or running batch run of one project
type Job struct {
	ID      string
	Project int

	parent    context.Context
	ctx       context.Context
	cancel    context.CancelFunc
	cancelled atomic.Bool
	done      chan struct{}
	report    Report
}

func newJob(parent context.Context, project int) *Job {
	ctx, cancel := context.WithCancel(parent)
	id := uuid.NewString()
	return &Job{
		ID:      id,
		Project: project,
		parent:  parent,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		report:  Report{JobID: id, Project: project, Status: StatusRunning},
	}
}

// Cancel stops the job. An in-flight background removal is aborted and its
// image left for the next run; images already cut out are still composited.
func (j *Job) Cancel() {
	j.cancelled.Store(true)
	j.cancel()
}

// Cancelled reports whether Cancel was called or the parent context ended
func (j *Job) Cancelled() bool {
	return j.cancelled.Load() || j.parent.Err() != nil
}

// Done is closed when the job has finished
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the job finishes or ctx ends
func (j *Job) Wait(ctx context.Context) (Report, error) {
	select {
	case <-j.done:
		return j.report, nil
	case <-ctx.Done():
		return Report{}, ctx.Err()
	}
}

func (j *Job) finish(r Report) {
	j.report = r
	j.cancel()
	close(j.done)
}
