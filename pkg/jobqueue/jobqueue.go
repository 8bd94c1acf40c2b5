// Package jobqueue is the bounded mpmc handoff between HTTP handlers and the
// single background worker that actually drives the pipeline: a fixed-size
// channel carrying Job values plus a mutex-guarded status table, in the same
// small-synchronization-primitive style as the gomind core foundation's
// circuit breaker and in-memory rate limiter. Grounded on the original jobs
// module's Queue/Worker pair.
package jobqueue

import (
	"context"
	"sync"

	"github.com/itsneelabh/hermes/internal/apperror"
	"github.com/itsneelabh/hermes/internal/corelog"
	"github.com/itsneelabh/hermes/pkg/admission"
	"github.com/itsneelabh/hermes/pkg/idgen"
	"github.com/itsneelabh/hermes/pkg/model"
)

// Runner is the subset of the pipeline orchestrator the worker needs. The
// queue depends on this interface, not *pipeline.Pipeline directly, so tests
// can substitute a stub runner.
type Runner interface {
	Run(ctx context.Context, request model.ListingRequest, auth *admission.AuthContext) (model.ListingResponse, error)
}

// Job is one unit of work handed from a request handler to the worker.
type Job struct {
	ID      string
	Request model.ListingRequest
	Auth    *admission.AuthContext
}

// Queue is a bounded channel of jobs plus a status table recording each
// job's current state. The channel capacity bounds how much work can be
// pending before Enqueue starts rejecting; the status table has no eviction,
// matching the spec's explicit non-goal of durable or bounded job state.
type Queue struct {
	jobs   chan Job
	runner Runner
	logger corelog.Logger

	mu     sync.Mutex
	status map[string]model.JobState
}

// New builds a Queue with the given channel capacity and runner. Call Start
// to launch the single background worker.
func New(capacity int, runner Runner, logger corelog.Logger) *Queue {
	if logger == nil {
		logger = corelog.NoOpLogger{}
	}
	if capacity <= 0 {
		capacity = 64
	}
	return &Queue{
		jobs:   make(chan Job, capacity),
		runner: runner,
		logger: logger,
		status: make(map[string]model.JobState),
	}
}

// Enqueue generates a job id, records it Queued, and attempts a non-blocking
// send onto the work channel. A full channel fails the enqueue with
// InvalidInput("queue_send_failed") rather than blocking the caller.
func (q *Queue) Enqueue(request model.ListingRequest, auth *admission.AuthContext) (string, error) {
	jobID := idgen.NewUUID()
	job := Job{ID: jobID, Request: request, Auth: auth}

	q.setStatus(jobID, model.JobState{JobID: jobID, State: model.JobQueued})

	select {
	case q.jobs <- job:
		return jobID, nil
	default:
		q.setStatus(jobID, model.JobState{JobID: jobID, State: model.JobFailed, Error: "queue_send_failed"})
		return "", apperror.InvalidInput("jobqueue", "queue_send_failed")
	}
}

// Status returns the current state for jobID and whether it is known.
func (q *Queue) Status(jobID string) (model.JobState, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	state, ok := q.status[jobID]
	return state, ok
}

func (q *Queue) setStatus(jobID string, state model.JobState) {
	q.mu.Lock()
	q.status[jobID] = state
	q.mu.Unlock()
}

// Start launches the single worker goroutine, draining jobs until ctx is
// canceled. The worker is intentionally single-threaded: the spec does not
// require concurrent job execution, and serializing it avoids interleaving
// offer-reconciliation calls for the same sku across jobs.
func (q *Queue) Start(ctx context.Context) {
	go q.workerLoop(ctx)
}

func (q *Queue) workerLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-q.jobs:
			if !ok {
				return
			}
			q.runOne(ctx, job)
		}
	}
}

func (q *Queue) runOne(ctx context.Context, job Job) {
	q.setStatus(job.ID, model.JobState{JobID: job.ID, State: model.JobRunning})

	result, err := q.runner.Run(ctx, job.Request, job.Auth)
	if err != nil {
		stage := ""
		if appErr, ok := err.(*apperror.Error); ok {
			stage = appErr.Stage
		}
		q.logger.Error("job_failed", map[string]interface{}{"job_id": job.ID, "stage": stage, "error": err.Error()})
		q.setStatus(job.ID, model.JobState{JobID: job.ID, State: model.JobFailed, Error: err.Error(), Stage: stage})
		return
	}

	q.setStatus(job.ID, model.JobState{JobID: job.ID, State: model.JobCompleted, Result: &result})
}
