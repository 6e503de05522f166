package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prismworks/prism-api/internal/domain"
	"github.com/prismworks/prism-api/internal/redact"
)

// Common errors for orchestrator construction
var (
	ErrNilStore     = errors.New("task store cannot be nil")
	ErrNilProvider  = errors.New("provider client cannot be nil")
	ErrNilArtifacts = errors.New("artifact store cannot be nil")
	ErrNilCatalog   = errors.New("image catalog cannot be nil")
	ErrNilLogger    = errors.New("logger cannot be nil")
)

// PollResult is one poll response from the external provider.
type PollResult struct {
	// Status is the provider's coarse job status.
	Status ProviderStatus

	// ResultRef is a downloadable reference to the generated artifact,
	// populated only when Status is succeeded.
	ResultRef string

	// Message carries the provider's failure detail when Status is failed.
	Message string
}

// ProviderClient is the contract the orchestrator expects from the external
// text-to-image provider.
type ProviderClient interface {
	// CreateJob starts a remote generation job and returns its provider-side ID.
	CreateJob(ctx context.Context, req domain.GenerationRequest) (string, error)

	// Poll reports the current status of a provider job.
	Poll(ctx context.Context, jobID string) (PollResult, error)

	// Download fetches the raw artifact bytes behind a result reference.
	Download(ctx context.Context, resultRef string) ([]byte, error)
}

// SavedArtifact describes a durably persisted artifact.
type SavedArtifact struct {
	ID           uuid.UUID
	ImageURL     string
	ThumbnailURL string
}

// ArtifactStore is the contract for durable artifact persistence: it writes
// the full image and a derived thumbnail and returns their locations.
type ArtifactStore interface {
	Save(ctx context.Context, data []byte, ownerID uuid.UUID) (SavedArtifact, error)
}

// ImageCatalog is the long-lived record of generated images, written once
// per successful task. The relational image store satisfies this directly.
type ImageCatalog interface {
	Create(ctx context.Context, image *domain.Image) error
}

// OrchestratorConfig holds configuration for the orchestrator's worker pool
// and retention behavior.
type OrchestratorConfig struct {
	// WorkerCount determines how many tasks are driven concurrently.
	WorkerCount int

	// QueueSize determines the buffer size for the submission queue.
	// Submit rejects with ErrQueueFull once the buffer is saturated.
	QueueSize int

	// Policy governs the provider polling loop.
	Policy Policy

	// Retention is how long terminal task records are kept before purge.
	Retention time.Duration
}

// DefaultOrchestratorConfig returns an OrchestratorConfig with reasonable defaults.
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		WorkerCount: 4,
		QueueSize:   100,
		Policy:      DefaultPolicy(),
		Retention:   time.Hour,
	}
}

// job is one queued unit of background work.
type job struct {
	taskID  uuid.UUID
	ownerID uuid.UUID
	request domain.GenerationRequest
}

// Orchestrator accepts generation requests, tracks each as a task record,
// and drives every accepted task to a terminal state through a bounded pool
// of worker goroutines. Submission never blocks on generation; status reads
// never block on an in-flight worker.
type Orchestrator struct {
	store     Store
	provider  ProviderClient
	artifacts ArtifactStore
	catalog   ImageCatalog
	config    OrchestratorConfig

	queue  chan job
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger *slog.Logger
}

// NewOrchestrator creates an orchestrator. Workers do not run until Start
// is called.
func NewOrchestrator(
	store Store,
	provider ProviderClient,
	artifacts ArtifactStore,
	catalog ImageCatalog,
	config OrchestratorConfig,
	logger *slog.Logger,
) (*Orchestrator, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	if provider == nil {
		return nil, ErrNilProvider
	}
	if artifacts == nil {
		return nil, ErrNilArtifacts
	}
	if catalog == nil {
		return nil, ErrNilCatalog
	}
	if logger == nil {
		return nil, ErrNilLogger
	}

	// Apply defaults for invalid config values
	if config.WorkerCount <= 0 {
		config.WorkerCount = 1
		logger.Warn("invalid worker count specified, using default",
			"default_count", 1)
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 1
	}
	if config.Policy.MaxAttempts <= 0 {
		config.Policy = DefaultPolicy()
	}
	if config.Retention <= 0 {
		config.Retention = time.Hour
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Orchestrator{
		store:     store,
		provider:  provider,
		artifacts: artifacts,
		catalog:   catalog,
		config:    config,
		queue:     make(chan job, config.QueueSize),
		ctx:       ctx,
		cancel:    cancel,
		logger:    logger.With(slog.String("component", "orchestrator")),
	}, nil
}

// Start launches the worker pool.
func (o *Orchestrator) Start() {
	for i := 0; i < o.config.WorkerCount; i++ {
		o.wg.Add(1)
		go o.worker(i)
	}

	o.logger.Info("orchestrator started",
		"worker_count", o.config.WorkerCount,
		"queue_size", o.config.QueueSize)
}

// Stop cancels in-flight work at its next suspension point and waits for
// all workers to exit. Tasks interrupted mid-flight are marked failed.
func (o *Orchestrator) Stop() {
	o.cancel()
	o.wg.Wait()
	o.logger.Info("orchestrator stopped")
}

// Submit validates the request, creates a pending task record, and enqueues
// one unit of background work for it. It returns the task ID as soon as the
// record exists; the caller never waits on generation.
//
// Returns ErrInvalidRequest for an unusable request (no task is created)
// and ErrQueueFull when the worker pool's queue is saturated.
func (o *Orchestrator) Submit(
	ctx context.Context,
	ownerID uuid.UUID,
	req domain.GenerationRequest,
) (uuid.UUID, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	record := NewRecord(ownerID, req)
	if err := o.store.Create(ctx, record); err != nil {
		return uuid.Nil, fmt.Errorf("failed to create task record: %w", err)
	}

	select {
	case o.queue <- job{taskID: record.ID, ownerID: ownerID, request: req}:
		o.logger.Debug("task enqueued",
			"task_id", record.ID,
			"queue_len", len(o.queue),
			"queue_cap", cap(o.queue))
		return record.ID, nil
	default:
		// Queue is saturated: reject the submission and discard the record
		// so a later status read reports not found rather than a ghost task.
		if err := o.store.ScheduleDelete(ctx, record.ID, 0); err != nil {
			o.logger.Error("failed to discard rejected task record",
				"task_id", record.ID,
				"error", err)
		}
		return uuid.Nil, fmt.Errorf("%w: queue capacity %d reached", ErrQueueFull, cap(o.queue))
	}
}

// GetStatus returns an immutable snapshot of the task's current state. It
// only reads the store and never blocks on the background worker.
//
// Returns ErrTaskNotFound if the task is unknown or already purged, and
// ErrForbidden if the requester is not the task's owner.
func (o *Orchestrator) GetStatus(
	ctx context.Context,
	taskID uuid.UUID,
	requesterID uuid.UUID,
) (Snapshot, error) {
	snap, err := o.store.Get(ctx, taskID)
	if err != nil {
		return Snapshot{}, err
	}

	if snap.OwnerID != requesterID {
		return Snapshot{}, ErrForbidden
	}

	return snap, nil
}

// worker consumes jobs from the queue until the orchestrator stops.
func (o *Orchestrator) worker(id int) {
	defer o.wg.Done()

	o.logger.Debug("starting worker", "worker_id", id)

	for {
		select {
		case <-o.ctx.Done():
			o.logger.Debug("stopping worker", "worker_id", id)
			return

		case j := <-o.queue:
			o.run(j, id)
		}
	}
}

// run drives one task from pending to a terminal state. Every record
// mutation is funneled through the store's atomic Update; this worker is
// the sole writer of the task's lifecycle.
func (o *Orchestrator) run(j job, workerID int) {
	logger := o.logger.With(
		"task_id", j.taskID,
		"worker_id", workerID,
	)

	// 1. Pending -> Processing
	o.mutate(j.taskID, logger, func(r *Record) error {
		if err := r.MarkProcessing(); err != nil {
			return err
		}
		return r.SetProgress(20)
	})

	logger.Info("starting generation task")

	// 2. Create the remote provider job.
	jobID, err := o.provider.CreateJob(o.ctx, j.request)
	if err != nil {
		logger.Error("provider job creation failed", "error", err)
		o.fail(j.taskID, logger, redact.Error(err))
		return
	}

	// 3. Record the provider job ID.
	o.mutate(j.taskID, logger, func(r *Record) error {
		if err := r.SetProviderJobID(jobID); err != nil {
			return err
		}
		return r.SetProgress(30)
	})

	logger = logger.With("provider_job_id", jobID)

	// 4. Poll until the policy reaches a verdict.
	poll, ok := o.pollLoop(j.taskID, jobID, logger)
	if !ok {
		return
	}

	// 5. Download and persist the artifact. A failure here is terminal:
	// the provider's success is not retried.
	data, err := o.provider.Download(o.ctx, poll.ResultRef)
	if err != nil {
		logger.Error("artifact download failed", "error", err)
		o.fail(j.taskID, logger, ReasonPersistence)
		return
	}

	saved, err := o.artifacts.Save(o.ctx, data, j.ownerID)
	if err != nil {
		logger.Error("artifact save failed", "error", err)
		o.fail(j.taskID, logger, ReasonPersistence)
		return
	}

	// 6. Write the durable catalog entry, then finalize.
	image, err := domain.NewImage(saved.ID, j.ownerID, j.request, saved.ImageURL, saved.ThumbnailURL)
	if err == nil {
		err = o.catalog.Create(o.ctx, image)
	}
	if err != nil {
		logger.Error("catalog write failed", "error", err)
		o.fail(j.taskID, logger, ReasonPersistence)
		return
	}

	o.mutate(j.taskID, logger, func(r *Record) error {
		return r.SetProgress(90)
	})

	o.mutate(j.taskID, logger, func(r *Record) error {
		return r.MarkSucceeded(Result{
			ArtifactID:   saved.ID,
			ImageURL:     saved.ImageURL,
			ThumbnailURL: saved.ThumbnailURL,
		})
	})

	o.scheduleDelete(j.taskID, logger)

	logger.Info("generation task succeeded", "artifact_id", saved.ID)
}

// pollLoop sleeps and polls the provider until the policy yields a terminal
// verdict. It returns the successful poll result and true, or handles the
// failure itself and returns false.
func (o *Orchestrator) pollLoop(taskID uuid.UUID, jobID string, logger *slog.Logger) (PollResult, bool) {
	policy := o.config.Policy

	for attempt := 1; ; attempt++ {
		if err := o.sleep(policy.Interval); err != nil {
			logger.Warn("generation interrupted by shutdown", "attempt", attempt)
			o.fail(taskID, logger, ReasonCanceled)
			return PollResult{}, false
		}

		poll, err := o.provider.Poll(o.ctx, jobID)
		if err != nil {
			logger.Error("provider poll failed", "error", err, "attempt", attempt)
			o.fail(taskID, logger, redact.Error(err))
			return PollResult{}, false
		}

		decision := policy.Decide(poll.Status, poll.Message, attempt)
		switch decision.Action {
		case ActionSucceed:
			logger.Info("provider reported success", "attempt", attempt)
			return poll, true

		case ActionFailNow, ActionFailTimeout:
			logger.Warn("provider polling ended in failure",
				"attempt", attempt,
				"reason", decision.Reason)
			o.fail(taskID, logger, decision.Reason)
			return PollResult{}, false

		case ActionContinue:
			o.mutate(taskID, logger, func(r *Record) error {
				return r.SetProgress(decision.Progress)
			})
		}
	}
}

// sleep waits one polling interval or returns early when the orchestrator
// is stopping. This is the worker's only suspension point besides provider
// I/O itself.
func (o *Orchestrator) sleep(d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-o.ctx.Done():
		return o.ctx.Err()
	}
}

// mutate applies a record mutation, logging rather than propagating store
// errors: the worker has no caller to report to, and a failed bookkeeping
// write must not abort the generation itself.
func (o *Orchestrator) mutate(taskID uuid.UUID, logger *slog.Logger, fn func(*Record) error) {
	// Store writes use a background context so a shutdown mid-task cannot
	// strand the record in a non-terminal state.
	if err := o.store.Update(context.Background(), taskID, fn); err != nil {
		logger.Error("failed to update task record", "error", err)
	}
}

// fail marks the task failed with the given reason and schedules its purge.
func (o *Orchestrator) fail(taskID uuid.UUID, logger *slog.Logger, reason string) {
	o.mutate(taskID, logger, func(r *Record) error {
		return r.MarkFailed(reason)
	})
	o.scheduleDelete(taskID, logger)
}

// scheduleDelete arranges the terminal record's purge after the retention
// grace period.
func (o *Orchestrator) scheduleDelete(taskID uuid.UUID, logger *slog.Logger) {
	if err := o.store.ScheduleDelete(context.Background(), taskID, o.config.Retention); err != nil {
		logger.Error("failed to schedule task record purge", "error", err)
	}
}
