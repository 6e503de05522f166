package task

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prismworks/prism-api/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// scriptedProvider is a ProviderClient whose poll responses are scripted.
// The last scripted response repeats once the script is exhausted; with no
// script at all every poll reports running.
type scriptedProvider struct {
	mu        sync.Mutex
	createErr error
	jobID     string
	started   chan struct{} // signaled when CreateJob begins, if set
	release   chan struct{} // CreateJob blocks on this until closed, if set

	polls       []PollResult
	pollErr     error
	pollCalls   int
	data        []byte
	downloadErr error
}

func (p *scriptedProvider) CreateJob(ctx context.Context, req domain.GenerationRequest) (string, error) {
	if p.started != nil {
		p.started <- struct{}{}
	}
	if p.release != nil {
		select {
		case <-p.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if p.createErr != nil {
		return "", p.createErr
	}
	if p.jobID == "" {
		return "job-123", nil
	}
	return p.jobID, nil
}

func (p *scriptedProvider) Poll(ctx context.Context, jobID string) (PollResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pollErr != nil {
		return PollResult{}, p.pollErr
	}

	p.pollCalls++
	if len(p.polls) == 0 {
		return PollResult{Status: ProviderStatusRunning}, nil
	}

	idx := p.pollCalls - 1
	if idx >= len(p.polls) {
		idx = len(p.polls) - 1
	}
	return p.polls[idx], nil
}

func (p *scriptedProvider) Download(ctx context.Context, resultRef string) ([]byte, error) {
	if p.downloadErr != nil {
		return nil, p.downloadErr
	}
	if p.data == nil {
		return []byte("png-bytes"), nil
	}
	return p.data, nil
}

func (p *scriptedProvider) pollCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pollCalls
}

type fakeArtifacts struct {
	mu    sync.Mutex
	err   error
	saved [][]byte
}

func (f *fakeArtifacts) Save(ctx context.Context, data []byte, ownerID uuid.UUID) (SavedArtifact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return SavedArtifact{}, f.err
	}

	f.saved = append(f.saved, data)
	id := uuid.New()
	return SavedArtifact{
		ID:           id,
		ImageURL:     "/uploads/images/image_" + id.String() + ".png",
		ThumbnailURL: "/uploads/images/thumb_image_" + id.String() + ".png",
	}, nil
}

type fakeCatalog struct {
	mu     sync.Mutex
	err    error
	images []*domain.Image
}

func (f *fakeCatalog) Create(ctx context.Context, image *domain.Image) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}
	f.images = append(f.images, image)
	return nil
}

func (f *fakeCatalog) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.images)
}

// fastConfig keeps test polling latency in the microsecond range.
func fastConfig() OrchestratorConfig {
	return OrchestratorConfig{
		WorkerCount: 2,
		QueueSize:   8,
		Policy:      Policy{MaxAttempts: 5, Interval: time.Millisecond},
		Retention:   time.Hour,
	}
}

func newTestOrchestrator(
	t *testing.T,
	store Store,
	provider ProviderClient,
	artifacts ArtifactStore,
	catalog ImageCatalog,
	cfg OrchestratorConfig,
) *Orchestrator {
	t.Helper()

	o, err := NewOrchestrator(store, provider, artifacts, catalog, cfg, discardLogger())
	require.NoError(t, err)

	o.Start()
	t.Cleanup(o.Stop)

	return o
}

// waitForState blocks until the task reaches the wanted state.
func waitForState(t *testing.T, o *Orchestrator, taskID, ownerID uuid.UUID, want State) Snapshot {
	t.Helper()

	var snap Snapshot
	require.Eventually(t, func() bool {
		s, err := o.GetStatus(context.Background(), taskID, ownerID)
		if err != nil {
			return false
		}
		snap = s
		return s.State == want
	}, 2*time.Second, 2*time.Millisecond, "task never reached state %s", want)

	return snap
}

func TestNewOrchestratorValidatesDependencies(t *testing.T) {
	t.Parallel()

	store := newTestMemoryStore(t)
	provider := &scriptedProvider{}
	artifacts := &fakeArtifacts{}
	catalog := &fakeCatalog{}
	logger := discardLogger()

	_, err := NewOrchestrator(nil, provider, artifacts, catalog, fastConfig(), logger)
	assert.ErrorIs(t, err, ErrNilStore)

	_, err = NewOrchestrator(store, nil, artifacts, catalog, fastConfig(), logger)
	assert.ErrorIs(t, err, ErrNilProvider)

	_, err = NewOrchestrator(store, provider, nil, catalog, fastConfig(), logger)
	assert.ErrorIs(t, err, ErrNilArtifacts)

	_, err = NewOrchestrator(store, provider, artifacts, nil, fastConfig(), logger)
	assert.ErrorIs(t, err, ErrNilCatalog)

	_, err = NewOrchestrator(store, provider, artifacts, catalog, fastConfig(), nil)
	assert.ErrorIs(t, err, ErrNilLogger)
}

func TestSubmitReturnsBeforeGenerationCompletes(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	o := newTestOrchestrator(t, newTestMemoryStore(t), provider, &fakeArtifacts{}, &fakeCatalog{}, fastConfig())

	ownerID := uuid.New()
	taskID, err := o.Submit(context.Background(), ownerID, domain.GenerationRequest{Prompt: "a red fox in snow"})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, taskID)

	// The provider is still blocked, yet the submitter already holds a
	// readable task handle.
	snap, err := o.GetStatus(context.Background(), taskID, ownerID)
	require.NoError(t, err)
	assert.Contains(t, []State{StatePending, StateProcessing}, snap.State)

	close(provider.release)
}

func TestSuccessfulGeneration(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{
		polls: []PollResult{
			{Status: ProviderStatusRunning},
			{Status: ProviderStatusRunning},
			{Status: ProviderStatusSucceeded, ResultRef: "https://provider.example/results/42.png"},
		},
		data: []byte("generated-png"),
	}
	artifacts := &fakeArtifacts{}
	catalog := &fakeCatalog{}
	o := newTestOrchestrator(t, newTestMemoryStore(t), provider, artifacts, catalog, fastConfig())

	ownerID := uuid.New()
	taskID, err := o.Submit(context.Background(), ownerID, domain.GenerationRequest{
		Prompt: "a red fox in snow",
		Width:  512,
		Height: 512,
	})
	require.NoError(t, err)

	snap := waitForState(t, o, taskID, ownerID, StateSucceeded)

	assert.Equal(t, 100, snap.Progress)
	assert.Equal(t, "job-123", snap.ProviderJobID)
	assert.Empty(t, snap.Error)
	require.NotNil(t, snap.Result)
	assert.NotEqual(t, uuid.Nil, snap.Result.ArtifactID)
	assert.NotEmpty(t, snap.Result.ImageURL)
	assert.NotEmpty(t, snap.Result.ThumbnailURL)
	assert.False(t, snap.TerminalAt.IsZero())

	assert.Equal(t, 3, provider.pollCount())

	// The downloaded bytes reached the artifact store untouched
	require.Len(t, artifacts.saved, 1)
	assert.Equal(t, []byte("generated-png"), artifacts.saved[0])

	// Exactly one catalog entry was written for the owner
	require.Equal(t, 1, catalog.count())
	image := catalog.images[0]
	assert.Equal(t, ownerID, image.UserID)
	assert.Equal(t, "a red fox in snow", image.Prompt)
	assert.Equal(t, snap.Result.ArtifactID, image.ID)
}

func TestSubmitRejectsEmptyPrompt(t *testing.T) {
	t.Parallel()

	o := newTestOrchestrator(t, newTestMemoryStore(t), &scriptedProvider{}, &fakeArtifacts{}, &fakeCatalog{}, fastConfig())

	taskID, err := o.Submit(context.Background(), uuid.New(), domain.GenerationRequest{Prompt: ""})
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Equal(t, uuid.Nil, taskID)

	// No task was created: any fabricated ID reads as not found
	_, err = o.GetStatus(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestCreateJobFailureFailsWithoutPolling(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{createErr: errors.New("dial tcp: connection refused")}
	o := newTestOrchestrator(t, newTestMemoryStore(t), provider, &fakeArtifacts{}, &fakeCatalog{}, fastConfig())

	ownerID := uuid.New()
	taskID, err := o.Submit(context.Background(), ownerID, domain.GenerationRequest{Prompt: "a red fox in snow"})
	require.NoError(t, err)

	snap := waitForState(t, o, taskID, ownerID, StateFailed)

	assert.NotEmpty(t, snap.Error)
	assert.Nil(t, snap.Result)
	assert.Equal(t, 0, provider.pollCount(), "a failed job creation must never enter the polling loop")
}

func TestPollingTimesOutAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{} // every poll reports running
	o := newTestOrchestrator(t, newTestMemoryStore(t), provider, &fakeArtifacts{}, &fakeCatalog{}, fastConfig())

	ownerID := uuid.New()
	taskID, err := o.Submit(context.Background(), ownerID, domain.GenerationRequest{Prompt: "a red fox in snow"})
	require.NoError(t, err)

	snap := waitForState(t, o, taskID, ownerID, StateFailed)

	assert.Equal(t, ReasonTimeout, snap.Error)
	assert.LessOrEqual(t, snap.Progress, 80, "progress must never exceed 80 while polling")
	assert.Equal(t, fastConfig().Policy.MaxAttempts, provider.pollCount())
}

func TestProviderReportedFailure(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{
		polls: []PollResult{
			{Status: ProviderStatusRunning},
			{Status: ProviderStatusFailed, Message: "content rejected by moderation"},
		},
	}
	o := newTestOrchestrator(t, newTestMemoryStore(t), provider, &fakeArtifacts{}, &fakeCatalog{}, fastConfig())

	ownerID := uuid.New()
	taskID, err := o.Submit(context.Background(), ownerID, domain.GenerationRequest{Prompt: "a red fox in snow"})
	require.NoError(t, err)

	snap := waitForState(t, o, taskID, ownerID, StateFailed)
	assert.Equal(t, "content rejected by moderation", snap.Error)
}

func TestPersistenceFailuresAreTerminal(t *testing.T) {
	t.Parallel()

	successPolls := []PollResult{
		{Status: ProviderStatusSucceeded, ResultRef: "https://provider.example/results/42.png"},
	}

	tests := []struct {
		name      string
		provider  *scriptedProvider
		artifacts *fakeArtifacts
		catalog   *fakeCatalog
	}{
		{
			name:      "download_fails",
			provider:  &scriptedProvider{polls: successPolls, downloadErr: errors.New("EOF")},
			artifacts: &fakeArtifacts{},
			catalog:   &fakeCatalog{},
		},
		{
			name:      "save_fails",
			provider:  &scriptedProvider{polls: successPolls},
			artifacts: &fakeArtifacts{err: errors.New("disk full")},
			catalog:   &fakeCatalog{},
		},
		{
			name:      "catalog_write_fails",
			provider:  &scriptedProvider{polls: successPolls},
			artifacts: &fakeArtifacts{},
			catalog:   &fakeCatalog{err: errors.New("connection reset")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			o := newTestOrchestrator(t, newTestMemoryStore(t), tt.provider, tt.artifacts, tt.catalog, fastConfig())

			ownerID := uuid.New()
			taskID, err := o.Submit(context.Background(), ownerID, domain.GenerationRequest{Prompt: "a red fox in snow"})
			require.NoError(t, err)

			snap := waitForState(t, o, taskID, ownerID, StateFailed)
			assert.Equal(t, ReasonPersistence, snap.Error)
			assert.Nil(t, snap.Result)
		})
	}
}

func TestGetStatusEnforcesOwnership(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{release: make(chan struct{})}
	defer close(provider.release)

	o := newTestOrchestrator(t, newTestMemoryStore(t), provider, &fakeArtifacts{}, &fakeCatalog{}, fastConfig())

	ownerID := uuid.New()
	taskID, err := o.Submit(context.Background(), ownerID, domain.GenerationRequest{Prompt: "a red fox in snow"})
	require.NoError(t, err)

	_, err = o.GetStatus(context.Background(), taskID, uuid.New())
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = o.GetStatus(context.Background(), taskID, ownerID)
	assert.NoError(t, err)
}

func TestSubmitRejectsWhenQueueSaturated(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{
		started: make(chan struct{}, 4),
		release: make(chan struct{}),
	}
	defer close(provider.release)

	cfg := fastConfig()
	cfg.WorkerCount = 1
	cfg.QueueSize = 1

	o := newTestOrchestrator(t, newTestMemoryStore(t), provider, &fakeArtifacts{}, &fakeCatalog{}, cfg)

	ownerID := uuid.New()
	req := domain.GenerationRequest{Prompt: "a red fox in snow"}

	// First submission is picked up by the lone worker, which then blocks
	// inside the provider call.
	_, err := o.Submit(context.Background(), ownerID, req)
	require.NoError(t, err)
	<-provider.started

	// Second submission parks in the queue buffer.
	_, err = o.Submit(context.Background(), ownerID, req)
	require.NoError(t, err)

	// Third submission finds the buffer full and is rejected.
	taskID, err := o.Submit(context.Background(), ownerID, req)
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, uuid.Nil, taskID)
}

// observingStore records a snapshot after every committed mutation so the
// full transition history of a task can be asserted.
type observingStore struct {
	Store
	mu   sync.Mutex
	seen []Snapshot
}

func (o *observingStore) Update(ctx context.Context, id uuid.UUID, fn func(*Record) error) error {
	return o.Store.Update(ctx, id, func(r *Record) error {
		if err := fn(r); err != nil {
			return err
		}
		o.mu.Lock()
		o.seen = append(o.seen, r.Snapshot())
		o.mu.Unlock()
		return nil
	})
}

func TestTaskLifecycleIsMonotonic(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{
		polls: []PollResult{
			{Status: ProviderStatusRunning},
			{Status: ProviderStatusRunning},
			{Status: ProviderStatusSucceeded, ResultRef: "https://provider.example/results/42.png"},
		},
	}
	store := &observingStore{Store: newTestMemoryStore(t)}
	o := newTestOrchestrator(t, store, provider, &fakeArtifacts{}, &fakeCatalog{}, fastConfig())

	ownerID := uuid.New()
	taskID, err := o.Submit(context.Background(), ownerID, domain.GenerationRequest{Prompt: "a red fox in snow"})
	require.NoError(t, err)

	waitForState(t, o, taskID, ownerID, StateSucceeded)

	rank := map[State]int{
		StatePending:    0,
		StateProcessing: 1,
		StateSucceeded:  2,
		StateFailed:     2,
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	require.NotEmpty(t, store.seen)

	lastRank := rank[StatePending]
	lastProgress := 0
	for i, snap := range store.seen {
		assert.GreaterOrEqual(t, rank[snap.State], lastRank,
			"state went backwards at mutation %d", i)
		assert.GreaterOrEqual(t, snap.Progress, lastProgress,
			"progress decreased at mutation %d", i)
		lastRank = rank[snap.State]
		lastProgress = snap.Progress
	}

	final := store.seen[len(store.seen)-1]
	assert.Equal(t, StateSucceeded, final.State)
	assert.Equal(t, 100, final.Progress)
}
