package workflow

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"clipforge/internal/config"
	"clipforge/internal/logging"
	"clipforge/internal/notifications"
	"clipforge/internal/queue"
	"clipforge/internal/services"
	"clipforge/internal/stage"
)

type fakeHandler struct {
	name    string
	prepare func(*queue.Job) error
	execute func(context.Context, *queue.Job) error
}

func (h *fakeHandler) Prepare(_ context.Context, job *queue.Job) error {
	if h.prepare != nil {
		return h.prepare(job)
	}
	return nil
}

func (h *fakeHandler) Execute(ctx context.Context, job *queue.Job) error {
	if h.execute != nil {
		return h.execute(ctx, job)
	}
	return nil
}

func (h *fakeHandler) HealthCheck(context.Context) stage.Health {
	return stage.Healthy(h.name)
}

type recordingNotifier struct {
	mu        sync.Mutex
	reviews   []string
	publishes []string
	stageErrs []string
}

func (n *recordingNotifier) NotifyReviewNeeded(_ context.Context, title string, _, _ int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reviews = append(n.reviews, title)
	return nil
}

func (n *recordingNotifier) NotifyPublished(_ context.Context, title, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.publishes = append(n.publishes, title)
	return nil
}

func (n *recordingNotifier) NotifyStageError(_ context.Context, stageName, _ string, _ error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stageErrs = append(n.stageErrs, stageName)
	return nil
}

func (n *recordingNotifier) TestNotification(context.Context) error { return nil }

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Workflow.QueuePollInterval = 1
	cfg.Workflow.HeartbeatInterval = 1
	cfg.Workflow.HeartbeatTimeout = 0
	cfg.Workflow.DiscoveryInterval = 0
	cfg.Pipeline.RetryLimit = 2
	cfg.Pipeline.RetryBaseSeconds = 1
	return &cfg
}

func newTestManager(t *testing.T, notifier notifications.Service) *Manager {
	t.Helper()
	store, err := queue.OpenPath(filepath.Join(t.TempDir(), "queue.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	if notifier == nil {
		notifier = notifications.Noop()
	}
	return NewManagerWithNotifier(testConfig(), store, logging.NewNop(), notifier)
}

func newJob(t *testing.T, store *queue.Store, sourceID string) *queue.Job {
	t.Helper()
	job, err := store.NewJob(context.Background(), "https://example.org/v/"+sourceID, sourceID, "Video "+sourceID, "en")
	if err != nil {
		t.Fatal(err)
	}
	return job
}

// drainLane processes chunks until the lane has no runnable jobs left.
func drainLane(t *testing.T, m *Manager, kind laneKind) {
	t.Helper()
	ctx := context.Background()
	lane := m.lanes[kind]
	if lane == nil {
		t.Fatalf("lane %s not configured", kind)
	}
	logger := logging.NewNop()
	for i := 0; i < 25; i++ {
		jobs, err := m.store.ChunkForStatuses(ctx, m.chunkSize(), lane.statusOrder...)
		if err != nil {
			t.Fatal(err)
		}
		if len(jobs) == 0 {
			return
		}
		m.processChunk(ctx, lane, logger, jobs)
	}
	t.Fatal("lane did not drain")
}

func TestPipelineRunsJobThroughAllStages(t *testing.T) {
	notifier := &recordingNotifier{}
	m := newTestManager(t, notifier)
	ctx := context.Background()

	passthrough := func(name string) *fakeHandler { return &fakeHandler{name: name} }
	m.ConfigureStages(StageSet{
		Crawler: &fakeHandler{name: "crawl", execute: func(_ context.Context, job *queue.Job) error {
			job.VideoPath = "/tmp/source.mp4"
			return nil
		}},
		Transcriber: passthrough("transcribe"),
		Analyzer:    passthrough("analyze"),
		Editor:      passthrough("edit"),
		Scorer: &fakeHandler{name: "score", execute: func(_ context.Context, job *queue.Job) error {
			job.QualityScore = 82
			return nil
		}},
		Publisher: &fakeHandler{name: "publish", execute: func(_ context.Context, job *queue.Job) error {
			job.ContentID = "content-1"
			return nil
		}},
	})

	job := newJob(t, m.store, "chain-1")
	drainLane(t, m, lanePipeline)

	got, err := m.store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != queue.StatusPendingApproval {
		t.Fatalf("status after pipeline lane = %s, want %s", got.Status, queue.StatusPendingApproval)
	}
	if got.VideoPath != "/tmp/source.mp4" || got.QualityScore != 82 {
		t.Fatalf("stage output not persisted: %+v", got)
	}
	if len(notifier.reviews) != 1 {
		t.Fatalf("review notifications = %d, want 1", len(notifier.reviews))
	}

	// Reviewer approves; the publish lane takes over from there.
	if err := got.TransitionTo(queue.StatusApproved); err != nil {
		t.Fatal(err)
	}
	if err := m.store.Update(ctx, got); err != nil {
		t.Fatal(err)
	}
	drainLane(t, m, lanePublish)

	got, err = m.store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != queue.StatusPublished {
		t.Fatalf("status after publish lane = %s, want %s", got.Status, queue.StatusPublished)
	}
	if got.ContentID != "content-1" {
		t.Fatalf("content id = %q, want content-1", got.ContentID)
	}
	if len(notifier.publishes) != 1 {
		t.Fatalf("publish notifications = %d, want 1", len(notifier.publishes))
	}
}

func TestScorerChoosesItsOwnDoneStatus(t *testing.T) {
	m := newTestManager(t, nil)
	ctx := context.Background()

	m.ConfigureStages(StageSet{
		Scorer: &fakeHandler{name: "score", execute: func(_ context.Context, job *queue.Job) error {
			job.QualityScore = 12
			return job.TransitionTo(queue.StatusRejected)
		}},
	})

	job := newJob(t, m.store, "reject-1")
	job.Status = queue.StatusEdited
	if err := m.store.Update(ctx, job); err != nil {
		t.Fatal(err)
	}
	drainLane(t, m, lanePipeline)

	got, err := m.store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != queue.StatusRejected {
		t.Fatalf("status = %s, want %s", got.Status, queue.StatusRejected)
	}
}

func TestTransientErrorRetriesThenSucceeds(t *testing.T) {
	m := newTestManager(t, nil)
	ctx := context.Background()

	var attempts int
	m.ConfigureStages(StageSet{
		Crawler: &fakeHandler{name: "crawl", execute: func(context.Context, *queue.Job) error {
			attempts++
			if attempts == 1 {
				return services.Wrap(services.ErrTransient, "crawl", "fetch", "network hiccup", nil)
			}
			return nil
		}},
	})

	job := newJob(t, m.store, "retry-1")
	drainLane(t, m, lanePipeline)

	got, err := m.store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != queue.StatusCrawled {
		t.Fatalf("status = %s, want %s", got.Status, queue.StatusCrawled)
	}
	if attempts != 2 {
		t.Fatalf("attempts = %d, want 2", attempts)
	}
	if got.RetryCount != 1 {
		t.Fatalf("retry count = %d, want 1", got.RetryCount)
	}
}

func TestValidationErrorFailsJob(t *testing.T) {
	notifier := &recordingNotifier{}
	m := newTestManager(t, notifier)
	ctx := context.Background()

	var attempts int
	m.ConfigureStages(StageSet{
		Crawler: &fakeHandler{name: "crawl", execute: func(context.Context, *queue.Job) error {
			attempts++
			return services.Wrap(services.ErrValidation, "crawl", "fetch", "source url missing", nil)
		}},
	})

	job := newJob(t, m.store, "fail-1")
	drainLane(t, m, lanePipeline)

	got, err := m.store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != queue.StatusFailed {
		t.Fatalf("status = %s, want %s", got.Status, queue.StatusFailed)
	}
	if !strings.Contains(got.ErrorMessage, "source url missing") {
		t.Fatalf("error message = %q", got.ErrorMessage)
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1 (validation errors must not retry)", attempts)
	}
	if len(notifier.stageErrs) != 1 || notifier.stageErrs[0] != "crawl" {
		t.Fatalf("stage error notifications = %v", notifier.stageErrs)
	}
}

func TestEditorPicksUpJobsSentBackByReviewer(t *testing.T) {
	m := newTestManager(t, nil)
	ctx := context.Background()

	var edited int
	m.ConfigureStages(StageSet{
		Editor: &fakeHandler{name: "edit", execute: func(context.Context, *queue.Job) error {
			edited++
			return nil
		}},
	})

	job := newJob(t, m.store, "redo-1")
	job.Status = queue.StatusNeedsEdit
	if err := m.store.Update(ctx, job); err != nil {
		t.Fatal(err)
	}
	drainLane(t, m, lanePipeline)

	got, err := m.store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != queue.StatusEdited {
		t.Fatalf("status = %s, want %s", got.Status, queue.StatusEdited)
	}
	if edited != 1 {
		t.Fatalf("editor executions = %d, want 1", edited)
	}
}

func TestStartRequiresConfiguredStages(t *testing.T) {
	m := newTestManager(t, nil)
	if err := m.Start(context.Background()); err == nil {
		t.Fatal("expected error starting manager without stages")
	}
}

func TestStartProcessesJobsInBackground(t *testing.T) {
	m := newTestManager(t, nil)
	ctx := context.Background()

	m.ConfigureStages(StageSet{
		Crawler: &fakeHandler{name: "crawl"},
	})
	job := newJob(t, m.store, "bg-1")

	if err := m.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer m.Stop()
	if !m.Running() {
		t.Fatal("manager should report running")
	}
	if err := m.Start(ctx); err == nil {
		t.Fatal("expected error starting manager twice")
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		got, err := m.store.GetByID(ctx, job.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.Status == queue.StatusCrawled {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job stuck in %s", got.Status)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func TestDiscoverySweepRunsOnInterval(t *testing.T) {
	m := newTestManager(t, nil)
	m.cfg.Workflow.DiscoveryInterval = 1

	var mu sync.Mutex
	sweeps := 0
	m.SetDiscovery(discovererFunc(func(context.Context) (int, error) {
		mu.Lock()
		defer mu.Unlock()
		sweeps++
		return 0, nil
	}))
	m.ConfigureStages(StageSet{Crawler: &fakeHandler{name: "crawl"}})

	if err := m.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	time.Sleep(1500 * time.Millisecond)
	m.Stop()

	mu.Lock()
	defer mu.Unlock()
	if sweeps < 2 {
		t.Fatalf("discovery sweeps = %d, want at least 2", sweeps)
	}
}

type discovererFunc func(context.Context) (int, error)

func (f discovererFunc) Run(ctx context.Context) (int, error) { return f(ctx) }

func TestProcessChunkAbortsAfterMaxSkips(t *testing.T) {
	m := newTestManager(t, nil)
	m.cfg.Pipeline.MaxSkips = 2
	m.cfg.Pipeline.ItemParallelism = 1
	ctx := context.Background()

	var attempts int
	m.ConfigureStages(StageSet{
		Crawler: &fakeHandler{name: "crawl", execute: func(context.Context, *queue.Job) error {
			attempts++
			return services.Wrap(services.ErrValidation, "crawl", "fetch", "bad source", nil)
		}},
	})

	for i := 0; i < 5; i++ {
		newJob(t, m.store, "skip-"+string(rune('a'+i)))
	}
	lane := m.lanes[lanePipeline]
	jobs, err := m.store.ChunkForStatuses(ctx, m.chunkSize(), lane.statusOrder...)
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 5 {
		t.Fatalf("chunk size = %d, want 5", len(jobs))
	}

	if aborted := m.processChunk(ctx, lane, logging.NewNop(), jobs); !aborted {
		t.Fatal("chunk should abort once failures reach max_skips")
	}
	if attempts > 3 {
		t.Fatalf("attempts = %d, want at most 3 after abort", attempts)
	}
}

func TestUnknownStatusIsSkipped(t *testing.T) {
	m := newTestManager(t, nil)
	m.ConfigureStages(StageSet{Crawler: &fakeHandler{name: "crawl"}})
	lane := m.lanes[lanePipeline]

	job := newJob(t, m.store, "odd-1")
	job.Status = queue.StatusTranscribed
	if err := m.store.Update(context.Background(), job); err != nil {
		t.Fatal(err)
	}

	if err := m.processJob(context.Background(), lane, logging.NewNop(), job); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.Status != queue.StatusTranscribed {
		t.Fatalf("status = %s, want unchanged", job.Status)
	}
}

func TestRetryDelayBacksOffAndCaps(t *testing.T) {
	m := newTestManager(t, nil)
	m.cfg.Pipeline.RetryBaseSeconds = 2

	if got := m.retryDelay(0); got != 2*time.Second {
		t.Fatalf("delay(0) = %s, want 2s", got)
	}
	if got := m.retryDelay(2); got != 8*time.Second {
		t.Fatalf("delay(2) = %s, want 8s", got)
	}
	if got := m.retryDelay(10); got != time.Minute {
		t.Fatalf("delay(10) = %s, want cap at 1m", got)
	}
}

func TestLastErrorRecordsStageFailures(t *testing.T) {
	m := newTestManager(t, nil)
	m.ConfigureStages(StageSet{
		Crawler: &fakeHandler{name: "crawl", execute: func(context.Context, *queue.Job) error {
			return services.Wrap(services.ErrValidation, "crawl", "fetch", "broken", nil)
		}},
	})
	newJob(t, m.store, "err-1")
	drainLane(t, m, lanePipeline)

	if m.LastError() == nil {
		t.Fatal("expected last error after stage failure")
	}
	if !errors.Is(m.LastError(), services.ErrValidation) {
		t.Fatalf("last error = %v", m.LastError())
	}
}
