package daemon

import (
	"context"
	"testing"

	"clipforge/internal/logging"
	"clipforge/internal/notifications"
	"clipforge/internal/queue"
	"clipforge/internal/stage"
	"clipforge/internal/testsupport"
	"clipforge/internal/workflow"
)

type idleHandler struct{ name string }

func (h idleHandler) Prepare(context.Context, *queue.Job) error { return nil }
func (h idleHandler) Execute(context.Context, *queue.Job) error { return nil }
func (h idleHandler) HealthCheck(context.Context) stage.Health  { return stage.Healthy(h.name) }

func newTestDaemon(t *testing.T) *Daemon {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	wf := workflow.NewManagerWithNotifier(cfg, store, logging.NewNop(), notifications.Noop())
	wf.ConfigureStages(workflow.StageSet{Crawler: idleHandler{name: "crawl"}})

	d, err := New(cfg, store, logging.NewNop(), wf)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestDaemonStartStop(t *testing.T) {
	d := newTestDaemon(t)
	ctx := context.Background()

	if err := d.Start(ctx); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(d.Stop)

	if !d.Status(ctx).Running {
		t.Fatal("daemon should report running")
	}
	if d.APIAddress() == "" {
		t.Fatal("api server should be bound")
	}
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected error starting daemon twice")
	}

	d.Stop()
	if d.Status(ctx).Running {
		t.Fatal("daemon should report stopped")
	}
	// Stop again is a no-op.
	d.Stop()
}

func TestDaemonStartResetsStuckJobs(t *testing.T) {
	d := newTestDaemon(t)
	ctx := context.Background()

	job := testsupport.NewJob(t, d.store, "stuck-1", "Stuck Video")
	job.Status = queue.StatusTranscribing
	if err := d.store.Update(ctx, job); err != nil {
		t.Fatal(err)
	}

	if err := d.Start(ctx); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(d.Stop)

	got, err := d.store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != queue.StatusCrawled {
		t.Fatalf("status = %s, want rollback to %s", got.Status, queue.StatusCrawled)
	}
}

func TestDaemonQueueMaintenance(t *testing.T) {
	d := newTestDaemon(t)
	ctx := context.Background()

	failed := testsupport.NewJob(t, d.store, "maint-1", "Broken Video")
	failed.SetFailed("fetch blew up")
	if err := d.store.Update(ctx, failed); err != nil {
		t.Fatal(err)
	}
	testsupport.NewJob(t, d.store, "maint-2", "Waiting Video")

	retried, err := d.RetryFailed(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if retried != 1 {
		t.Fatalf("retried = %d, want 1", retried)
	}

	health, err := d.QueueHealth(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if health.Pending != 2 {
		t.Fatalf("pending = %d, want 2", health.Pending)
	}

	cleared, err := d.ClearQueue(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if cleared != 2 {
		t.Fatalf("cleared = %d, want 2", cleared)
	}
	jobs, err := d.ListQueue(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 0 {
		t.Fatalf("live jobs after clear = %d, want 0", len(jobs))
	}
}

func TestTestNotificationWithoutTopic(t *testing.T) {
	d := newTestDaemon(t)

	sent, detail, err := d.TestNotification(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sent {
		t.Fatal("notification should not send without a topic")
	}
	if detail == "" {
		t.Fatal("expected explanatory detail")
	}
}
