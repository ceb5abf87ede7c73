package scheduler_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stayscore/stayscore/internal/jobs"
	"github.com/stayscore/stayscore/internal/model"
	"github.com/stayscore/stayscore/internal/scheduler"
	"github.com/stayscore/stayscore/internal/store"
	"github.com/stayscore/stayscore/internal/testutil"

	_ "modernc.org/sqlite"
)

// ─── Fixtures ───

type fixture struct {
	sched   *scheduler.Scheduler
	store   *store.Store
	tracker *jobs.Tracker
	runner  *testutil.StubRunner
}

func newFixture(t *testing.T, cfg scheduler.Config, stub *testutil.StubRunner) *fixture {
	t.Helper()

	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	st, err := store.New(db, &testutil.DummyLogger{})
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	if stub == nil {
		stub = &testutil.StubRunner{}
	}
	tracker := jobs.NewTracker()
	return &fixture{
		sched:   scheduler.New(cfg, st, tracker, stub, &testutil.DummyLogger{}),
		store:   st,
		tracker: tracker,
		runner:  stub,
	}
}

func (f *fixture) newBatch(t *testing.T, domains []string) *model.Batch {
	t.Helper()
	b, err := f.store.CreateBatch(context.Background(), "test", model.SourceAPI, len(domains))
	if err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}
	return b
}

func (f *fixture) runBatch(t *testing.T, domains []string) *model.Batch {
	t.Helper()
	b := f.newBatch(t, domains)
	if err := f.sched.Start(context.Background(), b.ID, domains); err != nil {
		t.Fatalf("Start: %v", err)
	}
	f.sched.Wait(b.ID)
	return b
}

func domainList(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("hotel-%d.example.com", i)
	}
	return out
}

// ─── Happy path ───

func TestScheduler_ProcessesAllDomains(t *testing.T) {
	t.Parallel()

	f := newFixture(t, scheduler.Config{Concurrency: 3, RunTimeout: time.Second}, nil)
	domains := domainList(5)
	b := f.runBatch(t, domains)

	got, err := f.store.GetBatch(context.Background(), b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != model.BatchCompleted {
		t.Errorf("status = %s, want completed", got.Status)
	}
	if got.CompletedCount != 5 || got.FailedCount != 0 {
		t.Errorf("counts = %d/%d, want 5/0", got.CompletedCount, got.FailedCount)
	}

	audits, err := f.store.ListBatchAudits(context.Background(), b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(audits) != 5 {
		t.Fatalf("got %d audits, want 5", len(audits))
	}
	for i, a := range audits {
		if a.Domain != domains[i] {
			t.Errorf("audits[%d] = %s, want %s", i, a.Domain, domains[i])
		}
		if a.Status != model.AuditCompleted {
			t.Errorf("audits[%d] status = %s", i, a.Status)
		}
		if a.Score == nil {
			t.Errorf("audits[%d] has no score", i)
		}
		if a.BatchPosition == nil || *a.BatchPosition != i {
			t.Errorf("audits[%d] position = %v", i, a.BatchPosition)
		}
	}
}

func TestScheduler_JobsSettled(t *testing.T) {
	t.Parallel()

	stub := &testutil.StubRunner{Progress: []int{25, 75}}
	f := newFixture(t, scheduler.Config{Concurrency: 2, RunTimeout: time.Second}, stub)
	f.runBatch(t, domainList(4))

	list := f.tracker.List()
	if len(list) != 4 {
		t.Fatalf("got %d jobs, want 4", len(list))
	}
	for _, job := range list {
		if job.Status != model.JobCompleted {
			t.Errorf("job %s status = %s, want completed", job.Domain, job.Status)
		}
		if job.Progress != 100 {
			t.Errorf("job %s progress = %d, want 100", job.Domain, job.Progress)
		}
	}
}

// ─── Concurrency bound ───

func TestScheduler_ConcurrencyBound(t *testing.T) {
	t.Parallel()

	stub := &testutil.StubRunner{Delay: 50 * time.Millisecond}
	f := newFixture(t, scheduler.Config{Concurrency: 3, RunTimeout: time.Second}, stub)
	f.runBatch(t, domainList(10))

	if peak := stub.Peak(); peak > 3 {
		t.Fatalf("peak in-flight = %d, bound is 3", peak)
	} else if peak < 3 {
		t.Errorf("peak in-flight = %d, expected the pool to saturate", peak)
	}
}

// ─── Failure isolation ───

func TestScheduler_FailureIsolation(t *testing.T) {
	t.Parallel()

	domains := domainList(3)
	stub := &testutil.StubRunner{
		Errs: map[string]error{domains[1]: errors.New("connection refused")},
	}
	f := newFixture(t, scheduler.Config{Concurrency: 3, RunTimeout: time.Second}, stub)
	b := f.runBatch(t, domains)

	got, err := f.store.GetBatch(context.Background(), b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != model.BatchCompleted {
		t.Errorf("status = %s, one failed domain must not block completion", got.Status)
	}
	if got.CompletedCount != 2 || got.FailedCount != 1 {
		t.Errorf("counts = %d/%d, want 2/1", got.CompletedCount, got.FailedCount)
	}

	audits, err := f.store.ListBatchAudits(context.Background(), b.ID)
	if err != nil {
		t.Fatal(err)
	}
	failed := audits[1]
	if failed.Status != model.AuditFailed {
		t.Fatalf("audits[1] status = %s, want failed", failed.Status)
	}
	if failed.Score != nil {
		t.Error("failed audit carries a score")
	}
	if failed.Result == nil || failed.Result.Error != "connection refused" {
		t.Errorf("failed audit result = %+v", failed.Result)
	}
}

func TestScheduler_PanicRecovery(t *testing.T) {
	t.Parallel()

	domains := domainList(3)
	stub := &testutil.StubRunner{
		PanicOn: map[string]bool{domains[0]: true},
	}
	f := newFixture(t, scheduler.Config{Concurrency: 2, RunTimeout: time.Second}, stub)
	b := f.runBatch(t, domains)

	got, err := f.store.GetBatch(context.Background(), b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != model.BatchCompleted {
		t.Errorf("status = %s, a panicking domain must not wedge the batch", got.Status)
	}
	if got.CompletedCount != 2 || got.FailedCount != 1 {
		t.Errorf("counts = %d/%d, want 2/1", got.CompletedCount, got.FailedCount)
	}
}

// ─── Cancellation ───

func TestScheduler_CancellationStopsAdmissions(t *testing.T) {
	t.Parallel()

	stub := &testutil.StubRunner{Delay: 30 * time.Millisecond}
	f := newFixture(t, scheduler.Config{Concurrency: 1, RunTimeout: time.Second}, stub)
	ctx := context.Background()

	domains := domainList(6)
	b := f.newBatch(t, domains)
	if err := f.sched.Start(ctx, b.ID, domains); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := f.store.CancelBatch(ctx, b.ID); err != nil {
		t.Fatalf("CancelBatch: %v", err)
	}
	f.sched.Wait(b.ID)

	got, err := f.store.GetBatch(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != model.BatchCancelled {
		t.Errorf("status = %s, want cancelled", got.Status)
	}

	audits, err := f.store.ListBatchAudits(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(audits) == len(domains) {
		t.Error("every domain ran despite cancellation")
	}
	if got.CompletedCount+got.FailedCount != len(audits) {
		t.Errorf("counters %d/%d disagree with %d persisted audits",
			got.CompletedCount, got.FailedCount, len(audits))
	}
	if f.sched.Active(b.ID) {
		t.Error("coordinator still registered after drain")
	}
}

// ─── Guards ───

func TestScheduler_DuplicateStartRejected(t *testing.T) {
	t.Parallel()

	stub := &testutil.StubRunner{Delay: 50 * time.Millisecond}
	f := newFixture(t, scheduler.Config{Concurrency: 1, RunTimeout: time.Second}, stub)
	ctx := context.Background()

	domains := domainList(3)
	b := f.newBatch(t, domains)
	if err := f.sched.Start(ctx, b.ID, domains); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !f.sched.Active(b.ID) {
		t.Fatal("batch not registered as active")
	}

	if err := f.sched.Start(ctx, b.ID, domains); !errors.Is(err, scheduler.ErrBatchActive) {
		t.Fatalf("second Start err = %v, want ErrBatchActive", err)
	}

	f.sched.Wait(b.ID)

	// Restarting a finished batch fails on the status transition instead.
	if err := f.sched.Start(ctx, b.ID, domains); !errors.Is(err, store.ErrInvalidTransition) {
		t.Fatalf("restart err = %v, want ErrInvalidTransition", err)
	}
	if f.sched.Active(b.ID) {
		t.Error("failed restart left the batch guarded")
	}
}

func TestScheduler_StartValidation(t *testing.T) {
	t.Parallel()

	f := newFixture(t, scheduler.DefaultConfig(), nil)
	ctx := context.Background()

	if err := f.sched.Start(ctx, "some-batch", nil); err == nil {
		t.Error("expected error for empty domain list")
	}
	if err := f.sched.Start(ctx, "missing", domainList(1)); !errors.Is(err, store.ErrBatchNotFound) {
		t.Errorf("err = %v, want ErrBatchNotFound", err)
	}
	if f.sched.Active("missing") {
		t.Error("failed start left the batch guarded")
	}
}
