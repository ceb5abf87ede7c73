package store_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stayscore/stayscore/internal/model"
	"github.com/stayscore/stayscore/internal/store"
	"github.com/stayscore/stayscore/internal/testutil"

	_ "modernc.org/sqlite"
)

// ─── Fixtures ───

func openTestStore(t *testing.T) *store.Store {
	t.Helper()

	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	s, err := store.New(db, &testutil.DummyLogger{})
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	return s
}

func createBatch(t *testing.T, s *store.Store, total int) *model.Batch {
	t.Helper()
	b, err := s.CreateBatch(context.Background(), "test batch", model.SourcePaste, total)
	if err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}
	return b
}

// ─── Batches ───

func TestCreateAndGetBatch(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	b := createBatch(t, s, 3)
	if b.Status != model.BatchPending {
		t.Errorf("status = %s, want pending", b.Status)
	}

	got, err := s.GetBatch(ctx, b.ID)
	if err != nil {
		t.Fatalf("GetBatch: %v", err)
	}
	if got.Name != "test batch" || got.TotalDomains != 3 || got.Source != model.SourcePaste {
		t.Errorf("round-tripped batch = %+v", got)
	}
}

func TestCreateBatch_Defaults(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	b, err := s.CreateBatch(context.Background(), "", "", 1)
	if err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}
	if b.Name == "" {
		t.Error("expected a generated default name")
	}
	if b.Source != model.SourceAPI {
		t.Errorf("source = %s, want api", b.Source)
	}
}

func TestCreateBatch_Rejects(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	if _, err := s.CreateBatch(context.Background(), "x", model.SourcePaste, 0); err == nil {
		t.Error("expected error for zero domains")
	}
	if _, err := s.CreateBatch(context.Background(), "x", "carrier-pigeon", 1); err == nil {
		t.Error("expected error for unknown source")
	}
}

func TestGetBatch_NotFound(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	_, err := s.GetBatch(context.Background(), "nope")
	if !errors.Is(err, store.ErrBatchNotFound) {
		t.Fatalf("err = %v, want ErrBatchNotFound", err)
	}
}

func TestListBatches_Pagination(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		createBatch(t, s, 1)
	}

	page, total, err := s.ListBatches(ctx, 2, 0)
	if err != nil {
		t.Fatalf("ListBatches: %v", err)
	}
	if total != 5 {
		t.Errorf("total = %d, want 5", total)
	}
	if len(page) != 2 {
		t.Errorf("page size = %d, want 2", len(page))
	}

	rest, _, err := s.ListBatches(ctx, 10, 4)
	if err != nil {
		t.Fatalf("ListBatches offset: %v", err)
	}
	if len(rest) != 1 {
		t.Errorf("offset page size = %d, want 1", len(rest))
	}
}

func TestRenameBatch(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	b := createBatch(t, s, 1)
	if err := s.RenameBatch(ctx, b.ID, "renamed"); err != nil {
		t.Fatalf("RenameBatch: %v", err)
	}
	got, err := s.GetBatch(ctx, b.ID)
	if err != nil {
		t.Fatalf("GetBatch: %v", err)
	}
	if got.Name != "renamed" {
		t.Errorf("name = %q, want renamed", got.Name)
	}

	if err := s.RenameBatch(ctx, "missing", "x"); !errors.Is(err, store.ErrBatchNotFound) {
		t.Errorf("err = %v, want ErrBatchNotFound", err)
	}
}

// ─── Transitions ───

func TestTransitionBatch_StateMachine(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	b := createBatch(t, s, 1)

	// pending -> completed skips processing and must be refused.
	if err := s.TransitionBatch(ctx, b.ID, model.BatchCompleted); !errors.Is(err, store.ErrInvalidTransition) {
		t.Fatalf("pending->completed err = %v, want ErrInvalidTransition", err)
	}

	if err := s.TransitionBatch(ctx, b.ID, model.BatchProcessing); err != nil {
		t.Fatalf("pending->processing: %v", err)
	}
	if err := s.TransitionBatch(ctx, b.ID, model.BatchCancelled); err != nil {
		t.Fatalf("processing->cancelled: %v", err)
	}

	// Terminal states never move again.
	if err := s.TransitionBatch(ctx, b.ID, model.BatchProcessing); !errors.Is(err, store.ErrInvalidTransition) {
		t.Fatalf("cancelled->processing err = %v, want ErrInvalidTransition", err)
	}
}

func TestCancelBatch_OnlyWhileProcessing(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	b := createBatch(t, s, 1)
	if err := s.CancelBatch(ctx, b.ID); !errors.Is(err, store.ErrInvalidTransition) {
		t.Fatalf("cancel pending err = %v, want ErrInvalidTransition", err)
	}

	if err := s.TransitionBatch(ctx, b.ID, model.BatchProcessing); err != nil {
		t.Fatal(err)
	}
	if err := s.CancelBatch(ctx, b.ID); err != nil {
		t.Fatalf("cancel processing: %v", err)
	}
}

// ─── Counters ───

func TestIncrementBatchCount_Bounded(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	b := createBatch(t, s, 2)
	if err := s.IncrementBatchCount(ctx, b.ID, store.CountCompleted); err != nil {
		t.Fatal(err)
	}
	if err := s.IncrementBatchCount(ctx, b.ID, store.CountFailed); err != nil {
		t.Fatal(err)
	}

	// Counters are saturated now; a third bump must not push past total.
	err := s.IncrementBatchCount(ctx, b.ID, store.CountCompleted)
	if !errors.Is(err, store.ErrCounterOverflow) {
		t.Fatalf("err = %v, want ErrCounterOverflow", err)
	}

	got, err := s.GetBatch(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.CompletedCount != 1 || got.FailedCount != 1 {
		t.Errorf("counts = %d/%d, want 1/1", got.CompletedCount, got.FailedCount)
	}
}

func TestIncrementBatchCount_MissingBatch(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	err := s.IncrementBatchCount(context.Background(), "missing", store.CountCompleted)
	if !errors.Is(err, store.ErrBatchNotFound) {
		t.Fatalf("err = %v, want ErrBatchNotFound", err)
	}
}

func TestCheckAndComplete(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	b := createBatch(t, s, 2)
	if err := s.TransitionBatch(ctx, b.ID, model.BatchProcessing); err != nil {
		t.Fatal(err)
	}

	done, err := s.CheckAndComplete(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if done {
		t.Fatal("batch completed before all domains settled")
	}

	for _, kind := range []store.CountKind{store.CountCompleted, store.CountFailed} {
		if err := s.IncrementBatchCount(ctx, b.ID, kind); err != nil {
			t.Fatal(err)
		}
	}

	done, err = s.CheckAndComplete(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !done {
		t.Fatal("expected the batch to complete")
	}

	// Second call is a no-op, not an error.
	done, err = s.CheckAndComplete(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if done {
		t.Error("second CheckAndComplete reported another transition")
	}

	got, err := s.GetBatch(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != model.BatchCompleted {
		t.Errorf("status = %s, want completed", got.Status)
	}
}

func TestCheckAndComplete_CancelledStays(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	b := createBatch(t, s, 1)
	if err := s.TransitionBatch(ctx, b.ID, model.BatchProcessing); err != nil {
		t.Fatal(err)
	}
	if err := s.IncrementBatchCount(ctx, b.ID, store.CountCompleted); err != nil {
		t.Fatal(err)
	}
	if err := s.CancelBatch(ctx, b.ID); err != nil {
		t.Fatal(err)
	}

	done, err := s.CheckAndComplete(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if done {
		t.Fatal("cancelled batch must not flip to completed")
	}
}

// ─── Deletion ───

func TestDeleteBatch(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	b := createBatch(t, s, 1)
	insertAudit(t, s, b.ID, 0, "one.example.com")

	if err := s.DeleteBatch(ctx, b.ID, false); err != nil {
		t.Fatalf("DeleteBatch: %v", err)
	}
	if _, err := s.GetBatch(ctx, b.ID); !errors.Is(err, store.ErrBatchNotFound) {
		t.Fatalf("err = %v, want ErrBatchNotFound", err)
	}

	// With alsoDeleteAudits=false the audit survives, orphaned.
	audits, err := s.ListBatchAudits(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(audits) != 0 {
		t.Errorf("orphaned audits still linked to batch: %d", len(audits))
	}
}

func TestDeleteBatch_WithAudits(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	b := createBatch(t, s, 1)
	id := insertAudit(t, s, b.ID, 0, "one.example.com")

	if err := s.DeleteBatch(ctx, b.ID, true); err != nil {
		t.Fatalf("DeleteBatch: %v", err)
	}
	if _, err := s.GetAudit(ctx, id); !errors.Is(err, store.ErrAuditNotFound) {
		t.Fatalf("err = %v, want ErrAuditNotFound", err)
	}
}

func TestDeleteBatch_RefusesProcessing(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	b := createBatch(t, s, 1)
	if err := s.TransitionBatch(ctx, b.ID, model.BatchProcessing); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteBatch(ctx, b.ID, false); !errors.Is(err, store.ErrBatchProcessing) {
		t.Fatalf("err = %v, want ErrBatchProcessing", err)
	}
	if _, err := s.GetBatch(ctx, b.ID); err != nil {
		t.Fatalf("batch should still exist: %v", err)
	}
}

// ─── Audits ───

func insertAudit(t *testing.T, s *store.Store, batchID string, pos int, domain string) string {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Second)
	score := 62
	a := &model.Audit{
		ID:            model.NewAuditID(domain, now),
		Domain:        domain,
		Status:        model.AuditCompleted,
		CreatedAt:     now,
		CompletedAt:   &now,
		Score:         &score,
		BatchID:       &batchID,
		BatchPosition: &pos,
		Result: &model.AuditResult{
			OverallScore:   62,
			ProjectedScore: 87,
			Version:        "v1",
		},
	}
	if err := s.InsertAudit(context.Background(), a); err != nil {
		t.Fatalf("InsertAudit: %v", err)
	}
	return a.ID
}

func TestInsertAndGetAudit(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	b := createBatch(t, s, 1)
	id := insertAudit(t, s, b.ID, 0, "lodge.example.com")

	got, err := s.GetAudit(ctx, id)
	if err != nil {
		t.Fatalf("GetAudit: %v", err)
	}
	if got.Domain != "lodge.example.com" || got.Status != model.AuditCompleted {
		t.Errorf("audit = %+v", got)
	}
	if got.Score == nil || *got.Score != 62 {
		t.Errorf("score = %v, want 62", got.Score)
	}
	if got.Result == nil || got.Result.OverallScore != 62 {
		t.Errorf("result = %+v", got.Result)
	}
	if got.BatchID == nil || *got.BatchID != b.ID {
		t.Errorf("batch id = %v, want %s", got.BatchID, b.ID)
	}
}

func TestGetAudit_NotFound(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	_, err := s.GetAudit(context.Background(), "missing")
	if !errors.Is(err, store.ErrAuditNotFound) {
		t.Fatalf("err = %v, want ErrAuditNotFound", err)
	}
}

func TestListBatchAudits_SubmissionOrder(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	b := createBatch(t, s, 3)
	// Insert out of order; position must win.
	insertAudit(t, s, b.ID, 2, "c.example.com")
	insertAudit(t, s, b.ID, 0, "a.example.com")
	insertAudit(t, s, b.ID, 1, "b.example.com")

	audits, err := s.ListBatchAudits(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(audits) != 3 {
		t.Fatalf("got %d audits, want 3", len(audits))
	}
	for i, want := range []string{"a.example.com", "b.example.com", "c.example.com"} {
		if audits[i].Domain != want {
			t.Errorf("audits[%d] = %s, want %s", i, audits[i].Domain, want)
		}
	}
}
