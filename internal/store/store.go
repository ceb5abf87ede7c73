// Package store persists batches and audits in SQLite. It is the single
// authority for batch status transitions and counter arithmetic.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stayscore/stayscore/internal/logging"
	"github.com/stayscore/stayscore/internal/model"
)

//go:embed schema.sql
var schemaFS embed.FS

var (
	ErrBatchNotFound     = errors.New("batch not found")
	ErrAuditNotFound     = errors.New("audit not found")
	ErrInvalidTransition = errors.New("invalid batch status transition")
	ErrBatchProcessing   = errors.New("batch is processing")
	ErrCounterOverflow   = errors.New("batch counters already at total")
)

// Store wraps a SQLite database holding batches and audits.
type Store struct {
	db     *sql.DB
	logger logging.Logger
}

// New returns a Store and runs migrations from schema.sql.
func New(db *sql.DB, logger logging.Logger) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}

	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return nil, fmt.Errorf("failed to read schema.sql: %w", err)
	}
	if _, err := db.Exec(string(schemaSQL)); err != nil {
		return nil, fmt.Errorf("failed to execute schema: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// CreateBatch inserts a new batch in the pending state.
func (s *Store) CreateBatch(ctx context.Context, name string, source model.BatchSource, totalDomains int) (*model.Batch, error) {
	if totalDomains < 1 {
		return nil, fmt.Errorf("totalDomains must be >= 1, got %d", totalDomains)
	}
	if source == "" {
		source = model.SourceAPI
	}
	if !source.IsValid() {
		return nil, fmt.Errorf("invalid batch source %q", source)
	}
	if name == "" {
		name = fmt.Sprintf("Batch %s", time.Now().UTC().Format("2006-01-02 15:04"))
	}

	b := &model.Batch{
		ID:           uuid.New().String(),
		Name:         name,
		Source:       source,
		TotalDomains: totalDomains,
		Status:       model.BatchPending,
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO batches (id, name, source, total_domains, completed_count, failed_count, status, created_at)
         VALUES (?, ?, ?, ?, 0, 0, ?, ?)`,
		b.ID, b.Name, string(b.Source), b.TotalDomains, string(b.Status), b.CreatedAt.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert batch: %w", err)
	}
	return b, nil
}

// GetBatch returns a batch by id.
func (s *Store) GetBatch(ctx context.Context, id string) (*model.Batch, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, source, total_domains, completed_count, failed_count, status, created_at
         FROM batches
         WHERE id = ?
         LIMIT 1`,
		id,
	)
	return scanBatch(row)
}

// ListBatches returns batches newest-first plus the total row count for
// pagination.
func (s *Store) ListBatches(ctx context.Context, limit, offset int) ([]model.Batch, int, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM batches`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count batches: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, source, total_domains, completed_count, failed_count, status, created_at
         FROM batches
         ORDER BY created_at DESC, id DESC
         LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []model.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *b)
	}
	return out, total, rows.Err()
}

// RenameBatch updates the batch name only.
func (s *Store) RenameBatch(ctx context.Context, id, name string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE batches SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return fmt.Errorf("rename batch: %w", err)
	}
	return requireRow(res, ErrBatchNotFound)
}

// TransitionBatch moves a batch from one status to the next, enforcing the
// pending -> processing -> {completed, cancelled} state machine. The update is
// guarded on the expected current status so concurrent writers cannot race a
// batch out of a terminal state.
func (s *Store) TransitionBatch(ctx context.Context, id string, next model.BatchStatus) error {
	cur, err := s.GetBatch(ctx, id)
	if err != nil {
		return err
	}
	if !cur.Status.ValidTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, cur.Status, next)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE batches SET status = ? WHERE id = ? AND status = ?`,
		string(next), id, string(cur.Status),
	)
	if err != nil {
		return fmt.Errorf("transition batch: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Lost the race; someone moved the batch first.
		return fmt.Errorf("%w: batch %s changed concurrently", ErrInvalidTransition, id)
	}
	return nil
}

// CancelBatch requests cooperative cancellation: processing -> cancelled only.
func (s *Store) CancelBatch(ctx context.Context, id string) error {
	return s.TransitionBatch(ctx, id, model.BatchCancelled)
}

// CountKind selects which batch counter IncrementBatchCount bumps.
type CountKind string

const (
	CountCompleted CountKind = "completed"
	CountFailed    CountKind = "failed"
)

// IncrementBatchCount atomically bumps one counter. The guard clause keeps
// completed+failed from ever exceeding total_domains.
func (s *Store) IncrementBatchCount(ctx context.Context, id string, kind CountKind) error {
	var column string
	switch kind {
	case CountCompleted:
		column = "completed_count"
	case CountFailed:
		column = "failed_count"
	default:
		return fmt.Errorf("unknown count kind %q", kind)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE batches
         SET `+column+` = `+column+` + 1
         WHERE id = ? AND completed_count + failed_count < total_domains`,
		id,
	)
	if err != nil {
		return fmt.Errorf("increment %s: %w", column, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := s.GetBatch(ctx, id); err != nil {
			return err
		}
		return ErrCounterOverflow
	}
	return nil
}

// CheckAndComplete flips a processing batch to completed once every domain is
// terminal. Idempotent: calling it on an already-completed or not-yet-done
// batch is a no-op.
func (s *Store) CheckAndComplete(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE batches
         SET status = ?
         WHERE id = ? AND status = ? AND completed_count + failed_count = total_domains`,
		string(model.BatchCompleted), id, string(model.BatchProcessing),
	)
	if err != nil {
		return false, fmt.Errorf("check and complete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteBatch removes a batch. Deletion is refused while the batch is
// processing. When alsoDeleteAudits is false the batch's audits survive with
// their batch linkage cleared.
func (s *Store) DeleteBatch(ctx context.Context, id string, alsoDeleteAudits bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var status string
	if err := tx.QueryRowContext(ctx, `SELECT status FROM batches WHERE id = ?`, id).Scan(&status); err != nil {
		if err == sql.ErrNoRows {
			return ErrBatchNotFound
		}
		return err
	}
	if model.BatchStatus(status) == model.BatchProcessing {
		return ErrBatchProcessing
	}

	if alsoDeleteAudits {
		if _, err := tx.ExecContext(ctx, `DELETE FROM audits WHERE batch_id = ?`, id); err != nil {
			return fmt.Errorf("delete batch audits: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM batches WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete batch: %w", err)
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBatch(row rowScanner) (*model.Batch, error) {
	var b model.Batch
	var source, status string
	var createdAt int64
	err := row.Scan(&b.ID, &b.Name, &source, &b.TotalDomains,
		&b.CompletedCount, &b.FailedCount, &status, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrBatchNotFound
		}
		return nil, err
	}
	b.Source = model.BatchSource(source)
	b.Status = model.BatchStatus(status)
	b.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &b, nil
}

func requireRow(res sql.Result, missing error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return missing
	}
	return nil
}
