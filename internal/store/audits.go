package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/stayscore/stayscore/internal/model"
)

// InsertAudit persists an audit record. Audits are immutable once written.
func (s *Store) InsertAudit(ctx context.Context, a *model.Audit) error {
	if a == nil {
		return fmt.Errorf("audit is nil")
	}

	var resultJSON sql.NullString
	if a.Result != nil {
		enc, err := json.Marshal(a.Result)
		if err != nil {
			return fmt.Errorf("marshal audit result: %w", err)
		}
		resultJSON = sql.NullString{String: string(enc), Valid: true}
	}

	var completedAt sql.NullInt64
	if a.CompletedAt != nil {
		completedAt = sql.NullInt64{Int64: a.CompletedAt.Unix(), Valid: true}
	}
	var score sql.NullInt64
	if a.Score != nil {
		score = sql.NullInt64{Int64: int64(*a.Score), Valid: true}
	}
	var batchID sql.NullString
	if a.BatchID != nil {
		batchID = sql.NullString{String: *a.BatchID, Valid: true}
	}
	var batchPos sql.NullInt64
	if a.BatchPosition != nil {
		batchPos = sql.NullInt64{Int64: int64(*a.BatchPosition), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audits (id, domain, status, created_at, completed_at, result, score, batch_id, batch_position)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Domain, string(a.Status), a.CreatedAt.Unix(),
		completedAt, resultJSON, score, batchID, batchPos,
	)
	if err != nil {
		return fmt.Errorf("insert audit: %w", err)
	}
	return nil
}

// GetAudit returns an audit by id.
func (s *Store) GetAudit(ctx context.Context, id string) (*model.Audit, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, domain, status, created_at, completed_at, result, score, batch_id, batch_position
         FROM audits
         WHERE id = ?
         LIMIT 1`,
		id,
	)
	return scanAudit(row)
}

// ListBatchAudits returns a batch's audits in submission order.
func (s *Store) ListBatchAudits(ctx context.Context, batchID string) ([]model.Audit, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, domain, status, created_at, completed_at, result, score, batch_id, batch_position
         FROM audits
         WHERE batch_id = ?
         ORDER BY batch_position ASC, created_at ASC`,
		batchID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Audit
	for rows.Next() {
		a, err := scanAudit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func scanAudit(row rowScanner) (*model.Audit, error) {
	var a model.Audit
	var status string
	var createdAt int64
	var completedAt, score, batchPos sql.NullInt64
	var resultJSON, batchID sql.NullString

	err := row.Scan(&a.ID, &a.Domain, &status, &createdAt,
		&completedAt, &resultJSON, &score, &batchID, &batchPos)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrAuditNotFound
		}
		return nil, err
	}

	a.Status = model.AuditStatus(status)
	a.CreatedAt = time.Unix(createdAt, 0).UTC()
	if completedAt.Valid {
		t := time.Unix(completedAt.Int64, 0).UTC()
		a.CompletedAt = &t
	}
	if resultJSON.Valid && resultJSON.String != "" {
		var res model.AuditResult
		if err := json.Unmarshal([]byte(resultJSON.String), &res); err != nil {
			return nil, fmt.Errorf("unmarshal audit result: %w", err)
		}
		a.Result = &res
	}
	if score.Valid {
		v := int(score.Int64)
		a.Score = &v
	}
	if batchID.Valid {
		v := batchID.String
		a.BatchID = &v
	}
	if batchPos.Valid {
		v := int(batchPos.Int64)
		a.BatchPosition = &v
	}
	return &a, nil
}
