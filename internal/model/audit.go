package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AuditStatus is the terminal outcome recorded for a domain's analysis.
type AuditStatus string

const (
	AuditCompleted AuditStatus = "completed"
	AuditFailed    AuditStatus = "failed"
)

// Audit is the persisted, scored outcome of one completed-or-failed job.
// Audits are append-only: recalculation creates a new Audit rather than
// mutating the original.
type Audit struct {
	ID          string       `json:"id"`
	Domain      string       `json:"domain"`
	Status      AuditStatus  `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	Result      *AuditResult `json:"result,omitempty"`
	Score       *int         `json:"score,omitempty"`

	// Batch linkage. BatchPosition preserves submission order even though
	// jobs complete out of order.
	BatchID       *string `json:"batch_id,omitempty"`
	BatchPosition *int    `json:"batch_position,omitempty"`
}

// NewAuditID builds an audit id from the domain slug, a millisecond timestamp
// and a short random suffix. The suffix keeps ids unique when the same domain
// is resubmitted within the same millisecond.
func NewAuditID(domain string, at time.Time) string {
	return fmt.Sprintf("%s-%d-%s", DomainSlug(domain), at.UnixMilli(), uuid.New().String()[:8])
}

// DomainSlug normalizes a domain into an id-safe slug.
func DomainSlug(domain string) string {
	domain = strings.TrimSpace(strings.ToLower(domain))
	var b strings.Builder
	for _, r := range domain {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		} else {
			b.WriteRune('-')
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		out = "audit"
	}
	return out
}
