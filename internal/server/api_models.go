package server

import (
	"github.com/stayscore/stayscore/internal/domainparse"
	"github.com/stayscore/stayscore/internal/model"
	"github.com/stayscore/stayscore/internal/scoring"
)

// CreateBatchRequest submits domains for auditing, either pre-split or as raw
// pasted text.
type CreateBatchRequest struct {
	Domains []string `json:"domains,omitempty" example:"seasidehotel.com,villarosa.it"`
	RawText string   `json:"raw_text,omitempty" example:"seasidehotel.com\nvillarosa.it"`
	Name    string   `json:"name,omitempty" example:"Coastal hotels May"`
	Source  string   `json:"source,omitempty" example:"paste"`
}

// CreateBatchResponse reports the created batch and how the submission parsed.
type CreateBatchResponse struct {
	BatchID        string                      `json:"batch_id"`
	Batch          *model.Batch                `json:"batch"`
	Domains        []string                    `json:"domains"`
	ValidCount     int                         `json:"valid_count"`
	InvalidCount   int                         `json:"invalid_count"`
	InvalidDomains []domainparse.InvalidDomain `json:"invalid_domains,omitempty"`
}

// ListBatchesResponse is a paginated batch listing.
type ListBatchesResponse struct {
	Batches []model.Batch `json:"batches"`
	Total   int           `json:"total"`
	Limit   int           `json:"limit"`
	Offset  int           `json:"offset"`
}

// GetBatchResponse couples a batch with its progress view and audits.
type GetBatchResponse struct {
	Batch    *model.Batch        `json:"batch"`
	Progress model.BatchProgress `json:"progress"`
	Audits   []model.Audit       `json:"audits"`
}

// StartBatchRequest carries the ordered domain list to process.
type StartBatchRequest struct {
	Domains []string `json:"domains" example:"seasidehotel.com,villarosa.it"`
}

// StartBatchResponse acknowledges asynchronous processing.
type StartBatchResponse struct {
	Message      string `json:"message" example:"batch processing started"`
	BatchID      string `json:"batch_id"`
	TotalDomains int    `json:"total_domains"`
}

// UpdateBatchRequest renames a batch and/or requests cancellation.
type UpdateBatchRequest struct {
	Name   *string `json:"name,omitempty"`
	Status *string `json:"status,omitempty" example:"cancelled"`
}

// RecalculateRequest asks for a fresh scoring pass over a stored audit.
type RecalculateRequest struct {
	AuditID string `json:"audit_id"`
}

// RecalculateResponse reports the new audit and what moved. The original
// audit is never mutated.
type RecalculateResponse struct {
	Success    bool             `json:"success"`
	OldAuditID string           `json:"old_audit_id"`
	NewAuditID string           `json:"new_audit_id"`
	OldScore   *int             `json:"old_score"`
	NewScore   *int             `json:"new_score"`
	Changes    []scoring.Change `json:"changes"`
}

// ErrorResponse is a uniform error payload returned by the API.
type ErrorResponse struct {
	Error string `json:"error" example:"not found"`
}
