package model

import "time"

// BatchStatus represents the lifecycle state of a batch.
type BatchStatus string

const (
	BatchPending    BatchStatus = "pending"
	BatchProcessing BatchStatus = "processing"
	BatchCompleted  BatchStatus = "completed"
	BatchCancelled  BatchStatus = "cancelled"
)

// Terminal reports whether the status is one a batch never leaves.
func (s BatchStatus) Terminal() bool {
	return s == BatchCompleted || s == BatchCancelled
}

// ValidTransition reports whether a batch may move from s to next.
// The only legal moves are pending->processing and processing->{completed,cancelled}.
func (s BatchStatus) ValidTransition(next BatchStatus) bool {
	switch s {
	case BatchPending:
		return next == BatchProcessing
	case BatchProcessing:
		return next == BatchCompleted || next == BatchCancelled
	}
	return false
}

// BatchSource records how the domain list reached us.
type BatchSource string

const (
	SourcePaste BatchSource = "paste"
	SourceFile  BatchSource = "file"
	SourceAPI   BatchSource = "api"
)

func (s BatchSource) IsValid() bool {
	switch s {
	case SourcePaste, SourceFile, SourceAPI:
		return true
	}
	return false
}

// Batch is a named group of domains submitted together for audit processing.
// CompletedCount + FailedCount never exceeds TotalDomains.
type Batch struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Source         BatchSource `json:"source"`
	TotalDomains   int         `json:"total_domains"`
	CompletedCount int         `json:"completed_count"`
	FailedCount    int         `json:"failed_count"`
	Status         BatchStatus `json:"status"`
	CreatedAt      time.Time   `json:"created_at"`
}

// BatchProgress is the polling view of a batch's counters.
type BatchProgress struct {
	Total           int `json:"total"`
	Completed       int `json:"completed"`
	Failed          int `json:"failed"`
	Pending         int `json:"pending"`
	PercentComplete int `json:"percent_complete"`
}

// Progress derives the progress view from the batch counters.
func (b *Batch) Progress() BatchProgress {
	done := b.CompletedCount + b.FailedCount
	pct := 0
	if b.TotalDomains > 0 {
		pct = done * 100 / b.TotalDomains
	}
	return BatchProgress{
		Total:           b.TotalDomains,
		Completed:       b.CompletedCount,
		Failed:          b.FailedCount,
		Pending:         b.TotalDomains - done,
		PercentComplete: pct,
	}
}
