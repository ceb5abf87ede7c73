// Package runner declares the contract the scheduler uses to invoke the
// analysis engine. The engine itself is a collaborator: any implementation
// that honors this contract can be plugged in.
package runner

import (
	"context"

	"github.com/stayscore/stayscore/internal/model"
)

// ProgressFunc receives incremental progress while a run is in flight.
// Implementations may call it zero or more times; percent is expected to be
// non-decreasing.
type ProgressFunc func(percent int, step string)

// AuditRunner analyzes a single domain and returns its raw signals.
// A failed analysis is reported through the error return, never a crash; the
// caller treats every outcome as terminal for the attempt.
type AuditRunner interface {
	Run(ctx context.Context, url, domain string, onProgress ProgressFunc) (*model.RawResult, error)
}

// Func adapts a plain function to the AuditRunner interface.
type Func func(ctx context.Context, url, domain string, onProgress ProgressFunc) (*model.RawResult, error)

func (f Func) Run(ctx context.Context, url, domain string, onProgress ProgressFunc) (*model.RawResult, error) {
	return f(ctx, url, domain, onProgress)
}
