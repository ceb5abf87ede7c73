// Package testutil provides shared test doubles for use across package tests.
// All dummies implement the corresponding interfaces from the production code,
// allowing injection into components under test without real I/O or side effects.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stayscore/stayscore/internal/logging"
	"github.com/stayscore/stayscore/internal/model"
	"github.com/stayscore/stayscore/internal/runner"
	"github.com/stayscore/stayscore/internal/webclient"
)

// ─── Logger ────────────────────────────────────────────────────────────

// DummyLogger implements logging.Logger with in-memory recording.
type DummyLogger struct {
	mu     sync.Mutex
	Errors []string
	Infos  []string
	Debugs []string
	Warns  []string
}

func (l *DummyLogger) Debug(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Debugs = append(l.Debugs, msg)
}

func (l *DummyLogger) Info(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Infos = append(l.Infos, msg)
}

func (l *DummyLogger) Warn(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Warns = append(l.Warns, msg)
}

func (l *DummyLogger) Error(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Errors = append(l.Errors, msg)
}

func (l *DummyLogger) With(_ ...logging.Field) logging.Logger { return l }

// ─── AuditRunner ───────────────────────────────────────────────────────

// StubRunner implements runner.AuditRunner with canned per-domain outcomes
// and an in-flight gauge so tests can assert on concurrency bounds.
type StubRunner struct {
	mu        sync.Mutex
	inFlight  int
	peak      int
	runs      []string
	Results   map[string]*model.RawResult // per-domain result; nil entry means a generic success
	Errs      map[string]error            // per-domain failure
	PanicOn   map[string]bool             // per-domain panic
	Delay     time.Duration               // hold each run open this long
	Progress  []int                       // percents to emit before settling
}

func (r *StubRunner) Run(ctx context.Context, url, domain string, onProgress runner.ProgressFunc) (*model.RawResult, error) {
	r.mu.Lock()
	r.inFlight++
	if r.inFlight > r.peak {
		r.peak = r.inFlight
	}
	r.runs = append(r.runs, domain)
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.inFlight--
		r.mu.Unlock()
	}()

	for _, p := range r.Progress {
		if onProgress != nil {
			onProgress(p, fmt.Sprintf("step %d", p))
		}
	}

	if r.Delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.Delay):
		}
	}

	if r.PanicOn[domain] {
		panic("stub runner panic for " + domain)
	}
	if err := r.Errs[domain]; err != nil {
		return nil, err
	}
	if res := r.Results[domain]; res != nil {
		return res, nil
	}
	return &model.RawResult{Domain: domain, URL: url}, nil
}

// Peak returns the maximum number of simultaneously in-flight runs observed.
func (r *StubRunner) Peak() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.peak
}

// Runs returns the domains run so far, in admission order.
func (r *StubRunner) Runs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.runs))
	copy(out, r.runs)
	return out
}

// ─── WebClient ─────────────────────────────────────────────────────────

// DummyWebClient implements webclient.WebClient, serving a fixed body with
// status 200 for every URL.
type DummyWebClient struct {
	Body   []byte
	Status int
	Err    error
}

func (d *DummyWebClient) Do(ctx context.Context, req *webclient.Request) (*webclient.Response, error) {
	if d.Err != nil {
		return nil, d.Err
	}
	status := d.Status
	if status == 0 {
		status = 200
	}
	return &webclient.Response{
		Request:    req,
		Body:       d.Body,
		StatusCode: status,
		FinalURL:   req.URL,
		FetchedAt:  time.Now().UTC(),
	}, nil
}

func (d *DummyWebClient) Close() error { return nil }
