// Package scheduler drives a batch's domains through the audit runner with
// bounded parallelism and cooperative cancellation.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/stayscore/stayscore/internal/jobs"
	"github.com/stayscore/stayscore/internal/logging"
	"github.com/stayscore/stayscore/internal/model"
	"github.com/stayscore/stayscore/internal/runner"
	"github.com/stayscore/stayscore/internal/scoring"
	"github.com/stayscore/stayscore/internal/store"
)

var (
	// ErrBatchActive is returned when a coordinator is already running for
	// the batch in this process.
	ErrBatchActive = errors.New("batch is already being processed")
)

// Config holds scheduler tuning knobs.
type Config struct {
	// Concurrency bounds simultaneously in-flight runs per batch.
	Concurrency int

	// RunTimeout bounds a single domain's analysis.
	RunTimeout time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Concurrency: 3,
		RunTimeout:  2 * time.Minute,
	}
}

// Scheduler starts one coordinator goroutine per batch. The active set keeps
// two coordinators from racing the same batch within this process; it is
// volatile and does not survive a restart.
type Scheduler struct {
	cfg     Config
	store   *store.Store
	tracker *jobs.Tracker
	runner  runner.AuditRunner
	logger  logging.Logger

	mu     sync.Mutex
	active map[string]struct{}
	wgs    map[string]*sync.WaitGroup
}

func New(cfg Config, st *store.Store, tracker *jobs.Tracker, r runner.AuditRunner, logger logging.Logger) *Scheduler {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = DefaultConfig().Concurrency
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = DefaultConfig().RunTimeout
	}
	return &Scheduler{
		cfg:     cfg,
		store:   st,
		tracker: tracker,
		runner:  r,
		logger:  logger,
		active:  make(map[string]struct{}),
		wgs:     make(map[string]*sync.WaitGroup),
	}
}

// Start launches the coordinator for a batch and returns immediately. It
// fails synchronously when the batch is unknown, already guarded as active,
// or not in the pending state.
func (s *Scheduler) Start(ctx context.Context, batchID string, domains []string) error {
	if len(domains) == 0 {
		return fmt.Errorf("no domains to process for batch %s", batchID)
	}

	s.mu.Lock()
	if _, busy := s.active[batchID]; busy {
		s.mu.Unlock()
		return ErrBatchActive
	}
	s.active[batchID] = struct{}{}
	wg := &sync.WaitGroup{}
	wg.Add(1)
	s.wgs[batchID] = wg
	s.mu.Unlock()

	if err := s.store.TransitionBatch(ctx, batchID, model.BatchProcessing); err != nil {
		s.release(batchID)
		wg.Done()
		return err
	}

	// The coordinator outlives the request that started it.
	runCtx := context.WithoutCancel(ctx)
	go func() {
		defer wg.Done()
		defer s.release(batchID)
		s.process(runCtx, batchID, domains)
	}()
	return nil
}

// Active reports whether a coordinator currently owns the batch.
func (s *Scheduler) Active(batchID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.active[batchID]
	return ok
}

// Wait blocks until the batch's coordinator (if any) has finished. Intended
// for tests and graceful shutdown.
func (s *Scheduler) Wait(batchID string) {
	s.mu.Lock()
	wg := s.wgs[batchID]
	s.mu.Unlock()
	if wg != nil {
		wg.Wait()
	}
}

func (s *Scheduler) release(batchID string) {
	s.mu.Lock()
	delete(s.active, batchID)
	delete(s.wgs, batchID)
	s.mu.Unlock()
}

// process is the per-batch coordinator loop. Domains are admitted in FIFO
// order; the semaphore channel blocks admission while Concurrency runs are in
// flight, so a (K+1)-th run never starts before one of the first K settles.
func (s *Scheduler) process(ctx context.Context, batchID string, domains []string) {
	sem := make(chan struct{}, s.cfg.Concurrency)
	var wg sync.WaitGroup

	log := s.logger.With(logging.Field{Key: "component", Value: "Scheduler"})
	log.Info("batch processing started",
		logging.Field{Key: "batch_id", Value: batchID},
		logging.Field{Key: "domains", Value: len(domains)},
		logging.Field{Key: "concurrency", Value: s.cfg.Concurrency})

	for position, domain := range domains {
		// Re-read batch status before each admission; cancellation stops
		// new admissions but lets in-flight work drain.
		batch, err := s.store.GetBatch(ctx, batchID)
		if err != nil {
			log.Error("reading batch state failed, leaving batch for reconciliation",
				logging.Field{Key: "batch_id", Value: batchID},
				logging.Field{Key: "error", Value: err.Error()})
			wg.Wait()
			return
		}
		if batch.Status == model.BatchCancelled {
			log.Info("batch cancelled, stopping admissions",
				logging.Field{Key: "batch_id", Value: batchID},
				logging.Field{Key: "remaining", Value: len(domains) - position})
			break
		}

		sem <- struct{}{}
		wg.Add(1)

		go func(domain string, position int) {
			defer wg.Done()
			defer func() { <-sem }()
			s.runOne(ctx, batchID, domain, position)
		}(domain, position)
	}

	wg.Wait()

	completed, err := s.store.CheckAndComplete(ctx, batchID)
	if err != nil {
		log.Error("finalizing batch failed, leaving batch for reconciliation",
			logging.Field{Key: "batch_id", Value: batchID},
			logging.Field{Key: "error", Value: err.Error()})
		return
	}
	log.Info("batch processing finished",
		logging.Field{Key: "batch_id", Value: batchID},
		logging.Field{Key: "completed", Value: completed})
}

// runOne processes a single domain end to end: job bookkeeping, the runner
// call, the persisted audit and the batch counter. A domain failure never
// escapes this boundary.
func (s *Scheduler) runOne(ctx context.Context, batchID, domain string, position int) {
	job := s.tracker.Create(domain)
	_ = s.tracker.Start(job.ID)

	raw, runErr := s.invokeRunner(ctx, job.ID, domain)

	now := time.Now().UTC()
	audit := &model.Audit{
		ID:            model.NewAuditID(domain, now),
		Domain:        domain,
		CreatedAt:     now,
		CompletedAt:   &now,
		BatchID:       &batchID,
		BatchPosition: &position,
	}

	kind := store.CountCompleted
	if runErr != nil {
		_ = s.tracker.Fail(job.ID, runErr.Error())
		audit.Status = model.AuditFailed
		audit.Result = &model.AuditResult{Error: runErr.Error()}
		kind = store.CountFailed
	} else {
		_ = s.tracker.Complete(job.ID, raw)
		result := scoring.Score(raw)
		audit.Status = model.AuditCompleted
		audit.Result = result
		audit.Score = &result.OverallScore
	}

	if err := s.store.InsertAudit(ctx, audit); err != nil {
		s.logger.Error("persisting audit failed",
			logging.Field{Key: "batch_id", Value: batchID},
			logging.Field{Key: "domain", Value: domain},
			logging.Field{Key: "error", Value: err.Error()})
	}
	if err := s.store.IncrementBatchCount(ctx, batchID, kind); err != nil {
		s.logger.Error("incrementing batch counter failed",
			logging.Field{Key: "batch_id", Value: batchID},
			logging.Field{Key: "kind", Value: string(kind)},
			logging.Field{Key: "error", Value: err.Error()})
	}
}

// invokeRunner calls the audit runner with a per-run timeout, mirroring
// progress onto the job. A panicking runner is converted into an error so a
// bad domain cannot take down its siblings.
func (s *Scheduler) invokeRunner(ctx context.Context, jobID, domain string) (raw *model.RawResult, err error) {
	runCtx, cancel := context.WithTimeout(ctx, s.cfg.RunTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			raw = nil
			err = fmt.Errorf("audit runner panic: %v", r)
		}
	}()

	onProgress := func(percent int, step string) {
		_ = s.tracker.SetProgress(jobID, percent, step)
	}

	return s.runner.Run(runCtx, "https://"+domain, domain, onProgress)
}
