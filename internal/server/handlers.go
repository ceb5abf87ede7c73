package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stayscore/stayscore/internal/domainparse"
	"github.com/stayscore/stayscore/internal/jobs"
	"github.com/stayscore/stayscore/internal/logging"
	"github.com/stayscore/stayscore/internal/model"
	"github.com/stayscore/stayscore/internal/scheduler"
	"github.com/stayscore/stayscore/internal/scoring"
	"github.com/stayscore/stayscore/internal/store"
)

// handleCreateBatch godoc
// @Summary Create a batch from a domain submission
// @Accept json
// @Produce json
// @Param request body CreateBatchRequest true "domain submission"
// @Success 201 {object} CreateBatchResponse
// @Failure 400 {object} ErrorResponse
// @Router /batches [post]
func (s *Server) handleCreateBatch(w http.ResponseWriter, r *http.Request) {
	var body CreateBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	var parsed domainparse.Result
	if len(body.Domains) > 0 {
		parsed = domainparse.ParseList(body.Domains)
	} else {
		parsed = domainparse.Parse(body.RawText)
	}

	if len(parsed.Valid) == 0 {
		s.logger.Warn("batch submission had no valid domains",
			logging.Field{Key: "invalid_count", Value: len(parsed.Invalid)})
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":           "no valid domains in submission",
			"invalid_domains": parsed.Invalid,
		})
		return
	}

	batch, err := s.store.CreateBatch(r.Context(), body.Name, model.BatchSource(body.Source), len(parsed.Valid))
	if err != nil {
		s.logger.Warn("creating batch", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.logger.Info("created batch",
		logging.Field{Key: "batch_id", Value: batch.ID},
		logging.Field{Key: "domains", Value: len(parsed.Valid)})

	writeJSON(w, http.StatusCreated, CreateBatchResponse{
		BatchID:        batch.ID,
		Batch:          batch,
		Domains:        parsed.Valid,
		ValidCount:     len(parsed.Valid),
		InvalidCount:   len(parsed.Invalid),
		InvalidDomains: parsed.Invalid,
	})
}

// handleListBatches godoc
// @Summary List batches, newest first
// @Produce json
// @Param limit query int false "page size" default(20)
// @Param offset query int false "page offset" default(0)
// @Success 200 {object} ListBatchesResponse
// @Router /batches [get]
func (s *Server) handleListBatches(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	batches, total, err := s.store.ListBatches(r.Context(), limit, offset)
	if err != nil {
		s.logger.Warn("listing batches", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if batches == nil {
		batches = []model.Batch{}
	}

	writeJSON(w, http.StatusOK, ListBatchesResponse{
		Batches: batches,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	})
}

// handleGetBatch godoc
// @Summary Get a batch with progress and audits
// @Produce json
// @Param batchID path string true "batch id"
// @Success 200 {object} GetBatchResponse
// @Failure 404 {object} ErrorResponse
// @Router /batches/{batchID} [get]
func (s *Server) handleGetBatch(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batchID")

	batch, err := s.store.GetBatch(r.Context(), batchID)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	audits, err := s.store.ListBatchAudits(r.Context(), batchID)
	if err != nil {
		s.logger.Warn("listing batch audits", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if audits == nil {
		audits = []model.Audit{}
	}

	writeJSON(w, http.StatusOK, GetBatchResponse{
		Batch:    batch,
		Progress: batch.Progress(),
		Audits:   audits,
	})
}

// handleStartBatch godoc
// @Summary Start asynchronous processing of a batch
// @Accept json
// @Produce json
// @Param batchID path string true "batch id"
// @Param request body StartBatchRequest true "ordered domain list"
// @Success 202 {object} StartBatchResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /batches/{batchID}/start [post]
func (s *Server) handleStartBatch(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batchID")

	var body StartBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	parsed := domainparse.ParseList(body.Domains)
	if len(parsed.Valid) == 0 {
		writeError(w, http.StatusBadRequest, "no valid domains to process")
		return
	}

	batch, err := s.store.GetBatch(r.Context(), batchID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if len(parsed.Valid) != batch.TotalDomains {
		writeError(w, http.StatusBadRequest, "domain count does not match the batch")
		return
	}

	if err := s.scheduler.Start(r.Context(), batchID, parsed.Valid); err != nil {
		switch {
		case errors.Is(err, scheduler.ErrBatchActive), errors.Is(err, store.ErrInvalidTransition):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, store.ErrBatchNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		default:
			s.logger.Error("starting batch", logging.Field{Key: "error", Value: err.Error()})
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	s.logger.Info("started batch processing",
		logging.Field{Key: "batch_id", Value: batchID},
		logging.Field{Key: "total_domains", Value: batch.TotalDomains})

	writeJSON(w, http.StatusAccepted, StartBatchResponse{
		Message:      "batch processing started",
		BatchID:      batchID,
		TotalDomains: batch.TotalDomains,
	})
}

// handleUpdateBatch godoc
// @Summary Rename a batch or request cancellation
// @Accept json
// @Produce json
// @Param batchID path string true "batch id"
// @Param request body UpdateBatchRequest true "fields to update"
// @Success 200 {object} model.Batch
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /batches/{batchID} [patch]
func (s *Server) handleUpdateBatch(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batchID")

	var body UpdateBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if body.Name == nil && body.Status == nil {
		writeError(w, http.StatusBadRequest, "nothing to update")
		return
	}

	if body.Status != nil {
		// The only transition an operator may request is cancellation.
		if model.BatchStatus(*body.Status) != model.BatchCancelled {
			writeError(w, http.StatusBadRequest, "only a cancellation can be requested")
			return
		}
		if err := s.store.CancelBatch(r.Context(), batchID); err != nil {
			writeStoreError(w, err)
			return
		}
		s.logger.Info("batch cancellation requested", logging.Field{Key: "batch_id", Value: batchID})
	}

	if body.Name != nil {
		if err := s.store.RenameBatch(r.Context(), batchID, *body.Name); err != nil {
			writeStoreError(w, err)
			return
		}
	}

	batch, err := s.store.GetBatch(r.Context(), batchID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, batch)
}

// handleDeleteBatch godoc
// @Summary Delete a batch
// @Produce json
// @Param batchID path string true "batch id"
// @Param deleteAudits query bool false "also delete the batch's audits"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /batches/{batchID} [delete]
func (s *Server) handleDeleteBatch(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batchID")
	deleteAudits, _ := strconv.ParseBool(r.URL.Query().Get("deleteAudits"))

	if err := s.store.DeleteBatch(r.Context(), batchID, deleteAudits); err != nil {
		writeStoreError(w, err)
		return
	}
	s.logger.Info("deleted batch",
		logging.Field{Key: "batch_id", Value: batchID},
		logging.Field{Key: "delete_audits", Value: deleteAudits})
	writeJSON(w, http.StatusNoContent, nil)
}

// handleGetAudit godoc
// @Summary Get an audit by id
// @Produce json
// @Param auditID path string true "audit id"
// @Success 200 {object} model.Audit
// @Failure 404 {object} ErrorResponse
// @Router /audits/{auditID} [get]
func (s *Server) handleGetAudit(w http.ResponseWriter, r *http.Request) {
	audit, err := s.store.GetAudit(r.Context(), chi.URLParam(r, "auditID"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, audit)
}

// handleRecalculateAudit godoc
// @Summary Rescore a stored audit into a new audit record
// @Accept json
// @Produce json
// @Param request body RecalculateRequest true "audit to rescore"
// @Success 200 {object} RecalculateResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /audit/recalculate [post]
func (s *Server) handleRecalculateAudit(w http.ResponseWriter, r *http.Request) {
	var body RecalculateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.AuditID == "" {
		writeError(w, http.StatusBadRequest, "audit_id is required")
		return
	}

	old, err := s.store.GetAudit(r.Context(), body.AuditID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if old.Status != model.AuditCompleted || old.Result == nil {
		writeError(w, http.StatusBadRequest, "only completed audits can be recalculated")
		return
	}

	result, changes := scoring.Recalculate(old.Result)

	now := time.Now().UTC()
	rescored := &model.Audit{
		ID:            model.NewAuditID(old.Domain, now),
		Domain:        old.Domain,
		Status:        model.AuditCompleted,
		CreatedAt:     now,
		CompletedAt:   &now,
		Result:        result,
		Score:         &result.OverallScore,
		BatchID:       old.BatchID,
		BatchPosition: old.BatchPosition,
	}
	if err := s.store.InsertAudit(r.Context(), rescored); err != nil {
		s.logger.Error("persisting rescored audit", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if changes == nil {
		changes = []scoring.Change{}
	}
	s.logger.Info("recalculated audit",
		logging.Field{Key: "old_audit_id", Value: old.ID},
		logging.Field{Key: "new_audit_id", Value: rescored.ID})

	writeJSON(w, http.StatusOK, RecalculateResponse{
		Success:    true,
		OldAuditID: old.ID,
		NewAuditID: rescored.ID,
		OldScore:   old.Score,
		NewScore:   rescored.Score,
		Changes:    changes,
	})
}

// handleListJobs godoc
// @Summary List in-memory jobs, newest first
// @Produce json
// @Success 200 {array} model.Job
// @Router /jobs [get]
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.tracker.List())
}

// handleGetJob godoc
// @Summary Get a job by id
// @Produce json
// @Param jobID path string true "job id"
// @Success 200 {object} model.Job
// @Failure 404 {object} ErrorResponse
// @Router /jobs/{jobID} [get]
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.tracker.Get(chi.URLParam(r, "jobID"))
	if err != nil {
		if errors.Is(err, jobs.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeStoreError maps store sentinels onto HTTP statuses.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrBatchNotFound), errors.Is(err, store.ErrAuditNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrInvalidTransition):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrBatchProcessing):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
