package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ricesearch/matcheval/internal/config"
	"github.com/ricesearch/matcheval/internal/dataset"
	"github.com/ricesearch/matcheval/internal/evaluation"
	"github.com/ricesearch/matcheval/internal/grouping"
	apperrors "github.com/ricesearch/matcheval/internal/pkg/errors"
	"github.com/ricesearch/matcheval/internal/pkg/logger"
)

const (
	defaultRunsLimit = 50
	maxRunsLimit     = 1000
)

// Handler serves the evaluation, grouping and run history endpoints.
type Handler struct {
	evaluator *evaluation.Evaluator
	evalOpts  evaluation.Options
	groupOpts grouping.Options
	maxBody   int64
	log       *logger.Logger
}

// NewHandler creates a handler whose request defaults come from cfg.
func NewHandler(ev *evaluation.Evaluator, cfg *config.Config, maxBody int64, log *logger.Logger) (*Handler, error) {
	strategy, err := grouping.ParseStrategy(cfg.Grouping.Strategy)
	if err != nil {
		return nil, apperrors.ValidationError(err.Error())
	}

	return &Handler{
		evaluator: ev,
		evalOpts: evaluation.Options{
			PrecisionLevel: cfg.Evaluation.PrecisionLevel,
			CategoryColumn: cfg.Evaluation.CategoryColumn,
			Workers:        cfg.Evaluation.Workers,
			NaNPolicy:      evaluation.NaNPolicy(cfg.Evaluation.NaNPolicy),
			Symmetric:      cfg.Evaluation.SymmetricJoin,
		},
		groupOpts: grouping.Options{
			Strategy:      strategy,
			ProgressEvery: cfg.Grouping.ProgressEvery,
		},
		maxBody: maxBody,
		log:     log,
	}, nil
}

// RegisterRoutes registers the API routes.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/evaluation/pr-auc", h.handlePRAUC)
	mux.HandleFunc("POST /v1/grouping/groups", h.handleGroups)
	mux.HandleFunc("GET /v1/runs", h.handleListRuns)
	mux.HandleFunc("GET /v1/runs/{id}", h.handleGetRun)
	mux.HandleFunc("DELETE /v1/runs/{id}", h.handleDeleteRun)
}

// PRAUCRequest carries both tables as arrays of JSON objects. Unset options
// fall back to the server configuration.
type PRAUCRequest struct {
	Targets        []map[string]json.RawMessage `json:"targets"`
	Predictions    []map[string]json.RawMessage `json:"predictions"`
	PrecisionLevel *float64                     `json:"precision_level,omitempty"`
	CategoryColumn string                       `json:"category_column,omitempty"`
	NaNPolicy      string                       `json:"nan_policy,omitempty"`
	Symmetric      *bool                        `json:"symmetric,omitempty"`
}

// GroupRequest carries pair judgments with variantid1, variantid2, target.
type GroupRequest struct {
	Observations []map[string]json.RawMessage `json:"observations"`
	Strategy     string                       `json:"strategy,omitempty"`
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return &bodyTooLargeError{limit: tooLarge.Limit}
		}
		return apperrors.InvalidRequestError("invalid JSON: " + err.Error())
	}
	return nil
}

// bodyTooLargeError is answered with 413, a status no AppError code maps to.
type bodyTooLargeError struct {
	limit int64
}

func (e *bodyTooLargeError) Error() string {
	return fmt.Sprintf("request body exceeds %d bytes", e.limit)
}

// writeDecodeError answers a failed decode.
func writeDecodeError(w http.ResponseWriter, err error) {
	var tooLarge *bodyTooLargeError
	if errors.As(err, &tooLarge) {
		apperrors.WriteErrorWithStatus(w, http.StatusRequestEntityTooLarge,
			apperrors.New(apperrors.CodeInvalidRequest, "request body too large").
				WithDetail("limit_bytes", strconv.FormatInt(tooLarge.limit, 10)))
		return
	}
	apperrors.WriteError(w, err)
}

func (h *Handler) handlePRAUC(w http.ResponseWriter, r *http.Request) {
	var req PRAUCRequest
	if err := h.decode(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	opts := h.evalOpts
	if req.PrecisionLevel != nil {
		opts.PrecisionLevel = *req.PrecisionLevel
	}
	if req.CategoryColumn != "" {
		opts.CategoryColumn = req.CategoryColumn
	}
	if req.NaNPolicy != "" {
		opts.NaNPolicy = evaluation.NaNPolicy(req.NaNPolicy)
	}
	if req.Symmetric != nil {
		opts.Symmetric = *req.Symmetric
	}
	if err := opts.Validate(); err != nil {
		apperrors.WriteError(w, apperrors.ValidationError(err.Error()))
		return
	}

	if len(req.Targets) == 0 || len(req.Predictions) == 0 {
		apperrors.WriteError(w, apperrors.NoDataError("targets and predictions must not be empty"))
		return
	}

	truthTable, err := dataset.FromJSONRecords(req.Targets)
	if err != nil {
		apperrors.WriteError(w, err)
		return
	}
	truth, err := dataset.LabeledPairs(truthTable, opts.CategoryColumn)
	if err != nil {
		apperrors.WriteError(w, err)
		return
	}

	predTable, err := dataset.FromJSONRecords(req.Predictions)
	if err != nil {
		apperrors.WriteError(w, err)
		return
	}
	preds, err := dataset.Predictions(predTable)
	if err != nil {
		apperrors.WriteError(w, err)
		return
	}

	out, err := h.evaluator.EvaluatePRAUC(r.Context(), truth, preds, opts, "http")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGroups(w http.ResponseWriter, r *http.Request) {
	var req GroupRequest
	if err := h.decode(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	opts := h.groupOpts
	if req.Strategy != "" {
		strategy, err := grouping.ParseStrategy(req.Strategy)
		if err != nil {
			apperrors.WriteError(w, apperrors.ValidationError(err.Error()))
			return
		}
		opts.Strategy = strategy
	}

	var obs []grouping.Observation[int64]
	if len(req.Observations) > 0 {
		tbl, err := dataset.FromJSONRecords(req.Observations)
		if err != nil {
			apperrors.WriteError(w, err)
			return
		}
		obs, err = dataset.Observations(tbl)
		if err != nil {
			apperrors.WriteError(w, err)
			return
		}
	}

	out, err := h.evaluator.GroupPairs(r.Context(), obs, opts, "http")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunsLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > maxRunsLimit {
			apperrors.WriteError(w, apperrors.ValidationError("limit must be an integer between 1 and 1000"))
			return
		}
		limit = n
	}

	runs, err := h.evaluator.Runs(r.Context(), limit)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"runs":  runs,
		"count": len(runs),
	})
}

func (h *Handler) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.evaluator.Run(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (h *Handler) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.evaluator.DeleteRun(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":      id,
		"deleted": true,
	})
}

// writeServiceError maps evaluator failures onto responses. Client mistakes
// are logged at debug level, everything else as an error.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	log := h.log.WithContext(r.Context()).WithError(err)

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		log.Warn("Request timed out", "path", r.URL.Path)
		apperrors.WriteError(w, apperrors.TimeoutError(r.URL.Path))
		return
	case apperrors.IsValidation(err), apperrors.IsNotFound(err), apperrors.IsNoData(err):
		log.Debug("Request rejected", "path", r.URL.Path)
		apperrors.WriteError(w, err)
		return
	}

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		err = apperrors.InternalError("request failed", err)
	}
	log.Error("Request failed", "path", r.URL.Path)
	apperrors.WriteError(w, err)
}
