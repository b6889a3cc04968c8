package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"shelfaudit/internal/compliance/batch"
	"shelfaudit/internal/compliance/models"
	"shelfaudit/internal/compliance/ports"
	"shelfaudit/internal/platform/metrics"
	"shelfaudit/internal/platform/middleware"
	dErrors "shelfaudit/pkg/domain-errors"
	audit "shelfaudit/pkg/platform/audit"
	"shelfaudit/pkg/platform/httputil"
	"shelfaudit/pkg/platform/middleware/requestid"
	"shelfaudit/pkg/platform/middleware/requesttime"
	"shelfaudit/pkg/requestcontext"
)

// Service defines the compliance operations exposed over HTTP.
type Service interface {
	EvaluatePeriod(ctx context.Context, period models.Period) (*batch.Summary, error)
	CustomerResult(ctx context.Context, period models.Period, customerID string) (*models.CustomerResult, error)
	Progress(ctx context.Context, period models.Period) (*ports.Progress, error)
	Runs(ctx context.Context, period models.Period, limit int) ([]audit.Event, error)
}

// Handler handles compliance endpoints.
type Handler struct {
	logger  *slog.Logger
	service Service
	metrics *metrics.Metrics
}

// New creates a new compliance Handler.
func New(service Service, logger *slog.Logger, metrics *metrics.Metrics) *Handler {
	return &Handler{
		logger:  logger,
		service: service,
		metrics: metrics,
	}
}

// Register registers the compliance routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(requestid.Middleware)
		r.Use(requesttime.Middleware)
		r.Use(middleware.Recovery(h.logger))
		r.Use(middleware.Logger(h.logger))
		r.Use(middleware.Latency(h.metrics))
		r.Post("/v1/periods/{period}/evaluations", h.handleEvaluate)
		r.Get("/v1/periods/{period}/customers/{customerID}", h.handleCustomerResult)
		r.Get("/v1/periods/{period}/progress", h.handleProgress)
		r.Get("/v1/periods/{period}/runs", h.handleRuns)
	})
}

// handleEvaluate runs a full evaluation of the period and answers with the
// run summary once every result is persisted.
func (h *Handler) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	period, ok := h.period(w, r)
	if !ok {
		return
	}

	summary, err := h.service.EvaluatePeriod(ctx, period)
	if err != nil {
		h.fail(ctx, w, "evaluation failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleCustomerResult(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	period, ok := h.period(w, r)
	if !ok {
		return
	}

	res, err := h.service.CustomerResult(ctx, period, chi.URLParam(r, "customerID"))
	if err != nil {
		h.fail(ctx, w, "customer result lookup failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) handleProgress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	period, ok := h.period(w, r)
	if !ok {
		return
	}

	p, err := h.service.Progress(ctx, period)
	if err != nil {
		h.fail(ctx, w, "progress lookup failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

type runsResponse struct {
	Period string        `json:"period"`
	Runs   []audit.Event `json:"runs"`
}

// handleRuns lists the run audit trail, newest first. ?limit caps the count.
func (h *Handler) handleRuns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	period, ok := h.period(w, r)
	if !ok {
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httputil.WriteError(w, dErrors.Newf(dErrors.CodeBadRequest, "limit must be a positive integer, got %q", raw))
			return
		}
		limit = n
	}

	events, err := h.service.Runs(ctx, period, limit)
	if err != nil {
		h.fail(ctx, w, "run audit lookup failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, runsResponse{Period: period.String(), Runs: events})
}

func (h *Handler) period(w http.ResponseWriter, r *http.Request) (models.Period, bool) {
	period, err := models.ParsePeriod(chi.URLParam(r, "period"))
	if err != nil {
		httputil.WriteError(w, err)
		return 0, false
	}
	return period, true
}

// fail logs at a level matching the error class and writes the mapped response.
// A client that went away gets no body.
func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	requestID := requestcontext.RequestID(ctx)
	if errors.Is(err, context.Canceled) {
		if h.logger != nil {
			h.logger.InfoContext(ctx, "request canceled by client", "request_id", requestID)
		}
		return
	}
	if h.logger != nil {
		if code := dErrors.CodeOf(err); code == dErrors.CodeInternal || code == dErrors.CodeUnavailable {
			h.logger.ErrorContext(ctx, msg, "request_id", requestID, "error", err)
		} else {
			h.logger.WarnContext(ctx, msg, "request_id", requestID, "error", err)
		}
	}
	httputil.WriteError(w, err)
}
