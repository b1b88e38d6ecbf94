package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"MarketPulse/internal/domain/models"
	domrepo "MarketPulse/internal/domain/repository"
	"MarketPulse/internal/service/metrics"
	"MarketPulse/internal/service/progress"
	"MarketPulse/internal/usecase"
	xhttp "MarketPulse/pkg/http"
	xlogger "MarketPulse/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	transportSSE = "sse"
	transportWS  = "ws"
)

// ProgressStreamer drains one job to a client.
type ProgressStreamer interface {
	Stream(ctx context.Context, id string, emit usecase.EmitFunc) (usecase.EndReason, error)
}

// RateLimiter admits requests per client key.
type RateLimiter interface {
	Allow(key string) bool
}

// StartAnalysisResponse is returned when a job is accepted. queue_id and
// job_id carry the same value.
type StartAnalysisResponse struct {
	QueueID string `json:"queue_id"`
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
}

// AnalysisEchoHandler serves job start, progress streams and reports.
type AnalysisEchoHandler struct {
	logger   *xlogger.Logger
	jobs     usecase.JobStarter
	streamer ProgressStreamer
	reports  domrepo.ReportStore
	limiter  RateLimiter
	upgrader websocket.Upgrader
}

func NewAnalysisEchoHandler(
	logger *xlogger.Logger,
	jobs usecase.JobStarter,
	streamer ProgressStreamer,
	reports domrepo.ReportStore,
	limiter RateLimiter,
) *AnalysisEchoHandler {
	if logger == nil {
		logger = xlogger.NewNop()
	}
	return &AnalysisEchoHandler{
		logger:   logger,
		jobs:     jobs,
		streamer: streamer,
		reports:  reports,
		limiter:  limiter,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (h *AnalysisEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)
	e.POST("/run_analysis", h.StartAnalysis)
	e.GET("/status/:id", h.Status)
	e.GET("/ws/status/:id", h.StatusWS)

	g := e.Group("/api")
	g.POST("/analysis", h.StartAnalysis)
	g.GET("/report/latest", h.LatestReport)
}

func (h *AnalysisEchoHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *AnalysisEchoHandler) StartAnalysis(c echo.Context) error {
	if h.limiter != nil && !h.limiter.Allow(c.RealIP()) {
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("too many analysis requests, slow down"))
	}

	id, err := h.jobs.Start(c.Request().Context(), usecase.SourceHTTP)
	if err != nil {
		h.logger.Error("analysis start failed", xlogger.Error(err))
		if errors.Is(err, progress.ErrRegistryFull) || errors.Is(err, usecase.ErrShuttingDown) {
			return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("analysis capacity exhausted, try again later").WithError(err))
		}
		return xhttp.AppErrorResponse(c, xhttp.InternalError("could not start analysis").WithError(err))
	}
	return c.JSON(http.StatusOK, StartAnalysisResponse{QueueID: id, JobID: id, Status: "scheduled"})
}

// Status streams job progress as server-sent events.
func (h *AnalysisEchoHandler) Status(c echo.Context) error {
	req := &models.JobStatusRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	metrics.StreamsActive.WithLabelValues(transportSSE).Inc()
	defer metrics.StreamsActive.WithLabelValues(transportSSE).Dec()

	reason, err := h.streamer.Stream(c.Request().Context(), req.ID, func(ev models.ProgressEvent) error {
		b, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("encode event: %w", err)
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", b); err != nil {
			return err
		}
		w.Flush()
		metrics.StreamEvents.WithLabelValues(transportSSE, string(ev.Kind)).Inc()
		return nil
	})
	h.finish(transportSSE, req.ID, reason, err)
	return nil
}

// LatestReport returns the last persisted report.
func (h *AnalysisEchoHandler) LatestReport(c echo.Context) error {
	report, err := h.reports.Latest(c.Request().Context())
	if errors.Is(err, domrepo.ErrReportNotFound) {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no analysis report yet"))
	}
	if err != nil {
		h.logger.Error("load latest report failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("could not load report").WithError(err))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
	return c.JSON(http.StatusOK, report)
}

func (h *AnalysisEchoHandler) finish(transport, id string, reason usecase.EndReason, err error) {
	metrics.StreamTerminations.WithLabelValues(transport, string(reason)).Inc()
	fields := []xlogger.Field{
		xlogger.String("transport", transport),
		xlogger.String("job_id", id),
		xlogger.String("reason", string(reason)),
	}
	if err != nil {
		h.logger.Debug("progress stream closed", append(fields, xlogger.Error(err))...)
		return
	}
	h.logger.Debug("progress stream closed", fields...)
}
