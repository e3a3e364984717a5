package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"FuelPhases/internal/domain/models"
	"FuelPhases/internal/usecase"
	xhttp "FuelPhases/pkg/http"
	xlogger "FuelPhases/pkg/logger"
	"FuelPhases/pkg/queue"
)

// PhasesGetter is the read side used by the query endpoint.
type PhasesGetter interface {
	Get(ctx context.Context, q usecase.Query) (*models.MarketPhases, error)
}

// PrecomputeRunner runs a precompute synchronously when no queue is wired.
type PrecomputeRunner interface {
	Run(ctx context.Context, fuels []string) (*usecase.PrecomputeSummary, error)
}

// MarketPhasesEchoHandler serves market phase queries and precompute requests.
type MarketPhasesEchoHandler struct {
	logger     *xlogger.Logger
	phases     PhasesGetter
	jobs       queue.Publisher
	precompute PrecomputeRunner
}

var _ xhttp.Handler = (*MarketPhasesEchoHandler)(nil)

// NewMarketPhasesEchoHandler builds the handler. jobs may be nil, in which
// case precompute requests run inline through precompute.
func NewMarketPhasesEchoHandler(logger *xlogger.Logger, phases PhasesGetter, jobs queue.Publisher, precompute PrecomputeRunner) *MarketPhasesEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &MarketPhasesEchoHandler{logger: logger, phases: phases, jobs: jobs, precompute: precompute}
}

func (h *MarketPhasesEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/data")
	g.GET("/market-phases", h.MarketPhases)
	g.POST("/market-phases/precompute", h.Precompute)
}

func (h *MarketPhasesEchoHandler) MarketPhases(c echo.Context) error {
	req := &models.MarketPhasesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	q := usecase.Query{Fuel: req.Fuel, Region: req.Region}
	if req.From != "" {
		q.From, _ = xhttp.ParseDate(req.From)
	}
	if req.To != "" {
		q.To, _ = xhttp.ParseDate(req.To)
	}
	if !q.From.IsZero() && !q.To.IsZero() && q.To.Before(q.From) {
		return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_BAD_REQUEST", "to", "to must not be before from", http.StatusBadRequest))
	}

	res, err := h.phases.Get(c.Request().Context(), q)
	if err != nil {
		var inErr *models.InputError
		if errors.As(err, &inErr) {
			return xhttp.AppErrorResponse(c, xhttp.MalformedInputError(inErr.Field, inErr.Error()).WithError(err))
		}
		h.logger.Error("market phases usecase error",
			xlogger.String("fuel", q.Fuel),
			xlogger.String("region", q.Region),
			xlogger.Error(err),
		)
		return xhttp.AppErrorResponse(c, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, res)
}

func (h *MarketPhasesEchoHandler) Precompute(c echo.Context) error {
	req := &models.PrecomputeRequest{}
	if c.Request().ContentLength != 0 {
		if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
			return xhttp.BadRequestResponse(c, verr)
		}
	}
	fuels := req.Fuels
	if len(fuels) == 0 {
		fuels = models.Fuels()
	}

	if h.jobs != nil {
		id, err := h.jobs.Enqueue(c.Request().Context(), usecase.PrecomputeJobType, models.PrecomputeRequest{Fuels: fuels})
		if err != nil {
			h.logger.Error("enqueue precompute failed", xlogger.Strings("fuels", fuels), xlogger.Error(err))
			return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("precompute queue unavailable").WithError(err))
		}
		h.logger.Info("precompute enqueued", xlogger.String("job_id", id), xlogger.Strings("fuels", fuels))
		return xhttp.AcceptedResponse(c, xhttp.JobAccepted{JobID: id, Fuels: fuels})
	}

	if h.precompute == nil {
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("precompute is not configured"))
	}
	start := time.Now()
	summary, err := h.precompute.Run(c.Request().Context(), fuels)
	switch {
	case errors.Is(err, usecase.ErrPrecomputeRunning):
		return xhttp.AppErrorResponse(c, xhttp.ConflictError("precompute already running"))
	case err != nil:
		h.logger.Error("precompute failed", xlogger.Error(err), xlogger.Duration("elapsed", time.Since(start)))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, summary)
}
