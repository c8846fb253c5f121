package api

import (
	"errors"
	"time"

	"AgriPulse/internal/domain/models"
	domrepo "AgriPulse/internal/domain/repository"
	"AgriPulse/internal/usecase"
	xhttp "AgriPulse/pkg/http"
	xlogger "AgriPulse/pkg/logger"
	"AgriPulse/pkg/util"

	"github.com/labstack/echo/v4"
)

// MarketHandler exposes the recommendation pipeline and catalog over HTTP.
type MarketHandler struct {
	logger  *xlogger.Logger
	orch    *usecase.Orchestrator
	catalog domrepo.Catalog
	ticks   domrepo.TickStore
	health  HealthChecker
}

// HealthChecker reports readiness of the ingestion side.
type HealthChecker interface {
	IsConnected() bool
}

func NewMarketHandler(logger *xlogger.Logger, orch *usecase.Orchestrator, catalog domrepo.Catalog, ticks domrepo.TickStore, health HealthChecker) *MarketHandler {
	return &MarketHandler{logger: logger, orch: orch, catalog: catalog, ticks: ticks, health: health}
}

func (h *MarketHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/recommendations/generate", h.GeneratePricing)
	g.POST("/forecasts/generate", h.GenerateForecast)
	g.POST("/recommendations/:id/apply", h.ApplyRecommendation)
	g.GET("/recommendations", h.ListRecommendations)
	g.GET("/recommendations/:id", h.GetRecommendation)
	g.GET("/forecasts", h.ListForecasts)
	g.GET("/products", h.ListProducts)
	g.GET("/products/:id", h.GetProduct)
	g.POST("/products", h.UpsertProduct)
	g.GET("/products/:id/ticks", h.ListTicks)
	g.GET("/cities", h.ListCities)
	e.GET("/healthz", h.Health)
}

func (h *MarketHandler) GeneratePricing(c echo.Context) error {
	req := &models.GeneratePricingRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	refs := make([]models.ProductReference, len(req.Products))
	for i, p := range req.Products {
		refs[i] = p.Reference()
	}

	res, err := h.orch.GeneratePricing(c.Request().Context(), refs)
	if err != nil {
		return h.pipelineError(c, "pricing", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *MarketHandler) GenerateForecast(c echo.Context) error {
	req := &models.GenerateForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	refs := make([]models.ProductReference, len(req.Products))
	for i, p := range req.Products {
		refs[i] = p.Reference()
	}

	res, err := h.orch.GenerateForecast(c.Request().Context(), refs, req.Days, req.Cities)
	if err != nil {
		return h.pipelineError(c, "forecast", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *MarketHandler) ApplyRecommendation(c echo.Context) error {
	id := c.Param("id")
	rec, err := h.orch.Apply(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, domrepo.ErrNotFound) {
			return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("recommendation %s not found", id))
		}
		h.logger.Error("apply recommendation failed", xlogger.String("id", id), xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	return xhttp.SuccessResponse(c, rec)
}

func (h *MarketHandler) GetRecommendation(c echo.Context) error {
	id := c.Param("id")
	rec, err := h.orch.GetRecommendation(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, domrepo.ErrNotFound) {
			return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("recommendation %s not found", id))
		}
		h.logger.Error("get recommendation failed", xlogger.String("id", id), xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	return xhttp.SuccessResponse(c, rec)
}

func (h *MarketHandler) ListRecommendations(c echo.Context) error {
	req := &models.ListRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rows, total, err := h.orch.ListRecommendations(c.Request().Context(), req.Limit, req.Offset)
	if err != nil {
		h.logger.Error("list recommendations failed", xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	return xhttp.ListResponse(c, rows, total)
}

func (h *MarketHandler) ListForecasts(c echo.Context) error {
	req := &models.ListForecastsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	filter := domrepo.ForecastFilter{
		ProductID: req.ProductID,
		City:      req.City,
		Limit:     req.Limit,
	}
	if t, ok := xhttp.ParseTime(req.From); ok {
		filter.From = t
	}
	if t, ok := xhttp.ParseTime(req.To); ok {
		filter.To = t
	}
	if !filter.From.IsZero() && !filter.To.IsZero() {
		filter.From, filter.To = util.AlignToDay(filter.From, filter.To)
	}
	rows, err := h.orch.ListForecasts(c.Request().Context(), filter)
	if err != nil {
		h.logger.Error("list forecasts failed", xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *MarketHandler) ListProducts(c echo.Context) error {
	req := &models.ListRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rows, total, err := h.catalog.ListProducts(c.Request().Context(), req.Limit, req.Offset)
	if err != nil {
		h.logger.Error("list products failed", xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	return xhttp.ListResponse(c, rows, total)
}

func (h *MarketHandler) GetProduct(c echo.Context) error {
	id := c.Param("id")
	p, err := h.catalog.GetProduct(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, domrepo.ErrNotFound) {
			return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("product %s not found", id))
		}
		h.logger.Error("get product failed", xlogger.String("id", id), xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	return xhttp.SuccessResponse(c, p)
}

func (h *MarketHandler) UpsertProduct(c echo.Context) error {
	req := &models.UpsertProductRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	p := req.Product()
	if err := h.catalog.UpsertProduct(c.Request().Context(), p); err != nil {
		h.logger.Error("upsert product failed", xlogger.String("id", p.ID), xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	return xhttp.CreatedResponse(c, p)
}

func (h *MarketHandler) ListTicks(c echo.Context) error {
	id := c.Param("id")
	now := time.Now()
	from := xhttp.ParseTimeDefault(c.QueryParam("from"), now.Add(-24*time.Hour))
	to := xhttp.ParseTimeDefault(c.QueryParam("to"), now)
	limit := xhttp.ParseIntDefault(c.QueryParam("limit"), 100)

	rows, err := h.ticks.Query(c.Request().Context(), id, from, to, limit)
	if err != nil {
		h.logger.Error("list ticks failed", xlogger.String("id", id), xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *MarketHandler) ListCities(c echo.Context) error {
	req := &models.ListRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rows, total, err := h.catalog.ListCities(c.Request().Context(), req.Limit, req.Offset)
	if err != nil {
		h.logger.Error("list cities failed", xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	return xhttp.ListResponse(c, rows, total)
}

func (h *MarketHandler) Health(c echo.Context) error {
	status := map[string]interface{}{
		"status": "ok",
	}
	if err := h.catalog.Health(c.Request().Context()); err != nil {
		status["catalog"] = "down"
		status["status"] = "degraded"
	} else {
		status["catalog"] = "up"
	}
	if h.ticks != nil {
		if err := h.ticks.Health(c.Request().Context()); err != nil {
			status["ticks"] = "down"
			status["status"] = "degraded"
		} else {
			status["ticks"] = "up"
		}
	}
	if h.health != nil {
		status["feed_connected"] = h.health.IsConnected()
	}
	return xhttp.SuccessResponse(c, status)
}

// pipelineError maps pipeline errors onto transport errors.
func (h *MarketHandler) pipelineError(c echo.Context, op string, err error) error {
	switch {
	case errors.Is(err, domrepo.ErrEmptyBatch):
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("no resolvable products in request"))
	case errors.Is(err, domrepo.ErrCatalogUnavailable):
		h.logger.Error(op+" catalog unavailable", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("product catalog unavailable"))
	case errors.Is(err, usecase.ErrPredictorFailed):
		h.logger.Error(op+" predictor failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalErrorf("demand predictor failed: %v", err))
	default:
		h.logger.Error(op+" failed", xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
}
