// Package api exposes the market status snapshot over HTTP.
package api

import (
	"errors"
	"time"

	"github.com/labstack/echo/v4"

	"spotwatch/internal/domain/models"
	"spotwatch/internal/engine"
	"spotwatch/internal/repository"
	"spotwatch/internal/service/ratelimit"
	"spotwatch/internal/usecase"
	xhttp "spotwatch/pkg/http"
	xlogger "spotwatch/pkg/logger"
)

// Per-IP budget for the quote endpoint.
const (
	quoteBurst  = 10
	quoteRefill = 5 // tokens per second
)

// StatusHandler serves the status snapshot, deltas, references, quotes and
// reading history. All reads come from the shared snapshot; no handler
// touches the engine or the upstream feed.
type StatusHandler struct {
	logger  *xlogger.Logger
	snap    *engine.Snapshot
	quoter  *usecase.QuoteCalculator
	history *repository.ClickHouseReadingStorage // nil when storage is disabled
	limiter *ratelimit.Limiter
	symbol  string
}

func NewStatusHandler(logger *xlogger.Logger, snap *engine.Snapshot, quoter *usecase.QuoteCalculator, history *repository.ClickHouseReadingStorage, symbol string) *StatusHandler {
	return &StatusHandler{
		logger:  logger,
		snap:    snap,
		quoter:  quoter,
		history: history,
		limiter: ratelimit.New(),
		symbol:  symbol,
	}
}

func (h *StatusHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	g := e.Group("/api")
	g.GET("/status", h.Status)
	g.GET("/deltas", h.Deltas)
	g.GET("/reference", h.Reference)
	g.GET("/quote", h.Quote)
	g.GET("/history", h.History)
}

type statusResponse struct {
	Symbol  string               `json:"symbol"`
	Status  models.MarketStatus  `json:"status"`
	Price   *float64             `json:"price,omitempty"`
	AsOf    *time.Time           `json:"as_of,omitempty"`
	Window  models.TradingWindow `json:"window"`
}

func (h *StatusHandler) Status(c echo.Context) error {
	resp := statusResponse{
		Symbol: h.symbol,
		Status: h.snap.Status(),
		Window: h.snap.Window(),
	}
	if r, ok := h.snap.LastReading(); ok {
		resp.Price = &r.Price
		resp.AsOf = &r.ObservedAt
	}
	return xhttp.SuccessResponse(c, resp)
}

type deltasResponse struct {
	Symbol string              `json:"symbol"`
	Status models.MarketStatus `json:"status"`
	Deltas models.DeltaSet     `json:"deltas"`
	AsOf   *time.Time          `json:"as_of,omitempty"`
}

func (h *StatusHandler) Deltas(c echo.Context) error {
	resp := deltasResponse{
		Symbol: h.symbol,
		Status: h.snap.Status(),
		Deltas: h.snap.Deltas(),
	}
	if r, ok := h.snap.LastReading(); ok {
		resp.AsOf = &r.ObservedAt
	}
	return xhttp.SuccessResponse(c, resp)
}

type referenceResponse struct {
	Symbol      string                       `json:"symbol"`
	References  map[int]models.ReferenceClose `json:"references"`
	MedianClose *float64                     `json:"median_close,omitempty"`
}

func (h *StatusHandler) Reference(c echo.Context) error {
	resp := referenceResponse{
		Symbol:     h.symbol,
		References: h.snap.References(),
	}
	if m, ok := h.snap.MedianClose(); ok {
		resp.MedianClose = &m
	}
	return xhttp.SuccessResponse(c, resp)
}

func (h *StatusHandler) Quote(c echo.Context) error {
	if !h.limiter.Allow(c.RealIP(), quoteBurst, quoteRefill) {
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("quote rate limit exceeded"))
	}

	req := &models.QuoteRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	quote, err := h.quoter.Quote(req.Quantity)
	if err != nil {
		if errors.Is(err, usecase.ErrReferenceUnavailable) {
			return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("reference price not resolved yet"))
		}
		h.logger.Error("quote failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, quote)
}

func (h *StatusHandler) History(c echo.Context) error {
	if h.history == nil {
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("reading history storage disabled"))
	}

	to := xhttp.ParseTimeDefault(c.QueryParam("to"), time.Now())
	from := xhttp.ParseTimeDefault(c.QueryParam("from"), to.Add(-24*time.Hour))
	limit := xhttp.ParseIntDefault(c.QueryParam("limit"), 100)
	if limit < 1 || limit > 1000 {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("limit must be within 1..1000"))
	}

	readings, err := h.history.Query(c.Request().Context(), h.symbol, from, to, limit)
	if err != nil {
		h.logger.Error("history query failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("history query failed"))
	}
	return xhttp.ListResponse(c, readings, int64(len(readings)))
}

func (h *StatusHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}
