package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"ThetaHarvest/internal/domain/repository"
	"ThetaHarvest/internal/usecase"
	xhttp "ThetaHarvest/pkg/http"
	xlogger "ThetaHarvest/pkg/logger"
)

// ScanHandler exposes the scan pipeline over HTTP.
type ScanHandler struct {
	logger    *xlogger.Logger
	orch      *usecase.ScanOrchestrator
	refresher *usecase.EarningsRefresher
	store     repository.Store
}

func NewScanHandler(logger *xlogger.Logger, orch *usecase.ScanOrchestrator, refresher *usecase.EarningsRefresher, store repository.Store) *ScanHandler {
	return &ScanHandler{logger: logger, orch: orch, refresher: refresher, store: store}
}

func (h *ScanHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/scan", h.RunScan)
	g.GET("/scan/latest", h.LatestScan)
	g.GET("/scan/status", h.ScanStatus)
	g.GET("/scan/history", h.ScanHistory)
	g.GET("/ticker/:ticker/history", h.TickerHistory)
	g.GET("/universe", h.Universe)
	g.GET("/health", h.Health)
	g.POST("/earnings/refresh", h.RefreshEarnings)
	g.GET("/earnings/remaining", h.EarningsRemaining)
}

type runScanRequest struct {
	Force bool `query:"force" json:"force"`
}

func (h *ScanHandler) RunScan(c echo.Context) error {
	req := &runScanRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.orch.RunScan(c.Request().Context(), req.Force)
	if err != nil {
		if errors.Is(err, usecase.ErrScanRunning) {
			return xhttp.AppErrorResponse(c, xhttp.ConflictError("a scan is already running"))
		}
		h.logger.Error("scan failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("scan failed").WithError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ScanHandler) LatestScan(c echo.Context) error {
	res, err := h.orch.Latest(c.Request().Context())
	if err != nil {
		h.logger.Error("latest scan lookup failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	if res == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no scan has completed yet"))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ScanHandler) ScanStatus(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.orch.Progress())
}

type scanHistoryRequest struct {
	Limit int `query:"limit" default:"30" validate:"gte=1,lte=100"`
}

func (h *ScanHandler) ScanHistory(c echo.Context) error {
	req := &scanHistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	rows, err := h.orch.History(c.Request().Context(), req.Limit)
	if err != nil {
		h.logger.Error("scan history lookup failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

type tickerHistoryRequest struct {
	Ticker string `param:"ticker" validate:"required"`
	Days   int    `query:"days" default:"120" validate:"gte=1,lte=730"`
}

func (h *ScanHandler) TickerHistory(c echo.Context) error {
	req := &tickerHistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ticker := strings.ToUpper(req.Ticker)

	rows, err := h.orch.TickerHistory(c.Request().Context(), ticker, req.Days)
	if err != nil {
		h.logger.Error("ticker history lookup failed",
			xlogger.String("ticker", ticker), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	if len(rows) == 0 {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no history for %s", ticker))
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *ScanHandler) Universe(c echo.Context) error {
	uni := h.orch.Universe()
	return xhttp.ListResponse(c, uni, int64(len(uni)))
}

func (h *ScanHandler) RefreshEarnings(c echo.Context) error {
	remaining, err := h.refresher.Refresh(c.Request().Context())
	if err != nil {
		if errors.Is(err, usecase.ErrRefreshQuotaExhausted) {
			return xhttp.AppErrorResponse(c,
				xhttp.NewAppError("ERR_QUOTA", "earnings refresh quota exhausted for today", http.StatusTooManyRequests))
		}
		h.logger.Error("earnings refresh failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, map[string]int{"remaining_today": remaining})
}

func (h *ScanHandler) EarningsRemaining(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]int{
		"remaining_today": h.refresher.Remaining(c.Request().Context()),
	})
}
