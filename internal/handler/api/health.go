package api

import (
	"github.com/labstack/echo/v4"

	xhttp "ThetaHarvest/pkg/http"
	xlogger "ThetaHarvest/pkg/logger"
)

type healthStatus struct {
	Status     string `json:"status"`
	Store      string `json:"store"`
	DataPoints int64  `json:"data_points"`
	ScanStatus string `json:"scan_status"`
}

func (h *ScanHandler) Health(c echo.Context) error {
	ctx := c.Request().Context()
	status := healthStatus{Status: "ok", Store: "ok", ScanStatus: h.orch.Progress().Status}

	if err := h.store.Health(ctx); err != nil {
		h.logger.Error("store health check failed", xlogger.Error(err))
		status.Status = "degraded"
		status.Store = err.Error()
		return xhttp.AppErrorResponse(c,
			xhttp.ServiceUnavailableError("store unavailable").WithError(err))
	}
	if n, err := h.store.PointCount(ctx); err == nil {
		status.DataPoints = n
	}
	return xhttp.SuccessResponse(c, status)
}
