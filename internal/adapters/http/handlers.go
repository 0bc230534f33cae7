package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"uptimeboard/internal/core/domain"
	coreerrors "uptimeboard/internal/core/errors"
	"uptimeboard/internal/core/ports"
	"uptimeboard/internal/ingest"
	"uptimeboard/pkg/utils"
)

type Handler struct {
	svc    ports.UptimeService
	submit ingest.Submitter
	logger *zap.Logger
	now    func() time.Time
}

// NewHandler constructs a handler that reads from svc and queues inbound
// heartbeats on submit.
func NewHandler(svc ports.UptimeService, submit ingest.Submitter, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, submit: submit, logger: logger, now: time.Now}
}

// PostHeartbeat godoc
// @Summary Register a heartbeat from a device
// @Description Queue a heartbeat for the device. A missing sent_at is stamped with the server time.
// @Tags devices
// @Accept json
// @Produce json
// @Param device_id path string true "Device ID"
// @Param request body HeartbeatRequest false "Heartbeat payload"
// @Success 204 "no content"
// @Failure 400 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /api/v1/devices/{device_id}/heartbeat [post]
func (h *Handler) PostHeartbeat(c *gin.Context) {
	deviceID := c.Param("device_id")

	if !utils.IsId(deviceID) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Msg: "invalid device ID"})
		return
	}

	var req HeartbeatRequest
	if body := c.Request.Body; body != nil && body != http.NoBody {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Msg: "invalid payload: " + err.Error(),
			})
			return
		}
	}

	sentAt := h.now().UTC()
	if req.SentAt != nil {
		sentAt = *req.SentAt
	}

	hb, err := domain.NewHeartbeat(deviceID, sentAt)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if err := h.submit.TrySubmit(hb); err != nil {
		h.writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListDevices godoc
// @Summary Uptime table
// @Description One row per known device with its last heartbeat and uptime over the current window.
// @Tags devices
// @Produce json
// @Success 200 {object} DevicesResponse
// @Router /api/v1/devices [get]
func (h *Handler) ListDevices(c *gin.Context) {
	c.JSON(http.StatusOK, h.buildDevices())
}

// GetUptime godoc
// @Summary Uptime of one device
// @Description Devices that never reported score 0.
// @Tags devices
// @Produce json
// @Param device_id path string true "Device ID"
// @Success 200 {object} UptimeResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/devices/{device_id}/uptime [get]
func (h *Handler) GetUptime(c *gin.Context) {
	deviceID := c.Param("device_id")

	if !utils.IsId(deviceID) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Msg: "invalid device ID"})
		return
	}

	row := domain.ReportRow{
		DeviceID:      deviceID,
		UptimePercent: h.svc.UptimePercent(deviceID, h.now()),
	}
	c.JSON(http.StatusOK, UptimeResponse{
		DeviceID: deviceID,
		Uptime:   row.UptimePercent,
		Status:   row.Status(),
	})
}

// GetHeartbeats godoc
// @Summary Heartbeats of one device in a time range
// @Description Both bounds are inclusive RFC3339 instants. to defaults to now, from to one window before to.
// @Tags devices
// @Produce json
// @Param device_id path string true "Device ID"
// @Param from query string false "range start (RFC3339)"
// @Param to query string false "range end (RFC3339)"
// @Success 200 {object} HeartbeatsResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/devices/{device_id}/heartbeats [get]
func (h *Handler) GetHeartbeats(c *gin.Context) {
	deviceID := c.Param("device_id")

	if !utils.IsId(deviceID) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Msg: "invalid device ID"})
		return
	}

	to := h.now().UTC()
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Msg: "invalid to: " + err.Error()})
			return
		}
		to = t
	}
	from := to.Add(-h.svc.Params().Window)
	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Msg: "invalid from: " + err.Error()})
			return
		}
		from = t
	}

	hbs, err := h.svc.DeviceHeartbeats(deviceID, from, to)
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := HeartbeatsResponse{
		DeviceID:   deviceID,
		From:       from,
		To:         to,
		Heartbeats: make([]time.Time, 0, len(hbs)),
	}
	for _, hb := range hbs {
		resp.Heartbeats = append(resp.Heartbeats, hb.Timestamp)
	}
	c.JSON(http.StatusOK, resp)
}

// GetConfig godoc
// @Summary Current uptime parameters
// @Tags config
// @Produce json
// @Success 200 {object} ConfigResponse
// @Router /api/v1/config [get]
func (h *Handler) GetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, configResponse(h.svc.Params()))
}

// PutConfig godoc
// @Summary Replace the uptime parameters
// @Description Takes effect for every computation after the call returns.
// @Tags config
// @Accept json
// @Produce json
// @Param request body ConfigRequest true "interval and window in seconds"
// @Success 200 {object} ConfigResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/config [put]
func (h *Handler) PutConfig(c *gin.Context) {
	var req ConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Msg: "invalid payload: " + err.Error(),
		})
		return
	}

	interval := secondsToDuration(req.IntervalSeconds)
	window := secondsToDuration(req.WindowSeconds)
	if err := h.svc.Configure(interval, window); err != nil {
		h.writeError(c, err)
		return
	}

	h.logger.Info("uptime parameters changed",
		zap.Duration("interval", interval), zap.Duration("window", window))
	c.JSON(http.StatusOK, configResponse(h.svc.Params()))
}

// Health godoc
// @Summary Liveness probe
// @Tags system
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Devices: h.svc.DeviceCount(),
	})
}

func (h *Handler) buildDevices() DevicesResponse {
	now := h.now().UTC()
	params := h.svc.Params()
	return DevicesResponse{
		GeneratedAt:     now,
		IntervalSeconds: params.Interval.Seconds(),
		WindowSeconds:   params.Window.Seconds(),
		Devices:         toRows(h.svc.Snapshot(now)),
	}
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, coreerrors.ErrInvalidParameter), errors.Is(err, coreerrors.ErrDeviceMismatch):
		c.JSON(http.StatusBadRequest, ErrorResponse{Msg: err.Error()})
	case errors.Is(err, coreerrors.ErrDeviceNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Msg: "device not found"})
	case errors.Is(err, ingest.ErrQueueFull):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Msg: "ingest queue full, retry later"})
	default:
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Msg: "internal error"})
	}
}

func toRows(rows []domain.ReportRow) []DeviceRow {
	out := make([]DeviceRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, DeviceRow{
			DeviceID: r.DeviceID,
			LastSeen: r.LastSeen.UTC(),
			Uptime:   r.UptimePercent,
			Status:   r.Status(),
		})
	}
	return out
}

func configResponse(w domain.Window) ConfigResponse {
	return ConfigResponse{
		IntervalSeconds: w.Interval.Seconds(),
		WindowSeconds:   w.Window.Seconds(),
	}
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func attachment(name string) string {
	return fmt.Sprintf("attachment; filename=%q", name)
}
