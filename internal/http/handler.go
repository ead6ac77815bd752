package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"challan-service/internal/config"
	"challan-service/internal/domain/challan"
	"challan-service/internal/service"
)

type Handler struct {
	capture  *service.CaptureService
	challans *service.ChallanService
	stats    *service.StatsAggregator
	config   *config.Config
	log      zerolog.Logger
}

func NewHandler(
	capture *service.CaptureService,
	challans *service.ChallanService,
	stats *service.StatsAggregator,
	cfg *config.Config,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		capture:  capture,
		challans: challans,
		stats:    stats,
		config:   cfg,
		log:      log,
	}
}

func (h *Handler) Register(r *gin.Engine, authMiddleware gin.HandlerFunc) {
	// Public endpoints
	public := r.Group("/api/v1")
	{
		public.GET("/challans", h.listChallans)
		public.GET("/challans/:id", h.getChallan)
		public.GET("/statistics", h.getStatistics)
		public.GET("/locations", h.listLocations)
	}

	// Administrative endpoints
	protected := r.Group("/api/v1")
	protected.Use(authMiddleware)
	{
		protected.POST("/sessions/start", h.startSession)
		protected.POST("/sessions/stop", h.stopSession)
		protected.POST("/capture", h.captureOnce)
		protected.POST("/challans", h.createChallan)
		protected.POST("/challans/:id/pay", h.payChallan)
	}
}

type startSessionRequest struct {
	Location string `json:"location" binding:"required"`
}

func (h *Handler) startSession(c *gin.Context) {
	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	params := challan.CameraParameters{
		FocalLength: h.config.Camera.FocalLength,
		SensorWidth: h.config.Camera.SensorWidth,
		Distance:    h.config.Camera.Distance,
	}

	sessionID, err := h.capture.StartSession(c.Request.Context(), req.Location, params)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"session_id": sessionID.String(),
		"location":   req.Location,
	})
}

func (h *Handler) stopSession(c *gin.Context) {
	if err := h.capture.StopSession(); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "stopped"})
}

func (h *Handler) captureOnce(c *gin.Context) {
	result, err := h.capture.CaptureOnce(c.Request.Context())
	if err != nil {
		if errors.Is(err, service.ErrNoDetection) {
			c.JSON(http.StatusOK, gin.H{"detected": false})
			return
		}
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"detected":  true,
		"detection": result,
	})
}

type createChallanRequest struct {
	VehicleNumber string `json:"vehicle_number" binding:"required"`
	VehicleType   string `json:"vehicle_type" binding:"required"`
	ViolationType string `json:"violation_type" binding:"required"`
	Location      string `json:"location" binding:"required"`
}

func (h *Handler) createChallan(c *gin.Context) {
	var req createChallanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	result, err := h.challans.CreateManual(c.Request.Context(), service.ManualChallanInput{
		VehicleNumber: req.VehicleNumber,
		VehicleType:   challan.VehicleType(req.VehicleType),
		ViolationType: challan.ViolationType(req.ViolationType),
		Location:      req.Location,
		UserID:        c.GetString("user_id"),
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse(result))
}

type payChallanRequest struct {
	Method string `json:"method" binding:"required"`
}

func (h *Handler) payChallan(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid challan id"))
		return
	}

	var req payChallanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	result, err := h.challans.Pay(c.Request.Context(), id, challan.PaymentMethod(strings.ToUpper(req.Method)))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(result))
}

func (h *Handler) getChallan(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid challan id"))
		return
	}

	result, err := h.challans.Get(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(result))
}

func (h *Handler) listChallans(c *gin.Context) {
	var status *challan.ChallanStatus
	if s := strings.ToUpper(strings.TrimSpace(c.Query("status"))); s != "" {
		st := challan.ChallanStatus(s)
		status = &st
	}

	var vehicleNumber *string
	if v := strings.TrimSpace(c.Query("vehicle_number")); v != "" {
		vehicleNumber = &v
	}

	var from, to *time.Time
	if f := strings.TrimSpace(c.Query("from")); f != "" {
		t, err := time.Parse(time.RFC3339, f)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("invalid from time format"))
			return
		}
		from = &t
	}
	if ts := strings.TrimSpace(c.Query("to")); ts != "" {
		t, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("invalid to time format"))
			return
		}
		to = &t
	}

	limit := 50
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	offset := 0
	if o := c.Query("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	challans, err := h.challans.Find(c.Request.Context(), status, vehicleNumber, from, to, limit, offset)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(challans))
}

func (h *Handler) getStatistics(c *gin.Context) {
	c.JSON(http.StatusOK, successResponse(h.stats.Current()))
}

func (h *Handler) listLocations(c *gin.Context) {
	c.JSON(http.StatusOK, successResponse(h.config.Locations))
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse(err.Error()))
	case errors.Is(err, service.ErrAlreadyPaid), errors.Is(err, service.ErrSessionActive):
		c.JSON(http.StatusConflict, errorResponse(err.Error()))
	case errors.Is(err, service.ErrBusy):
		c.JSON(http.StatusTooManyRequests, errorResponse(err.Error()))
	case errors.Is(err, service.ErrNoSession):
		c.JSON(http.StatusPreconditionFailed, errorResponse(err.Error()))
	case errors.Is(err, service.ErrCameraUnavailable):
		c.JSON(http.StatusServiceUnavailable, errorResponse(err.Error()))
	default:
		h.log.Error().Err(err).Msg("handler error")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
	}
}

func successResponse(data interface{}) gin.H {
	return gin.H{
		"data": data,
	}
}

func errorResponse(message string) gin.H {
	return gin.H{
		"error": message,
	}
}
