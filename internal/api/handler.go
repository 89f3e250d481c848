package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"rfp-service/internal/service"
	"rfp-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	rfpService *service.RFPService
}

// NewHandler creates a new HTTP handler
func NewHandler(rfpService *service.RFPService) *Handler {
	return &Handler{
		rfpService: rfpService,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/rfps", h.submitRFP)
		v1.GET("/rfps/:id", h.getRFP)
		v1.GET("/rfps/:id/bid", h.getBid)
		v1.GET("/rfps/:id/trace", h.getTrace)
		v1.POST("/bids/:id/decision", h.decideBid)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// submitRFP handles RFP submission. Processing normally happens in the
// background worker; pass ?sync=1 to run the pipeline inline and get the
// run outcome in the response.
func (h *Handler) submitRFP(c *gin.Context) {
	var req service.SubmitRFPRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	rfp, err := h.rfpService.SubmitRFP(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to submit RFP",
			"details": err.Error(),
		})
		return
	}

	if c.Query("sync") != "1" {
		c.JSON(http.StatusCreated, gin.H{"rfp": rfp})
		return
	}

	result, err := h.rfpService.ProcessRFP(c.Request.Context(), rfp.ID)
	if err != nil {
		if errors.Is(err, service.ErrRunInProgress) {
			c.JSON(http.StatusConflict, gin.H{
				"rfp":   rfp,
				"error": "A run is already in progress for this RFP",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"rfp":     rfp,
			"error":   "Pipeline run failed to start",
			"details": err.Error(),
		})
		return
	}

	resp := gin.H{
		"rfp":    rfp,
		"run_id": result.RunID,
		"state":  result.State,
	}
	if result.Bid != nil {
		resp["bid"] = result.Bid
	}
	if result.FailReason != "" {
		resp["reason"] = result.FailReason
	}
	c.JSON(http.StatusCreated, resp)
}

// getRFP handles get RFP by ID, including its latest run if one exists
func (h *Handler) getRFP(c *gin.Context) {
	rfp, run, err := h.rfpService.GetRFP(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "RFP not found",
			"details": err.Error(),
		})
		return
	}

	resp := gin.H{"rfp": rfp}
	if run != nil {
		resp["latest_run"] = run
	}
	c.JSON(http.StatusOK, resp)
}

// getBid handles get bid for an RFP
func (h *Handler) getBid(c *gin.Context) {
	b, err := h.rfpService.GetBid(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "No bid found for RFP",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"bid":     b,
		"summary": b.Summary(),
	})
}

// getTrace handles get trace for the RFP's latest run
func (h *Handler) getTrace(c *gin.Context) {
	events, err := h.rfpService.GetTrace(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "No run found for RFP",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"count":  len(events),
	})
}

// decisionRequest carries a bid approval decision
type decisionRequest struct {
	Decision string `json:"decision" binding:"required"`
}

// decideBid handles approving or rejecting a bid
func (h *Handler) decideBid(c *gin.Context) {
	var req decisionRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	b, err := h.rfpService.DecideBid(c.Request.Context(), c.Param("id"), req.Decision)
	if err != nil {
		if errors.Is(err, service.ErrBidNotPending) {
			c.JSON(http.StatusConflict, gin.H{
				"error":   "Bid already decided",
				"details": err.Error(),
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Failed to decide bid",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"bid": b})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
