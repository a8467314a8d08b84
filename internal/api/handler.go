package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"stock-assistant/internal/models"
	"stock-assistant/internal/service"
	"stock-assistant/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Handler contains HTTP handlers
type Handler struct {
	reconcile *service.ReconcileService
	transfer  *service.TransferService
	payment   *service.PaymentService
	purchase  *service.PurchaseService
	stock     *service.StockService
	finance   *service.FinanceService
	logger    *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	reconcile *service.ReconcileService,
	transfer *service.TransferService,
	payment *service.PaymentService,
	purchase *service.PurchaseService,
	stock *service.StockService,
	finance *service.FinanceService,
) *Handler {
	return &Handler{
		reconcile: reconcile,
		transfer:  transfer,
		payment:   payment,
		purchase:  purchase,
		stock:     stock,
		finance:   finance,
		logger:    util.GetLogger(),
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
		v1.POST("/orders/completed", h.orderCompleted)
		v1.POST("/chat/command", h.chatCommand)
		v1.POST("/chat/message", h.chatMessage)
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

// OrderCompletedRequest is the shop system's completion webhook payload.
type OrderCompletedRequest struct {
	OrderNumber string `json:"order_number" binding:"required"`
}

// orderCompleted handles the shop webhook; a repeat delivery for a processed
// order is acknowledged, not an error.
func (h *Handler) orderCompleted(c *gin.Context) {
	var req OrderCompletedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	err := h.reconcile.PromptOrderCompleted(c.Request.Context(), req.OrderNumber)
	if errors.Is(err, models.ErrAlreadyProcessed) {
		c.JSON(http.StatusOK, gin.H{"status": "already_processed"})
		return
	}
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "prompted"})
}

// ChatCommandRequest is a decoded button press relayed by the chat adapter.
type ChatCommandRequest struct {
	UserID int64  `json:"user_id" binding:"required"`
	ChatID int64  `json:"chat_id" binding:"required"`
	Token  string `json:"token" binding:"required"`
}

// chatCommand handles a button press: the token is decoded exactly once here
// and routed to the owning service.
func (h *Handler) chatCommand(c *gin.Context) {
	var req ChatCommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	replies, err := h.dispatch(c, req.UserID, req.ChatID, req.Token)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"replies": replies})
}

// ChatMessageRequest is a free-text message relayed by the chat adapter.
type ChatMessageRequest struct {
	UserID int64  `json:"user_id" binding:"required"`
	ChatID int64  `json:"chat_id" binding:"required"`
	Text   string `json:"text" binding:"required"`
}

// chatMessage routes free text to whichever flow is suspended on input for
// this user. Text with no waiting flow gets a neutral hint.
func (h *Handler) chatMessage(c *gin.Context) {
	var req ChatMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}
	ctx := c.Request.Context()

	reply, handled, err := h.reconcile.HandleText(ctx, req.UserID, req.Text)
	if !handled && err == nil {
		reply, handled, err = h.transfer.HandleText(ctx, req.UserID, req.Text)
	}
	if !handled && err == nil {
		reply, handled, err = h.payment.HandleText(ctx, req.UserID, req.Text)
	}
	if !handled && err == nil {
		// purchase sessions are keyed by the admin chat
		reply, handled, err = h.purchase.HandleText(ctx, req.ChatID, req.Text)
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !handled {
		c.JSON(http.StatusOK, gin.H{"replies": []service.Reply{
			{Text: "Use the menu buttons to get started."},
		}})
		return
	}

	c.JSON(http.StatusOK, gin.H{"replies": []service.Reply{*reply}})
}

// respondError maps domain sentinels onto HTTP statuses. Anything unmapped
// is an internal error and the details stay out of the response.
func (h *Handler) respondError(c *gin.Context, err error) {
	var status int
	var reason string

	switch {
	case errors.Is(err, models.ErrValidation):
		status, reason = http.StatusBadRequest, "validation"
	case errors.Is(err, models.ErrUnauthorized):
		status, reason = http.StatusForbidden, "unauthorized"
	case errors.Is(err, models.ErrNotFound):
		status, reason = http.StatusNotFound, "not_found"
	case errors.Is(err, models.ErrAlreadyProcessed):
		status, reason = http.StatusConflict, "already_processed"
	case errors.Is(err, models.ErrSessionExpired):
		status, reason = http.StatusGone, "session_expired"
	default:
		h.logger.Error("Request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		return
	}

	util.CommandsRejectedTotal.WithLabelValues(reason).Inc()
	c.JSON(status, gin.H{"error": reason, "details": err.Error()})
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
