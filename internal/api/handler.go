package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"storefront/internal/models"
	"storefront/internal/service"
	"storefront/internal/state"
	"storefront/internal/util"
)

// DefaultCartSession keys the persisted cart snapshot when the client sends
// no X-Session-ID header.
const DefaultCartSession = "default"

// CartArchive persists cart snapshots between requests so the cart survives
// a process restart. Implemented by redisclient.Client.
type CartArchive interface {
	SaveCart(ctx context.Context, sessionID string, lines []models.CartLine) error
}

// Handler contains HTTP handlers
type Handler struct {
	app     *state.App
	orders  *service.OrderService
	catalog *service.CatalogService
	carts   CartArchive
	logger  *zap.Logger
}

// NewHandler creates a new HTTP handler. carts may be nil; cart snapshots are
// then not persisted across restarts.
func NewHandler(app *state.App, orders *service.OrderService, catalog *service.CatalogService, carts CartArchive) *Handler {
	return &Handler{app: app, orders: orders, catalog: catalog, carts: carts, logger: util.Named("api")}
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
		v1.GET("/cart", h.getCart)
		v1.POST("/cart/items", h.addCartItem)
		v1.POST("/cart/items/quantity", h.changeCartQuantity)
		v1.DELETE("/cart/items", h.removeCartItem)
		v1.DELETE("/cart", h.clearCart)

		v1.POST("/checkout", h.checkout)

		v1.GET("/orders", h.listOrders)
		v1.GET("/orders/:id", h.getOrder)
		v1.POST("/orders/:id/status", h.advanceOrder)
		v1.GET("/my/orders", h.listUserOrders)

		v1.GET("/products", h.listProducts)
		v1.POST("/products", h.createProduct)
		v1.PATCH("/products/:id", h.updateProduct)
		v1.POST("/products/:id/pause", h.toggleProductPause)
		v1.DELETE("/products/:id", h.deleteProduct)

		v1.GET("/zones", h.listZones)
		v1.POST("/zones", h.createZone)
		v1.PATCH("/zones/:id", h.updateZone)
		v1.DELETE("/zones/:id", h.deleteZone)

		v1.GET("/settings", h.getSettings)
		v1.PATCH("/settings", h.updateSettings)

		v1.GET("/analytics", h.getAnalytics)
		v1.GET("/toasts", h.listToasts)
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

func cartSession(c *gin.Context) string {
	if sid := c.GetHeader("X-Session-ID"); sid != "" {
		return sid
	}
	return DefaultCartSession
}

// archiveCart writes the current cart snapshot after a mutation. Persistence
// failures are logged, never surfaced; the in-memory cart stays the truth.
func (h *Handler) archiveCart(c *gin.Context) {
	if h.carts == nil {
		return
	}
	if err := h.carts.SaveCart(c.Request.Context(), cartSession(c), h.app.Cart().Lines()); err != nil {
		h.logger.Warn("cart snapshot not persisted", zap.Error(err))
	}
}

func (h *Handler) getCart(c *gin.Context) {
	cart := h.app.Cart()
	c.JSON(http.StatusOK, gin.H{
		"items":      cart.Lines(),
		"subtotal":   cart.Subtotal(),
		"item_count": cart.ItemCount(),
	})
}

type cartItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Note      string `json:"note"`
}

func (h *Handler) addCartItem(c *gin.Context) {
	var req cartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	product, ok := h.app.ProductByID(req.ProductID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}

	if !h.app.AddToCart(product, req.Note) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Item not available"})
		return
	}
	h.archiveCart(c)
	c.JSON(http.StatusOK, gin.H{"item_count": h.app.Cart().ItemCount()})
}

type cartQuantityRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Note      string `json:"note"`
	Delta     int    `json:"delta"`
}

func (h *Handler) changeCartQuantity(c *gin.Context) {
	var req cartQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	h.app.Cart().ChangeQuantity(req.ProductID, req.Note, req.Delta)
	h.archiveCart(c)
	c.JSON(http.StatusOK, gin.H{"item_count": h.app.Cart().ItemCount()})
}

func (h *Handler) removeCartItem(c *gin.Context) {
	productID := c.Query("product_id")
	if productID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "product_id is required"})
		return
	}
	h.app.Cart().RemoveLine(productID, c.Query("note"))
	h.archiveCart(c)
	c.JSON(http.StatusOK, gin.H{"item_count": h.app.Cart().ItemCount()})
}

func (h *Handler) clearCart(c *gin.Context) {
	h.app.Cart().Clear()
	h.archiveCart(c)
	c.Status(http.StatusNoContent)
}

func (h *Handler) checkout(c *gin.Context) {
	var req service.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}
	req.SessionID = cartSession(c)

	result, err := h.orders.Checkout(c.Request.Context(), req)
	if err != nil {
		var verr *service.ValidationError
		switch {
		case errors.As(err, &verr):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": verr.Message, "reason": verr.Reason})
		case errors.Is(err, service.ErrDuplicateSubmission):
			c.JSON(http.StatusConflict, gin.H{"error": "Duplicate submission"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create order"})
		}
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *Handler) listOrders(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"orders": h.app.Orders()})
}

func (h *Handler) getOrder(c *gin.Context) {
	order, ok := h.app.OrderByID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}
	c.JSON(http.StatusOK, order)
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *Handler) advanceOrder(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	err := h.orders.Advance(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		var terr *service.TransitionError
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		case errors.As(err, &terr):
			c.JSON(http.StatusConflict, gin.H{"error": terr.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update order"})
		}
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listUserOrders(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"orders": h.app.UserOrders()})
}

func (h *Handler) listProducts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"products": h.app.Products()})
}

func (h *Handler) createProduct(c *gin.Context) {
	var p models.Product
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	id, err := h.catalog.CreateProduct(c.Request.Context(), &p)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create product"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

type productUpdateRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Price       *int64  `json:"price"`
	Category    *string `json:"category"`
	Image       *string `json:"image"`
	IsNew       *bool   `json:"is_new"`
	IsPaused    *bool   `json:"is_paused"`
}

func (h *Handler) updateProduct(c *gin.Context) {
	var req productUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	upd := models.ProductUpdate{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
		Image:       req.Image,
		IsNew:       req.IsNew,
		IsPaused:    req.IsPaused,
	}
	if err := h.catalog.UpdateProduct(c.Request.Context(), c.Param("id"), upd); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update product"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) toggleProductPause(c *gin.Context) {
	err := h.catalog.ToggleProductPause(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update product"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) deleteProduct(c *gin.Context) {
	if err := h.catalog.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete product"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listZones(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"zones": h.app.Zones()})
}

func (h *Handler) createZone(c *gin.Context) {
	var z models.DeliveryZone
	if err := c.ShouldBindJSON(&z); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	id, err := h.catalog.CreateZone(c.Request.Context(), &z)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create zone"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

type zoneUpdateRequest struct {
	Name    *string `json:"name"`
	Fee     *int64  `json:"fee"`
	TimeEst *string `json:"time_est"`
	Active  *bool   `json:"active"`
}

func (h *Handler) updateZone(c *gin.Context) {
	var req zoneUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	upd := models.ZoneUpdate{Name: req.Name, Fee: req.Fee, TimeEst: req.TimeEst, Active: req.Active}
	if err := h.catalog.UpdateZone(c.Request.Context(), c.Param("id"), upd); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update zone"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) deleteZone(c *gin.Context) {
	if err := h.catalog.DeleteZone(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete zone"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) getSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.app.Settings())
}

type settingsUpdateRequest struct {
	StoreName      *string         `json:"store_name"`
	IsOpen         *bool           `json:"is_open"`
	WhatsApp       *string         `json:"whatsapp"`
	Address        *string         `json:"address"`
	WeekdayHours   *string         `json:"weekday_hours"`
	WeekendHours   *string         `json:"weekend_hours"`
	PaymentMethods map[string]bool `json:"payment_methods"`
}

func (h *Handler) updateSettings(c *gin.Context) {
	var req settingsUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	upd := models.SettingsUpdate{
		StoreName:      req.StoreName,
		IsOpen:         req.IsOpen,
		WhatsApp:       req.WhatsApp,
		Address:        req.Address,
		WeekdayHours:   req.WeekdayHours,
		WeekendHours:   req.WeekendHours,
		PaymentMethods: req.PaymentMethods,
	}
	if err := h.catalog.SaveSettings(c.Request.Context(), upd); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save settings"})
		return
	}
	c.JSON(http.StatusOK, h.app.Settings())
}

func (h *Handler) getAnalytics(c *gin.Context) {
	c.JSON(http.StatusOK, h.app.Analytics())
}

func (h *Handler) listToasts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"toasts": h.app.Toasts().Active()})
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
