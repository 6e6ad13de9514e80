package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"shop-service/internal/apperr"
	"shop-service/internal/domain"
	"shop-service/internal/services"
)

type Handler struct {
	products        *services.ProductService
	categories      *services.CategoryService
	recommendations *services.RecommendationService
	orders          *services.OrderService
	payments        *services.PaymentService
}

func NewHandler(
	products *services.ProductService,
	categories *services.CategoryService,
	recommendations *services.RecommendationService,
	orders *services.OrderService,
	payments *services.PaymentService,
) *Handler {
	return &Handler{
		products:        products,
		categories:      categories,
		recommendations: recommendations,
		orders:          orders,
		payments:        payments,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.POST("/products", h.CreateProduct)
	r.GET("/products", h.ListProducts)
	r.GET("/products/:id", h.GetProduct)
	r.PUT("/products/:id", h.UpdateProduct)
	r.GET("/products/:id/recommendations", h.GetRecommendations)

	r.POST("/categories", h.CreateCategory)

	r.POST("/orders", h.CreateOrder)
	r.GET("/orders", h.ListOrders)
	r.GET("/orders/:id", h.GetOrder)

	r.POST("/payments/initiate", h.InitiatePayment)
	r.POST("/payments/execute", h.ExecutePayment)
	r.GET("/payments/status/:provider/:transactionId", h.QueryPaymentStatus)

	// Raw body is read before any binding: signature verification needs the
	// exact bytes the gateway signed.
	r.POST("/webhooks/:provider", h.HandleWebhook)
}

// userID comes from the authenticating gateway upstream of this service.
func userID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.GetHeader("X-User-ID"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

func respondError(c *gin.Context, err error) {
	var e *apperr.Error
	if !errors.As(err, &e) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	status := http.StatusInternalServerError
	switch e.Kind {
	case apperr.KindValidation:
		status = http.StatusBadRequest
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindForbidden:
		status = http.StatusForbidden
	case apperr.KindConflict:
		status = http.StatusConflict
	case apperr.KindProvider:
		status = http.StatusBadGateway
	case apperr.KindSignature:
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"error": e.Msg, "kind": e.Kind.String()})
}

// products

func (h *Handler) CreateProduct(c *gin.Context) {
	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := h.products.CreateProduct(c.Request.Context(), services.ProductInput{
		SKU:         req.SKU,
		Name:        req.Name,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		Stock:       req.Stock,
		CategoryID:  req.CategoryID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *Handler) ListProducts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	out, err := h.products.ListProducts(c.Request.Context(), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) GetProduct(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}
	p, err := h.products.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) UpdateProduct(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}
	var req UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	update := services.ProductUpdate{
		SKU:         req.SKU,
		Name:        req.Name,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		CategoryID:  req.CategoryID,
	}
	if req.Status != nil {
		status := domain.ProductStatus(*req.Status)
		if status != domain.ProductActive && status != domain.ProductInactive {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
		update.Status = &status
	}
	p, err := h.products.UpdateProduct(c.Request.Context(), id, update)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) GetRecommendations(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}
	recs, err := h.recommendations.ForProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if recs == nil {
		recs = []domain.Product{}
	}
	c.JSON(http.StatusOK, recs)
}

// categories

func (h *Handler) CreateCategory(c *gin.Context) {
	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cat, err := h.categories.CreateCategory(c.Request.Context(), req.Name, req.ParentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cat)
}

// orders

func (h *Handler) CreateOrder(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user identity"})
		return
	}
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	items := make([]services.ItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, services.ItemInput{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	order, err := h.orders.CreateOrder(c.Request.Context(), uid, items)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *Handler) ListOrders(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user identity"})
		return
	}
	orders, err := h.orders.ListOrders(c.Request.Context(), uid)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *Handler) GetOrder(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user identity"})
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}
	order, err := h.orders.GetOrder(c.Request.Context(), uid, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// payments

func (h *Handler) InitiatePayment(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user identity"})
		return
	}
	var req InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := h.payments.InitializePayment(c.Request.Context(), uid, req.OrderID, req.Provider)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *Handler) ExecutePayment(c *gin.Context) {
	var req ExecutePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	payment, err := h.payments.ExecutePayment(c.Request.Context(), req.Provider, req.PaymentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"paymentId":     payment.ID,
		"orderId":       payment.OrderID,
		"transactionId": payment.TransactionID,
		"status":        payment.Status,
	})
}

func (h *Handler) QueryPaymentStatus(c *gin.Context) {
	result, err := h.payments.QueryPaymentStatus(c.Request.Context(), c.Param("provider"), c.Param("transactionId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) HandleWebhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}
	signature := c.GetHeader("Stripe-Signature")
	if signature == "" {
		signature = c.GetHeader("X-Signature")
	}
	ack, err := h.payments.ProcessWebhook(c.Request.Context(), c.Param("provider"), signature, body)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ack)
}
