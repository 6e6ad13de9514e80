package http

type OrderItemRequest struct {
	ProductID uint64 `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

type CreateOrderRequest struct {
	Items []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

type CreateProductRequest struct {
	SKU         string  `json:"sku" binding:"required"`
	Name        string  `json:"name" binding:"required"`
	Description string  `json:"description"`
	PriceCents  int64   `json:"priceCents" binding:"min=0"`
	Stock       int     `json:"stock" binding:"min=0"`
	CategoryID  *uint64 `json:"categoryId"`
}

type UpdateProductRequest struct {
	SKU         *string `json:"sku"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
	PriceCents  *int64  `json:"priceCents"`
	Status      *string `json:"status"`
	CategoryID  *uint64 `json:"categoryId"`
}

type CreateCategoryRequest struct {
	Name     string  `json:"name" binding:"required"`
	ParentID *uint64 `json:"parentId"`
}

type InitiatePaymentRequest struct {
	OrderID  uint64 `json:"orderId" binding:"required"`
	Provider string `json:"provider" binding:"required"`
}

type ExecutePaymentRequest struct {
	Provider  string `json:"provider" binding:"required"`
	PaymentID string `json:"paymentId" binding:"required"`
}
