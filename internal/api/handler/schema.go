package handler

import "github.com/deliverydz/dispatch-api/internal/core/domain"

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Request / Response types ---

type loginRequest struct {
	Phone    string `json:"phone"    validate:"required"`
	Username string `json:"username" validate:"required"`
	Role     string `json:"role"     validate:"omitempty,oneof=client agent"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

type cartItemRequest struct {
	Name  string  `json:"name"  validate:"required"`
	Price float64 `json:"price" validate:"gte=0"`
}

type submitOrderRequest struct {
	Name          string            `json:"name"          validate:"required"`
	Phone         string            `json:"phone"         validate:"required"`
	Address       string            `json:"address"       validate:"required"`
	Cart          []cartItemRequest `json:"cart"          validate:"required,min=1,dive"`
	TotalPrice    float64           `json:"totalPrice"    validate:"gte=0"`
	DeliveryPrice float64           `json:"deliveryPrice" validate:"gte=0"`
}

type statusUpdateRequest struct {
	Status string `json:"status" validate:"required"`
}

type orderResponse struct {
	Message string        `json:"message"`
	Order   *domain.Order `json:"order"`
}

// orderErrorResponse is returned when an order was recorded but a later step
// failed, so the client still learns the order.
type orderErrorResponse struct {
	Error string        `json:"error"`
	Order *domain.Order `json:"order"`
}
