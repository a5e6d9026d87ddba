package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/deliverydz/dispatch-api/internal/core/domain"
	"github.com/deliverydz/dispatch-api/internal/core/ports"
	"github.com/deliverydz/dispatch-api/internal/pkg/metrics"
)

// OrderHandler handles customer-facing order requests.
type OrderHandler struct {
	service ports.OrderService
}

func NewOrderHandler(service ports.OrderService) *OrderHandler {
	return &OrderHandler{service: service}
}

// Submit handles POST /api/submit-order.
//
// @Summary      Submit an order
// @Description  Records a pending order and notifies delivery agents. When the notification cannot be dispatched the order is still recorded and returned alongside the error.
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header    string              false  "Idempotency key to prevent duplicate submissions"
// @Param        body             body      submitOrderRequest  true   "Order details"
// @Success      201              {object}  orderResponse
// @Failure      400              {object}  errorResponse
// @Failure      409              {object}  errorResponse
// @Failure      500              {object}  orderErrorResponse
// @Router       /api/submit-order [post]
func (h *OrderHandler) Submit(c echo.Context) error {
	var req submitOrderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		metrics.OrdersSubmittedTotal.WithLabelValues("error").Inc()
		return err
	}

	cart := make([]domain.CartItem, 0, len(req.Cart))
	for _, item := range req.Cart {
		cart = append(cart, domain.CartItem{Name: item.Name, Price: item.Price})
	}

	order, err := h.service.Submit(c.Request().Context(), ports.SubmitOrderInput{
		Name:           req.Name,
		Phone:          req.Phone,
		Address:        req.Address,
		Cart:           cart,
		TotalPrice:     req.TotalPrice,
		DeliveryPrice:  req.DeliveryPrice,
		IdempotencyKey: c.Request().Header.Get("Idempotency-Key"),
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotificationFailed) && order != nil {
			metrics.OrdersSubmittedTotal.WithLabelValues("notification_failed").Inc()
			return c.JSON(http.StatusInternalServerError, orderErrorResponse{
				Error: "order recorded but agents could not be notified",
				Order: order,
			})
		}
		metrics.OrdersSubmittedTotal.WithLabelValues("error").Inc()
		return err
	}

	metrics.OrdersSubmittedTotal.WithLabelValues("created").Inc()
	return c.JSON(http.StatusCreated, orderResponse{Message: "order submitted", Order: order})
}

// ListByPhone handles GET /api/orders/:phone.
//
// @Summary      List a customer's orders
// @Tags         orders
// @Produce      json
// @Param        phone  path      string  true  "Customer phone"
// @Success      200    {array}   domain.Order
// @Failure      400    {object}  errorResponse
// @Failure      500    {object}  errorResponse
// @Router       /api/orders/{phone} [get]
func (h *OrderHandler) ListByPhone(c echo.Context) error {
	orders, err := h.service.ListByPhone(c.Request().Context(), c.Param("phone"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, orders)
}
