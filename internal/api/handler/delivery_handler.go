package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/deliverydz/dispatch-api/internal/core/domain"
	"github.com/deliverydz/dispatch-api/internal/core/ports"
	"github.com/deliverydz/dispatch-api/internal/pkg/metrics"
)

// DeliveryHandler handles agent-facing requests. Every route sits behind the
// Auth and RBAC middleware.
type DeliveryHandler struct {
	service ports.DeliveryService
}

func NewDeliveryHandler(service ports.DeliveryService) *DeliveryHandler {
	return &DeliveryHandler{service: service}
}

// ListOrders handles GET /delivery/orders.
//
// @Summary      List orders visible to the agent
// @Description  Every pending order plus the orders assigned to the calling agent.
// @Tags         delivery
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   domain.Order
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /delivery/orders [get]
func (h *DeliveryHandler) ListOrders(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}

	orders, err := h.service.ListOrders(c.Request().Context(), claims)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, orders)
}

// Assign handles POST /delivery/orders/:id/assign.
//
// @Summary      Claim a pending order
// @Tags         delivery
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Order id"
// @Success      200  {object}  orderResponse
// @Failure      400  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /delivery/orders/{id}/assign [post]
func (h *DeliveryHandler) Assign(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}

	order, err := h.service.Assign(c.Request().Context(), c.Param("id"), claims)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyAssigned) {
			metrics.AssignmentsTotal.WithLabelValues("already_assigned").Inc()
		} else {
			metrics.AssignmentsTotal.WithLabelValues("error").Inc()
		}
		return err
	}

	metrics.AssignmentsTotal.WithLabelValues("won").Inc()
	return c.JSON(http.StatusOK, orderResponse{Message: "order assigned", Order: order})
}

// UpdateStatus handles POST /delivery/orders/:id/status.
//
// @Summary      Update the status of an assigned order
// @Tags         delivery
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string               true  "Order id"
// @Param        body  body      statusUpdateRequest  true  "Target status: ready, in_transit, arrived or delivered"
// @Success      200   {object}  orderResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /delivery/orders/{id}/status [post]
func (h *DeliveryHandler) UpdateStatus(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}

	var req statusUpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	order, err := h.service.UpdateStatus(c.Request().Context(), c.Param("id"), claims, req.Status)
	if err != nil {
		label := req.Status
		if !domain.OrderStatus(label).IsProgress() {
			label = "unknown"
		}
		metrics.StatusUpdatesTotal.WithLabelValues(label, statusUpdateResult(err)).Inc()
		return err
	}

	metrics.StatusUpdatesTotal.WithLabelValues(string(order.Status), "ok").Inc()
	return c.JSON(http.StatusOK, orderResponse{Message: "order status updated", Order: order})
}

// ListAgents handles GET /delivery/agents.
//
// @Summary      List the agent directory
// @Tags         delivery
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   domain.User
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /delivery/agents [get]
func (h *DeliveryHandler) ListAgents(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}

	agents, err := h.service.ListAgents(c.Request().Context(), claims)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, agents)
}

func statusUpdateResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, domain.ErrNotOwner):
		return "not_owner"
	case errors.Is(err, domain.ErrOrderNotFound):
		return "not_found"
	default:
		return "error"
	}
}
