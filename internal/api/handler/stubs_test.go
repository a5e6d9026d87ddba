package handler

import (
	"context"
	"net/http/httptest"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/deliverydz/dispatch-api/internal/core/domain"
	"github.com/deliverydz/dispatch-api/internal/core/ports"
)

type stubAuthService struct {
	loginFn func(ctx context.Context, phone, username, role string) (string, *domain.User, error)
}

func (s *stubAuthService) Login(ctx context.Context, phone, username, role string) (string, *domain.User, error) {
	return s.loginFn(ctx, phone, username, role)
}

type stubOrderService struct {
	submitFn func(ctx context.Context, in ports.SubmitOrderInput) (*domain.Order, error)
	listFn   func(ctx context.Context, phone string) ([]domain.Order, error)
}

func (s *stubOrderService) Submit(ctx context.Context, in ports.SubmitOrderInput) (*domain.Order, error) {
	return s.submitFn(ctx, in)
}

func (s *stubOrderService) ListByPhone(ctx context.Context, phone string) ([]domain.Order, error) {
	return s.listFn(ctx, phone)
}

type stubDeliveryService struct {
	listFn   func(ctx context.Context, agent domain.Claims) ([]domain.Order, error)
	assignFn func(ctx context.Context, id string, agent domain.Claims) (*domain.Order, error)
	statusFn func(ctx context.Context, id string, agent domain.Claims, status string) (*domain.Order, error)
	agentsFn func(ctx context.Context, agent domain.Claims) ([]domain.User, error)
}

func (s *stubDeliveryService) ListOrders(ctx context.Context, agent domain.Claims) ([]domain.Order, error) {
	return s.listFn(ctx, agent)
}

func (s *stubDeliveryService) Assign(ctx context.Context, id string, agent domain.Claims) (*domain.Order, error) {
	return s.assignFn(ctx, id, agent)
}

func (s *stubDeliveryService) UpdateStatus(ctx context.Context, id string, agent domain.Claims, status string) (*domain.Order, error) {
	return s.statusFn(ctx, id, agent, status)
}

func (s *stubDeliveryService) ListAgents(ctx context.Context, agent domain.Claims) ([]domain.User, error) {
	return s.agentsFn(ctx, agent)
}

// newContext builds an echo context with the validator installed and an
// optional JSON body.
func newContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func withAgent(c echo.Context, phone, name string) {
	c.Set("phone", phone)
	c.Set("username", name)
	c.Set("role", domain.RoleAgent)
}

func strPtr(s string) *string { return &s }
