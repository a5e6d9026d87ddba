package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/deliverydz/dispatch-api/internal/api/handler"
	"github.com/deliverydz/dispatch-api/internal/core/domain"
	"github.com/deliverydz/dispatch-api/internal/core/service"
	"github.com/deliverydz/dispatch-api/internal/infrastructure/db/file"
	"github.com/deliverydz/dispatch-api/internal/infrastructure/notify"
	"github.com/deliverydz/dispatch-api/internal/infrastructure/queue"
)

type testServer struct {
	t *testing.T
	e *echo.Echo
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store, err := file.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	orders := file.NewOrderRepository(store)
	users := file.NewUserRepository(store)

	log := zerolog.Nop()
	dispatcher := queue.NewDispatcher(1, notify.NewLogNotifier(log), log)
	dispatcher.Start(context.Background())
	t.Cleanup(dispatcher.Stop)

	tokens := service.NewTokenIssuer("test-secret", service.TokenTTL)
	registry := prometheus.NewRegistry()

	e := NewRouter(Dependencies{
		Auth:       service.NewAuthService(users, tokens, log),
		Orders:     service.NewOrderService(orders, users, dispatcher, nil, log),
		Delivery:   service.NewDeliveryService(orders, users, log),
		Tokens:     tokens,
		Log:        log,
		Registerer: registry,
		Gatherer:   registry,
		Readiness:  map[string]handler.Pinger{"file_store": store.Ping},
	})
	return &testServer{t: t, e: e}
}

func (s *testServer) do(method, path, token, body string) (int, []byte) {
	s.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	out, _ := io.ReadAll(rec.Body)
	return rec.Code, out
}

func (s *testServer) login(phone, username, role string) string {
	s.t.Helper()
	code, body := s.do(http.MethodPost, "/login", "",
		`{"phone":"`+phone+`","username":"`+username+`","role":"`+role+`"}`)
	if code != http.StatusOK {
		s.t.Fatalf("login %s: expected 200, got %d: %s", phone, code, body)
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || resp.Token == "" {
		s.t.Fatalf("login %s: no token in %s", phone, body)
	}
	return resp.Token
}

type orderEnvelope struct {
	Message string       `json:"message"`
	Error   string       `json:"error"`
	Order   domain.Order `json:"order"`
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		t.Fatalf("invalid json %s: %v", body, err)
	}
	return v
}

const amalOrder = `{"name":"Amal","phone":"555","address":"Algiers","cart":[{"name":"Pizza","price":1200}],"totalPrice":1200,"deliveryPrice":300}`

func TestRouter_SubmitThenListByPhone(t *testing.T) {
	s := newTestServer(t)

	code, body := s.do(http.MethodPost, "/api/submit-order", "", amalOrder)
	if code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", code, body)
	}
	submitted := decode[orderEnvelope](t, body).Order
	if submitted.Status != domain.StatusPending || submitted.DeliveryAgent != nil {
		t.Fatalf("expected pending unassigned order, got %+v", submitted)
	}

	code, body = s.do(http.MethodGet, "/api/orders/555", "", "")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	listed := decode[[]domain.Order](t, body)
	if len(listed) != 1 || listed[0].ID != submitted.ID {
		t.Fatalf("expected exactly the submitted order, got %+v", listed)
	}

	code, _ = s.do(http.MethodPost, "/api/submit-order", "", `{"phone":"555"}`)
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing fields, got %d", code)
	}
}

func TestRouter_AssignmentLifecycle(t *testing.T) {
	s := newTestServer(t)

	_, body := s.do(http.MethodPost, "/api/submit-order", "", amalOrder)
	orderID := decode[orderEnvelope](t, body).Order.ID

	karim := s.login("777", "karim", "agent")
	sara := s.login("888", "sara", "agent")

	code, body := s.do(http.MethodGet, "/delivery/orders", karim, "")
	if code != http.StatusOK || len(decode[[]domain.Order](t, body)) != 1 {
		t.Fatalf("expected the pending order to be visible, got %d: %s", code, body)
	}

	code, body = s.do(http.MethodPost, "/delivery/orders/"+orderID+"/assign", karim, "")
	if code != http.StatusOK {
		t.Fatalf("first assign: expected 200, got %d: %s", code, body)
	}
	assigned := decode[orderEnvelope](t, body).Order
	if assigned.Status != domain.StatusAssigned || *assigned.DeliveryAgent != "777" || *assigned.DeliveryAgentName != "karim" {
		t.Fatalf("unexpected assignment: %+v", assigned)
	}

	code, _ = s.do(http.MethodPost, "/delivery/orders/"+orderID+"/assign", sara, "")
	if code != http.StatusBadRequest {
		t.Fatalf("second assign: expected 400, got %d", code)
	}

	code, body = s.do(http.MethodGet, "/delivery/orders", sara, "")
	if code != http.StatusOK || len(decode[[]domain.Order](t, body)) != 0 {
		t.Fatalf("order held by another agent must be hidden, got %s", body)
	}

	code, _ = s.do(http.MethodPost, "/delivery/orders/"+orderID+"/status", sara, `{"status":"ready"}`)
	if code != http.StatusForbidden {
		t.Fatalf("non-owner status: expected 403, got %d", code)
	}

	code, _ = s.do(http.MethodPost, "/delivery/orders/"+orderID+"/status", karim, `{"status":"lost"}`)
	if code != http.StatusBadRequest {
		t.Fatalf("unknown status: expected 400, got %d", code)
	}

	code, body = s.do(http.MethodPost, "/delivery/orders/"+orderID+"/status", karim, `{"status":"delivered"}`)
	if code != http.StatusOK || decode[orderEnvelope](t, body).Order.Status != domain.StatusDelivered {
		t.Fatalf("deliver: expected 200, got %d: %s", code, body)
	}

	code, _ = s.do(http.MethodPost, "/delivery/orders/"+orderID+"/status", karim, `{"status":"in_transit"}`)
	if code != http.StatusBadRequest {
		t.Fatalf("leaving delivered: expected 400, got %d", code)
	}

	code, _ = s.do(http.MethodPost, "/delivery/orders/missing/assign", karim, "")
	if code != http.StatusNotFound {
		t.Fatalf("unknown order: expected 404, got %d", code)
	}

	code, body = s.do(http.MethodGet, "/delivery/agents", karim, "")
	if code != http.StatusOK || len(decode[[]domain.User](t, body)) != 2 {
		t.Fatalf("expected two agents, got %d: %s", code, body)
	}
}

func TestRouter_CredentialChecks(t *testing.T) {
	s := newTestServer(t)

	_, _ = s.do(http.MethodPost, "/api/submit-order", "", amalOrder)
	// 555 is already a client; asking for the agent role does not promote it.
	customer := s.login("555", "amal", "agent")

	cases := []struct {
		name  string
		token string
		raw   string
		code  int
	}{
		{"no header", "", "", http.StatusUnauthorized},
		{"wrong scheme", "", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "not-a-jwt", "", http.StatusForbidden},
		{"client role", customer, "", http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/delivery/orders", nil)
			switch {
			case tc.raw != "":
				req.Header.Set("Authorization", tc.raw)
			case tc.token != "":
				req.Header.Set("Authorization", "Bearer "+tc.token)
			}
			rec := httptest.NewRecorder()
			s.e.ServeHTTP(rec, req)
			if rec.Code != tc.code {
				t.Fatalf("expected %d, got %d: %s", tc.code, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestRouter_OperationalEndpoints(t *testing.T) {
	s := newTestServer(t)

	if code, _ := s.do(http.MethodGet, "/health", "", ""); code != http.StatusOK {
		t.Fatalf("liveness: expected 200, got %d", code)
	}
	if code, body := s.do(http.MethodGet, "/health/ready", "", ""); code != http.StatusOK {
		t.Fatalf("readiness: expected 200, got %d: %s", code, body)
	}

	code, body := s.do(http.MethodGet, "/metrics", "", "")
	if code != http.StatusOK {
		t.Fatalf("metrics: expected 200, got %d", code)
	}
	if !strings.Contains(string(body), "dispatch_http_requests_total") {
		t.Fatalf("http metrics not exported: %s", body)
	}
}

func TestRouter_RoleRejectionUsesErrorEnvelope(t *testing.T) {
	s := newTestServer(t)
	customer := s.login("555", "amal", "client")

	code, body := s.do(http.MethodGet, "/delivery/agents", customer, "")
	if code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", code, body)
	}
	if got := decode[errorResponse](t, body).Error; got != "access forbidden" {
		t.Fatalf("expected the shared forbidden message, got %q", got)
	}
}
