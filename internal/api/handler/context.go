package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/deliverydz/dispatch-api/internal/core/domain"
)

// ctxClaims extracts the auth claims injected by the Auth middleware and
// fails fast when they are absent: a phone and a role prove the middleware
// ran.
func ctxClaims(c echo.Context) (domain.Claims, error) {
	phone, _ := c.Get("phone").(string)
	role, _ := c.Get("role").(string)
	if phone == "" || role == "" {
		return domain.Claims{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	username, _ := c.Get("username").(string)
	return domain.Claims{Phone: phone, Username: username, Role: role}, nil
}
