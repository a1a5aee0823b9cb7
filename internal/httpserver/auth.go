package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/sweetshop/internal/models"
	"github.com/Skotchmaster/sweetshop/internal/service"
	"github.com/Skotchmaster/sweetshop/internal/transport"
	"github.com/Skotchmaster/sweetshop/pkg/logging"
)

type AuthHTTP struct {
	Svc *service.AuthService
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.register")

	var req transport.RegisterRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Svc.Register(ctx, req.Username, req.Email, req.Password)
	if err != nil {
		return fail(l, "register_error", err)
	}

	l.Info("register_success", "username", res.Username)
	return c.JSON(http.StatusOK, authResponse(res))
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		return fail(l, "login_failed", err)
	}

	l.Info("login_successful", "username", res.Username)
	return c.JSON(http.StatusOK, authResponse(res))
}

func (h *AuthHTTP) Me(c echo.Context, user *models.User) error {
	return c.JSON(http.StatusOK, transport.MeResponse{
		Username: user.Username,
		Email:    user.Email,
		Role:     user.Role,
		IsAdmin:  user.IsAdmin(),
	})
}

func authResponse(res *service.AuthResult) transport.AuthResponse {
	return transport.AuthResponse{
		Token:    res.Token,
		Type:     res.Type,
		Username: res.Username,
		Role:     res.Role,
		IsAdmin:  res.IsAdmin,
	}
}
