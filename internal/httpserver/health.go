package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/sweetshop/internal/transport"
	"github.com/Skotchmaster/sweetshop/pkg/logging"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHTTP struct {
	DB      Pinger
	Timeout time.Duration
}

func (h *HealthHTTP) Live(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func (h *HealthHTTP) Ready(c echo.Context) error {
	if err := h.ping(c.Request().Context()); err != nil {
		logging.FromContext(c.Request().Context()).Warn("readiness_failed", "status", 503, "error", err)
		return c.JSON(http.StatusServiceUnavailable, transport.HealthResponse{Status: "DOWN"})
	}
	return c.JSON(http.StatusOK, transport.HealthResponse{Status: "UP"})
}

// Actuator reports the store error text; it is the only endpoint that does.
func (h *HealthHTTP) Actuator(c echo.Context) error {
	if err := h.ping(c.Request().Context()); err != nil {
		return c.JSON(http.StatusOK, transport.HealthResponse{Status: "DOWN", Error: err.Error()})
	}
	return c.JSON(http.StatusOK, transport.HealthResponse{Status: "UP", Database: "connected"})
}

func (h *HealthHTTP) ping(ctx context.Context) error {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return h.DB.Ping(ctx)
}
