package httpserver

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/sweetshop/internal/metrics"
	loggingmw "github.com/Skotchmaster/sweetshop/pkg/middleware/logging"
)

type Deps struct {
	AuthHandler   *AuthHTTP
	SweetHandler  *SweetHTTP
	HealthHandler *HealthHTTP
	Guard         *Guard
	Metrics       *metrics.Metrics
}

// NewEcho builds an echo instance with the middleware chain every server uses.
func NewEcho(logger *slog.Logger, m *metrics.Metrics, origins []string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	if len(origins) == 0 {
		origins = []string{"*"}
	}

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(m.Middleware())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	return e
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", d.HealthHandler.Live)
	e.GET("/health/ready", d.HealthHandler.Ready)
	e.GET("/actuator/health", d.HealthHandler.Actuator)
	e.GET("/metrics", echo.WrapHandler(d.Metrics.Handler()))

	auth := e.Group("/auth")
	auth.POST("/register", d.AuthHandler.Register)
	auth.POST("/login", d.AuthHandler.Login)
	auth.GET("/me", d.Guard.Authenticated(d.AuthHandler.Me))

	sweets := e.Group("/sweets")
	sweets.GET("", d.SweetHandler.List)
	sweets.GET("/search", d.SweetHandler.Search)
	sweets.GET("/fulltext", d.SweetHandler.FullText)
	sweets.GET("/:id", d.SweetHandler.Get)

	sweets.POST("", d.Guard.Admin(d.SweetHandler.Create))
	sweets.PUT("/:id", d.Guard.Admin(d.SweetHandler.Update))
	sweets.DELETE("/:id", d.Guard.Admin(d.SweetHandler.Delete))
	sweets.POST("/:id/purchase", d.Guard.Authenticated(d.SweetHandler.Purchase))
	sweets.POST("/:id/restock", d.Guard.Admin(d.SweetHandler.Restock))
}
