package httpserver

import (
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/sweetshop/internal/models"
	"github.com/Skotchmaster/sweetshop/internal/service"
	"github.com/Skotchmaster/sweetshop/pkg/logging"
)

// IdentityHandler receives the caller resolved by the Guard.
type IdentityHandler func(c echo.Context, user *models.User) error

type Guard struct {
	Auth *service.AuthService
}

func (g *Guard) Authenticated(h IdentityHandler) echo.HandlerFunc {
	return g.wrap(false, h)
}

func (g *Guard) Admin(h IdentityHandler) echo.HandlerFunc {
	return g.wrap(true, h)
}

func (g *Guard) wrap(admin bool, h IdentityHandler) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		l := logging.FromContext(ctx).With("handler", "guard")

		user, err := g.Auth.ResolveIdentity(ctx, c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return fail(l, "identity_error", err)
		}
		if user == nil {
			return fail(l, "access_denied", service.ErrUnauthorized)
		}
		if admin && !g.Auth.IsAdmin(user) {
			return fail(l.With("username", user.Username), "access_denied", service.ErrForbidden)
		}
		return h(c, user)
	}
}
