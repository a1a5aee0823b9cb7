package httpserver

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/sweetshop/internal/models"
	"github.com/Skotchmaster/sweetshop/internal/service"
	"github.com/Skotchmaster/sweetshop/internal/transport"
	"github.com/Skotchmaster/sweetshop/internal/util"
	"github.com/Skotchmaster/sweetshop/pkg/logging"
)

type SweetHTTP struct {
	Svc *service.SweetService
}

func (h *SweetHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "sweet.list")

	items, err := h.Svc.List(ctx)
	if err != nil {
		return fail(l, "list_sweets_error", err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *SweetHTTP) Get(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "sweet.get")

	id, err := parseID(c)
	if err != nil {
		l.Warn("get_sweet_error", "status", 400, "reason", "id is not a uuid", "error", err)
		return err
	}
	sweet, err := h.Svc.Get(ctx, id)
	if err != nil {
		return fail(l, "get_sweet_error", err)
	}
	return c.JSON(http.StatusOK, sweet)
}

func (h *SweetHTTP) Create(c echo.Context, user *models.User) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "sweet.create", "username", user.Username)

	in, err := bindSweet(c)
	if err != nil {
		l.Warn("create_sweet_error", "status", 400, "reason", "invalid body", "error", err)
		return err
	}
	sweet, err := h.Svc.Create(ctx, in)
	if err != nil {
		return fail(l, "create_sweet_error", err)
	}

	l.Info("create_sweet_success", "sweet_id", sweet.ID.String())
	return c.JSON(http.StatusOK, sweet)
}

func (h *SweetHTTP) Update(c echo.Context, user *models.User) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "sweet.update", "username", user.Username)

	id, err := parseID(c)
	if err != nil {
		l.Warn("update_sweet_error", "status", 400, "reason", "id is not a uuid", "error", err)
		return err
	}
	in, err := bindSweet(c)
	if err != nil {
		l.Warn("update_sweet_error", "status", 400, "reason", "invalid body", "error", err)
		return err
	}
	sweet, err := h.Svc.Update(ctx, id, in)
	if err != nil {
		return fail(l, "update_sweet_error", err)
	}

	l.Info("update_sweet_success", "sweet_id", id.String())
	return c.JSON(http.StatusOK, sweet)
}

func (h *SweetHTTP) Delete(c echo.Context, user *models.User) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "sweet.delete", "username", user.Username)

	id, err := parseID(c)
	if err != nil {
		l.Warn("delete_sweet_error", "status", 400, "reason", "id is not a uuid", "error", err)
		return err
	}
	if err := h.Svc.Delete(ctx, id); err != nil {
		return fail(l, "delete_sweet_error", err)
	}

	l.Info("delete_sweet_success", "sweet_id", id.String())
	return c.NoContent(http.StatusOK)
}

func (h *SweetHTTP) Purchase(c echo.Context, user *models.User) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "sweet.purchase", "username", user.Username)

	id, qty, err := bindQuantity(c)
	if err != nil {
		l.Warn("purchase_error", "status", 400, "reason", "invalid request", "error", err)
		return err
	}
	sweet, err := h.Svc.Purchase(ctx, id, qty)
	if err != nil {
		return fail(l, "purchase_error", err)
	}

	l.Info("purchase_success", "sweet_id", id.String(), "quantity", qty)
	return c.JSON(http.StatusOK, sweet)
}

func (h *SweetHTTP) Restock(c echo.Context, user *models.User) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "sweet.restock", "username", user.Username)

	id, qty, err := bindQuantity(c)
	if err != nil {
		l.Warn("restock_error", "status", 400, "reason", "invalid request", "error", err)
		return err
	}
	sweet, err := h.Svc.Restock(ctx, id, qty)
	if err != nil {
		return fail(l, "restock_error", err)
	}

	l.Info("restock_success", "sweet_id", id.String(), "quantity", qty)
	return c.JSON(http.StatusOK, sweet)
}

func (h *SweetHTTP) Search(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "sweet.search")

	var f service.SearchFilter
	f.Name = queryString(c, "name")
	f.Category = queryString(c, "category")

	var err error
	if f.MinPrice, err = queryFloat(c, "minPrice"); err != nil {
		l.Warn("search_error", "status", 400, "reason", "minPrice is not a number")
		return echo.NewHTTPError(http.StatusBadRequest, "minPrice must be a number")
	}
	if f.MaxPrice, err = queryFloat(c, "maxPrice"); err != nil {
		l.Warn("search_error", "status", 400, "reason", "maxPrice is not a number")
		return echo.NewHTTPError(http.StatusBadRequest, "maxPrice must be a number")
	}

	items, err := h.Svc.Search(ctx, f)
	if err != nil {
		return fail(l, "search_error", err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *SweetHTTP) FullText(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "sweet.fulltext")

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)

	total, items, err := h.Svc.FullText(ctx, c.QueryParam("q"), page, size)
	if err != nil {
		return fail(l, "fulltext_error", err)
	}

	_, limit := util.Calculate(page, size)
	if page < 1 {
		page = 1
	}
	return c.JSON(http.StatusOK, transport.FullTextResponse{
		Total:  total,
		Page:   page,
		Size:   limit,
		Sweets: items,
	})
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "id is not a uuid")
	}
	return id, nil
}

func bindSweet(c echo.Context) (service.SweetInput, error) {
	var req transport.SweetRequest
	if err := c.Bind(&req); err != nil {
		return service.SweetInput{}, echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Price == nil {
		return service.SweetInput{}, echo.NewHTTPError(http.StatusBadRequest, "price is required")
	}
	if req.Quantity == nil {
		return service.SweetInput{}, echo.NewHTTPError(http.StatusBadRequest, "quantity is required")
	}
	return service.SweetInput{
		Name:        req.Name,
		Category:    req.Category,
		Price:       *req.Price,
		Quantity:    *req.Quantity,
		Description: req.Description,
	}, nil
}

func bindQuantity(c echo.Context) (uuid.UUID, int, error) {
	id, err := parseID(c)
	if err != nil {
		return uuid.Nil, 0, err
	}
	var req transport.QuantityRequest
	if err := c.Bind(&req); err != nil {
		return uuid.Nil, 0, echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Quantity == nil {
		return uuid.Nil, 0, echo.NewHTTPError(http.StatusBadRequest, "quantity is required")
	}
	return id, *req.Quantity, nil
}

// queryString treats an empty parameter as absent.
func queryString(c echo.Context, name string) *string {
	v := strings.TrimSpace(c.QueryParam(name))
	if v == "" {
		return nil
	}
	return &v
}

func queryFloat(c echo.Context, name string) (*float64, error) {
	v := strings.TrimSpace(c.QueryParam(name))
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}
