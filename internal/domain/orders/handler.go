package orders

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ehr/registry/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/patients/:id/orders", h.ListOrders)
	api.POST("/orders", h.CreateOrder)
	api.PUT("/orders/:id", h.UpdateOrder)
}

func (h *Handler) ListOrders(c echo.Context) error {
	page, err := h.svc.ListOrders(c.Request().Context(), c.Param("id"), pagination.FromContext(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

// CreateOrder answers 200 rather than 201; existing clients depend on it.
func (h *Handler) CreateOrder(c echo.Context) error {
	var req CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	o, err := h.svc.CreateOrder(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) UpdateOrder(c echo.Context) error {
	var req UpdateOrderRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	o, err := h.svc.UpdateOrder(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, o)
}
