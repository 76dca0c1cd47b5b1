package identity

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
	api.GET("/patients", h.ListPatients)
	api.POST("/patients", h.CreatePatient)
	api.GET("/patients/count", h.CountPatients)
}

func (h *Handler) ListPatients(c echo.Context) error {
	page, err := h.svc.ListPatients(c.Request().Context(), pagination.FromContext(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

func (h *Handler) CreatePatient(c echo.Context) error {
	var req CreatePatientRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	p, err := h.svc.CreatePatient(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) CountPatients(c echo.Context) error {
	count, err := h.svc.CountPatients(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]int{"count": count})
}
