package finance

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinicnotes/clinicnotes/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	clinic := api.Group("", auth.RequireRole(auth.RoleClinician))
	clinic.GET("/reports/charges", h.TotalCharged)
}

func (h *Handler) TotalCharged(c echo.Context) error {
	totals, err := h.svc.TotalCharged(c.Request().Context(), c.QueryParam("startDate"), c.QueryParam("endDate"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, totals)
}
