package layout

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinicnotes/clinicnotes/internal/platform/apperr"
	"github.com/clinicnotes/clinicnotes/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole(auth.RoleClinician))
	g.GET("/layout", h.GetLayout)
	g.POST("/layout", h.SaveLayout)
}

func (h *Handler) SaveLayout(c echo.Context) error {
	var cfg Config
	if err := c.Bind(&cfg); err != nil {
		return apperr.Validation("Missing or invalid layoutSettings.")
	}
	if err := h.svc.Save(c.Request().Context(), cfg); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true, "message": "Layout saved."})
}

func (h *Handler) GetLayout(c echo.Context) error {
	cfg, err := h.svc.Load(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cfg)
}
