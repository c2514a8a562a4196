package transcription

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
	clinic := api.Group("", auth.RequireRole(auth.RoleClinician))
	clinic.POST("/transcriptions", h.Extract)
}

func (h *Handler) Extract(c echo.Context) error {
	var req ExtractRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body: %v", err)
	}
	out, err := h.svc.Extract(c.Request().Context(), &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}
