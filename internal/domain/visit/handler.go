package visit

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
	clinic.GET("/patients/:id/visits", h.ListVisits)
	clinic.GET("/patients/:id/visits/last", h.GetLastVisit)
	clinic.GET("/patients/:id/visits/summary", h.GetVisitSummary)
	clinic.POST("/visits", h.SaveVisit)
	clinic.POST("/visits/historical", h.AddHistoricalVisit)
	clinic.POST("/visits/historical/batch", h.AddHistoricalBatch)

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.GET("/visits/purge", h.PurgeVisits)
	admin.POST("/visits/purge", h.PurgeVisits)
}

func (h *Handler) SaveVisit(c echo.Context) error {
	var req SaveRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body: %v", err)
	}
	res, err := h.svc.Save(c.Request().Context(), &req)
	if err != nil {
		return err
	}
	status := http.StatusOK
	if res.Action == ActionCreated {
		status = http.StatusCreated
	}
	return c.JSON(status, res)
}

func (h *Handler) AddHistoricalVisit(c echo.Context) error {
	var item HistoricalItem
	if err := c.Bind(&item); err != nil {
		return apperr.Validation("invalid request body: %v", err)
	}
	res, err := h.svc.AddHistorical(c.Request().Context(), &item)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"success":   true,
		"patientId": res.PatientID,
		"visitId":   res.VisitID,
		"status":    res.Status,
		"message":   "Historical visit added.",
	})
}

type batchRequest struct {
	Visits []HistoricalItem `json:"visits"`
}

// AddHistoricalBatch answers 201 when every item succeeded and 207 otherwise.
func (h *Handler) AddHistoricalBatch(c echo.Context) error {
	var req batchRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body: %v", err)
	}
	report, err := h.svc.AddHistoricalBatch(c.Request().Context(), req.Visits)
	if err != nil {
		return err
	}
	status := http.StatusCreated
	if report.FailureCount > 0 {
		status = http.StatusMultiStatus
	}
	return c.JSON(status, report)
}

func (h *Handler) GetLastVisit(c echo.Context) error {
	v, err := h.svc.Last(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) ListVisits(c echo.Context) error {
	visits, err := h.svc.All(c.Request().Context(), c.Param("id"),
		c.QueryParam("orderBy"), c.QueryParam("orderDirection"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, visits)
}

func (h *Handler) GetVisitSummary(c echo.Context) error {
	sum, err := h.svc.Summary(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sum)
}

func (h *Handler) PurgeVisits(c echo.Context) error {
	res, err := h.svc.Purge(c.Request().Context(), c.QueryParam("confirm"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}
