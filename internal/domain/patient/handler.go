package patient

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinicnotes/clinicnotes/internal/platform/apperr"
	"github.com/clinicnotes/clinicnotes/internal/platform/auth"
	"github.com/clinicnotes/clinicnotes/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	clinic := api.Group("", auth.RequireRole(auth.RoleClinician))
	clinic.POST("/patients", h.CreatePatient)
	clinic.POST("/patients/batch", h.ImportPatients)
	clinic.GET("/patients/search", h.SearchPatients)
	clinic.GET("/patients/:id", h.GetPatient)
	clinic.PUT("/patients/:id", h.UpdatePatient)
	clinic.DELETE("/patients/:id", h.DeletePatient)

	admin := api.Group("/admin", auth.RequireRole(auth.RoleAdmin))
	admin.POST("/patient-counter", h.SetCounter)
}

type createResponse struct {
	PatientID string `json:"patientId"`
	Message   string `json:"message"`
}

type mutationResponse struct {
	Success   bool   `json:"success"`
	PatientID string `json:"patientId"`
}

func (h *Handler) CreatePatient(c echo.Context) error {
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body: %v", err)
	}
	p, err := h.svc.CreatePatient(c.Request().Context(), &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, createResponse{PatientID: p.ID, Message: "Patient created successfully."})
}

type importRequest struct {
	Patients []ImportRecord `json:"patients"`
}

// ImportPatients answers 201 when every record succeeded and 207 otherwise.
func (h *Handler) ImportPatients(c echo.Context) error {
	var req importRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body: %v", err)
	}
	report, err := h.svc.ImportBatch(c.Request().Context(), req.Patients)
	if err != nil {
		return err
	}
	status := http.StatusCreated
	if report.FailureCount > 0 {
		status = http.StatusMultiStatus
	}
	return c.JSON(status, report)
}

func (h *Handler) GetPatient(c echo.Context) error {
	p, err := h.svc.GetPatient(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	id := c.Param("id")
	var req UpdateRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body: %v", err)
	}
	if err := h.svc.UpdatePatient(c.Request().Context(), id, &req); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, mutationResponse{Success: true, PatientID: id})
}

func (h *Handler) DeletePatient(c echo.Context) error {
	id := c.Param("id")
	if err := h.svc.DeletePatient(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, mutationResponse{Success: true, PatientID: id})
}

func (h *Handler) SearchPatients(c echo.Context) error {
	pg := pagination.FromContext(c)
	patients, err := h.svc.SearchPatients(c.Request().Context(), c.QueryParam("q"), pg.Limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, patients)
}

type counterRequest struct {
	LastPRegNumber *int64 `json:"lastPRegNumber"`
}

func (h *Handler) SetCounter(c echo.Context) error {
	var req counterRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("lastPRegNumber must be a non-negative integer")
	}
	if req.LastPRegNumber == nil {
		return apperr.Validation("lastPRegNumber is required")
	}
	if err := h.svc.Allocator().SetCounter(c.Request().Context(), *req.LastPRegNumber); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":        true,
		"lastPRegNumber": *req.LastPRegNumber,
		"nextPReg":       FormatPReg(*req.LastPRegNumber + 1),
	})
}
