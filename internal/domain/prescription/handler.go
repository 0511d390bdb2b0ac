package prescription

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/pharmd/pharmd/internal/platform/apperror"
	"github.com/pharmd/pharmd/internal/platform/auth"
	"github.com/pharmd/pharmd/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	group := api.Group("", auth.RequirePermission("view_prescriptions"))
	group.GET("/prescriptions", h.List)
	group.GET("/prescriptions/patient/:patientId/history", h.PatientHistory)
	group.GET("/prescriptions/:id", h.Get)
	group.POST("/prescriptions", h.Create)
	group.POST("/prescriptions/:id/verify", h.Verify)
	group.POST("/prescriptions/:id/cancel", h.Cancel)

	api.POST("/prescriptions/:id/dispense", h.Dispense, auth.RequirePermission("dispense_medication"))
}

func (h *Handler) Create(c echo.Context) error {
	var p Prescription
	if err := c.Bind(&p); err != nil {
		return apperror.Validationf("invalid request body")
	}
	if err := h.svc.Create(c.Request().Context(), &p); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "prescription created", "item": p})
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.Validationf("invalid id")
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	filter := ListFilter{
		Status:    c.QueryParam("status"),
		PatientID: c.QueryParam("patientId"),
		Search:    c.QueryParam("search"),
	}
	if v := c.QueryParam("dateFrom"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return apperror.Validationf("invalid dateFrom")
		}
		filter.DateFrom = t
	}
	if v := c.QueryParam("dateTo"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return apperror.Validationf("invalid dateTo")
		}
		filter.DateTo = t
	}
	items, total, err := h.svc.List(c.Request().Context(), filter, pg.Limit, pg.Offset())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) PatientHistory(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.PatientHistory(c.Request().Context(), c.Param("patientId"), pg.Limit, pg.Offset())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) Verify(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.Validationf("invalid id")
	}
	if err := h.svc.Verify(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "prescription verified"})
}

func (h *Handler) Cancel(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.Validationf("invalid id")
	}
	if err := h.svc.Cancel(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "prescription cancelled"})
}

type dispenseRequest struct {
	Medications []LineDispense `json:"medications"`
}

func (h *Handler) Dispense(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.Validationf("invalid id")
	}
	var req dispenseRequest
	if err := c.Bind(&req); err != nil {
		return apperror.Validationf("invalid request body")
	}

	ctx := c.Request().Context()
	p, err := h.svc.Dispense(ctx, id, req.Medications,
		auth.UserIDFromContext(ctx), auth.UserNameFromContext(ctx))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "prescription dispensed", "item": p})
}
