package catalog

import (
	"net/http"

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
	readGroup := api.Group("", auth.RequirePermission("view_inventory", "view_prescriptions"))
	readGroup.GET("/drugs", h.List)
	readGroup.GET("/drugs/:id", h.Get)
	readGroup.POST("/drugs/check-interactions", h.CheckInteractions)

	writeGroup := api.Group("", auth.RequirePermission("manage_inventory"))
	writeGroup.POST("/drugs", h.Create)
	writeGroup.PUT("/drugs/:id", h.Update)
	writeGroup.DELETE("/drugs/:id", h.Deactivate)
}

func (h *Handler) Create(c echo.Context) error {
	var d Drug
	if err := c.Bind(&d); err != nil {
		return apperror.Validationf("invalid request body")
	}
	if err := h.svc.Create(c.Request().Context(), &d); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "drug created", "item": d})
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.Validationf("invalid id")
	}
	d, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.Validationf("invalid id")
	}
	var d Drug
	if err := c.Bind(&d); err != nil {
		return apperror.Validationf("invalid request body")
	}
	d.ID = id
	if err := h.svc.Update(c.Request().Context(), &d); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "drug updated", "item": d})
}

func (h *Handler) Deactivate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.Validationf("invalid id")
	}
	if err := h.svc.Deactivate(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "drug deactivated"})
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	filter := ListFilter{
		Search:     c.QueryParam("search"),
		Category:   c.QueryParam("category"),
		DosageForm: c.QueryParam("dosageForm"),
		IsActive:   c.QueryParam("isActive"),
	}
	items, total, err := h.svc.List(c.Request().Context(), filter, pg.Limit, pg.Offset())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

type checkInteractionsRequest struct {
	DrugIDs []uuid.UUID `json:"drugIds"`
}

func (h *Handler) CheckInteractions(c echo.Context) error {
	var req checkInteractionsRequest
	if err := c.Bind(&req); err != nil {
		return apperror.Validationf("invalid request body")
	}
	matches, err := h.svc.CheckInteractions(c.Request().Context(), req.DrugIDs)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"interactions": matches})
}
