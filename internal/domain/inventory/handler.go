package inventory

import (
	"net/http"
	"strconv"

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
	readGroup := api.Group("", auth.RequirePermission("view_inventory"))
	readGroup.GET("/inventory", h.List)
	readGroup.GET("/inventory/alerts/low-stock", h.LowStockAlerts)
	readGroup.GET("/inventory/alerts/expiring", h.ExpiringAlerts)
	readGroup.GET("/inventory/:id", h.Get)

	writeGroup := api.Group("", auth.RequirePermission("manage_inventory"))
	writeGroup.POST("/inventory", h.Create)
	writeGroup.PUT("/inventory/:id", h.Update)
	writeGroup.POST("/inventory/:id/recall", h.Recall)
	writeGroup.POST("/inventory/:id/release", h.Release)

	api.POST("/inventory/dispense", h.Dispense, auth.RequirePermission("dispense_medication"))
}

func (h *Handler) Create(c echo.Context) error {
	var b Batch
	if err := c.Bind(&b); err != nil {
		return apperror.Validationf("invalid request body")
	}
	if err := h.svc.Create(c.Request().Context(), &b); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "batch created", "item": b})
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.Validationf("invalid id")
	}
	b, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.Validationf("invalid id")
	}
	var b Batch
	if err := c.Bind(&b); err != nil {
		return apperror.Validationf("invalid request body")
	}
	b.ID = id
	if err := h.svc.Update(c.Request().Context(), &b); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "batch updated", "item": b})
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	filter := ListFilter{
		Status:       c.QueryParam("status"),
		Search:       c.QueryParam("search"),
		LowStock:     c.QueryParam("lowStock") == "true",
		ExpiringSoon: c.QueryParam("expiringSoon") == "true",
	}
	if v := c.QueryParam("drugId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return apperror.Validationf("invalid drugId")
		}
		filter.DrugID = id
	}
	items, total, err := h.svc.List(c.Request().Context(), filter, pg.Limit, pg.Offset())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

type dispenseRequest struct {
	DrugID   uuid.UUID `json:"drugId"`
	Quantity int       `json:"quantity"`
}

func (h *Handler) Dispense(c echo.Context) error {
	var req dispenseRequest
	if err := c.Bind(&req); err != nil {
		return apperror.Validationf("invalid request body")
	}
	if req.DrugID == uuid.Nil {
		return apperror.Validationf("drugId is required")
	}
	allocations, err := h.svc.Dispense(c.Request().Context(), req.DrugID, req.Quantity)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":     "dispensed",
		"allocations": allocations,
	})
}

func (h *Handler) Recall(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.Validationf("invalid id")
	}
	if err := h.svc.Recall(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "batch recalled"})
}

func (h *Handler) Release(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.Validationf("invalid id")
	}
	if err := h.svc.Release(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "recall released"})
}

func (h *Handler) LowStockAlerts(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.LowStock(c.Request().Context(), pg.Limit, pg.Offset())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) ExpiringAlerts(c echo.Context) error {
	pg := pagination.FromContext(c)
	days := 30
	if v := c.QueryParam("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return apperror.Validationf("days must be a positive number")
		}
		days = n
	}
	items, total, err := h.svc.ExpiringWithin(c.Request().Context(), days, pg.Limit, pg.Offset())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}
