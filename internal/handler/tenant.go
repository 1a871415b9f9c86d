package handler

import (
	"rental-service/internal/model"
	"rental-service/internal/service"
	"rental-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// MoveInRequest assigns a tenant to a room
type MoveInRequest struct {
	RoomID     uint `json:"roomId" validate:"required"`
	MoveInDate Date `json:"moveInDate"`
}

// MoveOutRequest releases a tenant's room
type MoveOutRequest struct {
	MoveOutDate Date   `json:"moveOutDate"`
	Reason      string `json:"reason" validate:"max=500"`
}

// ListTenants returns one page of tenants
func (h *Handler) ListTenants(c echo.Context) error {
	f := service.TenantFilter{
		ListParams: listParams(c),
		Status:     c.QueryParam("status"),
		RoomID:     queryUint(c, "roomId"),
		Gender:     c.QueryParam("gender"),
	}
	tenants, p, err := h.svc.Tenants.List(c.Request().Context(), f)
	if err != nil {
		return err
	}
	logger.FromEcho(c).Info("Tenants listed", zap.Int("count", len(tenants)))
	return page(c, tenants, p)
}

// ActiveTenants returns tenants currently renting
func (h *Handler) ActiveTenants(c echo.Context) error {
	tenants, err := h.svc.Tenants.Active(c.Request().Context())
	if err != nil {
		return err
	}
	return list(c, tenants, len(tenants))
}

// GetTenant returns one tenant with room and history
func (h *Handler) GetTenant(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	tenant, err := h.svc.Tenants.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return ok(c, "", tenant)
}

// CreateTenant registers a tenant
func (h *Handler) CreateTenant(c echo.Context) error {
	log := logger.FromEcho(c)

	var tenant model.Tenant
	if err := bind(c, &tenant); err != nil {
		return err
	}
	if err := h.svc.Tenants.Create(c.Request().Context(), &tenant); err != nil {
		log.Warn("Tenant creation failed", zap.String("phone", tenant.Phone), zap.Error(err))
		return err
	}

	log.Info("Tenant created", zap.Uint("tenant_id", tenant.ID), zap.String("name", tenant.Name))
	return created(c, "Tạo khách thuê mới thành công", tenant)
}

// UpdateTenant saves tenant changes and keeps the room in step
func (h *Handler) UpdateTenant(c echo.Context) error {
	log := logger.FromEcho(c)
	id, err := idParam(c)
	if err != nil {
		return err
	}

	patch, err := patchBody[model.Tenant](c)
	if err != nil {
		return err
	}
	tenant, err := h.svc.Tenants.Update(c.Request().Context(), id, patch)
	if err != nil {
		log.Warn("Tenant update failed", zap.Uint("tenant_id", id), zap.Error(err))
		return err
	}

	log.Info("Tenant updated", zap.Uint("tenant_id", id), zap.String("status", string(tenant.Status)))
	return ok(c, "Cập nhật khách thuê thành công", tenant)
}

// DeleteTenant archives a tenant without history
func (h *Handler) DeleteTenant(c echo.Context) error {
	log := logger.FromEcho(c)
	id, err := idParam(c)
	if err != nil {
		return err
	}
	if err := h.svc.Tenants.Delete(c.Request().Context(), id); err != nil {
		log.Warn("Tenant deletion refused", zap.Uint("tenant_id", id), zap.Error(err))
		return err
	}
	log.Info("Tenant deleted", zap.Uint("tenant_id", id))
	return ok(c, "Xóa khách thuê thành công", nil)
}

// MoveIn puts a tenant into an available room
func (h *Handler) MoveIn(c echo.Context) error {
	log := logger.FromEcho(c)
	id, err := idParam(c)
	if err != nil {
		return err
	}

	var req MoveInRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	tenant, err := h.svc.Tenants.MoveIn(c.Request().Context(), id, req.RoomID, req.MoveInDate.Time)
	if err != nil {
		log.Warn("Move-in refused", zap.Uint("tenant_id", id), zap.Uint("room_id", req.RoomID), zap.Error(err))
		return err
	}

	log.Info("Tenant moved in", zap.Uint("tenant_id", id), zap.Uint("room_id", req.RoomID))
	return ok(c, "Chuyển khách thuê vào phòng thành công", tenant)
}

// MoveOut releases the tenant's room
func (h *Handler) MoveOut(c echo.Context) error {
	log := logger.FromEcho(c)
	id, err := idParam(c)
	if err != nil {
		return err
	}

	var req MoveOutRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	tenant, err := h.svc.Tenants.MoveOut(c.Request().Context(), id, req.MoveOutDate.Time, req.Reason)
	if err != nil {
		log.Warn("Move-out refused", zap.Uint("tenant_id", id), zap.Error(err))
		return err
	}

	log.Info("Tenant moved out", zap.Uint("tenant_id", id))
	return ok(c, "Chuyển khách thuê ra khỏi phòng thành công", tenant)
}

// TenantStats returns the tenant overview
func (h *Handler) TenantStats(c echo.Context) error {
	stats, err := h.svc.Tenants.Stats(c.Request().Context())
	if err != nil {
		return err
	}
	return ok(c, "", stats)
}
