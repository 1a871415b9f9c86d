package handler

import (
	"rental-service/internal/model"
	"rental-service/internal/service"
	"rental-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// RenewRequest extends a lease
type RenewRequest struct {
	NewEndDate Date   `json:"newEndDate"`
	Reason     string `json:"reason" validate:"max=500"`
}

// TerminateRequest ends a lease early
type TerminateRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// ListContracts returns one page of contracts
func (h *Handler) ListContracts(c echo.Context) error {
	f := service.ContractFilter{
		ListParams: listParams(c),
		Status:     c.QueryParam("status"),
		RoomID:     queryUint(c, "roomId"),
		TenantID:   queryUint(c, "tenantId"),
		StartFrom:  queryDate(c, "startDate"),
		StartTo:    queryDate(c, "endDate"),
	}
	contracts, p, err := h.svc.Contracts.List(c.Request().Context(), f)
	if err != nil {
		return err
	}
	logger.FromEcho(c).Info("Contracts listed", zap.Int("count", len(contracts)))
	return page(c, contracts, p)
}

// ExpiringContracts returns active contracts ending within ?days (default 30)
func (h *Handler) ExpiringContracts(c echo.Context) error {
	days := queryInt(c, "days", model.ExpiringSoonDays)
	contracts, err := h.svc.Contracts.FindExpiringWithin(c.Request().Context(), days)
	if err != nil {
		return err
	}
	return list(c, contracts, len(contracts))
}

// ExpiredContracts returns contracts past their end date
func (h *Handler) ExpiredContracts(c echo.Context) error {
	contracts, err := h.svc.Contracts.FindExpired(c.Request().Context())
	if err != nil {
		return err
	}
	return list(c, contracts, len(contracts))
}

// GetContract returns one contract with parties and payments
func (h *Handler) GetContract(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	contract, err := h.svc.Contracts.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return ok(c, "", contract)
}

// CreateContract signs a lease and bills its first month
func (h *Handler) CreateContract(c echo.Context) error {
	log := logger.FromEcho(c)

	var contract model.Contract
	if err := bind(c, &contract); err != nil {
		return err
	}
	if err := h.svc.Contracts.Create(c.Request().Context(), &contract); err != nil {
		log.Warn("Contract creation failed",
			zap.Uint("room_id", contract.RoomID),
			zap.Uint("tenant_id", contract.TenantID),
			zap.Error(err))
		return err
	}

	log.Info("Contract created",
		zap.Uint("contract_id", contract.ID),
		zap.String("contract_number", contract.ContractNumber))
	return created(c, "Tạo hợp đồng mới thành công", contract)
}

// UpdateContract changes the terms of a lease
func (h *Handler) UpdateContract(c echo.Context) error {
	log := logger.FromEcho(c)
	id, err := idParam(c)
	if err != nil {
		return err
	}

	patch, err := patchBody[model.Contract](c)
	if err != nil {
		return err
	}
	contract, err := h.svc.Contracts.Update(c.Request().Context(), id, patch)
	if err != nil {
		log.Warn("Contract update failed", zap.Uint("contract_id", id), zap.Error(err))
		return err
	}

	log.Info("Contract updated", zap.Uint("contract_id", id))
	return ok(c, "Cập nhật hợp đồng thành công", contract)
}

// RenewContract moves the end date forward
func (h *Handler) RenewContract(c echo.Context) error {
	log := logger.FromEcho(c)
	id, err := idParam(c)
	if err != nil {
		return err
	}

	var req RenewRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	contract, err := h.svc.Contracts.Renew(c.Request().Context(), id, req.NewEndDate.Time, req.Reason)
	if err != nil {
		log.Warn("Contract renewal refused", zap.Uint("contract_id", id), zap.Error(err))
		return err
	}

	log.Info("Contract renewed", zap.Uint("contract_id", id), zap.Time("end_date", contract.EndDate))
	return ok(c, "Gia hạn hợp đồng thành công", contract)
}

// TerminateContract ends a lease and frees the room
func (h *Handler) TerminateContract(c echo.Context) error {
	log := logger.FromEcho(c)
	id, err := idParam(c)
	if err != nil {
		return err
	}

	var req TerminateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	contract, err := h.svc.Contracts.Terminate(c.Request().Context(), id, req.Reason)
	if err != nil {
		log.Warn("Contract termination refused", zap.Uint("contract_id", id), zap.Error(err))
		return err
	}

	log.Info("Contract terminated", zap.Uint("contract_id", id))
	return ok(c, "Kết thúc hợp đồng thành công", contract)
}

// DeleteContract archives an inactive contract without payments
func (h *Handler) DeleteContract(c echo.Context) error {
	log := logger.FromEcho(c)
	id, err := idParam(c)
	if err != nil {
		return err
	}
	if err := h.svc.Contracts.Delete(c.Request().Context(), id); err != nil {
		log.Warn("Contract deletion refused", zap.Uint("contract_id", id), zap.Error(err))
		return err
	}
	log.Info("Contract deleted", zap.Uint("contract_id", id))
	return ok(c, "Xóa hợp đồng thành công", nil)
}

// ContractStats returns the contract overview
func (h *Handler) ContractStats(c echo.Context) error {
	stats, err := h.svc.Contracts.Stats(c.Request().Context())
	if err != nil {
		return err
	}
	return ok(c, "", stats)
}
