package handler

import (
	"rental-service/internal/model"
	"rental-service/internal/service"
	"rental-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ListRooms returns one page of rooms
func (h *Handler) ListRooms(c echo.Context) error {
	log := logger.FromEcho(c)

	f := service.RoomFilter{
		ListParams: listParams(c),
		Status:     c.QueryParam("status"),
		MinPrice:   queryDecimal(c, "minPrice"),
		MaxPrice:   queryDecimal(c, "maxPrice"),
	}
	if floor := queryInt(c, "floor", 0); floor != 0 {
		f.Floor = &floor
	}

	rooms, p, err := h.svc.Rooms.List(c.Request().Context(), f)
	if err != nil {
		return err
	}
	log.Info("Rooms listed", zap.Int("count", len(rooms)), zap.Int64("total", p.TotalItems))
	return page(c, rooms, p)
}

// AvailableRooms returns rooms that can be leased
func (h *Handler) AvailableRooms(c echo.Context) error {
	rooms, err := h.svc.Rooms.Available(c.Request().Context())
	if err != nil {
		return err
	}
	return list(c, rooms, len(rooms))
}

// GetRoom returns one room with its lease and billing history
func (h *Handler) GetRoom(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	room, err := h.svc.Rooms.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return ok(c, "", room)
}

// CreateRoom adds a room
func (h *Handler) CreateRoom(c echo.Context) error {
	log := logger.FromEcho(c)

	var room model.Room
	if err := bind(c, &room); err != nil {
		return err
	}
	if err := h.svc.Rooms.Create(c.Request().Context(), &room); err != nil {
		log.Warn("Room creation failed", zap.String("number", room.Number), zap.Error(err))
		return err
	}

	log.Info("Room created", zap.Uint("room_id", room.ID), zap.String("number", room.Number))
	return created(c, "Tạo phòng mới thành công", room)
}

// UpdateRoom replaces the editable fields of a room
func (h *Handler) UpdateRoom(c echo.Context) error {
	log := logger.FromEcho(c)
	id, err := idParam(c)
	if err != nil {
		return err
	}

	patch, err := patchBody[model.Room](c)
	if err != nil {
		return err
	}
	room, err := h.svc.Rooms.Update(c.Request().Context(), id, patch)
	if err != nil {
		log.Warn("Room update failed", zap.Uint("room_id", id), zap.Error(err))
		return err
	}

	log.Info("Room updated", zap.Uint("room_id", id))
	return ok(c, "Cập nhật phòng thành công", room)
}

// DeleteRoom archives an empty room
func (h *Handler) DeleteRoom(c echo.Context) error {
	log := logger.FromEcho(c)
	id, err := idParam(c)
	if err != nil {
		return err
	}
	if err := h.svc.Rooms.Delete(c.Request().Context(), id); err != nil {
		log.Warn("Room deletion refused", zap.Uint("room_id", id), zap.Error(err))
		return err
	}
	log.Info("Room deleted", zap.Uint("room_id", id))
	return ok(c, "Xóa phòng thành công", nil)
}

// RoomStats returns the room overview
func (h *Handler) RoomStats(c echo.Context) error {
	stats, err := h.svc.Rooms.Stats(c.Request().Context())
	if err != nil {
		return err
	}
	return ok(c, "", stats)
}
