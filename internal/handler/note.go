package handler

import (
	"rental-service/internal/model"
	"rental-service/internal/service"
	"rental-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ReminderRequest schedules a note reminder
type ReminderRequest struct {
	ReminderDate Date `json:"reminderDate"`
}

// ListNotes returns one page of notes
func (h *Handler) ListNotes(c echo.Context) error {
	f := service.NoteFilter{
		ListParams:  listParams(c),
		Category:    c.QueryParam("category"),
		Priority:    c.QueryParam("priority"),
		Tag:         c.QueryParam("tag"),
		RelatedType: c.QueryParam("relatedType"),
		RelatedID:   queryUint(c, "relatedId"),
		IsCompleted: queryBool(c, "isCompleted"),
		IsReminder:  queryBool(c, "isReminder"),
	}
	notes, p, err := h.svc.Notes.List(c.Request().Context(), f)
	if err != nil {
		return err
	}
	return page(c, notes, p)
}

// ImportantNotes returns open notes flagged important or urgent
func (h *Handler) ImportantNotes(c echo.Context) error {
	notes, err := h.svc.Notes.Important(c.Request().Context())
	if err != nil {
		return err
	}
	return list(c, notes, len(notes))
}

// DueReminders returns reminders whose time has come
func (h *Handler) DueReminders(c echo.Context) error {
	notes, err := h.svc.Notes.DueReminders(c.Request().Context())
	if err != nil {
		return err
	}
	return list(c, notes, len(notes))
}

// NotesByCategory returns the notes of one category
func (h *Handler) NotesByCategory(c echo.Context) error {
	notes, err := h.svc.Notes.ByCategory(c.Request().Context(), model.NoteCategory(c.Param("category")))
	if err != nil {
		return err
	}
	return list(c, notes, len(notes))
}

// NotesByTag returns the notes carrying a tag
func (h *Handler) NotesByTag(c echo.Context) error {
	notes, err := h.svc.Notes.ByTag(c.Request().Context(), c.Param("tag"))
	if err != nil {
		return err
	}
	return list(c, notes, len(notes))
}

// GetNote returns one note
func (h *Handler) GetNote(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	note, err := h.svc.Notes.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return ok(c, "", note)
}

// CreateNote adds a note
func (h *Handler) CreateNote(c echo.Context) error {
	var note model.Note
	if err := bind(c, &note); err != nil {
		return err
	}
	if err := h.svc.Notes.Create(c.Request().Context(), &note); err != nil {
		return err
	}
	logger.FromEcho(c).Info("Note created", zap.Uint("note_id", note.ID), zap.String("category", string(note.Category)))
	return created(c, "Tạo ghi chú mới thành công", note)
}

// UpdateNote edits a note
func (h *Handler) UpdateNote(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	patch, err := patchBody[model.Note](c)
	if err != nil {
		return err
	}
	note, err := h.svc.Notes.Update(c.Request().Context(), id, patch)
	if err != nil {
		return err
	}
	return ok(c, "Cập nhật ghi chú thành công", note)
}

// CompleteNote marks a note done
func (h *Handler) CompleteNote(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	note, err := h.svc.Notes.Complete(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return ok(c, "Đánh dấu ghi chú hoàn thành thành công", note)
}

// SetReminder schedules a reminder on a note
func (h *Handler) SetReminder(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var req ReminderRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	note, err := h.svc.Notes.SetReminder(c.Request().Context(), id, req.ReminderDate.Time)
	if err != nil {
		return err
	}
	logger.FromEcho(c).Info("Reminder set", zap.Uint("note_id", id), zap.Time("at", req.ReminderDate.Time))
	return ok(c, "Đặt nhắc nhở thành công", note)
}

// CancelReminder clears a note's reminder
func (h *Handler) CancelReminder(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	note, err := h.svc.Notes.CancelReminder(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return ok(c, "Hủy nhắc nhở thành công", note)
}

// DeleteNote archives a note
func (h *Handler) DeleteNote(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	if err := h.svc.Notes.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	logger.FromEcho(c).Info("Note deleted", zap.Uint("note_id", id))
	return ok(c, "Xóa ghi chú thành công", nil)
}

// NoteStats returns the notes overview
func (h *Handler) NoteStats(c echo.Context) error {
	stats, err := h.svc.Notes.Stats(c.Request().Context())
	if err != nil {
		return err
	}
	return ok(c, "", stats)
}
