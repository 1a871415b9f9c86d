package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"rental-service/internal/backup"
	"rental-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// CreateBackupRequest controls one archive. IncludeFiles defaults to true.
type CreateBackupRequest struct {
	IncludeFiles *bool  `json:"includeFiles"`
	Description  string `json:"description" validate:"max=200"`
}

// CleanupRequest overrides the configured retention
type CleanupRequest struct {
	RetentionDays *int `json:"retentionDays" validate:"omitempty,min=1,max=3650"`
}

// CreateBackup writes a new archive
func (h *Handler) CreateBackup(c echo.Context) error {
	var req CreateBackupRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	opts := backup.CreateOptions{IncludeFiles: true, Description: req.Description}
	if req.IncludeFiles != nil {
		opts.IncludeFiles = *req.IncludeFiles
	}

	res, err := h.backups.Create(c.Request().Context(), opts)
	if err != nil {
		return err
	}
	logger.FromEcho(c).Info("Backup created",
		zap.String("file", res.FileName),
		zap.Int64("size", res.FileSize))
	return ok(c, "Tạo backup thành công", res)
}

// ListBackups lists archives newest first
func (h *Handler) ListBackups(c echo.Context) error {
	l, err := h.backups.List(c.Request().Context())
	if err != nil {
		return err
	}
	return ok(c, "", l)
}

// DownloadBackup streams one archive as an attachment
func (h *Handler) DownloadBackup(c echo.Context) error {
	name := c.Param("fileName")
	info, rc, err := h.backups.Open(c.Request().Context(), name)
	if err != nil {
		return err
	}
	defer rc.Close()

	res := c.Response()
	res.Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	if info.Size > 0 {
		res.Header().Set(echo.HeaderContentLength, strconv.FormatInt(info.Size, 10))
	}
	logger.FromEcho(c).Info("Backup downloaded", zap.String("file", name))
	return c.Stream(http.StatusOK, "application/zip", rc)
}

// DeleteBackup removes one archive
func (h *Handler) DeleteBackup(c echo.Context) error {
	name := c.Param("fileName")
	if err := h.backups.Delete(c.Request().Context(), name); err != nil {
		return err
	}
	logger.FromEcho(c).Info("Backup deleted", zap.String("file", name))
	return ok(c, "Xóa backup thành công", nil)
}

// CleanupBackups removes archives older than the retention period
func (h *Handler) CleanupBackups(c echo.Context) error {
	var req CleanupRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	days := h.backups.RetentionDays()
	if req.RetentionDays != nil {
		days = *req.RetentionDays
	}

	res, err := h.backups.Cleanup(c.Request().Context(), days)
	if err != nil {
		return err
	}
	return ok(c, "Dọn dẹp backup thành công", res)
}

// BackupInfo describes one archive
func (h *Handler) BackupInfo(c echo.Context) error {
	info, err := h.backups.Info(c.Request().Context(), c.Param("fileName"))
	if err != nil {
		return err
	}
	return ok(c, "", info)
}

// BackupStats summarizes the archive store
func (h *Handler) BackupStats(c echo.Context) error {
	stats, err := h.backups.Stats(c.Request().Context())
	if err != nil {
		return err
	}
	return ok(c, "", stats)
}
