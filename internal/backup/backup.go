// Package backup snapshots the database and uploaded files into zip
// archives kept in a blob store, and restores them.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"rental-service/internal/apperr"
	"rental-service/internal/model"
	"rental-service/pkg/blob"
	"rental-service/prometheus"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	FormatVersion      = "1.0.0"
	DefaultDescription = "Backup tự động"

	namePrefix = "backup_"
	nameSuffix = ".zip"
	nameLayout = "20060102_150405"
	infoLayout = "02/01/2006 15:04:05"

	dataFile    = "data.json"
	readmeFile  = "README.md"
	uploadsRoot = "uploads/"

	msgNotFound    = "File backup không tồn tại"
	msgInvalidName = "File không hợp lệ"
)

var namePattern = regexp.MustCompile(`^backup_(\d{8}_\d{6})\.zip$`)

// Options configure a Manager
type Options struct {
	UploadsDir    string
	RetentionDays int
	Location      *time.Location
}

// Manager creates, lists and restores archives
type Manager struct {
	db    *gorm.DB
	store blob.Store
	opts  Options
	log   *zap.Logger
	now   func() time.Time
}

// New returns a manager writing archives to store
func New(db *gorm.DB, store blob.Store, opts Options, log *zap.Logger) *Manager {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.RetentionDays <= 0 {
		opts.RetentionDays = 30
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{db: db, store: store, opts: opts, log: log, now: model.Now}
}

// RetentionDays is the configured archive lifetime
func (m *Manager) RetentionDays() int { return m.opts.RetentionDays }

// Store exposes the archive store for health checks
func (m *Manager) Store() blob.Store { return m.store }

// Counts is the number of rows per collection in an archive
type Counts struct {
	Rooms     int `json:"rooms"`
	Tenants   int `json:"tenants"`
	Contracts int `json:"contracts"`
	Payments  int `json:"payments"`
	Notes     int `json:"notes"`
}

// Metadata heads data.json
type Metadata struct {
	CreatedAt   time.Time `json:"createdAt"`
	Version     string    `json:"version"`
	Description string    `json:"description"`
	Stats       Counts    `json:"stats"`
}

// Snapshot is the content of data.json. Archived (soft-deleted) rows are
// kept so references between collections survive a restore.
type Snapshot struct {
	Metadata  Metadata         `json:"metadata"`
	Rooms     []model.Room     `json:"rooms"`
	Tenants   []model.Tenant   `json:"tenants"`
	Contracts []model.Contract `json:"contracts"`
	Payments  []model.Payment  `json:"payments"`
	Notes     []model.Note     `json:"notes"`
}

func (s *Snapshot) count() {
	c := Counts{}
	for _, r := range s.Rooms {
		if r.IsActive {
			c.Rooms++
		}
	}
	for _, t := range s.Tenants {
		if t.IsActive {
			c.Tenants++
		}
	}
	for _, ct := range s.Contracts {
		if ct.IsActive {
			c.Contracts++
		}
	}
	for _, p := range s.Payments {
		if p.IsActive {
			c.Payments++
		}
	}
	for _, n := range s.Notes {
		if n.IsActive {
			c.Notes++
		}
	}
	s.Metadata.Stats = c
}

// CreateOptions control one archive
type CreateOptions struct {
	IncludeFiles bool
	Description  string
}

// Result describes a freshly written archive
type Result struct {
	FileName  string    `json:"fileName"`
	FileSize  int64     `json:"fileSize"`
	SizeText  string    `json:"sizeText"`
	CreatedAt time.Time `json:"createdAt"`
	Stats     Counts    `json:"stats"`
}

// ValidName reports whether name looks like an archive this manager wrote
func ValidName(name string) bool {
	return strings.HasPrefix(name, namePrefix) && strings.HasSuffix(name, nameSuffix) &&
		!strings.ContainsAny(name, `/\`) && !strings.Contains(name, "..")
}

func checkName(name string) error {
	if !ValidName(name) {
		return apperr.Validation("fileName", msgInvalidName)
	}
	return nil
}

func (m *Manager) snapshot(ctx context.Context) (*Snapshot, error) {
	defer prometheus.TrackDBOperation("backup_snapshot")(time.Now())

	s := &Snapshot{}
	db := m.db.WithContext(ctx).Order("id asc")
	if err := db.Find(&s.Rooms).Error; err != nil {
		return nil, errors.Wrap(err, "load rooms")
	}
	if err := db.Find(&s.Tenants).Error; err != nil {
		return nil, errors.Wrap(err, "load tenants")
	}
	if err := db.Find(&s.Contracts).Error; err != nil {
		return nil, errors.Wrap(err, "load contracts")
	}
	if err := db.Find(&s.Payments).Error; err != nil {
		return nil, errors.Wrap(err, "load payments")
	}
	if err := db.Find(&s.Notes).Error; err != nil {
		return nil, errors.Wrap(err, "load notes")
	}
	s.count()
	return s, nil
}

func readme(at time.Time, description string, c Counts) string {
	return fmt.Sprintf(`# Backup dữ liệu hệ thống quản lý phòng trọ

## Thông tin backup
- Thời gian: %s
- Mô tả: %s
- Phiên bản: %s

## Thống kê dữ liệu
- Phòng: %d
- Khách thuê: %d
- Hợp đồng: %d
- Thanh toán: %d
- Ghi chú: %d

## Cấu trúc file
- data.json: Dữ liệu database
- uploads/: File tải lên (hình ảnh, tài liệu)

## Cách khôi phục
rentalctl backup restore <file>
`, at.Format(infoLayout), description, FormatVersion, c.Rooms, c.Tenants, c.Contracts, c.Payments, c.Notes)
}

// Create writes a new archive named after the current time
func (m *Manager) Create(ctx context.Context, opts CreateOptions) (res *Result, err error) {
	defer func() { prometheus.RecordBackupOperation("create", err) }()

	now := m.now().In(m.opts.Location)
	name := namePrefix + now.Format(nameLayout) + nameSuffix
	if opts.Description == "" {
		opts.Description = DefaultDescription
	}

	snap, err := m.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	snap.Metadata = Metadata{
		CreatedAt:   now.UTC(),
		Version:     FormatVersion,
		Description: opts.Description,
		Stats:       snap.Metadata.Stats,
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.BestCompression)
	})

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "encode snapshot")
	}
	if err := writeEntry(zw, dataFile, now, data); err != nil {
		return nil, err
	}
	if opts.IncludeFiles && m.opts.UploadsDir != "" {
		if err := m.addUploads(zw, now); err != nil {
			return nil, err
		}
	}
	if err := writeEntry(zw, readmeFile, now, []byte(readme(now, opts.Description, snap.Metadata.Stats))); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, errors.Wrap(err, "finish archive")
	}

	info, err := m.store.Put(ctx, name, &buf, "application/zip")
	if errors.Is(err, blob.ErrExists) {
		return nil, apperr.Precondition("Backup đang được tạo, vui lòng thử lại sau")
	}
	if err != nil {
		return nil, errors.Wrap(err, "store archive")
	}

	m.log.Info("Backup created",
		zap.String("file", name),
		zap.Int64("size", info.Size),
		zap.Int("rooms", snap.Metadata.Stats.Rooms),
		zap.Int("payments", snap.Metadata.Stats.Payments),
	)
	return &Result{
		FileName:  name,
		FileSize:  info.Size,
		SizeText:  humanize.Bytes(uint64(info.Size)),
		CreatedAt: now.UTC(),
		Stats:     snap.Metadata.Stats,
	}, nil
}

func writeEntry(zw *zip.Writer, name string, at time.Time, data []byte) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: at})
	if err != nil {
		return errors.Wrapf(err, "add %s", name)
	}
	_, err = w.Write(data)
	return errors.Wrapf(err, "write %s", name)
}

func (m *Manager) addUploads(zw *zip.Writer, at time.Time) error {
	root := m.opts.UploadsDir
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil
	}
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrapf(err, "read upload %s", rel)
		}
		return writeEntry(zw, uploadsRoot+filepath.ToSlash(rel), at, data)
	})
}

// Entry is one archive in a listing
type Entry struct {
	FileName   string    `json:"fileName"`
	FileSize   int64     `json:"fileSize"`
	SizeText   string    `json:"sizeText"`
	ModifiedAt time.Time `json:"modifiedAt"`
	Timestamp  string    `json:"timestamp,omitempty"`
}

// Listing is every archive, newest first
type Listing struct {
	Backups   []Entry `json:"backups"`
	Total     int     `json:"total"`
	TotalSize int64   `json:"totalSize"`
}

func (m *Manager) archives(ctx context.Context) ([]blob.Info, error) {
	infos, err := m.store.List(ctx, namePrefix)
	if err != nil {
		return nil, errors.Wrap(err, "list archives")
	}
	out := infos[:0]
	for _, info := range infos {
		if ValidName(info.Key) {
			out = append(out, info)
		}
	}
	return out, nil
}

func entryFor(info blob.Info) Entry {
	e := Entry{
		FileName:   info.Key,
		FileSize:   info.Size,
		SizeText:   humanize.Bytes(uint64(info.Size)),
		ModifiedAt: info.LastModified,
	}
	if match := namePattern.FindStringSubmatch(info.Key); match != nil {
		e.Timestamp = match[1]
	}
	return e
}

// List returns every archive sorted newest first
func (m *Manager) List(ctx context.Context) (*Listing, error) {
	infos, err := m.archives(ctx)
	if err != nil {
		return nil, err
	}
	l := &Listing{Backups: make([]Entry, 0, len(infos))}
	for _, info := range infos {
		l.Backups = append(l.Backups, entryFor(info))
		l.TotalSize += info.Size
	}
	// names embed the timestamp so lexical order is chronological
	sort.Slice(l.Backups, func(i, j int) bool { return l.Backups[i].FileName > l.Backups[j].FileName })
	l.Total = len(l.Backups)
	return l, nil
}

// Info describes one archive
type Info struct {
	FileName   string    `json:"fileName"`
	FileSize   int64     `json:"fileSize"`
	SizeText   string    `json:"sizeText"`
	ModifiedAt time.Time `json:"modifiedAt"`
	Timestamp  *string   `json:"timestamp"`
	IsValid    bool      `json:"isValid"`
}

// Info reads the metadata of name without downloading it
func (m *Manager) Info(ctx context.Context, name string) (*Info, error) {
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return nil, apperr.Validation("fileName", msgInvalidName)
	}
	info, err := m.store.Head(ctx, name)
	if errors.Is(err, blob.ErrNotFound) {
		return nil, apperr.NotFound(msgNotFound)
	}
	if err != nil {
		return nil, errors.Wrap(err, "stat archive")
	}

	out := &Info{
		FileName:   name,
		FileSize:   info.Size,
		SizeText:   humanize.Bytes(uint64(info.Size)),
		ModifiedAt: info.LastModified,
		IsValid:    ValidName(name),
	}
	if match := namePattern.FindStringSubmatch(name); match != nil {
		if at, err := time.ParseInLocation(nameLayout, match[1], m.opts.Location); err == nil {
			ts := at.Format(infoLayout)
			out.Timestamp = &ts
		}
	}
	return out, nil
}

// Open streams an archive. The caller closes the reader.
func (m *Manager) Open(ctx context.Context, name string) (blob.Info, io.ReadCloser, error) {
	if err := checkName(name); err != nil {
		return blob.Info{}, nil, err
	}
	info, rc, err := m.store.Get(ctx, name)
	if errors.Is(err, blob.ErrNotFound) {
		return blob.Info{}, nil, apperr.NotFound(msgNotFound)
	}
	if err != nil {
		return blob.Info{}, nil, errors.Wrap(err, "open archive")
	}
	return info, rc, nil
}

// Delete removes an archive
func (m *Manager) Delete(ctx context.Context, name string) (err error) {
	defer func() { prometheus.RecordBackupOperation("delete", err) }()

	if err := checkName(name); err != nil {
		return err
	}
	existed, err := m.store.Delete(ctx, name)
	if err != nil {
		return errors.Wrap(err, "delete archive")
	}
	if !existed {
		return apperr.NotFound(msgNotFound)
	}
	m.log.Info("Backup deleted", zap.String("file", name))
	return nil
}

// CleanupResult reports a retention sweep
type CleanupResult struct {
	DeletedCount  int       `json:"deletedCount"`
	DeletedSize   int64     `json:"deletedSize"`
	RetentionDays int       `json:"retentionDays"`
	CutoffDate    time.Time `json:"cutoffDate"`
}

// Cleanup deletes archives last modified more than retentionDays ago.
// A non-positive value uses the configured retention.
func (m *Manager) Cleanup(ctx context.Context, retentionDays int) (res *CleanupResult, err error) {
	defer func() { prometheus.RecordBackupOperation("cleanup", err) }()

	if retentionDays <= 0 {
		retentionDays = m.opts.RetentionDays
	}
	res = &CleanupResult{
		RetentionDays: retentionDays,
		CutoffDate:    m.now().AddDate(0, 0, -retentionDays).UTC(),
	}

	infos, err := m.archives(ctx)
	if err != nil {
		return nil, err
	}
	for _, info := range infos {
		if !info.LastModified.Before(res.CutoffDate) {
			continue
		}
		existed, err := m.store.Delete(ctx, info.Key)
		if err != nil {
			return nil, errors.Wrapf(err, "delete %s", info.Key)
		}
		if existed {
			res.DeletedCount++
			res.DeletedSize += info.Size
			m.log.Info("Old backup deleted", zap.String("file", info.Key))
		}
	}

	m.log.Info("Backup cleanup finished",
		zap.Int("deleted", res.DeletedCount),
		zap.Int64("bytes", res.DeletedSize),
		zap.Int("retention_days", retentionDays),
	)
	return res, nil
}

// Mark names one archive in the stats
type Mark struct {
	FileName   string    `json:"fileName"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

// Stats summarizes the archive store
type Stats struct {
	TotalBackups  int    `json:"totalBackups"`
	TotalSize     int64  `json:"totalSize"`
	TotalSizeText string `json:"totalSizeText"`
	AverageSize   int64  `json:"averageSize"`
	OldestBackup  *Mark  `json:"oldestBackup"`
	NewestBackup  *Mark  `json:"newestBackup"`
	Driver        string `json:"driver"`
	RetentionDays int    `json:"retentionDays"`
}

// Stats reports totals over every archive
func (m *Manager) Stats(ctx context.Context) (*Stats, error) {
	infos, err := m.archives(ctx)
	if err != nil {
		return nil, err
	}
	s := &Stats{
		TotalBackups:  len(infos),
		Driver:        string(m.store.Driver()),
		RetentionDays: m.opts.RetentionDays,
	}
	for _, info := range infos {
		s.TotalSize += info.Size
		mark := &Mark{FileName: info.Key, ModifiedAt: info.LastModified}
		if s.OldestBackup == nil || info.Key < s.OldestBackup.FileName {
			s.OldestBackup = mark
		}
		if s.NewestBackup == nil || info.Key > s.NewestBackup.FileName {
			s.NewestBackup = mark
		}
	}
	if s.TotalBackups > 0 {
		s.AverageSize = (s.TotalSize + int64(s.TotalBackups)/2) / int64(s.TotalBackups)
	}
	s.TotalSizeText = humanize.Bytes(uint64(s.TotalSize))
	return s, nil
}
