package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"rental-service/internal/apperr"
	"rental-service/internal/model"
	"rental-service/internal/service"
	"rental-service/prometheus"

	"github.com/klauspost/compress/zip"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const restoreBatch = 200

// RestoreOptions control a restore
type RestoreOptions struct {
	// Files also extracts uploads/ into the uploads directory
	Files bool
}

// RestoreResult reports what was loaded
type RestoreResult struct {
	FileName string   `json:"fileName"`
	Metadata Metadata `json:"metadata"`
	Files    int      `json:"files"`
}

// Restore replaces every table with the content of the named archive. The
// database part runs in one transaction; sequence counters are raised to
// the highest restored codes before it commits.
func (m *Manager) Restore(ctx context.Context, name string, opts RestoreOptions) (res *RestoreResult, err error) {
	defer func() { prometheus.RecordBackupOperation("restore", err) }()

	_, rc, err := m.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	raw, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		return nil, errors.Wrap(err, "read archive")
	}

	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, apperr.Validation("fileName", "File backup bị hỏng")
	}
	snap, err := readSnapshot(zr)
	if err != nil {
		return nil, err
	}

	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return load(tx, snap)
	})
	if err != nil {
		return nil, errors.Wrap(err, "restore database")
	}

	res = &RestoreResult{FileName: name, Metadata: snap.Metadata}
	if opts.Files && m.opts.UploadsDir != "" {
		if res.Files, err = m.extractUploads(zr); err != nil {
			return nil, err
		}
	}

	m.log.Info("Backup restored",
		zap.String("file", name),
		zap.Int("rooms", len(snap.Rooms)),
		zap.Int("tenants", len(snap.Tenants)),
		zap.Int("contracts", len(snap.Contracts)),
		zap.Int("payments", len(snap.Payments)),
		zap.Int("notes", len(snap.Notes)),
		zap.Int("files", res.Files),
	)
	return res, nil
}

func readSnapshot(zr *zip.Reader) (*Snapshot, error) {
	for _, f := range zr.File {
		if f.Name != dataFile {
			continue
		}
		r, err := f.Open()
		if err != nil {
			return nil, errors.Wrap(err, "open data.json")
		}
		defer r.Close()

		var snap Snapshot
		if err := json.NewDecoder(r).Decode(&snap); err != nil {
			return nil, apperr.Validation("fileName", "data.json không hợp lệ")
		}
		if snap.Metadata.Version != FormatVersion {
			return nil, apperr.Validation("fileName", "Phiên bản backup không được hỗ trợ: "+snap.Metadata.Version)
		}
		return &snap, nil
	}
	return nil, apperr.Validation("fileName", "Thiếu data.json trong file backup")
}

// load wipes the tables and inserts the snapshot rows verbatim. Hooks are
// skipped so stored statuses and totals are not recomputed.
func load(tx *gorm.DB, snap *Snapshot) error {
	raw := tx.Session(&gorm.Session{SkipHooks: true, AllowGlobalUpdate: true})

	for _, m := range []interface{}{&model.Note{}, &model.Payment{}, &model.Contract{}, &model.Tenant{}, &model.Room{}, &model.SequenceCounter{}} {
		if err := raw.Delete(m).Error; err != nil {
			return errors.Wrapf(err, "clear %T", m)
		}
	}

	insert := func(what string, rows interface{}, n int) error {
		if n == 0 {
			return nil
		}
		err := raw.Omit(clause.Associations).CreateInBatches(rows, restoreBatch).Error
		return errors.Wrapf(err, "insert %s", what)
	}
	if err := insert("rooms", &snap.Rooms, len(snap.Rooms)); err != nil {
		return err
	}
	if err := insert("tenants", &snap.Tenants, len(snap.Tenants)); err != nil {
		return err
	}
	if err := insert("contracts", &snap.Contracts, len(snap.Contracts)); err != nil {
		return err
	}
	if err := insert("payments", &snap.Payments, len(snap.Payments)); err != nil {
		return err
	}
	if err := insert("notes", &snap.Notes, len(snap.Notes)); err != nil {
		return err
	}
	return service.ResyncSequences(tx)
}

func (m *Manager) extractUploads(zr *zip.Reader) (int, error) {
	root, err := filepath.Abs(m.opts.UploadsDir)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, f := range zr.File {
		if !strings.HasPrefix(f.Name, uploadsRoot) || strings.HasSuffix(f.Name, "/") {
			continue
		}
		rel := path.Clean(strings.TrimPrefix(f.Name, uploadsRoot))
		if rel == "." || strings.HasPrefix(rel, "../") || path.IsAbs(rel) {
			continue
		}
		dst := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return n, err
		}
		if err := extractFile(f, dst); err != nil {
			return n, errors.Wrapf(err, "extract %s", f.Name)
		}
		n++
	}
	return n, nil
}

func extractFile(f *zip.File, dst string) error {
	r, err := f.Open()
	if err != nil {
		return err
	}
	defer r.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
