// Package blob stores opaque objects (backup archives) on the local
// filesystem, in memory, or in an S3 compatible bucket.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"rental-service/pkg/config"
)

// Driver identifies a storage backend
type Driver string

const (
	DriverFilesystem Driver = "fs"
	DriverS3         Driver = "s3"
	DriverMemory     Driver = "memory"
)

// ErrNotFound is returned when a key does not exist
var ErrNotFound = errors.New("blob not found")

// ErrExists is returned by Put when the key is taken
var ErrExists = errors.New("blob already exists")

// Info describes a stored object
type Info struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"contentType,omitempty"`
	LastModified time.Time `json:"lastModified"`
}

// Store is the minimal object storage surface the backup manager needs
type Store interface {
	Driver() Driver
	// Put creates key; it never overwrites
	Put(ctx context.Context, key string, r io.Reader, contentType string) (Info, error)
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Head(ctx context.Context, key string) (Info, error)
	// Delete reports whether the key existed
	Delete(ctx context.Context, key string) (bool, error)
	// List returns objects under prefix sorted by key
	List(ctx context.Context, prefix string) ([]Info, error)
}

// Open builds the store selected by cfg.Driver
func Open(ctx context.Context, cfg config.BackupConfig) (Store, error) {
	switch Driver(cfg.Driver) {
	case DriverFilesystem, "":
		return NewFS(cfg.Directory)
	case DriverS3:
		return NewS3(ctx, S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			PathStyle: cfg.S3PathStyle,
		})
	case DriverMemory:
		return NewMemory(), nil
	}
	return nil, fmt.Errorf("unsupported blob driver %q", cfg.Driver)
}
