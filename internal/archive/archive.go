// Package archive stores uploaded workbooks so an import can be audited or
// replayed. Three drivers are provided: local filesystem for development,
// S3 for deployments, and an in-process memory store for tests.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"finstmt/internal/config"

	"github.com/google/uuid"
)

// Driver identifies an archive backend.
type Driver string

const (
	DriverFilesystem Driver = "fs"
	DriverS3         Driver = "s3"
	DriverMemory     Driver = "memory"
)

// ErrNotFound is returned when the requested key holds no object.
var ErrNotFound = errors.New("archive: object not found")

// Info describes a stored workbook.
type Info struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"contentType,omitempty"`
	LastModified time.Time `json:"lastModified"`
}

// Store is the driver contract. Keys are slash-separated relative paths.
type Store interface {
	Driver() Driver
	Put(ctx context.Context, key string, r io.Reader, contentType string) (Info, error)
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]Info, error)
	Delete(ctx context.Context, key string) error
}

// ImportKey builds the archive key for a newly uploaded workbook.
func ImportKey() string {
	return "imports/" + uuid.NewString() + ".xlsx"
}

// Open constructs the configured driver.
func Open(ctx context.Context, cfg config.Config) (Store, error) {
	switch Driver(cfg.BlobDriver) {
	case DriverFilesystem, "":
		return NewFilesystem(cfg.BlobFSRoot)
	case DriverS3:
		return NewS3(ctx, S3Config{
			Bucket:   cfg.S3Bucket,
			Region:   cfg.S3Region,
			Endpoint: cfg.S3Endpoint,
		})
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown archive driver %q", cfg.BlobDriver)
	}
}
