// Package archive defines where generated PDF reports are kept once produced.
// Backends live in the fs and s3 subpackages.
package archive

import (
	"context"
	"errors"
	"io"
	"time"
)

// Driver identifies a concrete archive backend
type Driver string

const (
	// DriverFilesystem keeps reports under a local directory
	DriverFilesystem Driver = "fs"
	// DriverS3 keeps reports in an S3 or MinIO bucket
	DriverS3 Driver = "s3"
)

var (
	// ErrNotFound is returned when a key does not exist in the archive
	ErrNotFound = errors.New("archive: object not found")
	// ErrInvalidKey is returned for keys a backend refuses to address
	ErrInvalidKey = errors.New("archive: invalid key")
)

// PutOptions specifies optional parameters for Put
type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

// Info describes an archived report
type Info struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size_bytes"`
	ContentType  string            `json:"content_type,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	LastModified time.Time         `json:"last_modified"`
}

// Store keeps report bytes under opaque keys
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]Info, error)
	Delete(ctx context.Context, key string) (bool, error)
	Driver() Driver
}
