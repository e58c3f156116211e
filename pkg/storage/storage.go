// Package storage uploads files to S3-compatible object storage and hands back
// time-limited download URLs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"
)

// ObjectStore is the object storage contract the handlers depend on
type ObjectStore interface {
	// Put stores body under key and returns a download URL
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
	// PutFile stores the local file at filePath under key and returns a download URL
	PutFile(ctx context.Context, key, filePath, contentType string) (string, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// ErrDisabled is returned by Disabled for every operation
var ErrDisabled = errors.New("storage: object storage is not configured")

// Common key prefixes
const (
	PrefixLogos         = "logos"
	PrefixProductImages = "product-images"
	PrefixInventory     = "inventory"
)

// Content types used for uploads
const (
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ObjectKey builds "<prefix>/<yyyymmddHHMMSS>_<filename>". Only the base name of
// filename is kept.
func ObjectKey(prefix, filename string, now time.Time) string {
	name := fmt.Sprintf("%s_%s", now.Format("20060102150405"), path.Base(filename))
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

// Disabled is used when no storage credentials are configured
type Disabled struct{}

func (Disabled) Put(context.Context, string, io.Reader, int64, string) (string, error) {
	return "", ErrDisabled
}

func (Disabled) PutFile(context.Context, string, string, string) (string, error) {
	return "", ErrDisabled
}

func (Disabled) Delete(context.Context, string) error {
	return ErrDisabled
}
