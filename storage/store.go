// Package storage holds the external object-store collaborator that keeps
// blog cover images. The core only depends on the ImageStore interface;
// deletion must be invoked explicitly when a cover is replaced or its blog
// removed, and a failed Destroy is never fatal to the calling operation.
package storage

import (
	"context"
	"io"
)

// Image identifies one stored object: a stable public URL plus the store-side
// identifier needed to destroy it later.
type Image struct {
	URL string `json:"url"`
	ID  string `json:"id"`
}

// ImageStore uploads and destroys image objects.
type ImageStore interface {
	Upload(ctx context.Context, r io.Reader, contentType, folder string) (Image, error)
	Destroy(ctx context.Context, id string) error
}
