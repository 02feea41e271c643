package service

import (
	"context"
	"io"

	"github.com/aryan0dhankhar/grievanceportal/internal/imagestore"
)

// ImageStore persists and removes uploaded pictures
type ImageStore interface {
	Store(ctx context.Context, kind imagestore.Kind, originalFilename string, body io.Reader, transform imagestore.Transform) (string, error)
	Delete(ctx context.Context, kind imagestore.Kind, name string) error
}

// Upload is a picture sent with a form. A nil *Upload means no picture.
type Upload struct {
	Filename string
	Body     io.Reader
}

// discardImage removes a stored picture that lost its owning record, logging
// rather than returning failures.
func discardImage(ctx context.Context, images ImageStore, kind imagestore.Kind, name string, log func(string, ...any)) {
	if name == "" {
		return
	}
	if err := images.Delete(context.WithoutCancel(ctx), kind, name); err != nil {
		log("failed to remove image", "kind", string(kind), "name", name, "error", err.Error())
	}
}
