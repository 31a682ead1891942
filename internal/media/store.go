package media

import (
	"context"
	"errors"
	"io"
	"mime"
	"strings"
)

var (
	ErrNotFound        = errors.New("media: object not found")
	ErrUnsupportedType = errors.New("media: unsupported image type")
)

// imageExts are the raster formats accepted for upload. Script-capable
// formats such as SVG are refused.
var imageExts = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// AllowedImage reports whether contentType names an accepted raster image.
func AllowedImage(contentType string) bool {
	_, ok := imageExts[normalizeType(contentType)]
	return ok
}

func normalizeType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return strings.ToLower(mt)
}

// Object identifies a stored image. PublicID is what callers keep to destroy
// it later.
type Object struct {
	PublicID    string `json:"public_id"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
}

type Store interface {
	Save(ctx context.Context, folder, contentType string, r io.Reader) (Object, error)
	Open(ctx context.Context, publicID string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, publicID string) error
}
