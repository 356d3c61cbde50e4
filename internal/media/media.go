// Package media stores product images in object storage.
package media

import (
	"context"
	"io"
	"mime"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
)

// CacheControl is attached to every stored object.
const CacheControl = "max-age=3600"

// Sentinel errors for uploads.
var (
	ErrExists          = errors.New("object already exists")
	ErrUnsupportedType = errors.New("unsupported image content type")
)

// Object is a stored file.
type Object struct {
	Key string
	URL string
}

// Uploader writes objects. Implementations never overwrite an existing key
// and report ErrExists instead.
type Uploader interface {
	Put(ctx context.Context, key, contentType string, body io.Reader) (Object, error)
}

// ProductImageKey returns the key of an image uploaded for a product at t.
func ProductImageKey(productID, filename, contentType string, t time.Time) string {
	ext := strings.ToLower(path.Ext(filename))
	if ext == "" {
		if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
			ext = exts[0]
		} else {
			ext = ".bin"
		}
	}
	return "products/" + productID + "-" + strconv.FormatInt(t.UnixMilli(), 10) + ext
}

// ProductImages uploads product images through an Uploader.
type ProductImages struct {
	uploader Uploader
	now      func() time.Time
}

// NewProductImages creates ProductImages.
func NewProductImages(u Uploader) *ProductImages {
	return &ProductImages{uploader: u, now: time.Now}
}

// UploadImage stores the image and returns its public URL.
func (p *ProductImages) UploadImage(ctx context.Context, productID, filename, contentType string, body io.Reader) (string, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "image/") {
		return "", ErrUnsupportedType
	}

	obj, err := p.uploader.Put(ctx, ProductImageKey(productID, filename, mediaType, p.now()), mediaType, body)
	if err != nil {
		return "", errors.Wrap(err, "put object")
	}
	return obj.URL, nil
}
