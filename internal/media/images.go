package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"net/http"
	"strings"

	"campusmarket/backend/internal/apperr"
	"campusmarket/backend/internal/config"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

var allowedTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
}

// Images turns an uploaded listing photo into a stored original and a
// thumbnail.
type Images struct {
	store Uploader
}

// NewImages returns nil when store is nil, which disables image uploads.
func NewImages(store Uploader) *Images {
	if store == nil {
		return nil
	}
	return &Images{store: store}
}

// Stored holds the public URLs of a saved image.
type Stored struct {
	URL          string
	ThumbnailURL string
}

// SaveItemImage decodes a base64 image (optionally a data: URL) uploaded by
// sellerID and stores it with a JPEG thumbnail.
func (im *Images) SaveItemImage(ctx context.Context, sellerID, encoded string) (*Stored, error) {
	if im == nil {
		return nil, apperr.Validation("image uploads are disabled")
	}

	data, err := decodeBase64(encoded)
	if err != nil {
		return nil, apperr.Validation("image must be base64 encoded")
	}
	if len(data) == 0 {
		return nil, apperr.Validation("image is empty")
	}
	if len(data) > config.MaxImageBytes {
		return nil, apperr.Validation("image is too large")
	}

	contentType := http.DetectContentType(data)
	ext, ok := allowedTypes[contentType]
	if !ok {
		return nil, apperr.Validation("image must be JPEG, PNG or GIF")
	}

	thumb, err := Thumbnail(data, config.ThumbnailWidth)
	if err != nil {
		return nil, apperr.Validation("image could not be decoded")
	}

	key := "items/" + sellerID + "/" + uuid.NewString()
	url, err := im.store.Upload(ctx, key+"."+ext, contentType, data)
	if err != nil {
		return nil, apperr.Unavailable("failed to store image", err)
	}
	thumbURL, err := im.store.Upload(ctx, key+"_thumb.jpg", "image/jpeg", thumb)
	if err != nil {
		return nil, apperr.Unavailable("failed to store image", err)
	}
	return &Stored{URL: url, ThumbnailURL: thumbURL}, nil
}

// Thumbnail resizes an image to width, keeping the aspect ratio, and encodes
// it as JPEG. Images narrower than width are not enlarged.
func Thumbnail(data []byte, width int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}
	if img.Bounds().Dx() > width {
		img = imaging.Resize(img, width, 0, imaging.Lanczos)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(80)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeBase64(s string) ([]byte, error) {
	if strings.HasPrefix(s, "data:") {
		if i := strings.Index(s, ","); i >= 0 {
			s = s[i+1:]
		}
	}
	s = strings.TrimSpace(s)
	if data, err := base64.StdEncoding.DecodeString(s); err == nil {
		return data, nil
	}
	return base64.RawStdEncoding.DecodeString(s)
}
