package service

import (
	"context"
	"net/http"
	"strings"
)

// UploadedAsset identifies an image stored on the asset host.
type UploadedAsset struct {
	URL     string
	AssetID string
}

// AssetStore is the external image host. Calls are remote and not retried.
type AssetStore interface {
	Upload(ctx context.Context, data []byte, contentType string) (*UploadedAsset, error)
	Delete(ctx context.Context, assetID string) error
}

// ImageModerator screens an image before it is uploaded. It returns
// utils.ErrImageRejected (wrapped) for images that must not be published.
type ImageModerator interface {
	Check(ctx context.Context, data []byte) error
}

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// detectImageType sniffs data and returns its content type and file
// extension. ok is false for anything that is not a supported image.
func detectImageType(data []byte) (contentType, ext string, ok bool) {
	contentType = http.DetectContentType(data)
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	ext, ok = imageExtensions[contentType]
	return contentType, ext, ok
}
