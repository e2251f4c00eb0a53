// Package imagehost uploads avatar images to third-party image hosts.
package imagehost

import (
	"context"

	"github.com/anjiri1684/stuplan/models"
)

const (
	ProviderImgur      = "imgur"
	ProviderCloudinary = "cloudinary"
)

// UploadRecorder keeps track of uploaded images so orphans can be removed later.
type UploadRecorder interface {
	Record(ctx context.Context, upload *models.AvatarUpload) error
}

// Remover deletes a previously uploaded image by its provider-specific id.
type Remover interface {
	Provider() string
	Delete(ctx context.Context, remoteID string) error
}
