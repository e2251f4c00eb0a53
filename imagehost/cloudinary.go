package imagehost

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/anjiri1684/stuplan/models"
	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const avatarFolder = "stuplan_avatars"

type Cloudinary struct {
	cld      *cloudinary.Cloudinary
	recorder UploadRecorder
	log      *zap.Logger
}

func NewCloudinary(cloudinaryURL string, recorder UploadRecorder, log *zap.Logger) (*Cloudinary, error) {
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("initialize cloudinary: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Cloudinary{cld: cld, recorder: recorder, log: log}, nil
}

func (c *Cloudinary) Provider() string { return ProviderCloudinary }

func (c *Cloudinary) Upload(ctx context.Context, userID, filename string, r io.Reader) (string, error) {
	result, err := c.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		Folder:   avatarFolder,
		PublicID: avatarPublicID(filename),
	})
	if err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("upload image: %s", result.Error.Message)
	}
	if result.SecureURL == "" {
		return "", fmt.Errorf("upload image: secure url missing from response")
	}

	if c.recorder != nil {
		err := c.recorder.Record(ctx, &models.AvatarUpload{
			UserID:   userID,
			Provider: ProviderCloudinary,
			RemoteID: result.PublicID,
			URL:      result.SecureURL,
		})
		if err != nil {
			c.log.Warn("failed to record cloudinary upload", zap.String("url", result.SecureURL), zap.Error(err))
		}
	}
	return result.SecureURL, nil
}

// avatarPublicID keeps the original name readable while staying unique.
func avatarPublicID(filename string) string {
	base := strings.TrimSuffix(path.Base(filename), path.Ext(filename))
	if base == "" || base == "." || base == "/" {
		base = "avatar"
	}
	return base + "_" + uuid.NewString()[:8]
}

func (c *Cloudinary) Delete(ctx context.Context, publicID string) error {
	result, err := c.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return fmt.Errorf("delete image: %w", err)
	}
	if result.Error.Message != "" {
		return fmt.Errorf("delete image: %s", result.Error.Message)
	}
	return nil
}
