package database

import (
	"context"
	"fmt"
	"time"

	"github.com/anjiri1684/stuplan/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AvatarUploadRepository struct {
	db *gorm.DB
}

func NewAvatarUploadRepository(db *gorm.DB) *AvatarUploadRepository {
	return &AvatarUploadRepository{db: db}
}

func (r *AvatarUploadRepository) Record(ctx context.Context, upload *models.AvatarUpload) error {
	if err := r.db.WithContext(ctx).Create(upload).Error; err != nil {
		return fmt.Errorf("record avatar upload: %w", err)
	}
	return nil
}

func (r *AvatarUploadRepository) OlderThan(ctx context.Context, cutoff time.Time) ([]models.AvatarUpload, error) {
	var uploads []models.AvatarUpload
	err := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Order("created_at asc").
		Find(&uploads).Error
	if err != nil {
		return nil, fmt.Errorf("list avatar uploads: %w", err)
	}
	return uploads, nil
}

func (r *AvatarUploadRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).Delete(&models.AvatarUpload{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("delete avatar upload: %w", err)
	}
	return nil
}
