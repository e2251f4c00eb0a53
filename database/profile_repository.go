package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anjiri1684/stuplan/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProfileRepository stores profiles in PostgreSQL, one row per user id.
type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Fetch returns the stored profile. A user without a row gets a blank profile
// carrying only the id, so a fresh account still renders.
func (r *ProfileRepository) Fetch(ctx context.Context, userID string) (*models.UserProfile, error) {
	var profile models.UserProfile
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.UserProfile{UserID: strings.Clone(userID)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch profile %s: %w", userID, err)
	}
	return &profile, nil
}

// Write upserts the whole profile. Counters are owned by progress tracking and
// are only set on insert.
func (r *ProfileRepository) Write(ctx context.Context, userID string, profile *models.UserProfile) error {
	if profile.UserID != userID {
		return fmt.Errorf("write profile %s: payload belongs to %s", userID, profile.UserID)
	}
	row := profile.Clone()
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"display_name", "email", "avatar_ref", "bio", "academic_level", "updated_at",
		}),
	}).Create(row).Error
	if err != nil {
		return fmt.Errorf("write profile %s: %w", userID, err)
	}
	return nil
}

// AvatarRefs lists every avatar reference currently held by a profile.
func (r *ProfileRepository) AvatarRefs(ctx context.Context) (map[string]struct{}, error) {
	var refs []string
	err := r.db.WithContext(ctx).Model(&models.UserProfile{}).
		Where("avatar_ref IS NOT NULL").
		Pluck("avatar_ref", &refs).Error
	if err != nil {
		return nil, fmt.Errorf("list avatar refs: %w", err)
	}
	out := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		out[ref] = struct{}{}
	}
	return out, nil
}
