package models

import (
	"time"

	"github.com/google/uuid"
)

type AvatarUpload struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID    string    `gorm:"size:64;not null;index" json:"user_id"`
	Provider  string    `gorm:"size:20;not null" json:"provider"`
	RemoteID  string    `gorm:"size:255;not null" json:"remote_id"`
	URL       string    `gorm:"type:text;not null;uniqueIndex" json:"url"`
	CreatedAt time.Time `json:"created_at"`
}
