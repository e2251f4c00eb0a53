package models

import (
	"strings"
	"time"
)

type AcademicLevel string

const (
	LevelHighSchool    AcademicLevel = "High School Student"
	LevelUndergraduate AcademicLevel = "Undergraduate Student"
	LevelGraduate      AcademicLevel = "Graduate Student"
	LevelPhD           AcademicLevel = "PhD Student"
	LevelLecturer      AcademicLevel = "Lecturer"
	LevelProfessor     AcademicLevel = "Professor"
	LevelIndependent   AcademicLevel = "Independent Learner"
)

var AcademicLevels = []AcademicLevel{
	LevelHighSchool,
	LevelUndergraduate,
	LevelGraduate,
	LevelPhD,
	LevelLecturer,
	LevelProfessor,
	LevelIndependent,
}

func (l AcademicLevel) Valid() bool {
	for _, known := range AcademicLevels {
		if l == known {
			return true
		}
	}
	return false
}

// UserProfile is the public profile of one user. Optional fields are pointers;
// nil means absent.
type UserProfile struct {
	UserID        string         `gorm:"primaryKey;size:64" json:"user_id" validate:"required"`
	DisplayName   string         `gorm:"size:255;not null" json:"display_name" validate:"notblank"`
	Email         string         `gorm:"size:255;not null" json:"email" validate:"required,email"`
	AvatarRef     *string        `gorm:"size:512" json:"avatar_ref" validate:"omitempty,avatarref"`
	Bio           *string        `gorm:"type:text" json:"bio"`
	AcademicLevel *AcademicLevel `gorm:"size:50" json:"academic_level" validate:"omitempty,academiclevel"`

	CompletedSections int `gorm:"default:0" json:"completed_sections" validate:"min=0"`
	TotalSections     int `gorm:"default:0" json:"total_sections" validate:"min=0"`
	StudySessions     int `gorm:"default:0" json:"study_sessions" validate:"min=0"`
	Streak            int `gorm:"default:0" json:"streak" validate:"min=0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewUserProfile builds the profile written when an account registers. A blank
// display name falls back to the local part of the e-mail address.
func NewUserProfile(userID, displayName, email string) *UserProfile {
	name := strings.TrimSpace(displayName)
	if name == "" {
		name, _, _ = strings.Cut(strings.TrimSpace(email), "@")
	}
	return &UserProfile{
		UserID:      userID,
		DisplayName: name,
		Email:       strings.TrimSpace(email),
	}
}

func (p *UserProfile) Clone() *UserProfile {
	if p == nil {
		return nil
	}
	c := *p
	c.AvatarRef = cloneString(p.AvatarRef)
	c.Bio = cloneString(p.Bio)
	if p.AcademicLevel != nil {
		level := *p.AcademicLevel
		c.AcademicLevel = &level
	}
	return &c
}

// ProfileUpdate lists the user-editable fields. Nil leaves a field unchanged;
// an empty value clears an optional field.
type ProfileUpdate struct {
	DisplayName   *string        `json:"display_name"`
	Email         *string        `json:"email"`
	Bio           *string        `json:"bio"`
	AcademicLevel *AcademicLevel `json:"academic_level"`
	AvatarRef     *string        `json:"avatar_ref"`
}

func (u ProfileUpdate) Empty() bool {
	return u.DisplayName == nil && u.Email == nil && u.Bio == nil && u.AcademicLevel == nil && u.AvatarRef == nil
}

// Fields names the UserProfile fields the update touches.
func (u ProfileUpdate) Fields() []string {
	var fields []string
	if u.DisplayName != nil {
		fields = append(fields, "DisplayName")
	}
	if u.Email != nil {
		fields = append(fields, "Email")
	}
	if u.Bio != nil {
		fields = append(fields, "Bio")
	}
	if u.AcademicLevel != nil {
		fields = append(fields, "AcademicLevel")
	}
	if u.AvatarRef != nil {
		fields = append(fields, "AvatarRef")
	}
	return fields
}

// Apply returns a new profile with the update applied. The receiver is not modified.
func (p *UserProfile) Apply(u ProfileUpdate) *UserProfile {
	next := p.Clone()
	if u.DisplayName != nil {
		next.DisplayName = strings.TrimSpace(*u.DisplayName)
	}
	if u.Email != nil {
		next.Email = strings.TrimSpace(*u.Email)
	}
	if u.Bio != nil {
		next.Bio = optionalString(*u.Bio)
	}
	if u.AcademicLevel != nil {
		if *u.AcademicLevel == "" {
			next.AcademicLevel = nil
		} else {
			level := *u.AcademicLevel
			next.AcademicLevel = &level
		}
	}
	if u.AvatarRef != nil {
		next.AvatarRef = optionalString(strings.TrimSpace(*u.AvatarRef))
	}
	return next
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
