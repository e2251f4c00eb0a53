package utils

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"math/rand"
	"net/url"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// Color is an opaque 0xAARRGGBB value.
type Color uint32

func (c Color) Hex() string {
	return fmt.Sprintf("#%06X", uint32(c)&0xFFFFFF)
}

func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.Hex()), nil
}

var avatarPalette = []Color{
	0xFF6200EA, // deep purple
	0xFF0091EA, // light blue
	0xFF00B0FF, // cyan
	0xFF00C853, // green
	0xFFFFD600, // yellow
	0xFFFF6D00, // orange
	0xFFDD2C00, // deep orange
	0xFFD50000, // red
	0xFFC51162, // pink
	0xFF304FFE, // indigo
}

var avatarCategories = []string{
	"default", "student", "graduate", "professor", "scientist",
	"artist", "musician", "athlete", "programmer", "designer",
}

// AvatarCategories returns a copy of the fixed category set.
func AvatarCategories() []string {
	out := make([]string, len(avatarCategories))
	copy(out, avatarCategories)
	return out
}

func Palette() []Color {
	out := make([]Color, len(avatarPalette))
	copy(out, avatarPalette)
	return out
}

// userHash matches java.lang.String#hashCode so colors stay stable across clients.
func userHash(s string) int32 {
	var h int32
	for _, u := range utf16.Encode([]rune(s)) {
		h = 31*h + int32(u)
	}
	return h
}

func paletteIndex(userID string) int {
	h := int64(userHash(userID))
	if h < 0 {
		h = -h
	}
	return int(h % int64(len(avatarPalette)))
}

// ColorForUser maps a user id onto the fixed palette. Same id, same color.
func ColorForUser(userID string) Color {
	return avatarPalette[paletteIndex(userID)]
}

func InitialsFor(displayName string) string {
	parts := strings.Fields(displayName)
	switch len(parts) {
	case 0:
		return "?"
	case 1:
		return firstUpper(parts[0])
	default:
		return firstUpper(parts[0]) + firstUpper(parts[len(parts)-1])
	}
}

func firstUpper(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return ""
	}
	return strings.ToUpper(string(r))
}

func IsCategoryAvatar(ref string) bool {
	if ref == "" || strings.HasPrefix(ref, "http") {
		return false
	}
	for _, c := range avatarCategories {
		if c == ref {
			return true
		}
	}
	return false
}

// CategoryGlyph is the placeholder shown for a category avatar: its first letter.
func CategoryGlyph(tag string) string {
	if g := firstUpper(strings.TrimSpace(tag)); g != "" {
		return g
	}
	return "?"
}

func RandomAvatarCategory() string {
	return avatarCategories[rand.Intn(len(avatarCategories))]
}

func GravatarURL(email string, size int) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return fmt.Sprintf("https://www.gravatar.com/avatar/%s?s=%d&d=identicon", hex.EncodeToString(sum[:]), size)
}

func UIAvatarURL(name string, size int) string {
	return fmt.Sprintf("https://ui-avatars.com/api/?name=%s&size=%d&background=random", url.QueryEscape(name), size)
}

type AvatarKind string

const (
	AvatarKindCategory AvatarKind = "category"
	AvatarKindImage    AvatarKind = "image"
	AvatarKindInitials AvatarKind = "initials"
)

// Avatar is everything a screen needs to draw a user's avatar.
type Avatar struct {
	Kind     AvatarKind `json:"kind"`
	Color    Color      `json:"color"`
	Initials string     `json:"initials"`
	Category string     `json:"category,omitempty"`
	Glyph    string     `json:"glyph,omitempty"`
	ImageURL string     `json:"image_url,omitempty"`
}

func AvatarFor(userID, displayName string, avatarRef *string) Avatar {
	a := Avatar{
		Kind:     AvatarKindInitials,
		Color:    ColorForUser(userID),
		Initials: InitialsFor(displayName),
	}
	if avatarRef == nil || *avatarRef == "" {
		return a
	}
	if IsCategoryAvatar(*avatarRef) {
		a.Kind = AvatarKindCategory
		a.Category = *avatarRef
		a.Glyph = CategoryGlyph(*avatarRef)
		return a
	}
	if IsImageURL(*avatarRef) {
		a.Kind = AvatarKindImage
		a.ImageURL = *avatarRef
	}
	return a
}

// IsImageURL reports whether ref is an absolute http(s) URL with a host.
func IsImageURL(ref string) bool {
	u, err := url.Parse(ref)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
