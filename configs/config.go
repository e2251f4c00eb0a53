package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

var loadEnvOnce sync.Once

func loadEnv() {
	loadEnvOnce.Do(func() {
		if err := godotenv.Load(".env"); err != nil {
			log.Println("Warning: .env file not found, reading from system environment variables")
		}
	})
}

// Config returns the raw value of an environment variable, reading .env once.
func Config(key string) string {
	loadEnv()
	return os.Getenv(key)
}

type Settings struct {
	Port        string
	AppEnv      string
	DatabaseURL string
	JWTSecret   string
	TokenTTL    time.Duration

	RedisAddr       string
	RedisPassword   string
	ProfileCacheTTL time.Duration

	ImageHost       string
	ImgurBaseURL    string
	ImgurClientID   string
	ImgurAuthScheme string
	CloudinaryURL   string

	AvatarCleanupSchedule string
	AvatarOrphanAge       time.Duration

	SessionSweepSchedule string
	SessionIdleTimeout   time.Duration

	BrevoAPIKey     string
	EmailSender     string
	EmailSenderName string
}

func Load() (*Settings, error) {
	loadEnv()

	jwtSecret, exists := os.LookupEnv("JWT_SECRET")
	if !exists || jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	s := &Settings{
		Port:        getEnv("PORT", "8080"),
		AppEnv:      normalizeEnv(getEnv("APP_ENV", "production")),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		JWTSecret:   jwtSecret,
		TokenTTL:    getEnvDuration("TOKEN_TTL", 72*time.Hour),

		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		ProfileCacheTTL: getEnvDuration("PROFILE_CACHE_TTL", 10*time.Minute),

		ImageHost:       strings.ToLower(getEnv("IMAGE_HOST", "imgur")),
		ImgurBaseURL:    getEnv("IMGUR_BASE_URL", "https://api.imgur.com"),
		ImgurClientID:   getEnv("IMGUR_CLIENT_ID", ""),
		ImgurAuthScheme: getEnv("IMGUR_AUTH_SCHEME", "Client-ID"),
		CloudinaryURL:   getEnv("CLOUDINARY_URL", ""),

		AvatarCleanupSchedule: getEnv("AVATAR_CLEANUP_SCHEDULE", "0 3 * * *"),
		AvatarOrphanAge:       getEnvDuration("AVATAR_ORPHAN_AGE", 24*time.Hour),

		SessionSweepSchedule: getEnv("SESSION_SWEEP_SCHEDULE", "@every 10m"),
		SessionIdleTimeout:   getEnvDuration("SESSION_IDLE_TIMEOUT", 2*time.Hour),

		BrevoAPIKey:     getEnv("BREVO_API_KEY", ""),
		EmailSender:     getEnv("EMAIL_SENDER", ""),
		EmailSenderName: getEnv("EMAIL_SENDER_NAME", ""),
	}

	switch s.ImageHost {
	case "imgur":
		if s.ImgurClientID == "" {
			return nil, fmt.Errorf("IMGUR_CLIENT_ID is required when IMAGE_HOST=imgur")
		}
	case "cloudinary":
		if s.CloudinaryURL == "" {
			return nil, fmt.Errorf("CLOUDINARY_URL is required when IMAGE_HOST=cloudinary")
		}
	default:
		return nil, fmt.Errorf("unsupported IMAGE_HOST %q", s.ImageHost)
	}

	return s, nil
}

func (s *Settings) Development() bool {
	return s != nil && s.AppEnv == "development"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		log.Printf("Warning: invalid duration for %s (%q), using %s", key, value, fallback)
		return fallback
	}
	return d
}

func normalizeEnv(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "dev", "develop", "development", "local":
		return "development"
	case "prod", "production":
		return "production"
	case "stage", "staging":
		return "staging"
	case "test", "testing":
		return "test"
	default:
		return strings.ToLower(strings.TrimSpace(value))
	}
}
