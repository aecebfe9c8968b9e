package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	feedDto "anoa.com/storyverse/internal/modules/feed/dto"
	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string
	Port           string
	AllowedOrigins []string

	MongoURI      string
	MongoDatabase string
	RedisURL      string

	MeiliSearchHost string
	MeiliMasterKey  string

	JWTSecret string
	JWTTTL    time.Duration

	// ImageProvider selects "cloudinary" or "imgbb".
	ImageProvider          string
	CloudinaryUploadFolder string
	ImgBBAPIKeys           []string
	ImgBBCooldown          time.Duration

	FeedGenres          []string
	FeedSectionSize     int
	FeedQuickReadMax    int
	FeedCacheTTL        time.Duration
	RateLimitStory      time.Duration
	ReconcileSchedule   string
	ContentCompressSize int

	LogLevel  string
	LogFormat string
}

func Load() (*Config, error) {
	// Don't fail if .env doesn't exist (might be prod env vars)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),

		MongoURI:      getEnv("MONGODB_URI", "mongodb://127.0.0.1:27017"),
		MongoDatabase: getEnv("MONGODB_DATABASE", "storyverse"),
		RedisURL:      os.Getenv("REDIS_URL"),

		MeiliSearchHost: os.Getenv("MEILISEARCH_HOST"),
		MeiliMasterKey:  os.Getenv("MEILI_MASTER_KEY"),

		JWTSecret: getEnv("JWT_SECRET", "change-me"),

		ImageProvider:          strings.ToLower(getEnv("IMAGE_PROVIDER", "cloudinary")),
		CloudinaryUploadFolder: getEnv("CLOUDINARY_UPLOAD_FOLDER", "storyverse"),
		ImgBBAPIKeys:           splitList(os.Getenv("IMGBB_API_KEYS")),

		FeedGenres:        splitList(getEnv("FEED_GENRES", "romance,horror,fantasy,thriller,drama,comedy")),
		ReconcileSchedule: getEnv("RECONCILE_SCHEDULE", "30 3 * * *"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	var err error
	if cfg.JWTTTL, err = parseDuration(getEnv("JWT_TTL", "72h")); err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL: %w", err)
	}
	if cfg.ImgBBCooldown, err = parseDuration(getEnv("IMGBB_COOLDOWN", "10m")); err != nil {
		return nil, fmt.Errorf("invalid IMGBB_COOLDOWN: %w", err)
	}
	if cfg.FeedCacheTTL, err = parseDuration(getEnv("FEED_CACHE_TTL", "60s")); err != nil {
		return nil, fmt.Errorf("invalid FEED_CACHE_TTL: %w", err)
	}
	if cfg.RateLimitStory, err = parseDuration(getEnv("RATE_LIMIT_STORY", "1m")); err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_STORY: %w", err)
	}
	if cfg.FeedSectionSize, err = strconv.Atoi(getEnv("FEED_SECTION_SIZE", "18")); err != nil {
		return nil, fmt.Errorf("invalid FEED_SECTION_SIZE: %w", err)
	}
	if cfg.FeedQuickReadMax, err = strconv.Atoi(getEnv("FEED_QUICK_READ_MINUTES", "6")); err != nil {
		return nil, fmt.Errorf("invalid FEED_QUICK_READ_MINUTES: %w", err)
	}
	if cfg.ContentCompressSize, err = strconv.Atoi(getEnv("CONTENT_COMPRESS_BYTES", "16384")); err != nil {
		return nil, fmt.Errorf("invalid CONTENT_COMPRESS_BYTES: %w", err)
	}

	if cfg.ImageProvider != "cloudinary" && cfg.ImageProvider != "imgbb" {
		return nil, fmt.Errorf("invalid IMAGE_PROVIDER %q: want cloudinary or imgbb", cfg.ImageProvider)
	}
	if cfg.ImageProvider == "imgbb" && len(cfg.ImgBBAPIKeys) == 0 {
		return nil, fmt.Errorf("IMGBB_API_KEYS is required when IMAGE_PROVIDER=imgbb")
	}
	if err := checkFeedGenres(cfg.FeedGenres); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Genre sections share the homepage data object with the fixed sections.
func checkFeedGenres(genres []string) error {
	reserved := []string{feedDto.SectionTrending, feedDto.SectionLatest, feedDto.SectionQuickReads, feedDto.SectionEditorPicks}
	for _, g := range genres {
		for _, r := range reserved {
			if strings.EqualFold(g, r) {
				return fmt.Errorf("invalid FEED_GENRES: %q is a built-in homepage section", g)
			}
		}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func parseDuration(s string) (time.Duration, error) {
	return time.ParseDuration(s)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
