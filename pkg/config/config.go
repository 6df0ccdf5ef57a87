package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	CMS CMSConfig

	BucketName     string
	CarouselPrefix string
	PlaylistFile   string

	Port           string
	ViewsDir       string
	PublicDir      string
	AllowedOrigins []string

	CarouselInterval time.Duration
	SessionTimeout   time.Duration
	MaxSessions      int
	PageSize         int
	FallbackImage    string
	FallbackImages   map[string]string
	CacheDuration    time.Duration
	RefreshInterval  time.Duration
	LogLevel         string
}

// CMSConfig holds the content delivery credentials
type CMSConfig struct {
	SpaceID     string
	AccessToken string
	Environment string
	ContentType string
	BaseURL     string
}

// ErrSpaceIDNotSet is returned when the CMS_SPACE_ID environment variable is not set
var ErrSpaceIDNotSet = errors.New("CMS_SPACE_ID environment variable not set")

// ErrAccessTokenNotSet is returned when the CMS_ACCESS_TOKEN environment variable is not set
var ErrAccessTokenNotSet = errors.New("CMS_ACCESS_TOKEN environment variable not set")

// DefaultFallbackImage is shown for products without media
const DefaultFallbackImage = "https://images.unsplash.com/photo-1454165804606-c3d57bc86b40?auto=format&fit=crop&w=1200&q=80"

// InvalidValueError is returned when a variable cannot be parsed or is out
// of range
type InvalidValueError struct {
	Key   string
	Value string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid value %q for %s", e.Value, e.Key)
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg, err := LoadOptional()
	if err != nil {
		return nil, err
	}

	if cfg.CMS.SpaceID == "" {
		return nil, ErrSpaceIDNotSet
	}
	if cfg.CMS.AccessToken == "" {
		return nil, ErrAccessTokenNotSet
	}

	return cfg, nil
}

// LoadOptional loads configuration without requiring CMS credentials, for
// commands that only touch the carousel media
func LoadOptional() (*Config, error) {
	intervalMs, err := intEnv("CAROUSEL_INTERVAL_MS", 5000, 0)
	if err != nil {
		return nil, err
	}
	sessionSeconds, err := intEnv("CAROUSEL_SESSION_SECONDS", 120, 1)
	if err != nil {
		return nil, err
	}
	maxSessions, err := intEnv("CAROUSEL_MAX_SESSIONS", 500, 1)
	if err != nil {
		return nil, err
	}
	pageSize, err := intEnv("PAGE_SIZE", 12, 1)
	if err != nil {
		return nil, err
	}
	cacheMinutes, err := intEnv("CACHE_MINUTES", 5, 0)
	if err != nil {
		return nil, err
	}
	refreshMinutes, err := intEnv("REFRESH_MINUTES", 10, 0)
	if err != nil {
		return nil, err
	}
	fallbackImages, err := pairList("FALLBACK_IMAGES")
	if err != nil {
		return nil, err
	}

	return &Config{
		CMS: CMSConfig{
			SpaceID:     os.Getenv("CMS_SPACE_ID"),
			AccessToken: os.Getenv("CMS_ACCESS_TOKEN"),
			Environment: getEnv("CMS_ENVIRONMENT", "master"),
			ContentType: getEnv("CMS_CONTENT_TYPE", "newsite"),
			BaseURL:     strings.TrimSuffix(getEnv("CMS_BASE_URL", "https://cdn.contentful.com"), "/"),
		},
		BucketName:       os.Getenv("BUCKET_NAME"),
		CarouselPrefix:   getEnv("CAROUSEL_PREFIX", "carousel/"),
		PlaylistFile:     getEnv("PLAYLIST_FILE", "carousel.yaml"),
		Port:             getEnv("PORT", "8080"),
		ViewsDir:         getEnv("VIEWS_DIR", "./views"),
		PublicDir:        getEnv("PUBLIC_DIR", "./public"),
		AllowedOrigins:   splitList(os.Getenv("ALLOWED_ORIGINS")),
		CarouselInterval: time.Duration(intervalMs) * time.Millisecond,
		SessionTimeout:   time.Duration(sessionSeconds) * time.Second,
		MaxSessions:      maxSessions,
		PageSize:         pageSize,
		FallbackImage:    getEnv("FALLBACK_IMAGE_URL", DefaultFallbackImage),
		FallbackImages:   fallbackImages,
		CacheDuration:    time.Duration(cacheMinutes) * time.Minute,
		RefreshInterval:  time.Duration(refreshMinutes) * time.Minute,
		LogLevel:         getEnv("LOG_LEVEL", "info"),
	}, nil
}

// ServerAddress returns the server address with port
func (c *Config) ServerAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

// PrintServerStartMessage prints a message when the server starts
func (c *Config) PrintServerStartMessage() {
	fmt.Printf("Starting server at port %s\n", c.Port)
	fmt.Printf("Home: http://localhost:%s/\n", c.Port)
	fmt.Printf("Catalog feed: http://localhost:%s/api/catalog\n", c.Port)
}

// GetLogLevel maps LOG_LEVEL onto a slog level, defaulting to info
func (c *Config) GetLogLevel() slog.Leveler {
	switch strings.ToLower(c.LogLevel) {
	case "error":
		return slog.LevelError
	case "warn", "warning":
		return slog.LevelWarn
	case "info", "":
		return slog.LevelInfo
	case "debug":
		return slog.LevelDebug
	}
	slog.With(slog.String("log_level", c.LogLevel)).Info("Received invalid log level. Defaulting to INFO.")
	return slog.LevelInfo
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

// intEnv parses key as an integer of at least minimum
func intEnv(key string, fallback, minimum int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < minimum {
		return 0, &InvalidValueError{Key: key, Value: value}
	}
	return n, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// pairList parses "name=value" pairs separated by semicolons. Names are
// matched as written, so "Oil & Gas=https://..." is accepted.
func pairList(key string) (map[string]string, error) {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	out := make(map[string]string)
	for _, part := range strings.Split(value, ";") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		name, v, ok := strings.Cut(part, "=")
		name, v = strings.TrimSpace(name), strings.TrimSpace(v)
		if !ok || name == "" || v == "" {
			return nil, &InvalidValueError{Key: key, Value: part}
		}
		out[name] = v
	}
	return out, nil
}
