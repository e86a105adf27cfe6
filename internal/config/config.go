package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the client.
type Config struct {
	APIBaseURL       string
	RequestTimeout   time.Duration
	CredentialsPath  string
	OutputDir        string
	CheckoutListen   string
	LogLevel         string
	ShareS3Endpoint  string
	ShareS3Region    string
	ShareS3AccessKey string
	ShareS3SecretKey string
	ShareS3Bucket    string
	ShareS3PublicURL string
	ShareS3PathStyle bool
	ShareS3Prefix    string
}

// ShareEnabled reports whether the optional share-link backend is configured.
func (c Config) ShareEnabled() bool {
	return c.ShareS3Bucket != ""
}

// Load reads configuration from environment variables, applying sane defaults.
func Load() (Config, error) {
	if err := loadEnvFile(); err != nil {
		return Config{}, err
	}

	const defaultBaseURL = "http://localhost:5002/api"

	cfg := Config{
		APIBaseURL:       normalizeBaseURL(getEnv("PAWTRAIT_API_BASE_URL", defaultBaseURL), defaultBaseURL),
		RequestTimeout:   time.Second * time.Duration(getInt("PAWTRAIT_HTTP_TIMEOUT_SECONDS", 0)),
		CredentialsPath:  getEnv("PAWTRAIT_CREDENTIALS_PATH", ""),
		OutputDir:        getEnv("PAWTRAIT_OUTPUT_DIR", "downloads"),
		CheckoutListen:   getEnv("PAWTRAIT_CHECKOUT_LISTEN_ADDR", "127.0.0.1:0"),
		LogLevel:         getEnv("PAWTRAIT_LOG_LEVEL", "info"),
		ShareS3Endpoint:  getEnv("SHARE_S3_ENDPOINT", ""),
		ShareS3Region:    os.Getenv("SHARE_S3_REGION"),
		ShareS3AccessKey: os.Getenv("SHARE_S3_ACCESS_KEY"),
		ShareS3SecretKey: os.Getenv("SHARE_S3_SECRET_KEY"),
		ShareS3Bucket:    os.Getenv("SHARE_S3_BUCKET"),
		ShareS3PublicURL: os.Getenv("SHARE_S3_PUBLIC_BASE_URL"),
		ShareS3PathStyle: getBool("SHARE_S3_USE_PATH_STYLE", false),
		ShareS3Prefix:    getEnv("SHARE_S3_PREFIX", "artwork"),
	}

	if cfg.CredentialsPath == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return Config{}, fmt.Errorf("resolve config dir: %w", err)
		}
		cfg.CredentialsPath = filepath.Join(dir, "pawtrait", "credentials.json")
	}

	if cfg.ShareEnabled() {
		var missing []string
		if cfg.ShareS3Region == "" {
			missing = append(missing, "SHARE_S3_REGION")
		}
		if cfg.ShareS3AccessKey == "" {
			missing = append(missing, "SHARE_S3_ACCESS_KEY")
		}
		if cfg.ShareS3SecretKey == "" {
			missing = append(missing, "SHARE_S3_SECRET_KEY")
		}
		if cfg.ShareS3PublicURL == "" {
			missing = append(missing, "SHARE_S3_PUBLIC_BASE_URL")
		}
		if len(missing) > 0 {
			return Config{}, fmt.Errorf("missing required environment variables: %v", missing)
		}
	}

	return cfg, nil
}

// normalizeBaseURL keeps the configured API base usable: forces a scheme and
// strips a trailing slash so endpoint paths join cleanly.
func normalizeBaseURL(raw string, fallback string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return fallback
	}

	if parsed.Scheme == "" {
		parsed.Scheme = "https"
	}
	if parsed.Host == "" {
		parsed.Host = parsed.Path
		parsed.Path = ""
	}

	return strings.TrimRight(parsed.String(), "/")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// loadEnvFile loads the first .env file found. A client tool runs fine
// without one, so absence is not an error.
func loadEnvFile() error {
	candidates := []string{}
	if custom, ok := os.LookupEnv("PAWTRAIT_ENV_PATH"); ok && custom != "" {
		candidates = append(candidates, custom)
	}
	candidates = append(candidates,
		filepath.Join("configs", ".env"),
		".env",
	)

	for _, path := range candidates {
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("access env file %s: %w", path, err)
		}
		if info.IsDir() {
			continue
		}
		if err := godotenv.Overload(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
		return nil
	}
	return nil
}
