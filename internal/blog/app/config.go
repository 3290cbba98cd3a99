package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	SecretKey     string // Optional: HMAC key for reset tokens (default: random per process)
	PublicBaseURL string // Optional: base of links in emails (default: http://localhost:8080)
	PepperFile    string // Optional: path to file containing pepper for password hashing (default: ./pepper)

	DatabaseDriver string // Optional: sqlite or postgres (default: sqlite)
	DatabaseURL    string // Optional: sqlite file path or postgres DSN (default: ./flyhigh.db)

	BlobBackend string // Optional: database or s3 (default: database)
	S3Bucket    string
	S3Prefix    string // Optional: key prefix inside the bucket (default: media/)
	S3Region    string
	S3Endpoint  string // Optional: S3-compatible endpoint such as MinIO
	S3AccessKey string
	S3SecretKey string

	MailHost     string // Optional: SMTP relay; empty logs mails instead of sending
	MailPort     int    // Optional: SMTP port (default: 465, implicit TLS)
	MailUsername string
	MailPassword string
	MailFrom     string // Optional: sender address (default: noreply@flyhigh.com)

	SessionTTL     time.Duration // Optional: session lifetime (default: 30 days)
	ResetTokenTTL  time.Duration // Optional: reset link validity (default: 30m)
	CookieSecure   bool          // Optional: Secure flag on cookies (default: false)
	TrustProxy     bool          // Optional: rate limit by X-Forwarded-For / X-Real-IP (default: false)
	TempDir        string        // Optional: directory for image intermediates (default: OS temp dir)
	MaxUploadBytes int64         // Optional: multipart body cap (default: 10 MiB)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Host                 string        // HTTP listen host (default: all interfaces)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
	OrphanGracePeriod    time.Duration // Minimum age of an unreferenced blob before it is swept (default: 1h)
}

func LoadConfig() Config {
	return Config{
		SecretKey:     os.Getenv("SECRET_KEY"),
		PublicBaseURL: getEnvOrDefault("PUBLIC_BASE_URL", "http://localhost:8080"),
		PepperFile:    getEnvOrDefault("PEPPER_FILE", "pepper"),

		DatabaseDriver: getEnvOrDefault("DATABASE_DRIVER", "sqlite"),
		DatabaseURL:    getEnvOrDefault("DATABASE_URL", "flyhigh.db"),

		BlobBackend: getEnvOrDefault("BLOB_BACKEND", "database"),
		S3Bucket:    os.Getenv("S3_BUCKET"),
		S3Prefix:    getEnvOrDefault("S3_PREFIX", "media/"),
		S3Region:    getEnvOrDefault("S3_REGION", "us-east-1"),
		S3Endpoint:  os.Getenv("S3_ENDPOINT"),
		S3AccessKey: os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey: os.Getenv("S3_SECRET_KEY"),

		MailHost:     os.Getenv("MAIL_HOST"),
		MailPort:     getEnvIntOrDefault("MAIL_PORT", 465),
		MailUsername: os.Getenv("MAIL_USERNAME"),
		MailPassword: os.Getenv("MAIL_PASSWORD"),
		MailFrom:     getEnvOrDefault("MAIL_FROM", "noreply@flyhigh.com"),

		SessionTTL:     getEnvDurationOrDefault("SESSION_TTL", 30*24*time.Hour),
		ResetTokenTTL:  getEnvDurationOrDefault("RESET_TOKEN_TTL", 30*time.Minute),
		CookieSecure:   getEnvBoolOrDefault("COOKIE_SECURE", false),
		TrustProxy:     getEnvBoolOrDefault("TRUST_PROXY_HEADERS", false),
		TempDir:        getEnvOrDefault("TEMP_DIR", os.TempDir()),
		MaxUploadBytes: int64(getEnvIntOrDefault("MAX_UPLOAD_MB", 10)) << 20,

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Host:                 os.Getenv("HOST"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
		OrphanGracePeriod:    getEnvDurationOrDefault("ORPHAN_GRACE_PERIOD", 1*time.Hour),
	}
}

// Validate rejects settings the application cannot start with.
func (c Config) Validate() error {
	var errs []error

	switch c.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("DATABASE_DRIVER must be sqlite or postgres, got %q", c.DatabaseDriver))
	}

	switch c.BlobBackend {
	case "database":
	case "s3":
		if c.S3Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET is required when BLOB_BACKEND is s3"))
		}
	default:
		errs = append(errs, fmt.Errorf("BLOB_BACKEND must be database or s3, got %q", c.BlobBackend))
	}

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT out of range: %d", c.Port))
	}
	if c.MailHost != "" && c.MailPort <= 0 {
		errs = append(errs, fmt.Errorf("MAIL_PORT out of range: %d", c.MailPort))
	}

	return errors.Join(errs...)
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
