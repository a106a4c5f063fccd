package config

import (
	"os"
	"strconv"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// StorageConfig holds object storage settings. Backend selects the client implementation:
// "minio" for any S3-compatible endpoint through minio-go, "s3" for AWS S3 / Cloudflare R2
// through the AWS SDK.
type StorageConfig struct {
	Backend   string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool

	// PublicRoot is the base URL objects are publicly reachable under when the bucket
	// (or a CDN in front of it) allows anonymous reads.
	PublicRoot string
	// ReferenceMode decides how new profiles reference their document:
	// "public_url", "derived" or "signed".
	ReferenceMode string
	// MaxUploadBytes bounds the request body of document uploads.
	MaxUploadBytes int
}

// MailConfig holds outbound mail transport settings.
type MailConfig struct {
	Provider     string
	From         string
	Subject      string
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPTLS      string
	BrevoAPIKey  string
	BrevoBaseURL string
}

// DeliveryConfig holds delivery policy settings.
type DeliveryConfig struct {
	Mode                 string
	SignedLinkTTLSec     int
	MaxAttachmentBytes   int64
	FetchTimeoutSec      int
	HistoryWriteAttempts int
}

// EventsConfig holds the optional AMQP event publisher settings. Publishing is disabled
// when URL is empty.
type EventsConfig struct {
	URL      string
	Exchange string
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppEnv   string
	Port     string
	Database DatabaseConfig
	Storage  StorageConfig
	Mail     MailConfig
	Delivery DeliveryConfig
	Events   EventsConfig

	// CORSAllowedOrigins is a comma-separated list of browser origins; "*" or empty allows any.
	CORSAllowedOrigins string
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppEnv: getEnv("APP_ENV", "production"),
		Port:   getEnv("PORT", "8080"),

		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		Storage: StorageConfig{
			Backend:        getEnv("STORAGE_BACKEND", "minio"),
			Endpoint:       getEnv("STORAGE_ENDPOINT", ""),
			Region:         getEnv("STORAGE_REGION", "us-east-1"),
			AccessKey:      getEnv("STORAGE_ACCESS_KEY", ""),
			SecretKey:      getEnv("STORAGE_SECRET_KEY", ""),
			Bucket:         getEnv("STORAGE_BUCKET", ""),
			UseSSL:         getEnvBool("STORAGE_USE_SSL", false),
			PublicRoot:     getEnv("STORAGE_PUBLIC_ROOT", ""),
			ReferenceMode:  getEnv("STORAGE_REFERENCE_MODE", "signed"),
			MaxUploadBytes: getEnvInt("MAX_UPLOAD_BYTES", 25<<20),
		},
		Mail: MailConfig{
			Provider:     getEnv("MAIL_PROVIDER", "smtp"),
			From:         getEnv("MAIL_FROM", ""),
			Subject:      getEnv("MAIL_SUBJECT", "Your PDF Document"),
			SMTPHost:     getEnv("SMTP_HOST", ""),
			SMTPPort:     getEnvInt("SMTP_PORT", 587),
			SMTPUsername: getEnv("SMTP_USERNAME", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
			SMTPTLS:      getEnv("SMTP_TLS", "opportunistic"),
			BrevoAPIKey:  getEnv("BREVO_API_KEY", ""),
			BrevoBaseURL: getEnv("BREVO_BASE_URL", "https://api.brevo.com"),
		},
		Delivery: DeliveryConfig{
			Mode:                 getEnv("DELIVERY_MODE", "link"),
			SignedLinkTTLSec:     getEnvInt("SIGNED_LINK_TTL_SECONDS", 300),
			MaxAttachmentBytes:   int64(getEnvInt("MAX_ATTACHMENT_BYTES", 10<<20)),
			FetchTimeoutSec:      getEnvInt("FETCH_TIMEOUT_SECONDS", 30),
			HistoryWriteAttempts: getEnvInt("HISTORY_WRITE_ATTEMPTS", 3),
		},
		Events: EventsConfig{
			URL:      getEnv("AMQP_URL", ""),
			Exchange: getEnv("AMQP_EXCHANGE", "delivery_events"),
		},
		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173"),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}
