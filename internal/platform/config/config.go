package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const devJWTSecret = "dev-secret-key-change-in-production"

// Server captures process-wide configuration. Each concern has its own block so
// components receive only what they need.
type Server struct {
	Addr        string
	Environment string
	CORSOrigin  string
	// AdminToken guards operator endpoints (/metrics). Empty leaves them open.
	AdminToken string

	JWT        JWTConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Attachment AttachmentConfig
	Audit      AuditConfig
	Stats      StatsConfig
	RateLimit  RateLimitConfig
	Log        LogConfig
}

type JWTConfig struct {
	SigningKey string
	Issuer     string
}

// DatabaseConfig selects the entry repository. An empty URL keeps entries in memory.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig selects the shared stats cache. An empty URL uses the in-process cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

const (
	AttachmentBackendLocal = "local"
	AttachmentBackendS3    = "s3"
)

type AttachmentConfig struct {
	Backend  string
	Dir      string
	URLRoot  string
	MaxBytes int64
	S3       S3Config
}

type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// AuditConfig selects the audit sink. Brokers win over the database; neither means memory.
type AuditConfig struct {
	KafkaBrokers []string
	Topic        string
	BufferSize   int
}

type StatsConfig struct {
	CacheTTL time.Duration
}

// RateLimitConfig bounds mutating requests per principal. Zero disables the limiter.
type RateLimitConfig struct {
	WritesPerMinute int
}

type LogConfig struct {
	Level  string
	Format string
}

// IsProduction reports whether dev-only defaults must be rejected.
func (s Server) IsProduction() bool {
	return s.Environment == "production"
}

// FromEnv builds a Server config from environment variables, preloading a .env file
// when one is present.
func FromEnv() (Server, error) {
	_ = godotenv.Load()
	return load(os.LookupEnv)
}

func load(lookup func(string) (string, bool)) (Server, error) {
	l := loader{lookup: lookup}

	cfg := Server{
		Addr:        l.str("RCTRACK_ADDR", ":2500"),
		Environment: l.str("RCTRACK_ENV", "development"),
		CORSOrigin:  l.str("CORS_ORIGIN", "http://localhost:5173"),
		AdminToken:  l.str("ADMIN_TOKEN", ""),
		JWT: JWTConfig{
			SigningKey: l.str("JWT_SECRET", devJWTSecret),
			Issuer:     l.str("JWT_ISSUER", ""),
		},
		Database: DatabaseConfig{
			URL:             l.str("DATABASE_URL", ""),
			MaxOpenConns:    l.int("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    l.int("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: l.duration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:          l.str("REDIS_URL", ""),
			PoolSize:     l.int("REDIS_POOL_SIZE", 10),
			MinIdleConns: l.int("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  l.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  l.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: l.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Attachment: AttachmentConfig{
			Backend:  strings.ToLower(l.str("ATTACHMENT_BACKEND", AttachmentBackendLocal)),
			Dir:      l.str("ATTACHMENT_DIR", "./utils/uploads"),
			URLRoot:  strings.TrimRight(l.str("ATTACHMENT_URL_ROOT", "/utils/uploads"), "/"),
			MaxBytes: int64(l.int("ATTACHMENT_MAX_BYTES", 10<<20)),
			S3: S3Config{
				Bucket:    l.str("S3_BUCKET", ""),
				Region:    l.str("S3_REGION", "us-east-1"),
				Endpoint:  l.str("S3_ENDPOINT", ""),
				AccessKey: l.str("S3_ACCESS_KEY", ""),
				SecretKey: l.str("S3_SECRET_KEY", ""),
			},
		},
		Audit: AuditConfig{
			KafkaBrokers: l.list("KAFKA_BROKERS"),
			Topic:        l.str("AUDIT_TOPIC", "rctrack.audit"),
			BufferSize:   l.int("AUDIT_BUFFER_SIZE", 256),
		},
		Stats: StatsConfig{
			CacheTTL: l.duration("STATS_CACHE_TTL", 30*time.Second),
		},
		RateLimit: RateLimitConfig{
			WritesPerMinute: l.int("RATE_LIMIT_WRITES_PER_MINUTE", 120),
		},
		Log: LogConfig{
			Level:  l.str("LOG_LEVEL", "info"),
			Format: l.str("LOG_FORMAT", "json"),
		},
	}

	if l.err != nil {
		return Server{}, l.err
	}
	if err := cfg.validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

func (s Server) validate() error {
	switch s.Attachment.Backend {
	case AttachmentBackendLocal:
	case AttachmentBackendS3:
		if s.Attachment.S3.Bucket == "" {
			return fmt.Errorf("config: S3_BUCKET is required when ATTACHMENT_BACKEND=s3")
		}
	default:
		return fmt.Errorf("config: unknown ATTACHMENT_BACKEND %q", s.Attachment.Backend)
	}
	if s.Attachment.MaxBytes <= 0 {
		return fmt.Errorf("config: ATTACHMENT_MAX_BYTES must be positive")
	}
	if !strings.HasPrefix(s.Attachment.URLRoot, "/") {
		return fmt.Errorf("config: ATTACHMENT_URL_ROOT must start with /")
	}
	if s.RateLimit.WritesPerMinute < 0 {
		return fmt.Errorf("config: RATE_LIMIT_WRITES_PER_MINUTE must not be negative")
	}
	if s.IsProduction() && s.JWT.SigningKey == devJWTSecret {
		return fmt.Errorf("config: JWT_SECRET must be set in production")
	}
	return nil
}

// loader reads typed values and keeps the first parse error.
type loader struct {
	lookup func(string) (string, bool)
	err    error
}

func (l *loader) str(key, def string) string {
	if v, ok := l.lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (l *loader) int(key string, def int) int {
	raw := l.str(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil && l.err == nil {
		l.err = fmt.Errorf("config: %s: invalid integer %q", key, raw)
	}
	return v
}

func (l *loader) duration(key string, def time.Duration) time.Duration {
	raw := l.str(key, "")
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil && l.err == nil {
		l.err = fmt.Errorf("config: %s: invalid duration %q", key, raw)
	}
	return v
}

func (l *loader) list(key string) []string {
	raw := l.str(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
