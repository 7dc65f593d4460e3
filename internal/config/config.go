package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration loaded from environment variables.
// It is the single source of truth for runtime parameters.
type Config struct {
	Port string
	Env  string

	DB         DatabaseConfig
	Redis      RedisConfig
	Admin      AdminConfig
	Contact    ContactConfig
	RateLimit  RateLimitConfig
	S3         S3Config
	Moderation ModerationConfig
	Catalog    CatalogConfig

	TrustedProxies []string
	MaxUploadBytes int64
}

// DatabaseConfig contains connection parameters for the relational store.
// Driver is either "postgres" or "sqlite". FallbackPath is the SQLite file
// used when PostgreSQL cannot be reached at startup.
type DatabaseConfig struct {
	Driver       string
	Host         string
	Port         string
	User         string
	Password     string
	Name         string
	SSLMode      string
	FallbackPath string
}

// RedisConfig contains Redis connection parameters.
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

// AdminConfig contains the admin panel secret and session parameters.
type AdminConfig struct {
	Password      string
	PasswordHash  string
	SessionSecret string
	SessionTTL    time.Duration
	CookieSecure  bool
}

// ContactConfig holds the messaging number and the investment threshold.
type ContactConfig struct {
	WhatsAppNumber      string
	MinInvestmentAmount int
}

// Rate limit backends.
const (
	RateLimitBackendSQL   = "sql"
	RateLimitBackendRedis = "redis"
)

// RateLimitConfig configures the fixed-window limiter applied to form posts and logins.
type RateLimitConfig struct {
	Backend string // sql or redis
	Max     int
	Window  time.Duration
}

// S3Config contains the asset bucket configuration.
type S3Config struct {
	Region          string
	Bucket          string
	Endpoint        string
	PublicBaseURL   string
	AccessKeyID     string
	SecretAccessKey string
}

// ModerationConfig enables Rekognition image moderation before uploads.
type ModerationConfig struct {
	Enabled       bool
	Region        string
	MinConfidence float64
}

// Section is a catalogue category shown on the commerce page.
type Section struct {
	Key   string `yaml:"key"`
	Label string `yaml:"label"`
}

// CatalogConfig lists the catalogue sections and the feature flag keys.
type CatalogConfig struct {
	Sections []Section `yaml:"sections"`
	Flags    []string  `yaml:"flags"`
}

// fileConfig is the optional YAML overlay read from CONFIG_FILE.
type fileConfig struct {
	Catalog CatalogConfig `yaml:"catalog"`
}

// DefaultSections are used when no CONFIG_FILE declares sections.
var DefaultSections = []Section{
	{Key: "foyer", Label: "Articles du foyer"},
	{Key: "marche", Label: "Produits du marché"},
}

// DefaultFlags are the feature flags ensured at startup.
var DefaultFlags = []string{"commerce", "investissement", "recrutement"}

// Load reads configuration from environment variables. If a .env file exists
// in the working directory, it will be loaded first. It returns a populated
// Config or an error with a human-friendly message.
func Load() (*Config, error) {
	// Load .env if present; ignore error if file is missing so that production
	// environments relying solely on real environment variables keep working.
	_ = godotenv.Load()

	cfg := &Config{}
	var err error

	// Server
	cfg.Port = getEnv("PORT", "8080")
	cfg.Env = getEnv("ENV", "development")
	cfg.TrustedProxies = splitList(getEnv("TRUSTED_PROXIES", ""))

	// Database
	cfg.DB = DatabaseConfig{
		Driver:       strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		Host:         getEnv("DB_HOST", ""),
		Port:         getEnv("DB_PORT", "5432"),
		User:         getEnv("DB_USER", ""),
		Password:     getEnv("DB_PASSWORD", ""),
		Name:         getEnv("DB_NAME", ""),
		SSLMode:      getEnv("DB_SSLMODE", "disable"),
		FallbackPath: getEnv("DB_FALLBACK_PATH", "commerce.db"),
	}

	// Redis
	cfg.Redis = RedisConfig{
		Enabled:  getEnvBool("REDIS_ENABLED", false),
		Host:     getEnv("REDIS_HOST", "redis"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
	}
	if cfg.Redis.DB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}

	// Admin
	cfg.Admin = AdminConfig{
		Password:      getEnv("ADMIN_PASSWORD", ""),
		PasswordHash:  getEnv("ADMIN_PASSWORD_HASH", ""),
		SessionSecret: getEnv("SESSION_SECRET", ""),
		CookieSecure:  getEnvBool("COOKIE_SECURE", true),
	}

	// Contact
	cfg.Contact = ContactConfig{
		WhatsAppNumber: getEnv("WHATSAPP_NUMBER", ""),
	}
	if cfg.Contact.MinInvestmentAmount, err = getEnvInt("MIN_INVESTMENT_AMOUNT", 50000); err != nil {
		return nil, err
	}

	// Rate limiting
	cfg.RateLimit = RateLimitConfig{
		Backend: strings.ToLower(getEnv("RATE_LIMIT_BACKEND", RateLimitBackendSQL)),
	}
	if cfg.RateLimit.Max, err = getEnvInt("RATE_LIMIT_MAX", 5); err != nil {
		return nil, err
	}

	// S3 asset host
	cfg.S3 = S3Config{
		Region:          getEnv("S3_REGION", "eu-west-3"),
		Bucket:          getEnv("S3_BUCKET", ""),
		Endpoint:        getEnv("S3_ENDPOINT", ""),
		PublicBaseURL:   getEnv("S3_PUBLIC_BASE_URL", ""),
		AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
		SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
	}

	// Image moderation (Rekognition)
	cfg.Moderation = ModerationConfig{
		Enabled: getEnvBool("IMAGE_MODERATION_ENABLED", false),
		Region:  getEnv("AWS_REKOGNITION_REGION", "eu-west-1"),
	}
	minConf, err := strconv.ParseFloat(getEnv("IMAGE_MODERATION_MIN_CONFIDENCE", "80"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid IMAGE_MODERATION_MIN_CONFIDENCE: %w", err)
	}
	cfg.Moderation.MinConfidence = minConf

	maxUpload, err := strconv.ParseInt(getEnv("MAX_UPLOAD_BYTES", "5242880"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_UPLOAD_BYTES: %w", err)
	}
	cfg.MaxUploadBytes = maxUpload

	// Durations
	if cfg.Admin.SessionTTL, err = parseDurationEnv("SESSION_TTL", "30m"); err != nil {
		return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
	}
	if cfg.RateLimit.Window, err = parseDurationEnv("RATE_LIMIT_WINDOW", "1m"); err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_WINDOW: %w", err)
	}

	// Catalogue overlay
	cfg.Catalog = CatalogConfig{Sections: DefaultSections, Flags: DefaultFlags}
	if path := getEnv("CONFIG_FILE", ""); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the required parameters.
func (c *Config) Validate() error {
	switch c.DB.Driver {
	case "postgres":
		if c.DB.Host == "" || c.DB.User == "" || c.DB.Name == "" {
			return errors.New("database configuration incomplete: ensure DB_HOST, DB_USER, and DB_NAME are set")
		}
	case "sqlite":
		if c.DB.FallbackPath == "" {
			return errors.New("DB_FALLBACK_PATH must be set when DB_DRIVER=sqlite")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DB.Driver)
	}

	if c.Admin.Password == "" && c.Admin.PasswordHash == "" {
		return errors.New("ADMIN_PASSWORD or ADMIN_PASSWORD_HASH must be set")
	}
	if c.Admin.SessionSecret == "" {
		return errors.New("SESSION_SECRET must be set for admin sessions")
	}
	if c.RateLimit.Backend != RateLimitBackendSQL && c.RateLimit.Backend != RateLimitBackendRedis {
		return fmt.Errorf("unsupported RATE_LIMIT_BACKEND %q", c.RateLimit.Backend)
	}
	if c.RateLimit.Backend == RateLimitBackendRedis && !c.Redis.Enabled {
		return errors.New("RATE_LIMIT_BACKEND=redis requires REDIS_ENABLED=true")
	}
	if c.RateLimit.Max <= 0 {
		return errors.New("RATE_LIMIT_MAX must be positive")
	}
	if c.RateLimit.Window <= 0 {
		return errors.New("RATE_LIMIT_WINDOW must be positive")
	}
	if c.Contact.MinInvestmentAmount < 0 {
		return errors.New("MIN_INVESTMENT_AMOUNT must not be negative")
	}
	if c.Contact.WhatsAppNumber == "" {
		return errors.New("WHATSAPP_NUMBER must be set for contact redirects")
	}
	if len(c.Catalog.Sections) == 0 {
		return errors.New("at least one catalogue section is required")
	}
	return nil
}

// SectionLabel returns the display label of a section and whether it exists.
func (c *CatalogConfig) SectionLabel(key string) (string, bool) {
	for _, s := range c.Sections {
		if s.Key == key {
			return s.Label, true
		}
	}
	return "", false
}

func (c *Config) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read CONFIG_FILE: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("parse CONFIG_FILE: %w", err)
	}
	if len(fc.Catalog.Sections) > 0 {
		for _, s := range fc.Catalog.Sections {
			if s.Key == "" {
				return errors.New("CONFIG_FILE: section key must not be empty")
			}
		}
		c.Catalog.Sections = fc.Catalog.Sections
	}
	if len(fc.Catalog.Flags) > 0 {
		c.Catalog.Flags = fc.Catalog.Flags
	}
	return nil
}

// getEnv returns the value of an environment variable or a default if empty.
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvInt returns the value of an environment variable as an integer, or def
// when it is empty. A value that is not an integer is an error.
func getEnvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q is not an integer", key, v)
	}
	return i, nil
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseDurationEnv reads an environment variable and parses it as time.Duration.
// If the variable is empty, it falls back to the provided default value.
func parseDurationEnv(key, def string) (time.Duration, error) {
	raw := getEnv(key, def)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must be >= 0")
	}
	return d, nil
}
