package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type HTTPConfig struct {
	Host        string
	Port        int
	CORSOrigins []string
}

type DBConfig struct {
	Driver   string
	DSN      string
	MaxConns int32
}

type AuthConfig struct {
	Secret           string
	TokenTTL         time.Duration
	PasswordResetTTL time.Duration
}

type ListingConfig struct {
	DefaultPageSize int
	MaxPageSize     int
}

type MailConfig struct {
	Provider     string
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	PlunkAPIKey  string
	PlunkFrom    string
	PlunkAPIURL  string
	ReplyTo      string
}

type AlertsConfig struct {
	Enabled     bool
	RedisAddr   string
	Concurrency int
}

type Config struct {
	Environment        string
	AppURL             string
	HTTP               HTTPConfig
	DB                 DBConfig
	Auth               AuthConfig
	Listing            ListingConfig
	UploadMaxBytes     int64
	Alerts             AlertsConfig
	Mail               MailConfig
	MetricsEnabled     bool
	DirectoryCacheSize int
}

// Load reads configuration from a local .env file, an optional app.env file and
// the process environment, in increasing order of precedence.
func Load() (*Config, error) {
	v := newViper()

	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		AppURL:      strings.TrimRight(v.GetString("APP_URL"), "/"),
		HTTP: HTTPConfig{
			Host:        v.GetString("HTTP_HOST"),
			Port:        v.GetInt("HTTP_PORT"),
			CORSOrigins: parseList(v.GetString("CORS_ORIGINS")),
		},
		DB: DBConfig{
			Driver:   strings.ToLower(v.GetString("STORAGE_DRIVER")),
			DSN:      v.GetString("DB_DSN"),
			MaxConns: v.GetInt32("DB_MAX_CONNS"),
		},
		Auth: AuthConfig{
			Secret:           v.GetString("JWT_SECRET"),
			TokenTTL:         v.GetDuration("JWT_TTL"),
			PasswordResetTTL: v.GetDuration("PASSWORD_RESET_TTL"),
		},
		Listing: ListingConfig{
			DefaultPageSize: v.GetInt("LISTING_DEFAULT_PAGE_SIZE"),
			MaxPageSize:     v.GetInt("LISTING_MAX_PAGE_SIZE"),
		},
		UploadMaxBytes: v.GetInt64("UPLOAD_MAX_BYTES"),
		Alerts: AlertsConfig{
			Enabled:     v.GetBool("ALERTS_ENABLED"),
			RedisAddr:   v.GetString("REDIS_ADDR"),
			Concurrency: v.GetInt("ALERTS_CONCURRENCY"),
		},
		Mail: MailConfig{
			Provider:     strings.ToLower(v.GetString("MAIL_PROVIDER")),
			SMTPHost:     v.GetString("SMTP_HOST"),
			SMTPPort:     v.GetString("SMTP_PORT"),
			SMTPUsername: v.GetString("SMTP_USERNAME"),
			SMTPPassword: v.GetString("SMTP_PASSWORD"),
			SMTPFrom:     v.GetString("SMTP_FROM"),
			PlunkAPIKey:  v.GetString("PLUNK_API_KEY"),
			PlunkFrom:    v.GetString("PLUNK_FROM"),
			PlunkAPIURL:  v.GetString("PLUNK_API_URL"),
			ReplyTo:      v.GetString("MAIL_REPLY_TO"),
		},
		MetricsEnabled:     v.GetBool("METRICS_ENABLED"),
		DirectoryCacheSize: v.GetInt("DIRECTORY_CACHE_SIZE"),
	}

	if cfg.DB.DSN == "" && v.GetString("DB_HOST") != "" {
		cfg.DB.DSN = buildDSN(v)
	}
	if cfg.Mail.Provider == "" && cfg.Mail.PlunkAPIKey != "" {
		cfg.Mail.Provider = "plunk"
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newViper() *viper.Viper {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()

	_ = v.ReadInConfig()

	setDefaults(v)
	return v
}

// LoadDB reads only the Postgres settings, for tools that do not serve HTTP.
func LoadDB() (DBConfig, error) {
	v := newViper()
	cfg := DBConfig{
		Driver:   DriverPostgres,
		DSN:      v.GetString("DB_DSN"),
		MaxConns: v.GetInt32("DB_MAX_CONNS"),
	}
	if cfg.DSN == "" && v.GetString("DB_HOST") != "" {
		cfg.DSN = buildDSN(v)
	}
	if cfg.DSN == "" {
		return cfg, fmt.Errorf("DB_DSN (or DB_HOST/DB_NAME) is required")
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_URL", "http://localhost:3000")
	v.SetDefault("HTTP_HOST", "0.0.0.0")
	v.SetDefault("HTTP_PORT", 8080)
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("STORAGE_DRIVER", DriverPostgres)
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("JWT_TTL", "720h")
	v.SetDefault("PASSWORD_RESET_TTL", "30m")
	v.SetDefault("LISTING_DEFAULT_PAGE_SIZE", 20)
	v.SetDefault("LISTING_MAX_PAGE_SIZE", 200)
	v.SetDefault("UPLOAD_MAX_BYTES", 5<<20)
	v.SetDefault("REDIS_ADDR", "127.0.0.1:6379")
	v.SetDefault("ALERTS_CONCURRENCY", 5)
	v.SetDefault("PLUNK_API_URL", "https://api.useplunk.com/v1/send")
	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("DIRECTORY_CACHE_SIZE", 512)
}

func validate(cfg *Config) error {
	if cfg.Auth.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	switch cfg.DB.Driver {
	case DriverPostgres:
		if cfg.DB.DSN == "" {
			return fmt.Errorf("DB_DSN (or DB_HOST/DB_NAME) is required for the postgres driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.DB.Driver)
	}
	if cfg.Listing.DefaultPageSize <= 0 {
		return fmt.Errorf("LISTING_DEFAULT_PAGE_SIZE must be positive")
	}
	if cfg.Listing.MaxPageSize < cfg.Listing.DefaultPageSize {
		return fmt.Errorf("LISTING_MAX_PAGE_SIZE must be >= LISTING_DEFAULT_PAGE_SIZE")
	}
	if cfg.UploadMaxBytes <= 0 {
		return fmt.Errorf("UPLOAD_MAX_BYTES must be positive")
	}
	if cfg.Auth.TokenTTL <= 0 || cfg.Auth.PasswordResetTTL <= 0 {
		return fmt.Errorf("JWT_TTL and PASSWORD_RESET_TTL must be positive durations")
	}
	return nil
}

func buildDSN(v *viper.Viper) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(v.GetString("DB_USER"), v.GetString("DB_PASSWORD")),
		Host:   v.GetString("DB_HOST") + ":" + v.GetString("DB_PORT"),
		Path:   "/" + v.GetString("DB_NAME"),
	}
	if mode := v.GetString("DB_SSLMODE"); mode != "" {
		u.RawQuery = "sslmode=" + mode
	}
	return u.String()
}

func parseList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	items := strings.Split(raw, ",")
	result := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			result = append(result, item)
		}
	}
	return result
}
