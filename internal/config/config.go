package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Delivery  DeliveryConfig
	Order     OrderConfig
	Kafka     KafkaConfig
	Tracing   TracingConfig
	Metrics   MetricsConfig
	Stripe    StripeConfig
	Email     EmailConfig
	Printer   PrinterConfig
	Admin     AdminConfig
}

type AppConfig struct {
	Name     string
	Version  string
	Env      string
	Port     string
	Debug    bool
	Timezone string
	LogLevel string
}

type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
	Timezone string
}

type JWTConfig struct {
	Secret      string
	ExpiryHours time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

type RateLimitConfig struct {
	Requests int
	Duration int
}

// DeliveryConfig is the two-zone delivery fee table, amounts in minor units
type DeliveryConfig struct {
	InsideZone     string
	OutsideZone    string
	InsideKeywords []string
	InsideFee      int64
	OutsideFee     int64
}

type OrderConfig struct {
	// TotalTolerance is the largest accepted difference, in minor units,
	// between caller-supplied totals and recomputed ones.
	TotalTolerance int64
	Currency       string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type TracingConfig struct {
	Endpoint    string
	URLPath     string
	Insecure    bool
	SampleRatio float64
}

type MetricsConfig struct {
	Enabled bool
	Path    string
}

type StripeConfig struct {
	SecretKey string
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromName     string
	FromEmail    string
	FrontendURL  string
}

type PrinterConfig struct {
	Type      string
	USBPath   string
	Address   string
	CharWidth int
}

type AdminConfig struct {
	Email    string
	Password string
	Name     string
}

func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	// A missing .env is fine: the environment alone can configure the service
	_ = viper.ReadInConfig()

	setDefaults()

	cfg := &Config{
		App: AppConfig{
			Name:     viper.GetString("APP_NAME"),
			Version:  viper.GetString("APP_VERSION"),
			Env:      viper.GetString("APP_ENV"),
			Port:     viper.GetString("APP_PORT"),
			Debug:    viper.GetBool("APP_DEBUG"),
			Timezone: viper.GetString("APP_TIMEZONE"),
			LogLevel: viper.GetString("LOG_LEVEL"),
		},
		Database: DatabaseConfig{
			Driver:   viper.GetString("DB_DRIVER"),
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			Name:     viper.GetString("DB_NAME"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			SSLMode:  viper.GetString("DB_SSL_MODE"),
			Timezone: viper.GetString("DB_TIMEZONE"),
		},
		JWT: JWTConfig{
			Secret:      viper.GetString("JWT_SECRET"),
			ExpiryHours: time.Duration(viper.GetInt("JWT_EXPIRY_HOURS")) * time.Hour,
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(viper.GetString("CORS_ALLOWED_ORIGINS")),
			AllowedMethods: splitList(viper.GetString("CORS_ALLOWED_METHODS")),
			AllowedHeaders: splitList(viper.GetString("CORS_ALLOWED_HEADERS")),
		},
		RateLimit: RateLimitConfig{
			Requests: viper.GetInt("RATE_LIMIT_REQUESTS"),
			Duration: viper.GetInt("RATE_LIMIT_DURATION"),
		},
		Delivery: DeliveryConfig{
			InsideZone:     viper.GetString("DELIVERY_INSIDE_ZONE"),
			OutsideZone:    viper.GetString("DELIVERY_OUTSIDE_ZONE"),
			InsideKeywords: splitList(viper.GetString("DELIVERY_INSIDE_KEYWORDS")),
			InsideFee:      viper.GetInt64("DELIVERY_INSIDE_FEE"),
			OutsideFee:     viper.GetInt64("DELIVERY_OUTSIDE_FEE"),
		},
		Order: OrderConfig{
			TotalTolerance: viper.GetInt64("ORDER_TOTAL_TOLERANCE"),
			Currency:       strings.ToLower(viper.GetString("ORDER_CURRENCY")),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(viper.GetString("KAFKA_BROKERS")),
			Topic:   viper.GetString("KAFKA_TOPIC"),
		},
		Tracing: TracingConfig{
			Endpoint:    viper.GetString("OTEL_ENDPOINT"),
			URLPath:     viper.GetString("OTEL_URL_PATH"),
			Insecure:    viper.GetBool("OTEL_INSECURE"),
			SampleRatio: viper.GetFloat64("OTEL_SAMPLE_RATIO"),
		},
		Metrics: MetricsConfig{
			Enabled: viper.GetBool("METRICS_ENABLED"),
			Path:    viper.GetString("METRICS_PATH"),
		},
		Stripe: StripeConfig{
			SecretKey: viper.GetString("STRIPE_SECRET"),
		},
		Email: EmailConfig{
			SMTPHost:     viper.GetString("SMTP_HOST"),
			SMTPPort:     viper.GetInt("SMTP_PORT"),
			SMTPUsername: viper.GetString("SMTP_USERNAME"),
			SMTPPassword: viper.GetString("SMTP_PASSWORD"),
			FromName:     viper.GetString("MAIL_FROM_NAME"),
			FromEmail:    viper.GetString("MAIL_FROM_ADDRESS"),
			FrontendURL:  viper.GetString("FRONTEND_URL"),
		},
		Printer: PrinterConfig{
			Type:      viper.GetString("PRINTER_TYPE"),
			USBPath:   viper.GetString("PRINTER_USB_PATH"),
			Address:   viper.GetString("PRINTER_ADDRESS"),
			CharWidth: viper.GetInt("PRINTER_CHAR_WIDTH"),
		},
		Admin: AdminConfig{
			Email:    viper.GetString("ADMIN_EMAIL"),
			Password: viper.GetString("ADMIN_PASSWORD"),
			Name:     viper.GetString("ADMIN_NAME"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults() {
	viper.SetDefault("APP_NAME", "storefront-api")
	viper.SetDefault("APP_VERSION", "0.1.0")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("APP_DEBUG", true)
	viper.SetDefault("APP_TIMEZONE", "Asia/Dhaka")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("DB_DRIVER", "postgres")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_NAME", "storefront")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "postgres")
	viper.SetDefault("DB_SSL_MODE", "disable")
	viper.SetDefault("DB_TIMEZONE", "Asia/Dhaka")
	viper.SetDefault("JWT_SECRET", "change-this-secret-in-production")
	viper.SetDefault("JWT_EXPIRY_HOURS", 24)
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	viper.SetDefault("RATE_LIMIT_REQUESTS", 100)
	viper.SetDefault("RATE_LIMIT_DURATION", 60)
	viper.SetDefault("DELIVERY_INSIDE_ZONE", "inside_dhaka")
	viper.SetDefault("DELIVERY_OUTSIDE_ZONE", "outside_dhaka")
	viper.SetDefault("DELIVERY_INSIDE_KEYWORDS", "dhaka")
	viper.SetDefault("DELIVERY_INSIDE_FEE", 8000)
	viper.SetDefault("DELIVERY_OUTSIDE_FEE", 12000)
	viper.SetDefault("ORDER_TOTAL_TOLERANCE", 1)
	viper.SetDefault("ORDER_CURRENCY", "bdt")
	viper.SetDefault("KAFKA_TOPIC", "storefront.orders")
	viper.SetDefault("OTEL_SAMPLE_RATIO", 1.0)
	viper.SetDefault("METRICS_ENABLED", true)
	viper.SetDefault("METRICS_PATH", "/metrics")
	viper.SetDefault("SMTP_PORT", 587)
	viper.SetDefault("MAIL_FROM_NAME", "Storefront")
	viper.SetDefault("PRINTER_TYPE", "none")
	viper.SetDefault("PRINTER_CHAR_WIDTH", 32)
	viper.SetDefault("ADMIN_EMAIL", "admin@storefront.local")
	viper.SetDefault("ADMIN_PASSWORD", "admin12345")
	viper.SetDefault("ADMIN_NAME", "Store Admin")
}

// Validate rejects settings the service cannot run with
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("config: unsupported DB_DRIVER %q (use postgres or memory)", c.Database.Driver)
	}
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("config: invalid APP_TIMEZONE %q: %w", c.App.Timezone, err)
	}
	if c.Delivery.InsideFee < 0 || c.Delivery.OutsideFee < 0 {
		return fmt.Errorf("config: delivery fees must not be negative")
	}
	if c.Order.TotalTolerance < 0 {
		return fmt.Errorf("config: ORDER_TOTAL_TOLERANCE must not be negative")
	}
	if c.App.Env == "production" && c.JWT.Secret == "change-this-secret-in-production" {
		return fmt.Errorf("config: JWT_SECRET must be set in production")
	}
	return nil
}

// Location returns the store time zone used for sales windows
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *DatabaseConfig) DSN() string {
	return "host=" + c.Host +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.Name +
		" port=" + c.Port +
		" sslmode=" + c.SSLMode +
		" TimeZone=" + c.Timezone
}

// splitList parses comma separated env values, dropping blanks
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
