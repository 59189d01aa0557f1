// Package config loads per-binary settings from the environment.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-faster/errors"
)

type Storefront struct {
	Port          string        `env:"PORT" envDefault:"8081"`
	PostgresURL   string        `env:"POSTGRES_URL,required,notEmpty"`
	JWTSecret     string        `env:"JWT_SECRET"`
	JWTSecretFile string        `env:"JWT_SECRET_FILE"`
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	CacheTTL      time.Duration `env:"ORDER_CACHE_TTL" envDefault:"5m"`
	Receipts      Receipts
	Telemetry     Telemetry
}

// Receipts selects how receipt jobs leave the storefront. With no broker
// configured, jobs are handled in-process against MailServiceURL.
type Receipts struct {
	Transport      string        `env:"RECEIPT_TRANSPORT" envDefault:"kafka"`
	KafkaBrokers   []string      `env:"KAFKA_BROKERS" envSeparator:","`
	Topic          string        `env:"RECEIPT_TOPIC" envDefault:"order.receipts"`
	AMQPURL        string        `env:"AMQP_URL"`
	Queue          string        `env:"RECEIPT_QUEUE" envDefault:"order.receipts"`
	SubmitTimeout  time.Duration `env:"RECEIPT_SUBMIT_TIMEOUT" envDefault:"10s"`
	MailServiceURL string        `env:"EMAIL_SERVICE_URL"`
	AdminEmail     string        `env:"ADMIN_EMAIL" envDefault:"admin@studyshop.vn"`
	Brand          string        `env:"BRAND_NAME" envDefault:"StudyShop"`
	BankName       string        `env:"BANK_NAME" envDefault:"Vietcombank"`
	BankAccount    string        `env:"BANK_ACCOUNT" envDefault:"0000000000"`
	AccountHolder  string        `env:"BANK_ACCOUNT_HOLDER" envDefault:"STUDYSHOP"`
}

type Telemetry struct {
	ServiceVersion string `env:"SERVICE_VERSION" envDefault:"0.1.0"`
	TracingEnabled bool   `env:"OTEL_TRACING_ENABLED" envDefault:"false"`
	OTLPEndpoint   string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
}

type Worker struct {
	Receipts    Receipts
	GroupID     string        `env:"CONSUMER_GROUP" envDefault:"receipt-worker"`
	Timeout     time.Duration `env:"HTTP_TIMEOUT" envDefault:"10s"`
	MetricsPort string        `env:"METRICS_PORT" envDefault:"9091"`
	Telemetry   Telemetry
}

type Email struct {
	Port         string `env:"PORT" envDefault:"8084"`
	From         string `env:"MAIL_FROM" envDefault:"no-reply@studyshop.vn"`
	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPPassFile string `env:"SMTP_PASSWORD_FILE"`
	Telemetry    Telemetry
}

type Gateway struct {
	Port          string        `env:"PORT" envDefault:"8080"`
	StorefrontURL string        `env:"STOREFRONT_SERVICE_URL,required,notEmpty"`
	Timeout       time.Duration `env:"HTTP_TIMEOUT" envDefault:"10s"`
	Telemetry     Telemetry
}

func LoadStorefront() (*Storefront, error) {
	var cfg Storefront
	if err := env.Parse(&cfg); err != nil {
		return nil, errors.Wrap(err, "parse storefront config")
	}

	secret, err := secretFromFile(cfg.JWTSecretFile, cfg.JWTSecret)
	if err != nil {
		return nil, errors.Wrap(err, "read JWT_SECRET_FILE")
	}
	if secret == "" {
		return nil, errors.New("JWT_SECRET or JWT_SECRET_FILE is required")
	}
	cfg.JWTSecret = secret

	return &cfg, nil
}

func LoadWorker() (*Worker, error) {
	var cfg Worker
	if err := env.Parse(&cfg); err != nil {
		return nil, errors.Wrap(err, "parse worker config")
	}
	if cfg.Receipts.MailServiceURL == "" {
		return nil, errors.New("EMAIL_SERVICE_URL is required")
	}
	return &cfg, nil
}

func LoadEmail() (*Email, error) {
	var cfg Email
	if err := env.Parse(&cfg); err != nil {
		return nil, errors.Wrap(err, "parse email config")
	}

	password, err := secretFromFile(cfg.SMTPPassFile, cfg.SMTPPassword)
	if err != nil {
		return nil, errors.Wrap(err, "read SMTP_PASSWORD_FILE")
	}
	cfg.SMTPPassword = password

	return &cfg, nil
}

func LoadGateway() (*Gateway, error) {
	var cfg Gateway
	if err := env.Parse(&cfg); err != nil {
		return nil, errors.Wrap(err, "parse gateway config")
	}
	return &cfg, nil
}

type Migrate struct {
	PostgresURL    string `env:"POSTGRES_URL,required,notEmpty"`
	MigrationsPath string `env:"MIGRATIONS_PATH" envDefault:"file://migrations"`
}

func LoadMigrate() (*Migrate, error) {
	var cfg Migrate
	if err := env.Parse(&cfg); err != nil {
		return nil, errors.Wrap(err, "parse migrate config")
	}
	return &cfg, nil
}

// secretFromFile prefers the contents of path (docker/k8s secrets) over the
// plain value.
func secretFromFile(path, fallback string) (string, error) {
	if path == "" {
		return fallback, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(content)), nil
}
