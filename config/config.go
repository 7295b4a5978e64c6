package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type StripeConfig struct {
	SecretKey             string `validate:"required"`
	PublishableKey        string
	WebhookSecret         string `validate:"required"`
	IdentityWebhookSecret string `validate:"required"`
}

type SMTPConfig struct {
	Host     string
	Port     string `validate:"required_with=Host"`
	Username string
	Password string
	From     string `validate:"omitempty,email"`
}

type GoogleConfig struct {
	ClientID         string
	ClientSecret     string `validate:"required_with=ClientID"`
	RedirectURL      string `validate:"omitempty,url"`
	FrontendRedirect string
}

// Enabled reports whether Google sign-in is configured.
func (g GoogleConfig) Enabled() bool { return g.ClientID != "" }

type LogConfig struct {
	Level string `validate:"omitempty,oneof=debug info warn warning error"`
	Dev   bool
	File  string
}

type Config struct {
	AppEnv     string
	Port       string `validate:"required,numeric"`
	DBURL      string `validate:"required"`
	JWTSecret  string `validate:"required"`
	SiteURL    string `validate:"required,url"`
	AdminEmail string `validate:"required,email"`
	CORSOrigin string
	Currency   string `validate:"required,len=3,lowercase"`

	Stripe StripeConfig
	SMTP   SMTPConfig
	Google GoogleConfig
	Log    LogConfig
}

// Load reads the environment (and a .env file when present) into a validated Config.
func Load() (*Config, error) {
	loadDotEnv()

	cfg := &Config{
		AppEnv:     getEnv("APP_ENV", "dev"),
		Port:       getEnv("PORT", "8080"),
		DBURL:      os.Getenv("DB_URL"),
		JWTSecret:  os.Getenv("JWT_SECRET"),
		SiteURL:    strings.TrimRight(os.Getenv("SITE_URL"), "/"),
		AdminEmail: os.Getenv("ADMIN_EMAIL"),
		CORSOrigin: getEnv("CORS_ORIGIN", "http://localhost:3000"),
		Currency:   strings.ToLower(getEnv("CURRENCY", "eur")),
		Stripe: StripeConfig{
			SecretKey:             os.Getenv("STRIPE_SECRET_KEY"),
			PublishableKey:        os.Getenv("STRIPE_PUBLISHABLE_KEY"),
			WebhookSecret:         os.Getenv("STRIPE_WEBHOOK_SECRET"),
			IdentityWebhookSecret: os.Getenv("STRIPE_IDENTITY_WEBHOOK_SECRET"),
		},
		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     getEnv("SMTP_PORT", "587"),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     os.Getenv("SMTP_FROM"),
		},
		Google: GoogleConfig{
			ClientID:         os.Getenv("GOOGLE_CLIENT_ID"),
			ClientSecret:     os.Getenv("GOOGLE_CLIENT_SECRET"),
			RedirectURL:      os.Getenv("GOOGLE_REDIRECT_URL"),
			FrontendRedirect: os.Getenv("GOOGLE_FRONTEND_REDIRECT"),
		},
		Log: LogConfig{
			Level: strings.ToLower(os.Getenv("LOG_LEVEL")),
			Dev:   os.Getenv("LOG_DEV") == "1",
			File:  os.Getenv("LOG_FILE"),
		},
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, describe(err)
	}
	return cfg, nil
}

// DatabaseURL returns DB_URL alone, for commands that only touch the database.
func DatabaseURL() (string, error) {
	loadDotEnv()
	return mustEnv("DB_URL")
}

func loadDotEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Using system environment variables.")
	}
}

func describe(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(fields, ", "))
}

func mustEnv(key string) (string, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", fmt.Errorf("missing required environment variable: %s", key)
	}
	return v, nil
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}
