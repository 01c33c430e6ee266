package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DBDSN       string
	HTTPAddr    string
	Environment string

	// Payment gateway.
	PaymentSecretKey   string
	PaymentBaseURL     string
	PaymentCallbackURL string
	Currency           string

	// Optional Telegram notification sink.
	TelegramToken string

	// Payout policy, injected into the dispute/payout flows instead of a
	// global settings lookup.
	CommissionRate float64
	MinPayout      float64

	// Fallback lesson price when neither the request nor the tutor profile
	// carries one.
	DefaultLessonPrice float64
}

func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		DBDSN:              os.Getenv("DB_DSN"),
		HTTPAddr:           os.Getenv("HTTP_ADDR"),
		Environment:        os.Getenv("ENV"),
		PaymentSecretKey:   os.Getenv("PAYMENT_SECRET_KEY"),
		PaymentBaseURL:     os.Getenv("PAYMENT_BASE_URL"),
		PaymentCallbackURL: os.Getenv("PAYMENT_CALLBACK_URL"),
		Currency:           os.Getenv("CURRENCY"),
		TelegramToken:      os.Getenv("TELEGRAM_TOKEN"),
		CommissionRate:     envFloat("COMMISSION_RATE", 0.15),
		MinPayout:          envFloat("MIN_PAYOUT", 10),
		DefaultLessonPrice: envFloat("DEFAULT_LESSON_PRICE", 20),
	}

	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.Currency == "" {
		cfg.Currency = "USD"
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required but not set")
	}

	return cfg, nil
}

func envFloat(key string, def float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Printf("Invalid %s=%q, using default %v", key, raw, def)
		return def
	}
	return v
}
