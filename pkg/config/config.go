package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                    string
	Env                     string
	FirebaseCredentialsPath string
	PostgresURL             string
	MongoURI                string
	MongoDatabase           string
	JWTSecret               string
	AppBaseURL              string

	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubject    string
	PushTTL         time.Duration

	OneSignalAppID  string
	OneSignalAPIKey string
	OneSignalAPIURL string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
}

// Load reads configuration from the environment, after loading a .env file if one exists.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using process environment")
	}
	return fromEnv()
}

func fromEnv() (*Config, error) {
	pushTTL, err := getEnvDuration("PUSH_TTL", 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("parse PUSH_TTL: %w", err)
	}
	interval, err := getEnvDuration("OUTBOX_POLL_INTERVAL", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("parse OUTBOX_POLL_INTERVAL: %w", err)
	}
	batchSize, err := getEnvInt("OUTBOX_BATCH_SIZE", 10)
	if err != nil {
		return nil, fmt.Errorf("parse OUTBOX_BATCH_SIZE: %w", err)
	}
	maxAttempts, err := getEnvInt("OUTBOX_MAX_ATTEMPTS", 3)
	if err != nil {
		return nil, fmt.Errorf("parse OUTBOX_MAX_ATTEMPTS: %w", err)
	}

	cfg := &Config{
		Port:                    getEnv("PORT", "8080"),
		Env:                     getEnv("ENV", "development"),
		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
		PostgresURL:             getEnv("POSTGRES_CONN_STR", ""),
		MongoURI:                getEnv("MONGO_URI", ""),
		MongoDatabase:           getEnv("MONGO_DATABASE", "notifications"),
		JWTSecret:               getEnv("JWT_SECRET", ""),
		AppBaseURL:              getEnv("APP_BASE_URL", "/"),
		VAPIDPublicKey:          getEnv("VAPID_PUBLIC_KEY", ""),
		VAPIDPrivateKey:         getEnv("VAPID_PRIVATE_KEY", ""),
		VAPIDSubject:            getEnv("VAPID_SUBJECT", "notifications@example.com"),
		PushTTL:                 pushTTL,
		OneSignalAppID:          getEnv("ONESIGNAL_APP_ID", ""),
		OneSignalAPIKey:         getEnv("ONESIGNAL_API_KEY", ""),
		OneSignalAPIURL:         getEnv("ONESIGNAL_API_URL", "https://api.onesignal.com"),
		OutboxPollInterval:      interval,
		OutboxBatchSize:         batchSize,
		OutboxMaxAttempts:       maxAttempts,
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.OutboxPollInterval <= 0 {
		return fmt.Errorf("OUTBOX_POLL_INTERVAL must be positive")
	}
	if c.OutboxBatchSize <= 0 {
		return fmt.Errorf("OUTBOX_BATCH_SIZE must be positive")
	}
	if c.OutboxMaxAttempts <= 0 {
		return fmt.Errorf("OUTBOX_MAX_ATTEMPTS must be positive")
	}
	return nil
}

// ValidateAuth requires a way to authenticate API callers: Firebase
// credentials or a JWT signing secret.
func (c *Config) ValidateAuth() error {
	if c.FirebaseCredentialsPath == "" && c.JWTSecret == "" {
		return fmt.Errorf("either FIREBASE_CREDENTIALS_PATH or JWT_SECRET must be set")
	}
	return nil
}

// IsProduction reports whether the service runs with ENV=production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	return strconv.Atoi(v)
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	return time.ParseDuration(v)
}
