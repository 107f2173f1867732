package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Security SecurityConfig
	Payment  PaymentConfig
}

type AppConfig struct {
	Port       string
	Env        string
	CORSOrigin string
}

type DBConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	Name           string
	MigrationsPath string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret        string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

// SecurityConfig controls the login throttle.
type SecurityConfig struct {
	MaxLoginAttempts int
	LockDuration     time.Duration
}

// PaymentConfig holds the payment provider credentials. KeySecret doubles as the
// HMAC key for callback signatures.
type PaymentConfig struct {
	KeyID        string
	KeySecret    string
	Currency     string
	OrderTimeout time.Duration
	OrderTTL     time.Duration
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	// the .env file is optional; plain environment variables are enough
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("SECURITY_MAX_LOGIN_ATTEMPTS", 5)
	viper.SetDefault("PAYMENT_CURRENCY", "INR")

	config := &Config{
		App: AppConfig{
			Port:       viper.GetString("APP_PORT"),
			Env:        viper.GetString("APP_ENV"),
			CORSOrigin: viper.GetString("APP_CORS_ORIGIN"),
		},
		DB: DBConfig{
			Host:           viper.GetString("DB_HOST"),
			Port:           viper.GetString("DB_PORT"),
			User:           viper.GetString("DB_USER"),
			Password:       viper.GetString("DB_PASSWORD"),
			Name:           viper.GetString("DB_NAME"),
			MigrationsPath: viper.GetString("DB_MIGRATIONS_PATH"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:        viper.GetString("JWT_SECRET"),
			AccessExpiry:  parseDuration("JWT_ACCESS_EXPIRY", 15*time.Minute),
			RefreshExpiry: parseDuration("JWT_REFRESH_EXPIRY", 7*24*time.Hour),
		},
		Security: SecurityConfig{
			MaxLoginAttempts: viper.GetInt("SECURITY_MAX_LOGIN_ATTEMPTS"),
			LockDuration:     parseDuration("SECURITY_LOCK_DURATION", 2*time.Hour),
		},
		Payment: PaymentConfig{
			KeyID:        viper.GetString("RAZORPAY_KEY_ID"),
			KeySecret:    viper.GetString("RAZORPAY_KEY_SECRET"),
			Currency:     viper.GetString("PAYMENT_CURRENCY"),
			OrderTimeout: parseDuration("PAYMENT_ORDER_TIMEOUT", 10*time.Second),
			OrderTTL:     parseDuration("PAYMENT_ORDER_TTL", 24*time.Hour),
		},
	}

	if config.JWT.Secret == "" {
		return nil, errors.New("JWT_SECRET must be set")
	}
	if config.Payment.KeySecret == "" {
		return nil, errors.New("RAZORPAY_KEY_SECRET must be set")
	}

	return config, nil
}

func parseDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(viper.GetString(key))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
