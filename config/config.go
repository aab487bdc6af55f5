package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	Name        string
	Version     string
	Timezone    string
	HTTP        HTTPConfig
	Postgres    PostgresConfig
	JWT         JWTConfig
	S3          S3Config
	AMQP        AMQPConfig
	RateLimit   RateLimitConfig
}

type HTTPConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxHeaderMB  int
}

type PostgresConfig struct {
	Host               string
	Port               string
	Username           string
	Password           string
	DBName             string
	SSLMode            string
	MaxConnections     int
	MaxIdleConnections int
	MaxLifetime        time.Duration
}

type JWTConfig struct {
	SigningKey      string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

type S3Config struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
	PublicURL       string
}

type AMQPConfig struct {
	URL      string
	Exchange string
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// ClientConfig drives the medbook command-line client.
type ClientConfig struct {
	APIURL     string
	SessionDir string
	Timeout    time.Duration
}

func NewConfig() (*Config, error) {
	loadDotEnv()

	var d durations
	httpReadTimeout := d.get("HTTP_READ_TIMEOUT", "10s")
	httpWriteTimeout := d.get("HTTP_WRITE_TIMEOUT", "10s")
	postgresMaxLifetime := d.get("POSTGRES_MAX_LIFETIME", "5m")
	jwtAccessTokenTTL := d.get("JWT_ACCESS_TOKEN_TTL", "15m")
	jwtRefreshTokenTTL := d.get("JWT_REFRESH_TOKEN_TTL", "720h")
	if d.err != nil {
		return nil, d.err
	}

	return &Config{
		Environment: getEnv("APP_ENV", "development"),
		Name:        getEnv("APP_NAME", "medbook"),
		Version:     getEnv("APP_VERSION", "1.0.0"),
		Timezone:    getEnv("APP_TIMEZONE", "Local"),
		HTTP: HTTPConfig{
			Port:         getEnv("HTTP_PORT", "8080"),
			ReadTimeout:  httpReadTimeout,
			WriteTimeout: httpWriteTimeout,
			MaxHeaderMB:  getEnvAsInt("HTTP_MAX_HEADER_MB", 1),
		},
		Postgres: PostgresConfig{
			Host:               getEnv("POSTGRES_HOST", "localhost"),
			Port:               getEnv("POSTGRES_PORT", "5432"),
			Username:           getEnv("POSTGRES_USER", "postgres"),
			Password:           getEnv("POSTGRES_PASSWORD", "postgres"),
			DBName:             getEnv("POSTGRES_DB", "medbook"),
			SSLMode:            getEnv("POSTGRES_SSL_MODE", "disable"),
			MaxConnections:     getEnvAsInt("POSTGRES_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("POSTGRES_MAX_IDLE_CONNECTIONS", 5),
			MaxLifetime:        postgresMaxLifetime,
		},
		JWT: JWTConfig{
			SigningKey:      getEnv("JWT_SIGNING_KEY", "your_secret_key"),
			AccessTokenTTL:  jwtAccessTokenTTL,
			RefreshTokenTTL: jwtRefreshTokenTTL,
		},
		S3: S3Config{
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			Region:          getEnv("S3_REGION", "us-east-1"),
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
			Bucket:          getEnv("S3_BUCKET", "medbook"),
			UseSSL:          getEnv("S3_USE_SSL", "true") == "true",
			PublicURL:       getEnv("S3_PUBLIC_URL", ""),
		},
		AMQP: AMQPConfig{
			URL:      getEnv("AMQP_URL", ""),
			Exchange: getEnv("AMQP_EXCHANGE", "appointment-events"),
		},
		RateLimit: RateLimitConfig{
			RPS:   getEnvAsFloat("RATE_LIMIT_RPS", 5),
			Burst: getEnvAsInt("RATE_LIMIT_BURST", 10),
		},
	}, nil
}

func NewClientConfig() (*ClientConfig, error) {
	loadDotEnv()

	var d durations
	timeout := d.get("MEDBOOK_TIMEOUT", "15s")
	if d.err != nil {
		return nil, d.err
	}

	sessionDir := getEnv("MEDBOOK_SESSION_DIR", "")
	if sessionDir == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("не удалось определить каталог конфигурации: %w", err)
		}
		sessionDir = filepath.Join(dir, "medbook")
	}

	return &ClientConfig{
		APIURL:     getEnv("MEDBOOK_API_URL", "http://localhost:8080/api/v1"),
		SessionDir: sessionDir,
		Timeout:    timeout,
	}, nil
}

// durations parses several duration variables and keeps the first error.
type durations struct {
	err error
}

func (d *durations) get(key, defaultValue string) time.Duration {
	if d.err != nil {
		return 0
	}
	value, err := time.ParseDuration(getEnv(key, defaultValue))
	if err != nil {
		d.err = fmt.Errorf("%s: %w", key, err)
		return 0
	}
	return value
}

func loadDotEnv() {
	_ = godotenv.Load()
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value := 0
	_, err := fmt.Sscanf(valueStr, "%d", &value)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var value float64
	_, err := fmt.Sscanf(valueStr, "%g", &value)
	if err != nil {
		return defaultValue
	}

	return value
}
