package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv   string
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	MinIO    MinIOConfig
	JWT      JWTConfig
	AI       AIConfig
	Log      LogConfig
	Monitor  MonitorConfig
}

type ServerConfig struct {
	Host            string
	Port            string
	AllowOrigins    string
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Driver   string // postgres | sqlite
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	// Path is the SQLite database file, used when Driver is sqlite.
	Path string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
	CacheTTL time.Duration
}

type MinIOConfig struct {
	Enabled         bool
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	UseSSL          bool
}

type JWTConfig struct {
	// Secret enables HS256 verification of bearer tokens. Empty means the
	// presence check is used instead.
	Secret         string
	ExpireHour     int
	MinTokenLength int
}

type AIConfig struct {
	Enabled  bool
	APIKey   string
	Project  string
	Location string
	Model    string
	Timeout  time.Duration
}

// UseVertex reports whether the model should be reached through Vertex AI
// rather than the Gemini API.
func (c AIConfig) UseVertex() bool {
	return c.APIKey == "" && c.Project != ""
}

type LogConfig struct {
	Level string
}

type MonitorConfig struct {
	Interval        time.Duration
	EscalationAfter time.Duration
}

// Load reads an optional .env file and then the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: failed to load .env file: %v", err)
	}

	return &Config{
		AppEnv: getEnv("APP_ENV", "production"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnv("PORT", "8080"),
			AllowOrigins:    getEnv("CORS_ALLOW_ORIGINS", "*"),
			ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Driver:   strings.ToLower(getEnv("DB_DRIVER", "postgres")),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "grievances"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			Path:     getEnv("DB_PATH", "grievances.db"),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			CacheTTL: getEnvDuration("CACHE_TTL", 30*time.Second),
		},
		MinIO: MinIOConfig{
			Enabled:         getEnvBool("MINIO_ENABLED", false),
			Endpoint:        getEnv("MINIO_ENDPOINT", "localhost:9000"),
			AccessKeyID:     getEnv("MINIO_ACCESS_KEY", "minioadmin"),
			SecretAccessKey: getEnv("MINIO_SECRET_KEY", "minioadmin"),
			BucketName:      getEnv("MINIO_BUCKET", "grievance-attachments"),
			UseSSL:          getEnvBool("MINIO_USE_SSL", false),
		},
		JWT: JWTConfig{
			Secret:         getEnv("JWT_SECRET", ""),
			ExpireHour:     getEnvInt("JWT_EXPIRE_HOUR", 24),
			MinTokenLength: getEnvInt("AUTH_MIN_TOKEN_LENGTH", 50),
		},
		AI: AIConfig{
			Enabled:  getEnvBool("AI_ENABLED", true),
			APIKey:   getEnv("GEMINI_API_KEY", ""),
			Project:  getEnv("GOOGLE_CLOUD_PROJECT", ""),
			Location: getEnv("GOOGLE_CLOUD_LOCATION", "us-central1"),
			Model:    getEnv("AI_MODEL", "gemini-2.0-flash"),
			Timeout:  getEnvDuration("AI_TIMEOUT", 15*time.Second),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Monitor: MonitorConfig{
			Interval:        getEnvDuration("ESCALATION_CHECK_INTERVAL", 10*time.Minute),
			EscalationAfter: getEnvDuration("ESCALATION_AFTER", 24*time.Hour),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Warning: invalid integer for %s=%q, using %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("Warning: invalid boolean for %s=%q, using %t", key, value, defaultValue)
		return defaultValue
	}
	return b
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		log.Printf("Warning: invalid duration for %s=%q, using %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}
