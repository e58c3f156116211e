package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"
)

// DBConfig holds database configuration
type DBConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	LogLevel        logger.LogLevel
}

// GetDSN returns the PostgreSQL connection string
func (c *DBConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port         string
	Env          string
	AllowOrigins []string
}

// IsProduction reports whether the service runs with production settings
func (s ServerConfig) IsProduction() bool {
	return s.Env == "production"
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	SigningKey      string
	ExpirationHours int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Prefix string
}

// StorageConfig holds the S3-compatible object storage settings
type StorageConfig struct {
	Endpoint   string
	Region     string
	AccessKey  string
	SecretKey  string
	Bucket     string
	PresignTTL time.Duration
	TempDir    string
	PathStyle  bool
}

// Enabled reports whether enough settings are present to talk to object storage
func (s StorageConfig) Enabled() bool {
	return s.AccessKey != "" && s.SecretKey != ""
}

// SessionConfig holds the anonymous session cookie settings
type SessionConfig struct {
	Secret     string
	CookieName string
	MaxAge     time.Duration
}

// FirebaseConfig points at the fallback service account file.
// The individual credential fields are read by the notify package.
type FirebaseConfig struct {
	CredentialsFile string
}

// CheckoutConfig holds invoice settings
type CheckoutConfig struct {
	TaxRate string
}

// Config holds all configuration
type Config struct {
	ServiceName string
	DB          DBConfig
	Server      ServerConfig
	JWT         JWTConfig
	Log         LogConfig
	Metrics     MetricsConfig
	Storage     StorageConfig
	Session     SessionConfig
	Firebase    FirebaseConfig
	Checkout    CheckoutConfig
}

// Fallback secrets for local development only
const (
	defaultJWTSigningKey = "defaultsecretkey"
	defaultSessionSecret = "defaultsessionsecret"
)

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Warning: .env file not found, using environment variables\n")
	}

	config := &Config{
		ServiceName: serviceName,
		DB: DBConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "password"),
			DBName:          getEnv("DB_NAME", "backoffice"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 1*time.Hour),
			LogLevel:        getEnvAsLogLevel("DB_LOG_LEVEL", logger.Warn),
		},
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Env:          getEnv("APP_ENV", "development"),
			AllowOrigins: getEnvAsList("CORS_ALLOW_ORIGINS", []string{"*"}),
		},
		JWT: JWTConfig{
			SigningKey:      getEnv("JWT_SIGNING_KEY", defaultJWTSigningKey),
			ExpirationHours: getEnvAsInt("JWT_EXPIRATION_HOURS", 24),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Metrics: MetricsConfig{
			Prefix: getEnv("METRICS_PREFIX", serviceName),
		},
		Storage: StorageConfig{
			Endpoint:   getEnv("AWS_ENDPOINT_URL_S3", ""),
			Region:     getEnv("AWS_REGION", "auto"),
			AccessKey:  getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
			Bucket:     getEnv("STORAGE_BUCKET", "inventary-user-2025"),
			PresignTTL: getEnvAsDuration("STORAGE_PRESIGN_TTL", 7*24*time.Hour),
			TempDir:    getEnv("UPLOAD_TEMP_DIR", "upload"),
			PathStyle:  getEnvAsBool("STORAGE_PATH_STYLE", false),
		},
		Session: SessionConfig{
			Secret:     getEnv("SESSION_SECRET", defaultSessionSecret),
			CookieName: getEnv("ANONYMOUS_COOKIE_NAME", "anonymousToken"),
			MaxAge:     getEnvAsDuration("ANONYMOUS_COOKIE_MAX_AGE", 30*24*time.Hour),
		},
		Firebase: FirebaseConfig{
			CredentialsFile: getEnv("FIREBASE_CREDENTIALS_FILE", "config/serviceAccountKey.json"),
		},
		Checkout: CheckoutConfig{
			TaxRate: getEnv("CHECKOUT_TAX_RATE", "0"),
		},
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// validate refuses production settings that still carry the development secrets
func (c *Config) validate() error {
	if !c.Server.IsProduction() {
		return nil
	}
	if c.JWT.SigningKey == "" || c.JWT.SigningKey == defaultJWTSigningKey {
		return fmt.Errorf("config: JWT_SIGNING_KEY must be set in production")
	}
	if c.Session.Secret == "" || c.Session.Secret == defaultSessionSecret {
		return fmt.Errorf("config: SESSION_SECRET must be set in production")
	}
	return nil
}

// LogConfig returns the configuration as a zap logger-friendly format
func (c *Config) LogConfig() []zap.Field {
	return []zap.Field{
		zap.String("service", c.ServiceName),
		zap.String("environment", c.Server.Env),
		zap.String("db_host", c.DB.Host),
		zap.String("db_port", c.DB.Port),
		zap.String("db_user", c.DB.User),
		zap.String("db_name", c.DB.DBName),
		zap.String("server_port", c.Server.Port),
		zap.String("storage_bucket", c.Storage.Bucket),
		zap.Bool("storage_enabled", c.Storage.Enabled()),
	}
}

// Helper function to get environment variables with defaults
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// Helper function to get environment variables as integers
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// Helper function to get environment variables as booleans
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// Helper function to get environment variables as durations
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// Helper function to get comma separated environment variables
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Helper function to get environment variables as log levels
func getEnvAsLogLevel(key string, defaultValue logger.LogLevel) logger.LogLevel {
	valueStr := getEnv(key, "")
	switch valueStr {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "warn":
		return logger.Warn
	case "info":
		return logger.Info
	default:
		return defaultValue
	}
}
