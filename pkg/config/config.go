package config

import (
	"fmt"
	"net/url"
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
	Driver          string
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	SQLitePath      string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	LogLevel        logger.LogLevel
}

// GetDSN returns the connection string for the configured driver
func (c *DBConfig) GetDSN() string {
	if c.Driver == "sqlite" {
		return c.SQLitePath
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           string
	Env            string
	CORSOrigin     string
	RateLimit      float64
	BodyLimit      string
	UploadsDir     string
	RequestTimeout time.Duration
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Prefix string
}

// AccessControlConfig describes the daily maintenance window.
type AccessControlConfig struct {
	Enabled             bool
	BlockStartHour      int
	BlockEndHour        int
	BackupWindowMinutes int
	Timezone            string
}

// Location resolves the configured timezone, falling back to UTC+7.
func (c AccessControlConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.FixedZone(c.Timezone, 7*60*60)
	}
	return loc
}

// PricingConfig holds default utility prices in VND per unit
type PricingConfig struct {
	ElectricityPrice int64
	WaterPrice       int64
	RoomBasePrice    int64
}

// DiscordConfig holds webhook settings
type DiscordConfig struct {
	WebhookURL string
	Timeout    time.Duration
}

// QRConfig holds the receiving bank account used in VietQR links
type QRConfig struct {
	BankCode      string
	AccountNumber string
	AccountName   string
	BaseURL       string
}

// BackupConfig holds archive storage settings
type BackupConfig struct {
	Driver        string
	Directory     string
	RetentionDays int
	S3Bucket      string
	S3Region      string
	S3Endpoint    string
	S3PathStyle   bool
}

// Config holds all configuration
type Config struct {
	ServiceName   string
	DB            DBConfig
	Server        ServerConfig
	Log           LogConfig
	Metrics       MetricsConfig
	AccessControl AccessControlConfig
	Pricing       PricingConfig
	Discord       DiscordConfig
	QR            QRConfig
	Backup        BackupConfig
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	// .env is optional
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Warning: .env file not found, using environment variables\n")
	}

	timezone := getEnv("TZ", "Asia/Ho_Chi_Minh")

	config := &Config{
		ServiceName: serviceName,
		DB: DBConfig{
			Driver:          getEnv("DB_DRIVER", "postgres"),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "password"),
			DBName:          getEnv("DB_NAME", "quan_li_phong_tro"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			SQLitePath:      getEnv("DB_SQLITE_PATH", "rental.db"),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 1*time.Hour),
			LogLevel:        getEnvAsLogLevel("DB_LOG_LEVEL", logger.Warn),
		},
		Server: ServerConfig{
			Port:           getEnv("SERVER_PORT", "5000"),
			Env:            getEnv("APP_ENV", "development"),
			CORSOrigin:     getEnv("FRONTEND_URL", "http://localhost:3000"),
			RateLimit:      getEnvAsFloat("RATE_LIMIT_PER_SECOND", 10),
			BodyLimit:      getEnv("BODY_LIMIT", "10M"),
			UploadsDir:     getEnv("UPLOADS_DIR", "./uploads"),
			RequestTimeout: getEnvAsDuration("REQUEST_TIMEOUT", 30*time.Second),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Metrics: MetricsConfig{
			Prefix: getEnv("METRICS_PREFIX", strings.ReplaceAll(serviceName, "-", "_")),
		},
		AccessControl: AccessControlConfig{
			Enabled:             getEnvAsBool("ACCESS_CONTROL_ENABLED", true),
			BlockStartHour:      getEnvAsInt("ACCESS_BLOCK_START_HOUR", 2),
			BlockEndHour:        getEnvAsInt("ACCESS_BLOCK_END_HOUR", 5),
			BackupWindowMinutes: getEnvAsInt("BACKUP_WINDOW_MINUTES", 30),
			Timezone:            timezone,
		},
		Pricing: PricingConfig{
			ElectricityPrice: int64(getEnvAsInt("PRICE_ELECTRICITY", 3000)),
			WaterPrice:       int64(getEnvAsInt("PRICE_WATER", 5000)),
			RoomBasePrice:    int64(getEnvAsInt("PRICE_ROOM_BASE", 800000)),
		},
		Discord: DiscordConfig{
			WebhookURL: getEnv("DISCORD_WEBHOOK_URL", ""),
			Timeout:    getEnvAsDuration("DISCORD_TIMEOUT", 10*time.Second),
		},
		QR: QRConfig{
			BankCode:      getEnv("QR_BANK_CODE", "bidv"),
			AccountNumber: getEnv("QR_ACCOUNT_NUMBER", "3950630937"),
			AccountName:   unescape(getEnv("QR_ACCOUNT_NAME", "Pham Thi Luyen")),
			BaseURL:       getEnv("QR_BASE_URL", "https://img.vietqr.io/image"),
		},
		Backup: BackupConfig{
			Driver:        getEnv("BACKUP_DRIVER", "fs"),
			Directory:     getEnv("BACKUP_DIR", "./backups"),
			RetentionDays: getEnvAsInt("BACKUP_RETENTION_DAYS", 30),
			S3Bucket:      getEnv("BACKUP_S3_BUCKET", ""),
			S3Region:      getEnv("BACKUP_S3_REGION", "us-east-1"),
			S3Endpoint:    getEnv("BACKUP_S3_ENDPOINT", ""),
			S3PathStyle:   getEnvAsBool("BACKUP_S3_PATH_STYLE", false),
		},
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) validate() error {
	ac := c.AccessControl
	if ac.BlockStartHour < 0 || ac.BlockStartHour > 23 || ac.BlockEndHour < 0 || ac.BlockEndHour > 24 {
		return fmt.Errorf("access control hours out of range: %d-%d", ac.BlockStartHour, ac.BlockEndHour)
	}
	if ac.BlockStartHour > ac.BlockEndHour {
		return fmt.Errorf("access block start hour %d is after end hour %d", ac.BlockStartHour, ac.BlockEndHour)
	}
	switch c.DB.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DB.Driver)
	}
	switch c.Backup.Driver {
	case "fs":
	case "s3":
		if c.Backup.S3Bucket == "" {
			return fmt.Errorf("BACKUP_S3_BUCKET required for s3 backup driver")
		}
	default:
		return fmt.Errorf("unsupported BACKUP_DRIVER %q", c.Backup.Driver)
	}
	return nil
}

// LogConfig returns the configuration as a zap logger-friendly format
func (c *Config) LogConfig() []zap.Field {
	return []zap.Field{
		zap.String("service", c.ServiceName),
		zap.String("environment", c.Server.Env),
		zap.String("db_driver", c.DB.Driver),
		zap.String("db_host", c.DB.Host),
		zap.String("db_name", c.DB.DBName),
		zap.String("server_port", c.Server.Port),
		zap.String("timezone", c.AccessControl.Timezone),
		zap.Bool("discord_configured", c.Discord.WebhookURL != ""),
		zap.String("backup_driver", c.Backup.Driver),
	}
}

// IsDevelopment reports whether the service runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// Older deployments stored the account name URL-encoded.
func unescape(s string) string {
	if v, err := url.QueryUnescape(s); err == nil {
		return v
	}
	return s
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

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
