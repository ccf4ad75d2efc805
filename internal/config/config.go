package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Data        DataConfig        `yaml:"data"`
	S3          S3Config          `yaml:"s3"`
	Database    DatabaseConfig    `yaml:"database"`
	Search      SearchConfig      `yaml:"search"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
	Consistency ConsistencyConfig `yaml:"consistency"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`

	// TrustedProxies may set X-Forwarded-For; empty means the socket peer is the client
	TrustedProxies []string `yaml:"trusted_proxies"`
}

// DataConfig describes where the three datasets come from
type DataConfig struct {
	// Source is one of files, s3, postgres, sqlite, mysql
	Source        string        `yaml:"source"`
	Dir           string        `yaml:"dir"`
	MissingPolicy string        `yaml:"missing_policy"`
	RankMode      string        `yaml:"rank_mode"`
	Resources     ResourceNames `yaml:"resources"`
	LoadTimeout   int           `yaml:"load_timeout_seconds"`
}

// ResourceNames maps each dataset to its file, object or table name
type ResourceNames struct {
	Geometries  string `yaml:"geometries"`
	Simulations string `yaml:"simulations"`
	Rankings    string `yaml:"rankings"`
}

// S3Config contains bucket settings for the s3 source
type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	MySQL    MySQLConfig    `yaml:"mysql"`
	Postgres PostgresConfig `yaml:"postgres"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
}

// MySQLConfig contains MySQL connection settings
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// PostgresConfig contains PostgreSQL connection settings
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

// SQLiteConfig contains the sqlite database path
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// SearchConfig contains search engine settings
type SearchConfig struct {
	Enabled     bool              `yaml:"enabled"`
	Meilisearch MeilisearchConfig `yaml:"meilisearch"`
}

// MeilisearchConfig contains Meilisearch connection settings
type MeilisearchConfig struct {
	Host   string `yaml:"host"`
	APIKey string `yaml:"api_key"`
	Index  string `yaml:"index"`
}

// RateLimitConfig contains rate limiting settings
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
	RequestsPerHour   int  `yaml:"requests_per_hour"`
	RequestsPerDay    int  `yaml:"requests_per_day"`
}

// ConsistencyConfig controls the consistency report and its periodic audit
type ConsistencyConfig struct {
	ExampleLimit  int    `yaml:"example_limit"`
	AuditEnabled  bool   `yaml:"audit_enabled"`
	AuditSchedule string `yaml:"audit_schedule"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	LogRequests bool   `yaml:"log_requests"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        3000,
			CORSOrigins: []string{"http://localhost:4200"},
		},
		Data: DataConfig{
			Source:        "files",
			Dir:           "data",
			MissingPolicy: "degrade",
			RankMode:      "precomputed",
			Resources: ResourceNames{
				Geometries:  "geometries",
				Simulations: "simulations",
				Rankings:    "apartment_rankings",
			},
			LoadTimeout: 120,
		},
		S3: S3Config{
			Region: "us-east-1",
		},
		Database: DatabaseConfig{
			Postgres: PostgresConfig{SSLMode: "disable"},
			SQLite:   SQLiteConfig{Path: "apartments.db"},
		},
		Search: SearchConfig{
			Meilisearch: MeilisearchConfig{Index: "apartments"},
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 600,
			RequestsPerHour:   20000,
		},
		Consistency: ConsistencyConfig{
			ExampleLimit:  5,
			AuditEnabled:  false,
			AuditSchedule: "03:00",
		},
		Logging: LoggingConfig{
			Level:       "info",
			Format:      "json",
			LogRequests: true,
		},
	}
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(filepath string) (*Config, error) {
	config := DefaultConfig()

	// If file doesn't exist, return default config
	if _, err := os.Stat(filepath); os.IsNotExist(err) {
		config.applyEnv()
		return config, nil
	}

	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, eris.Wrap(err, "config: read file")
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, eris.Wrap(err, "config: parse file")
	}

	config.applyEnv()
	return config, nil
}

// applyEnv lets a handful of deployment-specific values come from the environment
func (c *Config) applyEnv() {
	if port, err := strconv.Atoi(os.Getenv("PORT")); err == nil && port > 0 {
		c.Server.Port = port
	}
	if source := os.Getenv("DATA_SOURCE"); source != "" {
		c.Data.Source = source
	}
	if dir := os.Getenv("DATA_DIR"); dir != "" {
		c.Data.Dir = dir
	}
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		c.Server.CORSOrigins = strings.Split(origins, ",")
	}
	if proxies := os.Getenv("TRUSTED_PROXIES"); proxies != "" {
		c.Server.TrustedProxies = strings.Split(proxies, ",")
	}
	c.S3.Bucket = GetEnvOrConfig(c.S3.Bucket, "S3_BUCKET", "")
	c.Search.Meilisearch.Host = GetEnvOrConfig(c.Search.Meilisearch.Host, "MEILISEARCH_HOST", "")
	c.Search.Meilisearch.APIKey = GetEnvOrConfig(c.Search.Meilisearch.APIKey, "MEILISEARCH_KEY", "")
	c.Database.MySQL.Password = GetEnvOrConfig(c.Database.MySQL.Password, "DB_PASSWORD", "")
	c.Database.Postgres.Password = GetEnvOrConfig(c.Database.Postgres.Password, "DB_PASSWORD", "")
}

// GetLoadTimeout returns the dataset load timeout as a duration
func (c *DataConfig) GetLoadTimeout() time.Duration {
	if c.LoadTimeout <= 0 {
		return 2 * time.Minute
	}
	return time.Duration(c.LoadTimeout) * time.Second
}

// GetEnv returns the environment value or a default
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvOrConfig returns config value if set, otherwise falls back to environment variable, then default
func GetEnvOrConfig(configValue, envKey, defaultValue string) string {
	if configValue != "" {
		return configValue
	}
	return GetEnv(envKey, defaultValue)
}

// InitLogger initializes the global zap logger
func InitLogger(cfg LoggingConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
