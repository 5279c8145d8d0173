package config

import (
	"fmt"
	"net"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/internal/envutil"
	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/internal/slogging"
	"gopkg.in/yaml.v3"
)

// Database backends accepted by database.type
const (
	DatabaseTypePostgres = "postgres"
	DatabaseTypeSQLite   = "sqlite"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	AI        AIConfig        `yaml:"ai"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            string        `yaml:"port" env:"SERVER_PORT"`
	Interface       string        `yaml:"interface" env:"SERVER_INTERFACE"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"SERVER_IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT"`
	// AllowedOrigins lists WebSocket origins; empty accepts any origin
	AllowedOrigins []string `yaml:"allowed_origins" env:"SERVER_ALLOWED_ORIGINS"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Type     string         `yaml:"type" env:"DATABASE_TYPE"`
	Postgres PostgresConfig `yaml:"postgres"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Redis    RedisConfig    `yaml:"redis"`
}

// PostgresConfig holds PostgreSQL configuration
type PostgresConfig struct {
	Host     string `yaml:"host" env:"POSTGRES_HOST"`
	Port     string `yaml:"port" env:"POSTGRES_PORT"`
	User     string `yaml:"user" env:"POSTGRES_USER"`
	Password string `yaml:"password" env:"POSTGRES_PASSWORD"`
	Database string `yaml:"database" env:"POSTGRES_DATABASE"`
	SSLMode  string `yaml:"sslmode" env:"POSTGRES_SSL_MODE"`
}

// DSN builds the libpq-style connection string used by the gorm postgres driver
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode)
}

// SQLiteConfig holds SQLite configuration
type SQLiteConfig struct {
	Path string `yaml:"path" env:"SQLITE_PATH"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST"`
	Port     string `yaml:"port" env:"REDIS_PORT"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return net.JoinHostPort(r.Host, r.Port)
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWT         JWTConfig     `yaml:"jwt"`
	Cookie      CookieConfig  `yaml:"cookie"`
	DevSeedUser DevSeedConfig `yaml:"dev_seed_user"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret          string        `yaml:"secret" env:"JWT_SECRET"`
	SigningMethod   string        `yaml:"signing_method" env:"JWT_SIGNING_METHOD"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl" env:"JWT_ACCESS_TOKEN_TTL"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl" env:"JWT_REFRESH_TOKEN_TTL"`
}

// CookieConfig controls the accessToken/refreshToken cookies
type CookieConfig struct {
	Domain string `yaml:"domain" env:"AUTH_COOKIE_DOMAIN"`
	Secure bool   `yaml:"secure" env:"AUTH_COOKIE_SECURE"`
}

// DevSeedConfig describes a user created at startup on SQLite deployments
type DevSeedConfig struct {
	Email    string `yaml:"email" env:"DEV_SEED_EMAIL"`
	Name     string `yaml:"name" env:"DEV_SEED_NAME"`
	Password string `yaml:"password" env:"DEV_SEED_PASSWORD"`
}

// Enabled reports whether a seed user is configured
func (d DevSeedConfig) Enabled() bool {
	return d.Email != "" && d.Password != ""
}

// WebSocketConfig holds WebSocket connection tuning
type WebSocketConfig struct {
	PingInterval    time.Duration `yaml:"ping_interval" env:"WEBSOCKET_PING_INTERVAL"`
	PongWait        time.Duration `yaml:"pong_wait" env:"WEBSOCKET_PONG_WAIT"`
	WriteWait       time.Duration `yaml:"write_wait" env:"WEBSOCKET_WRITE_WAIT"`
	MaxMessageSize  int64         `yaml:"max_message_size" env:"WEBSOCKET_MAX_MESSAGE_SIZE"`
	SendBuffer      int           `yaml:"send_buffer" env:"WEBSOCKET_SEND_BUFFER"`
	EventsPerSecond float64       `yaml:"events_per_second" env:"WEBSOCKET_EVENTS_PER_SECOND"`
	Burst           int           `yaml:"burst" env:"WEBSOCKET_BURST"`
}

// AIConfig holds the AI tool provider configuration
type AIConfig struct {
	Provider       string        `yaml:"provider" env:"AI_PROVIDER"`
	Model          string        `yaml:"model" env:"AI_MODEL"`
	APIKey         string        `yaml:"api_key" env:"AI_API_KEY"`
	BaseURL        string        `yaml:"base_url" env:"AI_BASE_URL"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"AI_REQUEST_TIMEOUT"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level            string `yaml:"level" env:"LOGGING_LEVEL"`
	IsDev            bool   `yaml:"is_dev" env:"LOGGING_IS_DEV"`
	LogDir           string `yaml:"log_dir" env:"LOGGING_LOG_DIR"`
	MaxAgeDays       int    `yaml:"max_age_days" env:"LOGGING_MAX_AGE_DAYS"`
	MaxSizeMB        int    `yaml:"max_size_mb" env:"LOGGING_MAX_SIZE_MB"`
	MaxBackups       int    `yaml:"max_backups" env:"LOGGING_MAX_BACKUPS"`
	AlsoLogToConsole bool   `yaml:"also_log_to_console" env:"LOGGING_ALSO_LOG_TO_CONSOLE"`
}

// Load loads configuration from YAML file with environment variable overrides
func Load(configFile string) (*Config, error) {
	config := getDefaultConfig()

	if configFile != "" {
		if err := loadFromYAML(config, configFile); err != nil {
			return nil, fmt.Errorf("failed to load config from YAML: %w", err)
		}
	}

	if err := overrideWithEnv(config); err != nil {
		return nil, fmt.Errorf("failed to override with environment variables: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// getDefaultConfig returns a configuration with default values
func getDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			Interface:       "0.0.0.0",
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Type: DatabaseTypePostgres,
			Postgres: PostgresConfig{
				Host:     "localhost",
				Port:     "5432",
				User:     "postgres",
				Database: "collab",
				SSLMode:  "disable",
			},
			SQLite: SQLiteConfig{
				Path: "collab.db",
			},
			Redis: RedisConfig{
				Host: "localhost",
				Port: "6379",
			},
		},
		Auth: AuthConfig{
			JWT: JWTConfig{
				SigningMethod:   "HS256",
				AccessTokenTTL:  15 * time.Minute,
				RefreshTokenTTL: 30 * 24 * time.Hour,
			},
		},
		WebSocket: WebSocketConfig{
			PingInterval:    30 * time.Second,
			PongWait:        60 * time.Second,
			WriteWait:       10 * time.Second,
			MaxMessageSize:  1 << 20,
			SendBuffer:      256,
			EventsPerSecond: 20,
			Burst:           40,
		},
		AI: AIConfig{
			Provider:       "openai",
			Model:          "gpt-4o-mini",
			RequestTimeout: 60 * time.Second,
		},
		Logging: LoggingConfig{
			Level:            "info",
			IsDev:            true,
			LogDir:           "logs",
			MaxAgeDays:       7,
			MaxSizeMB:        100,
			MaxBackups:       10,
			AlsoLogToConsole: true,
		},
	}
}

// loadFromYAML loads configuration from a YAML file
func loadFromYAML(config *Config, filename string) error {
	data, err := os.ReadFile(filename) // #nosec G304
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}

	return nil
}

// overrideWithEnv overrides configuration values with environment variables
func overrideWithEnv(config *Config) error {
	return overrideStructWithEnv(reflect.ValueOf(config).Elem())
}

// overrideStructWithEnv recursively overrides struct fields with environment variables
func overrideStructWithEnv(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if !field.CanSet() {
			continue
		}

		if field.Kind() == reflect.Struct {
			if err := overrideStructWithEnv(field); err != nil {
				return err
			}
			continue
		}

		envTag := fieldType.Tag.Get("env")
		if envTag == "" {
			continue
		}

		// Accepts both SERVER_PORT and COLLAB_SERVER_PORT
		envValue := envutil.Get(envTag, "")
		if envValue == "" {
			continue
		}

		if err := setFieldFromString(field, envValue); err != nil {
			return fmt.Errorf("failed to set field %s from env %s: %w", fieldType.Name, envTag, err)
		}
	}

	return nil
}

// setFieldFromString sets a struct field value from a string based on the field type
func setFieldFromString(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		boolVal, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid bool value: %s", value)
		}
		field.SetBool(boolVal)
	case reflect.Int:
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid int value: %s", value)
		}
		field.SetInt(int64(intVal))
	case reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			duration, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration value: %s", value)
			}
			field.SetInt(int64(duration))
		} else {
			intVal, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid int64 value: %s", value)
			}
			field.SetInt(intVal)
		}
	case reflect.Float64:
		floatVal, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid float value: %s", value)
		}
		field.SetFloat(floatVal)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type: %s", field.Type().Elem().Kind())
		}
		parts := strings.Split(value, ",")
		slice := make([]string, 0, len(parts))
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				slice = append(slice, trimmed)
			}
		}
		field.Set(reflect.ValueOf(slice))
	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateDatabase,
		c.validateAuth,
		c.validateWebSocket,
	}
	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	return nil
}

func (c *Config) validateDatabase() error {
	switch c.Database.Type {
	case DatabaseTypePostgres:
		if c.Database.Postgres.Host == "" {
			return fmt.Errorf("postgres host is required")
		}
		if c.Database.Postgres.Port == "" {
			return fmt.Errorf("postgres port is required")
		}
		if c.Database.Postgres.User == "" {
			return fmt.Errorf("postgres user is required")
		}
		if c.Database.Postgres.Database == "" {
			return fmt.Errorf("postgres database is required")
		}
	case DatabaseTypeSQLite:
		if c.Database.SQLite.Path == "" {
			return fmt.Errorf("sqlite path is required")
		}
	default:
		return fmt.Errorf("unsupported database type: %q", c.Database.Type)
	}

	if c.Database.Redis.Host == "" {
		return fmt.Errorf("redis host is required")
	}
	if c.Database.Redis.Port == "" {
		return fmt.Errorf("redis port is required")
	}
	return nil
}

func (c *Config) validateAuth() error {
	if c.Auth.JWT.Secret == "" {
		return fmt.Errorf("jwt secret is required")
	}
	switch c.Auth.JWT.SigningMethod {
	case "HS256", "HS384", "HS512":
	default:
		return fmt.Errorf("unsupported jwt signing method: %s", c.Auth.JWT.SigningMethod)
	}
	if c.Auth.JWT.AccessTokenTTL <= 0 {
		return fmt.Errorf("jwt access token ttl must be greater than 0")
	}
	if c.Auth.JWT.RefreshTokenTTL <= c.Auth.JWT.AccessTokenTTL {
		return fmt.Errorf("jwt refresh token ttl must exceed the access token ttl")
	}
	return nil
}

func (c *Config) validateWebSocket() error {
	ws := c.WebSocket
	if ws.PingInterval <= 0 || ws.PongWait <= ws.PingInterval {
		return fmt.Errorf("websocket pong wait must exceed a positive ping interval")
	}
	if ws.WriteWait <= 0 {
		return fmt.Errorf("websocket write wait must be greater than 0")
	}
	if ws.SendBuffer <= 0 {
		return fmt.Errorf("websocket send buffer must be greater than 0")
	}
	if ws.EventsPerSecond <= 0 || ws.Burst <= 0 {
		return fmt.Errorf("websocket rate limit must be positive")
	}
	return nil
}

// ListenAddr returns interface:port for the HTTP server
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.Server.Interface, c.Server.Port)
}

// GetLogLevel returns the parsed log level
func (c *Config) GetLogLevel() slogging.LogLevel {
	return slogging.ParseLogLevel(c.Logging.Level)
}

// LoggerConfig maps the logging section onto the slogging configuration
func (c *Config) LoggerConfig() slogging.Config {
	return slogging.Config{
		Level:            c.GetLogLevel(),
		IsDev:            c.Logging.IsDev,
		LogDir:           c.Logging.LogDir,
		MaxAgeDays:       c.Logging.MaxAgeDays,
		MaxSizeMB:        c.Logging.MaxSizeMB,
		MaxBackups:       c.Logging.MaxBackups,
		AlsoLogToConsole: c.Logging.AlsoLogToConsole,
	}
}
