package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/blubywaff/ftag/internal/constants"
	"github.com/blubywaff/ftag/internal/models"
)

// AppConfig represents the entire application configuration
type AppConfig struct {
	App         AppSettings         `yaml:"app"`
	Database    DatabaseSettings    `yaml:"database"`
	Server      ServerSettings      `yaml:"server"`
	Logging     LoggingSettings     `yaml:"logging"`
	CORS        CORSSettings        `yaml:"cors"`
	Storage     StorageSettings     `yaml:"storage"`
	Files       FilesSettings       `yaml:"files"`
	ClientToken ClientTokenSettings `yaml:"client_token"`
	RateLimit   RateLimitSettings   `yaml:"rate_limit"`
	Settings    SettingsDefaults    `yaml:"settings"`
}

// AppSettings contains general application settings
type AppSettings struct {
	Environment string `yaml:"environment" env:"APP_ENV"`
	Name        string `yaml:"name" env:"APP_NAME"`
	Version     string `yaml:"version" env:"APP_VERSION"`
}

// DatabaseSettings contains database connection settings
type DatabaseSettings struct {
	Driver   string `yaml:"driver" env:"DB_DRIVER"`
	Host     string `yaml:"host" env:"DB_HOST"`
	Port     int    `yaml:"port" env:"DB_PORT"`
	Name     string `yaml:"name" env:"DB_NAME"`
	User     string `yaml:"user" env:"DB_USER"`
	Password string `yaml:"password" env:"DB_PASSWORD"`
	MaxConns int    `yaml:"max_conns" env:"DB_MAX_CONNS"`
	MinConns int    `yaml:"min_conns" env:"DB_MIN_CONNS"`
}

// ServerSettings contains HTTP server settings
type ServerSettings struct {
	Host            string        `yaml:"host" env:"SERVER_HOST"`
	Port            int           `yaml:"port" env:"SERVER_PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT"`
}

// LoggingSettings contains logging configuration
type LoggingSettings struct {
	Level      string `yaml:"level" env:"LOG_LEVEL"`
	Format     string `yaml:"format" env:"LOG_FORMAT"`
	RequestLog bool   `yaml:"request_log" env:"LOG_REQUESTS"`
}

// CORSSettings contains CORS configuration
type CORSSettings struct {
	AllowedOrigins   []string `yaml:"allowed_origins" env:"ALLOWED_ORIGINS"`
	AllowCredentials bool     `yaml:"allow_credentials" env:"CORS_ALLOW_CREDENTIALS"`
}

// StorageSettings selects the backend holding client local storage
type StorageSettings struct {
	Backend  string `yaml:"backend" env:"STORAGE_BACKEND"`
	BoltPath string `yaml:"bolt_path" env:"STORAGE_BOLT_PATH"`
}

// FilesSettings contains uploaded file storage settings
type FilesSettings struct {
	Dir           string `yaml:"dir" env:"FILES_DIR"`
	MaxUploadSize int64  `yaml:"max_upload_size" env:"FILES_MAX_UPLOAD_SIZE"`
}

// ClientTokenSettings contains client identity token settings
type ClientTokenSettings struct {
	Secret string        `yaml:"secret" env:"CLIENT_TOKEN_SECRET"`
	Expiry time.Duration `yaml:"expiry" env:"CLIENT_TOKEN_EXPIRY"`
	Issuer string        `yaml:"issuer" env:"CLIENT_TOKEN_ISSUER"`
	Cookie string        `yaml:"cookie" env:"CLIENT_TOKEN_COOKIE"`
}

// RateLimitSettings contains the per-client write limits
type RateLimitSettings struct {
	WritesPerSecond float64 `yaml:"writes_per_second" env:"RATE_LIMIT_WRITES_PER_SECOND"`
	Burst           int     `yaml:"burst" env:"RATE_LIMIT_BURST"`
}

// SettingsDefaults holds the display settings a client starts with and
// returns to on reset. Server contexts always see them.
type SettingsDefaults struct {
	DefaultExcludes string `yaml:"default_excludes" env:"SETTINGS_DEFAULT_EXCLUDES"`
	DefaultTagView  string `yaml:"default_tag_view" env:"SETTINGS_DEFAULT_TAG_VIEW"`
}

// Defaults returns the configured defaults as settings
func (sd *SettingsDefaults) Defaults() models.Settings {
	return models.Settings{
		DefaultExcludes: sd.DefaultExcludes,
		DefaultTagView:  models.TagView(sd.DefaultTagView),
	}
}

// ConnectionString returns the database connection string for the configured driver
func (dbs *DatabaseSettings) ConnectionString() string {
	if dbs.Driver == constants.DriverPostgres {
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s %s",
			dbs.Host, dbs.Port, dbs.User, dbs.Password, dbs.Name, constants.PostgresSSLDisable,
		)
	}

	// MariaDB/MySQL connection string format: username:password@tcp(host:port)/dbname
	password := dbs.Password
	if password != "" {
		password = ":" + password
	}

	return fmt.Sprintf(
		"%s%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&collation=utf8mb4_unicode_ci",
		dbs.User, password, dbs.Host, dbs.Port, dbs.Name,
	)
}

// ServerAddress returns the complete server address
func (ss *ServerSettings) ServerAddress() string {
	return fmt.Sprintf("%s:%d", ss.Host, ss.Port)
}

// IsDevelopment checks if the application is running in development mode
func (as *AppSettings) IsDevelopment() bool {
	return strings.ToLower(as.Environment) == constants.EnvDevelopment
}

// IsProduction checks if the application is running in production mode
func (as *AppSettings) IsProduction() bool {
	return strings.ToLower(as.Environment) == constants.EnvProduction
}

// IsTesting checks if the application is running in testing mode
func (as *AppSettings) IsTesting() bool {
	return strings.ToLower(as.Environment) == constants.EnvTesting
}

var (
	// cfg holds the current application configuration
	cfg *AppConfig
)

// Load loads the configuration from a config file and environment variables
func Load(configPath string) (*AppConfig, error) {
	config := &AppConfig{}

	// Load configuration from file if it exists
	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}

		err = yaml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}

	// Override with environment variables
	if err := LoadEnv(config); err != nil {
		return nil, fmt.Errorf("error loading environment variables: %w", err)
	}

	// Set defaults for missing values
	setDefaults(config)

	// Validate the configuration
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Save the configuration globally
	cfg = config

	// Log the configuration (but hide sensitive values)
	logConfig(config)

	return config, nil
}

// Get returns the current application configuration
func Get() *AppConfig {
	if cfg == nil {
		log.Fatal().Msg("configuration not loaded")
	}
	return cfg
}

// setDefaults sets default values for any missing configuration
func setDefaults(config *AppConfig) {
	// App defaults
	if config.App.Environment == "" {
		config.App.Environment = constants.EnvDevelopment
	}
	if config.App.Name == "" {
		config.App.Name = "ftag"
	}
	if config.App.Version == "" {
		config.App.Version = "1.0.0"
	}

	if config.Server.Port == 0 {
		config.Server.Port = constants.DefaultServerPort
	}
	if config.Server.ReadTimeout == 0 {
		config.Server.ReadTimeout = constants.DefaultReadTimeout
	}
	if config.Server.WriteTimeout == 0 {
		config.Server.WriteTimeout = constants.DefaultWriteTimeout
	}
	if config.Server.ShutdownTimeout == 0 {
		config.Server.ShutdownTimeout = constants.DefaultShutdownTimeout
	}

	if config.Database.Driver == "" {
		config.Database.Driver = constants.DefaultDBDriver
	}
	if config.Database.MaxConns == 0 {
		config.Database.MaxConns = constants.DefaultDBMaxConnections
	}
	if config.Database.MinConns == 0 {
		config.Database.MinConns = constants.DefaultDBMinConnections
	}

	// Logging defaults
	if config.Logging.Level == "" {
		config.Logging.Level = constants.DefaultLogLevel
	}
	if config.Logging.Format == "" {
		config.Logging.Format = constants.DefaultLogFormat
	}

	// CORS defaults
	if len(config.CORS.AllowedOrigins) == 0 {
		config.CORS.AllowedOrigins = []string{"*"}
	}

	// Storage defaults
	if config.Storage.Backend == "" {
		config.Storage.Backend = constants.DefaultStorageBackend
	}
	if config.Storage.BoltPath == "" {
		config.Storage.BoltPath = constants.DefaultBoltPath
	}

	// File defaults
	if config.Files.Dir == "" {
		config.Files.Dir = constants.DefaultFilesDir
	}
	if config.Files.MaxUploadSize == 0 {
		config.Files.MaxUploadSize = constants.DefaultMaxUploadSize
	}

	// Client token defaults
	if config.ClientToken.Expiry == 0 {
		config.ClientToken.Expiry = constants.DefaultClientTokenExpiry
	}
	if config.ClientToken.Issuer == "" {
		config.ClientToken.Issuer = constants.DefaultClientTokenIssuer
	}
	if config.ClientToken.Cookie == "" {
		config.ClientToken.Cookie = constants.DefaultClientTokenCookie
	}

	// Rate limit defaults
	if config.RateLimit.WritesPerSecond == 0 {
		config.RateLimit.WritesPerSecond = constants.DefaultWriteRatePerSecond
	}
	if config.RateLimit.Burst == 0 {
		config.RateLimit.Burst = constants.DefaultWriteBurst
	}

	// Display settings defaults
	if config.Settings.DefaultTagView == "" {
		config.Settings.DefaultTagView = string(models.DefaultSettings().DefaultTagView)
	}
}

// validateConfig validates that the configuration has all required values
func validateConfig(config *AppConfig) error {
	// Validate environment
	env := strings.ToLower(config.App.Environment)
	if env != constants.EnvDevelopment && env != constants.EnvTesting && env != constants.EnvProduction {
		// Instead of failing, use a default and warn
		log.Warn().
			Str("environment", config.App.Environment).
			Msg("Invalid environment, defaulting to development")
		config.App.Environment = constants.EnvDevelopment
	}

	// In production, ensure we have a proper signing secret
	if config.App.IsProduction() && (config.ClientToken.Secret == "" || config.ClientToken.Secret == "changeme") {
		return fmt.Errorf("client token secret must be set in production")
	}

	switch config.Storage.Backend {
	case constants.StorageBackendSQL, constants.StorageBackendBolt, constants.StorageBackendMemory:
	default:
		return fmt.Errorf("invalid storage backend: %s", config.Storage.Backend)
	}

	// The resource store always lives in SQL, so connection details are required
	switch config.Database.Driver {
	case constants.DriverMySQL, constants.DriverPostgres:
	default:
		return fmt.Errorf("invalid database driver: %s", config.Database.Driver)
	}
	if config.Database.User == "" {
		return fmt.Errorf("database user must be set")
	}

	if config.Files.MaxUploadSize < 0 {
		return fmt.Errorf("max upload size must not be negative")
	}

	if !models.TagView(config.Settings.DefaultTagView).Valid() {
		return fmt.Errorf("invalid default tag view: %s", config.Settings.DefaultTagView)
	}
	var excludes models.TagSet
	if rejected := excludes.FillFromString(config.Settings.DefaultExcludes); len(rejected) > 0 {
		return fmt.Errorf("invalid default exclude tags: %s", strings.Join(rejected, ","))
	}
	config.Settings.DefaultExcludes = excludes.String()

	// Validate log level
	logLevel := strings.ToLower(config.Logging.Level)
	validLevels := []string{"debug", "info", "warn", "error", "fatal", "panic"}
	validLevel := false
	for _, level := range validLevels {
		if logLevel == level {
			validLevel = true
			break
		}
	}
	if !validLevel {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

// logConfig logs the current configuration, masking sensitive values
func logConfig(config *AppConfig) {
	// Create a copy of the config to mask sensitive values
	logCfg := *config

	// Mask sensitive information
	if logCfg.Database.Password != "" {
		logCfg.Database.Password = constants.LogRedactedValue
	}
	if logCfg.ClientToken.Secret != "" {
		logCfg.ClientToken.Secret = constants.LogRedactedValue
	}

	log.Info().
		Str("environment", logCfg.App.Environment).
		Str("version", logCfg.App.Version).
		Str("server", logCfg.Server.ServerAddress()).
		Str("db_driver", logCfg.Database.Driver).
		Str("db_host", logCfg.Database.Host).
		Int("db_port", logCfg.Database.Port).
		Str("db_name", logCfg.Database.Name).
		Str("storage_backend", logCfg.Storage.Backend).
		Str("files_dir", logCfg.Files.Dir).
		Str("log_level", logCfg.Logging.Level).
		Msg("Configuration loaded")
}
