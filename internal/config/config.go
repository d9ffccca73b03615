package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	DRIVER_MYSQL    = "mysql"
	DRIVER_POSTGRES = "postgres"
)

// BaseConfig holds base configuration
type BaseConfig struct {
	Debug     bool   `mapstructure:"debug"`
	SentryDSN string `mapstructure:"sentry_dsn"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // mysql or postgres
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`            // postgres only
	MaxOpenConns    int           `mapstructure:"max_open_conns"`     // Maximum number of open connections to the database
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`     // Maximum number of idle connections in the pool
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`  // Maximum amount of time a connection may be reused (e.g., "5m", "1h")
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"` // Maximum amount of time a connection may be idle (e.g., "10m", "30m")
}

// SourceDatabaseConfig holds the connection to the WordPress install holding the legacy plugin tables
type SourceDatabaseConfig struct {
	DatabaseConfig `mapstructure:",squash"`
	TablePrefix    string `mapstructure:"table_prefix"`
}

// MigrationConfig holds migration engine configuration
type MigrationConfig struct {
	BatchSize        int           `mapstructure:"batch_size"`
	MaxRunTime       time.Duration `mapstructure:"max_run_time"`       // Budget of one polling request
	RecountChunkSize int           `mapstructure:"recount_chunk_size"` // Affiliates recounted between budget checks
	Workers          int           `mapstructure:"workers"`            // Concurrent lookups and recounts within a chunk
	StatsCacheTTL    time.Duration `mapstructure:"stats_cache_ttl"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // in seconds
	WriteTimeout int    `mapstructure:"write_timeout"` // in seconds
	IdleTimeout  int    `mapstructure:"idle_timeout"`  // in seconds
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTPublicKey string   `mapstructure:"jwt_public_key"`
	APIKeys      []string `mapstructure:"api_keys"`
	Disabled     bool     `mapstructure:"disabled"`
}

// APIConfig holds configuration for API server
type APIConfig struct {
	BaseConfig     `mapstructure:",squash"`
	Server         ServerConfig         `mapstructure:"server"`
	Database       DatabaseConfig       `mapstructure:"database"`
	SourceDatabase SourceDatabaseConfig `mapstructure:"source_database"`
	Migration      MigrationConfig      `mapstructure:"migration"`
	Auth           AuthConfig           `mapstructure:"auth"`
}

// MigrateConfig holds configuration for the migrate CLI
type MigrateConfig struct {
	BaseConfig     `mapstructure:",squash"`
	Database       DatabaseConfig       `mapstructure:"database"`
	SourceDatabase SourceDatabaseConfig `mapstructure:"source_database"`
	Migration      MigrationConfig      `mapstructure:"migration"`
}

// LoadAPIConfig loads configuration for API server
func LoadAPIConfig(configFile string, envPath string) (*APIConfig, error) {
	v := configureViper("api", configFile, envPath)

	// Set defaults
	v.SetDefault("debug", false)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 60) // a poll may run for the whole migration budget
	v.SetDefault("server.idle_timeout", 120)
	setDatabaseDefaults(v)
	setMigrationDefaults(v)

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var config APIConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	config.SourceDatabase.inherit(config.Database)

	if err := config.Database.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadMigrateConfig loads configuration for the migrate CLI
func LoadMigrateConfig(configFile string, envPath string) (*MigrateConfig, error) {
	v := configureViper("migrate", configFile, envPath)

	setDatabaseDefaults(v)
	setMigrationDefaults(v)

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var config MigrateConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	config.SourceDatabase.inherit(config.Database)

	if err := config.Database.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDatabaseDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", DRIVER_MYSQL)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.conn_max_idle_time", "10m")
	v.SetDefault("source_database.table_prefix", "wp_")
}

func setMigrationDefaults(v *viper.Viper) {
	v.SetDefault("migration.batch_size", 100)
	v.SetDefault("migration.max_run_time", "25s")
	v.SetDefault("migration.recount_chunk_size", 100)
	v.SetDefault("migration.workers", 4)
	v.SetDefault("migration.stats_cache_ttl", "1m")
}

// readConfig reads the config file, falling back to environment variables when none exists
func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

// configureViper returns a viper instance with the config file and environment variables set
func configureViper(service string, configFile string, envPath string) *viper.Viper {
	v := viper.New()

	// Load environment variables
	loadEnv(envPath, service)

	// Set config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// Search for config.yaml in multiple locations:
		// 1. Current directory
		v.AddConfigPath(".")
		// 2. Service-specific directory (e.g., cmd/api/, cmd/migrate/)
		v.AddConfigPath(fmt.Sprintf("cmd/%s/", service))
		// 3. Config directory
		v.AddConfigPath("config/")
	}

	// Set environment variables
	v.SetEnvPrefix("FF_AFFILIATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicitly bind all environment variables
	bindAllEnvVars(v)
	return v
}

// bindAllEnvVars explicitly binds all possible environment variables
// This is required for viper to map env vars to config struct fields when no config file exists
func bindAllEnvVars(v *viper.Viper) {
	keys := []string{
		"debug",
		"sentry_dsn",
		// Migration
		"migration.batch_size",
		"migration.max_run_time",
		"migration.recount_chunk_size",
		"migration.workers",
		"migration.stats_cache_ttl",
		// Server
		"server.host",
		"server.port",
		"server.read_timeout",
		"server.write_timeout",
		"server.idle_timeout",
		// Auth
		"auth.jwt_public_key",
		"auth.api_keys",
		"auth.disabled",
		"source_database.table_prefix",
	}

	// Target and WordPress databases share their connection keys
	for _, db := range []string{"database", "source_database"} {
		for _, field := range []string{
			"driver", "host", "port", "user", "password", "dbname", "sslmode",
			"max_open_conns", "max_idle_conns", "conn_max_lifetime", "conn_max_idle_time",
		} {
			keys = append(keys, db+"."+field)
		}
	}

	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// loadEnv loads environment variables from the config directory
func loadEnv(envPath string, service string) {
	// Always try shared base first, then local, then optional per-service local.
	envFiles := []string{".env", ".env.local"}
	if service != "" {
		envFiles = append(envFiles, ".env."+service+".local")
	}

	// Default to config directory
	if envPath == "" {
		envPath = "config/"
	}

	for _, envFile := range envFiles {
		candidate := filepath.Join(envPath, envFile)
		_ = godotenv.Overload(candidate) // Overload lets later files override earlier ones
	}
}

// ChdirRepoRoot changes the current working directory to the repository root
func ChdirRepoRoot() {
	cwd, _ := os.Getwd()
	for range 5 {
		if _, err := os.Stat(filepath.Join(cwd, "config")); err == nil {
			_ = os.Chdir(cwd)
			return
		}
		cwd = filepath.Dir(cwd)
	}
}

// Validate checks the settings needed to open a connection
func (c *DatabaseConfig) Validate() error {
	switch c.Driver {
	case DRIVER_MYSQL, DRIVER_POSTGRES:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Driver)
	}
	if c.Host == "" {
		return errors.New("database.host is required")
	}
	if c.DBName == "" {
		return errors.New("database.dbname is required")
	}
	return nil
}

// DSN returns the database connection string for the configured driver
func (c *DatabaseConfig) DSN() string {
	if c.Driver == DRIVER_POSTGRES {
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.port(), c.User, c.Password, c.DBName, c.SSLMode)
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		c.User, c.Password, c.Host, c.port(), c.DBName)
}

// Dialector returns the gorm dialector for the configured driver
func (c *DatabaseConfig) Dialector() gorm.Dialector {
	if c.Driver == DRIVER_POSTGRES {
		return postgres.Open(c.DSN())
	}
	return mysql.Open(c.DSN())
}

func (c *DatabaseConfig) port() int {
	if c.Port != 0 {
		return c.Port
	}
	if c.Driver == DRIVER_POSTGRES {
		return 5432
	}
	return 3306
}

// inherit fills an unset WordPress connection from the target one, the common
// setup where the migrated tables live next to the plugin tables
func (c *SourceDatabaseConfig) inherit(target DatabaseConfig) {
	if c.Host != "" {
		if c.Driver == "" {
			c.Driver = DRIVER_MYSQL
		}
		return
	}
	c.DatabaseConfig = target
}

// SharesTarget reports whether the WordPress tables live in the target database
func (c *SourceDatabaseConfig) SharesTarget(target DatabaseConfig) bool {
	return c.Driver == target.Driver && c.Host == target.Host && c.port() == target.port() && c.DBName == target.DBName
}
