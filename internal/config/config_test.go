package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAPIConfig(t *testing.T) {
	tests := []struct {
		name        string
		configFile  string
		expectError bool
		validate    func(*testing.T, *APIConfig)
	}{
		{
			name: "valid config file",
			configFile: `
debug: true
sentry_dsn: "https://sentry.example.com"
server:
  host: 127.0.0.1
  port: 9090
database:
  driver: postgres
  host: target-host
  port: 5433
  user: migrator
  password: secret
  dbname: affiliates
  sslmode: require
source_database:
  host: wp-host
  user: wp
  password: wp-pass
  dbname: wordpress
  table_prefix: wp2_
migration:
  batch_size: 250
  max_run_time: 10s
  recount_chunk_size: 50
  workers: 8
  stats_cache_ttl: 30s
auth:
  api_keys:
    - key-1
    - key-2
`,
			validate: func(t *testing.T, cfg *APIConfig) {
				assert.True(t, cfg.Debug)
				assert.Equal(t, "https://sentry.example.com", cfg.SentryDSN)
				assert.Equal(t, "127.0.0.1", cfg.Server.Host)
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, DRIVER_POSTGRES, cfg.Database.Driver)
				assert.Equal(t, 5433, cfg.Database.Port)
				assert.Equal(t, "require", cfg.Database.SSLMode)
				assert.Equal(t, "wp-host", cfg.SourceDatabase.Host)
				assert.Equal(t, DRIVER_MYSQL, cfg.SourceDatabase.Driver)
				assert.Equal(t, "wp2_", cfg.SourceDatabase.TablePrefix)
				assert.False(t, cfg.SourceDatabase.SharesTarget(cfg.Database))
				assert.Equal(t, 250, cfg.Migration.BatchSize)
				assert.Equal(t, 10*time.Second, cfg.Migration.MaxRunTime)
				assert.Equal(t, 50, cfg.Migration.RecountChunkSize)
				assert.Equal(t, 8, cfg.Migration.Workers)
				assert.Equal(t, 30*time.Second, cfg.Migration.StatsCacheTTL)
				assert.Equal(t, []string{"key-1", "key-2"}, cfg.Auth.APIKeys)
			},
		},
		{
			name: "config with defaults",
			configFile: `
database:
  host: localhost
  user: wp
  password: wp-pass
  dbname: wordpress
`,
			validate: func(t *testing.T, cfg *APIConfig) {
				assert.Equal(t, "0.0.0.0", cfg.Server.Host)
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, DRIVER_MYSQL, cfg.Database.Driver)
				assert.Equal(t, 100, cfg.Migration.BatchSize)
				assert.Equal(t, 25*time.Second, cfg.Migration.MaxRunTime)
				assert.Equal(t, 100, cfg.Migration.RecountChunkSize)
				assert.Equal(t, 4, cfg.Migration.Workers)
				assert.Equal(t, time.Minute, cfg.Migration.StatsCacheTTL)
				assert.Equal(t, time.Hour, cfg.Database.ConnMaxLifetime)

				// WordPress tables default to the target database
				assert.Equal(t, "localhost", cfg.SourceDatabase.Host)
				assert.Equal(t, "wordpress", cfg.SourceDatabase.DBName)
				assert.Equal(t, "wp_", cfg.SourceDatabase.TablePrefix)
				assert.True(t, cfg.SourceDatabase.SharesTarget(cfg.Database))
			},
		},
		{
			name: "unsupported driver",
			configFile: `
database:
  driver: oracle
  host: localhost
  dbname: wordpress
`,
			expectError: true,
		},
		{
			name: "missing database name",
			configFile: `
database:
  host: localhost
`,
			expectError: true,
		},
		{
			name: "invalid yaml",
			configFile: `
				database:
				  host: localhost
				  port: invalid
			`,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			configFile := filepath.Join(tmpDir, "config.yaml")
			err := os.WriteFile(configFile, []byte(tt.configFile), 0600)
			require.NoError(t, err)

			cfg, err := LoadAPIConfig(configFile, tmpDir)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, cfg)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, cfg)
			tt.validate(t, cfg)
		})
	}
}

func TestLoadMigrateConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")
	err := os.WriteFile(configFile, []byte(`
database:
  host: localhost
  port: 3307
  user: wp
  password: wp-pass
  dbname: wordpress
migration:
  batch_size: 500
`), 0600)
	require.NoError(t, err)

	cfg, err := LoadMigrateConfig(configFile, tmpDir)
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.Migration.BatchSize)
	assert.Equal(t, 3307, cfg.SourceDatabase.Port)
	assert.Equal(t, "wp_", cfg.SourceDatabase.TablePrefix)
}

func TestLoadMigrateConfig_MissingFile(t *testing.T) {
	t.Setenv("FF_AFFILIATE_DATABASE_HOST", "env-host")
	t.Setenv("FF_AFFILIATE_DATABASE_DBNAME", "env-db")

	cfg, err := LoadMigrateConfig(filepath.Join(t.TempDir(), "nonexistent.yaml"), t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "env-host", cfg.Database.Host)
	assert.Equal(t, "env-db", cfg.SourceDatabase.DBName)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	tests := []struct {
		name     string
		config   DatabaseConfig
		expected string
	}{
		{
			name: "mysql",
			config: DatabaseConfig{
				Driver:   DRIVER_MYSQL,
				Host:     "localhost",
				Port:     3306,
				User:     "wp",
				Password: "p@ssw0rd!",
				DBName:   "wordpress",
			},
			expected: "wp:p@ssw0rd!@tcp(localhost:3306)/wordpress?charset=utf8mb4&parseTime=True&loc=UTC",
		},
		{
			name: "mysql default port",
			config: DatabaseConfig{
				Driver: DRIVER_MYSQL,
				Host:   "db",
				User:   "wp",
				DBName: "wordpress",
			},
			expected: "wp:@tcp(db:3306)/wordpress?charset=utf8mb4&parseTime=True&loc=UTC",
		},
		{
			name: "postgres",
			config: DatabaseConfig{
				Driver:   DRIVER_POSTGRES,
				Host:     "localhost",
				Port:     5432,
				User:     "testuser",
				Password: "testpass",
				DBName:   "testdb",
				SSLMode:  "require",
			},
			expected: "host=localhost port=5432 user=testuser password=testpass dbname=testdb sslmode=require",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.config.DSN())
			assert.Equal(t, tt.config.Driver, tt.config.Dialector().Name())
		})
	}
}

func TestConfigWithEnvironmentVariables(t *testing.T) {
	tmpDir := t.TempDir()

	envDir := filepath.Join(tmpDir, "env")
	err := os.MkdirAll(envDir, 0750)
	require.NoError(t, err)

	// Viper uses the FF_AFFILIATE_ prefix
	envFile := filepath.Join(envDir, ".env")
	envContent := `FF_AFFILIATE_DEBUG=true
FF_AFFILIATE_DATABASE_HOST=env-host
FF_AFFILIATE_DATABASE_PORT=3310
FF_AFFILIATE_DATABASE_DBNAME=env-db
FF_AFFILIATE_MIGRATION_MAX_RUN_TIME=5s
`
	err = os.WriteFile(envFile, []byte(envContent), 0600)
	require.NoError(t, err)

	// godotenv sets process variables, clear them for the other tests
	t.Cleanup(func() {
		for _, key := range []string{
			"FF_AFFILIATE_DEBUG",
			"FF_AFFILIATE_DATABASE_HOST",
			"FF_AFFILIATE_DATABASE_PORT",
			"FF_AFFILIATE_DATABASE_DBNAME",
			"FF_AFFILIATE_MIGRATION_MAX_RUN_TIME",
		} {
			_ = os.Unsetenv(key)
		}
	})

	configPath := filepath.Join(tmpDir, "config.yaml")
	configFile := `
debug: false
database:
  host: file-host
  port: 3306
  dbname: file-db
migration:
  max_run_time: 20s
`
	err = os.WriteFile(configPath, []byte(configFile), 0600)
	require.NoError(t, err)

	cfg, err := LoadAPIConfig(configPath, envDir)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.True(t, cfg.Debug)
	assert.Equal(t, "env-host", cfg.Database.Host)
	assert.Equal(t, 3310, cfg.Database.Port)
	assert.Equal(t, "env-db", cfg.Database.DBName)
	assert.Equal(t, 5*time.Second, cfg.Migration.MaxRunTime)
}
