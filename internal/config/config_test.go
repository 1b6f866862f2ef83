package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/castindex/internal/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte(content), 0600))
	return configFile
}

func TestLoadIndexerConfig(t *testing.T) {
	tests := []struct {
		name        string
		configFile  string
		expectError bool
		validate    func(*testing.T, *IndexerConfig)
	}{
		{
			name: "valid config file",
			configFile: `
debug: true
sentry_dsn: "https://sentry.example.com"
database:
  driver: postgres
  host: localhost
  port: 5433
  user: testuser
  password: testpass
  dbname: testdb
  sslmode: require
warpcast:
  api_key: "wc-key"
alchemy:
  api_key: "alchemy-key"
eth_rpc_url: "http://localhost:8545"
fetch:
  retry_attempts: 5
  retry_delay: "2s"
  address_batch_size: 20
snapshot:
  dir: "/tmp/snapshots"
`,
			validate: func(t *testing.T, cfg *IndexerConfig) {
				assert.True(t, cfg.Debug)
				assert.Equal(t, "https://sentry.example.com", cfg.SentryDSN)
				assert.Equal(t, DriverPostgres, cfg.Database.Driver)
				assert.Equal(t, 5433, cfg.Database.Port)
				assert.Equal(t, "require", cfg.Database.SSLMode)
				assert.Equal(t, "wc-key", cfg.Warpcast.APIKey)
				assert.Equal(t, 5, cfg.Fetch.RetryAttempts)
				assert.Equal(t, 2*time.Second, cfg.Fetch.RetryDelay)
				assert.Equal(t, 20, cfg.Fetch.AddressBatchSize)
				assert.Equal(t, "/tmp/snapshots", cfg.Snapshot.Dir)
				assert.Equal(t, "https://eth-mainnet.g.alchemy.com/v2/alchemy-key", cfg.Alchemy.Endpoint())
				assert.NoError(t, cfg.RequireWarpcast())
				assert.NoError(t, cfg.RequireAlchemy())
			},
		},
		{
			name: "defaults",
			configFile: `
debug: false
`,
			validate: func(t *testing.T, cfg *IndexerConfig) {
				assert.Equal(t, DriverSQLite, cfg.Database.Driver)
				assert.Equal(t, "data/castindex.db", cfg.Database.Path)
				assert.Equal(t, "data/castindex.db", cfg.Database.DSN())
				assert.Equal(t, "https://api.warpcast.com", cfg.Warpcast.URL)
				assert.Equal(t, 10*time.Second, cfg.Fetch.RequestTimeout)
				assert.Equal(t, 3, cfg.Fetch.RetryAttempts)
				assert.Equal(t, 5*time.Second, cfg.Fetch.RetryDelay)
				assert.Equal(t, time.Second, cfg.Fetch.PageDelay)
				assert.Equal(t, 50, cfg.Fetch.AddressBatchSize)
				assert.Equal(t, 10, cfg.Fetch.ReactionBatchSize)
				assert.Equal(t, 5, cfg.Fetch.TransactionBatchSize)
				assert.Equal(t, domain.REACTION_MIN_CAST_AGE, cfg.Fetch.ReactionMinCastAge)
				assert.Equal(t, 6*time.Hour, cfg.Maintenance.Interval)
				assert.Equal(t, 5.0, cfg.RateLimits["warpcast"].RequestsPerSecond)
				assert.Equal(t, 25.0, cfg.RateLimits["alchemy"].RequestsPerSecond)
				assert.False(t, cfg.Maintenance.DeleteUnresolved)
			},
		},
		{
			name: "unsupported driver",
			configFile: `
database:
  driver: mysql
`,
			expectError: true,
		},
		{
			name: "postgres without host",
			configFile: `
database:
  driver: postgres
  dbname: castindex
`,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadIndexerConfig(writeConfig(t, tt.configFile), t.TempDir())

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

func TestLoadIndexerConfig_MissingCredentials(t *testing.T) {
	cfg, err := LoadIndexerConfig(writeConfig(t, "debug: false\n"), t.TempDir())
	require.NoError(t, err)

	assert.ErrorIs(t, cfg.RequireWarpcast(), domain.ErrMissingCredential)
	assert.ErrorIs(t, cfg.RequireAlchemy(), domain.ErrMissingCredential)
	assert.ErrorIs(t, cfg.LLM.RequireLLM(), domain.ErrMissingCredential)
}

func TestLoadIndexerConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("CASTINDEX_WARPCAST_API_KEY", "from-env")
	t.Setenv("CASTINDEX_FETCH_TRANSACTION_BATCH_SIZE", "7")

	cfg, err := LoadIndexerConfig(writeConfig(t, "debug: false\n"), t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Warpcast.APIKey)
	assert.Equal(t, 7, cfg.Fetch.TransactionBatchSize)
}

func TestLoadIndexerConfig_EnvFile(t *testing.T) {
	envDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(envDir, ".env"), []byte("CASTINDEX_ALCHEMY_API_KEY=dotenv-key\n"), 0600))
	t.Cleanup(func() { _ = os.Unsetenv("CASTINDEX_ALCHEMY_API_KEY") })

	cfg, err := LoadIndexerConfig(writeConfig(t, "debug: false\n"), envDir)
	require.NoError(t, err)

	assert.Equal(t, "dotenv-key", cfg.Alchemy.APIKey)
}

func TestLoadIndexerConfig_NonexistentFile(t *testing.T) {
	cfg, err := LoadIndexerConfig(filepath.Join(t.TempDir(), "nonexistent.yaml"), t.TempDir())
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoadAPIConfig(t *testing.T) {
	cfg, err := LoadAPIConfig(writeConfig(t, `
server:
  port: 9090
auth:
  api_keys: ["k1", "k2"]
database:
  driver: sqlite
  path: /tmp/castindex.db
`), t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/tmp/castindex.db", cfg.Database.Path)
	assert.Equal(t, []string{"k1", "k2"}, cfg.Auth.APIKeys)
	assert.Empty(t, cfg.Auth.JWTPublicKey)
	assert.Empty(t, cfg.LLM.Model)
}
