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

	"github.com/feral-file/castindex/internal/domain"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// BaseConfig holds base configuration
type BaseConfig struct {
	Debug     bool   `mapstructure:"debug"`
	SentryDSN string `mapstructure:"sentry_dsn"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	// Driver is either "postgres" or "sqlite"
	Driver          string        `mapstructure:"driver"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	Path            string        `mapstructure:"path"` // SQLite database file
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// WarpcastConfig holds the social API configuration
type WarpcastConfig struct {
	URL    string `mapstructure:"url"`
	APIKey string `mapstructure:"api_key"`
}

// SearchcasterConfig holds the address resolution API configuration
type SearchcasterConfig struct {
	URL string `mapstructure:"url"`
}

// EnsdataConfig holds the ENS lookup API configuration
type EnsdataConfig struct {
	URL string `mapstructure:"url"`
}

// AlchemyConfig holds the asset transfer API configuration
type AlchemyConfig struct {
	URL    string `mapstructure:"url"`
	APIKey string `mapstructure:"api_key"`
}

// Endpoint returns the JSON-RPC endpoint including the API key
func (c *AlchemyConfig) Endpoint() string {
	return strings.TrimSuffix(c.URL, "/") + "/" + c.APIKey
}

// FetchConfig holds pagination, retry and fan-out settings shared by every pipeline
type FetchConfig struct {
	RequestTimeout       time.Duration `mapstructure:"request_timeout"`
	RetryAttempts        int           `mapstructure:"retry_attempts"`
	RetryDelay           time.Duration `mapstructure:"retry_delay"`
	PageDelay            time.Duration `mapstructure:"page_delay"`
	UsersPageSize        int           `mapstructure:"users_page_size"`
	CastsPageSize        int           `mapstructure:"casts_page_size"`
	ReactionsPageSize    int           `mapstructure:"reactions_page_size"`
	AddressBatchSize     int           `mapstructure:"address_batch_size"`
	ReactionBatchSize    int           `mapstructure:"reaction_batch_size"`
	TransactionBatchSize int           `mapstructure:"transaction_batch_size"`
	ReactionMinCastAge   time.Duration `mapstructure:"reaction_min_cast_age"`
}

// RateLimitConfig throttles requests to one upstream API
type RateLimitConfig struct {
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	MaxQueueTime      time.Duration `mapstructure:"max_queue_time"`
}

// SnapshotConfig holds snapshot packaging configuration
type SnapshotConfig struct {
	Dir         string `mapstructure:"dir"`
	DownloadURL string `mapstructure:"download_url"`
}

// LLMConfig holds the natural-language query translator configuration
type LLMConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// MaintenanceConfig holds the maintenance sweeper configuration
type MaintenanceConfig struct {
	Interval         time.Duration `mapstructure:"interval"`
	DeleteUnresolved bool          `mapstructure:"delete_unresolved"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // in seconds
	WriteTimeout int    `mapstructure:"write_timeout"` // in seconds
	IdleTimeout  int    `mapstructure:"idle_timeout"`  // in seconds
}

// AuthConfig holds authentication settings for the query endpoint.
// The endpoint is open when neither API keys nor a JWT public key are set.
type AuthConfig struct {
	JWTPublicKey string   `mapstructure:"jwt_public_key"`
	APIKeys      []string `mapstructure:"api_keys"`
}

// IndexerConfig holds configuration for the castindex command
type IndexerConfig struct {
	BaseConfig   `mapstructure:",squash"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Warpcast     WarpcastConfig     `mapstructure:"warpcast"`
	Searchcaster SearchcasterConfig `mapstructure:"searchcaster"`
	Ensdata      EnsdataConfig      `mapstructure:"ensdata"`
	Alchemy      AlchemyConfig      `mapstructure:"alchemy"`
	EthRPCURL    string             `mapstructure:"eth_rpc_url"`
	Fetch        FetchConfig        `mapstructure:"fetch"`
	// RateLimits is keyed by provider: warpcast, searchcaster, ensdata or alchemy
	RateLimits  map[string]RateLimitConfig `mapstructure:"rate_limits"`
	Snapshot    SnapshotConfig             `mapstructure:"snapshot"`
	Maintenance MaintenanceConfig          `mapstructure:"maintenance"`
	LLM         LLMConfig                  `mapstructure:"llm"`
}

// APIConfig holds configuration for the read-only API server
type APIConfig struct {
	BaseConfig `mapstructure:",squash"`
	Server     ServerConfig   `mapstructure:"server"`
	Auth       AuthConfig     `mapstructure:"auth"`
	Database   DatabaseConfig `mapstructure:"database"`
	LLM        LLMConfig      `mapstructure:"llm"`
}

func setDatabaseDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.path", "data/castindex.db")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
}

// LoadIndexerConfig loads configuration for the castindex command
func LoadIndexerConfig(configFile string, envPath string) (*IndexerConfig, error) {
	v := configureViper("castindex", configFile, envPath)

	setDatabaseDefaults(v)
	v.SetDefault("warpcast.url", "https://api.warpcast.com")
	v.SetDefault("searchcaster.url", "https://searchcaster.xyz")
	v.SetDefault("ensdata.url", "https://api.ensdata.net")
	v.SetDefault("alchemy.url", "https://eth-mainnet.g.alchemy.com/v2")
	v.SetDefault("fetch.request_timeout", "10s")
	v.SetDefault("fetch.retry_attempts", 3)
	v.SetDefault("fetch.retry_delay", "5s")
	v.SetDefault("fetch.page_delay", "1s")
	v.SetDefault("fetch.users_page_size", 1000)
	v.SetDefault("fetch.casts_page_size", 1000)
	v.SetDefault("fetch.reactions_page_size", 100)
	v.SetDefault("fetch.address_batch_size", 50)
	v.SetDefault("fetch.reaction_batch_size", 10)
	v.SetDefault("fetch.transaction_batch_size", 5)
	v.SetDefault("fetch.reaction_min_cast_age", domain.REACTION_MIN_CAST_AGE.String())
	for provider, rps := range map[string]float64{"warpcast": 5, "searchcaster": 2, "ensdata": 5, "alchemy": 25} {
		v.SetDefault("rate_limits."+provider+".requests_per_second", rps)
	}
	v.SetDefault("snapshot.dir", "data/snapshots")
	v.SetDefault("maintenance.interval", "6h")
	v.SetDefault("maintenance.delete_unresolved", false)

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg IndexerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Database.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadAPIConfig loads configuration for the API server
func LoadAPIConfig(configFile string, envPath string) (*APIConfig, error) {
	v := configureViper("api", configFile, envPath)

	setDatabaseDefaults(v)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 30)
	v.SetDefault("server.idle_timeout", 120)

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg APIConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Database.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use environment variables
	}
	return nil
}

// Validate checks the database settings for the selected driver
func (c *DatabaseConfig) Validate() error {
	switch c.Driver {
	case DriverSQLite:
		if c.Path == "" {
			return errors.New("database.path is required for sqlite")
		}
	case DriverPostgres:
		if c.Host == "" {
			return errors.New("database.host is required for postgres")
		}
		if c.DBName == "" {
			return errors.New("database.dbname is required for postgres")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Driver)
	}
	return nil
}

// RequireWarpcast fails fast when the social API key is missing
func (c *IndexerConfig) RequireWarpcast() error {
	if c.Warpcast.APIKey == "" {
		return fmt.Errorf("%w: warpcast.api_key", domain.ErrMissingCredential)
	}
	return nil
}

// RequireAlchemy fails fast when the asset transfer API key or the RPC url is missing
func (c *IndexerConfig) RequireAlchemy() error {
	if c.Alchemy.APIKey == "" {
		return fmt.Errorf("%w: alchemy.api_key", domain.ErrMissingCredential)
	}
	if c.EthRPCURL == "" {
		return fmt.Errorf("%w: eth_rpc_url", domain.ErrMissingCredential)
	}
	return nil
}

// RequireLLM fails fast when the translator key is missing
func (c *LLMConfig) RequireLLM() error {
	if c.APIKey == "" {
		return fmt.Errorf("%w: llm.api_key", domain.ErrMissingCredential)
	}
	return nil
}

// configureViper returns a viper instance with the config file and environment variables set
func configureViper(service string, configFile string, envPath string) *viper.Viper {
	v := viper.New()

	loadEnv(envPath, service)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(fmt.Sprintf("cmd/%s/", service))
		v.AddConfigPath("config/")
	}

	v.SetEnvPrefix("CASTINDEX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindAllEnvVars(v)
	return v
}

// bindAllEnvVars explicitly binds all possible environment variables
// This is required for viper to map env vars to config struct fields when no config file exists
func bindAllEnvVars(v *viper.Viper) {
	keys := []string{
		"debug",
		"sentry_dsn",
		// Database
		"database.driver",
		"database.host",
		"database.port",
		"database.user",
		"database.password",
		"database.dbname",
		"database.sslmode",
		"database.path",
		"database.max_open_conns",
		"database.max_idle_conns",
		"database.conn_max_lifetime",
		"database.conn_max_idle_time",
		// Upstream APIs
		"warpcast.url",
		"warpcast.api_key",
		"searchcaster.url",
		"ensdata.url",
		"alchemy.url",
		"alchemy.api_key",
		"eth_rpc_url",
		// Fetch
		"fetch.request_timeout",
		"fetch.retry_attempts",
		"fetch.retry_delay",
		"fetch.page_delay",
		"fetch.users_page_size",
		"fetch.casts_page_size",
		"fetch.reactions_page_size",
		"fetch.address_batch_size",
		"fetch.reaction_batch_size",
		"fetch.transaction_batch_size",
		"fetch.reaction_min_cast_age",
		// Rate limits
		"rate_limits.warpcast.requests_per_second",
		"rate_limits.searchcaster.requests_per_second",
		"rate_limits.ensdata.requests_per_second",
		"rate_limits.alchemy.requests_per_second",
		// Snapshot
		"snapshot.dir",
		"snapshot.download_url",
		// Maintenance
		"maintenance.interval",
		"maintenance.delete_unresolved",
		// LLM
		"llm.api_key",
		"llm.base_url",
		"llm.model",
		// Server
		"server.host",
		"server.port",
		"server.read_timeout",
		"server.write_timeout",
		"server.idle_timeout",
		// Auth
		"auth.jwt_public_key",
		"auth.api_keys",
	}

	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// loadEnv loads environment variables from the config directory
func loadEnv(envPath string, service string) {
	envFiles := []string{".env", ".env.local"}
	if service != "" {
		envFiles = append(envFiles, ".env."+service+".local")
	}

	if envPath == "" {
		envPath = "config/"
	}

	for _, envFile := range envFiles {
		_ = godotenv.Overload(filepath.Join(envPath, envFile)) // later files override earlier ones
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

// DSN returns the database connection string for the configured driver
func (c *DatabaseConfig) DSN() string {
	if c.Driver == DriverSQLite {
		return c.Path
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
