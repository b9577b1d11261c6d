package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"

	domainwf "github.com/garyjia/voucher-approval/internal/domain/workflow"
)

// Database drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Lark     LarkConfig     `mapstructure:"lark"`
	Workflow WorkflowConfig `mapstructure:"workflow"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	// Path is the SQLite database file
	Path string `mapstructure:"path"`
	// DSN is the PostgreSQL connection string
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	BusyTimeout     time.Duration `mapstructure:"busy_timeout"`
}

// LarkConfig holds Lark API configuration
type LarkConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	AppID     string `mapstructure:"app_id"`
	AppSecret string `mapstructure:"app_secret"`
	BaseURL   string `mapstructure:"base_url"`
	// Recipients maps a role name to where its notifications go
	Recipients map[string]RecipientConfig `mapstructure:"recipients"`
}

// RecipientConfig identifies a Lark user or chat
type RecipientConfig struct {
	ReceiveIDType string `mapstructure:"receive_id_type"`
	ReceiveID     string `mapstructure:"receive_id"`
}

// WorkflowConfig holds approval chain configuration
type WorkflowConfig struct {
	DefaultQuorumThreshold int           `mapstructure:"default_quorum_threshold"`
	NotifyTimeout          time.Duration `mapstructure:"notify_timeout"`
	// Variants replaces the built-in stage tables when set
	Variants []domainwf.Definition `mapstructure:"variants"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables.
// Variables in a .env file next to the working directory are applied first.
func Load(configPath string) (*Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.path", "data/vouchers.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.busy_timeout", 5*time.Second)

	v.SetDefault("lark.enabled", false)

	v.SetDefault("workflow.default_quorum_threshold", domainwf.DefaultQuorumThreshold)
	v.SetDefault("workflow.notify_timeout", 30*time.Second)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars(v *viper.Viper) {
	// Sensitive credentials from environment
	_ = v.BindEnv("lark.app_id", "LARK_APP_ID")
	_ = v.BindEnv("lark.app_secret", "LARK_APP_SECRET")
	_ = v.BindEnv("database.dsn", "DATABASE_URL")
	_ = v.BindEnv("database.driver", "DATABASE_DRIVER")
	_ = v.BindEnv("server.port", "PORT")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for postgres")
		}
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverSQLite, DriverPostgres, c.Database.Driver)
	}

	if c.Lark.Enabled {
		if c.Lark.AppID == "" {
			return fmt.Errorf("lark.app_id is required")
		}
		if c.Lark.AppSecret == "" {
			return fmt.Errorf("lark.app_secret is required")
		}
	}
	for role := range c.Lark.Recipients {
		if !domainwf.Role(strings.ToUpper(role)).IsValid() {
			return fmt.Errorf("lark.recipients: unknown role %q", role)
		}
	}

	if err := domainwf.ValidateQuorumThreshold(c.Workflow.DefaultQuorumThreshold); err != nil {
		return fmt.Errorf("workflow.default_quorum_threshold: %w", err)
	}

	if _, err := c.Workflow.Catalog(); err != nil {
		return fmt.Errorf("workflow.variants: %w", err)
	}

	return nil
}

// RoleRecipients returns the recipients keyed by role.
// Viper lower-cases map keys, so role names are normalized here.
func (l LarkConfig) RoleRecipients() map[domainwf.Role]RecipientConfig {
	out := make(map[domainwf.Role]RecipientConfig, len(l.Recipients))
	for role, r := range l.Recipients {
		out[domainwf.Role(strings.ToUpper(role))] = r
	}
	return out
}

// Catalog builds the stage tables, falling back to the built-in definitions
func (w WorkflowConfig) Catalog() (*domainwf.Catalog, error) {
	if len(w.Variants) == 0 {
		return domainwf.NewCatalog(domainwf.DefaultDefinitions())
	}
	return domainwf.NewCatalog(w.Variants)
}
