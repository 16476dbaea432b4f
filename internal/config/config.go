package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/semmidev/tenantvault/internal/domain"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Database DatabaseConfig `mapstructure:"database"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Backup   BackupConfig   `mapstructure:"backup"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Server   ServerConfig   `mapstructure:"server"`
}

type AppConfig struct {
	Name     string `mapstructure:"name" validate:"required"`
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`
}

// DatabaseConfig describes the data store the snapshots are exported from.
type DatabaseConfig struct {
	Type     string `mapstructure:"type" validate:"oneof=postgresql mysql"`
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	MaxConns int    `mapstructure:"max_conns" validate:"gte=0"`

	// PostgreSQL specific
	SSLMode string `mapstructure:"ssl_mode"`

	// Column that carries the tenant id in tenant scoped tables.
	TenantColumn string `mapstructure:"tenant_column" validate:"required"`
}

// LedgerConfig points at the PostgreSQL database holding backup_settings and
// backup_runs. An empty URL reuses the data store when it is PostgreSQL.
type LedgerConfig struct {
	URL string `mapstructure:"url"`
}

type StorageConfig struct {
	Type string `mapstructure:"type" validate:"oneof=local s3 gcs azure gdrive"`

	// Local
	LocalPath string `mapstructure:"local_path"`

	// AWS S3
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Endpoint  string `mapstructure:"endpoint"` // also used by azure
	Prefix    string `mapstructure:"prefix"`

	// Google Cloud Storage and Google Drive
	CredentialsFile string `mapstructure:"credentials_file"`
	FolderID        string `mapstructure:"folder_id"`

	// Azure
	AccountName string `mapstructure:"account_name"`
	AccountKey  string `mapstructure:"account_key"`
	Container   string `mapstructure:"container"`
}

type BackupConfig struct {
	Schedule   string                   `mapstructure:"schedule" validate:"required"`
	Workers    int                      `mapstructure:"workers" validate:"gte=1,lte=64"`
	Compress   bool                     `mapstructure:"compress"`
	StuckAfter time.Duration            `mapstructure:"stuck_after" validate:"gt=0"`
	Tables     []domain.TableDescriptor `mapstructure:"tables" validate:"unique=Name,dive"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
}

type TelegramConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	BotToken      string `mapstructure:"bot_token"`
	ChatID        string `mapstructure:"chat_id"`
	OnlyOnFailure bool   `mapstructure:"only_on_failure"`
}

type ServerConfig struct {
	Addr         string        `mapstructure:"addr" validate:"required"`
	TriggerToken string        `mapstructure:"trigger_token"`
	RunTimeout   time.Duration `mapstructure:"run_timeout" validate:"gt=0"`
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("TENANTVAULT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "tenantvault")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("database.type", "postgresql")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.tenant_column", "organization_id")
	v.SetDefault("database.max_conns", 8)
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", "./backups")
	v.SetDefault("backup.schedule", "0 */15 * * * *")
	v.SetDefault("backup.workers", 4)
	v.SetDefault("backup.compress", false)
	v.SetDefault("backup.stuck_after", "6h")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.run_timeout", "10m")

	// Credentials are usually injected through the environment only, so the
	// keys must be known to viper for Unmarshal to pick them up.
	for _, key := range []string{
		"database.url", "database.password", "ledger.url",
		"storage.access_key", "storage.secret_key", "storage.account_key",
		"notify.telegram.bot_token", "server.trigger_token",
	} {
		v.SetDefault(key, "")
	}
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	if c.Database.URL == "" && c.Database.Host == "" {
		return fmt.Errorf("database: url or host is required")
	}

	if c.LedgerURL() == "" {
		return fmt.Errorf("ledger.url is required when the data store is not postgresql")
	}

	switch c.Storage.Type {
	case "local":
		if c.Storage.LocalPath == "" {
			return fmt.Errorf("storage.local_path is required")
		}
	case "s3":
		if c.Storage.Bucket == "" || c.Storage.Region == "" {
			return fmt.Errorf("storage: bucket and region are required for s3")
		}
		if c.Storage.AccessKey == "" || c.Storage.SecretKey == "" {
			return fmt.Errorf("storage: access_key and secret_key are required for s3")
		}
	case "gcs":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage: bucket is required for gcs")
		}
	case "azure":
		if c.Storage.AccountName == "" || c.Storage.AccountKey == "" || c.Storage.Container == "" {
			return fmt.Errorf("storage: account_name, account_key and container are required for azure")
		}
	case "gdrive":
		if c.Storage.CredentialsFile == "" || c.Storage.FolderID == "" {
			return fmt.Errorf("storage: credentials_file and folder_id are required for gdrive")
		}
	}

	if c.Notify.Telegram.Enabled && (c.Notify.Telegram.BotToken == "" || c.Notify.Telegram.ChatID == "") {
		return fmt.Errorf("notify.telegram: bot_token and chat_id are required when enabled")
	}

	return nil
}

// LedgerURL returns the connection string of the ledger database.
func (c *Config) LedgerURL() string {
	if c.Ledger.URL != "" {
		return c.Ledger.URL
	}
	if c.Database.Type == "postgresql" {
		return c.Database.PostgresURL()
	}
	return ""
}

// PostgresURL builds a connection string from the discrete fields unless URL
// is set.
func (d DatabaseConfig) PostgresURL() string {
	if d.URL != "" {
		return d.URL
	}
	port := d.Port
	if port == 0 {
		port = 5432
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.Username, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(port)),
		Path:     d.Database,
		RawQuery: "sslmode=" + d.SSLMode,
	}
	return u.String()
}

// BackupTables returns the configured table registry, falling back to the
// built-in default list.
func (c *Config) BackupTables() []domain.TableDescriptor {
	if len(c.Backup.Tables) > 0 {
		return c.Backup.Tables
	}
	return domain.DefaultTables
}
