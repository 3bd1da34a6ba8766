package config

import (
	"time"

	"github.com/killallgit/stream-recorder/pkg/retry"
)

// Config represents the complete application configuration
type Config struct {
	Environment string         `mapstructure:"environment"`
	Series      SeriesConfig   `mapstructure:"series"`
	Storage     StorageConfig  `mapstructure:"storage"`
	Webhook     WebhookConfig  `mapstructure:"webhook"`
	Retry       retry.Policy   `mapstructure:"retry"`
	Capture     CaptureConfig  `mapstructure:"capture"`
	Database    DatabaseConfig `mapstructure:"database"`
	Server      ServerConfig   `mapstructure:"server"`
	Logging     LoggingConfig  `mapstructure:"logging"`
}

// SeriesConfig describes the show being recorded
type SeriesConfig struct {
	Name           string `mapstructure:"name"`
	Title          string `mapstructure:"title"`
	SourceURL      string `mapstructure:"source_url"`
	Runtime        int    `mapstructure:"runtime"` // seconds
	MediaType      string `mapstructure:"media_type"`
	RetentionCount int    `mapstructure:"retention_count"`
}

// StorageConfig contains durable object store settings
type StorageConfig struct {
	Root          string `mapstructure:"root"`
	ResourceGroup string `mapstructure:"resource_group"`
	Account       string `mapstructure:"account"`
	Container     string `mapstructure:"container"`
	Auth          string `mapstructure:"auth"`
	ConnectionID  string `mapstructure:"connection_id"`
	TenantID      string `mapstructure:"tenant_id"`
	ClientID      string `mapstructure:"client_id"`
	ClientSecret  string `mapstructure:"client_secret"`
}

// WebhookConfig contains notification endpoint settings
type WebhookConfig struct {
	URL         string        `mapstructure:"url"`
	NotifyStart bool          `mapstructure:"notify_start"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// CaptureConfig contains stream capture settings
type CaptureConfig struct {
	WorkDir          string        `mapstructure:"work_dir"`
	Interval         time.Duration `mapstructure:"interval"`
	UserAgent        string        `mapstructure:"user_agent"`
	MaxFragmentBytes int64         `mapstructure:"max_fragment_bytes"` // 0 = no limit
	KeepFragments    bool          `mapstructure:"keep_fragments"`
	MaxWorkAge       time.Duration `mapstructure:"max_work_age"`
	SweepInterval    time.Duration `mapstructure:"sweep_interval"`
}

// DatabaseConfig contains run ledger settings
type DatabaseConfig struct {
	Path             string        `mapstructure:"path"`
	Verbose          bool          `mapstructure:"verbose"`
	HistoryRetention time.Duration `mapstructure:"history_retention"` // 0 keeps every row
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Authentication strategies accepted by storage.auth
const (
	AuthManagedIdentity  = "managed-identity"
	AuthServicePrincipal = "service-principal"
)
