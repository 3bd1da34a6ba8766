package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	apperrors "github.com/killallgit/stream-recorder/pkg/errors"
	"github.com/spf13/viper"
)

// DefaultConfigFile is read when no --config flag is given
const DefaultConfigFile = "./config/settings.yaml"

var (
	once    sync.Once
	initErr error
)

// Init initializes the configuration system
// This should be called once at application startup
func Init(configFile string) error {
	once.Do(func() {
		// Set default values
		setDefaults()

		// Set up environment variable reading for overrides
		viper.SetEnvPrefix("RECORDER")
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		viper.AutomaticEnv()

		explicit := configFile != ""
		if !explicit {
			configFile = DefaultConfigFile
		}
		configPath := filepath.Clean(configFile)
		viper.SetConfigFile(configPath)

		if err := viper.ReadInConfig(); err != nil {
			// A missing default file is fine - defaults and env vars apply
			if explicit || !errors.Is(err, fs.ErrNotExist) {
				initErr = fmt.Errorf("error reading config file %s: %w", configPath, err)
				return
			}
		}

		if err := validate(); err != nil {
			initErr = fmt.Errorf("invalid configuration: %w", err)
		}
	})

	return initErr
}

// Reset discards the loaded configuration so Init can run again
func Reset() {
	viper.Reset()
	once = sync.Once{}
	initErr = nil
}

// GetConfig returns the current configuration as a struct
// Init() must be called before using this
func GetConfig() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	config.Series.MediaType = strings.ToLower(strings.TrimSpace(config.Series.MediaType))
	if strings.TrimSpace(config.Series.Title) == "" {
		config.Series.Title = config.Series.Name
	}
	return &config, nil
}

// validate checks the settings every command depends on. Recording
// parameters are checked separately by ValidateRecording.
func validate() error {
	port := viper.GetInt("server.port")
	if port <= 0 || port > 65535 {
		return apperrors.ConfigError("server.port", fmt.Sprintf("invalid server port: %d", port))
	}

	// Auto-correct invalid capture interval
	if viper.GetDuration("capture.interval") <= 0 {
		viper.Set("capture.interval", time.Second)
	}

	return nil
}

// ValidateRecording checks the invocation parameters a record run needs.
// Any failure here is fatal before the pipeline starts.
func (c *Config) ValidateRecording() error {
	if strings.TrimSpace(c.Series.Name) == "" {
		return apperrors.MissingFieldError("series.name")
	}
	if err := validateHTTPURL("series.source_url", c.Series.SourceURL); err != nil {
		return err
	}
	if c.Series.Runtime <= 0 {
		return apperrors.ConfigError("series.runtime", fmt.Sprintf("must be > 0 seconds, got %d", c.Series.Runtime))
	}
	if c.Series.MediaType == "" {
		return apperrors.MissingFieldError("series.media_type")
	}
	if strings.ContainsAny(c.Series.MediaType, `/\. `) {
		return apperrors.ConfigError("series.media_type", fmt.Sprintf("invalid media type %q", c.Series.MediaType))
	}
	if c.Series.RetentionCount < 0 {
		return apperrors.ConfigError("series.retention_count", fmt.Sprintf("must be >= 0, got %d", c.Series.RetentionCount))
	}

	if err := c.ValidateStorage(); err != nil {
		return err
	}

	if err := validateHTTPURL("webhook.url", c.Webhook.URL); err != nil {
		return err
	}

	if err := c.Retry.Validate(); err != nil {
		return apperrors.ConfigError("retry", err.Error())
	}

	if strings.TrimSpace(c.Capture.WorkDir) == "" {
		return apperrors.MissingFieldError("capture.work_dir")
	}
	if c.Capture.MaxFragmentBytes < 0 {
		return apperrors.ConfigError("capture.max_fragment_bytes", fmt.Sprintf("must be >= 0, got %d", c.Capture.MaxFragmentBytes))
	}

	return nil
}

// ValidateStorage checks the object store identifiers and credentials.
func (c *Config) ValidateStorage() error {
	if strings.TrimSpace(c.Storage.Account) == "" {
		return apperrors.MissingFieldError("storage.account")
	}
	if strings.TrimSpace(c.Storage.Container) == "" {
		return apperrors.MissingFieldError("storage.container")
	}

	switch c.Storage.Auth {
	case AuthManagedIdentity:
	case AuthServicePrincipal:
		for key, value := range map[string]string{
			"storage.tenant_id":     c.Storage.TenantID,
			"storage.client_id":     c.Storage.ClientID,
			"storage.client_secret": c.Storage.ClientSecret,
		} {
			if strings.TrimSpace(value) == "" {
				return apperrors.MissingFieldError(key)
			}
		}
	default:
		return apperrors.ConfigError("storage.auth", fmt.Sprintf("unknown strategy %q (want %s or %s)",
			c.Storage.Auth, AuthManagedIdentity, AuthServicePrincipal))
	}

	return nil
}

func validateHTTPURL(key, raw string) error {
	if strings.TrimSpace(raw) == "" {
		return apperrors.MissingFieldError(key)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return apperrors.ConfigError(key, err.Error())
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return apperrors.ConfigError(key, fmt.Sprintf("must be an http(s) URL, got %q", raw))
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Environment defaults
	viper.SetDefault("environment", "development")

	// Series defaults
	viper.SetDefault("series.name", "")
	viper.SetDefault("series.title", "")
	viper.SetDefault("series.source_url", "")
	viper.SetDefault("series.runtime", 3600)
	viper.SetDefault("series.media_type", "mp3")
	viper.SetDefault("series.retention_count", 10)

	// Storage defaults
	viper.SetDefault("storage.root", "./data/store")
	viper.SetDefault("storage.resource_group", "")
	viper.SetDefault("storage.account", "")
	viper.SetDefault("storage.container", "")
	viper.SetDefault("storage.auth", AuthManagedIdentity)
	viper.SetDefault("storage.connection_id", "")
	viper.SetDefault("storage.tenant_id", "")
	viper.SetDefault("storage.client_id", "")
	viper.SetDefault("storage.client_secret", "")

	// Webhook defaults
	viper.SetDefault("webhook.url", "")
	viper.SetDefault("webhook.notify_start", true)
	viper.SetDefault("webhook.timeout", 30*time.Second)

	// Retry defaults
	viper.SetDefault("retry.max_retries", 5)
	viper.SetDefault("retry.initial_delay", 3*time.Second)
	viper.SetDefault("retry.backoff_increment", 0*time.Second)

	// Capture defaults
	viper.SetDefault("capture.work_dir", "./tmp/recorder")
	viper.SetDefault("capture.interval", time.Second)
	viper.SetDefault("capture.user_agent", "StreamRecorder/1.0")
	viper.SetDefault("capture.keep_fragments", false)
	viper.SetDefault("capture.max_fragment_bytes", 0)
	viper.SetDefault("capture.max_work_age", 72*time.Hour)
	viper.SetDefault("capture.sweep_interval", time.Hour)

	// Database defaults
	viper.SetDefault("database.path", "./data/recorder.db")
	viper.SetDefault("database.verbose", false)
	viper.SetDefault("database.history_retention", 90*24*time.Hour)

	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)
	viper.SetDefault("server.shutdown_timeout", 10*time.Second)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
}
