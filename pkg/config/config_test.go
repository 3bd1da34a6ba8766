package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/killallgit/stream-recorder/pkg/errors"
	"github.com/killallgit/stream-recorder/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T) string
		wantErr bool
		check   func(t *testing.T)
	}{
		{
			name: "load from explicit file",
			setup: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "settings.yaml")
				content := `
series:
  name: "Morning Show"
  runtime: 120
storage:
  container: morning
`
				require.NoError(t, os.WriteFile(path, []byte(content), 0644))
				return path
			},
			check: func(t *testing.T) {
				cfg, err := GetConfig()
				require.NoError(t, err)
				assert.Equal(t, "Morning Show", cfg.Series.Name)
				assert.Equal(t, "Morning Show", cfg.Series.Title)
				assert.Equal(t, 120, cfg.Series.Runtime)
				assert.Equal(t, "morning", cfg.Storage.Container)
				assert.Equal(t, "mp3", cfg.Series.MediaType)
			},
		},
		{
			name: "environment variable override",
			setup: func(t *testing.T) string {
				t.Setenv("RECORDER_SERIES_RETENTION_COUNT", "3")
				t.Setenv("RECORDER_RETRY_INITIAL_DELAY", "250ms")
				return ""
			},
			check: func(t *testing.T) {
				cfg, err := GetConfig()
				require.NoError(t, err)
				assert.Equal(t, 3, cfg.Series.RetentionCount)
				assert.Equal(t, 250*time.Millisecond, cfg.Retry.InitialDelay)
			},
		},
		{
			name:  "missing default file uses defaults",
			setup: func(t *testing.T) string { return "" },
			check: func(t *testing.T) {
				cfg, err := GetConfig()
				require.NoError(t, err)
				assert.Equal(t, 3600, cfg.Series.Runtime)
				assert.Equal(t, 10, cfg.Series.RetentionCount)
				assert.Equal(t, retry.DefaultPolicy(), cfg.Retry)
				assert.Equal(t, time.Second, cfg.Capture.Interval)
				assert.Zero(t, cfg.Capture.MaxFragmentBytes)
				assert.True(t, cfg.Webhook.NotifyStart)
				assert.Equal(t, AuthManagedIdentity, cfg.Storage.Auth)
			},
		},
		{
			name: "missing explicit file fails",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "nope.yaml")
			},
			wantErr: true,
		},
		{
			name: "invalid port fails",
			setup: func(t *testing.T) string {
				t.Setenv("RECORDER_SERVER_PORT", "70000")
				return ""
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Reset()
			defer Reset()

			// Keep the default config path from resolving to a real file.
			t.Chdir(t.TempDir())

			err := Init(tt.setup(t))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t)
			}
		})
	}
}

func validRecordingConfig() *Config {
	return &Config{
		Series: SeriesConfig{
			Name:           "Morning Show",
			Title:          "Morning Show",
			SourceURL:      "https://radio.example.com/live.mp3",
			Runtime:        3600,
			MediaType:      "mp3",
			RetentionCount: 10,
		},
		Storage: StorageConfig{
			Account:   "recordings",
			Container: "morning-show",
			Auth:      AuthManagedIdentity,
		},
		Webhook: WebhookConfig{URL: "https://hooks.example.com/recorder"},
		Retry:   retry.DefaultPolicy(),
		Capture: CaptureConfig{WorkDir: "/tmp/recorder", Interval: time.Second},
	}
}

func TestConfig_ValidateRecording(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(c *Config)
		wantCode apperrors.ErrorCode
	}{
		{name: "valid config", mutate: func(c *Config) {}},
		{name: "missing series name", mutate: func(c *Config) { c.Series.Name = " " }, wantCode: apperrors.ErrCodeMissingField},
		{name: "missing source", mutate: func(c *Config) { c.Series.SourceURL = "" }, wantCode: apperrors.ErrCodeMissingField},
		{name: "non-http source", mutate: func(c *Config) { c.Series.SourceURL = "ftp://radio/live" }, wantCode: apperrors.ErrCodeConfigInvalid},
		{name: "zero runtime", mutate: func(c *Config) { c.Series.Runtime = 0 }, wantCode: apperrors.ErrCodeConfigInvalid},
		{name: "media type with dot", mutate: func(c *Config) { c.Series.MediaType = "m.p3" }, wantCode: apperrors.ErrCodeConfigInvalid},
		{name: "negative retention", mutate: func(c *Config) { c.Series.RetentionCount = -1 }, wantCode: apperrors.ErrCodeConfigInvalid},
		{name: "zero retention is valid", mutate: func(c *Config) { c.Series.RetentionCount = 0 }},
		{name: "missing account", mutate: func(c *Config) { c.Storage.Account = "" }, wantCode: apperrors.ErrCodeMissingField},
		{name: "missing container", mutate: func(c *Config) { c.Storage.Container = "" }, wantCode: apperrors.ErrCodeMissingField},
		{name: "unknown auth", mutate: func(c *Config) { c.Storage.Auth = "sas" }, wantCode: apperrors.ErrCodeConfigInvalid},
		{
			name: "service principal without secret",
			mutate: func(c *Config) {
				c.Storage.Auth = AuthServicePrincipal
				c.Storage.TenantID = "tenant"
				c.Storage.ClientID = "client"
			},
			wantCode: apperrors.ErrCodeMissingField,
		},
		{
			name: "complete service principal",
			mutate: func(c *Config) {
				c.Storage.Auth = AuthServicePrincipal
				c.Storage.TenantID = "tenant"
				c.Storage.ClientID = "client"
				c.Storage.ClientSecret = "secret"
			},
		},
		{name: "missing webhook", mutate: func(c *Config) { c.Webhook.URL = "" }, wantCode: apperrors.ErrCodeMissingField},
		{name: "negative fragment cap", mutate: func(c *Config) { c.Capture.MaxFragmentBytes = -1 }, wantCode: apperrors.ErrCodeConfigInvalid},
		{name: "backoff too large", mutate: func(c *Config) { c.Retry.BackoffIncrement = 2 * time.Minute }, wantCode: apperrors.ErrCodeConfigInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validRecordingConfig()
			tt.mutate(cfg)

			err := cfg.ValidateRecording()
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, apperrors.GetCode(err))
			assert.Equal(t, apperrors.ClassFatalSetup, apperrors.Classify(err))
		})
	}
}
