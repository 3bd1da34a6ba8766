package storage

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/killallgit/stream-recorder/pkg/config"
	apperrors "github.com/killallgit/stream-recorder/pkg/errors"
	"github.com/samber/mo"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// Credential identifies who the store was opened as
type Credential struct {
	Strategy  string
	Principal string
	Account   string
}

// AuthStrategy resolves an identity for a storage account
type AuthStrategy interface {
	Kind() string
	Authorize(ctx context.Context, account string) (Credential, error)
}

// ManagedIdentity authorizes as the host's identity. ClientID selects a
// user-assigned identity; without it the system-assigned one is used.
type ManagedIdentity struct {
	ClientID mo.Option[string]
}

// Kind implements AuthStrategy
func (m ManagedIdentity) Kind() string { return config.AuthManagedIdentity }

// Authorize implements AuthStrategy
func (m ManagedIdentity) Authorize(ctx context.Context, account string) (Credential, error) {
	if err := ctx.Err(); err != nil {
		return Credential{}, err
	}
	return Credential{
		Strategy:  m.Kind(),
		Principal: m.ClientID.OrElse("system-assigned"),
		Account:   account,
	}, nil
}

// ServicePrincipal authorizes with an application registration's secret
type ServicePrincipal struct {
	TenantID     string
	ClientID     string
	ClientSecret string
}

// Kind implements AuthStrategy
func (p ServicePrincipal) Kind() string { return config.AuthServicePrincipal }

// Authorize implements AuthStrategy
func (p ServicePrincipal) Authorize(ctx context.Context, account string) (Credential, error) {
	if err := ctx.Err(); err != nil {
		return Credential{}, err
	}
	switch {
	case strings.TrimSpace(p.TenantID) == "":
		return Credential{}, apperrors.MissingFieldError("storage.tenant_id")
	case strings.TrimSpace(p.ClientID) == "":
		return Credential{}, apperrors.MissingFieldError("storage.client_id")
	case strings.TrimSpace(p.ClientSecret) == "":
		return Credential{}, apperrors.MissingFieldError("storage.client_secret")
	}
	return Credential{
		Strategy:  p.Kind(),
		Principal: p.TenantID + "/" + p.ClientID,
		Account:   account,
	}, nil
}

// StrategyFromConfig picks the auth strategy named by storage.auth
func StrategyFromConfig(cfg config.StorageConfig) (AuthStrategy, error) {
	switch cfg.Auth {
	case config.AuthManagedIdentity, "":
		clientID := mo.None[string]()
		if id := strings.TrimSpace(cfg.ConnectionID); id != "" {
			clientID = mo.Some(id)
		}
		return ManagedIdentity{ClientID: clientID}, nil
	case config.AuthServicePrincipal:
		return ServicePrincipal{
			TenantID:     cfg.TenantID,
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
		}, nil
	default:
		return nil, apperrors.ConfigError("storage.auth", "unknown strategy "+cfg.Auth)
	}
}

// Open authorizes against the configured account and returns the store handle
// for it. The handle is passed explicitly to every component that needs it.
func Open(ctx context.Context, fs afero.Fs, cfg config.StorageConfig, strategy AuthStrategy, logger logrus.FieldLogger) (*FilesystemStore, error) {
	if err := ValidateName("account", cfg.Account); err != nil {
		return nil, apperrors.ConfigError("storage.account", err.Error())
	}

	cred, err := strategy.Authorize(ctx, cfg.Account)
	if err != nil {
		if _, ok := apperrors.As(err); ok {
			return nil, err
		}
		return nil, apperrors.ExternalServiceError("storage auth", err)
	}

	store, err := NewFilesystemStore(fs, filepath.Join(cfg.Root, cfg.Account))
	if err != nil {
		return nil, apperrors.ExternalServiceError("storage", err)
	}
	store.credential = cred

	if logger != nil {
		logger.WithFields(logrus.Fields{
			"account":   cred.Account,
			"strategy":  cred.Strategy,
			"principal": cred.Principal,
		}).Debug("Opened object store")
	}
	return store, nil
}
