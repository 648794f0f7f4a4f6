package asaas

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gosuda/mentorpro/internal/domain"
	"github.com/gosuda/mentorpro/internal/secrets"
)

// Accounts resolves each mentor's stored credentials into a ready Client.
type Accounts struct {
	configs domain.GatewayConfigRepository
	vault   *secrets.Vault
	opts    Options
	now     func() time.Time
}

func NewAccounts(configs domain.GatewayConfigRepository, vault *secrets.Vault, opts Options) *Accounts {
	return &Accounts{configs: configs, vault: vault, opts: opts, now: time.Now}
}

// Settings is the displayable view of a mentor's credentials.
type Settings struct {
	APIKey    string    `json:"api_key" doc:"Masked API key"`
	Sandbox   bool      `json:"sandbox"`
	BaseURL   string    `json:"base_url"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Client returns a client for the mentor in scope, or ErrNotConfigured.
func (a *Accounts) Client(ctx context.Context, scope domain.Scope) (*Client, error) {
	cfg, key, err := a.load(ctx, scope)
	if err != nil {
		return nil, err
	}
	return New(key, cfg.Sandbox, a.opts), nil
}

func (a *Accounts) Settings(ctx context.Context, scope domain.Scope) (*Settings, error) {
	cfg, key, err := a.load(ctx, scope)
	if err != nil {
		return nil, err
	}
	return &Settings{
		APIKey:    secrets.Mask(key),
		Sandbox:   cfg.Sandbox,
		BaseURL:   New(key, cfg.Sandbox, a.opts).BaseURL(),
		UpdatedAt: cfg.UpdatedAt,
	}, nil
}

// Save stores the credentials for the mentor in scope, replacing any
// previous ones.
func (a *Accounts) Save(ctx context.Context, scope domain.Scope, apiKey string, sandbox bool) (*Settings, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("asaas.Accounts.Save: %w: empty api key", ErrInvalidInput)
	}

	encrypted, err := a.vault.Encrypt(apiKey, scope.UserID[:])
	if err != nil {
		return nil, fmt.Errorf("asaas.Accounts.Save: %w", err)
	}

	cfg := &domain.GatewayConfig{
		MentorID:        scope.UserID,
		TenantID:        scope.TenantID,
		APIKeyEncrypted: encrypted,
		Sandbox:         sandbox,
		UpdatedAt:       a.now(),
	}
	if err := a.configs.Upsert(ctx, cfg); err != nil {
		return nil, fmt.Errorf("asaas.Accounts.Save: %w", err)
	}

	return &Settings{
		APIKey:    secrets.Mask(apiKey),
		Sandbox:   sandbox,
		BaseURL:   New(apiKey, sandbox, a.opts).BaseURL(),
		UpdatedAt: cfg.UpdatedAt,
	}, nil
}

func (a *Accounts) load(ctx context.Context, scope domain.Scope) (*domain.GatewayConfig, string, error) {
	cfg, err := a.configs.Get(ctx, scope)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, "", ErrNotConfigured
	}
	if err != nil {
		return nil, "", fmt.Errorf("asaas.Accounts: %w", err)
	}

	key, err := a.vault.Decrypt(cfg.APIKeyEncrypted, cfg.MentorID[:])
	if err != nil {
		return nil, "", fmt.Errorf("asaas.Accounts: decrypt api key: %w", err)
	}
	return cfg, key, nil
}
