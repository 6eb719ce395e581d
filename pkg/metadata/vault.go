package metadata

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/vault/api"
	"github.com/rs/zerolog"
)

// VaultConfig configures a VaultBackend on a KV version 2 secrets engine.
type VaultConfig struct {
	Address string
	Token   string
	// MountPath is the mount of the secrets engine, DataPath the directory within it.
	MountPath string
	DataPath  string
}

// VaultBackend stores blobs as base64 encoded secrets in HashiCorp Vault.
type VaultBackend struct {
	client    *api.Client
	mountPath string
	dataPath  string
	log       zerolog.Logger
}

func NewVaultBackend(config VaultConfig, log zerolog.Logger) (*VaultBackend, error) {
	cfg := api.DefaultConfig()
	if config.Address != "" {
		cfg.Address = config.Address
	}
	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("metadata: create Vault client: %w", err)
	}
	if config.Token != "" {
		client.SetToken(config.Token)
	}
	mountPath := strings.Trim(config.MountPath, "/")
	if mountPath == "" {
		mountPath = "secret"
	}
	return &VaultBackend{
		client:    client,
		mountPath: mountPath,
		dataPath:  strings.Trim(config.DataPath, "/"),
		log:       log.With().Str("vault", cfg.Address).Logger(),
	}, nil
}

func (b *VaultBackend) secretPath(key string) string {
	if b.dataPath == "" {
		return fmt.Sprintf("%s/data/%s", b.mountPath, key)
	}
	return fmt.Sprintf("%s/data/%s/%s", b.mountPath, b.dataPath, key)
}

func (b *VaultBackend) Fetch(ctx context.Context, key string) ([]byte, error) {
	path := b.secretPath(key)
	secret, err := b.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		b.log.Error().Err(err).Str("path", path).Msg("Vault read failed")
		return nil, fmt.Errorf("metadata: Vault read: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return nil, ErrNotFound
	}
	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, errors.New("metadata: invalid Vault KV v2 response")
	}
	content, ok := data["content"].(string)
	if !ok {
		return nil, errors.New("metadata: content missing from Vault secret")
	}
	blob, err := base64.StdEncoding.DecodeString(content)
	if err != nil {
		return nil, fmt.Errorf("metadata: Vault content: %w", err)
	}
	b.log.Debug().Str("path", path).Int("size", len(blob)).Msg("Vault read")
	return blob, nil
}

func (b *VaultBackend) Store(ctx context.Context, key string, data []byte) error {
	path := b.secretPath(key)
	_, err := b.client.Logical().WriteWithContext(ctx, path, map[string]interface{}{
		"data": map[string]interface{}{
			"content": base64.StdEncoding.EncodeToString(data),
		},
	})
	if err != nil {
		b.log.Error().Err(err).Str("path", path).Msg("Vault write failed")
		return fmt.Errorf("metadata: Vault write: %w", err)
	}
	b.log.Debug().Str("path", path).Int("size", len(data)).Msg("Vault write")
	return nil
}

func (b *VaultBackend) Name() string {
	return "vault-" + b.mountPath
}
