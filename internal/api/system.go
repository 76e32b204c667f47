package api

import (
	"context"
	"fmt"
	"net/url"
)

// ConfigEntry is one key/value row of the backend system configuration.
type ConfigEntry struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	Description string `json:"description,omitempty"`
}

// AIServiceConfig holds the settings for the backend's report-generation
// service.
type AIServiceConfig struct {
	Endpoint string `json:"endpoint"`
	Model    string `json:"model"`
	APIKey   string `json:"api_key,omitempty"`
	Enabled  bool   `json:"enabled"`
}

// ListSystemConfig fetches all configuration entries.
func (c *Client) ListSystemConfig(ctx context.Context) ([]ConfigEntry, error) {
	env, err := c.get(ctx, "/system", nil, DefaultTimeout)
	if err != nil {
		return nil, err
	}

	var entries []ConfigEntry
	if err := env.Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to decode system config: %w", err)
	}
	return entries, nil
}

// CreateSystemConfig adds a new configuration entry.
func (c *Client) CreateSystemConfig(ctx context.Context, entry ConfigEntry) error {
	_, err := c.post(ctx, "/system", entry, DefaultTimeout)
	return err
}

// UpdateSystemConfig replaces an existing configuration entry.
func (c *Client) UpdateSystemConfig(ctx context.Context, entry ConfigEntry) error {
	_, err := c.put(ctx, "/system", entry, DefaultTimeout)
	return err
}

// DeleteSystemConfig removes a configuration entry by key.
func (c *Client) DeleteSystemConfig(ctx context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty config key", ErrRequestSetup)
	}
	params := url.Values{}
	params.Set("key", key)
	_, err := c.delete(ctx, "/system", params, DefaultTimeout)
	return err
}

// BatchSetSystemConfig writes several configuration entries in one call.
func (c *Client) BatchSetSystemConfig(ctx context.Context, entries []ConfigEntry) error {
	if len(entries) == 0 {
		return fmt.Errorf("%w: empty config batch", ErrRequestSetup)
	}
	body := struct {
		Entries []ConfigEntry `json:"entries"`
	}{Entries: entries}
	_, err := c.post(ctx, "/system/batch", body, DefaultTimeout)
	return err
}

// GetAIServiceConfig fetches the AI report service settings.
func (c *Client) GetAIServiceConfig(ctx context.Context) (*AIServiceConfig, error) {
	env, err := c.get(ctx, "/system/ai-service", nil, DefaultTimeout)
	if err != nil {
		return nil, err
	}

	var cfg AIServiceConfig
	if err := env.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode ai-service config: %w", err)
	}
	return &cfg, nil
}

// SetAIServiceConfig updates the AI report service settings.
func (c *Client) SetAIServiceConfig(ctx context.Context, cfg AIServiceConfig) error {
	_, err := c.post(ctx, "/system/ai-service", cfg, DefaultTimeout)
	return err
}
