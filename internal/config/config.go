package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"voicebatch/internal/core/domain"
)

// EnvAPIKey is the environment variable holding the ElevenLabs API key.
const EnvAPIKey = "ELEVENLABS_API_KEY"

// AppConfig holds the user's API key and batch preferences.
type AppConfig struct {
	APIKey         string                    `json:"api_key,omitempty"`
	OutputDir      string                    `json:"output_dir"`
	DefaultVoiceID string                    `json:"default_voice_id,omitempty"`
	Settings       domain.ConversionSettings `json:"settings"`
}

// Default returns the baseline configuration for first launch.
func Default() AppConfig {
	return AppConfig{
		OutputDir: "output",
		Settings:  domain.DefaultSettings(),
	}
}

// Path returns the absolute path to ~/.voicebatch/config.json.
func Path() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not find home directory: %w", err)
	}
	return filepath.Join(home, ".voicebatch", "config.json"), nil
}

// Load reads the config from disk, returning defaults when no file exists.
func Load() (AppConfig, error) {
	path, err := Path()
	if err != nil {
		return AppConfig{}, err
	}
	return LoadFrom(path)
}

// LoadFrom reads the config from an explicit path.
func LoadFrom(path string) (AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return AppConfig{}, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	return cfg, nil
}

// Save writes the config to disk. The file carries the API key, so it is
// written with owner-only permissions.
func (cfg AppConfig) Save() error {
	path, err := Path()
	if err != nil {
		return err
	}
	return cfg.SaveTo(path)
}

// SaveTo writes the config to an explicit path with 0600 permissions,
// creating the parent directory when needed.
func (cfg AppConfig) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("could not create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config to disk: %w", err)
	}
	return nil
}

// ResolveAPIKey picks the API key by precedence: an explicit value, the
// ELEVENLABS_API_KEY environment variable, then the config file. An empty
// result is an error that should block the batch before it starts.
func ResolveAPIKey(explicit string, cfg AppConfig) (string, error) {
	if key := strings.TrimSpace(explicit); key != "" {
		return key, nil
	}
	if key := strings.TrimSpace(os.Getenv(EnvAPIKey)); key != "" {
		return key, nil
	}
	if key := strings.TrimSpace(cfg.APIKey); key != "" {
		return key, nil
	}
	return "", fmt.Errorf("no api key configured: pass -api-key, set %s, or run 'voicebatch-cli configure'", EnvAPIKey)
}
