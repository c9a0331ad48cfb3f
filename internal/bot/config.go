package bot

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	coreconfig "github.com/sessionvault/accountbot/core/config"
	"github.com/sessionvault/accountbot/core/database"
	"github.com/sessionvault/accountbot/core/logger"
)

// devVaultKey is the debug-profile fallback. Never used when the
// profile is anything else; see config.example.yaml for the caveat.
const devVaultKey = "accountbot-dev-only-key"

// VaultConfig holds the credential encryption settings.
type VaultConfig struct {
	// Key is the secret the cipher key is derived from. Required
	// outside the debug profile.
	Key string `yaml:"key" envconfig:"VAULT_KEY"`
}

// OnboardingConfig tunes the account onboarding flow.
type OnboardingConfig struct {
	// RemoteTimeoutSeconds bounds each verification-service call.
	// 0 selects the built-in default.
	RemoteTimeoutSeconds int `yaml:"remote_timeout_seconds" envconfig:"ONBOARDING_REMOTE_TIMEOUT_SECONDS"`
}

// Config is the full application configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database   database.Config  `yaml:"database"`
	Vault      VaultConfig      `yaml:"vault"`
	Onboarding OnboardingConfig `yaml:"onboarding"`
}

// LoadConfig reads the YAML file, overlays environment variables, and
// validates the result.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return nil, err
	}
	if err := normalizeApp(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func normalizeApp(cfg *Config) error {
	if cfg.Onboarding.RemoteTimeoutSeconds < 0 {
		return fmt.Errorf("onboarding.remote_timeout_seconds must be >= 0")
	}
	if cfg.Vault.Key == "" {
		if !logger.DevProfile(&cfg.Config) {
			return fmt.Errorf("vault.key is required outside the debug profile")
		}
		cfg.Vault.Key = devVaultKey
	}
	return nil
}
