package provider

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ConfigStore holds per-service configuration overrides loaded from a YAML
// file. A nil store is valid and always answers with the built-in defaults.
type ConfigStore struct {
	overrides map[Service]Config
}

type yamlServiceConfig struct {
	Provider        string   `yaml:"provider"`
	Model           string   `yaml:"model"`
	Temperature     *float64 `yaml:"temperature"`
	MaxOutputTokens *int     `yaml:"max_output_tokens"`
}

// LoadConfigFile reads a YAML file keyed by service name:
//
//	copilot:
//	  provider: gemini
//	  model: gemini-2.0-flash
//	  temperature: 0.7
//	  max_output_tokens: 50
//	extraction:
//	  model: gemini-2.5-pro
//
// Omitted fields keep their built-in default for that service.
func LoadConfigFile(path string) (*ConfigStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading AI config: %w", err)
	}
	var raw map[string]yamlServiceConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing AI config: %w", err)
	}

	store := &ConfigStore{overrides: make(map[Service]Config, len(raw))}
	for name, yc := range raw {
		svc := Service(name)
		cfg := Defaults(svc)
		if yc.Provider != "" {
			cfg.Provider = Name(yc.Provider)
		}
		if yc.Model != "" {
			cfg.ModelName = yc.Model
		}
		if yc.Temperature != nil {
			cfg.Temperature = *yc.Temperature
		}
		if yc.MaxOutputTokens != nil {
			cfg.MaxOutputTokens = *yc.MaxOutputTokens
		}
		store.overrides[svc] = cfg
	}
	return store, nil
}

// ServiceConfig returns the configuration for a service, falling back to the
// built-in defaults when the store is nil or carries no entry.
func (s *ConfigStore) ServiceConfig(svc Service) Config {
	if s != nil {
		if cfg, ok := s.overrides[svc]; ok {
			return cfg
		}
	}
	return Defaults(svc)
}
