package config

import (
	"github.com/effective-security/x/configloader"
)

// Config is constructed once at startup and injected into every tool and the
// orchestrator. Credentials are optional: a missing key degrades the
// corresponding provider to a labeled estimate, it never disables the server.
type Config struct {
	// LLM configures the chat gateway used by the evaluate tool.
	LLM LLMConfig `json:"llm" yaml:"llm"`
	// Keys holds the per-provider credentials.
	Keys Keys `json:"keys" yaml:"keys"`
}

// LLMConfig for an OpenAI-compatible chat gateway.
type LLMConfig struct {
	// Token authenticates against the gateway. Empty disables the
	// AI evaluation step.
	Token string `json:"token,omitempty" yaml:"token,omitempty"`
	// BaseURL of the gateway, e.g. https://openrouter.ai/api/v1
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	// Model identifier sent with each completion request.
	Model string `json:"model,omitempty" yaml:"model,omitempty"`
}

// Keys holds provider credentials. The RapidAPI key is shared by the crime
// and housing sub-providers, same as the upstream aggregator intends.
type Keys struct {
	GoogleMaps string `json:"google_maps,omitempty" yaml:"google_maps,omitempty"`
	WalkScore  string `json:"walk_score,omitempty" yaml:"walk_score,omitempty"`
	RapidAPI   string `json:"rapid_api,omitempty" yaml:"rapid_api,omitempty"`
	AirQuality string `json:"air_quality,omitempty" yaml:"air_quality,omitempty"`
	Attom      string `json:"attom,omitempty" yaml:"attom,omitempty"`
}

// Load reads the configuration from a yaml or json file,
// expanding environment variables in values.
func Load(file string) (*Config, error) {
	cfg := new(Config)
	if file == "" {
		return cfg, nil
	}
	err := configloader.UnmarshalAndExpand(file, cfg)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
