package config

import "errors"

var errMissingAPIKey = errors.New("ARK_API_KEY is required when PROVIDER_MOCK_MODE is off")

// ProviderConfig contains video generation provider configuration.
type ProviderConfig struct {
	// MockMode replaces the real provider with the offline devgen variant.
	// No API key is needed in mock mode.
	MockMode bool `env:"PROVIDER_MOCK_MODE" envDefault:"false"`

	// APIKey authenticates against the Ark API. Required unless MockMode.
	APIKey string `env:"ARK_API_KEY"`

	// BaseURL overrides the Ark endpoint.
	BaseURL string `env:"ARK_BASE_URL" envDefault:"https://ark.cn-beijing.volces.com/api/v3"`

	// Model is the content generation model or endpoint ID.
	Model string `env:"ARK_MODEL" envDefault:"doubao-seedance-1-0-lite-i2v-250428"`

	// Resolution is passed to the provider as a generation directive.
	Resolution string `env:"ARK_RESOLUTION" envDefault:"720p"`
}

// Validate reports whether the provider configuration is usable.
func (p *ProviderConfig) Validate() error {
	if p.MockMode {
		return nil
	}
	if p.APIKey == "" {
		return errMissingAPIKey
	}
	return nil
}
