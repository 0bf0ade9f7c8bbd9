package config

import (
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - bot.go: Chat transport configuration
//   - database.go: Database and session store configuration
//   - provider.go: Generation provider configuration
//   - services.go: Service mode, coordinator and reaper configuration
type AppConfig struct {
	// IsDev controls development mode behavior.
	// Set DEV=true or NODE_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	// Database configuration
	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`

	// Chat transport configuration
	Bot BotConfig

	// Generation provider configuration
	Provider ProviderConfig

	// Service mode configuration
	Services string `env:"SERVICES" envDefault:"bot,coordinator,reaper"`

	// Coordinator configuration
	Coordinator CoordinatorConfig

	// Reaper configuration
	Reaper ReaperConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.Bot.Sanitize()
	c.Coordinator.Sanitize()
	c.Reaper.Sanitize()
	c.Observability.Sanitize()
	c.detectDevMode()
}

// detectDevMode checks both DEV and NODE_ENV environment variables.
// NODE_ENV is checked as a fallback (common in adjacent tooling).
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}

// GetEnabledServices returns the enabled services based on the Services field.
// The bot cannot launch or cancel jobs without an in-process coordinator, so
// enabling bot also enables coordinator.
func (c *AppConfig) GetEnabledServices() (map[ServiceMode]bool, error) {
	services, err := ParseServices(c.Services)
	if err != nil {
		return nil, err
	}
	if services[ServiceModeBot] {
		services[ServiceModeCoordinator] = true
	}
	return services, nil
}

// IsBotEnabled returns true if the chat transport service is enabled.
func (c *AppConfig) IsBotEnabled() bool {
	return c.isEnabled(ServiceModeBot)
}

// IsCoordinatorEnabled returns true if the coordinator service is enabled.
func (c *AppConfig) IsCoordinatorEnabled() bool {
	return c.isEnabled(ServiceModeCoordinator)
}

// IsReaperEnabled returns true if the reaper service is enabled.
func (c *AppConfig) IsReaperEnabled() bool {
	return c.isEnabled(ServiceModeReaper)
}

func (c *AppConfig) isEnabled(mode ServiceMode) bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[mode]
}
