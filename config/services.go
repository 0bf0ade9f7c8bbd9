package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeBot runs the chat transport that receives user commands.
	ServiceModeBot ServiceMode = "bot"
	// ServiceModeCoordinator runs the job coordinator worker.
	ServiceModeCoordinator ServiceMode = "coordinator"
	// ServiceModeReaper runs the job reaper for cleanup.
	ServiceModeReaper ServiceMode = "reaper"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{
		ServiceModeBot,
		ServiceModeCoordinator,
		ServiceModeReaper,
	}
}

// ParseServices parses a comma-delimited string of service names and returns the enabled services.
// It validates that all service names are valid and returns an error if any are invalid.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	for _, part := range strings.Split(servicesStr, ",") {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeBot, ServiceModeCoordinator, ServiceModeReaper:
			services[mode] = true
		default:
			return nil, fmt.Errorf(
				"invalid service name: %q (valid options: bot, coordinator, reaper)",
				serviceName,
			)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

// CoordinatorConfig contains job coordinator service configuration.
type CoordinatorConfig struct {
	// SubmitAttempts is the maximum number of provider submission attempts
	// per job, including the first one.
	SubmitAttempts int `env:"COORDINATOR_SUBMIT_ATTEMPTS" envDefault:"3"`

	// SubmitBackoffBase is the delay before the second submission attempt.
	// Each further attempt doubles it.
	SubmitBackoffBase time.Duration `env:"COORDINATOR_SUBMIT_BACKOFF_BASE" envDefault:"1s"`

	// PollInterval is how often an in-flight job is polled.
	PollInterval time.Duration `env:"COORDINATOR_POLL_INTERVAL" envDefault:"30s"`

	// GenerationTimeout is the wall-clock budget for a job from submission
	// to a provider-side terminal state.
	GenerationTimeout time.Duration `env:"COORDINATOR_GENERATION_TIMEOUT" envDefault:"5m"`
}

// Sanitize applies guardrails to coordinator configuration values.
func (c *CoordinatorConfig) Sanitize() {
	if c.SubmitAttempts < 1 {
		c.SubmitAttempts = 1
	}
	if c.SubmitBackoffBase <= 0 {
		c.SubmitBackoffBase = time.Second
	}
	if c.PollInterval < time.Second {
		c.PollInterval = time.Second
	}
	if c.GenerationTimeout < c.PollInterval {
		c.GenerationTimeout = 10 * c.PollInterval
	}
}

// ReaperConfig contains job reaper service configuration.
type ReaperConfig struct {
	// Interval is the reaper tick interval.
	Interval time.Duration `env:"REAPER_INTERVAL" envDefault:"5m"`

	// InFlightMaxAge is the maximum age for non-terminal jobs before they
	// are failed. It backstops the coordinator's own generation timeout for
	// jobs orphaned by a crash.
	InFlightMaxAge time.Duration `env:"REAPER_IN_FLIGHT_MAX_AGE" envDefault:"1h"`

	// CompletedMaxAge is the maximum age for completed jobs before deletion.
	CompletedMaxAge time.Duration `env:"REAPER_COMPLETED_MAX_AGE" envDefault:"720h"` // 30 days

	// FailedMaxAge is the maximum age for failed jobs before deletion.
	FailedMaxAge time.Duration `env:"REAPER_FAILED_MAX_AGE" envDefault:"720h"` // 30 days

	// CancelledMaxAge is the maximum age for cancelled jobs before deletion.
	CancelledMaxAge time.Duration `env:"REAPER_CANCELLED_MAX_AGE" envDefault:"168h"` // 7 days

	// BatchSize limits rows touched per cleanup statement.
	BatchSize int `env:"REAPER_BATCH_SIZE" envDefault:"500"`
}

// Sanitize applies guardrails to reaper configuration values.
func (r *ReaperConfig) Sanitize() {
	if r.Interval < time.Second {
		r.Interval = time.Second
	}
	if r.InFlightMaxAge < time.Minute {
		r.InFlightMaxAge = time.Minute
	}
	if r.BatchSize < 1 {
		r.BatchSize = 1
	}
}
