package app

import (
	"errors"
	"fmt"

	"github.com/vk/lanepipe/internal/config"
	"github.com/vk/lanepipe/internal/orchestrator"
)

// StageAll runs demux, map and qc in sequence.
const StageAll = "all"

// Config holds the command-line settings of one invocation.
type Config struct {
	ConfigPaths []string
	Stage       string
	// Backend overrides the configured platform kind when set.
	Backend string

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
	WorkerCount     int
}

// NewConfig validates cfg.
func NewConfig(cfg Config) (*Config, error) {
	if len(cfg.ConfigPaths) == 0 {
		return nil, errors.New("at least one configuration path is required")
	}
	switch cfg.Stage {
	case orchestrator.StageDemux, orchestrator.StageMap, orchestrator.StageQC, StageAll:
	case "":
		cfg.Stage = StageAll
	default:
		return nil, fmt.Errorf("invalid stage '%s': must be 'demux', 'map', 'qc' or 'all'", cfg.Stage)
	}
	switch cfg.Backend {
	case "", config.PlatformLocal, config.PlatformTemporal:
	default:
		return nil, fmt.Errorf("invalid backend '%s': must be 'local' or 'temporal'", cfg.Backend)
	}
	if cfg.WorkerCount < 1 {
		return nil, fmt.Errorf("workers must be positive, got %d", cfg.WorkerCount)
	}
	return &cfg, nil
}

// stages returns the stages to run in order.
func (c *Config) stages() []string {
	if c.Stage == StageAll {
		return []string{orchestrator.StageDemux, orchestrator.StageMap, orchestrator.StageQC}
	}
	return []string{c.Stage}
}
