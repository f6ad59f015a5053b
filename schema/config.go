package schema

import "errors"

// EngineConfig defines the queue sizes used by the multiplexer engine.
type EngineConfig struct {
	// EventCapacity bounds the shared event bus.
	EventCapacity int
	// InputCapacity bounds each pane's keystroke channel.
	InputCapacity int
}

const (
	// DefaultEventCapacity is the default event bus capacity.
	DefaultEventCapacity = 1024
	// DefaultInputCapacity is the default per-pane keystroke queue depth.
	DefaultInputCapacity = 32
	// MaxEventCapacity caps the bus so a typo cannot allocate gigabytes.
	MaxEventCapacity = 1 << 20
)

// NormalizeEngineConfig applies defaults and validates the config.
func NormalizeEngineConfig(cfg EngineConfig) (EngineConfig, error) {
	if cfg.EventCapacity <= 0 {
		cfg.EventCapacity = DefaultEventCapacity
	}
	if cfg.InputCapacity <= 0 {
		cfg.InputCapacity = DefaultInputCapacity
	}
	if cfg.EventCapacity > MaxEventCapacity {
		return EngineConfig{}, errors.New("event capacity exceeds maximum")
	}
	if cfg.InputCapacity > cfg.EventCapacity {
		return EngineConfig{}, errors.New("input capacity must not exceed event capacity")
	}
	return cfg, nil
}
