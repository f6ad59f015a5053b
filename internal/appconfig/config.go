package appconfig

import (
	"os"
	"path/filepath"

	"pkt.systems/splix/internal/logserver"
	"pkt.systems/splix/internal/rpc"
	"pkt.systems/splix/schema"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int             `mapstructure:"config_version" yaml:"config_version"`
	Shell         string          `mapstructure:"shell" yaml:"shell"`
	Engine        EngineConfig    `mapstructure:"engine" yaml:"engine"`
	Logging       LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	LogServer     LogServerConfig `mapstructure:"log_server" yaml:"log_server"`
	RPC           RPCConfig       `mapstructure:"rpc" yaml:"rpc"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// EngineConfig sizes the multiplexer queues.
type EngineConfig struct {
	EventCapacity int `mapstructure:"event_capacity" yaml:"event_capacity"`
	InputCapacity int `mapstructure:"input_capacity" yaml:"input_capacity"`
}

// Schema converts the engine section into the engine's own config type.
func (c EngineConfig) Schema() schema.EngineConfig {
	return schema.EngineConfig{EventCapacity: c.EventCapacity, InputCapacity: c.InputCapacity}
}

// LoggingConfig controls where the runtime log goes while the screen is taken.
type LoggingConfig struct {
	Dir         string `mapstructure:"dir" yaml:"dir"`
	Level       string `mapstructure:"level" yaml:"level"`
	BufferLines int    `mapstructure:"buffer_lines" yaml:"buffer_lines"`
}

// LogServerConfig configures the log forwarding socket.
type LogServerConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	SocketPath string `mapstructure:"socket_path" yaml:"socket_path"`
}

// RPCConfig configures the gRPC socket.
type RPCConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	SocketPath string `mapstructure:"socket_path" yaml:"socket_path"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ConfigVersion: CurrentConfigVersion,
		Shell:         "",
		Engine: EngineConfig{
			EventCapacity: schema.DefaultEventCapacity,
			InputCapacity: schema.DefaultInputCapacity,
		},
		Logging: LoggingConfig{
			Dir:         "logs",
			Level:       "info",
			BufferLines: logserver.DefaultHistoryLines,
		},
		LogServer: LogServerConfig{
			Enabled:    true,
			SocketPath: logserver.DefaultSocketPath,
		},
		RPC: RPCConfig{
			Enabled:    true,
			SocketPath: rpc.DefaultSocketPath,
		},
	}
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".splix", "config.yaml"), nil
}
