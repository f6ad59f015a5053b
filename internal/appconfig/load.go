package appconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
	"pkt.systems/splix/internal/logx"
	"pkt.systems/splix/schema"
)

// Load reads configuration from the provided path. If path is empty, uses DefaultConfigPath.
// A missing file yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	// config_version has no default so IsSet can tell whether the file carries it.
	v.SetDefault("shell", cfg.Shell)
	v.SetDefault("engine.event_capacity", cfg.Engine.EventCapacity)
	v.SetDefault("engine.input_capacity", cfg.Engine.InputCapacity)
	v.SetDefault("logging.dir", cfg.Logging.Dir)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.buffer_lines", cfg.Logging.BufferLines)
	v.SetDefault("log_server.enabled", cfg.LogServer.Enabled)
	v.SetDefault("log_server.socket_path", cfg.LogServer.SocketPath)
	v.SetDefault("rpc.enabled", cfg.RPC.Enabled)
	v.SetDefault("rpc.socket_path", cfg.RPC.SocketPath)

	if err := v.ReadInConfig(); err != nil {
		if !isNotFound(err) {
			return Config{}, err
		}
	} else {
		if !v.IsSet("config_version") {
			return Config{}, fmt.Errorf("config_version is required; expected %d", CurrentConfigVersion)
		}
		if v.GetInt("config_version") != CurrentConfigVersion {
			return Config{}, fmt.Errorf("unsupported config_version %d; expected %d", v.GetInt("config_version"), CurrentConfigVersion)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	expandConfigEnv(&cfg)
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// viper reports a missing explicit config file as a plain fs error rather
// than ConfigFileNotFoundError.
func isNotFound(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
}

// Validate checks values that would otherwise fail later at startup.
func Validate(cfg Config) error {
	if _, err := schema.NormalizeEngineConfig(cfg.Engine.Schema()); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	if !logx.ValidLevel(cfg.Logging.Level) {
		return fmt.Errorf("unsupported logging.level %q", cfg.Logging.Level)
	}
	if cfg.Logging.BufferLines < 0 {
		return fmt.Errorf("logging.buffer_lines must not be negative")
	}
	if cfg.LogServer.Enabled && strings.TrimSpace(cfg.LogServer.SocketPath) == "" {
		return fmt.Errorf("log_server.socket_path is required when the log server is enabled")
	}
	if cfg.RPC.Enabled && strings.TrimSpace(cfg.RPC.SocketPath) == "" {
		return fmt.Errorf("rpc.socket_path is required when the rpc server is enabled")
	}
	return nil
}

func expandConfigEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.Shell = expandEnv(cfg.Shell)
	cfg.Logging.Dir = expandEnv(cfg.Logging.Dir)
	cfg.LogServer.SocketPath = expandEnv(cfg.LogServer.SocketPath)
	cfg.RPC.SocketPath = expandEnv(cfg.RPC.SocketPath)
}

func expandEnv(value string) string {
	if value == "" {
		return value
	}
	return os.Expand(value, func(key string) string {
		if key == "" {
			return ""
		}
		if val, ok := lookupEnv(key); ok {
			return val
		}
		return "$" + key
	})
}

func lookupEnv(key string) (string, bool) {
	if val, ok := os.LookupEnv(key); ok {
		return val, true
	}
	switch key {
	case "UID":
		return fmt.Sprintf("%d", os.Getuid()), true
	case "GID":
		return fmt.Sprintf("%d", os.Getgid()), true
	}
	return "", false
}

// WriteDefault writes the default config to the target path.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}

	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
