package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config defines server configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	DB     DBConfig     `yaml:"db"`
	Log    LogConfig    `yaml:"log"`
	Auth   AuthConfig   `yaml:"auth"`
	Fields FieldsConfig `yaml:"fields"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// Transport selects how the MCP server is exposed: "http" or "stdio".
	Transport string `yaml:"transport"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type AuthConfig struct {
	Enabled bool `yaml:"enabled"`
	// DefaultScope is the organization scope used when auth is disabled
	// and in stdio mode.
	DefaultScope string `yaml:"default_scope"`
}

// FieldsConfig names the work item custom fields the services write to.
type FieldsConfig struct {
	Answers     string `yaml:"answers"`
	Assignments string `yaml:"assignments"`
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host:      "0.0.0.0",
			Port:      8080,
			Transport: "http",
		},
		DB: DBConfig{
			Path: "gatecheck.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Auth: AuthConfig{
			Enabled:      true,
			DefaultScope: "default",
		},
		Fields: FieldsConfig{
			Answers:     "Custom.AnswersField",
			Assignments: "Custom.RoleAssignmentsField",
		},
	}

	if path := os.Getenv("GATECHECK_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if host := os.Getenv("GATECHECK_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("GATECHECK_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid GATECHECK_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if transport := os.Getenv("GATECHECK_TRANSPORT"); transport != "" {
		cfg.Server.Transport = transport
	}
	if dbPath := os.Getenv("GATECHECK_DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if level := os.Getenv("GATECHECK_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if enabled := os.Getenv("GATECHECK_AUTH_ENABLED"); enabled != "" {
		parsed, err := strconv.ParseBool(enabled)
		if err != nil {
			return Config{}, fmt.Errorf("invalid GATECHECK_AUTH_ENABLED: %w", err)
		}
		cfg.Auth.Enabled = parsed
	}
	if scope := os.Getenv("GATECHECK_DEFAULT_SCOPE"); scope != "" {
		cfg.Auth.DefaultScope = scope
	}

	if cfg.Server.Transport != "http" && cfg.Server.Transport != "stdio" {
		return Config{}, fmt.Errorf("invalid transport %q: must be http or stdio", cfg.Server.Transport)
	}

	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
