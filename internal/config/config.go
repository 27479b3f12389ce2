// Package config loads tattr configuration from defaults, an optional YAML
// file and TATTR_ prefixed environment variables, in that order of precedence
// (environment wins).
//
//	TATTR_DATABASE_URI=postgres://tattr@db/tattr
//	TATTR_LOGGING_LEVEL=debug
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "TATTR"

type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Server   ServerConfig   `mapstructure:"server"`
	Consul   ConsulConfig   `mapstructure:"consul"`
	Agent    AgentConfig    `mapstructure:"agent"`
	Client   ClientConfig   `mapstructure:"client"`
}

type DatabaseConfig struct {
	// URI selects the backend: sqlite://path, file:path, a bare path, or postgres://...
	URI string `mapstructure:"uri"`

	// Timeout bounds each unit of work against the store.
	Timeout time.Duration `mapstructure:"timeout"`

	// MaxOpenConns is ignored for SQLite, which always uses a single connection.
	MaxOpenConns int `mapstructure:"max_open_conns"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ServerConfig struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	GRPCAddr        string        `mapstructure:"grpc_addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// ConsulConfig controls service registration. An empty Address disables it.
type ConsulConfig struct {
	Address     string `mapstructure:"address"`
	ServiceName string `mapstructure:"service_name"`

	// AdvertiseAddress is the address registered for tattrd. Defaults to the
	// first non-loopback IPv4 address.
	AdvertiseAddress string `mapstructure:"advertise_address"`
}

type AgentConfig struct {
	// Server is the tattrd gRPC address; when empty the agent asks Consul.
	Server   string        `mapstructure:"server"`
	Hostname string        `mapstructure:"hostname"`
	Interval time.Duration `mapstructure:"interval"`
	Tags     []string      `mapstructure:"tags"`
}

// ClientConfig points the tattr CLI at a running tattrd instead of the
// database. Server is the base URL of its HTTP API.
type ClientConfig struct {
	Server  string        `mapstructure:"server"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Load reads configuration. If cfgFile is empty, tattr.yaml is searched for
// in the working directory, $HOME/.tattr and /etc/tattr; a missing file is
// not an error.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("tattr")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.tattr")
		v.AddConfigPath("/etc/tattr")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isFileNotFoundError(err) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.uri", "sqlite://tattr.db")
	v.SetDefault("database.timeout", "10s")
	v.SetDefault("database.max_open_conns", 10)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("server.grpc_addr", ":9090")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("consul.address", "")
	v.SetDefault("consul.service_name", "tattrd")
	v.SetDefault("consul.advertise_address", "")

	v.SetDefault("agent.server", "")
	v.SetDefault("agent.hostname", "")
	v.SetDefault("agent.interval", "60s")
	v.SetDefault("agent.tags", []string{})

	v.SetDefault("client.server", "")
	v.SetDefault("client.timeout", "30s")
}

func (c *Config) Validate() error {
	if c.Database.URI == "" {
		return fmt.Errorf("database uri is required")
	}
	if c.Database.Timeout <= 0 {
		return fmt.Errorf("database timeout must be positive, got %s", c.Database.Timeout)
	}
	if c.Agent.Interval <= 0 {
		return fmt.Errorf("agent interval must be positive, got %s", c.Agent.Interval)
	}
	if c.Client.Timeout <= 0 {
		return fmt.Errorf("client timeout must be positive, got %s", c.Client.Timeout)
	}
	if c.Consul.Address != "" && c.Consul.ServiceName == "" {
		return fmt.Errorf("consul service name is required when consul is enabled")
	}
	return nil
}

func isFileNotFoundError(err error) bool {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return errors.Is(pathErr, os.ErrNotExist)
	}
	return false
}
