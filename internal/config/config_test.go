package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "sqlite://tattr.db", cfg.Database.URI)
	assert.Equal(t, 10*time.Second, cfg.Database.Timeout)
	assert.Equal(t, 10, cfg.Database.MaxOpenConns)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, ":8080", cfg.Server.HTTPAddr)
	assert.Equal(t, ":9090", cfg.Server.GRPCAddr)
	assert.Equal(t, "", cfg.Consul.Address)
	assert.Equal(t, "tattrd", cfg.Consul.ServiceName)
	assert.Equal(t, 60*time.Second, cfg.Agent.Interval)
	assert.Empty(t, cfg.Agent.Tags)
	assert.Equal(t, "", cfg.Agent.Hostname)
	assert.Equal(t, "", cfg.Client.Server)
	assert.Equal(t, 30*time.Second, cfg.Client.Timeout)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tattr.yaml")
	content := `
database:
  uri: postgres://tattr@localhost/tattr
  timeout: 3s
logging:
  level: debug
  format: json
agent:
  interval: 15s
  tags: [web, prod]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://tattr@localhost/tattr", cfg.Database.URI)
	assert.Equal(t, 3*time.Second, cfg.Database.Timeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 15*time.Second, cfg.Agent.Interval)
	assert.Equal(t, []string{"web", "prod"}, cfg.Agent.Tags)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tattr.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database:\n  uri: sqlite://file.db\n"), 0o600))

	t.Setenv("TATTR_DATABASE_URI", "sqlite://env.db")
	t.Setenv("TATTR_CONSUL_ADDRESS", "127.0.0.1:8500")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sqlite://env.db", cfg.Database.URI)
	assert.Equal(t, "127.0.0.1:8500", cfg.Consul.Address)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tattr.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database: [unclosed"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Database: DatabaseConfig{URI: "sqlite://x.db", Timeout: time.Second},
			Consul:   ConsulConfig{ServiceName: "tattrd"},
			Agent:    AgentConfig{Interval: time.Minute},
			Client:   ClientConfig{Timeout: time.Second},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"empty uri", func(c *Config) { c.Database.URI = "" }, true},
		{"zero timeout", func(c *Config) { c.Database.Timeout = 0 }, true},
		{"negative interval", func(c *Config) { c.Agent.Interval = -time.Second }, true},
		{"zero client timeout", func(c *Config) { c.Client.Timeout = 0 }, true},
		{"consul without service", func(c *Config) {
			c.Consul.Address = "localhost:8500"
			c.Consul.ServiceName = ""
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
