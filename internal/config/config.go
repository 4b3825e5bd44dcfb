package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/harbor-chat/harbor/internal/servers"
)

// Config holds the application configuration
type Config struct {
	Theme                  string             `toml:"theme"`
	DataDir                string             `toml:"data_dir"`
	EnableServerManagement bool               `toml:"enable_server_management"`
	Servers                []PredefinedServer `toml:"servers"`
}

// PredefinedServer is a server pinned by configuration. It cannot be edited
// or removed from inside the app.
type PredefinedServer struct {
	Name string `toml:"name"`
	URL  string `toml:"url"`
}

// DefaultConfig returns the default application configuration
func DefaultConfig() *Config {
	return &Config{
		Theme:                  "dracula",
		DataDir:                os.ExpandEnv("$HOME/.harbor"),
		EnableServerManagement: true,
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return os.ExpandEnv("$HOME/.harbor/harbor.toml")
}

// Load reads a TOML config file into config.
func Load(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := toml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// Save writes the config back out as TOML, creating the data directory if
// needed.
func Save(path string, config *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DatabasePath returns the location of the server database inside the data
// directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "harbor.db")
}

// PredefinedServers builds registry entries for the configured servers.
// Entries with invalid URLs are skipped with an error.
func (c *Config) PredefinedServers() ([]*servers.Server, error) {
	var out []*servers.Server
	for _, p := range c.Servers {
		srv, err := servers.NewServer(p.Name, p.URL, true)
		if err != nil {
			return nil, fmt.Errorf("predefined server %q: %w", p.Name, err)
		}
		out = append(out, srv)
	}
	return out, nil
}
