// Package config loads the terminal client's settings: where the
// server lives and a few UI preferences. Everything has a localhost
// default, so the TUI runs with no config file at all.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	defaultHost     = "localhost"
	defaultHTTPPort = 8080
	defaultWSPath   = "/ws/courses"
	defaultUDPPort  = 4000
	defaultPageSize = 20
	defaultTheme    = "dracula"
)

// Config holds all TUI configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Protocol ProtocolConfig `yaml:"protocol"`
	UI       UIConfig       `yaml:"ui"`
}

// ServerConfig says where to reach the marketplace.
type ServerConfig struct {
	Host string     `yaml:"host"`
	HTTP HTTPConfig `yaml:"http"`
	WS   WSConfig   `yaml:"ws"`
	UDP  UDPConfig  `yaml:"udp"`
}

// HTTPConfig for the REST API. BaseURL overrides the derived URL when
// set, for setups behind a proxy.
type HTTPConfig struct {
	Port    int    `yaml:"port"`
	BaseURL string `yaml:"base_url"`
}

// WSConfig for the study room sockets. URL overrides derivation like
// HTTPConfig.BaseURL does.
type WSConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
	URL  string `yaml:"url"`
}

// UDPConfig for the announcement broadcast. The TUI binds the port
// locally, so only the port matters here.
type UDPConfig struct {
	Port int `yaml:"port"`
}

// ProtocolConfig toggles the optional protocol surfaces.
type ProtocolConfig struct {
	EnableUDP       bool `yaml:"enable_udp"`
	EnableWebSocket bool `yaml:"enable_websocket"`
}

// UIConfig for display preferences.
type UIConfig struct {
	Theme    string `yaml:"theme"`
	PageSize int    `yaml:"page_size"`
}

// Default returns the localhost configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: defaultHost,
			HTTP: HTTPConfig{Port: defaultHTTPPort},
			WS:   WSConfig{Port: defaultHTTPPort, Path: defaultWSPath},
			UDP:  UDPConfig{Port: defaultUDPPort},
		},
		Protocol: ProtocolConfig{
			EnableUDP:       true,
			EnableWebSocket: true,
		},
		UI: UIConfig{
			Theme:    defaultTheme,
			PageSize: defaultPageSize,
		},
	}
}

// Load reads the config file over the defaults, so values absent from
// the file keep their default. A missing or unreadable file is not an
// error, the TUI just runs against localhost.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = findConfigFile()
	}
	if configPath == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return Default(), nil
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.fillZeros()

	return cfg, nil
}

// fillZeros restores defaults a file may have blanked out explicitly.
func (c *Config) fillZeros() {
	if c.Server.Host == "" {
		c.Server.Host = defaultHost
	}
	if c.Server.HTTP.Port == 0 {
		c.Server.HTTP.Port = defaultHTTPPort
	}
	if c.Server.WS.Port == 0 {
		c.Server.WS.Port = c.Server.HTTP.Port
	}
	if c.Server.WS.Path == "" {
		c.Server.WS.Path = defaultWSPath
	}
	if c.Server.UDP.Port == 0 {
		c.Server.UDP.Port = defaultUDPPort
	}
	if c.UI.Theme == "" {
		c.UI.Theme = defaultTheme
	}
	if c.UI.PageSize <= 0 {
		c.UI.PageSize = defaultPageSize
	}
}

// schemes picks http/ws or their TLS variants. Public hosts are
// assumed to sit behind TLS.
func (c *Config) schemes() (string, string) {
	if c.Server.Host != defaultHost && c.Server.Host != "127.0.0.1" {
		return "https", "wss"
	}
	return "http", "ws"
}

// Save writes the configuration to file.
func (c *Config) Save(configPath string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// findConfigFile searches the standard locations.
func findConfigFile() string {
	locations := []string{
		"./coursehub-tui.yaml",
		"./config/tui.yaml",
		filepath.Join(os.Getenv("HOME"), ".config", "coursehub", "tui.yaml"),
		filepath.Join(os.Getenv("HOME"), ".coursehub-tui.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// GetHTTPBaseURL returns the REST API base URL, derived from host and
// port unless the file set one.
func (c *Config) GetHTTPBaseURL() string {
	if c.Server.HTTP.BaseURL != "" {
		return c.Server.HTTP.BaseURL
	}
	httpScheme, _ := c.schemes()
	return fmt.Sprintf("%s://%s:%d/api/v1", httpScheme, c.Server.Host, c.Server.HTTP.Port)
}

// GetWebSocketURL returns the study room socket URL, derived unless the
// file set one.
func (c *Config) GetWebSocketURL() string {
	if c.Server.WS.URL != "" {
		return c.Server.WS.URL
	}
	_, wsScheme := c.schemes()
	return fmt.Sprintf("%s://%s:%d%s", wsScheme, c.Server.Host, c.Server.WS.Port, c.Server.WS.Path)
}

// GetServerAddr returns host:port for display.
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.HTTP.Port)
}
