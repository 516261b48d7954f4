// Package config loads the purgedom YAML configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level purgedom configuration.
type Config struct {
	Browser       BrowserConfig `yaml:"browser"`
	Store         StoreConfig   `yaml:"store"`
	Listen        string        `yaml:"listen"`
	FrameInterval time.Duration `yaml:"frame_interval"`
	MCP           MCPConfig     `yaml:"mcp"`
	Pages         []PageConfig  `yaml:"pages"`
}

// MCPConfig exposes the command tools over MCP.
type MCPConfig struct {
	HTTPPath string `yaml:"http_path"` // streamable HTTP endpoint on Listen; "-" disables
	QUICAddr string `yaml:"quic_addr"` // empty = no QUIC listener
	TLSCert  string `yaml:"tls_cert"`  // empty = self-signed
	TLSKey   string `yaml:"tls_key"`
}

// BrowserConfig controls Chrome.
type BrowserConfig struct {
	Remote           string   `yaml:"remote"`
	Display          string   `yaml:"display"` // window | headless | xvfb
	XvfbDisplay      string   `yaml:"xvfb_display"`
	ResourceBlocking []string `yaml:"resource_blocking"`
}

// StoreConfig locates the selector database.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// PageConfig is a page opened at startup.
type PageConfig struct {
	ID  string `yaml:"id"`
	URL string `yaml:"url"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var c Config
	c.applyDefaults()
	return &c
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration and applies defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Browser.Display == "" {
		c.Browser.Display = "window"
	}
	if c.Browser.XvfbDisplay == "" {
		c.Browser.XvfbDisplay = ":99"
	}
	if c.Store.Path == "" {
		c.Store.Path = "purgedom.db"
	}
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8087"
	}
	if c.MCP.HTTPPath == "" {
		c.MCP.HTTPPath = "/mcp"
	}
	if c.FrameInterval <= 0 {
		c.FrameInterval = 16 * time.Millisecond
	}
	for i := range c.Pages {
		if c.Pages[i].ID == "" {
			c.Pages[i].ID = fmt.Sprintf("page-%d", i+1)
		}
	}
}

func (c *Config) validate() error {
	if (c.MCP.TLSCert == "") != (c.MCP.TLSKey == "") {
		return fmt.Errorf("config: mcp tls_cert and tls_key go together")
	}
	seen := make(map[string]bool, len(c.Pages))
	for _, p := range c.Pages {
		if p.URL == "" {
			return fmt.Errorf("config: page %q has no url", p.ID)
		}
		if err := ValidateID(p.ID); err != nil {
			return err
		}
		if seen[p.ID] {
			return fmt.Errorf("config: duplicate page id %q", p.ID)
		}
		seen[p.ID] = true
	}
	return nil
}

// ValidateID accepts page IDs that are safe as a URL path segment: up to
// 128 letters, digits, underscores, hyphens and dots.
func ValidateID(id string) error {
	if id == "" || len(id) > 128 {
		return fmt.Errorf("config: page id %q must be 1 to 128 characters", id)
	}
	for _, r := range id {
		ok := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '_' || r == '-' || r == '.'
		if !ok {
			return fmt.Errorf("config: invalid character %q in page id %q", r, id)
		}
	}
	return nil
}
