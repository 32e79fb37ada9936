package core

import (
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// APIConfig points the client at the SACVPN backend.
type APIConfig struct {
	BaseURL string `yaml:"base_url"`
	// Timeout for API calls, e.g. "30s".
	Timeout string `yaml:"timeout,omitempty"`
}

// TimeoutOrDefault parses the timeout, defaulting to 30 seconds.
func (a APIConfig) TimeoutOrDefault() time.Duration {
	if a.Timeout != "" {
		if d, err := time.ParseDuration(a.Timeout); err == nil && d > 0 {
			return d
		}
	}
	return 30 * time.Second
}

// BackendConfig selects how the tunnel is brought up.
type BackendConfig struct {
	// Mode is "embedded" (userspace WireGuard, default) or "wg-quick"
	// (system WireGuard tools, requires privileges).
	Mode string `yaml:"mode,omitempty"`
	// Interface is the interface/tunnel name, default "sacvpn".
	Interface string `yaml:"interface,omitempty"`
}

// InterfaceOrDefault returns the configured interface name or "sacvpn".
func (b BackendConfig) InterfaceOrDefault() string {
	if b.Interface != "" {
		return b.Interface
	}
	return "sacvpn"
}

// StatsConfig controls the stats poller.
type StatsConfig struct {
	// Interval between counter reads, e.g. "1s".
	Interval string `yaml:"interval,omitempty"`
}

// IntervalOrDefault parses the poll interval, defaulting to 1 second.
func (s StatsConfig) IntervalOrDefault() time.Duration {
	if s.Interval != "" {
		if d, err := time.ParseDuration(s.Interval); err == nil && d > 0 {
			return d
		}
	}
	return time.Second
}

// GUIConfig holds GUI-specific settings.
type GUIConfig struct {
	StartMinimized bool `yaml:"start_minimized,omitempty"`
	Notifications  bool `yaml:"notifications"`
}

// Config is the top-level application configuration.
type Config struct {
	API        APIConfig     `yaml:"api,omitempty"`
	Backend    BackendConfig `yaml:"backend,omitempty"`
	Stats      StatsConfig   `yaml:"stats,omitempty"`
	DeviceName string        `yaml:"device_name,omitempty"`
	Logging    LogConfig     `yaml:"logging,omitempty"`
	GUI        GUIConfig     `yaml:"gui,omitempty"`
}

// ConfigManager handles loading and saving the configuration file.
type ConfigManager struct {
	mu       sync.RWMutex
	config   Config
	filePath string
}

// NewConfigManager creates a config manager that reads from the given file.
func NewConfigManager(filePath string) *ConfigManager {
	return &ConfigManager{filePath: filePath}
}

// defaultConfig returns the configuration used on first start.
func defaultConfig() Config {
	return Config{
		API: APIConfig{BaseURL: "https://api.sacvpn.com"},
		GUI: GUIConfig{Notifications: true},
	}
}

// Load reads and parses the configuration from disk.
// If the config file does not exist, it creates one with default values.
func (cm *ConfigManager) Load() error {
	data, err := os.ReadFile(cm.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			Log.Infof("Core", "Config %s not found, creating default config", cm.filePath)
			cm.mu.Lock()
			cm.config = defaultConfig()
			cm.mu.Unlock()
			if saveErr := cm.Save(); saveErr != nil {
				return fmt.Errorf("create default config: %w", saveErr)
			}
			return nil
		}
		return fmt.Errorf("read config %s: %w", cm.filePath, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = defaultConfig().API.BaseURL
	}

	cm.mu.Lock()
	cm.config = cfg
	cm.mu.Unlock()

	Log.Configure(cfg.Logging)
	return nil
}

// Save writes the current configuration to disk.
func (cm *ConfigManager) Save() error {
	cm.mu.RLock()
	data, err := yaml.Marshal(&cm.config)
	cm.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(cm.filePath, data, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", cm.filePath, err)
	}
	return nil
}

// Get returns a copy of the current configuration.
func (cm *ConfigManager) Get() Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// Set replaces the configuration (e.g. from the settings UI) and persists it.
func (cm *ConfigManager) Set(cfg Config) error {
	cm.mu.Lock()
	cm.config = cfg
	cm.mu.Unlock()

	Log.Configure(cfg.Logging)
	return cm.Save()
}
