// Package config handles configuration file loading and parsing.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/pelletier/go-toml/v2"

	"github.com/jmylchreest/applist/internal/adapter/output"
	"github.com/jmylchreest/applist/internal/model"
)

// Default configuration values.
const (
	DefaultMaxTitleLen = 20
	DefaultDmenuTmpl   = "{{.AppID}} | {{.Title}}"
	MaxTitleLenLimit   = 512
)

// Config represents the applist configuration.
type Config struct {
	AppList AppListConfig `toml:"applist"`
	Display DisplayConfig `toml:"display"`
	Daemon  DaemonConfig  `toml:"daemon"`
}

// AppListConfig holds the dock state shared with the applet.
type AppListConfig struct {
	FilterTopLevels  *model.FilterMode `toml:"filter_top_levels,omitempty"` // nil = ActiveWorkspace
	Favorites        []string          `toml:"favorites"`
	EnableDragSource bool              `toml:"enable_drag_source"`
	UngroupedWindows bool              `toml:"ungrouped_windows"` // Show each window individually
}

// DisplayConfig holds presentation settings that affect the item list.
type DisplayConfig struct {
	MaxTitleLen  int    `toml:"max_title_len"` // Ungrouped title limit (0 = no limit)
	BoundOutput  string `toml:"bound_output"`  // Output for ConfiguredOutput filtering
	DmenuTmpl    string `toml:"dmenu_template"`
	ClipboardCmd string `toml:"clipboard_command"` // Empty = auto-detect
}

// DaemonConfig holds applistd settings.
type DaemonConfig struct {
	Journal     bool   `toml:"journal"`      // Record received events to disk
	JournalPath string `toml:"journal_path"` // Empty = default data path
	WatchConfig bool   `toml:"watch_config"` // Reload on external edits
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		AppList: AppListConfig{
			FilterTopLevels:  nil,
			Favorites:        []string{},
			EnableDragSource: true,
			UngroupedWindows: false,
		},
		Display: DisplayConfig{
			MaxTitleLen: DefaultMaxTitleLen,
			DmenuTmpl:   DefaultDmenuTmpl,
		},
		Daemon: DaemonConfig{
			Journal:     false,
			WatchConfig: true,
		},
	}
}

// ConfigPath returns the path to the config file.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config.
func ConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "applist", "config.toml")
}

// DataPath returns the path to the data directory.
// Uses XDG_DATA_HOME if set, otherwise ~/.local/share.
func DataPath() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "applist")
}

// JournalPath returns the path to the event journal file.
func (c *Config) JournalPath() string {
	if c.Daemon.JournalPath != "" {
		return c.Daemon.JournalPath
	}
	return filepath.Join(DataPath(), "events.jsonl")
}

// LoadConfig loads configuration from the specified path.
// If path is empty, uses the default config path.
// Returns default config if file doesn't exist.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	return ParseConfig(data)
}

// ParseConfig decodes and validates TOML config data over the defaults.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the specified path atomically.
// Creates parent directories if needed.
func (c *Config) Save(path string) error {
	_, err := c.save(path)
	return err
}

// save writes the file and returns the bytes written.
func (c *Config) save(path string) ([]byte, error) {
	if path == "" {
		path = ConfigPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write atomically via temp file
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write config file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return nil, err
	}
	return data, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Display.MaxTitleLen < 0 || c.Display.MaxTitleLen > MaxTitleLenLimit {
		return fmt.Errorf("max_title_len must be between 0 and %d, got %d", MaxTitleLenLimit, c.Display.MaxTitleLen)
	}
	if c.Display.DmenuTmpl != "" {
		if _, err := output.ParseTemplate(c.Display.DmenuTmpl); err != nil {
			return fmt.Errorf("invalid dmenu_template: %w", err)
		}
	}
	return nil
}

// FilterMode returns the configured filter mode, defaulting to
// ActiveWorkspace when unset.
func (a *AppListConfig) FilterMode() model.FilterMode {
	if a.FilterTopLevels == nil {
		return model.FilterActiveWorkspace
	}
	return *a.FilterTopLevels
}

// SetFilterMode sets the filter mode explicitly.
func (a *AppListConfig) SetFilterMode(mode model.FilterMode) {
	a.FilterTopLevels = &mode
}

// AddPinned appends id to favorites if absent. Returns whether it changed.
func (a *AppListConfig) AddPinned(id string) bool {
	if id == "" || slices.Contains(a.Favorites, id) {
		return false
	}
	a.Favorites = append(a.Favorites, id)
	return true
}

// RemovePinned removes id from favorites. Returns whether it changed.
func (a *AppListConfig) RemovePinned(id string) bool {
	idx := slices.Index(a.Favorites, id)
	if idx < 0 {
		return false
	}
	a.Favorites = slices.Delete(a.Favorites, idx, idx+1)
	return true
}

// UpdatePinned replaces favorites. Returns whether it changed.
func (a *AppListConfig) UpdatePinned(ids []string) bool {
	if slices.Equal(a.Favorites, ids) {
		return false
	}
	a.Favorites = slices.Clone(ids)
	return true
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	path := DataPath()
	if path == "" {
		return errors.New("unable to determine data directory")
	}
	return os.MkdirAll(path, 0755)
}
