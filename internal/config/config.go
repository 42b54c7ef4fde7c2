package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// SceneConfig defines one timeline column. Order in the config file is
// display order.
type SceneConfig struct {
	Name string `yaml:"name" json:"name"`
}

// EventConfig is one scheduled event as written in the config file.
// StartTime/EndTime are absolute timestamps in any of the accepted layouts;
// EndTime may be empty (60-minute default duration applies).
type EventConfig struct {
	ID           string `yaml:"id,omitempty" json:"id,omitempty"`
	Title        string `yaml:"title" json:"title"`
	StartTime    string `yaml:"start_time" json:"start_time"`
	EndTime      string `yaml:"end_time,omitempty" json:"end_time,omitempty"`
	SceneID      string `yaml:"scene_id" json:"scene_id"`
	RiskLevel    string `yaml:"risk_level,omitempty" json:"risk_level,omitempty"`
	Description  string `yaml:"description,omitempty" json:"description,omitempty"`
	Remarks      string `yaml:"remarks,omitempty" json:"remarks,omitempty"`
	CrowdProfile string `yaml:"crowd_profile,omitempty" json:"crowd_profile,omitempty"`
	Notes        string `yaml:"notes,omitempty" json:"notes,omitempty"`
}

// ICSConfig describes a single ICS subscription source used as an
// additional event feed. Events from the feed take their scene from
// LOCATION unless SceneID pins them to one column.
type ICSConfig struct {
	URL     string `yaml:"url" json:"url"`
	ID      string `yaml:"id" json:"id"`
	Name    string `yaml:"name" json:"name"`
	SceneID string `yaml:"scene_id,omitempty" json:"scene_id,omitempty"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone used as the display zone.
	Timezone string `yaml:"timezone" json:"timezone"`

	// PixelsPerHour is the vertical scale factor for the hour grid.
	PixelsPerHour float64 `yaml:"pixels_per_hour" json:"pixels_per_hour"`

	// DayStartTime / DayEndTime are optional "HH:MM" day boundaries.
	// When both are set they define the visible window; an end earlier
	// than the start means the day crosses midnight. When absent the
	// window is derived from the event data.
	DayStartTime string `yaml:"day_start_time,omitempty" json:"day_start_time,omitempty"`
	DayEndTime   string `yaml:"day_end_time,omitempty" json:"day_end_time,omitempty"`

	// TimeFormat is a Go time layout for hour labels and time ranges.
	// It is passed through to formatting, never interpreted by layout.
	TimeFormat string `yaml:"time_format" json:"time_format"`

	// ViewportWidth is the logical pixel width the renderer and the
	// preview capture assume. Description lines only appear on wide
	// viewports.
	ViewportWidth int `yaml:"viewport_width" json:"viewport_width"`

	// RefreshCron is a cron-style schedule (e.g. "*/15 * * * *") for
	// re-fetching ICS feeds and re-capturing the preview.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// DataDir holds the ICS disk cache and the rendered preview PNG.
	DataDir string `yaml:"data_dir" json:"data_dir"`

	// Scenes are the timeline columns, in display order.
	Scenes []SceneConfig `yaml:"scenes" json:"scenes"`

	// Events are the statically configured events.
	Events []EventConfig `yaml:"events" json:"events"`

	// ICS is the list of subscribed ICS sources.
	ICS []ICSConfig `yaml:"ics" json:"ics"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:        "127.0.0.1:8080",
		Timezone:      "Europe/Copenhagen",
		PixelsPerHour: 100,
		TimeFormat:    "15:04",
		ViewportWidth: 1024,
		RefreshCron:   "*/15 * * * *",
		DataDir:       "/var/lib/festcal",
		Scenes:        []SceneConfig{},
		Events:        []EventConfig{},
		ICS:           []ICSConfig{},
		BasicAuth:     nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.Timezone == "" {
		c.Timezone = "Europe/Copenhagen"
	}
	if c.PixelsPerHour <= 0 {
		c.PixelsPerHour = 100
	}
	if c.TimeFormat == "" {
		c.TimeFormat = "15:04"
	}
	if c.ViewportWidth <= 0 {
		c.ViewportWidth = 1024
	}
	if c.RefreshCron == "" {
		c.RefreshCron = "*/15 * * * *"
	}
	if c.DataDir == "" {
		c.DataDir = "/var/lib/festcal"
	}
	if c.Scenes == nil {
		c.Scenes = []SceneConfig{}
	}
	if c.Events == nil {
		c.Events = []EventConfig{}
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	// Atomic write: write to temp file in same directory then rename.
	tmp, err := os.CreateTemp(dir, ".festcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	return nil
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
