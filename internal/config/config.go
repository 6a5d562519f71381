package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/dshills/reviewdeck/internal/review"
)

// Config represents the reviewdeck configuration.
type Config struct {
	Sites          []review.Site     `toml:"sites"`
	Format         string            `toml:"format"`
	LogLevel       string            `toml:"log_level"`
	TimeoutSeconds int               `toml:"timeout_seconds"`
	Session        SessionConfig     `toml:"session"`
	Browser        BrowserConfig     `toml:"browser"`
	Permissions    PermissionsConfig `toml:"permissions"`
	Store          StoreConfig       `toml:"store"`
	Events         EventsConfig      `toml:"events"`
	Server         ServerConfig      `toml:"server"`
}

// SessionConfig controls persistence of login cookies between runs.
type SessionConfig struct {
	Enabled    bool   `toml:"enabled"`
	Dir        string `toml:"dir,omitempty"`
	TTLSeconds int    `toml:"ttl_seconds"`
}

// BrowserConfig controls the interactive login tab.
type BrowserConfig struct {
	Enabled        bool   `toml:"enabled"`
	ExecPath       string `toml:"exec_path,omitempty"`
	PollIntervalMs int    `toml:"poll_interval_ms"`
}

// PermissionsConfig holds the host origins the user granted access to.
type PermissionsConfig struct {
	Origins []string `toml:"origins"`
}

// StoreConfig selects an alternative site source.
type StoreConfig struct {
	// DatabaseURL, when set, makes sites come from PostgreSQL instead of
	// the sites list of this file.
	DatabaseURL string `toml:"database_url,omitempty"`
}

// EventsConfig configures the cycle event stream.
type EventsConfig struct {
	NATSURL string `toml:"nats_url,omitempty"`
}

// ServerConfig configures the local dashboard server.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// Formats lists the accepted output formats.
var Formats = []string{"text", "json", "markdown"}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Sites:          []review.Site{},
		Format:         "text",
		LogLevel:       "warn",
		TimeoutSeconds: 60,
		Session: SessionConfig{
			Enabled:    true,
			TTLSeconds: 14 * 24 * 3600,
		},
		Browser: BrowserConfig{
			Enabled:        true,
			PollIntervalMs: 100,
		},
		Permissions: PermissionsConfig{Origins: []string{}},
		Server:      ServerConfig{Addr: "127.0.0.1:8765"},
	}
}

// ConfigDir returns the platform-appropriate config directory for reviewdeck.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "reviewdeck"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "reviewdeck"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "reviewdeck"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "reviewdeck"), nil
	default:
		return filepath.Join(home, ".config", "reviewdeck"), nil
	}
}

// ConfigPath returns the full path to the config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// LoadFile returns the defaults overlaid with the config file. A missing
// file yields the defaults. Keys absent from the file keep their defaults.
func LoadFile() (Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return Config{}, err
	}
	return loadPath(path)
}

func loadPath(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("parsing config file: %w", err)
	}
	for i := range cfg.Sites {
		cfg.Sites[i] = cfg.Sites[i].Normalize()
	}
	if cfg.Sites == nil {
		cfg.Sites = []review.Site{}
	}
	return cfg, nil
}

// Save writes the config to the config file.
func Save(cfg Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return savePath(path, cfg)
}

func savePath(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return nil
}

// Init writes a default config file unless one exists. It returns the path
// and whether a file was created.
func Init() (string, bool, error) {
	path, err := ConfigPath()
	if err != nil {
		return "", false, err
	}
	if _, err := os.Stat(path); err == nil {
		return path, false, nil
	}
	if err := savePath(path, Default()); err != nil {
		return "", false, err
	}
	return path, true, nil
}

// Load builds the effective config by merging: defaults <- file <- env <- overrides.
// The overrides map comes from CLI flags (only non-zero values should be set).
func Load(overrides map[string]string) (Config, error) {
	cfg, err := LoadFile()
	if err != nil {
		return Config{}, err
	}
	if err := mergeEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := mergeOverrides(&cfg, overrides); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func mergeEnv(cfg *Config) error {
	if v := os.Getenv("REVIEWDECK_FORMAT"); v != "" {
		cfg.Format = v
	}
	if v := os.Getenv("REVIEWDECK_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("REVIEWDECK_TIMEOUT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("REVIEWDECK_TIMEOUT must be an integer: %w", err)
		}
		cfg.TimeoutSeconds = n
	}
	if v := os.Getenv("REVIEWDECK_DATABASE_URL"); v != "" {
		cfg.Store.DatabaseURL = v
	}
	if v := os.Getenv("REVIEWDECK_NATS_URL"); v != "" {
		cfg.Events.NATSURL = v
	}
	if v := os.Getenv("REVIEWDECK_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("REVIEWDECK_BROWSER"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("REVIEWDECK_BROWSER must be a boolean: %w", err)
		}
		cfg.Browser.Enabled = b
	}
	if v := os.Getenv("REVIEWDECK_CHROME_PATH"); v != "" {
		cfg.Browser.ExecPath = v
	}
	return nil
}

func mergeOverrides(cfg *Config, overrides map[string]string) error {
	if overrides == nil {
		return nil
	}
	if v, ok := overrides["format"]; ok && v != "" {
		cfg.Format = v
	}
	if v, ok := overrides["logLevel"]; ok && v != "" {
		cfg.LogLevel = v
	}
	if v, ok := overrides["timeout"]; ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("timeout must be an integer: %w", err)
		}
		cfg.TimeoutSeconds = n
	}
	if v, ok := overrides["addr"]; ok && v != "" {
		cfg.Server.Addr = v
	}
	if v, ok := overrides["browser"]; ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("browser must be a boolean: %w", err)
		}
		cfg.Browser.Enabled = b
	}
	return nil
}

// Keys lists the keys SetField accepts.
var Keys = []string{
	"format",
	"log_level",
	"timeout_seconds",
	"session.enabled",
	"session.dir",
	"session.ttl_seconds",
	"browser.enabled",
	"browser.exec_path",
	"browser.poll_interval_ms",
	"store.database_url",
	"events.nats_url",
	"server.addr",
}

// SetField sets a single config field by key name. Returns error if key is unknown.
func SetField(cfg *Config, key, value string) error {
	switch key {
	case "format":
		if !slices.Contains(Formats, value) {
			return fmt.Errorf("format must be one of %s", strings.Join(Formats, ", "))
		}
		cfg.Format = value
	case "log_level":
		cfg.LogLevel = value
	case "timeout_seconds":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("timeout_seconds must be an integer: %w", err)
		}
		cfg.TimeoutSeconds = n
	case "session.enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("session.enabled must be a boolean: %w", err)
		}
		cfg.Session.Enabled = b
	case "session.dir":
		cfg.Session.Dir = value
	case "session.ttl_seconds":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("session.ttl_seconds must be an integer: %w", err)
		}
		cfg.Session.TTLSeconds = n
	case "browser.enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("browser.enabled must be a boolean: %w", err)
		}
		cfg.Browser.Enabled = b
	case "browser.exec_path":
		cfg.Browser.ExecPath = value
	case "browser.poll_interval_ms":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("browser.poll_interval_ms must be a positive integer")
		}
		cfg.Browser.PollIntervalMs = n
	case "store.database_url":
		cfg.Store.DatabaseURL = value
	case "events.nats_url":
		cfg.Events.NATSURL = value
	case "server.addr":
		cfg.Server.Addr = value
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

// ValidateSite checks a site before it is added to the configuration.
func ValidateSite(site review.Site) error {
	if site.Label == "" {
		return errors.New("site label is required")
	}
	if !slices.Contains(review.KnownSiteTypes, site.Type) {
		return fmt.Errorf("unknown site type %q", site.Type)
	}
	if site.Type == review.SiteTypeDemo {
		return nil
	}
	u, err := url.Parse(site.URL)
	if err != nil {
		return fmt.Errorf("invalid site url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("site url must be an absolute http(s) url: %q", site.URL)
	}
	return nil
}

// AddSite normalizes, validates and appends a site. Labels are unique.
func AddSite(cfg *Config, site review.Site) error {
	site = site.Normalize()
	if err := ValidateSite(site); err != nil {
		return err
	}
	for _, s := range cfg.Sites {
		if s.Label == site.Label {
			return fmt.Errorf("site %q already exists", site.Label)
		}
	}
	cfg.Sites = append(cfg.Sites, site)
	return nil
}

// RemoveSite deletes the site with the given label.
func RemoveSite(cfg *Config, label string) error {
	for i, s := range cfg.Sites {
		if s.Label == label {
			cfg.Sites = slices.Delete(cfg.Sites, i, i+1)
			return nil
		}
	}
	return fmt.Errorf("no site labelled %q", label)
}
