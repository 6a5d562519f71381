package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dshills/reviewdeck/internal/review"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Format != "text" {
		t.Errorf("Default format = %q, want %q", cfg.Format, "text")
	}
	if cfg.TimeoutSeconds != 60 {
		t.Errorf("Default timeout = %d, want 60", cfg.TimeoutSeconds)
	}
	if !cfg.Session.Enabled {
		t.Error("Default session persistence should be enabled")
	}
	if cfg.Browser.PollIntervalMs != 100 {
		t.Errorf("Default poll interval = %d, want 100", cfg.Browser.PollIntervalMs)
	}
	if cfg.Sites == nil || len(cfg.Sites) != 0 {
		t.Errorf("Default sites = %v, want empty", cfg.Sites)
	}
}

func TestMergeEnv(t *testing.T) {
	t.Setenv("REVIEWDECK_FORMAT", "json")
	t.Setenv("REVIEWDECK_LOG_LEVEL", "debug")
	t.Setenv("REVIEWDECK_TIMEOUT", "15")
	t.Setenv("REVIEWDECK_DATABASE_URL", "postgres://localhost/reviewdeck")
	t.Setenv("REVIEWDECK_NATS_URL", "nats://localhost:4222")
	t.Setenv("REVIEWDECK_BROWSER", "false")

	cfg := Default()
	if err := mergeEnv(&cfg); err != nil {
		t.Fatalf("mergeEnv error: %v", err)
	}

	if cfg.Format != "json" {
		t.Errorf("Format = %q, want %q", cfg.Format, "json")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
	if cfg.TimeoutSeconds != 15 {
		t.Errorf("TimeoutSeconds = %d, want 15", cfg.TimeoutSeconds)
	}
	if cfg.Store.DatabaseURL != "postgres://localhost/reviewdeck" {
		t.Errorf("DatabaseURL = %q", cfg.Store.DatabaseURL)
	}
	if cfg.Events.NATSURL != "nats://localhost:4222" {
		t.Errorf("NATSURL = %q", cfg.Events.NATSURL)
	}
	if cfg.Browser.Enabled {
		t.Error("Browser should be disabled by env")
	}
}

func TestMergeEnv_InvalidTimeout(t *testing.T) {
	t.Setenv("REVIEWDECK_TIMEOUT", "soon")
	cfg := Default()
	if err := mergeEnv(&cfg); err == nil {
		t.Error("expected error for non-integer timeout")
	}
}

func TestMergeOverrides(t *testing.T) {
	cfg := Default()
	err := mergeOverrides(&cfg, map[string]string{
		"format":  "markdown",
		"timeout": "5",
		"addr":    ":9000",
		"browser": "false",
	})
	if err != nil {
		t.Fatalf("mergeOverrides error: %v", err)
	}
	if cfg.Format != "markdown" {
		t.Errorf("Format = %q, want %q", cfg.Format, "markdown")
	}
	if cfg.TimeoutSeconds != 5 {
		t.Errorf("TimeoutSeconds = %d, want 5", cfg.TimeoutSeconds)
	}
	if cfg.Server.Addr != ":9000" {
		t.Errorf("Addr = %q", cfg.Server.Addr)
	}
	if cfg.Browser.Enabled {
		t.Error("Browser should be disabled by override")
	}
}

func TestMergeOverrides_Empty(t *testing.T) {
	cfg := Default()
	if err := mergeOverrides(&cfg, map[string]string{"format": ""}); err != nil {
		t.Fatalf("mergeOverrides error: %v", err)
	}
	if cfg.Format != "text" {
		t.Errorf("empty override should not change format, got %q", cfg.Format)
	}
	if err := mergeOverrides(&cfg, nil); err != nil {
		t.Fatalf("mergeOverrides(nil) error: %v", err)
	}
}

func TestLoadPath_Missing(t *testing.T) {
	cfg, err := loadPath(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("loadPath error: %v", err)
	}
	if cfg.Format != "text" {
		t.Errorf("missing file should yield defaults, got format %q", cfg.Format)
	}
}

func TestLoadPath_PartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
format = "json"

[[sites]]
label = "chromium"
url = "https://chromium-review.googlesource.com/"
type = "Gerrit"

[session]
enabled = false

[permissions]
origins = ["https://chromium-review.googlesource.com/"]
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadPath(path)
	if err != nil {
		t.Fatalf("loadPath error: %v", err)
	}
	if cfg.Format != "json" {
		t.Errorf("Format = %q, want json", cfg.Format)
	}
	if cfg.TimeoutSeconds != 60 {
		t.Errorf("unset key lost its default: timeout = %d", cfg.TimeoutSeconds)
	}
	if cfg.Session.Enabled {
		t.Error("explicit false in file should disable sessions")
	}
	if cfg.Session.TTLSeconds != Default().Session.TTLSeconds {
		t.Errorf("TTLSeconds = %d, want default", cfg.Session.TTLSeconds)
	}
	want := review.Site{Label: "chromium", URL: "https://chromium-review.googlesource.com", Type: review.SiteTypeGerrit}
	if len(cfg.Sites) != 1 || cfg.Sites[0] != want {
		t.Errorf("Sites = %+v, want normalized %+v", cfg.Sites, want)
	}
	if len(cfg.Permissions.Origins) != 1 {
		t.Errorf("Origins = %v", cfg.Permissions.Origins)
	}
}

func TestLoadPath_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("format = [unterminated"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := loadPath(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestSaveAndLoad(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg := Default()
	if err := AddSite(&cfg, review.Site{Label: "demo", Type: review.SiteTypeDemo}); err != nil {
		t.Fatalf("AddSite error: %v", err)
	}
	cfg.Permissions.Origins = []string{"https://a.example.com/"}
	if err := Save(cfg); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	got, err := LoadFile()
	if err != nil {
		t.Fatalf("LoadFile error: %v", err)
	}
	if len(got.Sites) != 1 || got.Sites[0].Label != "demo" {
		t.Errorf("Sites = %+v", got.Sites)
	}
	if len(got.Permissions.Origins) != 1 {
		t.Errorf("Origins = %v", got.Permissions.Origins)
	}
}

func TestInit(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	path, created, err := Init()
	if err != nil {
		t.Fatalf("Init error: %v", err)
	}
	if !created {
		t.Error("first Init should create the file")
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file missing: %v", err)
	}

	_, created, err = Init()
	if err != nil {
		t.Fatalf("second Init error: %v", err)
	}
	if created {
		t.Error("second Init should not overwrite the file")
	}
}

func TestSetField(t *testing.T) {
	cfg := Default()
	tests := []struct {
		key     string
		value   string
		wantErr bool
	}{
		{"format", "json", false},
		{"format", "sarif", true},
		{"log_level", "debug", false},
		{"timeout_seconds", "30", false},
		{"timeout_seconds", "abc", true},
		{"session.enabled", "false", false},
		{"session.enabled", "maybe", true},
		{"session.ttl_seconds", "60", false},
		{"browser.poll_interval_ms", "0", true},
		{"browser.poll_interval_ms", "250", false},
		{"store.database_url", "postgres://x", false},
		{"events.nats_url", "nats://x", false},
		{"server.addr", ":1", false},
		{"unknown", "value", true},
	}
	for _, tt := range tests {
		err := SetField(&cfg, tt.key, tt.value)
		if tt.wantErr && err == nil {
			t.Errorf("SetField(%q, %q) expected error", tt.key, tt.value)
		}
		if !tt.wantErr && err != nil {
			t.Errorf("SetField(%q, %q) unexpected error: %v", tt.key, tt.value, err)
		}
	}
	if cfg.Format != "json" || cfg.TimeoutSeconds != 30 || cfg.Session.Enabled || cfg.Browser.PollIntervalMs != 250 {
		t.Errorf("fields not applied: %+v", cfg)
	}
}

func TestAddSite(t *testing.T) {
	cfg := Default()
	if err := AddSite(&cfg, review.Site{Label: " g ", URL: "https://g.example.com/", Type: "gerrit"}); err != nil {
		t.Fatalf("AddSite error: %v", err)
	}
	if cfg.Sites[0].URL != "https://g.example.com" || cfg.Sites[0].Label != "g" {
		t.Errorf("site not normalized: %+v", cfg.Sites[0])
	}

	bad := []review.Site{
		{Label: "g", URL: "https://other.example.com", Type: "gerrit"},
		{Label: "", URL: "https://x.example.com", Type: "gerrit"},
		{Label: "p", URL: "https://x.example.com", Type: "phabricator"},
		{Label: "r", URL: "codereview.example.com", Type: "rietveld"},
		{Label: "f", URL: "ftp://x.example.com", Type: "rietveld"},
	}
	for _, s := range bad {
		if err := AddSite(&cfg, s); err == nil {
			t.Errorf("AddSite(%+v) expected error", s)
		}
	}
	if len(cfg.Sites) != 1 {
		t.Errorf("Sites = %d, want 1", len(cfg.Sites))
	}
}

func TestRemoveSite(t *testing.T) {
	cfg := Default()
	cfg.Sites = []review.Site{{Label: "a"}, {Label: "b"}, {Label: "c"}}
	if err := RemoveSite(&cfg, "b"); err != nil {
		t.Fatalf("RemoveSite error: %v", err)
	}
	if len(cfg.Sites) != 2 || cfg.Sites[1].Label != "c" {
		t.Errorf("Sites = %+v", cfg.Sites)
	}
	if err := RemoveSite(&cfg, "b"); err == nil {
		t.Error("expected error removing missing site")
	}
}

func TestPresets(t *testing.T) {
	for _, p := range Presets {
		if err := ValidateSite(p.Site); err != nil {
			t.Errorf("preset %s is invalid: %v", p.Name, err)
		}
		if p.Site != p.Site.Normalize() {
			t.Errorf("preset %s is not normalized", p.Name)
		}
	}

	p, ok := PresetByLabel("android-aosp")
	if !ok {
		t.Fatal("android-aosp preset not found")
	}
	if p.Site.URL != "https://android-review.googlesource.com" {
		t.Errorf("android-aosp url = %q", p.Site.URL)
	}
	if _, ok := PresetByLabel("nope"); ok {
		t.Error("unknown preset should not be found")
	}
}
