package config

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		ReportsCollection:   "reports",
		PresenceCollection:  "user_presence",
		UsersCollection:     "users",
		DefaultRadiusMeters: 5000,
		TriggerMode:         TriggerModeListener,
		Alert:               DefaultAlertConfig(),
	}
}

func TestLoadConfigFile_AlertBlock(t *testing.T) {
	cfg := validConfig()

	yamlText := `
alert:
  title: "Wildfire nearby"
  body_template: "{{.Description}} ({{.RadiusKm}} km)"
  color: "#CC0000"
`
	if err := LoadConfigFile(strings.NewReader(yamlText), cfg); err != nil {
		t.Fatalf("LoadConfigFile() error = %v", err)
	}

	if cfg.Alert.Title != "Wildfire nearby" {
		t.Errorf("Title = %q", cfg.Alert.Title)
	}
	if cfg.Alert.Color != "#CC0000" {
		t.Errorf("Color = %q", cfg.Alert.Color)
	}
	if cfg.Alert.ChannelID != "fire_alerts" || cfg.Alert.Sound != "default" {
		t.Errorf("unset appearance fields lost their defaults: %+v", cfg.Alert.Appearance)
	}
	if cfg.ReportsCollection != "reports" {
		t.Errorf("ReportsCollection = %q, want untouched", cfg.ReportsCollection)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadConfigFile_Empty(t *testing.T) {
	cfg := validConfig()
	if err := LoadConfigFile(strings.NewReader(""), cfg); err != nil {
		t.Fatalf("LoadConfigFile() error = %v", err)
	}
	if cfg.Alert.Title == "" {
		t.Error("empty file cleared the alert defaults")
	}
}

func TestValidate(t *testing.T) {
	for _, tt := range []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"both triggers", func(c *Config) { c.TriggerMode = TriggerModeBoth }, false},
		{"unknown trigger", func(c *Config) { c.TriggerMode = "cron" }, true},
		{"zero radius", func(c *Config) { c.DefaultRadiusMeters = 0 }, true},
		{"negative interval", func(c *Config) { c.PushSendInterval = -time.Second }, true},
		{"missing collection", func(c *Config) { c.UsersCollection = "" }, true},
		{"bad template", func(c *Config) { c.Alert.BodyTemplate = "{{.RadiusKm" }, true},
		{"bad color", func(c *Config) { c.Alert.Color = "orange" }, true},
		{"auth without audience", func(c *Config) { c.TriggerAuthEnabled = true }, true},
		{"auth with audience", func(c *Config) {
			c.TriggerAuthEnabled = true
			c.TriggerAuthAudience = "https://alerts.example.com"
		}, false},
	} {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTriggerMode(t *testing.T) {
	for _, tt := range []struct {
		mode           TriggerMode
		listener, http bool
	}{
		{TriggerModeListener, true, false},
		{TriggerModeHTTP, false, true},
		{TriggerModeBoth, true, true},
	} {
		if tt.mode.Listener() != tt.listener || tt.mode.HTTP() != tt.http {
			t.Errorf("%q: Listener()=%v HTTP()=%v", tt.mode, tt.mode.Listener(), tt.mode.HTTP())
		}
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("FA_TEST_INT", "42")
	t.Setenv("FA_TEST_BAD_INT", "forty")
	t.Setenv("FA_TEST_DURATION", "250ms")
	t.Setenv("FA_TEST_FLOAT", "1234.5")
	t.Setenv("FA_TEST_LIST", " a@x.iam.gserviceaccount.com, ,b@x.iam.gserviceaccount.com ")

	if got := getEnvAsInt("FA_TEST_INT", 1); got != 42 {
		t.Errorf("getEnvAsInt() = %d, want 42", got)
	}
	if got := getEnvAsInt("FA_TEST_BAD_INT", 7); got != 7 {
		t.Errorf("getEnvAsInt() = %d, want default 7", got)
	}
	if got := getEnvAsDuration("FA_TEST_DURATION", time.Second); got != 250*time.Millisecond {
		t.Errorf("getEnvAsDuration() = %v", got)
	}
	if got := getEnvFloat("FA_TEST_FLOAT", 0); got != 1234.5 {
		t.Errorf("getEnvFloat() = %v", got)
	}
	if got := getEnvOrDefault("FA_TEST_UNSET", "fallback"); got != "fallback" {
		t.Errorf("getEnvOrDefault() = %q", got)
	}
	if got := getEnvAsList("FA_TEST_LIST"); len(got) != 2 || got[0] != "a@x.iam.gserviceaccount.com" || got[1] != "b@x.iam.gserviceaccount.com" {
		t.Errorf("getEnvAsList() = %q", got)
	}
	if got := getEnvAsList("FA_TEST_UNSET"); len(got) != 0 {
		t.Errorf("getEnvAsList(unset) = %q, want empty", got)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	for _, key := range []string{
		"REPORTS_COLLECTION", "PRESENCE_COLLECTION", "USERS_COLLECTION",
		"TRIGGER_MODE", "DEFAULT_RADIUS_METERS", "PUSH_SEND_INTERVAL", "TRIGGER_AUTH_ENABLED",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))

	LoadConfig()
	cfg := AppConfig

	// Reporting clients write to reports/{reportId}.
	if cfg.ReportsCollection != "reports" {
		t.Errorf("ReportsCollection = %q, want %q", cfg.ReportsCollection, "reports")
	}
	if cfg.PresenceCollection != "user_presence" || cfg.UsersCollection != "users" {
		t.Errorf("collections = %q, %q", cfg.PresenceCollection, cfg.UsersCollection)
	}
	if cfg.TriggerMode != TriggerModeListener || cfg.DefaultRadiusMeters != 5000 {
		t.Errorf("TriggerMode = %q, DefaultRadiusMeters = %v", cfg.TriggerMode, cfg.DefaultRadiusMeters)
	}
	if cfg.PushSendInterval != 100*time.Millisecond {
		t.Errorf("PushSendInterval = %v", cfg.PushSendInterval)
	}
}
