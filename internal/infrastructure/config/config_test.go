package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validJWTSecret = "test-secret-key-at-least-32-chars!"

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
site:
  id: "pousada-serra"
  properties:
    - id: "pousada-serra"
      name: "Pousada da Serra"
      timezone: "America/Sao_Paulo"
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
automation:
  quiet_hours:
    enabled: true
    start: 22
    end: 7
  portal_base_url: "https://portal.example.com"
security:
  jwt:
    secret: "test-secret-key-at-least-32-chars!"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Site.ID != "pousada-serra" {
		t.Errorf("Site.ID = %q, want %q", cfg.Site.ID, "pousada-serra")
	}
	if len(cfg.Site.Properties) != 1 || cfg.Site.Properties[0].Timezone != "America/Sao_Paulo" {
		t.Errorf("Site.Properties = %+v", cfg.Site.Properties)
	}
	if cfg.Automation.QuietHours.Start != 22 || cfg.Automation.QuietHours.End != 7 {
		t.Errorf("QuietHours = %+v, want 22-7", cfg.Automation.QuietHours)
	}
	// Defaults survive partial YAML.
	if cfg.Automation.AccessCodeRetries != 16 {
		t.Errorf("AccessCodeRetries = %d, want default 16", cfg.Automation.AccessCodeRetries)
	}
	if cfg.API.Port != 8080 {
		t.Errorf("API.Port = %d, want default 8080", cfg.API.Port)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/path/config.yaml"); err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "invalid: [yaml: content")
	if _, err := Load(path); err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	path := writeConfig(t, `
site:
  id: ""
`)
	t.Setenv("STAYFLOW_JWT_SECRET", validJWTSecret)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() expected validation error for empty site.id, got nil")
	}
	if !strings.Contains(err.Error(), "site.id is required") {
		t.Errorf("error = %v, want mention of site.id", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid config", mutate: func(*Config) {}},
		{
			name:    "missing site ID",
			mutate:  func(c *Config) { c.Site.ID = "" },
			wantErr: "site.id",
		},
		{
			name:    "missing database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: "database.path",
		},
		{
			name:    "invalid QoS",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: "mqtt.qos",
		},
		{
			name:    "invalid port high",
			mutate:  func(c *Config) { c.API.Port = 70000 },
			wantErr: "api.port",
		},
		{
			name:    "missing JWT secret",
			mutate:  func(c *Config) { c.Security.JWT.Secret = "" },
			wantErr: "security.jwt.secret is required",
		},
		{
			name:    "JWT secret too short",
			mutate:  func(c *Config) { c.Security.JWT.Secret = "short" },
			wantErr: "at least 32",
		},
		{
			name:    "quiet hours out of range",
			mutate:  func(c *Config) { c.Automation.QuietHours.Start = 24 },
			wantErr: "quiet_hours",
		},
		{
			name:    "quiet hours empty window",
			mutate:  func(c *Config) { c.Automation.QuietHours.Start, c.Automation.QuietHours.End = 8, 8 },
			wantErr: "must differ",
		},
		{
			name:    "quiet hours disabled ignores range",
			mutate:  func(c *Config) { c.Automation.QuietHours = QuietHoursConfig{Enabled: false, Start: 99} },
			wantErr: "",
		},
		{
			name: "duplicate property",
			mutate: func(c *Config) {
				c.Site.Properties = []PropertyConfig{{ID: "a"}, {ID: "a"}}
			},
			wantErr: "duplicated",
		},
		{
			name: "bad property timezone",
			mutate: func(c *Config) {
				c.Site.Properties = []PropertyConfig{{ID: "a", Timezone: "Mars/Olympus"}}
			},
			wantErr: "IANA",
		},
		{
			name: "dispatch without batch size",
			mutate: func(c *Config) {
				c.Dispatch.Enabled = true
				c.Dispatch.BatchSize = 0
			},
			wantErr: "dispatch.batch_size",
		},
		{
			name: "file logging without path",
			mutate: func(c *Config) {
				c.Logging.Output = "file"
				c.Logging.File.Path = ""
			},
			wantErr: "logging.file.path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			cfg.Security.JWT.Secret = validJWTSecret
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_PropertyIDs(t *testing.T) {
	cfg := defaultConfig()
	if got := cfg.PropertyIDs(); len(got) != 1 || got[0] != cfg.Site.ID {
		t.Errorf("PropertyIDs() = %v, want [%s]", got, cfg.Site.ID)
	}

	cfg.Site.Properties = []PropertyConfig{{ID: "a"}, {ID: "b"}}
	got := cfg.PropertyIDs()
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("PropertyIDs() = %v, want [a b]", got)
	}
}

func TestConfig_GetTimeouts(t *testing.T) {
	cfg := &Config{
		API: APIConfig{
			Timeouts: APITimeoutConfig{Read: 30, Write: 45, Idle: 60},
		},
	}

	if got := cfg.GetReadTimeout().Seconds(); got != 30 {
		t.Errorf("GetReadTimeout() = %v, want 30", got)
	}
	if got := cfg.GetWriteTimeout().Seconds(); got != 45 {
		t.Errorf("GetWriteTimeout() = %v, want 45", got)
	}
	if got := cfg.GetIdleTimeout().Seconds(); got != 60 {
		t.Errorf("GetIdleTimeout() = %v, want 60", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("STAYFLOW_DATABASE_PATH", "/custom/path.db")
	t.Setenv("STAYFLOW_MQTT_HOST", "mqtt.example.com")
	t.Setenv("STAYFLOW_API_PORT", "9090")
	t.Setenv("STAYFLOW_JWT_SECRET", "jwt-secret")
	t.Setenv("STAYFLOW_TWILIO_AUTH_TOKEN", "twilio-token")
	t.Setenv("STAYFLOW_SENDGRID_API_KEY", "SG.key")

	applyEnvOverrides(cfg)

	if cfg.Database.Path != "/custom/path.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/custom/path.db")
	}
	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}
	if cfg.API.Port != 9090 {
		t.Errorf("API.Port = %d, want 9090", cfg.API.Port)
	}
	if cfg.Security.JWT.Secret != "jwt-secret" {
		t.Errorf("Security.JWT.Secret = %q, want %q", cfg.Security.JWT.Secret, "jwt-secret")
	}
	if cfg.Dispatch.Twilio.AuthToken != "twilio-token" {
		t.Errorf("Dispatch.Twilio.AuthToken = %q", cfg.Dispatch.Twilio.AuthToken)
	}
	if cfg.Dispatch.SendGrid.APIKey != "SG.key" {
		t.Errorf("Dispatch.SendGrid.APIKey = %q", cfg.Dispatch.SendGrid.APIKey)
	}
}

func TestApplyEnvOverrides_BadPortIgnored(t *testing.T) {
	cfg := defaultConfig()
	t.Setenv("STAYFLOW_API_PORT", "not-a-port")
	applyEnvOverrides(cfg)
	if cfg.API.Port != 8080 {
		t.Errorf("API.Port = %d, want 8080 kept", cfg.API.Port)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Site.ID == "" {
		t.Error("defaultConfig should have non-empty Site.ID")
	}
	if !cfg.Automation.QuietHours.Enabled || cfg.Automation.QuietHours.Start != 21 || cfg.Automation.QuietHours.End != 8 {
		t.Errorf("default quiet hours = %+v, want enabled 21-8", cfg.Automation.QuietHours)
	}
	if len(cfg.Automation.RealTimeEvents) != 2 {
		t.Errorf("default real-time events = %v", cfg.Automation.RealTimeEvents)
	}
}
