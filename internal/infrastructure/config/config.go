package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for StayFlow Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site       SiteConfig       `yaml:"site"`
	Database   DatabaseConfig   `yaml:"database"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	API        APIConfig        `yaml:"api"`
	WebSocket  WebSocketConfig  `yaml:"websocket"`
	InfluxDB   InfluxDBConfig   `yaml:"influxdb"`
	Logging    LoggingConfig    `yaml:"logging"`
	Security   SecurityConfig   `yaml:"security"`
	Automation AutomationConfig `yaml:"automation"`
	Dispatch   DispatchConfig   `yaml:"dispatch"`
	Reminders  RemindersConfig  `yaml:"reminders"`
}

// SiteConfig describes the operator and the properties it runs.
// The site ID doubles as the default property when a request names none.
type SiteConfig struct {
	ID         string           `yaml:"id"`
	Name       string           `yaml:"name"`
	Timezone   string           `yaml:"timezone"`
	Location   LocationConfig   `yaml:"location"`
	Properties []PropertyConfig `yaml:"properties"`
}

// PropertyConfig describes one lodging property (the partition key for all data).
type PropertyConfig struct {
	ID       string         `yaml:"id"`
	Name     string         `yaml:"name"`
	Timezone string         `yaml:"timezone"` // IANA name; derived from Location when empty
	Location LocationConfig `yaml:"location"`
}

// LocationConfig contains geographic coordinates used to resolve a time zone.
type LocationConfig struct {
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
}

// IsZero reports whether no coordinates were configured.
func (l LocationConfig) IsZero() bool {
	return l.Latitude == 0 && l.Longitude == 0
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string            `yaml:"level"`
	Format string            `yaml:"format"`
	Output string            `yaml:"output"` // stdout, stderr, file
	File   FileLoggingConfig `yaml:"file"`
}

// FileLoggingConfig contains file-based logging settings.
type FileLoggingConfig struct {
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"max_size"` // megabytes
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"` // days
	Compress   bool   `yaml:"compress"`
}

// SecurityConfig contains security settings.
type SecurityConfig struct {
	JWT       JWTConfig       `yaml:"jwt"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// JWTConfig contains JWT token settings.
type JWTConfig struct {
	Secret         string `yaml:"secret"`
	AccessTokenTTL int    `yaml:"access_token_ttl"` // minutes
}

// RateLimitConfig contains rate limiting settings.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
	Burst             int  `yaml:"burst"`
}

// AutomationConfig controls message scheduling.
type AutomationConfig struct {
	QuietHours        QuietHoursConfig `yaml:"quiet_hours"`
	RealTimeEvents    []string         `yaml:"real_time_events"`
	PortalBaseURL     string           `yaml:"portal_base_url"`
	SurveyBaseURL     string           `yaml:"survey_base_url"`
	AccessCodeRetries int              `yaml:"access_code_retries"`
}

// QuietHoursConfig is the nightly window, in local hours, during which
// non-urgent automated messages are held back. Start > End wraps midnight.
type QuietHoursConfig struct {
	Enabled bool `yaml:"enabled"`
	Start   int  `yaml:"start"`
	End     int  `yaml:"end"`
}

// DispatchConfig controls the outbound message worker.
type DispatchConfig struct {
	Enabled   bool           `yaml:"enabled"`
	Schedule  string         `yaml:"schedule"` // cron spec, e.g. "@every 30s"
	BatchSize int            `yaml:"batch_size"`
	Twilio    TwilioConfig   `yaml:"twilio"`
	SendGrid  SendGridConfig `yaml:"sendgrid"`
	Breaker   BreakerConfig  `yaml:"breaker"`
}

// TwilioConfig holds WhatsApp transport credentials.
type TwilioConfig struct {
	AccountSID string `yaml:"account_sid"`
	AuthToken  string `yaml:"auth_token"`
	From       string `yaml:"from"`
	WhatsApp   bool   `yaml:"whatsapp"`
}

// SendGridConfig holds e-mail transport credentials.
type SendGridConfig struct {
	APIKey      string `yaml:"api_key"`
	FromEmail   string `yaml:"from_email"`
	FromName    string `yaml:"from_name"`
	Subject     string `yaml:"subject"`
	SandboxMode bool   `yaml:"sandbox_mode"`
}

// BreakerConfig tunes the per-transport circuit breaker.
type BreakerConfig struct {
	MaxFailures uint32 `yaml:"max_failures"`
	Timeout     int    `yaml:"timeout"` // seconds the breaker stays open
}

// RemindersConfig schedules the pre-arrival reminder sweep.
type RemindersConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: STAYFLOW_SECTION_KEY
// For example: STAYFLOW_DATABASE_PATH, STAYFLOW_API_PORT
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:       "property-001",
			Name:     "StayFlow",
			Timezone: "UTC",
		},
		Database: DatabaseConfig{
			Path:        "./data/stayflow.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "stayflow-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
			File: FileLoggingConfig{
				Path:       "./logs/stayflow.log",
				MaxSize:    50,
				MaxBackups: 5,
				MaxAge:     30,
				Compress:   true,
			},
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				AccessTokenTTL: 720,
			},
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 300,
				Burst:             50,
			},
		},
		Automation: AutomationConfig{
			QuietHours: QuietHoursConfig{
				Enabled: true,
				Start:   21,
				End:     8,
			},
			RealTimeEvents:    []string{"welcome_checkin", "checkout_thanks"},
			AccessCodeRetries: 16,
		},
		Dispatch: DispatchConfig{
			Schedule:  "@every 30s",
			BatchSize: 50,
			SendGrid: SendGridConfig{
				Subject: "Your stay",
			},
			Breaker: BreakerConfig{
				MaxFailures: 5,
				Timeout:     60,
			},
		},
		Reminders: RemindersConfig{
			Enabled:  true,
			Schedule: "@every 15m",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Secrets are expected to arrive this way rather than from the YAML file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("STAYFLOW_SITE_ID"); v != "" {
		cfg.Site.ID = v
	}
	if v := os.Getenv("STAYFLOW_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("STAYFLOW_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("STAYFLOW_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("STAYFLOW_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("STAYFLOW_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("STAYFLOW_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	if v := os.Getenv("STAYFLOW_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	if v := os.Getenv("STAYFLOW_JWT_SECRET"); v != "" {
		cfg.Security.JWT.Secret = v
	}

	if v := os.Getenv("STAYFLOW_TWILIO_ACCOUNT_SID"); v != "" {
		cfg.Dispatch.Twilio.AccountSID = v
	}
	if v := os.Getenv("STAYFLOW_TWILIO_AUTH_TOKEN"); v != "" {
		cfg.Dispatch.Twilio.AuthToken = v
	}
	if v := os.Getenv("STAYFLOW_SENDGRID_API_KEY"); v != "" {
		cfg.Dispatch.SendGrid.APIKey = v
	}
}

// Validate checks the configuration for errors and security issues.
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}
	seen := make(map[string]bool, len(c.Site.Properties))
	for i, p := range c.Site.Properties {
		if p.ID == "" {
			errs = append(errs, fmt.Sprintf("site.properties[%d].id is required", i))
			continue
		}
		if seen[p.ID] {
			errs = append(errs, fmt.Sprintf("site.properties[%d].id %q is duplicated", i, p.ID))
		}
		seen[p.ID] = true
		if p.Timezone != "" {
			if _, err := time.LoadLocation(p.Timezone); err != nil {
				errs = append(errs, fmt.Sprintf("site.properties[%d].timezone %q is not a valid IANA zone", i, p.Timezone))
			}
		}
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// Tokens identify the staff member recorded in the audit log, so a
	// forgeable secret would make the audit trail meaningless.
	const minJWTSecretLength = 32
	if c.Security.JWT.Secret == "" {
		errs = append(errs, "security.jwt.secret is required (set STAYFLOW_JWT_SECRET environment variable)")
	} else if len(c.Security.JWT.Secret) < minJWTSecretLength {
		errs = append(errs, "security.jwt.secret must be at least 32 characters")
	}

	qh := c.Automation.QuietHours
	if qh.Enabled {
		if qh.Start < 0 || qh.Start > 23 || qh.End < 0 || qh.End > 23 {
			errs = append(errs, "automation.quiet_hours start and end must be hours between 0 and 23")
		} else if qh.Start == qh.End {
			errs = append(errs, "automation.quiet_hours start and end must differ")
		}
	}
	if c.Automation.AccessCodeRetries < 1 {
		errs = append(errs, "automation.access_code_retries must be at least 1")
	}

	if c.Dispatch.Enabled {
		if c.Dispatch.Schedule == "" {
			errs = append(errs, "dispatch.schedule is required when dispatch is enabled")
		}
		if c.Dispatch.BatchSize < 1 {
			errs = append(errs, "dispatch.batch_size must be at least 1")
		}
	}

	if c.Logging.Output == "file" && c.Logging.File.Path == "" {
		errs = append(errs, "logging.file.path is required when logging.output is file")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// PropertyIDs returns every configured property, falling back to the site ID
// when no explicit property list exists.
func (c *Config) PropertyIDs() []string {
	if len(c.Site.Properties) == 0 {
		return []string{c.Site.ID}
	}
	ids := make([]string, 0, len(c.Site.Properties))
	for _, p := range c.Site.Properties {
		ids = append(ids, p.ID)
	}
	return ids
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
