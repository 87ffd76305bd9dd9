package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/nerrad567/stayflow-core/internal/infrastructure/config"
)

// testConfig returns a valid MQTT configuration for testing.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "stayflow-test",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

// =============================================================================
// Topic Tests
// =============================================================================

func TestTopics(t *testing.T) {
	topics := Topics{}
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"event", topics.Event("pousada", "stay", "stay.checked_out"), "stayflow/events/pousada/stay/stay.checked_out"},
		{"wildcards escaped", topics.Event("a/b", "+", "#"), "stayflow/events/a_b/_/_"},
		{"empty level", topics.Event("", "cabin", "cabin.status_changed"), "stayflow/events/_/cabin/cabin.status_changed"},
		{"system status", topics.SystemStatus(), "stayflow/system/status"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}

// =============================================================================
// Option Tests
// =============================================================================

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth = config.MQTTAuthConfig{Username: "core", Password: "secret"}

	opts := buildClientOptions(cfg)
	if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://127.0.0.1:1883" {
		t.Errorf("Servers = %v", opts.Servers)
	}
	if opts.ClientID != "stayflow-test" || opts.Username != "core" || opts.Password != "secret" {
		t.Errorf("identity = %q %q %q", opts.ClientID, opts.Username, opts.Password)
	}
	if !opts.AutoReconnect || !opts.CleanSession {
		t.Error("expected auto-reconnect and clean session")
	}

	cfg.Broker.TLS = true
	opts = buildClientOptions(cfg)
	if opts.Servers[0].Scheme != "ssl" || opts.TLSConfig == nil {
		t.Errorf("TLS options = %v %v", opts.Servers[0], opts.TLSConfig)
	}
}

func TestStatusPayloads(t *testing.T) {
	var s status
	if err := json.Unmarshal(buildOfflinePayload("core-1"), &s); err != nil {
		t.Fatal(err)
	}
	if s.Status != "offline" || s.Reason != "graceful_shutdown" || s.ClientID != "core-1" || s.Timestamp == "" {
		t.Errorf("offline payload = %+v", s)
	}

	var raw map[string]any
	if err := json.Unmarshal(buildOnlinePayload("core-1"), &raw); err != nil {
		t.Fatal(err)
	}
	if _, ok := raw["reason"]; ok || raw["status"] != "online" {
		t.Errorf("online payload = %v", raw)
	}
}

// =============================================================================
// Disconnected Client Tests
// =============================================================================

func TestDisconnectedClient(t *testing.T) {
	c := &Client{cfg: testConfig()}

	if err := c.Close(); err != nil {
		t.Errorf("Close() on unconnected client = %v", err)
	}
	if c.IsConnected() {
		t.Error("IsConnected() = true")
	}
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() = %v, want ErrNotConnected", err)
	}
	if err := c.PublishJSON("stayflow/events/p/stay/x", map[string]string{"a": "b"}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("PublishJSON() = %v, want ErrNotConnected", err)
	}
}

func TestPublishValidation(t *testing.T) {
	c := &Client{cfg: testConfig()}
	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		want    error
	}{
		{"empty topic", "", nil, 1, ErrInvalidTopic},
		{"bad qos", "t", nil, 3, ErrInvalidQoS},
		{"oversized", "t", make([]byte, maxPayloadSize+1), 1, ErrPublishFailed},
		{"not connected", "t", []byte("{}"), 1, ErrNotConnected},
	}
	for _, tt := range tests {
		if err := c.Publish(tt.topic, tt.payload, tt.qos, false); !errors.Is(err, tt.want) {
			t.Errorf("%s: Publish() = %v, want %v", tt.name, err, tt.want)
		}
	}
}

func TestHealthCheckCancelled(t *testing.T) {
	c := &Client{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck() = %v, want context.Canceled", err)
	}
}
