package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_ValidConfig(t *testing.T) {
	content := `
node:
  id: "test-node"
discovery:
  multicast_group: "239.1.2.3"
  registration_port: 4000
streamer:
  default_show: "ping_pong"
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
mqtt:
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
api:
  host: "0.0.0.0"
  port: 8080
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Node.ID != "test-node" {
		t.Errorf("Node.ID = %q, want %q", cfg.Node.ID, "test-node")
	}
	if cfg.Discovery.MulticastGroup != "239.1.2.3" {
		t.Errorf("Discovery.MulticastGroup = %q, want %q", cfg.Discovery.MulticastGroup, "239.1.2.3")
	}
	if cfg.Discovery.RegistrationPort != 4000 {
		t.Errorf("Discovery.RegistrationPort = %d, want 4000", cfg.Discovery.RegistrationPort)
	}
	// Unset keys keep their defaults.
	if cfg.Discovery.MulticastPort != 5555 {
		t.Errorf("Discovery.MulticastPort = %d, want default 5555", cfg.Discovery.MulticastPort)
	}
	if cfg.Streamer.DefaultShow != "ping_pong" {
		t.Errorf("Streamer.DefaultShow = %q, want %q", cfg.Streamer.DefaultShow, "ping_pong")
	}
	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
node:
  id: ""
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected validation error for empty node.id, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	validJWTSecret := "test-secret-key-at-least-32-chars!"

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(c *Config) {}, wantErr: false},
		{name: "missing node ID", mutate: func(c *Config) { c.Node.ID = "" }, wantErr: true},
		{name: "unicast group", mutate: func(c *Config) { c.Discovery.MulticastGroup = "192.168.1.10" }, wantErr: true},
		{name: "IPv6 group", mutate: func(c *Config) { c.Discovery.MulticastGroup = "ff02::1" }, wantErr: true},
		{name: "registration port zero", mutate: func(c *Config) { c.Discovery.RegistrationPort = 0 }, wantErr: true},
		{name: "multicast port high", mutate: func(c *Config) { c.Discovery.MulticastPort = 70000 }, wantErr: true},
		{name: "beacon interval zero", mutate: func(c *Config) { c.Discovery.BeaconIntervalMS = 0 }, wantErr: true},
		{name: "zero registration interval allowed", mutate: func(c *Config) { c.Discovery.RegistrationIntervalMS = 0 }, wantErr: false},
		{name: "unknown default show", mutate: func(c *Config) { c.Streamer.DefaultShow = "disco" }, wantErr: true},
		{name: "music default show without audio", mutate: func(c *Config) { c.Streamer.DefaultShow = "music_energy" }, wantErr: true},
		{name: "music default show with audio", mutate: func(c *Config) {
			c.Streamer.DefaultShow = "music_scroll"
			c.Audio.Enabled = true
		}, wantErr: false},
		{name: "tail fade one", mutate: func(c *Config) { c.Shows.PingPong.TailFade = 1 }, wantErr: true},
		{name: "min intensity too high", mutate: func(c *Config) { c.Shows.Pulsating.MinIntensity = 300 }, wantErr: true},
		{name: "invalid QoS", mutate: func(c *Config) { c.MQTT.QoS = 3 }, wantErr: true},
		{name: "invalid API port", mutate: func(c *Config) { c.API.Port = 0 }, wantErr: true},
		{
			name:    "invalid API port ignored when disabled",
			mutate:  func(c *Config) { c.API.Enabled = false; c.API.Port = 0 },
			wantErr: false,
		},
		{
			name:    "database path required when enabled",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: true,
		},
		{
			name: "auth without secret",
			mutate: func(c *Config) {
				c.Security.Auth = AuthConfig{Enabled: true, Username: "admin", Password: "pw"}
			},
			wantErr: true,
		},
		{
			name: "auth with short secret",
			mutate: func(c *Config) {
				c.Security.Auth = AuthConfig{Enabled: true, Username: "admin", Password: "pw"}
				c.Security.JWT.Secret = "short"
			},
			wantErr: true,
		},
		{
			name: "auth without password",
			mutate: func(c *Config) {
				c.Security.Auth = AuthConfig{Enabled: true, Username: "admin"}
				c.Security.JWT.Secret = validJWTSecret
			},
			wantErr: true,
		},
		{
			name: "auth fully configured",
			mutate: func(c *Config) {
				c.Security.Auth = AuthConfig{Enabled: true, Username: "admin", Password: "pw"}
				c.Security.JWT.Secret = validJWTSecret
			},
			wantErr: false,
		},
		{
			name:    "audio wav without path",
			mutate:  func(c *Config) { c.Audio.Enabled = true; c.Audio.Source = "wav" },
			wantErr: true,
		},
		{
			name:    "audio command without argv",
			mutate:  func(c *Config) { c.Audio.Enabled = true; c.Audio.Source = "command" },
			wantErr: true,
		},
		{
			name: "audio command source",
			mutate: func(c *Config) {
				c.Audio.Enabled = true
				c.Audio.Source = "command"
				c.Audio.Command = []string{"arecord", "-t", "raw"}
			},
			wantErr: false,
		},
		{
			name:    "audio unknown source",
			mutate:  func(c *Config) { c.Audio.Enabled = true; c.Audio.Source = "mic" },
			wantErr: true,
		},
		{
			name:    "audio too few bands",
			mutate:  func(c *Config) { c.Audio.Enabled = true; c.Audio.NumMelBands = 2 },
			wantErr: true,
		},
		{
			name:    "audio freq max above nyquist",
			mutate:  func(c *Config) { c.Audio.Enabled = true; c.Audio.FreqMax = 30000 },
			wantErr: true,
		},
		{
			name:    "audio invalid but disabled",
			mutate:  func(c *Config) { c.Audio.NumMelBands = 0 },
			wantErr: false,
		},
		{
			name:    "audio push source",
			mutate:  func(c *Config) { c.Audio.Enabled = true },
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Durations(t *testing.T) {
	cfg := &Config{
		API: APIConfig{
			Timeouts: APITimeoutConfig{Read: 30, Write: 45, Idle: 60},
		},
		Discovery: DiscoveryConfig{
			BeaconIntervalMS:          1000,
			RegistrationIntervalMS:    250,
			RegistrationReadTimeoutMS: 2000,
		},
		Streamer: StreamerConfig{StatsWindowMS: 1000},
	}

	checks := []struct {
		name string
		got  time.Duration
		want time.Duration
	}{
		{"ReadTimeout", cfg.API.Timeouts.ReadTimeout(), 30 * time.Second},
		{"WriteTimeout", cfg.API.Timeouts.WriteTimeout(), 45 * time.Second},
		{"IdleTimeout", cfg.API.Timeouts.IdleTimeout(), 60 * time.Second},
		{"BeaconInterval", cfg.BeaconInterval(), time.Second},
		{"RegistrationInterval", cfg.RegistrationInterval(), 250 * time.Millisecond},
		{"RegistrationReadTimeout", cfg.RegistrationReadTimeout(), 2 * time.Second},
		{"StatsWindow", cfg.StatsWindow(), time.Second},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s() = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("LEDTUBE_DATABASE_PATH", "/custom/path.db")
	t.Setenv("LEDTUBE_DISCOVERY_INTERFACE", "wlan0")
	t.Setenv("LEDTUBE_DISCOVERY_REGISTRATION_PORT", "4242")
	t.Setenv("LEDTUBE_AUDIO_WAV_PATH", "/music/loop.wav")
	t.Setenv("LEDTUBE_MQTT_HOST", "mqtt.example.com")
	t.Setenv("LEDTUBE_MQTT_USERNAME", "testuser")
	t.Setenv("LEDTUBE_MQTT_PASSWORD", "testpass")
	t.Setenv("LEDTUBE_API_HOST", "192.168.1.1")
	t.Setenv("LEDTUBE_API_PORT", "9090")
	t.Setenv("LEDTUBE_INFLUXDB_TOKEN", "secret-token")
	t.Setenv("LEDTUBE_AUTH_PASSWORD", "hunter2")
	t.Setenv("LEDTUBE_JWT_SECRET", "jwt-secret")

	applyEnvOverrides(cfg)

	if cfg.Database.Path != "/custom/path.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/custom/path.db")
	}
	if cfg.Discovery.Interface != "wlan0" {
		t.Errorf("Discovery.Interface = %q, want %q", cfg.Discovery.Interface, "wlan0")
	}
	if cfg.Discovery.RegistrationPort != 4242 {
		t.Errorf("Discovery.RegistrationPort = %d, want 4242", cfg.Discovery.RegistrationPort)
	}
	if cfg.Audio.WAVPath != "/music/loop.wav" {
		t.Errorf("Audio.WAVPath = %q, want %q", cfg.Audio.WAVPath, "/music/loop.wav")
	}
	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}
	if cfg.MQTT.Auth.Username != "testuser" {
		t.Errorf("MQTT.Auth.Username = %q, want %q", cfg.MQTT.Auth.Username, "testuser")
	}
	if cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth.Password = %q, want %q", cfg.MQTT.Auth.Password, "testpass")
	}
	if cfg.API.Host != "192.168.1.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "192.168.1.1")
	}
	if cfg.API.Port != 9090 {
		t.Errorf("API.Port = %d, want 9090", cfg.API.Port)
	}
	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}
	if cfg.Security.Auth.Password != "hunter2" {
		t.Errorf("Security.Auth.Password = %q, want %q", cfg.Security.Auth.Password, "hunter2")
	}
	if cfg.Security.JWT.Secret != "jwt-secret" {
		t.Errorf("Security.JWT.Secret = %q, want %q", cfg.Security.JWT.Secret, "jwt-secret")
	}
}

func TestApplyEnvOverrides_BadInt(t *testing.T) {
	cfg := defaultConfig()
	t.Setenv("LEDTUBE_API_PORT", "not-a-number")

	applyEnvOverrides(cfg)

	if cfg.API.Port != 8080 {
		t.Errorf("API.Port = %d, want unchanged 8080", cfg.API.Port)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Discovery.MulticastGroup != "224.1.1.1" {
		t.Errorf("MulticastGroup = %q, want 224.1.1.1", cfg.Discovery.MulticastGroup)
	}
	if cfg.Discovery.MulticastPort != 5555 {
		t.Errorf("MulticastPort = %d, want 5555", cfg.Discovery.MulticastPort)
	}
	if cfg.Discovery.RegistrationPort != 1337 {
		t.Errorf("RegistrationPort = %d, want 1337", cfg.Discovery.RegistrationPort)
	}
	if cfg.Audio.NumFFTBins != 4*cfg.Audio.NumMelBands {
		t.Errorf("NumFFTBins = %d, want 4 x NumMelBands (%d)", cfg.Audio.NumFFTBins, 4*cfg.Audio.NumMelBands)
	}
	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}
}
