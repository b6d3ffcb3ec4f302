package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// knownShows lists the lightshow kinds accepted as streamer.default_show.
var knownShows = map[string]bool{
	"all_off":      true,
	"static_white": true,
	"pulsating":    true,
	"ping_pong":    true,
	"music_energy": true,
	"music_scroll": true,
}

// Config is the root configuration structure for ledtube-core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Node      NodeConfig      `yaml:"node"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Streamer  StreamerConfig  `yaml:"streamer"`
	Shows     ShowsConfig     `yaml:"shows"`
	Audio     AudioConfig     `yaml:"audio"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	Security  SecurityConfig  `yaml:"security"`
}

// NodeConfig identifies this controller instance.
type NodeConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// DiscoveryConfig contains beacon and registration listener settings.
type DiscoveryConfig struct {
	MulticastGroup   string `yaml:"multicast_group"`
	MulticastPort    int    `yaml:"multicast_port"`
	MulticastTTL     int    `yaml:"multicast_ttl"`
	BeaconIntervalMS int    `yaml:"beacon_interval_ms"`

	// Interface restricts local address resolution to one NIC (e.g. "wlan0").
	// Empty means the first non-loopback IPv4 address on any interface.
	Interface string `yaml:"interface"`

	RegistrationPort          int  `yaml:"registration_port"`
	RegistrationIntervalMS    int  `yaml:"registration_interval_ms"`
	RegistrationReadTimeoutMS int  `yaml:"registration_read_timeout_ms"`
	Autostart                 bool `yaml:"autostart"`
}

// StreamerConfig contains frame streamer settings.
type StreamerConfig struct {
	StatsWindowMS int    `yaml:"stats_window_ms"`
	DefaultShow   string `yaml:"default_show"`
	Autostart     bool   `yaml:"autostart"`
}

// ShowsConfig contains per-show parameters.
type ShowsConfig struct {
	Pulsating PulsatingConfig `yaml:"pulsating"`
	PingPong  PingPongConfig  `yaml:"ping_pong"`
}

// PulsatingConfig contains parameters for the pulsating red show.
type PulsatingConfig struct {
	MillisPerPulse int `yaml:"millis_per_pulse"`
	MinIntensity   int `yaml:"min_intensity"`
}

// PingPongConfig contains parameters for the bouncing dot show.
type PingPongConfig struct {
	MillisPerPulse      int     `yaml:"millis_per_pulse"`
	MillisPerColorCycle int     `yaml:"millis_per_color_cycle"`
	TailFade            float64 `yaml:"tail_fade"`
}

// AudioConfig contains audio capture and analysis settings.
type AudioConfig struct {
	Enabled bool `yaml:"enabled"`

	// Source is "wav" (stream a file in real time), "command" (read raw
	// S16LE mono PCM from a capture tool's stdout) or "none" (samples are
	// pushed by an external capture collaborator).
	Source  string `yaml:"source"`
	WAVPath string `yaml:"wav_path"`
	Loop    bool   `yaml:"loop"`

	// Command is the capture argv, e.g. ["arecord", "-q", "-t", "raw",
	// "-f", "S16_LE", "-c", "1", "-r", "44100"].
	Command []string `yaml:"command"`

	NumMelBands int     `yaml:"num_mel_bands"`
	NumFFTBins  int     `yaml:"num_fft_bins"`
	FreqMin     float64 `yaml:"freq_min"`
	FreqMax     float64 `yaml:"freq_max"`
	SampleRate  int     `yaml:"sample_rate"`
	AnalysisFPS int     `yaml:"analysis_fps"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Enabled     bool   `yaml:"enabled"`
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
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings.
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

	// SpectrumIntervalMS throttles spectrum broadcasts to clients.
	SpectrumIntervalMS int `yaml:"spectrum_interval_ms"`
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
	WriteSpectrum bool   `yaml:"write_spectrum"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SecurityConfig contains security settings for the control API.
type SecurityConfig struct {
	Auth AuthConfig `yaml:"auth"`
	JWT  JWTConfig  `yaml:"jwt"`
}

// AuthConfig contains the single operator credential for the control API.
type AuthConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// JWTConfig contains JWT token settings.
type JWTConfig struct {
	Secret         string `yaml:"secret"`
	AccessTokenTTL int    `yaml:"access_token_ttl"`
}

// Load layers config.yaml over the built-in defaults, then applies
// LEDTUBE_* environment overrides (LEDTUBE_DATABASE_PATH, LEDTUBE_API_PORT,
// LEDTUBE_JWT_SECRET and so on) and validates the result.
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

// Default returns the built-in configuration. It is valid as-is and is
// what a node runs with when no config file is present.
func Default() *Config {
	return defaultConfig()
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Node: NodeConfig{
			ID:   "ledtube-01",
			Name: "ledtube",
		},
		Discovery: DiscoveryConfig{
			MulticastGroup:            "224.1.1.1",
			MulticastPort:             5555,
			MulticastTTL:              1,
			BeaconIntervalMS:          1000,
			RegistrationPort:          1337,
			RegistrationIntervalMS:    1000,
			RegistrationReadTimeoutMS: 2000,
		},
		Streamer: StreamerConfig{
			StatsWindowMS: 1000,
			DefaultShow:   "static_white",
		},
		Shows: ShowsConfig{
			Pulsating: PulsatingConfig{
				MillisPerPulse: 1000,
				MinIntensity:   20,
			},
			PingPong: PingPongConfig{
				MillisPerPulse:      2000,
				MillisPerColorCycle: 10000,
				TailFade:            0.2,
			},
		},
		Audio: AudioConfig{
			Source:      "none",
			Loop:        true,
			NumMelBands: 16,
			NumFFTBins:  64,
			FreqMin:     20,
			FreqMax:     8000,
			SampleRate:  44100,
			AnalysisFPS: 70,
		},
		Database: DatabaseConfig{
			Enabled:     true,
			Path:        "./data/ledtube.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "ledtube-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:               "/ws",
			MaxMessageSize:     8192,
			PingInterval:       30,
			PongTimeout:        10,
			SpectrumIntervalMS: 50,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				AccessTokenTTL: 60,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: LEDTUBE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Discovery
	if v := os.Getenv("LEDTUBE_DISCOVERY_INTERFACE"); v != "" {
		cfg.Discovery.Interface = v
	}
	if v, ok := envInt("LEDTUBE_DISCOVERY_REGISTRATION_PORT"); ok {
		cfg.Discovery.RegistrationPort = v
	}

	// Audio
	if v := os.Getenv("LEDTUBE_AUDIO_WAV_PATH"); v != "" {
		cfg.Audio.WAVPath = v
	}

	// Database
	if v := os.Getenv("LEDTUBE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("LEDTUBE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("LEDTUBE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("LEDTUBE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("LEDTUBE_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v, ok := envInt("LEDTUBE_API_PORT"); ok {
		cfg.API.Port = v
	}

	// InfluxDB
	if v := os.Getenv("LEDTUBE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Security
	if v := os.Getenv("LEDTUBE_AUTH_PASSWORD"); v != "" {
		cfg.Security.Auth.Password = v
	}
	if v := os.Getenv("LEDTUBE_JWT_SECRET"); v != "" {
		cfg.Security.JWT.Secret = v
	}
}

// envInt reads an integer environment variable. Unparseable values are ignored.
func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Validate checks the configuration for errors and security issues.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Node.ID == "" {
		errs = append(errs, "node.id is required")
	}

	// Discovery
	if ip := net.ParseIP(c.Discovery.MulticastGroup); ip == nil || ip.To4() == nil || !ip.IsMulticast() {
		errs = append(errs, "discovery.multicast_group must be an IPv4 multicast address")
	}
	if !validPort(c.Discovery.MulticastPort) {
		errs = append(errs, "discovery.multicast_port must be between 1 and 65535")
	}
	if !validPort(c.Discovery.RegistrationPort) {
		errs = append(errs, "discovery.registration_port must be between 1 and 65535")
	}
	if c.Discovery.BeaconIntervalMS <= 0 {
		errs = append(errs, "discovery.beacon_interval_ms must be positive")
	}
	if c.Discovery.RegistrationIntervalMS < 0 {
		errs = append(errs, "discovery.registration_interval_ms must not be negative")
	}
	if c.Discovery.RegistrationReadTimeoutMS <= 0 {
		errs = append(errs, "discovery.registration_read_timeout_ms must be positive")
	}

	// Streamer and shows
	if c.Streamer.StatsWindowMS <= 0 {
		errs = append(errs, "streamer.stats_window_ms must be positive")
	}
	if !knownShows[c.Streamer.DefaultShow] {
		errs = append(errs, fmt.Sprintf("streamer.default_show %q is not a known show", c.Streamer.DefaultShow))
	} else if strings.HasPrefix(c.Streamer.DefaultShow, "music_") && !c.Audio.Enabled {
		errs = append(errs, "streamer.default_show is a music show but audio is disabled")
	}
	if c.Shows.Pulsating.MillisPerPulse <= 0 {
		errs = append(errs, "shows.pulsating.millis_per_pulse must be positive")
	}
	if c.Shows.Pulsating.MinIntensity < 0 || c.Shows.Pulsating.MinIntensity > 255 {
		errs = append(errs, "shows.pulsating.min_intensity must be between 0 and 255")
	}
	if c.Shows.PingPong.MillisPerPulse <= 0 || c.Shows.PingPong.MillisPerColorCycle <= 0 {
		errs = append(errs, "shows.ping_pong periods must be positive")
	}
	if c.Shows.PingPong.TailFade <= 0 || c.Shows.PingPong.TailFade >= 1 {
		errs = append(errs, "shows.ping_pong.tail_fade must be in (0, 1)")
	}

	// Audio
	if c.Audio.Enabled {
		errs = append(errs, c.validateAudio()...)
	}

	// Database
	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// MQTT
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// API
	if c.API.Enabled && !validPort(c.API.Port) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// Security. Only enforced when the control API requires login.
	const minJWTSecretLength = 32
	if c.Security.Auth.Enabled {
		if c.Security.Auth.Username == "" || c.Security.Auth.Password == "" {
			errs = append(errs, "security.auth.username and security.auth.password are required when auth is enabled")
		}
		if c.Security.JWT.Secret == "" {
			errs = append(errs, "security.jwt.secret is required (set LEDTUBE_JWT_SECRET environment variable)")
		} else if len(c.Security.JWT.Secret) < minJWTSecretLength {
			errs = append(errs, "security.jwt.secret must be at least 32 characters for adequate security")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

func (c *Config) validateAudio() []string {
	var errs []string
	a := c.Audio

	switch a.Source {
	case "wav":
		if a.WAVPath == "" {
			errs = append(errs, "audio.wav_path is required when audio.source is \"wav\"")
		}
	case "command":
		if len(a.Command) == 0 || a.Command[0] == "" {
			errs = append(errs, "audio.command is required when audio.source is \"command\"")
		}
	case "none":
	default:
		errs = append(errs, "audio.source must be \"wav\", \"command\" or \"none\"")
	}
	if a.NumMelBands < 3 {
		errs = append(errs, "audio.num_mel_bands must be at least 3")
	}
	if a.NumFFTBins <= 0 {
		errs = append(errs, "audio.num_fft_bins must be positive")
	}
	if a.SampleRate <= 0 {
		errs = append(errs, "audio.sample_rate must be positive")
	}
	if a.FreqMin <= 0 || a.FreqMin >= a.FreqMax || a.FreqMax > float64(a.SampleRate)/2 {
		errs = append(errs, "audio frequency range must satisfy 0 < freq_min < freq_max <= sample_rate/2")
	}
	if a.AnalysisFPS <= 0 {
		errs = append(errs, "audio.analysis_fps must be positive")
	}
	return errs
}

func validPort(p int) bool {
	return p >= 1 && p <= 65535
}

// ReadTimeout, WriteTimeout and IdleTimeout convert the configured seconds
// for http.Server.
func (t APITimeoutConfig) ReadTimeout() time.Duration  { return seconds(t.Read) }
func (t APITimeoutConfig) WriteTimeout() time.Duration { return seconds(t.Write) }
func (t APITimeoutConfig) IdleTimeout() time.Duration  { return seconds(t.Idle) }

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// BeaconInterval returns the discovery beacon period.
func (c *Config) BeaconInterval() time.Duration {
	return time.Duration(c.Discovery.BeaconIntervalMS) * time.Millisecond
}

// RegistrationInterval returns the delay between registration accepts.
func (c *Config) RegistrationInterval() time.Duration {
	return time.Duration(c.Discovery.RegistrationIntervalMS) * time.Millisecond
}

// RegistrationReadTimeout returns the deadline for reading a registration payload.
func (c *Config) RegistrationReadTimeout() time.Duration {
	return time.Duration(c.Discovery.RegistrationReadTimeoutMS) * time.Millisecond
}

// StatsWindow returns the streamer's FPS/load measurement window.
func (c *Config) StatsWindow() time.Duration {
	return time.Duration(c.Streamer.StatsWindowMS) * time.Millisecond
}
