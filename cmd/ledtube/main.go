// ledtube - LED tube lightshow controller
//
// This is the main entry point for the ledtube node. The node announces
// itself on the LAN with a multicast beacon, accepts device registrations
// over TCP and streams rendered frames to every registered LED tube over
// UDP. Shows are selected through the HTTP API or MQTT commands.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nerrad567/ledtube-core/internal/api"
	"github.com/nerrad567/ledtube-core/internal/audio"
	"github.com/nerrad567/ledtube-core/internal/auth"
	"github.com/nerrad567/ledtube-core/internal/device"
	"github.com/nerrad567/ledtube-core/internal/discovery"
	"github.com/nerrad567/ledtube-core/internal/dsp"
	"github.com/nerrad567/ledtube-core/internal/engine"
	"github.com/nerrad567/ledtube-core/internal/infrastructure/config"
	"github.com/nerrad567/ledtube-core/internal/infrastructure/database"
	"github.com/nerrad567/ledtube-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/ledtube-core/internal/infrastructure/logging"
	"github.com/nerrad567/ledtube-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/ledtube-core/internal/lightshow"
	"github.com/nerrad567/ledtube-core/internal/streamer"
	"github.com/nerrad567/ledtube-core/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// shutdownTimeout bounds engine shutdown after the signal.
const shutdownTimeout = 10 * time.Second

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var err error
	switch subcommand(os.Args) {
	case "hash-password":
		err = hashPassword(os.Stdin, os.Stdout)
	case "migrate":
		err = migrateCommand(ctx, os.Args[2:], os.Stdout)
	default:
		err = run(ctx)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1) //nolint:gocritic // cancel already called
	}
}

// subcommand returns the maintenance command named by args[1], or "" to run
// the controller.
func subcommand(args []string) string {
	if len(args) < 2 {
		return ""
	}
	switch args[1] {
	case "hash-password", "migrate":
		return args[1]
	}
	return ""
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting ledtube",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, source, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "source", source)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Device registry
	registry, closeDB, err := openRegistry(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeDB()

	// MQTT (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log.Component("mqtt"))
		mqttClient.SetOnConnect(func() { log.Info("MQTT reconnected") })
		mqttClient.SetOnDisconnect(func(err error) { log.Warn("MQTT disconnected", "error", err) })
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	// InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB, cfg.Node.ID)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Audio pipeline (optional)
	pipeline, err := buildAudio(cfg, log)
	if err != nil {
		return fmt.Errorf("building audio pipeline: %w", err)
	}
	if pipeline != nil && influxClient != nil && influxClient.WriteSpectrumEnabled() {
		pipeline.SetObserver(func(bands []float64) {
			influxClient.WriteSpectrum(bands, time.Now())
		})
	}

	// Engine
	eng, err := engine.New(engineDeps(cfg, registry, pipeline, log))
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if shutdownErr := eng.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error("engine shutdown incomplete", "error", shutdownErr)
		}
	}()

	hub := api.NewHub(cfg.WebSocket, log.Component("websocket"))
	eng.AddObserver(hub.Observe)
	go hub.Run(ctx)

	if influxClient != nil {
		eng.AddObserver(engine.TelemetryObserver(influxClient))
	}

	if mqttClient != nil {
		reporter, wireErr := wireMQTT(ctx, mqttClient, eng, log)
		if wireErr != nil {
			return wireErr
		}
		defer reporter.Stop()
	}

	// HTTP API (optional)
	if cfg.API.Enabled {
		srv, apiErr := startAPI(ctx, cfg, log, eng, registry, pipeline, mqttClient, hub)
		if apiErr != nil {
			return apiErr
		}
		defer func() {
			if closeErr := srv.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	}

	if err := autostart(ctx, cfg, eng, log); err != nil {
		return err
	}

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order: API, status reporter, engine,
	// InfluxDB, MQTT, database.
	return nil
}

// hashPassword reads a password line from r and writes its Argon2id hash
// for use as security.auth.password.
func hashPassword(r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("reading password: %w", err)
		}
		return errors.New("no password on stdin")
	}
	password := strings.TrimRight(scanner.Text(), "\r")
	if password == "" {
		return errors.New("password is empty")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, hash)
	return err
}

// loadConfig reads the file named by LEDTUBE_CONFIG, or configs/config.yaml.
// Without LEDTUBE_CONFIG a missing default file falls back to built-in defaults.
func loadConfig() (*config.Config, string, error) {
	if path := os.Getenv("LEDTUBE_CONFIG"); path != "" {
		cfg, err := config.Load(path)
		return cfg, path, err
	}

	if _, err := os.Stat(defaultConfigPath); errors.Is(err, os.ErrNotExist) {
		cfg := config.Default()
		return cfg, "built-in defaults", cfg.Validate()
	}
	cfg, err := config.Load(defaultConfigPath)
	return cfg, defaultConfigPath, err
}

// openRegistry builds the device registry on SQLite, or in memory when the
// database is disabled. The returned cleanup closes the database.
func openRegistry(ctx context.Context, cfg *config.Config, log *logging.Logger) (*device.Registry, func(), error) {
	if !cfg.Database.Enabled {
		log.Info("database disabled, device registry is in memory")
		registry := device.NewRegistry(device.NewMemoryRepository())
		registry.SetLogger(log.Component("registry"))
		return registry, func() {}, nil
	}

	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	closeDB := func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}
	log.Info("database connected", "path", cfg.Database.Path)

	if err := db.Migrate(ctx, migrations.FS); err != nil {
		closeDB()
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}
	if err := db.HealthCheck(ctx); err != nil {
		closeDB()
		return nil, nil, fmt.Errorf("database health check: %w", err)
	}

	registry := device.NewRegistry(device.NewSQLiteRepository(db.DB))
	registry.SetLogger(log.Component("registry"))
	if err := registry.RefreshCache(ctx); err != nil {
		closeDB()
		return nil, nil, fmt.Errorf("loading device registry: %w", err)
	}
	log.Info("device registry initialised", "devices", registry.Count())

	return registry, closeDB, nil
}

// buildAudio creates the audio pipeline, or returns nil when audio is disabled.
func buildAudio(cfg *config.Config, log *logging.Logger) (*audio.Pipeline, error) {
	a := cfg.Audio
	if !a.Enabled {
		log.Info("audio disabled, music shows unavailable")
		return nil, nil
	}

	pcfg := audio.Config{
		Filterbank: dsp.FilterbankConfig{
			NumMelBands: a.NumMelBands,
			FreqMin:     a.FreqMin,
			FreqMax:     a.FreqMax,
			NumFFTBins:  a.NumFFTBins,
			SampleRate:  a.SampleRate,
		},
		FPS: a.AnalysisFPS,
	}

	var source audio.Source
	switch a.Source {
	case "wav":
		wavSource, err := audio.OpenWAV(a.WAVPath, 2*a.NumFFTBins, a.Loop)
		if err != nil {
			return nil, err
		}
		log.Info("audio source: wav", "path", a.WAVPath, "duration", wavSource.Duration())
		source = wavSource
	case "command":
		cmdSource, err := audio.NewCommandSource(audio.CommandConfig{
			Binary: a.Command[0],
			Args:   a.Command[1:],
			Window: 2 * a.NumFFTBins,
		})
		if err != nil {
			return nil, err
		}
		cmdSource.SetLogger(log.Component("capture"))
		log.Info("audio source: command", "command", a.Command)
		source = cmdSource
	default:
		log.Warn("audio source is none, music shows stay dark until samples are fed")
		source = audio.NewFeedSource()
	}

	pipeline, err := audio.NewPipeline(pcfg, source)
	if err != nil {
		return nil, err
	}
	pipeline.SetLogger(log.Component("audio"))
	return pipeline, nil
}

// engineDeps maps configuration onto the engine.
func engineDeps(cfg *config.Config, registry *device.Registry, pipeline *audio.Pipeline, log *logging.Logger) engine.Deps {
	d := cfg.Discovery
	deps := engine.Deps{
		NodeID:   cfg.Node.ID,
		Registry: registry,
		Beacon: discovery.BeaconConfig{
			Group:     d.MulticastGroup,
			Port:      d.MulticastPort,
			Interval:  cfg.BeaconInterval(),
			TTL:       d.MulticastTTL,
			Interface: d.Interface,
		},
		Listener: discovery.ListenerConfig{
			Port:        d.RegistrationPort,
			Interval:    cfg.RegistrationInterval(),
			ReadTimeout: cfg.RegistrationReadTimeout(),
		},
		Streamer:    streamer.Config{StatsWindow: cfg.StatsWindow()},
		DefaultShow: lightshow.Kind(cfg.Streamer.DefaultShow),
		ShowParams:  showParams(cfg.Shows),
		Logger:      log.Component("engine"),
	}
	// Leave the interfaces nil, not typed-nil, when audio is off.
	if pipeline != nil {
		deps.Spectrum = pipeline
		deps.Audio = pipeline
	}
	return deps
}

// showParams converts the shows section into generator parameters.
func showParams(s config.ShowsConfig) lightshow.Params {
	return lightshow.Params{
		Pulsating: lightshow.PulsatingParams{
			MillisPerPulse: s.Pulsating.MillisPerPulse,
			MinIntensity:   lightshow.Intensity(s.Pulsating.MinIntensity),
		},
		PingPong: lightshow.PingPongParams{
			MillisPerPulse:      s.PingPong.MillisPerPulse,
			MillisPerColorCycle: s.PingPong.MillisPerColorCycle,
			TailFade:            s.PingPong.TailFade,
		},
	}
}

// wireMQTT forwards engine events to the broker, subscribes the command
// handler and starts the status reporter.
func wireMQTT(ctx context.Context, client *mqtt.Client, eng *engine.Engine, log *logging.Logger) (*engine.StatusReporter, error) {
	mlog := log.Component("mqtt")
	eng.AddObserver(engine.EventPublisher(client, mlog))

	commands := engine.NewCommandHandler(eng, mlog)
	topic := mqtt.Topics{}.AllCommands()
	if err := client.Subscribe(topic, 1, commands.Handle); err != nil {
		return nil, fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	log.Info("listening for MQTT commands", "topic", topic)

	reporter := engine.NewStatusReporter(engine.StatusReporterConfig{
		Source:    eng,
		Publisher: client,
		Version:   version,
	})
	reporter.SetLogger(mlog)
	reporter.Start(ctx)
	return reporter, nil
}

// startAPI creates and starts the HTTP API server.
func startAPI(
	ctx context.Context,
	cfg *config.Config,
	log *logging.Logger,
	eng *engine.Engine,
	registry *device.Registry,
	pipeline *audio.Pipeline,
	mqttClient *mqtt.Client,
	hub *api.Hub,
) (*api.Server, error) {
	deps := api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Security:    cfg.Security,
		Logger:      log.Component("api"),
		Engine:      eng,
		Registry:    registry,
		ExternalHub: hub,
		Version:     version,
	}
	if pipeline != nil {
		deps.Spectrum = pipeline
	}
	if mqttClient != nil {
		deps.MQTT = mqttClient
	}

	srv, err := api.New(deps)
	if err != nil {
		return nil, fmt.Errorf("creating API server: %w", err)
	}
	if err := srv.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting API server: %w", err)
	}
	return srv, nil
}

// autostart starts discovery and streaming when configured to.
func autostart(ctx context.Context, cfg *config.Config, eng *engine.Engine, log *logging.Logger) error {
	if cfg.Discovery.Autostart {
		if err := eng.StartDiscovery(ctx); err != nil {
			return fmt.Errorf("starting discovery: %w", err)
		}
		log.Info("discovery started")
	}
	if cfg.Streamer.Autostart {
		if err := eng.StartStreaming(ctx); err != nil {
			return fmt.Errorf("starting streamer: %w", err)
		}
		log.Info("streaming started", "show", cfg.Streamer.DefaultShow)
	}
	return nil
}
