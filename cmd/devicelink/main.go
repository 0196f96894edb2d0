// devicelink - Device Integration Engine
//
// This is the main entry point for the devicelink service. It connects
// wearables, smart home hubs and companion apps to the habit tracking
// backend: pairing devices, syncing their metrics on a schedule, and
// turning metric thresholds, geofence crossings and habit events into
// actions.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/pulsehabit/devicelink/migrations"

	"github.com/pulsehabit/devicelink/internal/api"
	"github.com/pulsehabit/devicelink/internal/capability"
	"github.com/pulsehabit/devicelink/internal/engine"
	"github.com/pulsehabit/devicelink/internal/infrastructure/config"
	"github.com/pulsehabit/devicelink/internal/infrastructure/database"
	"github.com/pulsehabit/devicelink/internal/infrastructure/influxdb"
	"github.com/pulsehabit/devicelink/internal/infrastructure/logging"
	"github.com/pulsehabit/devicelink/internal/infrastructure/mqtt"
	"github.com/pulsehabit/devicelink/internal/store"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting devicelink",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)

	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Connect to the MQTT broker. The broker carries smart home
	// commands and doubles as the connectivity signal; the engine still
	// runs without it, queuing actions offline.
	var broker *mqtt.Client
	if cfg.MQTT.Enabled {
		broker, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			log.Warn("MQTT broker unreachable, starting offline", "error", err)
			broker = nil
		} else {
			defer broker.Disconnect()
			log.Info("MQTT connected",
				"host", cfg.MQTT.Broker.Host,
				"port", cfg.MQTT.Broker.Port,
			)
		}
	}

	caps := &capability.HostProvider{
		BluetoothSysfsPath: cfg.Capabilities.BluetoothSysfsPath,
		LocationEnabled:    cfg.Capabilities.LocationEnabled,
		ProbeTimeout:       time.Duration(cfg.Capabilities.ProbeTimeoutSeconds) * time.Second,
	}

	eng := engine.New(cfg, store.NewSQLiteStore(db.DB), broker, caps)
	eng.SetLogger(log)

	// Optional time-series history sink.
	if history, histErr := influxdb.Connect(cfg.InfluxDB); histErr == nil {
		defer history.Close() //nolint:errcheck
		history.SetErrorCallback(func(err error) {
			log.Warn("influxdb write error", "error", err)
		})
		eng.SetHistoryWriter(history)
		log.Info("influxdb history sink connected", "url", cfg.InfluxDB.URL)
	} else if !errors.Is(histErr, influxdb.ErrDisabled) {
		log.Warn("influxdb unavailable, history disabled", "error", histErr)
	}

	if err := eng.Load(ctx); err != nil {
		return fmt.Errorf("loading engine state: %w", err)
	}
	log.Info("engine state loaded",
		"devices", eng.Registry.Count(),
		"queued_actions", eng.Queue.Len(),
	)

	server, err := api.New(api.Deps{
		Config:  cfg.API,
		Logger:  log,
		Engine:  eng,
		Version: version,
	})
	if err != nil {
		return fmt.Errorf("creating api server: %w", err)
	}
	eng.SetEventHub(server.EventHub())

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting api server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error stopping api server", "error", closeErr)
		}
	}()

	log.Info("devicelink ready",
		"api", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
		"sync_tick_seconds", cfg.Sync.TickSeconds,
	)

	// Blocks until the context is cancelled by a shutdown signal.
	if err := eng.Run(ctx); err != nil {
		return fmt.Errorf("engine stopped: %w", err)
	}

	log.Info("shutting down")
	return nil
}

// getConfigPath returns the config file path from argv or the default.
func getConfigPath() string {
	if len(os.Args) > 1 {
		return os.Args[1]
	}
	if env := os.Getenv("DEVICELINK_CONFIG"); env != "" {
		return env
	}
	return defaultConfigPath
}
