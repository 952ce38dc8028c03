// Homepanel Core - multi-house smart home control service
//
// This is the main entry point for the Homepanel Core application.
// It serves the REST and WebSocket API, persists houses, rooms, devices
// and accounts in SQLite, and optionally mirrors domain events to MQTT and
// device telemetry to InfluxDB.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/nerrad567/homepanel-core/migrations"

	"github.com/nerrad567/homepanel-core/internal/api"
	"github.com/nerrad567/homepanel-core/internal/audit"
	"github.com/nerrad567/homepanel-core/internal/broadcast"
	"github.com/nerrad567/homepanel-core/internal/device"
	"github.com/nerrad567/homepanel-core/internal/infrastructure/config"
	"github.com/nerrad567/homepanel-core/internal/infrastructure/database"
	"github.com/nerrad567/homepanel-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/homepanel-core/internal/infrastructure/logging"
	"github.com/nerrad567/homepanel-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/homepanel-core/internal/room"
	"github.com/nerrad567/homepanel-core/internal/user"
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

// run is the application logic, separated from main for testability.
// It returns nil on a clean shutdown after ctx is cancelled.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Homepanel Core",
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

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

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

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	checks := map[string]api.HealthChecker{"database": db}

	// Event fan-out: WebSocket clients always, MQTT when enabled.
	hub := api.NewHub(cfg.WebSocket, log)
	sink := broadcast.Fanout{hub}

	if cfg.MQTT.Enabled {
		mqttClient, mqttErr := mqtt.Connect(cfg.MQTT)
		if mqttErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", mqttErr)
		}
		mqttClient.SetLogger(log)
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttSink := broadcast.NewMQTTSink(mqttClient, mqttClient.Topics(), mqttClient.QoS(), cfg.MQTT.QueueSize, log)
		sinkCtx, stopSink := context.WithCancel(ctx)
		go mqttSink.Run(sinkCtx)
		defer func() {
			stopSink()
			<-mqttSink.Done()
		}()

		sink = append(sink, mqttSink)
		checks["mqtt"] = mqttClient
	} else {
		log.Info("MQTT disabled")
	}

	// Domain services
	deviceRepo := device.NewSQLiteRepository(db.DB)
	auditRepo := audit.NewSQLiteRepository(db.DB)

	devices := device.NewService(deviceRepo, auditRepo, sink)
	devices.SetLogger(log)

	rooms := room.NewService(room.NewSQLiteRepository(db.DB), devices, deviceRepo, auditRepo, sink)
	rooms.SetLogger(log)

	users := user.NewService(user.NewSQLiteRepository(db.DB), auditRepo, sink)
	users.SetLogger(log)

	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(cfg.InfluxDB)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
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

		devices.SetTelemetry(influxClient)
		rooms.SetTelemetry(influxClient)
		checks["influxdb"] = influxClient
	} else {
		log.Info("InfluxDB disabled")
	}

	if cfg.Reconciler.Enabled {
		sweeper, sweepErr := room.NewSweeper(rooms, cfg.Reconciler.Schedule)
		if sweepErr != nil {
			return fmt.Errorf("creating room reconciler: %w", sweepErr)
		}
		sweeper.SetLogger(log)
		sweeper.Start(ctx)
		defer func() {
			log.Info("stopping room reconciler")
			sweeper.Stop()
		}()
		log.Info("room reconciler started", "schedule", cfg.Reconciler.Schedule)
	}

	server, err := api.New(api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Security: cfg.Security,
		Logger:   log,
		Devices:  devices,
		Rooms:    rooms,
		Users:    users,
		Audit:    audit.NewService(auditRepo),
		Hub:      hub,
		Checks:   checks,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if err := healthCheck(ctx, checks); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred functions run in reverse order: API server, reconciler,
	// InfluxDB, MQTT sink drain, MQTT, database.

	log.Info("Homepanel Core stopped")
	return nil
}

func getConfigPath() string {
	if path := os.Getenv("HOMEPANEL_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck runs every startup check once.
func healthCheck(ctx context.Context, checks map[string]api.HealthChecker) error {
	for _, name := range []string{"database", "mqtt", "influxdb"} {
		c, ok := checks[name]
		if !ok {
			continue
		}
		if err := c.HealthCheck(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
