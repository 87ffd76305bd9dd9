// StayFlow Core - lodging operations engine.
//
// This is the main entry point for the StayFlow Core service. It wires the
// stay lifecycle, housekeeping and guest messaging engines to SQLite, the
// REST/WebSocket API, the outbound message worker and the optional MQTT and
// InfluxDB sinks.
//
// Usage:
//
//	stayflow                 run the service
//	stayflow token [flags]   mint a staff access token
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/nerrad567/stayflow-core/internal/api"
	"github.com/nerrad567/stayflow-core/internal/audit"
	"github.com/nerrad567/stayflow-core/internal/automation"
	"github.com/nerrad567/stayflow-core/internal/clock"
	"github.com/nerrad567/stayflow-core/internal/dispatch"
	"github.com/nerrad567/stayflow-core/internal/events"
	"github.com/nerrad567/stayflow-core/internal/infrastructure/config"
	"github.com/nerrad567/stayflow-core/internal/infrastructure/database"
	"github.com/nerrad567/stayflow-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/stayflow-core/internal/infrastructure/logging"
	"github.com/nerrad567/stayflow-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/stayflow-core/internal/lodging/housekeeping"
	"github.com/nerrad567/stayflow-core/internal/lodging/stay"
	"github.com/nerrad567/stayflow-core/internal/property"
	"github.com/nerrad567/stayflow-core/internal/store"
	"github.com/nerrad567/stayflow-core/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	defaultConfigPath = "configs/config.yaml"
	configEnvVar      = "STAYFLOW_CONFIG"
)

func main() {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	if len(os.Args) > 1 && os.Args[1] == "token" {
		if err := runToken(os.Args[2:], os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// It blocks until ctx is cancelled and returns nil on clean shutdown.
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // linear startup sequence
	log := logging.Default()
	log.Info("starting StayFlow Core",
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
	defer log.Close() //nolint:errcheck // shutdown
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	dir, err := property.NewDirectory(cfg.Site)
	if err != nil {
		return fmt.Errorf("loading properties: %w", err)
	}
	log.Info("properties loaded", "properties", dir.IDs(), "default", dir.DefaultID())

	db, err := database.Open(database.Config{
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

	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	auditRepo := audit.NewSQLiteRepository(db.DB)
	st := store.NewSQLiteStore(db.DB, clock.System{}, auditRepo)

	// Optional sinks
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
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
	} else {
		log.Info("MQTT disabled")
	}

	influxClient, err := influxdb.Connect(cfg.InfluxDB)
	switch {
	case errors.Is(err, influxdb.ErrDisabled):
		log.Info("InfluxDB disabled")
	case err != nil:
		return fmt.Errorf("connecting to InfluxDB: %w", err)
	default:
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	}

	// Event fan-out. The hub exists before the server so the bus and the
	// engines can be built first.
	hub := api.NewHub(cfg.WebSocket, log)
	busOpts := []events.Option{events.WithBroadcaster(hub), events.WithLogger(log)}
	if mqttClient != nil {
		busOpts = append(busOpts, events.WithMQTT(mqttClient))
	}
	if influxClient != nil {
		busOpts = append(busOpts, events.WithMetrics(influxClient))
	}
	bus := events.NewBus(busOpts...)
	busDone := make(chan struct{})
	busCtx, stopBus := context.WithCancel(context.Background())
	go func() {
		bus.Run(busCtx)
		close(busDone)
	}()
	defer func() {
		stopBus()
		<-busDone
	}()

	scheduler := automation.NewScheduler(st, automationConfig(cfg.Automation), dir, log)
	stays := stay.New(st, scheduler,
		stay.WithPublisher(bus),
		stay.WithLogger(log),
		stay.WithCalendar(dir),
		stay.WithAccessCodeRetries(cfg.Automation.AccessCodeRetries),
	)
	hk := housekeeping.New(st,
		housekeeping.WithPublisher(bus),
		housekeeping.WithLogger(log),
	)

	srv, err := api.New(api.Deps{
		Config:       cfg.API,
		WS:           cfg.WebSocket,
		Security:     cfg.Security,
		Logger:       log,
		Properties:   dir,
		Stays:        stays,
		Housekeeping: hk,
		Automation:   scheduler,
		Audit:        auditRepo,
		Hub:          hub,
		Version:      version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := srv.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	jobs, err := scheduleJobs(ctx, cfg, dir, scheduler, stays, bus, log)
	if err != nil {
		return err
	}
	jobs.Start()
	defer func() {
		log.Info("stopping scheduled jobs")
		<-jobs.Stop().Done()
	}()

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		log.Warn("initial health check failed", "error", err)
	}

	log.Info("StayFlow Core started successfully")

	<-ctx.Done()
	log.Info("shutdown signal received, stopping services")

	return nil
}

// getConfigPath returns the configuration file path from the environment
// or the default.
func getConfigPath() string {
	if path := os.Getenv(configEnvVar); path != "" {
		return path
	}
	return defaultConfigPath
}

func automationConfig(c config.AutomationConfig) automation.Config {
	realTime := make([]automation.TriggerEvent, 0, len(c.RealTimeEvents))
	for _, ev := range c.RealTimeEvents {
		realTime = append(realTime, automation.TriggerEvent(ev))
	}
	return automation.Config{
		QuietHours: automation.QuietHours{
			Enabled: c.QuietHours.Enabled,
			Start:   c.QuietHours.Start,
			End:     c.QuietHours.End,
		},
		RealTimeEvents: realTime,
		Links: automation.Links{
			PortalBaseURL: c.PortalBaseURL,
			SurveyBaseURL: c.SurveyBaseURL,
		},
	}
}

// scheduleJobs registers the dispatch worker and the reminder sweep.
// Jobs run with ctx so an in-flight run stops on shutdown.
func scheduleJobs(ctx context.Context, cfg *config.Config, dir *property.Directory, queue dispatch.Queue,
	stays *stay.Manager, metrics dispatch.Metrics, log *logging.Logger,
) (*cron.Cron, error) {
	c := cron.New()

	if cfg.Dispatch.Enabled {
		worker, err := newDispatchWorker(cfg.Dispatch, dir, queue, metrics, log)
		if err != nil {
			return nil, err
		}
		if _, err := c.AddFunc(cfg.Dispatch.Schedule, func() {
			res, runErr := worker.RunOnce(ctx)
			if runErr != nil {
				log.Error("dispatch run failed", "error", runErr)
			}
			if res.Sent+res.Failed+res.Deferred > 0 {
				log.Info("dispatch run complete", "sent", res.Sent, "failed", res.Failed, "deferred", res.Deferred)
			}
		}); err != nil {
			return nil, fmt.Errorf("scheduling dispatch: %w", err)
		}
		log.Info("message dispatch scheduled", "schedule", cfg.Dispatch.Schedule)
	} else {
		log.Info("message dispatch disabled")
	}

	if cfg.Reminders.Enabled {
		if _, err := c.AddFunc(cfg.Reminders.Schedule, func() {
			for _, pid := range dir.IDs() {
				n, sweepErr := stays.SendPreArrivalReminders(ctx, pid)
				if sweepErr != nil {
					log.Error("pre-arrival reminder sweep failed", "property_id", pid, "error", sweepErr)
					continue
				}
				if n > 0 {
					log.Info("pre-arrival reminders queued", "property_id", pid, "count", n)
				}
			}
		}); err != nil {
			return nil, fmt.Errorf("scheduling reminders: %w", err)
		}
		log.Info("pre-arrival reminders scheduled", "schedule", cfg.Reminders.Schedule)
	}

	return c, nil
}

// newDispatchWorker builds the worker with a breaker-guarded transport per
// configured channel. A channel without credentials has no sender, so its
// messages stay pending.
func newDispatchWorker(cfg config.DispatchConfig, dir *property.Directory, queue dispatch.Queue,
	metrics dispatch.Metrics, log *logging.Logger,
) (*dispatch.Worker, error) {
	breaker := dispatch.BreakerSettings{
		MaxFailures: cfg.Breaker.MaxFailures,
		Timeout:     time.Duration(cfg.Breaker.Timeout) * time.Second,
	}
	opts := []dispatch.Option{
		dispatch.WithBatchSize(cfg.BatchSize),
		dispatch.WithMetrics(metrics),
		dispatch.WithLogger(log),
	}

	if cfg.Twilio.AccountSID != "" {
		tw, err := dispatch.NewTwilioSender(cfg.Twilio)
		if err != nil {
			return nil, fmt.Errorf("configuring twilio: %w", err)
		}
		opts = append(opts, dispatch.WithSender(automation.ChannelWhatsApp, dispatch.Guard("twilio", tw, breaker, log)))
	} else {
		log.Warn("twilio not configured, whatsapp messages will stay pending")
	}

	if cfg.SendGrid.APIKey != "" {
		sg, err := dispatch.NewSendGridSender(cfg.SendGrid)
		if err != nil {
			return nil, fmt.Errorf("configuring sendgrid: %w", err)
		}
		opts = append(opts, dispatch.WithSender(automation.ChannelEmail, dispatch.Guard("sendgrid", sg, breaker, log)))
	} else {
		log.Warn("sendgrid not configured, e-mail messages will stay pending")
	}

	return dispatch.NewWorker(queue, dir.IDs, opts...), nil
}

// healthCheck verifies all infrastructure connections are healthy.
// Optional clients that are nil are skipped.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
