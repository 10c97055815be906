package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/sweeney/growbox/internal/actuator"
	"github.com/sweeney/growbox/internal/clock"
	"github.com/sweeney/growbox/internal/config"
	"github.com/sweeney/growbox/internal/control"
	"github.com/sweeney/growbox/internal/gpio"
	"github.com/sweeney/growbox/internal/menu"
	"github.com/sweeney/growbox/internal/mqtt"
	"github.com/sweeney/growbox/internal/panel"
	"github.com/sweeney/growbox/internal/sensors"
	"github.com/sweeney/growbox/internal/status"
	"github.com/sweeney/growbox/internal/store"
	"github.com/sweeney/growbox/internal/web"
)

var (
	runPanel  bool
	runDryRun bool
	logFile   string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the controller",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return run(cfg, runPanel, runDryRun)
	},
}

func init() {
	runCmd.Flags().BoolVar(&runPanel, "panel", false, "Show the terminal front panel")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Log output changes instead of driving GPIO")
	runCmd.Flags().StringVar(&logFile, "log-file", "", "Write logs here (with --panel logs are discarded when empty)")
}

func run(cfg *config.Config, withPanel, dryRun bool) error {
	if err := setupLogging(withPanel); err != nil {
		return err
	}

	// Initialize outputs
	var writer gpio.Writer
	if dryRun {
		writer = gpio.NewLogWriter()
	} else {
		w, err := gpio.NewRealWriter(cfg.GPIO.Chip, cfg.GPIO.Pins(), cfg.GPIO.ActiveLow)
		if err != nil {
			return fmt.Errorf("init gpio: %w", err)
		}
		writer = w
	}
	defer writer.Close()

	// Initialize settings store
	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open settings db: %w", err)
	}
	defer db.Close()

	// Initialize MQTT
	publisher, err := mqtt.NewRealPublisher(mqtt.Options{
		Broker:     cfg.MQTT.Broker,
		ClientID:   cfg.MQTT.ClientID,
		Username:   cfg.MQTT.Username,
		Password:   cfg.MQTT.Password,
		Topics:     mqtt.TopicsFor(cfg.MQTT.TopicPrefix),
		BufferSize: cfg.MQTT.BufferSize,
	})
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	source, err := sensors.NewMQTTSource(publisher, cfg.MQTT.ReadingsTopic, cfg.MQTT.SensorMaxAge, time.Now)
	if err != nil {
		return fmt.Errorf("init sensors: %w", err)
	}

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), uuid.NewString(), status.Config{
		SensorPollMs: int64(cfg.Timing.SensorPollMs),
		HeartbeatMs:  cfg.Timing.Heartbeat.Milliseconds(),
		FlowRate:     cfg.Pump.FlowRateMlPerMin,
		Broker:       cfg.MQTT.Broker,
		HTTPAddr:     cfg.HTTP.Addr,
		Database:     cfg.Database.Path,
		DryRun:       dryRun,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	clk := clock.NewSystemClock()
	loop := control.New(control.Deps{
		Clock:           clk,
		Wall:            clock.NewWall(nil),
		Actuators:       actuator.NewManager(writer, clk, cfg.Pump.FlowRateMlPerMin),
		Sensors:         source,
		Store:           db,
		Publisher:       publisher,
		Connection:      publisher,
		Tracker:         tracker,
		Network:         readNetworkInfo,
		Cadences:        cadences(cfg.Timing),
		ErrorDebounceMs: cfg.Timing.ErrorDebounceMs,
		TankHeightCm:    cfg.Tank.HeightCm,
	})
	loop.Start()

	// Publish startup event with full status snapshot
	tracker.SetMQTTConnected(publisher.IsConnected())
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	// Start HTTP status server
	if cfg.HTTP.Addr != "" {
		srv := web.NewWithLimit(cfg.HTTP.Addr, tracker, rate.Limit(cfg.HTTP.RateLimitPerSec), cfg.HTTP.RateLimitBurst)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP.Addr)
	}

	log.Printf("started: loop=%v broker=%s heartbeat=%v flow=%dmL/min dry-run=%v",
		cfg.Timing.Loop, cfg.MQTT.Broker, cfg.Timing.Heartbeat, cfg.Pump.FlowRateMlPerMin, dryRun)

	ticker := time.NewTicker(cfg.Timing.Loop)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	inputs := make(chan menu.Event, 16)
	if withPanel {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			if err := panel.Run(ctx, inputs, tracker); err != nil {
				log.Printf("panel error: %v", err)
			}
			// Closing the panel stops the daemon, like Ctrl-C.
			select {
			case sigCh <- syscall.SIGINT:
			default:
			}
		}()
	}

	return runLoop(loop, publisher, publisher, tracker, ticker.C, sigCh, inputs)
}

func setupLogging(withPanel bool) error {
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		log.SetOutput(f)
		return nil
	}
	if withPanel {
		// The panel owns the terminal.
		log.SetOutput(io.Discard)
	}
	return nil
}

func cadences(t config.TimingConfig) control.Cadences {
	return control.Cadences{
		SensorPollMs: t.SensorPollMs,
		LightMs:      t.LightMs,
		FanMs:        t.FanMs,
		ScheduleMs:   t.ScheduleMs,
		SoilMs:       t.SoilMs,
		ErrorCheckMs: t.ErrorCheckMs,
		DisplayMs:    t.DisplayMs,
		HeartbeatMs:  clock.Milliseconds(t.Heartbeat),
	}
}

func runLoop(loop *control.Loop, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, tick <-chan time.Time, sig <-chan os.Signal, input <-chan menu.Event) error {
	ctx := context.Background()

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}

			loop.Shutdown()

			if mqttStatus != nil {
				tracker.SetMQTTConnected(mqttStatus.IsConnected())
			}
			snap := tracker.Snapshot()
			event := mqtt.SystemEvent{
				Timestamp:  snap.Now,
				Event:      "SHUTDOWN",
				Reason:     signalName,
				Retained:   true,
				RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", signalName),
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case <-tick:
			loop.Tick(ctx)

		case ev := <-input:
			loop.HandleInput(ev)
		}
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
