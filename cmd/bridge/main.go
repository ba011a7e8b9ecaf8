package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	adactor "github.com/wurmreem/dbus-shelly-2pmPlus-pvinverter/internal/adapter/actor"
	"github.com/wurmreem/dbus-shelly-2pmPlus-pvinverter/internal/config"
	"github.com/wurmreem/dbus-shelly-2pmPlus-pvinverter/internal/core/actor"
	"github.com/wurmreem/dbus-shelly-2pmPlus-pvinverter/internal/core/domain"
	"github.com/wurmreem/dbus-shelly-2pmPlus-pvinverter/internal/metrics"
	"github.com/wurmreem/dbus-shelly-2pmPlus-pvinverter/internal/server"
	"github.com/wurmreem/dbus-shelly-2pmPlus-pvinverter/internal/util/actorutil"
	"github.com/wurmreem/dbus-shelly-2pmPlus-pvinverter/pkg/shelly"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Println("shutting down gracefully, press Ctrl+C again to force")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {

	// load and print config
	cfg, err := initConfig()
	if err != nil {
		slog.Error("config errors", "error", err)
		return
	}
	safePrintConfig(*cfg)

	// zap logger
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	if cfg.LogFile != "" {
		zapCfg.OutputPaths = append(zapCfg.OutputPaths, cfg.LogFile)
	}

	logger := zap.Must(zapCfg.Build())

	// init actor system
	as := actorutil.NewActorSystemWithZapLogger(logger)
	ctx := as.Root

	defer logger.Sync()

	// metrics registry
	registry := prometheus.NewRegistry()
	bridgeMetrics := metrics.New(registry)

	// init Shelly actor provider
	shellyProv, err := shellyActorProvider(cfg, bridgeMetrics, logger)
	if err != nil {
		panic(err)
	}

	props := pactor.PropsFromProducer(func() pactor.Actor {
		return actor.NewMasterOfPuppetsActor(*cfg, shellyProv, mqttActorProvider(cfg, logger), bridgeMetrics, logger)
	})
	pid, err := ctx.SpawnNamed(props, "master")
	if err != nil {
		return
	}

	server := server.NewServer(*cfg, ctx, pid, registry)
	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(server, done)

	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Println("Graceful shutdown complete.")

	ctx.Stop(pid)
	as.Shutdown()
}

func initConfig() (*config.Config, error) {

	// alias PORT => SHELLYPV_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("SHELLYPV_PORT", port)
	}

	setConfigDefaults()

	viper.SetEnvPrefix("shellypv")
	viper.AutomaticEnv()

	// if defined, try to load config from yaml file
	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			slog.Info("Using config", "file", cfgFile)
			viper.SetConfigFile(cfgFile)

			err = viper.ReadInConfig()
			if err != nil {
				slog.Error("Error reading config file", "error", err)
			}
		}
	}

	var cfg config.Config

	err := viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	// parse log level
	switch viper.GetString("log_level") {
	case "trace":
		cfg.LogLevel = zap.DebugLevel
	case "debug":
		cfg.LogLevel = zap.DebugLevel
	case "info":
		cfg.LogLevel = zap.InfoLevel
	case "error":
		cfg.LogLevel = zap.ErrorLevel
	case "warn":
		cfg.LogLevel = zap.WarnLevel
	case "fatal":
		cfg.LogLevel = zap.FatalLevel
	default:
		cfg.LogLevel = zap.InfoLevel
	}

	// check and fix base topic
	baseTopic, err := config.CheckMQTTTopic(cfg.MQTT.BaseTopic)
	if err != nil {
		return nil, errors.New("invalid base topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.BaseTopic = baseTopic

	// check device access
	if err := config.CheckAccessType(cfg.Device.AccessType); err != nil {
		return nil, err
	}
	if cfg.Device.Host == "" {
		return nil, errors.New("config param device.host is required")
	}
	if cfg.Device.Variant != shelly.VariantGen1 && cfg.Device.Variant != shelly.VariantGen2 {
		return nil, &shelly.UnsupportedVariantError{Variant: cfg.Device.Variant}
	}
	if cfg.Device.MeterInput < 0 {
		return nil, errors.New("config param device.meter_input should be >= 0")
	}

	// check inverter params
	if _, err := domain.ParsePhase(cfg.PVInverter.Phase); err != nil {
		return nil, err
	}
	if cfg.PVInverter.DeviceInstance < 0 {
		return nil, errors.New("config param pvinverter.device_instance should be >= 0")
	}

	// check bounds
	if cfg.MonitorConfig.PollIntervalMillis < 100 {
		return nil, errors.New("config param monitor.poll_interval_millis should be >= 100")
	}
	if cfg.MonitorConfig.SignOfLifeIntervalMinutes < 1 {
		return nil, errors.New("config param monitor.sign_of_life_interval_minutes should be >= 1")
	}

	return &cfg, nil
}

func shellyActorProvider(cfg *config.Config, bridgeMetrics *metrics.BridgeMetrics, logger *zap.Logger) (actor.ShellyActorProvider, error) {

	reader, err := shelly.CreateMeterReader(cfg.Device.Variant, shelly.AccessConfig{
		Host:     cfg.Device.Host,
		Username: cfg.Device.Username,
		Password: cfg.Device.Password,
	}, cfg.Device.MeterInput, 1*time.Second, logger, bridgeMetrics.HTTPInstrument())

	if err != nil {
		return nil, err
	}

	return func() *adactor.ShellyActor {
		return adactor.NewShellyActor(reader, logger)
	}, nil
}

func mqttActorProvider(cfg *config.Config, logger *zap.Logger) actor.MQTTActorProvider {
	return func(eventStream *eventstream.EventStream) *adactor.MQTTActor {
		return adactor.NewMQTTActor(cfg, eventStream, logger)
	}
}

func setConfigDefaults() {
	viper.SetDefault("log_level", "info")
	viper.SetDefault("mqtt.base_topic", "shellypv")
	viper.SetDefault("device.access_type", config.AccessTypeOnPremise)
	viper.SetDefault("device.variant", shelly.VariantGen1)
	viper.SetDefault("device.meter_input", 0)
	viper.SetDefault("pvinverter.phase", "L1")
	viper.SetDefault("pvinverter.device_instance", 40)
	viper.SetDefault("pvinverter.custom_name", "Shelly PV inverter")
	viper.SetDefault("monitor.poll_interval_millis", 250)
	viper.SetDefault("monitor.sign_of_life_interval_minutes", 5)
	viper.SetDefault("port", 8080)
}

func safePrintConfig(cfg config.Config) {
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	cfg.Device.Password = "*redacted*"
	slog.Info("Using", "config", cfg)
}
