// cmd/camsamplerd/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	osignal "os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/colebrumley/camsampler/internal/bus"
	"github.com/colebrumley/camsampler/internal/camera"
	"github.com/colebrumley/camsampler/internal/capture"
	"github.com/colebrumley/camsampler/internal/config"
	"github.com/colebrumley/camsampler/internal/expr"
	"github.com/colebrumley/camsampler/internal/history"
	"github.com/colebrumley/camsampler/internal/logging"
	"github.com/colebrumley/camsampler/internal/sampler"
	"github.com/colebrumley/camsampler/internal/signal"
	"github.com/colebrumley/camsampler/internal/upload"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "Path to YAML config file")
	flag.String("stream", "", "ID or name of the camera stream")
	flag.String("out-dir", "", "Directory to save images locally")
	flag.String("upload-dir", "", "Spool directory for the platform uploader; empty disables upload")
	flag.String("history-db", "", "Path to the SQLite capture history; empty disables recording")
	flag.String("condition", "", "Triggering condition over dotted signal names")
	flag.Int("cooldown", 0, "Cooldown in seconds after a trigger")
	flag.Int("interval", 0, "Sampling interval in seconds (periodic mode)")
	flag.String("schedule", "", "Cron schedule with seconds field (periodic mode, overrides interval)")
	flag.Int("retry", 0, "Frame fetch attempts per capture")
	flag.Int("timeout", 0, "Per-attempt frame fetch timeout in seconds")
	flag.Int("quality", 0, "JPEG quality, 1-100")
	flag.String("broker", "", "MQTT broker URL")
	flag.String("log-format", "", "Log format: text or json")
	flag.String("log-level", "", "Log level: debug, info, warn, error")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	applyFlags(cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := logging.NewLogger(cfg.Logging.Format, cfg.Logging.Level, os.Stdout)

	// Compile the trigger expression before touching the network so a bad
	// condition fails immediately, not on the first message.
	var condition *expr.Expr
	if cfg.Condition != "" {
		condition, err = expr.Parse(signal.NormalizeExpression(cfg.Condition))
		if err != nil {
			return fmt.Errorf("invalid condition: %w", err)
		}
	}

	if cfg.OutDir != "" {
		if err := os.MkdirAll(cfg.OutDir, 0755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}

	var sink upload.Sink
	if cfg.UploadDir != "" {
		spool, err := upload.NewSpool(cfg.UploadDir, logger)
		if err != nil {
			return err
		}
		sink = spool
	}

	var hist *history.DB
	if cfg.HistoryDB != "" {
		hist, err = history.Open(cfg.HistoryDB)
		if err != nil {
			logger.Warn("failed to open history database, captures will not be recorded", "error", err)
		} else {
			defer hist.Close()
		}
	}

	client, err := bus.Dial(bus.DialConfig{
		Broker:   cfg.Broker.URL,
		ClientID: cfg.Broker.ClientID,
		Username: cfg.Broker.Username,
		Password: cfg.Broker.Password,
	})
	if err != nil {
		return err
	}
	defer client.Disconnect(250)
	logger.Info("connected to broker", "broker", cfg.Broker.URL)

	var signalBus bus.Bus
	if condition != nil {
		b := bus.NewMQTT(client, logger)
		defer b.Close()
		signalBus = b
	}

	smp := sampler.New(sampler.Deps{
		Bus:       signalBus,
		Sequencer: capture.NewSequencer(camera.NewMQTTSource(client, logger), cfg.Retry, time.Duration(cfg.FetchTimeoutSeconds)*time.Second, logger),
		Pipeline:  capture.NewPipeline(cfg.OutDir, cfg.Quality, sink, logger),
		History:   hist,
		Logger:    logging.WithStream(logger, cfg.Stream),
	}, sampler.Options{
		Stream:    cfg.Stream,
		Condition: condition,
		Cooldown:  time.Duration(cfg.CooldownSeconds) * time.Second,
		Interval:  time.Duration(cfg.IntervalSeconds) * time.Second,
		Schedule:  cfg.Schedule,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	osignal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutting down")
		cancel()
	}()

	if err := smp.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("sampler halted", "error", err)
		return err
	}
	return nil
}

// applyFlags overlays flags that were set on the command line over the
// loaded configuration.
func applyFlags(cfg *config.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "stream":
			cfg.Stream = f.Value.String()
		case "out-dir":
			cfg.OutDir = f.Value.String()
		case "upload-dir":
			cfg.UploadDir = f.Value.String()
		case "history-db":
			cfg.HistoryDB = f.Value.String()
		case "condition":
			cfg.Condition = f.Value.String()
		case "cooldown":
			cfg.CooldownSeconds = atoi(f.Value.String())
		case "interval":
			cfg.IntervalSeconds = atoi(f.Value.String())
		case "schedule":
			cfg.Schedule = f.Value.String()
		case "retry":
			cfg.Retry = atoi(f.Value.String())
		case "timeout":
			cfg.FetchTimeoutSeconds = atoi(f.Value.String())
		case "quality":
			cfg.Quality = atoi(f.Value.String())
		case "broker":
			cfg.Broker.URL = f.Value.String()
		case "log-format":
			cfg.Logging.Format = f.Value.String()
		case "log-level":
			cfg.Logging.Level = f.Value.String()
		}
	})
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
