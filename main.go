package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/smazurov/boardnode/cmd"
	"github.com/smazurov/boardnode/internal/api"
	"github.com/smazurov/boardnode/internal/board"
	"github.com/smazurov/boardnode/internal/config"
	"github.com/smazurov/boardnode/internal/errcode"
	"github.com/smazurov/boardnode/internal/events"
	"github.com/smazurov/boardnode/internal/gpio"
	"github.com/smazurov/boardnode/internal/logging"
	"github.com/smazurov/boardnode/internal/metrics/collectors"
	"github.com/smazurov/boardnode/internal/metrics/exporters"
	"github.com/smazurov/boardnode/internal/systemd"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port       string `help:"Port to listen on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`
	CORSOrigin string `help:"Access-Control-Allow-Origin value" default:"*" toml:"server.cors_origin" env:"SERVER_CORS_ORIGIN"`

	// Auth settings
	AuthUsername string `help:"Basic auth username" default:"admin" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"password" toml:"auth.password" env:"AUTH_PASSWORD"`

	// GPIO settings
	GPIOBackend string `help:"GPIO backend (auto, gpiod, sim)" default:"auto" toml:"gpio.backend" env:"GPIO_BACKEND"`
	GPIOChip    string `help:"GPIO chip device name" default:"gpiochip0" toml:"gpio.chip" env:"GPIO_CHIP"`

	// Debounce settings
	DebounceWindowMS int  `help:"Debounce window in milliseconds" default:"300" toml:"debounce.window_ms" env:"DEBOUNCE_WINDOW_MS"`
	QueueSize        int  `help:"Deferred button action queue size" default:"16" toml:"debounce.queue_size" env:"DEBOUNCE_QUEUE_SIZE"`
	DrainOnClose     bool `help:"Run queued button actions on shutdown instead of dropping them" default:"true" toml:"debounce.drain_on_close" env:"DEBOUNCE_DRAIN_ON_CLOSE"`

	// Metrics settings
	MetricsEnabled        bool   `help:"Enable Prometheus /metrics" default:"true" toml:"metrics.enabled" env:"METRICS_ENABLED"`
	MetricsSampleInterval string `help:"GPIO line level sampling interval" default:"5s" toml:"metrics.sample_interval" env:"METRICS_SAMPLE_INTERVAL"`

	// Logging settings
	LoggingLevel    string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat   string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingBoard    string `help:"Board logging level" default:"info" toml:"logging.board" env:"LOGGING_BOARD"`
	LoggingGPIO     string `help:"GPIO logging level" default:"info" toml:"logging.gpio" env:"LOGGING_GPIO"`
	LoggingAPI      string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
	LoggingHTTP     string `help:"HTTP request logging level" default:"info" toml:"logging.http" env:"LOGGING_HTTP"`
	LoggingConfig   string `help:"Config watcher logging level" default:"info" toml:"logging.config" env:"LOGGING_CONFIG"`
	LoggingMetrics  string `help:"Metrics logging level" default:"info" toml:"logging.metrics" env:"LOGGING_METRICS"`
	LoggingSystemd  string `help:"Systemd notify logging level" default:"info" toml:"logging.systemd" env:"LOGGING_SYSTEMD"`
}

func main() {
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		// Load configuration automatically; flags set on the command line win
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"board":   opts.LoggingBoard,
				"gpio":    opts.LoggingGPIO,
				"api":     opts.LoggingAPI,
				"http":    opts.LoggingHTTP,
				"config":  opts.LoggingConfig,
				"metrics": opts.LoggingMetrics,
				"systemd": opts.LoggingSystemd,
			},
		})
		logger := logging.GetLogger("main")

		// Create event bus for in-process event handling
		eventBus := events.New()

		// Feed log records to /api/logs/stream subscribers
		var logSeq atomic.Uint64
		logging.SetLogCallback(func(entry logging.LogEntry) {
			eventBus.Publish(events.LogEntryEvent{
				Seq:        logSeq.Add(1),
				Timestamp:  entry.Timestamp.Format(time.RFC3339Nano),
				Level:      entry.Level,
				Module:     entry.Module,
				Message:    entry.Message,
				Attributes: entry.Attributes,
				Line:       logging.FormatLogLine(entry),
			})
		})

		notifier := systemd.NewNotifier(logging.GetLogger("systemd"))
		ctx, cancel := context.WithCancel(context.Background())

		var (
			chip    gpio.Chip
			brd     *board.Board
			server  *api.Server
			sampler *collectors.LineSampler
			watcher *config.Watcher[config.Runtime]
		)

		hooks.OnStart(func() {
			var err error
			chip, err = gpio.Open(opts.GPIOBackend, opts.GPIOChip, board.Consumer, logging.GetLogger("gpio"))
			if err != nil {
				logger.Error("Failed to open GPIO chip", "backend", opts.GPIOBackend, "chip", opts.GPIOChip, "error", err)
				os.Exit(1)
			}

			brd, err = board.New(board.Options{
				Chip:           chip,
				DebounceWindow: time.Duration(opts.DebounceWindowMS) * time.Millisecond,
				QueueSize:      opts.QueueSize,
				DrainOnClose:   opts.DrainOnClose,
				Bus:            eventBus,
				Logger:         logging.GetLogger("board"),
			})
			if err != nil {
				logger.Error("Board startup failed", "error", err, "errno", errcode.Errno(err))
				_ = chip.Close()
				os.Exit(1)
			}

			unsubStatus := eventBus.Subscribe(func(e events.LEDValueChangedEvent) {
				notifier.Status("LED value %d (%06b)", e.Value, e.Value)
			})
			defer unsubStatus()

			apiOpts := &api.Options{
				AuthUsername: opts.AuthUsername,
				AuthPassword: opts.AuthPassword,
				CORSOrigin:   opts.CORSOrigin,
				Board:        brd,
				EventBus:     eventBus,
			}
			if opts.MetricsEnabled {
				apiOpts.PrometheusHandler = exporters.HTTPHandler()

				interval, parseErr := time.ParseDuration(opts.MetricsSampleInterval)
				if parseErr != nil {
					logger.Warn("Invalid metrics sample interval, using default",
						"value", opts.MetricsSampleInterval, "error", parseErr)
					interval = collectors.DefaultSampleInterval
				}
				sampler = collectors.NewLineSampler(brd.Lines(), interval)
				if startErr := sampler.Start(ctx); startErr != nil {
					logger.Warn("Failed to start line sampler", "error", startErr)
				}
			}
			server = api.NewServer(apiOpts)

			// Hot reload of log levels and the debounce window
			if _, statErr := os.Stat(opts.Config); statErr == nil {
				watcher = config.NewConfigWatcher(opts.Config, config.LoadRuntime, logging.GetLogger("config"),
					config.WithErrorHandler[config.Runtime](func(loadErr error) {
						logger.Warn("Ignoring invalid config edit", "error", loadErr)
					}))
				watcher.OnReload(func(rt config.Runtime) {
					notifier.Reloading()
					logging.ApplyLevels(rt.Logging)
					if winErr := brd.SetDebounceWindow(rt.DebounceWindow); winErr != nil {
						logger.Warn("Failed to apply debounce window", "error", winErr)
					}
					notifier.Ready(ctx)
				})
				if startErr := watcher.Start(); startErr != nil {
					logger.Warn("Failed to watch config file", "path", opts.Config, "error", startErr)
				}
			}

			notifier.Ready(ctx)
			notifier.Status("Serving on %s", opts.Port)

			logger.Info("Starting HTTP server", "port", opts.Port)
			if startErr := server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				shutdown(logger, notifier, cancel, server, watcher, sampler, brd, chip)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			shutdown(logger, notifier, cancel, server, watcher, sampler, brd, chip)
		})
	})

	cli.Root().Use = "boardnode"
	cli.Root().Short = "Lab board daemon: LED bank, speaker and debounced buttons over GPIO"

	cli.Root().AddCommand(cmd.CreatePinsCmd())
	cli.Root().AddCommand(cmd.CreateDecodeCmd())
	for _, c := range cmd.CreateClientCmds() {
		cli.Root().AddCommand(c)
	}

	// Run the CLI
	cli.Run()
}

// shutdown stops the HTTP surface first so no request opens a device while
// the board tears down, then closes the board and the chip.
func shutdown(
	logger *slog.Logger,
	notifier *systemd.Notifier,
	cancel context.CancelFunc,
	server *api.Server,
	watcher *config.Watcher[config.Runtime],
	sampler *collectors.LineSampler,
	brd *board.Board,
	chip gpio.Chip,
) {
	logger.Info("Shutting down")
	notifier.Stopping()

	if server != nil {
		if err := server.Stop(); err != nil {
			logger.Error("Error stopping HTTP server", "error", err)
		}
	}
	if watcher != nil {
		if err := watcher.Stop(); err != nil {
			logger.Warn("Error stopping config watcher", "error", err)
		}
	}
	if sampler != nil {
		_ = sampler.Stop()
	}
	cancel()

	if brd != nil {
		if err := brd.Close(); err != nil {
			logger.Error("Board shutdown incomplete", "error", err, "errno", errcode.Errno(err))
		}
	}
	if chip != nil {
		if err := chip.Close(); err != nil {
			logger.Warn("Error closing GPIO chip", "error", err)
		}
	}
}
