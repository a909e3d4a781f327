package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/luki/vita/internal/config"
	"github.com/luki/vita/internal/health"
	"github.com/luki/vita/internal/lib/logger/sl"
	"github.com/luki/vita/internal/monitor"
	"github.com/luki/vita/internal/panel"
	"github.com/luki/vita/internal/source"
	"github.com/luki/vita/internal/telemetry"
	"github.com/luki/vita/internal/termmap"
	"github.com/luki/vita/internal/viewport"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	file := flag.String("file", "", "replay readings from a db.json file instead of the backend")
	windowed := flag.Bool("windowed", false, "start collapsed with a details toggle")
	flag.Parse()

	if err := run(*configPath, *file, *windowed); err != nil {
		fmt.Fprintf(os.Stderr, "vita: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, file string, windowed bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if file != "" {
		cfg.Source.File = file
	}
	if windowed {
		cfg.Display.Windowed = true
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Log.File), 0o755); err != nil {
		return fmt.Errorf("log dir: %w", err)
	}
	logFile, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer logFile.Close()

	log := sl.SetupLogger(cfg.Log.Level, cfg.Log.Format, logFile)
	log.Info("starting VITA monitor",
		slog.Duration("interval", cfg.Poll.Interval),
		slog.Bool("windowed", cfg.Display.Windowed),
	)

	var (
		fetcher     source.Fetcher
		breakerOpen func() bool
	)
	if cfg.Source.File != "" {
		fetcher = source.NewFile(log, cfg.Source.File)
		log.Info("replaying readings from file", slog.String("path", cfg.Source.File))
	} else {
		h := source.NewHTTP(log, cfg.Source.URL, source.HTTPOptions{
			Timeout:      cfg.Source.Timeout,
			MaxAttempts:  cfg.Source.Retry.MaxAttempts,
			InitialDelay: cfg.Source.Retry.InitialDelay,
			MaxDelay:     cfg.Source.Retry.MaxDelay,
			FailuresTrip: cfg.Source.Breaker.Failures,
			OpenFor:      cfg.Source.Breaker.OpenFor,
		})
		fetcher = h
		breakerOpen = h.BreakerOpen
		log.Info("polling backend", slog.String("endpoint", h.Endpoint()))
	}

	var program *tea.Program
	syncer := telemetry.New(fetcher,
		telemetry.WithInterval(cfg.Poll.Interval),
		telemetry.WithLogger(log),
		telemetry.WithPublisher(func(u telemetry.Update) {
			program.Send(monitor.UpdateMsg(u))
		}),
	)

	model := monitor.New(monitor.Options{
		Panel: panel.Options{
			FullScreen: !cfg.Display.Windowed,
			Renderer:   termmap.Renderer{},
			Map: viewport.Options{
				RadiusMeters: cfg.Map.RadiusMeters,
				InitialZoom:  cfg.Map.InitialZoom,
				MinZoom:      cfg.Map.MinZoom,
				MaxZoom:      cfg.Map.MaxZoom,
				CloseZoom:    cfg.Map.CloseZoom,
				WideZoom:     cfg.Map.WideZoom,
			},
		},
		Interval: cfg.Poll.Interval,
		Status:   syncer.Status,
	})
	program = tea.NewProgram(model, tea.WithAltScreen())

	var healthServer *health.Server
	if cfg.Health.Address != "" {
		healthServer = health.NewServer(log, cfg.Health.Address)
		healthServer.AddChecker(health.NewPollHealthChecker(syncer.Status, cfg.Poll.Interval))
		if breakerOpen != nil {
			healthServer.AddChecker(health.NewBreakerHealthChecker(breakerOpen))
		}
		healthServer.SetReady(func() bool {
			_, ok := syncer.Current()
			return ok
		})
		if err := healthServer.Start(); err != nil {
			return fmt.Errorf("health server: %w", err)
		}
	}

	syncer.Start(context.Background())

	_, runErr := program.Run()

	syncer.Stop()

	if healthServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := healthServer.Stop(shutdownCtx); err != nil {
			log.Error("failed to stop health server", sl.Err(err))
		}
	}

	if runErr != nil {
		log.Error("program exited with error", sl.Err(runErr))
		return fmt.Errorf("run: %w", runErr)
	}
	log.Info("monitor stopped")
	return nil
}
