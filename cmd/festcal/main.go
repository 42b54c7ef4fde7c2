package main

import (
	"context"
	"flag"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"festcal/internal/capture"
	"festcal/internal/config"
	appLog "festcal/internal/log"
	"festcal/internal/web"
)

type flagConfig struct {
	configPath string
	listen     string
	once       bool
	noCapture  bool
	debug      bool
}

func main() {
	appLog.Info("festcal starting", "version", "0.1.0-dev")

	flags := parseFlags()
	if flags.debug {
		appLog.SetLevel(appLog.LevelDebug)
	}

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"pixels_per_hour", conf.PixelsPerHour,
		"day_start", conf.DayStartTime,
		"day_end", conf.DayEndTime,
		"scene_count", len(conf.Scenes),
		"event_count", len(conf.Events),
		"ics_count", len(conf.ICS),
		"refresh", conf.RefreshCron,
		"once", flags.once,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	server := web.NewServer(conf, flags.debug)

	// Initial feed refresh so the first render already includes ICS events.
	server.RefreshFeeds(ctx)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- web.StartServer(ctx, server)
	}()

	if flags.once {
		if !flags.noCapture {
			runCapture(ctx, conf, flags.debug)
		}
		appLog.Info("single-shot run complete, exiting")
		return
	}

	// Periodic refresh: re-fetch ICS feeds and re-capture the preview on
	// the configured cron schedule.
	scheduler := cron.New()
	_, err = scheduler.AddFunc(conf.RefreshCron, func() {
		server.RefreshFeeds(ctx)
		if !flags.noCapture {
			runCapture(ctx, conf, flags.debug)
		}
	})
	if err != nil {
		appLog.Error("invalid refresh schedule; periodic refresh disabled", err, "refresh", conf.RefreshCron)
	} else {
		scheduler.Start()
		defer scheduler.Stop()
	}

	select {
	case err := <-serverErr:
		if err != nil {
			appLog.Error("HTTP server failed", err)
			os.Exit(1)
		}
	case <-ctx.Done():
	}

	// Give in-flight work a moment to settle.
	time.Sleep(100 * time.Millisecond)
	appLog.Info("festcal exiting")
}

// runCapture screenshots the served calendar page into the preview path.
func runCapture(ctx context.Context, conf *config.Config, debug bool) {
	outputPath := web.PreviewPath(conf, debug)
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		appLog.Error("failed to create preview directory", err, "path", outputPath)
		return
	}

	err := capture.CalendarPNG(ctx, capture.Options{
		URL:        captureURL(conf),
		OutputPath: outputPath,
		Width:      conf.ViewportWidth,
	})
	if err != nil {
		appLog.Error("preview capture failed", err, "path", outputPath)
		return
	}
	appLog.Info("preview captured", "path", outputPath)
}

// captureURL builds the local calendar URL, carrying basic auth credentials
// so the headless browser can get past the middleware.
func captureURL(conf *config.Config) string {
	u := url.URL{Scheme: "http", Host: conf.Listen, Path: "/calendar"}
	if conf.BasicAuth != nil && conf.BasicAuth.Username != "" {
		u.User = url.UserPassword(conf.BasicAuth.Username, conf.BasicAuth.Password)
	}
	return u.String()
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/festcal/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Run one refresh+capture cycle and exit")
	flag.BoolVar(&cfg.noCapture, "no-capture", false, "Skip preview capture (no Chromium needed)")
	flag.BoolVar(&cfg.debug, "debug", false, "Debug logging and local cache paths")

	flag.Parse()

	return cfg
}
