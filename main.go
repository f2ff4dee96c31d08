package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"flight-tui/config"
	"flight-tui/loop"
	"flight-tui/model"
	"flight-tui/player"
	"flight-tui/server"
	"flight-tui/tui"
)

func main() {
	// Parse command line arguments
	serverMode := flag.Bool("server", false, "Run in server mode (HTTP API)")
	port := flag.Int("port", 8080, "Server port (server mode only)")
	lang := flag.String("lang", "", "Interface language (en, de)")
	autoPlay := flag.Bool("autoplay", false, "Resume the last flight on start")
	chime := flag.Bool("chime", true, "Play a sound when playback changes")
	tick := flag.Int("tick", config.DefaultTickMillis, "Playback clock interval in milliseconds")
	logFile := flag.String("log", "", "Log file (default: flight-tui.log in the config directory)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("⚠ failed to load config, using defaults: %v\n", err)
		cfg = config.DefaultConfig()
	}
	if cfg, err = config.ApplyEnv(cfg); err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}

	// Flags given on the command line override file and environment
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Port = *port
		case "lang":
			cfg.Language = *lang
		case "autoplay":
			cfg.AutoPlay = *autoPlay
		case "chime":
			cfg.Chime = *chime
		case "tick":
			cfg.TickMillis = *tick
		case "log":
			cfg.LogFile = *logFile
		}
	})
	cfg = cfg.Normalize()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *serverMode {
		runServer(ctx, cfg)
		return
	}
	runTUI(ctx, cfg)
}

// setupLogging sends log output to a rotating file, and to stderr as well
// when tee is set
func setupLogging(cfg config.Config, tee bool) io.Closer {
	path := cfg.LogFile
	if path == "" {
		dir, err := config.Dir()
		if err != nil {
			dir = "."
		}
		path = filepath.Join(dir, "flight-tui.log")
	}

	rotating := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    5, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}
	if tee {
		log.SetOutput(io.MultiWriter(os.Stderr, rotating))
	} else {
		log.SetOutput(rotating)
	}
	return rotating
}

// newRegistry creates the loop and the session registry shared by both modes
func newRegistry(cfg config.Config) (*loop.Loop, *player.Registry) {
	l := loop.New()
	tick := time.Duration(cfg.TickMillis) * time.Millisecond
	return l, player.NewRegistry(model.DemoFlights, l, tick)
}

// runServer starts the HTTP server
func runServer(ctx context.Context, cfg config.Config) {
	closer := setupLogging(cfg, true)
	defer closer.Close()

	fmt.Println("🚀 starting in server mode...")
	l, reg := newRegistry(cfg)
	s := server.NewServer(server.Options{
		Port:     cfg.Port,
		Catalog:  model.DemoFlights,
		Registry: reg,
		Loop:     l,
	})
	if err := s.Start(ctx); err != nil {
		log.Printf("❌ server error: %v", err)
	}
}

// runTUI starts the terminal UI
func runTUI(ctx context.Context, cfg config.Config) {
	closer := setupLogging(cfg, false)
	defer closer.Close()

	l, reg := newRegistry(cfg)

	opts := tui.Options{
		Catalog:  model.DemoFlights,
		Registry: reg,
		Loop:     l,
		Config:   cfg,
		Logger:   log.Default(),
	}
	if cfg.Chime {
		cue, err := player.NewCue()
		if err != nil {
			fmt.Printf("⚠ audio unavailable, continuing without sound: %v\n", err)
		} else {
			defer cue.Close()
			opts.Chime = cue
		}
	}

	if cfg.AutoPlay {
		fmt.Printf("✈ resuming %s\n", cfg.LastFlight)
	}
	if err := tui.Run(ctx, opts); err != nil && ctx.Err() == nil {
		fmt.Printf("❌ interface error: %v\n", err)
		os.Exit(1)
	}
}
