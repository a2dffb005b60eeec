// Package main provides the server entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/quietfall/quietfall/internal/app/engine"
	"github.com/quietfall/quietfall/internal/app/generator"
	"github.com/quietfall/quietfall/internal/app/strategy"
	"github.com/quietfall/quietfall/internal/infra/cast"
	"github.com/quietfall/quietfall/internal/infra/config"
	"github.com/quietfall/quietfall/internal/infra/library"
	"github.com/quietfall/quietfall/internal/infra/logger"
	"github.com/quietfall/quietfall/internal/infra/presetstore"
	"github.com/quietfall/quietfall/internal/server"
)

var (
	app        = kingpin.New("quietfall-server", "quietfall ambient mixer server")
	configPath = app.Flag("config", "Path to config file").Default("config/server.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()

	// list-sounds command
	listSoundsCmd = app.Command("list-sounds", "List the sound catalog and exit")
)

func init() {
	// start command (default) - no need to store the command
	app.Command("start", "Start the server (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// Initialize logger
	loggerConfig := logger.Config{
		Output: "stdout",
		Level:  "info",
	}
	// Override with command-line flags if specified
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	// Load config
	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	// Handle list-sounds command
	if command == listSoundsCmd.FullCommand() {
		if err := printSounds(cfg); err != nil {
			zlog.Fatal().Msgf("Failed to list sounds: %v", err)
		}
		return
	}

	// Run server (defer ensures shutdown hook is called)
	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Server error: %v", err)
		os.Exit(1)
	}
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	// Load sound catalog
	lib, err := library.Load(cfg.Library.Path, cfg.Library.Root)
	if err != nil {
		return fmt.Errorf("failed to load sound catalog: %w", err)
	}
	zlog.Info().Msgf("Loaded sound catalog: sounds=%d path=%s", lib.Size(), cfg.Library.Path)

	// Open preset store
	store, err := presetstore.Open(cfg.Presets.Path)
	if err != nil {
		return fmt.Errorf("failed to open preset store: %w", err)
	}

	// Build random preset generator chain
	random, err := generator.NewChainFromConfig(cfg.Random, lib)
	if err != nil {
		return fmt.Errorf("failed to build generator chain: %w", err)
	}

	// Create local playback strategy factory (initializes the audio device)
	local, err := strategy.NewLocalFactory(cfg.Playback.SampleRate, lib.ResolveSrc)
	if err != nil {
		return fmt.Errorf("failed to initialize audio output: %w", err)
	}

	// Create playback manager
	manager := engine.NewManager(
		engine.Config{GraceWindow: cfg.GraceWindow()},
		lib,
		store,
		random,
		engine.NewLocalArbiter(),
		local,
	)

	// Wire cast route switching
	route := cast.NewRouteProvider(local, cfg.Cast.ReceiverURL, cfg.CastTimeout(), lib.ResolveSrc)
	route.Attach(manager)

	// Create HTTP API
	events := server.NewEventStream(manager)
	defer events.Close()

	router := server.SetupRouter(server.NewAPI(manager, store, route), events)

	// Create server with h2c (HTTP/2 cleartext) support
	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: h2c.NewHandler(router, &http2.Server{}),
	}

	// Channel to capture server startup errors
	serverErrCh := make(chan error, 1)

	// Start server
	go func() {
		zlog.Info().Msgf("Starting server: addr=%s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	// Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-serverErrCh:
		return fmt.Errorf("server error: %w", err)
	}

	// Stop playback first so the audio device releases cleanly
	manager.Stop()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	zlog.Info().Msg("Server stopped")
	return nil
}

// printSounds prints the sound catalog.
func printSounds(cfg *config.Config) error {
	lib, err := library.Load(cfg.Library.Path, cfg.Library.Root)
	if err != nil {
		return err
	}

	fmt.Println("Available Sounds:")
	for _, s := range lib.All() {
		kind := "intermittent"
		if s.IsContiguous {
			kind = "contiguous"
		}
		fmt.Printf("  %-16s - %s [%s]\n", s.Key, s.Name, kind)
	}
	return nil
}
