package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/RubachokBoss/cad-assessment/internal/app"
	"github.com/RubachokBoss/cad-assessment/internal/config"
	"github.com/RubachokBoss/cad-assessment/internal/models"
	"github.com/RubachokBoss/cad-assessment/pkg/logger"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code so that every deferred cleanup has
// finished before main exits.
func run() int {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	command := "serve"
	args := flag.Args()
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log := logger.New()
		log.Error().Err(err).Msg("Failed to load configuration")
		return 1
	}

	log := logger.NewWithConfig(cfg.Logging.Level, cfg.Logging.Pretty, cfg.Logging.NoColor)

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create application")
		return 1
	}

	switch command {
	case "serve":
		return runServer(ctx, stop, application, cfg, log)
	case "worker":
		return runWorker(ctx, application, cfg, log)
	case "grade":
		return runGrade(ctx, application, cfg, log, args)
	default:
		log.Error().Msgf("Unknown command %q. Use serve, worker or grade", command)
		shutdown(application, cfg, log)
		return 2
	}
}

func runServer(ctx context.Context, stop context.CancelFunc, application *app.App, cfg *config.Config, log zerolog.Logger) int {
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- application.Run()
		stop()
	}()

	log.Info().Msgf("Grading service started on %s", cfg.Server.Address)

	<-ctx.Done()
	shutdown(application, cfg, log)

	if err := <-serveErr; err != nil {
		log.Error().Err(err).Msg("Failed to run application")
		return 1
	}
	return 0
}

func runWorker(ctx context.Context, application *app.App, cfg *config.Config, log zerolog.Logger) int {
	defer shutdown(application, cfg, log)

	if err := application.RunWorker(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to start grading worker")
		return 1
	}

	log.Info().Msg("Grading worker started")

	<-ctx.Done()
	return 0
}

// runGrade grades one job from the job store and prints the result as JSON.
func runGrade(ctx context.Context, application *app.App, cfg *config.Config, log zerolog.Logger, args []string) int {
	defer shutdown(application, cfg, log)

	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: cad-assessment grade <master> [prefix]")
		return 2
	}

	req := models.GradingJobRequest{Master: args[0]}
	if len(args) > 1 {
		req.Prefix = args[1]
	}

	result, err := application.Grade(ctx, req)
	if err != nil {
		log.Error().Err(err).Msg("Grading failed")
		return 1
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		log.Error().Err(err).Msg("Failed to write result")
		return 1
	}
	return 0
}

func shutdown(application *app.App, cfg *config.Config, log zerolog.Logger) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to shutdown gracefully")
	}
}
