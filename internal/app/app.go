package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/RubachokBoss/cad-assessment/internal/config"
	"github.com/RubachokBoss/cad-assessment/internal/delivery/httpd"
	"github.com/RubachokBoss/cad-assessment/internal/models"
	"github.com/RubachokBoss/cad-assessment/internal/repository"
	"github.com/RubachokBoss/cad-assessment/internal/service"
	"github.com/RubachokBoss/cad-assessment/internal/service/analyzer"
	"github.com/RubachokBoss/cad-assessment/internal/service/integration"
	"github.com/RubachokBoss/cad-assessment/internal/telemetry"
	"github.com/RubachokBoss/cad-assessment/internal/worker"
	"github.com/RubachokBoss/cad-assessment/internal/worker/pool"
	"github.com/RubachokBoss/cad-assessment/internal/worker/queue"
	"github.com/RubachokBoss/cad-assessment/pkg/hash"
)

type App struct {
	server         *http.Server
	logger         zerolog.Logger
	config         *config.Config
	store          repository.JobStore
	workerPool     *pool.WorkerPool
	gradingService service.GradingService
	gradingWorker  worker.GradingWorker
	rabbitMQ       *repository.RabbitMQ
	shutdownTrace  func(context.Context) error
}

func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	shutdownTrace, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName: cfg.Telemetry.ServiceName,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		SampleRatio: cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return nil, err
	}

	store, err := newJobStore(cfg.Storage, log)
	if err != nil {
		return nil, err
	}

	extractor := newExtractor(cfg.Extraction, store, log)

	algorithm, err := hash.ParseAlgorithm(cfg.Grading.HashAlgorithm)
	if err != nil {
		return nil, err
	}

	aggregator, err := analyzer.NewGradeAggregator(cfg.Grading.GradePolicy())
	if err != nil {
		return nil, fmt.Errorf("failed to build grade policy: %w", err)
	}

	clusterConfig := cfg.Grading.ClusterConfig()
	clusterer := analyzer.NewSimilarityClusterer(
		hash.NewContentHasher(algorithm),
		clusterConfig,
		log.With().Str("component", "clusterer").Logger(),
	)

	workerPool := pool.NewWorkerPool(cfg.Pipeline.MaxWorkers, log)

	gradingService := service.NewGradingService(
		store,
		extractor,
		aggregator,
		clusterer,
		workerPool,
		service.GradingConfig{
			JobTimeout:        cfg.Pipeline.JobTimeout,
			ExtractionTimeout: cfg.Pipeline.ExtractionTimeout,
			PartExtension:     cfg.Pipeline.PartExtension,
			HashAlgorithm:     string(algorithm),
			Cluster:           clusterConfig,
		},
		log.With().Str("component", "grading").Logger(),
	)

	handler := httpd.NewHandler(
		gradingService,
		extractor,
		store,
		workerPool,
		cfg.Server.MaxBodyBytes,
		log,
	)

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      httpd.NewRouter(handler, cfg.CORS, log),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	workerPool.Start()

	return &App{
		server:         server,
		logger:         log,
		config:         cfg,
		store:          store,
		workerPool:     workerPool,
		gradingService: gradingService,
		shutdownTrace:  shutdownTrace,
	}, nil
}

func newJobStore(cfg config.StorageConfig, log zerolog.Logger) (repository.JobStore, error) {
	switch cfg.Provider {
	case config.StorageProviderMinIO:
		return repository.NewMinIOStore(
			cfg.Endpoint,
			cfg.AccessKey,
			cfg.SecretKey,
			cfg.Bucket,
			cfg.UseSSL,
			cfg.ConnectTimeout,
			log,
		)
	default:
		return repository.NewLocalStore(cfg.Root, log)
	}
}

func newExtractor(cfg config.ExtractionConfig, store repository.JobStore, log zerolog.Logger) integration.Extractor {
	if cfg.Mode == config.ExtractionModeWorker {
		return integration.NewWorkerClient(cfg.URL, cfg.Timeout, cfg.RetryCount, cfg.RetryDelay, log)
	}
	return integration.NewDocumentExtractor(store, log)
}

// Run serves the HTTP API until Shutdown is called.
func (a *App) Run() error {
	a.logger.Info().Msgf("Starting grading service on %s", a.config.Server.Address)

	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// RunWorker consumes grading requests from RabbitMQ and publishes the
// outcome of every job. It returns once the worker has started.
func (a *App) RunWorker(ctx context.Context) error {
	mq := a.config.RabbitMQ

	rabbitMQ, err := repository.NewRabbitMQ(mq.URL, a.logger)
	if err != nil {
		return err
	}

	if err := rabbitMQ.SetupQueue(mq.Exchange, mq.QueueName, mq.RequestRoutingKey); err != nil {
		rabbitMQ.Close()
		return err
	}

	a.rabbitMQ = rabbitMQ
	a.gradingWorker = worker.NewGradingWorker(
		queue.NewRabbitMQConsumer(rabbitMQ.Channel(), mq.QueueName, mq.ConsumerTag, mq.PrefetchCount, a.logger),
		queue.NewRabbitMQPublisher(rabbitMQ.Channel(), a.logger),
		a.gradingService,
		worker.Routing{
			Exchange:     mq.Exchange,
			CompletedKey: mq.CompletedKey,
			FailedKey:    mq.FailedKey,
		},
		a.logger.With().Str("component", "worker").Logger(),
	)

	return a.gradingWorker.Start(ctx)
}

// Grade runs one job directly against the job store.
func (a *App) Grade(ctx context.Context, req models.GradingJobRequest) (*models.JobResult, error) {
	return a.gradingService.RunJob(ctx, req)
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info().Msg("Shutting down grading service...")

	var shutdownErr error

	if a.gradingWorker != nil {
		if err := a.gradingWorker.Stop(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to stop grading worker")
		}
	}

	if a.rabbitMQ != nil {
		if err := a.rabbitMQ.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close RabbitMQ connection")
		}
	}

	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.Error().Err(err).Msg("Failed to shutdown HTTP server")
		shutdownErr = err
	}

	a.workerPool.Stop()

	if err := a.shutdownTrace(ctx); err != nil {
		a.logger.Error().Err(err).Msg("Failed to flush traces")
	}

	a.logger.Info().Msg("Grading service stopped")
	return shutdownErr
}
