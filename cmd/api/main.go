package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/ataljudge/judge-api/internal/config"
	"github.com/ataljudge/judge-api/internal/database"
	"github.com/ataljudge/judge-api/internal/handler"
	"github.com/ataljudge/judge-api/internal/middleware"
	"github.com/ataljudge/judge-api/internal/queue"
	"github.com/ataljudge/judge-api/internal/repository"
	"github.com/ataljudge/judge-api/internal/router"
	"github.com/ataljudge/judge-api/internal/service"
	"github.com/ataljudge/judge-api/pkg/judge0"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	executor, err := judge0.NewClient(judge0.Config{
		BaseURL:         cfg.ExecutionBaseURL,
		AuthToken:       cfg.ExecutionAuthToken,
		RequestTimeout:  cfg.ExecutionRequestTimeout,
		PollInterval:    cfg.ExecutionPollInterval,
		MaxPollAttempts: cfg.ExecutionMaxPollRetries,
	})
	if err != nil {
		log.Fatalf("failed to create execution client: %v", err)
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
	} else {
		logger.Warn().Msg("nats url not configured, completion events disabled")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	submissionRepo := repository.NewSubmissionRepository(db)
	questionRepo := repository.NewQuestionRepository(db)
	questionListRepo := repository.NewQuestionListRepository(db)
	gradeRepo := repository.NewGradeRepository(db)

	events := service.NewNATSEventPublisher(natsConn, "", logger)
	processor := service.NewSubmissionProcessor(submissionRepo, questionRepo, executor, events, logger)

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	var dispatcher service.Dispatcher
	var submissionQueue *queue.Queue
	if cfg.RedisURL != "" {
		redisClient, err := database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()

		submissionQueue = queue.New(redisClient, processor.Process, queue.Options{
			Concurrency:   cfg.QueueConcurrency,
			MaxAttempts:   cfg.QueueMaxAttempts,
			BackoffBase:   cfg.QueueBackoffBase,
			RatePerSecond: cfg.QueueRatePerSecond,
		}, logger)
		submissionQueue.Start(workerCtx)
		dispatcher = service.NewQueueDispatcher(submissionQueue, submissionRepo)
	} else {
		logger.Warn().Msg("redis url not configured, processing submissions inline")
		dispatcher = service.NewInlineDispatcher(processor)
	}

	submissionService := service.NewSubmissionService(submissionRepo, questionRepo, dispatcher, validate, logger)
	questionService := service.NewQuestionService(questionRepo, validate, logger)
	gradeService := service.NewGradeService(questionListRepo, submissionRepo, gradeRepo, validate, logger)

	submissionHandler := handler.NewSubmissionHandler(submissionService, logger)
	questionHandler := handler.NewQuestionHandler(questionService, logger)
	gradeHandler := handler.NewGradeHandler(gradeService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		SubmissionHandler: submissionHandler,
		QuestionHandler:   questionHandler,
		GradeHandler:      gradeHandler,
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, stopWorkers, submissionQueue)
}

func waitForShutdown(app *fiber.App, stopWorkers context.CancelFunc, submissionQueue *queue.Queue) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	stopWorkers()
	if submissionQueue != nil {
		submissionQueue.Shutdown()
	}

	log.Println("server stopped")
}
