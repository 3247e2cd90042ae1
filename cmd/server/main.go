package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codearena/internal/api"
	"codearena/internal/api/handler"
	"codearena/internal/app/event"
	"codearena/internal/app/service"
	"codearena/internal/app/worker"
	"codearena/internal/common/security"
	"codearena/internal/domain/repository"
	"codearena/internal/platform/config"
	"codearena/internal/platform/database"
	"codearena/internal/platform/queue"
	"codearena/internal/platform/runner"

	"go.uber.org/zap"
)

func main() {
	// 1. Load Configuration
	config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Could not initialize logger: %v", err)
	}
	defer logger.Sync()

	// 2. Initialize JWT and validate the access policy table
	security.InitJWT()
	if err := security.ValidatePolicy(); err != nil {
		logger.Fatal("access policy table is incomplete", zap.Error(err))
	}

	// 3. Initialize Database
	database.Connect()
	defer database.Close()
	logger.Info("database connected")

	// 4. Initialize Redis
	queue.ConnectRedis()
	defer queue.CloseRedis()
	logger.Info("redis connected")

	// 5. Initialize Repositories
	memberRepo := repository.NewPgMemberRepository(database.DB)
	contestRepo := repository.NewPgContestRepository(database.DB)
	submissionRepo := repository.NewPgSubmissionRepository(database.DB)

	// 6. Initialize event bus and judging queue
	bus := event.NewBus(64, logger)
	judgeQueue := queue.NewJudgeQueue(queue.RDB, config.AppConfig.JudgeQueueName)

	// 7. Initialize Services
	authService := service.NewAuthService(memberRepo)
	contestService := service.NewContestService(contestRepo)
	submissionService := service.NewSubmissionService(submissionRepo, contestRepo, memberRepo, judgeQueue, bus, logger)
	leaderboardService := service.NewLeaderboardService(contestRepo, memberRepo, submissionRepo, bus, logger)

	httpRunner := runner.NewHTTPRunner(
		config.AppConfig.RunnerURL,
		time.Duration(config.AppConfig.RunnerTimeoutSeconds)*time.Second,
	)
	dispatcher := service.NewJudgeDispatcher(submissionRepo, submissionService, httpRunner, logger)

	// 8. Start background workers
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	judgeWorker := worker.NewJudgeWorker(judgeQueue, dispatcher, config.AppConfig.JudgeWorkerCount, logger)
	go judgeWorker.Start(workerCtx)

	freezeScheduler := worker.NewFreezeScheduler(
		contestRepo,
		leaderboardService,
		time.Duration(config.AppConfig.AutoFreezePollSeconds)*time.Second,
		logger,
	)
	go freezeScheduler.Start(workerCtx)

	eventsHandler := handler.NewEventsHandler(bus, logger)
	go eventsHandler.Start(workerCtx)

	// 9. Initialize Router & HTTP Server
	router := api.NewRouter(authService, contestService, submissionService, leaderboardService, eventsHandler)

	server := &http.Server{
		Addr:         ":" + config.AppConfig.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 10. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("server starting", zap.String("port", config.AppConfig.APIPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("could not start server", zap.Error(err))
		}
	}()

	<-stop

	logger.Info("shutting down")
	workerCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server shutdown failed", zap.Error(err))
	}

	logger.Info("server and workers stopped")
}
