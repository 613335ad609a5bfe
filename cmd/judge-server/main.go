package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"cfjudge/internal/config"
	"cfjudge/internal/judge/controller"
	"cfjudge/internal/judge/engine"
	"cfjudge/internal/judge/observer"
	"cfjudge/internal/judge/runner"
	"cfjudge/internal/judge/service"
	"cfjudge/internal/judge/worker"
	"cfjudge/pkg/utils/logger"

	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "Path to config file")
	addr := flag.String("addr", "", "Override listen address")
	flag.Parse()

	cfg, err := config.LoadOptional(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load app config failed: %v\n", err)
		return
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	if err := logger.Init(cfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	eng := engine.NewEngine(cfg.EngineConfig())
	jobRunner := runner.NewRunnerWithObserver(eng, observer.LogRecorder{})
	w := worker.NewWorker(jobRunner, cfg.Resolver(), cfg.WorkerConfig())
	judgeSvc := service.NewService(w, cfg.Server.MaxConcurrentRuns)

	httpServer := buildHTTPServer(cfg.Server, judgeSvc)
	listener, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		logger.Error(context.Background(), "init http listener failed", zap.Error(err))
		return
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(context.Background(), "judge http server started", zap.String("addr", cfg.Server.Addr))
		errCh <- httpServer.Serve(listener)
	}()

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(context.Background(), "http server stopped", zap.Error(err))
		}
	case <-shutdownCtx.Done():
		logger.Info(context.Background(), "shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error(context.Background(), "http server shutdown failed", zap.Error(err))
	}
}

func buildHTTPServer(cfg config.ServerConfig, svc *service.Service) *http.Server {
	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      controller.NewRouter(svc),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}
