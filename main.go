package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/o0olele/octree-nav/config"
	"github.com/o0olele/octree-nav/logger"
	"github.com/o0olele/octree-nav/metrics"
	"github.com/o0olele/octree-nav/navigation"
	"github.com/o0olele/octree-nav/server"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", os.Getenv("OCTREE_NAV_CONFIG"), "path to a config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}
	logger.Init("octree-nav", cfg.Viper())
	defer logger.Sync()

	var reporter *metrics.Reporter
	if cfg.GetBool("metrics.enabled") {
		reporter = metrics.NewReporter()
	}

	manager := navigation.NewManager(navigation.OptionsFromConfig(cfg), reporter)
	defer manager.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := manager.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("navigation loop stopped", zap.Error(err))
		}
	}()

	if addr := cfg.GetString("server.pprof"); addr != "" {
		go func() {
			logger.Info("pprof listening", zap.String("addr", addr))
			if err := http.ListenAndServe(addr, nil); err != nil {
				logger.Warn("pprof server stopped", zap.Error(err))
			}
		}()
	}

	srv := &http.Server{
		Addr:    cfg.GetString("server.addr"),
		Handler: server.New(manager, reporter).Handler(),
	}
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	sg := make(chan os.Signal, 1)
	signal.Notify(sg, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)
	s := <-sg
	logger.Warn("got signal, shutting down", zap.String("signal", s.String()))

	cancel()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
}
