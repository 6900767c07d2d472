package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camuig/pulse-trader/internal/config"
	"github.com/camuig/pulse-trader/internal/engine"
	"github.com/camuig/pulse-trader/internal/exchange/bybit"
	"github.com/camuig/pulse-trader/internal/logger"
	"github.com/camuig/pulse-trader/internal/notifier"
	"github.com/camuig/pulse-trader/internal/scheduler"
	"github.com/camuig/pulse-trader/internal/storage"
	"github.com/camuig/pulse-trader/internal/web"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	dbPath := flag.String("db", "data/pulse-trader.db", "path to SQLite database")
	once := flag.Bool("once", false, "run a single trading cycle and exit")
	flag.Parse()

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	// Init logger
	log := logger.New(cfg.Logging.Level, logger.Options{
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	log.Info("starting pulse-trader")

	// Init database
	db, err := storage.NewDatabase(*dbPath)
	if err != nil {
		log.Error("database init failed", "error", err)
		os.Exit(1)
	}
	repo := storage.NewRepository(db)

	// Context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init services
	gateways := bybit.NewFactory(cfg, log)
	notify := notifier.New(cfg, log)
	eng := engine.New(cfg, repo, gateways, notify, log)

	if *once {
		if err := eng.RunOnce(ctx); err != nil {
			log.Error("cycle failed", "error", err)
			os.Exit(1)
		}
		log.Info("cycle complete")
		return
	}

	sched := scheduler.New(eng, notify, cfg, log)
	webServer := web.NewServer(repo, cfg, log)

	// Start scheduler in goroutine
	go sched.Run(ctx)

	// Start web server in goroutine
	go func() {
		if err := webServer.Start(); err != nil {
			log.Error("web server error", "error", err)
		}
	}()

	notify.NotifyStatus("🤖 pulse-trader started")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info("shutdown signal received", "signal", sig.String())

	// Graceful shutdown
	cancel() // stop scheduler

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := webServer.Shutdown(shutdownCtx); err != nil {
		log.Error("web server shutdown error", "error", err)
	}

	notify.NotifyStatus("🛑 pulse-trader stopped")
	log.Info("pulse-trader stopped")
}
