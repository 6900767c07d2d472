package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/camuig/pulse-trader/internal/config"
	"github.com/camuig/pulse-trader/internal/engine"
	"github.com/camuig/pulse-trader/internal/logger"
)

// Scheduler drives the engine at a fixed cadence. Cycles run
// back-to-back on one goroutine; a slow cycle delays the next tick
// rather than overlapping it.
type Scheduler struct {
	engine   *engine.Engine
	notifier engine.Notifier
	config   *config.Config
	logger   *logger.Logger
}

func New(eng *engine.Engine, notifier engine.Notifier, cfg *config.Config, log *logger.Logger) *Scheduler {
	return &Scheduler{
		engine:   eng,
		notifier: notifier,
		config:   cfg,
		logger:   log,
	}
}

func (s *Scheduler) Run(ctx context.Context) {
	interval := s.config.TradingInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("scheduler started", "interval", interval.String())

	// Run immediately on start
	s.runCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

func (s *Scheduler) runCycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic in trading cycle", "panic", fmt.Sprint(r))
			s.notifier.NotifyError("cycle panic", fmt.Errorf("%v", r))
		}
	}()

	s.logger.Info("starting trading cycle")
	if err := s.engine.RunOnce(ctx); err != nil {
		s.logger.Error("trading cycle failed", "error", err)
		s.notifier.NotifyError("cycle", err)
		return
	}
	s.logger.Info("trading cycle completed")
}
