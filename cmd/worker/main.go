package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/XIAOke8698/GRAS-Manager/internal/bootstrap"
	"github.com/XIAOke8698/GRAS-Manager/internal/domain"
	"github.com/XIAOke8698/GRAS-Manager/internal/download"
	"github.com/XIAOke8698/GRAS-Manager/internal/infra"
	"github.com/XIAOke8698/GRAS-Manager/internal/lifecycle"
)

type sweepWorker struct {
	ctx          context.Context
	logger       infra.Logger
	tasks        *lifecycle.Manager
	downloads    *download.Manager
	interval     time.Duration
	autoDownload bool
}

func main() {
	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := bootstrap.Build(ctx, cfg, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: bootstrap failed")
	}
	defer svc.Close()

	interval := cfg.RefreshInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	worker := &sweepWorker{
		ctx:          ctx,
		logger:       logger,
		tasks:        svc.Tasks,
		downloads:    svc.Downloads,
		interval:     interval,
		autoDownload: cfg.AutoDownload,
	}

	if err := worker.Run(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}

// Run sweeps immediately and then on every tick until the context ends.
func (w *sweepWorker) Run() error {
	w.logger.Info().Dur("interval", w.interval).Bool("auto_download", w.autoDownload).Msg("worker: started")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		w.sweep()
		select {
		case <-w.ctx.Done():
			return w.ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *sweepWorker) sweep() {
	summary, err := w.tasks.RefreshAll(w.ctx)
	if err != nil {
		w.logger.Error().Err(err).Msg("worker: refresh failed")
		return
	}
	if summary.Polled > 0 {
		w.logger.Info().
			Int("polled", summary.Polled).
			Int("poll_errors", summary.PollErrors).
			Int("transitions", summary.Transitions).
			Int("succeeded", summary.Succeeded).
			Int("failed", summary.Failed).
			Msg("worker: sweep done")
	}
	if w.autoDownload {
		w.downloadFinished()
	}
}

func (w *sweepWorker) downloadFinished() {
	tasks, err := w.tasks.List(w.ctx, domain.TaskFilter{Status: domain.TaskStatusSucceeded})
	if err != nil {
		w.logger.Error().Err(err).Msg("worker: list finished tasks failed")
		return
	}
	for _, task := range tasks {
		if w.ctx.Err() != nil {
			return
		}
		if !download.Pending(task) {
			continue
		}
		if _, err := w.downloads.MaterializeAll(w.ctx, task.TaskID); err != nil {
			w.logger.Warn().Err(err).Str("task_id", task.TaskID).Msg("worker: download failed")
			continue
		}
		w.logger.Info().Str("task_id", task.TaskID).Str("task_type", string(task.TaskType)).Msg("worker: downloaded media")
	}
}
