package job

import (
	"context"
	"time"

	"hoctuthien/internal/service"

	"go.uber.org/zap"
)

// Sweeper runs one smart sweep.
type Sweeper interface {
	SmartSweep(ctx context.Context, progress func(line string)) (*service.SweepReport, error)
}

// SyncSweepJob is the periodic timer that drives smart sweeps inside the server process.
type SyncSweepJob struct {
	sweeper  Sweeper
	stopCh   chan struct{}
	interval time.Duration
	logger   *zap.Logger
}

func NewSyncSweepJob(sweeper Sweeper, interval time.Duration, logger *zap.Logger) *SyncSweepJob {
	if interval <= 0 {
		interval = time.Minute
	}
	return &SyncSweepJob{
		sweeper:  sweeper,
		stopCh:   make(chan struct{}),
		interval: interval,
		logger:   logger.Named("SyncSweepJob"),
	}
}

func (j *SyncSweepJob) Start(ctx context.Context) {
	j.logger.Info("sync sweep job started", zap.Duration("interval", j.interval))

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-j.stopCh:
			j.logger.Info("sync sweep job stopped")
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *SyncSweepJob) Stop() {
	close(j.stopCh)
}

func (j *SyncSweepJob) sweep(ctx context.Context) {
	report, err := j.sweeper.SmartSweep(ctx, func(line string) { j.logger.Debug(line) })
	if err != nil {
		j.logger.Error("smart sweep failed", zap.Error(err))
		return
	}
	j.logger.Info("smart sweep done",
		zap.Int("campaigns", len(report.Campaigns)),
		zap.Int("finalized", report.Finalized()))
}
