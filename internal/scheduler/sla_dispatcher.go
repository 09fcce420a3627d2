package scheduler

import (
	"context"
	"time"

	"reclamation_backend/platform/config"
	"reclamation_backend/platform/logger"
)

// SLADispatcher enqueues a monitoring tick on a fixed interval. It only
// produces tasks; execution happens on the worker, so multiple dispatcher
// replicas at most deduplicate against each other via the task ID.
type SLADispatcher struct {
	client   *Client
	interval time.Duration
	log      *logger.Logger
}

func NewSLADispatcher(cfg config.SchedulerConfig, log *logger.Logger) (*SLADispatcher, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}

	interval := cfg.GetMonitorInterval()
	if interval <= 0 {
		interval = time.Hour
	}

	return &SLADispatcher{
		client:   client,
		interval: interval,
		log:      log,
	}, nil
}

func (d *SLADispatcher) Close() error {
	if d == nil || d.client == nil {
		return nil
	}
	return d.client.Close()
}

func (d *SLADispatcher) Run(ctx context.Context) {
	if d == nil || d.client == nil {
		return
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if err := d.client.EnqueueSLAMonitorTick(ctx, now.UTC()); err != nil {
				d.log.Warn("sla monitor tick enqueue failed", "error", err)
			}
		}
	}
}
