package scheduler

import (
	"context"
	"fmt"
	"time"

	"reclamation_backend/internal/reclamations/transport"
	"reclamation_backend/platform/config"
	"reclamation_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// MonitorRunner runs one SLA monitoring pass as of the given instant.
// Implemented by the reclamations service.
type MonitorRunner interface {
	RunMonitorTick(ctx context.Context, now time.Time) (*transport.TickResultResponse, error)
}

type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	monitor MonitorRunner
	log     *logger.Logger
}

// NewWorker builds the asynq consumer. The monitor queue runs with
// concurrency 1 so two ticks can never interleave within one worker, and
// the queue itself serializes ticks across processes.
func NewWorker(cfg config.SchedulerConfig, monitor MonitorRunner, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: 1,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:  server,
		mux:     mux,
		monitor: monitor,
		log:     log,
	}

	mux.HandleFunc(TaskSLAMonitorTick, w.handleSLAMonitorTick)

	return w, nil
}

func (w *Worker) handleSLAMonitorTick(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseSLAMonitorTickPayload(task)
	if err != nil {
		return err
	}

	result, err := w.monitor.RunMonitorTick(ctx, payload.ScheduledAt.UTC())
	if err != nil {
		return err
	}

	w.log.Info("sla monitor tick complete",
		"scheduledAt", payload.ScheduledAt,
		"processed", result.Processed,
		"alertsCreated", result.AlertsCreated,
		"escalated", result.Escalated,
		"skipped", result.Skipped,
	)
	return nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
