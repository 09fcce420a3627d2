package scheduler

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const TaskSLAMonitorTick = "reclamations.sla_monitor.tick"

type SLAMonitorTickPayload struct {
	ScheduledAt time.Time `json:"scheduledAt"`
}

func NewSLAMonitorTickTask(payload SLAMonitorTickPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSLAMonitorTick, data), nil
}

func ParseSLAMonitorTickPayload(task *asynq.Task) (SLAMonitorTickPayload, error) {
	var payload SLAMonitorTickPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return SLAMonitorTickPayload{}, err
	}
	return payload, nil
}
