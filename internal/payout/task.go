package payout

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TypePayoutExecute  = "payout:execute"
	TypeClearanceSweep = "ledger:clearance-sweep"
)

type ExecutePayload struct {
	PayoutID string `json:"payout_id"`
}

func NewExecuteTask(payoutID string) (*asynq.Task, error) {
	payload, err := json.Marshal(ExecutePayload{PayoutID: payoutID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypePayoutExecute, payload), nil
}

func NewClearanceSweepTask() *asynq.Task {
	return asynq.NewTask(TypeClearanceSweep, nil)
}

// AsynqEnqueuer schedules payout executions on the Redis-backed queue. The
// payout id doubles as the task id, so a request that is retried after a
// half-failed enqueue cannot schedule the same payout twice.
type AsynqEnqueuer struct {
	client *asynq.Client
	logger *slog.Logger
}

func NewAsynqEnqueuer(client *asynq.Client, logger *slog.Logger) *AsynqEnqueuer {
	return &AsynqEnqueuer{
		client: client,
		logger: logger,
	}
}

func (e *AsynqEnqueuer) EnqueueExecute(ctx context.Context, payoutID string, processAt time.Time) error {
	task, err := NewExecuteTask(payoutID)
	if err != nil {
		return err
	}

	info, err := e.client.EnqueueContext(ctx, task,
		asynq.TaskID(payoutID),
		asynq.ProcessAt(processAt),
		asynq.MaxRetry(5),
		asynq.Timeout(2*time.Minute),
	)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			e.logger.Info("payout execution already scheduled", "payout_id", payoutID)
			return nil
		}
		return err
	}

	e.logger.Info("scheduled payout execution",
		"payout_id", payoutID,
		"task_id", info.ID,
		"queue", info.Queue,
		"process_at", processAt)
	return nil
}

// TaskHandler consumes queue jobs. Errors returned here make asynq redeliver
// the task; ExecutePayout converts business failures into terminal FAILED
// rows and returns nil, so only infrastructure errors retry.
type TaskHandler struct {
	service *Service
	logger  *slog.Logger
}

func NewTaskHandler(service *Service, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{
		service: service,
		logger:  logger,
	}
}

func (h *TaskHandler) HandleExecute(ctx context.Context, task *asynq.Task) error {
	var payload ExecutePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		h.logger.Error("malformed payout execution payload", "error", err)
		return asynq.SkipRetry
	}

	h.logger.Info("executing payout", "payout_id", payload.PayoutID)
	return h.service.ExecutePayout(ctx, payload.PayoutID)
}

func (h *TaskHandler) HandleClearanceSweep(ctx context.Context, _ *asynq.Task) error {
	_, err := h.service.SweepDuePayouts(ctx, 100)
	return err
}

func (h *TaskHandler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypePayoutExecute, h.HandleExecute)
	mux.HandleFunc(TypeClearanceSweep, h.HandleClearanceSweep)
}
