package worker

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/qrcard-next/internal/logger"
	"github.com/qrcard-next/internal/provider"
	"github.com/qrcard-next/internal/queue"
	"github.com/qrcard-next/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskBatchGenerate, c.handleBatchGenerate)
}

func (c *Consumer) handleBatchGenerate(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_batch_generate_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.BatchGeneratePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_batch_generate_unmarshal_failed", "error", err)
		return err
	}
	if payload.BatchID == "" {
		logger.Debugw("worker_batch_generate_skip_invalid_payload")
		return nil
	}
	if c.BatchService == nil {
		logger.Warnw("worker_batch_generate_skip_service_nil", "batch_id", payload.BatchID)
		return nil
	}

	result, err := c.BatchService.GenerateArtifacts(ctx, payload.BatchID, payload.Origin)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBatchNotFound):
			logger.Debugw("worker_batch_generate_skip_batch_not_found", "batch_id", payload.BatchID)
			return nil
		case errors.Is(err, service.ErrNoContacts):
			logger.Debugw("worker_batch_generate_skip_no_contacts", "batch_id", payload.BatchID)
			return nil
		default:
			logger.Warnw("worker_batch_generate_failed", "batch_id", payload.BatchID, "error", err)
			return err
		}
	}
	logger.Infow("worker_batch_generated",
		"batch_id", payload.BatchID,
		"generated_count", result.GeneratedCount,
		"total_contacts", result.TotalContacts,
	)
	return nil
}
