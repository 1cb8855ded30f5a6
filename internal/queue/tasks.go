package queue

import (
	"encoding/json"

	"github.com/qrcard-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskBatchGenerate 批次产物生成任务
	TaskBatchGenerate = constants.TaskBatchGenerate
)

// BatchGeneratePayload 批次产物生成任务载荷
type BatchGeneratePayload struct {
	BatchID string `json:"batch_id"`
	Origin  string `json:"origin"`
}

// NewBatchGenerateTask 创建批次产物生成任务
func NewBatchGenerateTask(payload BatchGeneratePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBatchGenerate, body), nil
}
