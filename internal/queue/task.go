package asynqx

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// 后台任务的 asynq 类型标签
const (
	TypeEvaluationRun   = "eval:run"
	TypeDatasetGenerate = "dataset:generate"
)

// QueueDefault 引擎统一使用的队列名
const QueueDefault = "evalhub"

// NewTaskID 生成随机 task_id（16 字节随机数的 hex 编码，32 字符）
func NewTaskID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

// TaskMessage 队列消息载荷。只带 task_id，执行时以持久化的 Task 记录为准，
// 消息重复投递不会引入第二份状态。
type TaskMessage struct {
	TaskID string `json:"task_id"`
}

// NewAsynqTask 组装入队消息
func NewAsynqTask(taskType, taskID string) (*asynq.Task, error) {
	payload, err := json.Marshal(TaskMessage{TaskID: taskID})
	if err != nil {
		return nil, fmt.Errorf("marshal task message: %w", err)
	}
	return asynq.NewTask(taskType, payload), nil
}

// ParseTaskMessage 解析队列消息
func ParseTaskMessage(t *asynq.Task) (TaskMessage, error) {
	var msg TaskMessage
	if err := json.Unmarshal(t.Payload(), &msg); err != nil {
		return TaskMessage{}, fmt.Errorf("unmarshal task message: %w", err)
	}
	if msg.TaskID == "" {
		return TaskMessage{}, fmt.Errorf("task message missing task_id")
	}
	return msg, nil
}

// EnqueueOptions 统一的入队选项。
// 不做队列级重试（MaxRetry 0）：任务失败语义由 Task 记录承载，
// 重试会造成驱动例程对同一 Task 的重复推进。
// task_id 作为唯一键，同一任务只允许一次入队。
func EnqueueOptions(taskID string) []asynq.Option {
	return []asynq.Option{
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(0),
		asynq.TaskID(taskID),
	}
}
