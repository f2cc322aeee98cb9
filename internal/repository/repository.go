package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/azhengyongqin/eval-hub/internal/model"
)

// Task 表示一个持久化的异步工作单位。
// Task 记录是任务可变状态的唯一串行化点：completed_count/status/detail
// 的所有更新都是针对最新持久化版本的读-改-写。
type Task struct {
	TaskID         string           `json:"task_id"`
	ProjectID      string           `json:"project_id"`
	TaskType       string           `json:"task_type"`
	Status         model.TaskStatus `json:"status"`
	ModelInfo      json.RawMessage  `json:"model_info,omitempty"`
	Language       string           `json:"language,omitempty"`
	Detail         json.RawMessage  `json:"detail,omitempty"`
	TotalCount     int              `json:"total_count"`
	CompletedCount int              `json:"completed_count"`
	Note           string           `json:"note,omitempty"`
	StartTime      *time.Time       `json:"start_time,omitempty"`
	EndTime        *time.Time       `json:"end_time,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

// EvalDataset 一条评估题目
type EvalDataset struct {
	DatasetID     string             `json:"dataset_id"`
	ProjectID     string             `json:"project_id"`
	Question      string             `json:"question"`
	QuestionType  model.QuestionType `json:"question_type"`
	Options       []string           `json:"options,omitempty"`
	CorrectAnswer string             `json:"correct_answer"`
	Tags          string             `json:"tags,omitempty"`
	ChunkID       string             `json:"chunk_id,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
}

// EvalResult 某任务内对某题的一次判分结果，(task_id, dataset_id) 唯一。
// 重跑通过 upsert 覆盖同一键，不会产生语义不同的重复记录。
type EvalResult struct {
	TaskID        string    `json:"task_id"`
	DatasetID     string    `json:"dataset_id"`
	ModelAnswer   string    `json:"model_answer"`
	Score         float64   `json:"score"`
	IsCorrect     bool      `json:"is_correct"`
	JudgeResponse string    `json:"judge_response,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// ModelConfig 模型端点配置（协作方数据，这里只读）
type ModelConfig struct {
	ModelConfigID string  `json:"model_config_id"`
	ProviderID    string  `json:"provider_id"`
	Endpoint      string  `json:"endpoint"`
	APIKey        string  `json:"-"`
	ModelName     string  `json:"model_name"`
	Temperature   float32 `json:"temperature"`
	TopP          float32 `json:"top_p"`
	TopK          int     `json:"top_k"`
	MaxTokens     int     `json:"max_tokens"`
}

// Chunk 文本分块（协作方数据，生成任务只读取）
type Chunk struct {
	ChunkID   string `json:"chunk_id"`
	ProjectID string `json:"project_id"`
	Name      string `json:"name"`
	Content   string `json:"content"`
}

// UsageLog 一次模型调用的用量记录（尽力而为写入）
type UsageLog struct {
	ProviderID   string    `json:"provider_id"`
	ModelName    string    `json:"model_name"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	DurationMs   int64     `json:"duration_ms"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// ListTasksFilter 任务列表查询过滤条件
type ListTasksFilter struct {
	ProjectID string
	TaskType  string
	Status    *model.TaskStatus
	Limit     int
	Offset    int
}

// TaskRepository 任务仓储接口。
// FinishTask/UpdateProgress 带 status=processing 守卫：终态任务的写入是 no-op，
// 驱动例程与外部中断的竞态因此收敛为 last-writer-wins 且不会出现非法状态。
type TaskRepository interface {
	// CreateTask 创建任务（processing、completed_count=0）
	CreateTask(ctx context.Context, task Task) error

	// GetTask 根据 task_id 获取任务
	GetTask(ctx context.Context, taskID string) (*Task, error)

	// UpdateDetail 回写 detail 与进度计数，仅对 processing 任务生效；
	// 返回是否真的写入。读-改-写路径据此发现自己输掉了与终态迁移的竞争
	UpdateDetail(ctx context.Context, taskID string, detail json.RawMessage, completedCount int) (bool, error)

	// UpdateProgress 更新进度计数，仅对 processing 任务生效
	UpdateProgress(ctx context.Context, taskID string, completedCount int) error

	// FinishTask 迁移到终态并打 end_time，仅对 processing 任务生效；
	// 返回是否真的发生了迁移
	FinishTask(ctx context.Context, taskID string, status model.TaskStatus, note string, endTime time.Time) (bool, error)

	// ListTasks 按条件分页查询
	ListTasks(ctx context.Context, f ListTasksFilter) ([]Task, error)

	// CountTasks 按条件计数
	CountTasks(ctx context.Context, f ListTasksFilter) (int, error)
}

// DatasetRepository 评估题目仓储接口
type DatasetRepository interface {
	GetDataset(ctx context.Context, datasetID string) (*EvalDataset, error)
	ListDatasetsByIDs(ctx context.Context, datasetIDs []string) ([]EvalDataset, error)
	ListDatasets(ctx context.Context, projectID string, limit, offset int) ([]EvalDataset, error)
	CreateDataset(ctx context.Context, ds EvalDataset) error
}

// ResultRepository 判分结果仓储接口
type ResultRepository interface {
	// UpsertResult 以 (task_id, dataset_id) 为键写入，冲突时覆盖
	UpsertResult(ctx context.Context, r EvalResult) error
	ListResultsByTask(ctx context.Context, taskID string) ([]EvalResult, error)
}

// ChunkRepository 分块读取接口（协作方边界）
type ChunkRepository interface {
	GetChunk(ctx context.Context, chunkID string) (*Chunk, error)
}

// ModelConfigRepository 模型配置读取接口（协作方边界）
type ModelConfigRepository interface {
	GetModelConfig(ctx context.Context, modelConfigID string) (*ModelConfig, error)
}

// UsageLogRepository 用量日志写入接口
type UsageLogRepository interface {
	InsertUsageLog(ctx context.Context, l UsageLog) error
}
