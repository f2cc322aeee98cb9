package repository

import (
	"encoding/json"
	"time"

	"github.com/azhengyongqin/eval-hub/internal/model"
)

// TaskModel GORM 模型 - 对应 task 表
type TaskModel struct {
	ID             int64           `gorm:"primaryKey;autoIncrement;column:id"`
	TaskID         string          `gorm:"column:task_id;uniqueIndex;type:text;not null"`
	ProjectID      string          `gorm:"column:project_id;type:text;not null;index:idx_task_project_created_at"`
	TaskType       string          `gorm:"column:task_type;type:text;not null;index:idx_task_type_status"`
	Status         int             `gorm:"column:status;not null;default:0;index:idx_task_type_status"`
	ModelInfo      json.RawMessage `gorm:"column:model_info;type:jsonb"`
	Language       *string         `gorm:"column:language;type:text"`
	Detail         json.RawMessage `gorm:"column:detail;type:jsonb"`
	TotalCount     int             `gorm:"column:total_count;default:0"`
	CompletedCount int             `gorm:"column:completed_count;default:0"`
	Note           *string         `gorm:"column:note;type:text"`
	StartTime      *time.Time      `gorm:"column:start_time"`
	EndTime        *time.Time      `gorm:"column:end_time"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime;index:idx_task_project_created_at,sort:desc"`
}

// TableName 指定表名
func (TaskModel) TableName() string { return "task" }

// ToTask 转换为 Task 实体
func (m *TaskModel) ToTask() Task {
	t := Task{
		TaskID:         m.TaskID,
		ProjectID:      m.ProjectID,
		TaskType:       m.TaskType,
		Status:         model.TaskStatus(m.Status),
		ModelInfo:      m.ModelInfo,
		Detail:         m.Detail,
		TotalCount:     m.TotalCount,
		CompletedCount: m.CompletedCount,
		StartTime:      m.StartTime,
		EndTime:        m.EndTime,
		CreatedAt:      m.CreatedAt,
	}
	if m.Language != nil {
		t.Language = *m.Language
	}
	if m.Note != nil {
		t.Note = *m.Note
	}
	return t
}

// TaskToModel 从 Task 实体创建模型
func TaskToModel(t Task) TaskModel {
	m := TaskModel{
		TaskID:         t.TaskID,
		ProjectID:      t.ProjectID,
		TaskType:       t.TaskType,
		Status:         int(t.Status),
		ModelInfo:      t.ModelInfo,
		Detail:         t.Detail,
		TotalCount:     t.TotalCount,
		CompletedCount: t.CompletedCount,
		StartTime:      t.StartTime,
		EndTime:        t.EndTime,
		CreatedAt:      t.CreatedAt,
	}
	if t.Language != "" {
		m.Language = &t.Language
	}
	if t.Note != "" {
		m.Note = &t.Note
	}
	return m
}

// EvalDatasetModel GORM 模型 - 对应 eval_dataset 表
type EvalDatasetModel struct {
	ID            int64           `gorm:"primaryKey;autoIncrement;column:id"`
	DatasetID     string          `gorm:"column:dataset_id;uniqueIndex;type:text;not null"`
	ProjectID     string          `gorm:"column:project_id;type:text;not null;index:idx_dataset_project"`
	Question      string          `gorm:"column:question;type:text;not null"`
	QuestionType  string          `gorm:"column:question_type;type:text;not null"`
	Options       json.RawMessage `gorm:"column:options;type:jsonb"`
	CorrectAnswer string          `gorm:"column:correct_answer;type:text;not null"`
	Tags          *string         `gorm:"column:tags;type:text"`
	ChunkID       *string         `gorm:"column:chunk_id;type:text"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// TableName 指定表名
func (EvalDatasetModel) TableName() string { return "eval_dataset" }

// ToDataset 转换为 EvalDataset 实体
func (m *EvalDatasetModel) ToDataset() EvalDataset {
	ds := EvalDataset{
		DatasetID:     m.DatasetID,
		ProjectID:     m.ProjectID,
		Question:      m.Question,
		QuestionType:  model.QuestionType(m.QuestionType),
		CorrectAnswer: m.CorrectAnswer,
		CreatedAt:     m.CreatedAt,
	}
	// 解析 Options JSON（坏数据按无选项处理）
	if len(m.Options) > 0 {
		_ = json.Unmarshal(m.Options, &ds.Options)
	}
	if m.Tags != nil {
		ds.Tags = *m.Tags
	}
	if m.ChunkID != nil {
		ds.ChunkID = *m.ChunkID
	}
	return ds
}

// DatasetToModel 从 EvalDataset 实体创建模型
func DatasetToModel(ds EvalDataset) EvalDatasetModel {
	m := EvalDatasetModel{
		DatasetID:     ds.DatasetID,
		ProjectID:     ds.ProjectID,
		Question:      ds.Question,
		QuestionType:  string(ds.QuestionType),
		CorrectAnswer: ds.CorrectAnswer,
		CreatedAt:     ds.CreatedAt,
	}
	if len(ds.Options) > 0 {
		m.Options, _ = json.Marshal(ds.Options)
	} else {
		m.Options = json.RawMessage("[]")
	}
	if ds.Tags != "" {
		m.Tags = &ds.Tags
	}
	if ds.ChunkID != "" {
		m.ChunkID = &ds.ChunkID
	}
	return m
}

// EvalResultModel GORM 模型 - 对应 eval_result 表
type EvalResultModel struct {
	ID            int64     `gorm:"primaryKey;autoIncrement;column:id"`
	TaskID        string    `gorm:"column:task_id;type:text;not null;uniqueIndex:idx_result_task_dataset"`
	DatasetID     string    `gorm:"column:dataset_id;type:text;not null;uniqueIndex:idx_result_task_dataset"`
	ModelAnswer   string    `gorm:"column:model_answer;type:text"`
	Score         float64   `gorm:"column:score;default:0"`
	IsCorrect     bool      `gorm:"column:is_correct;default:false"`
	JudgeResponse *string   `gorm:"column:judge_response;type:text"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName 指定表名
func (EvalResultModel) TableName() string { return "eval_result" }

// ModelConfigModel GORM 模型 - 对应 model_config 表
type ModelConfigModel struct {
	ID            int64   `gorm:"primaryKey;autoIncrement;column:id"`
	ModelConfigID string  `gorm:"column:model_config_id;uniqueIndex;type:text;not null"`
	ProviderID    string  `gorm:"column:provider_id;type:text;not null"`
	Endpoint      string  `gorm:"column:endpoint;type:text;not null"`
	APIKey        string  `gorm:"column:api_key;type:text"`
	ModelName     string  `gorm:"column:model_name;type:text;not null"`
	Temperature   float32 `gorm:"column:temperature;default:0.7"`
	TopP          float32 `gorm:"column:top_p;default:0.9"`
	TopK          int     `gorm:"column:top_k;default:0"`
	MaxTokens     int     `gorm:"column:max_tokens;default:2048"`
}

// TableName 指定表名
func (ModelConfigModel) TableName() string { return "model_config" }

// ChunkModel GORM 模型 - 对应 chunk 表
type ChunkModel struct {
	ID        int64  `gorm:"primaryKey;autoIncrement;column:id"`
	ChunkID   string `gorm:"column:chunk_id;uniqueIndex;type:text;not null"`
	ProjectID string `gorm:"column:project_id;type:text;not null;index:idx_chunk_project"`
	Name      string `gorm:"column:name;type:text"`
	Content   string `gorm:"column:content;type:text;not null"`
}

// TableName 指定表名
func (ChunkModel) TableName() string { return "chunk" }

// ModelUsageLogModel GORM 模型 - 对应 model_usage_log 表
type ModelUsageLogModel struct {
	ID           int64     `gorm:"primaryKey;autoIncrement;column:id"`
	ProviderID   string    `gorm:"column:provider_id;type:text;not null"`
	ModelName    string    `gorm:"column:model_name;type:text;not null"`
	InputTokens  int       `gorm:"column:input_tokens;default:0"`
	OutputTokens int       `gorm:"column:output_tokens;default:0"`
	DurationMs   int64     `gorm:"column:duration_ms;default:0"`
	Status       string    `gorm:"column:status;type:text"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime;index:idx_usage_created_at,sort:desc"`
}

// TableName 指定表名
func (ModelUsageLogModel) TableName() string { return "model_usage_log" }

// AllModels AutoMigrate 用的全量模型列表
func AllModels() []any {
	return []any{
		&TaskModel{},
		&EvalDatasetModel{},
		&EvalResultModel{},
		&ModelConfigModel{},
		&ChunkModel{},
		&ModelUsageLogModel{},
	}
}
