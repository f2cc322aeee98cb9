package sdk

import (
	"encoding/json"
	"time"
)

// 任务状态常量，与服务端的 status 整型字段对应
const (
	StatusProcessing  = 0
	StatusCompleted   = 1
	StatusFailed      = 2
	StatusInterrupted = 3
)

// 投票选项
const (
	VoteLeft     = "left"
	VoteRight    = "right"
	VoteBothGood = "both_good"
	VoteBothBad  = "both_bad"
)

// Task 任务记录
type Task struct {
	TaskID         string          `json:"task_id"`
	ProjectID      string          `json:"project_id"`
	TaskType       string          `json:"task_type"`
	Status         int             `json:"status"`
	StatusText     string          `json:"status_text"`
	Language       string          `json:"language,omitempty"`
	Detail         json.RawMessage `json:"detail,omitempty"`
	ModelInfo      json.RawMessage `json:"model_info,omitempty"`
	TotalCount     int             `json:"total_count"`
	CompletedCount int             `json:"completed_count"`
	Note           string          `json:"note,omitempty"`
	StartTime      *time.Time      `json:"start_time,omitempty"`
	EndTime        *time.Time      `json:"end_time,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Terminal 任务是否已到终态
func (t *Task) Terminal() bool {
	return t.Status == StatusCompleted || t.Status == StatusFailed || t.Status == StatusInterrupted
}

// TaskList 任务列表响应
type TaskList struct {
	Items []Task `json:"items"`
	Total int    `json:"total"`
}

// CreateEvaluationRequest 评估任务创建参数
type CreateEvaluationRequest struct {
	ProjectID     string
	ModelConfigID string
	DatasetIDs    []string
	JudgeModelID  string
	Language      string
}

// CreateGenerationRequest 数据集生成任务创建参数
type CreateGenerationRequest struct {
	ProjectID         string
	ModelConfigID     string
	ChunkIDs          []string
	QuestionsPerChunk int
	Language          string
}

// createTaskRequest 服务端 /tasks 的请求体
type createTaskRequest struct {
	ProjectID string          `json:"project_id"`
	TaskType  string          `json:"task_type"`
	Language  string          `json:"language,omitempty"`
	ModelInfo json.RawMessage `json:"model_info"`
	Detail    json.RawMessage `json:"detail"`
}

// ListTasksFilter 任务列表查询条件
type ListTasksFilter struct {
	ProjectID string
	TaskType  string
	Status    *int
	Limit     int
	Offset    int
}

// Result 单题判分结果
type Result struct {
	DatasetID     string  `json:"dataset_id"`
	ModelAnswer   string  `json:"model_answer"`
	Score         float64 `json:"score"`
	IsCorrect     bool    `json:"is_correct"`
	JudgeResponse string  `json:"judge_response,omitempty"`
}

// TaskResults 评估任务结果响应
type TaskResults struct {
	TaskID  string          `json:"task_id"`
	Stats   json.RawMessage `json:"stats"`
	Results []Result        `json:"results"`
}

// CreateBlindTestRequest 盲测任务创建请求
type CreateBlindTestRequest struct {
	ProjectID   string   `json:"project_id"`
	ModelAID    string   `json:"model_a_id"`
	ModelBID    string   `json:"model_b_id"`
	QuestionIDs []string `json:"question_ids"`
	Language    string   `json:"language,omitempty"`
}

// Round 盲测轮次，左右归属对投票方不可见
type Round struct {
	Completed   bool   `json:"completed"`
	Index       int    `json:"index"`
	Total       int    `json:"total"`
	QuestionID  string `json:"question_id,omitempty"`
	Question    string `json:"question,omitempty"`
	LeftAnswer  string `json:"left_answer,omitempty"`
	RightAnswer string `json:"right_answer,omitempty"`
	LeftError   string `json:"left_error,omitempty"`
	RightError  string `json:"right_error,omitempty"`
}

// VoteOutcome 投票后的任务进展
type VoteOutcome struct {
	CurrentIndex int     `json:"current_index"`
	Total        int     `json:"total"`
	Completed    bool    `json:"completed"`
	ModelAScore  float64 `json:"model_a_score"`
	ModelBScore  float64 `json:"model_b_score"`
}
