package dto

import (
	"encoding/json"
	"time"

	"github.com/azhengyongqin/eval-hub/internal/repository"
)

// CreateTaskRequest 创建后台任务请求。
// detail 的 schema 由 task_type 决定：
// evaluation 需要 dataset_ids（可带 judge_model_id），
// dataset-generation 需要 chunk_ids（可带 questions_per_chunk）。
type CreateTaskRequest struct {
	ProjectID string          `json:"project_id" binding:"required" example:"proj_1"`
	TaskType  string          `json:"task_type" binding:"required" example:"evaluation"`
	Language  string          `json:"language" example:"zh"`
	ModelInfo json.RawMessage `json:"model_info" binding:"required"`
	Detail    json.RawMessage `json:"detail" binding:"required"`
}

// TaskView 任务详情视图
type TaskView struct {
	TaskID         string          `json:"task_id" example:"3f8a1c2b4d5e6f708192a3b4c5d6e7f8"`
	ProjectID      string          `json:"project_id" example:"proj_1"`
	TaskType       string          `json:"task_type" example:"evaluation"`
	Status         int             `json:"status" example:"0"`
	StatusText     string          `json:"status_text" example:"processing"`
	Language       string          `json:"language,omitempty" example:"zh"`
	Detail         json.RawMessage `json:"detail,omitempty"`
	ModelInfo      json.RawMessage `json:"model_info,omitempty"`
	TotalCount     int             `json:"total_count" example:"10"`
	CompletedCount int             `json:"completed_count" example:"7"`
	Note           string          `json:"note,omitempty"`
	StartTime      *time.Time      `json:"start_time,omitempty"`
	EndTime        *time.Time      `json:"end_time,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// TaskViewOf 从仓储实体构建视图
func TaskViewOf(t repository.Task) TaskView {
	return TaskView{
		TaskID:         t.TaskID,
		ProjectID:      t.ProjectID,
		TaskType:       t.TaskType,
		Status:         int(t.Status),
		StatusText:     t.Status.String(),
		Language:       t.Language,
		Detail:         t.Detail,
		ModelInfo:      t.ModelInfo,
		TotalCount:     t.TotalCount,
		CompletedCount: t.CompletedCount,
		Note:           t.Note,
		StartTime:      t.StartTime,
		EndTime:        t.EndTime,
		CreatedAt:      t.CreatedAt,
	}
}

// TaskListRequest 任务列表查询请求
type TaskListRequest struct {
	ProjectID string `form:"project_id" example:"proj_1"`
	TaskType  string `form:"task_type" example:"evaluation"`
	Status    *int   `form:"status" example:"0"`
	Limit     int    `form:"limit" example:"20"`
	Offset    int    `form:"offset" example:"0"`
}

// TaskListResponse 任务列表响应
type TaskListResponse struct {
	Items []TaskView `json:"items"`
	Total int        `json:"total"`
}

// ResultView 单题判分结果视图
type ResultView struct {
	DatasetID     string  `json:"dataset_id"`
	ModelAnswer   string  `json:"model_answer"`
	Score         float64 `json:"score" example:"0.8"`
	IsCorrect     bool    `json:"is_correct" example:"true"`
	JudgeResponse string  `json:"judge_response,omitempty"`
}

// TaskResultsResponse 评估任务结果响应
type TaskResultsResponse struct {
	TaskID  string       `json:"task_id"`
	Stats   interface{}  `json:"stats"`
	Results []ResultView `json:"results"`
}
