package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/azhengyongqin/eval-hub/internal/apperr"
	"github.com/azhengyongqin/eval-hub/internal/grader"
	"github.com/azhengyongqin/eval-hub/internal/logger"
	"github.com/azhengyongqin/eval-hub/internal/metrics"
	"github.com/azhengyongqin/eval-hub/internal/middleware"
	"github.com/azhengyongqin/eval-hub/internal/model"
	asynqx "github.com/azhengyongqin/eval-hub/internal/queue"
	"github.com/azhengyongqin/eval-hub/internal/repository"
	"github.com/azhengyongqin/eval-hub/internal/server/dto"
)

// TaskHandler 后台任务相关 API Handler
type TaskHandler struct {
	queue    *asynqx.Client
	tasks    repository.TaskRepository
	datasets repository.DatasetRepository
	results  repository.ResultRepository
}

// NewTaskHandler 创建 TaskHandler
func NewTaskHandler(queue *asynqx.Client, tasks repository.TaskRepository, datasets repository.DatasetRepository, results repository.ResultRepository) *TaskHandler {
	return &TaskHandler{
		queue:    queue,
		tasks:    tasks,
		datasets: datasets,
		results:  results,
	}
}

// CreateTask godoc
// @Summary 创建后台任务
// @Description 持久化一个 processing 状态的任务并交给后台队列执行，立即返回任务记录
// @Tags Tasks
// @Accept json
// @Produce json
// @Param request body dto.CreateTaskRequest true "任务创建请求"
// @Success 200 {object} dto.TaskView
// @Failure 400 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /tasks [post]
func (h *TaskHandler) CreateTask(c *gin.Context) {
	if h.queue == nil {
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{Error: "任务队列未配置"})
		return
	}

	var req dto.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}
	if !middleware.ValidateProjectID(req.ProjectID) {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "project_id 格式无效"})
		return
	}

	// 写路径严格校验 detail；盲测任务走专门的创建端点
	var queueType string
	var totalCount int
	switch req.TaskType {
	case model.TaskTypeEvaluation:
		var detail model.EvaluationDetail
		if err := json.Unmarshal(req.Detail, &detail); err != nil || len(detail.DatasetIDs) == 0 {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "detail 需要非空的 dataset_ids"})
			return
		}
		queueType = asynqx.TypeEvaluationRun
		totalCount = len(detail.DatasetIDs)
	case model.TaskTypeGeneration:
		var detail model.GenerationDetail
		if err := json.Unmarshal(req.Detail, &detail); err != nil || len(detail.ChunkIDs) == 0 {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "detail 需要非空的 chunk_ids"})
			return
		}
		queueType = asynqx.TypeDatasetGenerate
		totalCount = len(detail.ChunkIDs)
	default:
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "task_type 无效，支持 evaluation / dataset-generation"})
		return
	}

	var info model.EvalModelInfo
	if err := json.Unmarshal(req.ModelInfo, &info); err != nil || info.ModelConfigID == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "model_info 需要 model_config_id"})
		return
	}

	now := time.Now()
	task := repository.Task{
		TaskID:     asynqx.NewTaskID(),
		ProjectID:  req.ProjectID,
		TaskType:   req.TaskType,
		Status:     model.TaskStatusProcessing,
		ModelInfo:  req.ModelInfo,
		Language:   req.Language,
		Detail:     req.Detail,
		TotalCount: totalCount,
		StartTime:  &now,
		CreatedAt:  now,
	}
	if err := h.tasks.CreateTask(c.Request.Context(), task); err != nil {
		respondError(c, apperr.Internal(err, "create task"))
		return
	}

	if err := h.queue.EnqueueTask(c.Request.Context(), queueType, task.TaskID); err != nil {
		// 入队失败时任务不能停留在 processing，直接转 failed
		if _, ferr := h.tasks.FinishTask(c.Request.Context(), task.TaskID, model.TaskStatusFailed, "任务入队失败", time.Now()); ferr != nil {
			logger.Error().Str("task_id", task.TaskID).Err(ferr).Msg("入队失败后任务转 failed 失败")
		}
		respondError(c, apperr.Internal(err, "enqueue task"))
		return
	}

	metrics.RecordTaskCreated(req.TaskType)
	c.JSON(http.StatusOK, dto.TaskViewOf(task))
}

// ListTasks godoc
// @Summary 任务列表
// @Description 按项目、类型、状态分页查询任务
// @Tags Tasks
// @Produce json
// @Param project_id query string false "项目 ID"
// @Param task_type query string false "任务类型"
// @Param status query int false "任务状态（0-3）"
// @Param limit query int false "分页大小"
// @Param offset query int false "分页偏移"
// @Success 200 {object} dto.TaskListResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /tasks [get]
func (h *TaskHandler) ListTasks(c *gin.Context) {
	var req dto.TaskListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	filter := repository.ListTasksFilter{
		ProjectID: req.ProjectID,
		TaskType:  req.TaskType,
		Limit:     req.Limit,
		Offset:    req.Offset,
	}
	if req.Status != nil {
		s := model.TaskStatus(*req.Status)
		if !s.Valid() {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "status 无效"})
			return
		}
		filter.Status = &s
	}

	tasks, err := h.tasks.ListTasks(c.Request.Context(), filter)
	if err != nil {
		respondError(c, apperr.Internal(err, "list tasks"))
		return
	}
	total, err := h.tasks.CountTasks(c.Request.Context(), filter)
	if err != nil {
		respondError(c, apperr.Internal(err, "count tasks"))
		return
	}

	items := make([]dto.TaskView, 0, len(tasks))
	for _, t := range tasks {
		items = append(items, dto.TaskViewOf(t))
	}
	c.JSON(http.StatusOK, dto.TaskListResponse{Items: items, Total: total})
}

// GetTask godoc
// @Summary 任务详情
// @Description 查询任务的最新状态与进度，轮询入口
// @Tags Tasks
// @Produce json
// @Param task_id path string true "任务 ID"
// @Success 200 {object} dto.TaskView
// @Failure 404 {object} dto.ErrorResponse
// @Router /tasks/{task_id} [get]
func (h *TaskHandler) GetTask(c *gin.Context) {
	taskID := c.Param("task_id")
	task, err := h.tasks.GetTask(c.Request.Context(), taskID)
	if err != nil {
		if err == repository.ErrTaskNotFound {
			respondError(c, apperr.NotFound("task %s not found", taskID))
			return
		}
		respondError(c, apperr.Internal(err, "get task %s", taskID))
		return
	}
	c.JSON(http.StatusOK, dto.TaskViewOf(*task))
}

// GetTaskResults godoc
// @Summary 评估任务结果
// @Description 返回任务的逐题判分结果与汇总统计
// @Tags Tasks
// @Produce json
// @Param task_id path string true "任务 ID"
// @Success 200 {object} dto.TaskResultsResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /tasks/{task_id}/results [get]
func (h *TaskHandler) GetTaskResults(c *gin.Context) {
	taskID := c.Param("task_id")
	if _, err := h.tasks.GetTask(c.Request.Context(), taskID); err != nil {
		if err == repository.ErrTaskNotFound {
			respondError(c, apperr.NotFound("task %s not found", taskID))
			return
		}
		respondError(c, apperr.Internal(err, "get task %s", taskID))
		return
	}

	results, err := h.results.ListResultsByTask(c.Request.Context(), taskID)
	if err != nil {
		respondError(c, apperr.Internal(err, "list results for task %s", taskID))
		return
	}

	// 统计需要题型信息，按结果里的 dataset_id 批量回查
	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.DatasetID)
	}
	typeByDataset := make(map[string]model.QuestionType, len(ids))
	if datasets, err := h.datasets.ListDatasetsByIDs(c.Request.Context(), ids); err == nil {
		for _, ds := range datasets {
			typeByDataset[ds.DatasetID] = ds.QuestionType
		}
	}

	views := make([]dto.ResultView, 0, len(results))
	for _, r := range results {
		views = append(views, dto.ResultView{
			DatasetID:     r.DatasetID,
			ModelAnswer:   r.ModelAnswer,
			Score:         r.Score,
			IsCorrect:     r.IsCorrect,
			JudgeResponse: r.JudgeResponse,
		})
	}

	c.JSON(http.StatusOK, dto.TaskResultsResponse{
		TaskID:  taskID,
		Stats:   grader.ComputeStats(results, typeByDataset),
		Results: views,
	})
}

// InterruptTask godoc
// @Summary 中断任务
// @Description 把 processing 任务标记为 interrupted，后台例程在下一个检查点停止；终态任务返回 409
// @Tags Tasks
// @Produce json
// @Param task_id path string true "任务 ID"
// @Success 200 {object} dto.TaskView
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /tasks/{task_id}/interrupt [post]
func (h *TaskHandler) InterruptTask(c *gin.Context) {
	taskID := c.Param("task_id")
	task, err := h.tasks.GetTask(c.Request.Context(), taskID)
	if err != nil {
		if err == repository.ErrTaskNotFound {
			respondError(c, apperr.NotFound("task %s not found", taskID))
			return
		}
		respondError(c, apperr.Internal(err, "get task %s", taskID))
		return
	}
	if task.Status != model.TaskStatusProcessing {
		respondError(c, apperr.InvalidState("task %s is %s, cannot interrupt", taskID, task.Status))
		return
	}

	moved, err := h.tasks.FinishTask(c.Request.Context(), taskID, model.TaskStatusInterrupted, "外部中断", time.Now())
	if err != nil {
		respondError(c, apperr.Internal(err, "interrupt task %s", taskID))
		return
	}
	if !moved {
		// 驱动例程抢先收尾，按当前最新状态报冲突
		respondError(c, apperr.InvalidState("task %s already reached a terminal status", taskID))
		return
	}
	metrics.RecordTaskFinished(task.TaskType, model.TaskStatusInterrupted.String())

	updated, err := h.tasks.GetTask(c.Request.Context(), taskID)
	if err != nil {
		respondError(c, apperr.Internal(err, "get task %s", taskID))
		return
	}
	c.JSON(http.StatusOK, dto.TaskViewOf(*updated))
}
