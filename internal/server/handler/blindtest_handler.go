package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/azhengyongqin/eval-hub/internal/apperr"
	"github.com/azhengyongqin/eval-hub/internal/blindtest"
	"github.com/azhengyongqin/eval-hub/internal/metrics"
	"github.com/azhengyongqin/eval-hub/internal/middleware"
	"github.com/azhengyongqin/eval-hub/internal/model"
	asynqx "github.com/azhengyongqin/eval-hub/internal/queue"
	"github.com/azhengyongqin/eval-hub/internal/repository"
	"github.com/azhengyongqin/eval-hub/internal/server/dto"
)

// BlindTestHandler 盲测相关 API Handler。
// 盲测不走后台队列：轮次由查询当前题触发，投票推进游标。
type BlindTestHandler struct {
	tasks        repository.TaskRepository
	datasets     repository.DatasetRepository
	orchestrator *blindtest.Orchestrator
}

// NewBlindTestHandler 创建 BlindTestHandler
func NewBlindTestHandler(tasks repository.TaskRepository, datasets repository.DatasetRepository, orchestrator *blindtest.Orchestrator) *BlindTestHandler {
	return &BlindTestHandler{
		tasks:        tasks,
		datasets:     datasets,
		orchestrator: orchestrator,
	}
}

// CreateBlindTest godoc
// @Summary 创建盲测任务
// @Description 创建两模型匿名对比任务，逐题投票推进
// @Tags BlindTests
// @Accept json
// @Produce json
// @Param request body dto.CreateBlindTestRequest true "盲测创建请求"
// @Success 200 {object} dto.TaskView
// @Failure 400 {object} dto.ErrorResponse
// @Router /blindtests [post]
func (h *BlindTestHandler) CreateBlindTest(c *gin.Context) {
	var req dto.CreateBlindTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}
	if !middleware.ValidateProjectID(req.ProjectID) {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "project_id 格式无效"})
		return
	}
	if len(req.QuestionIDs) == 0 {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "question_ids 不能为空"})
		return
	}
	if req.ModelAID == req.ModelBID {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "两侧必须是不同的模型配置"})
		return
	}

	// 题目缺失在创建时就报出来，避免任务跑到一半才发现
	found, err := h.datasets.ListDatasetsByIDs(c.Request.Context(), req.QuestionIDs)
	if err != nil {
		respondError(c, apperr.Internal(err, "load questions"))
		return
	}
	if len(found) != len(req.QuestionIDs) {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "部分 question_ids 不存在"})
		return
	}

	now := time.Now()
	task := repository.Task{
		TaskID:    asynqx.NewTaskID(),
		ProjectID: req.ProjectID,
		TaskType:  model.TaskTypeBlindTest,
		Status:    model.TaskStatusProcessing,
		ModelInfo: model.EncodeDetail(model.BlindModelInfo{
			ModelAID: req.ModelAID,
			ModelBID: req.ModelBID,
		}),
		Language: req.Language,
		Detail: model.EncodeDetail(model.BlindTestDetail{
			QuestionIDs: req.QuestionIDs,
		}),
		TotalCount: len(req.QuestionIDs),
		StartTime:  &now,
		CreatedAt:  now,
	}
	if err := h.tasks.CreateTask(c.Request.Context(), task); err != nil {
		respondError(c, apperr.Internal(err, "create blind test"))
		return
	}

	metrics.RecordTaskCreated(model.TaskTypeBlindTest)
	c.JSON(http.StatusOK, dto.TaskViewOf(task))
}

// GetCurrentRound godoc
// @Summary 当前盲测轮次
// @Description 执行（或返回已缓存的）当前题目的匿名对比轮次；游标到末尾时幂等返回 completed=true
// @Tags BlindTests
// @Produce json
// @Param task_id path string true "任务 ID"
// @Success 200 {object} blindtest.RoundView
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /blindtests/{task_id}/current [get]
func (h *BlindTestHandler) GetCurrentRound(c *gin.Context) {
	view, err := h.orchestrator.RunCurrentRound(c.Request.Context(), c.Param("task_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// SubmitVote godoc
// @Summary 盲测投票
// @Description 对当前轮次投票，结算物理模型得分并推进游标
// @Tags BlindTests
// @Accept json
// @Produce json
// @Param task_id path string true "任务 ID"
// @Param request body dto.VoteRequest true "投票请求"
// @Success 200 {object} blindtest.VoteOutcome
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /blindtests/{task_id}/vote [post]
func (h *BlindTestHandler) SubmitVote(c *gin.Context) {
	var req dto.VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	outcome, err := h.orchestrator.SubmitVote(c.Request.Context(), c.Param("task_id"), model.Vote(req.Vote))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}
