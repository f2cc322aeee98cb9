package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/azhengyongqin/eval-hub/internal/blindtest"
	"github.com/azhengyongqin/eval-hub/internal/healthcheck"
	"github.com/azhengyongqin/eval-hub/internal/middleware"
	asynqx "github.com/azhengyongqin/eval-hub/internal/queue"
	"github.com/azhengyongqin/eval-hub/internal/repository"
	"github.com/azhengyongqin/eval-hub/internal/server/handler"
)

// Deps 路由依赖
type Deps struct {
	// Queue 用于任务入队
	Queue *asynqx.Client

	TaskRepo    repository.TaskRepository
	DatasetRepo repository.DatasetRepository
	ResultRepo  repository.ResultRepository

	// Orchestrator 驱动盲测轮次
	Orchestrator *blindtest.Orchestrator

	// HealthChecker 健康检查器
	HealthChecker *healthcheck.HealthChecker
}

// NewRouter 提供 Gin HTTP API
// @title Eval-Hub API
// @version 1.0.0
// @description 模型评估与盲测引擎 API
// @BasePath /api/v1
// @schemes http https
func NewRouter(deps Deps) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())

	// 全局中间件
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggingMiddleware())
	r.Use(middleware.PrometheusMiddleware())
	r.Use(middleware.PayloadSizeLimit(middleware.MaxPayloadSize))
	r.Use(middleware.CORSMiddleware())

	healthHandler := handler.NewHealthHandler(deps.HealthChecker)
	taskHandler := handler.NewTaskHandler(deps.Queue, deps.TaskRepo, deps.DatasetRepo, deps.ResultRepo)
	blindTestHandler := handler.NewBlindTestHandler(deps.TaskRepo, deps.DatasetRepo, deps.Orchestrator)

	// 健康检查路由
	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)

	// Prometheus metrics 端点
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Swagger API 文档
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api/v1")
	{
		// 任务生命周期
		api.POST("/tasks", taskHandler.CreateTask)
		api.GET("/tasks", taskHandler.ListTasks)
		api.GET("/tasks/:task_id", middleware.ValidateTaskIDParam(), taskHandler.GetTask)
		api.GET("/tasks/:task_id/results", middleware.ValidateTaskIDParam(), taskHandler.GetTaskResults)
		api.POST("/tasks/:task_id/interrupt", middleware.ValidateTaskIDParam(), taskHandler.InterruptTask)

		// 盲测
		api.POST("/blindtests", blindTestHandler.CreateBlindTest)
		api.GET("/blindtests/:task_id/current", middleware.ValidateTaskIDParam(), blindTestHandler.GetCurrentRound)
		api.POST("/blindtests/:task_id/vote", middleware.ValidateTaskIDParam(), blindTestHandler.SubmitVote)
	}

	return r
}
