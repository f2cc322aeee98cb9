package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	_ "github.com/azhengyongqin/eval-hub/docs" // Swagger docs
	"github.com/azhengyongqin/eval-hub/internal/blindtest"
	"github.com/azhengyongqin/eval-hub/internal/cache"
	"github.com/azhengyongqin/eval-hub/internal/config"
	"github.com/azhengyongqin/eval-hub/internal/grader"
	"github.com/azhengyongqin/eval-hub/internal/healthcheck"
	"github.com/azhengyongqin/eval-hub/internal/llm"
	"github.com/azhengyongqin/eval-hub/internal/logger"
	asynqx "github.com/azhengyongqin/eval-hub/internal/queue"
	"github.com/azhengyongqin/eval-hub/internal/repository"
	"github.com/azhengyongqin/eval-hub/internal/runner"
	httpserver "github.com/azhengyongqin/eval-hub/internal/server"
	"github.com/azhengyongqin/eval-hub/internal/storage/postgres"
)

// @title Eval-Hub API
// @version 1.0.0
// @description 模型评估与盲测引擎 - 基于 Asynq 和 PostgreSQL 的评估任务平台
// @license.name MIT
// @BasePath /api/v1
// @schemes http https
// @host localhost:18080

// 说明：
// - HTTP API 和后台任务执行跑在同一个进程里，便于本地与容器部署。

func main() {
	// 初始化结构化日志（开发模式）
	if err := logger.Init(false); err != nil {
		logger.Fatal().Err(err).Msg("初始化日志失败")
		os.Exit(1)
	}
	defer logger.Sync()

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("加载配置失败")
	}

	// 验证配置
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("配置验证失败")
	}

	logger.Info().
		Str("http", cfg.HTTP.Addr).
		Str("redis", cfg.Redis.Addr).
		Msg("服务启动")

	// 建表/补列
	if err := postgres.AutoMigrate(cfg.Postgres.DSN); err != nil {
		logger.Fatal().Err(err).Msg("数据库迁移失败")
	}

	pool, err := postgres.NewPool(context.Background(), cfg.Postgres.DSN, cfg.DBPool)
	if err != nil {
		logger.Fatal().Err(err).Msg("连接数据库失败")
	}
	defer pool.Close()

	taskRepo := repository.NewTaskRepo(pool)
	evalRepo := repository.NewEvalRepo(pool)
	modelRepo := repository.NewModelRepo(pool)

	// 模型配置缓存；Redis 不可用时退化为直查数据库
	var modelCache *cache.RedisCache
	if c, err := cache.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); err != nil {
		logger.Warn().Err(err).Msg("Redis 缓存不可用，模型配置将直查数据库")
	} else {
		modelCache = c
		defer modelCache.Close()
	}

	usageSink := llm.NewRepoSink(modelRepo)
	registry := llm.NewRegistry(modelRepo, modelCache, cfg.LLM.ModelCacheTTL, cfg.LLM.RequestTimeout, usageSink)
	g := grader.New(registry)

	// Asynq：HTTP 入队 + 本进程消费
	redisOpt := asynqx.NewRedisConnOpt(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	queueClient := asynqx.NewClient(redisOpt)
	defer queueClient.Close()

	asynqSrv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.Runner.Concurrency,
		Queues: map[string]int{
			asynqx.QueueDefault: 1,
		},
	})
	mux := asynq.NewServeMux()
	runner.New(cfg.Runner, taskRepo, evalRepo, evalRepo, evalRepo, registry, g).Register(mux)

	orchestrator := blindtest.NewOrchestrator(taskRepo, evalRepo, registry)
	healthChecker := healthcheck.NewHealthChecker(pool, redisOpt)

	httpSrv := &http.Server{
		Addr: cfg.HTTP.Addr,
		Handler: httpserver.NewRouter(httpserver.Deps{
			Queue:         queueClient,
			TaskRepo:      taskRepo,
			DatasetRepo:   evalRepo,
			ResultRepo:    evalRepo,
			Orchestrator:  orchestrator,
			HealthChecker: healthChecker,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info().Int("concurrency", cfg.Runner.Concurrency).Msg("任务执行器启动")
		if err := asynqSrv.Run(mux); err != nil {
			logger.Fatal().Err(err).Msg("任务执行器错误")
		}
	}()

	go func() {
		logger.Info().Str("addr", cfg.HTTP.Addr).Msg("HTTP 服务监听")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("HTTP 服务错误")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpSrv.Shutdown(shutdownCtx)
	asynqSrv.Shutdown()
	logger.Info().Msg("服务已优雅关闭")
}
