package runner

import (
	"context"
	"time"

	"github.com/hibiken/asynq"

	"github.com/azhengyongqin/eval-hub/internal/config"
	"github.com/azhengyongqin/eval-hub/internal/grader"
	"github.com/azhengyongqin/eval-hub/internal/llm"
	"github.com/azhengyongqin/eval-hub/internal/logger"
	"github.com/azhengyongqin/eval-hub/internal/metrics"
	"github.com/azhengyongqin/eval-hub/internal/model"
	asynqx "github.com/azhengyongqin/eval-hub/internal/queue"
	"github.com/azhengyongqin/eval-hub/internal/repository"
)

// Runner 后台任务驱动器。每个任务由队列投递一次、由单个例程驱动到终态；
// 进度和状态只写回 Task 记录，外部通过轮询该记录观察进展。
type Runner struct {
	cfg      config.RunnerConfig
	tasks    repository.TaskRepository
	datasets repository.DatasetRepository
	results  repository.ResultRepository
	chunks   repository.ChunkRepository
	resolver llm.Resolver
	grader   *grader.Grader
}

func New(
	cfg config.RunnerConfig,
	tasks repository.TaskRepository,
	datasets repository.DatasetRepository,
	results repository.ResultRepository,
	chunks repository.ChunkRepository,
	resolver llm.Resolver,
	g *grader.Grader,
) *Runner {
	return &Runner{
		cfg:      cfg,
		tasks:    tasks,
		datasets: datasets,
		results:  results,
		chunks:   chunks,
		resolver: resolver,
		grader:   g,
	}
}

// Register 挂载任务处理器
func (r *Runner) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(asynqx.TypeEvaluationRun, r.HandleEvaluation)
	mux.HandleFunc(asynqx.TypeDatasetGenerate, r.HandleGeneration)
}

// loadProcessingTask 取出待驱动的任务。终态任务（重复投递、已被中断）返回 nil，
// 队列消息按成功消费处理。
func (r *Runner) loadProcessingTask(ctx context.Context, t *asynq.Task) (*repository.Task, error) {
	msg, err := asynqx.ParseTaskMessage(t)
	if err != nil {
		logger.Error().Err(err).Msg("队列消息不可解析，丢弃")
		return nil, nil
	}

	task, err := r.tasks.GetTask(ctx, msg.TaskID)
	if err != nil {
		if err == repository.ErrTaskNotFound {
			logger.Warn().Str("task_id", msg.TaskID).Msg("队列消息指向不存在的任务，丢弃")
			return nil, nil
		}
		// 存储暂不可用时让 asynq 按消费失败处理
		return nil, err
	}
	if task.Status != model.TaskStatusProcessing {
		logger.Info().Str("task_id", task.TaskID).Str("status", task.Status.String()).
			Msg("任务已到终态，跳过")
		return nil, nil
	}
	return task, nil
}

// checkpoint 工作单元之间的安全检查点：重读任务状态，
// 外部中断在这里生效（执行中的单元不被抢占）。
func (r *Runner) checkpoint(ctx context.Context, taskID string) (cont bool) {
	task, err := r.tasks.GetTask(ctx, taskID)
	if err != nil {
		logger.Warn().Str("task_id", taskID).Err(err).Msg("检查点读取任务失败，继续执行")
		return true
	}
	return task.Status == model.TaskStatusProcessing
}

// flushProgress 批量落进度，终态后的迟到写入被仓储守卫丢弃
func (r *Runner) flushProgress(ctx context.Context, taskID string, completed int) {
	if err := r.tasks.UpdateProgress(ctx, taskID, completed); err != nil {
		logger.Warn().Str("task_id", taskID).Err(err).Msg("进度落库失败")
	}
}

// fail 编排层错误：任务整体转 failed 并留下可读的 note
func (r *Runner) fail(ctx context.Context, task *repository.Task, note string) {
	moved, err := r.tasks.FinishTask(ctx, task.TaskID, model.TaskStatusFailed, note, time.Now())
	if err != nil {
		logger.Error().Str("task_id", task.TaskID).Err(err).Msg("任务转 failed 落库失败")
		return
	}
	if moved {
		metrics.RecordTaskFinished(task.TaskType, model.TaskStatusFailed.String())
		log := logger.WithTaskID(task.TaskID)
		log.Error().Str("task_type", task.TaskType).
			Str("errors", note).Msg("任务失败")
	}
}

// complete 正常收尾：进度精确落库后转 completed
func (r *Runner) complete(ctx context.Context, task *repository.Task, completed int, note string) {
	r.flushProgress(ctx, task.TaskID, completed)
	moved, err := r.tasks.FinishTask(ctx, task.TaskID, model.TaskStatusCompleted, note, time.Now())
	if err != nil {
		logger.Error().Str("task_id", task.TaskID).Err(err).Msg("任务转 completed 落库失败")
		return
	}
	if moved {
		metrics.RecordTaskFinished(task.TaskType, model.TaskStatusCompleted.String())
		log := logger.WithTaskID(task.TaskID)
		log.Info().Str("task_type", task.TaskType).
			Int("completed", completed).Int("total", task.TotalCount).Msg("任务完成")
	}
}

func (r *Runner) progressFlushEvery() int {
	if r.cfg.ProgressFlushEvery > 0 {
		return r.cfg.ProgressFlushEvery
	}
	return 5
}
