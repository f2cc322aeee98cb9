package runner

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/azhengyongqin/eval-hub/internal/logger"
	"github.com/azhengyongqin/eval-hub/internal/metrics"
	"github.com/azhengyongqin/eval-hub/internal/model"
	"github.com/azhengyongqin/eval-hub/internal/repository"
)

// HandleEvaluation 驱动一个批量评估任务：逐题调用被测模型、判分、落结果。
// 单题失败只计数不中断，编排层错误（载荷损坏、模型配置缺失）才整体失败。
func (r *Runner) HandleEvaluation(ctx context.Context, t *asynq.Task) error {
	task, err := r.loadProcessingTask(ctx, t)
	if err != nil || task == nil {
		return err
	}
	log := logger.WithTaskID(task.TaskID)

	detail := model.DecodeEvaluationDetail(task.Detail)
	if len(detail.DatasetIDs) == 0 {
		r.fail(ctx, task, "评估载荷为空或不可解析")
		return nil
	}

	info := model.DecodeEvalModelInfo(task.ModelInfo)
	if info.ModelConfigID == "" {
		r.fail(ctx, task, "未配置被测模型")
		return nil
	}
	iv, err := r.resolver.InvokerFor(ctx, info.ModelConfigID)
	if err != nil {
		r.fail(ctx, task, fmt.Sprintf("被测模型解析失败: %v", err))
		return nil
	}

	completed := 0
	failed := 0
	flushEvery := r.progressFlushEvery()

	for _, datasetID := range detail.DatasetIDs {
		if !r.checkpoint(ctx, task.TaskID) {
			log.Info().Int("completed", completed).Msg("评估任务被外部中断，停止推进")
			return nil
		}

		ds, err := r.datasets.GetDataset(ctx, datasetID)
		if err != nil {
			failed++
			metrics.RecordWorkUnit(task.TaskType, "failed")
			log.Warn().Str("dataset_id", datasetID).Err(err).Msg("题目读取失败，跳过")
			continue
		}

		answer, err := iv.Chat(ctx, "", evalPrompt(ds))
		if err != nil {
			failed++
			metrics.RecordWorkUnit(task.TaskType, "failed")
			log.Warn().Str("dataset_id", datasetID).Err(err).Msg("被测模型调用失败，跳过")
			continue
		}

		graded := r.grader.Grade(ctx, *ds, answer.Text, detail.JudgeModelID)
		err = r.results.UpsertResult(ctx, repository.EvalResult{
			TaskID:        task.TaskID,
			DatasetID:     datasetID,
			ModelAnswer:   answer.Text,
			Score:         graded.Score,
			IsCorrect:     graded.IsCorrect,
			JudgeResponse: graded.JudgeResponse,
		})
		if err != nil {
			failed++
			metrics.RecordWorkUnit(task.TaskType, "failed")
			log.Warn().Str("dataset_id", datasetID).Err(err).Msg("判分结果落库失败，跳过")
			continue
		}

		completed++
		metrics.RecordWorkUnit(task.TaskType, "ok")
		if completed%flushEvery == 0 {
			r.flushProgress(ctx, task.TaskID, completed)
		}
	}

	note := ""
	if failed > 0 {
		note = fmt.Sprintf("%d/%d 个工作单元失败", failed, len(detail.DatasetIDs))
	}
	r.complete(ctx, task, completed, note)
	return nil
}

// evalPrompt 被测模型看到的题面，与盲测一致：题干加选项字母表
func evalPrompt(ds *repository.EvalDataset) string {
	if len(ds.Options) == 0 {
		return ds.Question
	}
	prompt := ds.Question + "\n"
	for i, opt := range ds.Options {
		prompt += fmt.Sprintf("\n%c. %s", 'A'+i, opt)
	}
	return prompt
}
