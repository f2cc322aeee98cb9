package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hibiken/asynq"

	"github.com/azhengyongqin/eval-hub/internal/logger"
	"github.com/azhengyongqin/eval-hub/internal/metrics"
	"github.com/azhengyongqin/eval-hub/internal/model"
	asynqx "github.com/azhengyongqin/eval-hub/internal/queue"
	"github.com/azhengyongqin/eval-hub/internal/repository"
)

const generatePromptZH = "你是出题专家。根据给定的文本段落出 %d 道评估题，题型可以是 " +
	"true_false、single_choice、multiple_choice、short_answer。" +
	"只输出 JSON 数组，每个元素形如 " +
	"{\"question\": \"...\", \"question_type\": \"...\", \"options\": [\"...\"], \"correct_answer\": \"...\"}。" +
	"选择题的 correct_answer 用选项字母；判断题用 ✅ 或 ❌。\n\n文本段落：\n%s"

// generatedQuestion 生成模型期望输出的单题结构
type generatedQuestion struct {
	Question      string   `json:"question"`
	QuestionType  string   `json:"question_type"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
}

// HandleGeneration 驱动一个数据集生成任务：逐分块调用生成模型出题并入库。
// 一个分块算一个工作单元，单块失败（模型出错、输出不可解析）跳过不中断。
func (r *Runner) HandleGeneration(ctx context.Context, t *asynq.Task) error {
	task, err := r.loadProcessingTask(ctx, t)
	if err != nil || task == nil {
		return err
	}
	log := logger.WithTaskID(task.TaskID)

	detail := model.DecodeGenerationDetail(task.Detail)
	if len(detail.ChunkIDs) == 0 {
		r.fail(ctx, task, "生成载荷为空或不可解析")
		return nil
	}
	perChunk := detail.QuestionsPerChunk
	if perChunk <= 0 {
		perChunk = 3
	}

	info := model.DecodeEvalModelInfo(task.ModelInfo)
	if info.ModelConfigID == "" {
		r.fail(ctx, task, "未配置生成模型")
		return nil
	}
	iv, err := r.resolver.InvokerFor(ctx, info.ModelConfigID)
	if err != nil {
		r.fail(ctx, task, fmt.Sprintf("生成模型解析失败: %v", err))
		return nil
	}

	completed := 0
	failed := 0
	flushEvery := r.progressFlushEvery()

	for _, chunkID := range detail.ChunkIDs {
		if !r.checkpoint(ctx, task.TaskID) {
			log.Info().Int("completed", completed).Msg("生成任务被外部中断，停止推进")
			return nil
		}

		chunk, err := r.chunks.GetChunk(ctx, chunkID)
		if err != nil {
			failed++
			metrics.RecordWorkUnit(task.TaskType, "failed")
			log.Warn().Str("chunk_id", chunkID).Err(err).Msg("分块读取失败，跳过")
			continue
		}

		res, err := iv.Chat(ctx, "", fmt.Sprintf(generatePromptZH, perChunk, chunk.Content))
		if err != nil {
			failed++
			metrics.RecordWorkUnit(task.TaskType, "failed")
			log.Warn().Str("chunk_id", chunkID).Err(err).Msg("生成模型调用失败，跳过")
			continue
		}

		questions := parseGeneratedQuestions(res.Text)
		if len(questions) == 0 {
			failed++
			metrics.RecordWorkUnit(task.TaskType, "failed")
			log.Warn().Str("chunk_id", chunkID).Msg("生成输出不可解析，跳过")
			continue
		}

		stored := 0
		for _, q := range questions {
			if !model.QuestionType(q.QuestionType).Valid() || q.Question == "" {
				continue
			}
			err := r.datasets.CreateDataset(ctx, repository.EvalDataset{
				DatasetID:     asynqx.NewTaskID(),
				ProjectID:     task.ProjectID,
				Question:      q.Question,
				QuestionType:  model.QuestionType(q.QuestionType),
				Options:       q.Options,
				CorrectAnswer: q.CorrectAnswer,
				ChunkID:       chunkID,
			})
			if err != nil {
				log.Warn().Str("chunk_id", chunkID).Err(err).Msg("生成题目入库失败")
				continue
			}
			stored++
		}
		if stored == 0 {
			failed++
			metrics.RecordWorkUnit(task.TaskType, "failed")
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
		note = fmt.Sprintf("%d/%d 个分块失败", failed, len(detail.ChunkIDs))
	}
	r.complete(ctx, task, completed, note)
	return nil
}

// parseGeneratedQuestions 宽松解析生成模型输出：
// 先整体按 JSON 数组解，再退化为截取第一段中括号内容。
func parseGeneratedQuestions(raw string) []generatedQuestion {
	text := strings.TrimSpace(raw)

	var out []generatedQuestion
	if err := json.Unmarshal([]byte(text), &out); err == nil {
		return out
	}

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(text[start:end+1]), &out); err == nil {
			return out
		}
	}
	return nil
}
