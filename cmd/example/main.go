package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/azhengyongqin/eval-hub/sdk"
)

// 示例程序：用 SDK 驱动一次完整的评估任务和一次盲测任务。
// 需要服务端已启动，并且数据库里有示例用的模型配置与题目。
func main() {
	if err := loadEnvFile(); err != nil {
		log.Printf("警告: 无法加载 .env 文件: %v（将使用环境变量或默认值）", err)
	}

	baseURL := os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = "http://127.0.0.1:18080"
	}

	client := sdk.NewClient(baseURL)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	mode := "evaluation"
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}

	switch mode {
	case "evaluation":
		runEvaluation(ctx, client)
	case "blindtest":
		runBlindTest(ctx, client)
	default:
		log.Fatalf("未知模式: %s（支持 evaluation / blindtest）", mode)
	}
}

// runEvaluation 创建评估任务并轮询到终态
func runEvaluation(ctx context.Context, client *sdk.Client) {
	task, err := client.CreateEvaluationTask(ctx, sdk.CreateEvaluationRequest{
		ProjectID:     envOr("PROJECT_ID", "demo"),
		ModelConfigID: envOr("MODEL_CONFIG_ID", "mc-demo"),
		DatasetIDs:    splitEnv("DATASET_IDS", []string{"d1", "d2", "d3"}),
		JudgeModelID:  os.Getenv("JUDGE_MODEL_ID"),
		Language:      "zh",
	})
	if err != nil {
		log.Fatalf("创建评估任务失败: %v", err)
	}
	log.Printf("评估任务已创建: task_id=%s total=%d", task.TaskID, task.TotalCount)

	final, err := sdk.WaitForTerminal(ctx, client, task.TaskID, 2*time.Second)
	if err != nil {
		log.Fatalf("等待任务结束失败: %v", err)
	}
	log.Printf("任务结束: status=%s progress=%d/%d note=%q",
		final.StatusText, final.CompletedCount, final.TotalCount, final.Note)

	if final.Status != sdk.StatusCompleted {
		return
	}

	results, err := client.GetTaskResults(ctx, task.TaskID)
	if err != nil {
		log.Fatalf("查询结果失败: %v", err)
	}

	stats, _ := json.MarshalIndent(results.Stats, "", "  ")
	log.Printf("汇总统计:\n%s", stats)
	for _, r := range results.Results {
		log.Printf("  题目 %s: score=%.2f correct=%v", r.DatasetID, r.Score, r.IsCorrect)
	}
}

// runBlindTest 创建盲测任务并模拟逐题投票
func runBlindTest(ctx context.Context, client *sdk.Client) {
	task, err := client.CreateBlindTest(ctx, sdk.CreateBlindTestRequest{
		ProjectID:   envOr("PROJECT_ID", "demo"),
		ModelAID:    envOr("MODEL_A_ID", "mc-a"),
		ModelBID:    envOr("MODEL_B_ID", "mc-b"),
		QuestionIDs: splitEnv("QUESTION_IDS", []string{"d1", "d2"}),
		Language:    "zh",
	})
	if err != nil {
		log.Fatalf("创建盲测任务失败: %v", err)
	}
	log.Printf("盲测任务已创建: task_id=%s 共 %d 题", task.TaskID, task.TotalCount)

	for {
		round, err := client.GetCurrentRound(ctx, task.TaskID)
		if err != nil {
			log.Fatalf("获取轮次失败: %v", err)
		}
		if round.Completed {
			break
		}

		log.Printf("第 %d/%d 题: %s", round.Index+1, round.Total, round.Question)
		log.Printf("  左侧: %s", firstLine(round.LeftAnswer, round.LeftError))
		log.Printf("  右侧: %s", firstLine(round.RightAnswer, round.RightError))

		// 示例里不做人工判断，左右各投一半
		vote := sdk.VoteLeft
		if round.Index%2 == 1 {
			vote = sdk.VoteRight
		}

		outcome, err := client.SubmitVote(ctx, task.TaskID, vote)
		if err != nil {
			log.Fatalf("投票失败: %v", err)
		}
		log.Printf("  投票 %s -> 进度 %d/%d", vote, outcome.CurrentIndex, outcome.Total)

		if outcome.Completed {
			log.Printf("盲测完成: 模型A %.1f 分, 模型B %.1f 分", outcome.ModelAScore, outcome.ModelBScore)
			break
		}
	}
}

func firstLine(answer, errText string) string {
	if errText != "" {
		return "（调用失败: " + errText + "）"
	}
	if len(answer) > 80 {
		return answer[:80] + "..."
	}
	return answer
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitEnv(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

// loadEnvFile 尝试从项目根目录加载 .env 文件
func loadEnvFile() error {
	wd, err := os.Getwd()
	if err != nil {
		return err
	}

	possiblePaths := []string{
		filepath.Join(wd, ".env"),
		filepath.Join(wd, "..", ".env"),
		filepath.Join(wd, "..", "..", ".env"),
	}

	for _, path := range possiblePaths {
		absPath, err := filepath.Abs(path)
		if err != nil {
			continue
		}
		if _, err := os.Stat(absPath); err == nil {
			if err := godotenv.Load(absPath); err != nil {
				return err
			}
			log.Printf("已加载环境变量文件: %s", absPath)
			return nil
		}
	}

	return nil
}
