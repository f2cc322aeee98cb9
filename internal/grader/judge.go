package grader

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/azhengyongqin/eval-hub/internal/repository"
)

const judgeSystemPromptZH = "你是一名严格的阅卷老师。根据题目和参考答案给学生答案打分，" +
	"分数范围 0 到 1。只输出 JSON，格式为 {\"score\": 0.0, \"reason\": \"...\"}，不要输出其他内容。"

const judgeSystemPromptEN = "You are a strict grader. Score the student answer against the reference answer " +
	"on a scale from 0 to 1. Output JSON only, in the form {\"score\": 0.0, \"reason\": \"...\"}, nothing else."

// judgeVerdict 裁判模型期望输出的结构
type judgeVerdict struct {
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`
}

// gradeWithJudge 主观题走裁判模型。调用失败或输出不可解析都退化为 0 分，
// judgeResponse 保留原始文本或错误信息供审计。
func (g *Grader) gradeWithJudge(ctx context.Context, ds repository.EvalDataset, answer, judgeModelID string) Result {
	if g.resolver == nil || judgeModelID == "" {
		return Result{Score: 0, IsCorrect: false, JudgeResponse: "judge model not configured"}
	}

	iv, err := g.resolver.InvokerFor(ctx, judgeModelID)
	if err != nil {
		return Result{Score: 0, IsCorrect: false, JudgeResponse: err.Error()}
	}

	system, user := buildJudgePrompt(ds, answer)
	res, err := iv.Chat(ctx, system, user)
	if err != nil {
		return Result{Score: 0, IsCorrect: false, JudgeResponse: err.Error()}
	}

	score := parseJudgeScore(res.Text)
	return Result{
		Score:         score,
		IsCorrect:     score >= JudgeThreshold,
		JudgeResponse: res.Text,
	}
}

// buildJudgePrompt 组装裁判提示词，按题目语言选择中英文模板
func buildJudgePrompt(ds repository.EvalDataset, answer string) (system, user string) {
	if isChinese(ds.Question) {
		system = judgeSystemPromptZH
		user = fmt.Sprintf("题目：%s\n\n参考答案：%s\n\n学生答案：%s", ds.Question, ds.CorrectAnswer, answer)
		return
	}
	system = judgeSystemPromptEN
	user = fmt.Sprintf("Question: %s\n\nReference answer: %s\n\nStudent answer: %s", ds.Question, ds.CorrectAnswer, answer)
	return
}

// parseJudgeScore 两段式解析裁判输出：
// 1. 严格 JSON {score, reason}（允许包在多余文本里，取第一段大括号）；
// 2. 退化为扫描第一个数字 token，大于 1 按百分制处理；
// 3. 都失败则 0 分。
func parseJudgeScore(raw string) float64 {
	text := strings.TrimSpace(raw)

	var v judgeVerdict
	if err := json.Unmarshal([]byte(text), &v); err == nil {
		return clamp01(v.Score)
	}

	// 裁判模型常把 JSON 包在 markdown 代码块或说明文字里
	if start := strings.Index(text, "{"); start >= 0 {
		if end := strings.LastIndex(text, "}"); end > start {
			if err := json.Unmarshal([]byte(text[start:end+1]), &v); err == nil {
				return clamp01(v.Score)
			}
		}
	}

	if n, ok := firstNumber(text); ok {
		if n > 1 {
			n /= 100
		}
		return clamp01(n)
	}

	return 0
}

// firstNumber 扫描文本中第一个数字 token
func firstNumber(s string) (float64, bool) {
	start := -1
	tryParse := func(tok string) (float64, bool) {
		tok = strings.TrimRight(tok, ".")
		n, err := strconv.ParseFloat(tok, 64)
		return n, err == nil
	}
	for i, r := range s {
		isDigit := r >= '0' && r <= '9'
		if start == -1 {
			if isDigit {
				start = i
			}
			continue
		}
		if !isDigit && r != '.' {
			if n, ok := tryParse(s[start:i]); ok {
				return n, true
			}
			start = -1
		}
	}
	if start != -1 {
		if n, ok := tryParse(s[start:]); ok {
			return n, true
		}
	}
	return 0, false
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// isChinese 粗略判断文本是否以中文为主
func isChinese(s string) bool {
	for _, r := range s {
		if r >= 0x4E00 && r <= 0x9FFF {
			return true
		}
	}
	return false
}
