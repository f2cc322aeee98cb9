package grader

import (
	"context"
	"sort"
	"strings"

	"github.com/azhengyongqin/eval-hub/internal/llm"
	"github.com/azhengyongqin/eval-hub/internal/metrics"
	"github.com/azhengyongqin/eval-hub/internal/model"
	"github.com/azhengyongqin/eval-hub/internal/repository"
)

// JudgeThreshold 主观题判对阈值
const JudgeThreshold = 0.6

// Result 一次判分的产出。判分永不失败，最差情况是 0 分加原始文本留档。
type Result struct {
	Score         float64
	IsCorrect     bool
	JudgeResponse string
}

// Grader 按题型判分。客观题走确定性规则，主观题走裁判模型。
type Grader struct {
	resolver llm.Resolver
}

func New(resolver llm.Resolver) *Grader {
	return &Grader{resolver: resolver}
}

// Grade 对一道题的模型回答判分。judgeModelID 只在主观题时使用。
// 任何内部失败（裁判调用、解析）都退化为 0 分，不向上抛错。
func (g *Grader) Grade(ctx context.Context, ds repository.EvalDataset, answer, judgeModelID string) Result {
	var res Result
	switch ds.QuestionType {
	case model.QuestionTrueFalse:
		res = gradeTrueFalse(ds.CorrectAnswer, answer)
	case model.QuestionSingleChoice:
		res = gradeSingleChoice(ds.Options, ds.CorrectAnswer, answer)
	case model.QuestionMultipleChoice:
		res = gradeMultipleChoice(ds.Options, ds.CorrectAnswer, answer)
	case model.QuestionShortAnswer, model.QuestionOpenEnded:
		res = g.gradeWithJudge(ctx, ds, answer, judgeModelID)
	default:
		res = Result{Score: 0, IsCorrect: false, JudgeResponse: "unknown question type: " + string(ds.QuestionType)}
	}
	metrics.RecordQuestionGraded(string(ds.QuestionType), res.IsCorrect)
	return res
}

// gradeTrueFalse 判断题：与标准答案完全一致才得分
func gradeTrueFalse(correct, answer string) Result {
	if strings.TrimSpace(answer) == strings.TrimSpace(correct) {
		return Result{Score: 1, IsCorrect: true}
	}
	return Result{Score: 0, IsCorrect: false}
}

// gradeSingleChoice 单选题：从回答里提取第一个选项字母，大小写不敏感比较
func gradeSingleChoice(options []string, correct, answer string) Result {
	got := extractLetters(answer, len(options))
	want := extractLetters(correct, len(options))
	if len(got) == 0 || len(want) == 0 {
		return Result{Score: 0, IsCorrect: false}
	}
	if strings.EqualFold(got[0], want[0]) {
		return Result{Score: 1, IsCorrect: true}
	}
	return Result{Score: 0, IsCorrect: false}
}

// gradeMultipleChoice 多选题：提取字母集合后排序比较，顺序无关，必须完全一致
func gradeMultipleChoice(options []string, correct, answer string) Result {
	got := letterSet(answer, len(options))
	want := letterSet(correct, len(options))
	if len(want) == 0 || len(got) != len(want) {
		return Result{Score: 0, IsCorrect: false}
	}
	for i := range got {
		if got[i] != want[i] {
			return Result{Score: 0, IsCorrect: false}
		}
	}
	return Result{Score: 1, IsCorrect: true}
}

// extractLetters 提取回答中的选项字母，按出现顺序返回（统一大写）。
// 只认落在选项范围内的字母（A 到第 N 个选项），避免把叙述文字里的
// 普通字母当成选项；先扫大写，一个都没有再放宽到小写。
func extractLetters(s string, optionCount int) []string {
	max := 'Z'
	if optionCount > 0 && optionCount <= 26 {
		max = rune('A' + optionCount - 1)
	}

	var out []string
	for _, r := range s {
		if r >= 'A' && r <= max {
			out = append(out, string(r))
		}
	}
	if len(out) > 0 {
		return out
	}
	for _, r := range s {
		if r >= 'a' && r <= 'a'+(max-'A') {
			out = append(out, strings.ToUpper(string(r)))
		}
	}
	return out
}

// letterSet 提取去重排序后的字母集合
func letterSet(s string, optionCount int) []string {
	letters := extractLetters(s, optionCount)
	seen := make(map[string]bool, len(letters))
	var out []string
	for _, l := range letters {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	sort.Strings(out)
	return out
}
