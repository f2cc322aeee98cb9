package blindtest

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/azhengyongqin/eval-hub/internal/apperr"
	"github.com/azhengyongqin/eval-hub/internal/llm"
	"github.com/azhengyongqin/eval-hub/internal/logger"
	"github.com/azhengyongqin/eval-hub/internal/metrics"
	"github.com/azhengyongqin/eval-hub/internal/model"
	"github.com/azhengyongqin/eval-hub/internal/repository"
)

// RoundView 展示给投票方的一轮内容。不包含 swap，投票方无法得知左右归属。
type RoundView struct {
	Completed   bool   `json:"completed"`
	Index       int    `json:"index"`
	Total       int    `json:"total"`
	QuestionID  string `json:"question_id,omitempty"`
	Question    string `json:"question,omitempty"`
	LeftAnswer  string `json:"left_answer,omitempty"`
	RightAnswer string `json:"right_answer,omitempty"`
	LeftError   string `json:"left_error,omitempty"`
	RightError  string `json:"right_error,omitempty"`
}

// VoteOutcome 一次投票后的任务进展
type VoteOutcome struct {
	CurrentIndex int     `json:"current_index"`
	Total        int     `json:"total"`
	Completed    bool    `json:"completed"`
	ModelAScore  float64 `json:"model_a_score"`
	ModelBScore  float64 `json:"model_b_score"`
}

// Orchestrator 驱动盲测任务：按 currentIndex 逐题执行匿名化对比轮次，
// 投票时结算归属并推进游标。Task 记录是唯一的持久化状态，
// 进行中的轮次（含 swap）只存内存，服务重启后重新执行当前轮即可。
type Orchestrator struct {
	tasks    repository.TaskRepository
	datasets repository.DatasetRepository
	resolver llm.Resolver
	rounds   *roundStore
}

func NewOrchestrator(tasks repository.TaskRepository, datasets repository.DatasetRepository, resolver llm.Resolver) *Orchestrator {
	return &Orchestrator{
		tasks:    tasks,
		datasets: datasets,
		resolver: resolver,
		rounds:   newRoundStore(),
	}
}

// RunCurrentRound 执行当前题目的对比轮次。
// 游标已到末尾时幂等返回 completed=true，不产生任何副作用；
// 同一轮重复查询返回已缓存的轮次，不重新调用模型也不重抽 swap。
func (o *Orchestrator) RunCurrentRound(ctx context.Context, taskID string) (*RoundView, error) {
	task, detail, info, err := o.loadBlindTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	total := len(detail.QuestionIDs)
	if detail.CurrentIndex >= total {
		o.rounds.remove(taskID)
		return &RoundView{Completed: true, Index: detail.CurrentIndex, Total: total}, nil
	}
	if task.Status != model.TaskStatusProcessing {
		o.rounds.remove(taskID)
		return nil, apperr.InvalidState("task %s is %s, no further rounds", taskID, task.Status)
	}

	// 同一任务的并发查询串行化：一轮只执行一次、只抽一次 swap，
	// 后到者命中缓存，看到和先到者完全相同的左右排列
	lock := o.rounds.taskLock(taskID)
	lock.Lock()
	defer lock.Unlock()

	if r, ok := o.rounds.get(taskID); ok && r.Index == detail.CurrentIndex {
		return viewOf(r, detail.CurrentIndex, total), nil
	}

	questionID := detail.QuestionIDs[detail.CurrentIndex]
	ds, err := o.datasets.GetDataset(ctx, questionID)
	if err != nil {
		if err == repository.ErrDatasetNotFound {
			return nil, apperr.NotFound("question %s not found", questionID)
		}
		return nil, apperr.Internal(err, "load question %s", questionID)
	}

	if info.ModelAID == "" || info.ModelBID == "" {
		return nil, apperr.InvalidState("task %s has no model pair configured", taskID)
	}

	// 每轮独立抽一次匿名化布尔，不从稳定种子派生
	swap := rand.Intn(2) == 1

	prompt := buildPrompt(ds)
	answerA := o.invokeSide(ctx, info.ModelAID, prompt)
	answerB := o.invokeSide(ctx, info.ModelBID, prompt)

	// 双路并发调用，无论成败都等两边结束；一边失败不取消另一边
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); answerA.run(ctx) }()
	go func() { defer wg.Done(); answerB.run(ctx) }()
	wg.Wait()

	left, right := answerA, answerB
	if swap {
		left, right = answerB, answerA
	}

	r := pendingRound{
		QuestionID:      questionID,
		Index:           detail.CurrentIndex,
		Swap:            swap,
		Question:        ds.Question,
		LeftAnswer:      left.text,
		RightAnswer:     right.text,
		LeftError:       left.errText,
		RightError:      right.errText,
		LeftDurationMs:  left.durationMs,
		RightDurationMs: right.durationMs,
	}
	o.rounds.put(taskID, r)
	metrics.RecordBlindRound("run")

	return viewOf(r, detail.CurrentIndex, total), nil
}

// SubmitVote 结算当前轮：按该轮的 swap 解析物理归属并计分，
// 追加 RoundResult、游标 +1 并落库。到达末尾时转 completed 并打 end_time。
func (o *Orchestrator) SubmitVote(ctx context.Context, taskID string, vote model.Vote) (*VoteOutcome, error) {
	if !vote.Valid() {
		return nil, apperr.BadRequest("invalid vote %q", vote)
	}

	task, detail, _, err := o.loadBlindTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status != model.TaskStatusProcessing {
		o.rounds.remove(taskID)
		return nil, apperr.InvalidState("task %s is %s, votes are closed", taskID, task.Status)
	}

	total := len(detail.QuestionIDs)
	if detail.CurrentIndex >= total {
		o.rounds.remove(taskID)
		return nil, apperr.InvalidState("task %s has no remaining rounds", taskID)
	}

	round, ok := o.rounds.get(taskID)
	if !ok || round.Index != detail.CurrentIndex {
		return nil, apperr.InvalidState("no active round for task %s, fetch the current round first", taskID)
	}

	scoreA, scoreB := resolveScores(vote, round.Swap)
	detail.Results = append(detail.Results, model.RoundResult{
		QuestionID:  round.QuestionID,
		Vote:        vote,
		IsSwapped:   round.Swap,
		ModelAScore: scoreA,
		ModelBScore: scoreB,
		LeftAnswer:  round.LeftAnswer,
		RightAnswer: round.RightAnswer,
		Timestamp:   time.Now(),
	})
	detail.CurrentIndex++

	moved, err := o.tasks.UpdateDetail(ctx, taskID, model.EncodeDetail(detail), detail.CurrentIndex)
	if err != nil {
		return nil, apperr.Internal(err, "persist vote for task %s", taskID)
	}
	if !moved {
		// 读写之间任务被并发迁移到终态（如外部中断），这一票作废，
		// 不能把终态任务改回 processing
		o.rounds.remove(taskID)
		return nil, apperr.InvalidState("task %s left processing, vote discarded", taskID)
	}

	completed := detail.CurrentIndex == total
	if completed {
		moved, err := o.tasks.FinishTask(ctx, taskID, model.TaskStatusCompleted, "", time.Now())
		if err != nil {
			return nil, apperr.Internal(err, "finish task %s", taskID)
		}
		if moved {
			metrics.RecordTaskFinished(model.TaskTypeBlindTest, model.TaskStatusCompleted.String())
		}
	}

	o.rounds.remove(taskID)
	metrics.RecordBlindRound("vote")

	totalA, totalB := detail.TotalScores()
	return &VoteOutcome{
		CurrentIndex: detail.CurrentIndex,
		Total:        total,
		Completed:    completed,
		ModelAScore:  totalA,
		ModelBScore:  totalB,
	}, nil
}

// loadBlindTask 读取并解码盲测任务
func (o *Orchestrator) loadBlindTask(ctx context.Context, taskID string) (*repository.Task, model.BlindTestDetail, model.BlindModelInfo, error) {
	task, err := o.tasks.GetTask(ctx, taskID)
	if err != nil {
		if err == repository.ErrTaskNotFound {
			return nil, model.BlindTestDetail{}, model.BlindModelInfo{}, apperr.NotFound("task %s not found", taskID)
		}
		return nil, model.BlindTestDetail{}, model.BlindModelInfo{}, apperr.Internal(err, "load task %s", taskID)
	}
	if task.TaskType != model.TaskTypeBlindTest {
		return nil, model.BlindTestDetail{}, model.BlindModelInfo{}, apperr.BadRequest("task %s is not a blind test", taskID)
	}
	detail := model.DecodeBlindTestDetail(task.Detail)
	info := model.DecodeBlindModelInfo(task.ModelInfo)
	return task, detail, info, nil
}

// resolveScores 按 swap 把方向票换算成物理模型得分
func resolveScores(vote model.Vote, swap bool) (scoreA, scoreB float64) {
	switch vote {
	case model.VoteBothGood:
		return 0.5, 0.5
	case model.VoteBothBad:
		return 0, 0
	case model.VoteLeft:
		if swap {
			return 0, 1
		}
		return 1, 0
	case model.VoteRight:
		if swap {
			return 1, 0
		}
		return 0, 1
	}
	return 0, 0
}

// sideInvocation 一侧模型调用的结果容器
type sideInvocation struct {
	o          *Orchestrator
	modelID    string
	prompt     string
	text       string
	errText    string
	durationMs int64
}

func (o *Orchestrator) invokeSide(ctx context.Context, modelID, prompt string) *sideInvocation {
	return &sideInvocation{o: o, modelID: modelID, prompt: prompt}
}

// run 执行调用。失败只记录错误文本，轮次照常完成，仍可投票。
func (s *sideInvocation) run(ctx context.Context) {
	iv, err := s.o.resolver.InvokerFor(ctx, s.modelID)
	if err != nil {
		s.errText = err.Error()
		log := logger.WithModel("", s.modelID)
		log.Warn().Err(err).Msg("盲测模型解析失败")
		return
	}
	res, err := iv.Chat(ctx, "", s.prompt)
	if res != nil {
		s.text = res.Text
		s.durationMs = res.DurationMs
	}
	if err != nil {
		s.errText = err.Error()
	}
}

// buildPrompt 盲测两侧使用完全相同的提示词
func buildPrompt(ds *repository.EvalDataset) string {
	if len(ds.Options) == 0 {
		return ds.Question
	}
	var sb strings.Builder
	sb.WriteString(ds.Question)
	sb.WriteString("\n")
	for i, opt := range ds.Options {
		sb.WriteString("\n")
		sb.WriteByte(byte('A' + i))
		sb.WriteString(". ")
		sb.WriteString(opt)
	}
	return sb.String()
}

func viewOf(r pendingRound, index, total int) *RoundView {
	return &RoundView{
		Completed:   false,
		Index:       index,
		Total:       total,
		QuestionID:  r.QuestionID,
		Question:    r.Question,
		LeftAnswer:  r.LeftAnswer,
		RightAnswer: r.RightAnswer,
		LeftError:   r.LeftError,
		RightError:  r.RightError,
	}
}
