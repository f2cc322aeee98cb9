package blindtest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azhengyongqin/eval-hub/internal/apperr"
	"github.com/azhengyongqin/eval-hub/internal/llm"
	"github.com/azhengyongqin/eval-hub/internal/model"
	"github.com/azhengyongqin/eval-hub/internal/repository"
)

// fakeTaskRepo 内存任务仓储
type fakeTaskRepo struct {
	mu    sync.Mutex
	tasks map[string]repository.Task
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: make(map[string]repository.Task)}
}

func (f *fakeTaskRepo) CreateTask(ctx context.Context, t repository.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks[t.TaskID] = t
	return nil
}

func (f *fakeTaskRepo) GetTask(ctx context.Context, taskID string) (*repository.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[taskID]
	if !ok {
		return nil, repository.ErrTaskNotFound
	}
	return &t, nil
}

func (f *fakeTaskRepo) UpdateDetail(ctx context.Context, taskID string, detail json.RawMessage, completedCount int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[taskID]
	if !ok || t.Status != model.TaskStatusProcessing {
		return false, nil
	}
	t.Detail = detail
	t.CompletedCount = completedCount
	f.tasks[taskID] = t
	return true, nil
}

func (f *fakeTaskRepo) UpdateProgress(ctx context.Context, taskID string, completedCount int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[taskID]
	if !ok || t.Status != model.TaskStatusProcessing {
		return nil
	}
	t.CompletedCount = completedCount
	f.tasks[taskID] = t
	return nil
}

func (f *fakeTaskRepo) FinishTask(ctx context.Context, taskID string, status model.TaskStatus, note string, endTime time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[taskID]
	if !ok || t.Status != model.TaskStatusProcessing {
		return false, nil
	}
	t.Status = status
	t.Note = note
	t.EndTime = &endTime
	f.tasks[taskID] = t
	return true, nil
}

func (f *fakeTaskRepo) ListTasks(ctx context.Context, fl repository.ListTasksFilter) ([]repository.Task, error) {
	return nil, nil
}

func (f *fakeTaskRepo) CountTasks(ctx context.Context, fl repository.ListTasksFilter) (int, error) {
	return 0, nil
}

// fakeDatasetRepo 内存题目仓储
type fakeDatasetRepo struct {
	datasets map[string]repository.EvalDataset
}

func (f *fakeDatasetRepo) GetDataset(ctx context.Context, id string) (*repository.EvalDataset, error) {
	ds, ok := f.datasets[id]
	if !ok {
		return nil, repository.ErrDatasetNotFound
	}
	return &ds, nil
}

func (f *fakeDatasetRepo) ListDatasetsByIDs(ctx context.Context, ids []string) ([]repository.EvalDataset, error) {
	var out []repository.EvalDataset
	for _, id := range ids {
		if ds, ok := f.datasets[id]; ok {
			out = append(out, ds)
		}
	}
	return out, nil
}

func (f *fakeDatasetRepo) ListDatasets(ctx context.Context, projectID string, limit, offset int) ([]repository.EvalDataset, error) {
	return nil, nil
}

func (f *fakeDatasetRepo) CreateDataset(ctx context.Context, ds repository.EvalDataset) error {
	f.datasets[ds.DatasetID] = ds
	return nil
}

// pairResolver 按 model_config_id 返回调用器，可对指定 id 注入失败，
// 并统计解析次数
type pairResolver struct {
	mu       sync.Mutex
	invokers map[string]*llm.Invoker
	failing  map[string]error
	calls    int
}

func (r *pairResolver) InvokerFor(ctx context.Context, id string) (*llm.Invoker, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	if err, ok := r.failing[id]; ok {
		return nil, err
	}
	iv, ok := r.invokers[id]
	if !ok {
		return nil, errors.New("model config not found")
	}
	return iv, nil
}

func (r *pairResolver) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// echoModelServer 按请求里的模型名返回固定回答
func echoModelServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req struct {
			Model string `json:"model"`
		}
		_ = json.Unmarshal(body, &req)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": %q,
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "answer from %s"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`, req.Model, req.Model)
	}))
}

func setupOrchestrator(t *testing.T, srv *httptest.Server, failing map[string]error) (*Orchestrator, *fakeTaskRepo) {
	t.Helper()
	tasks := newFakeTaskRepo()
	o, _ := setupOrchestratorWith(t, srv, failing, tasks)
	return o, tasks
}

func setupOrchestratorWith(t *testing.T, srv *httptest.Server, failing map[string]error, tasks repository.TaskRepository) (*Orchestrator, *pairResolver) {
	t.Helper()
	mkInvoker := func(name string) *llm.Invoker {
		return llm.NewInvoker(repository.ModelConfig{
			ProviderID: "test",
			Endpoint:   srv.URL + "/v1",
			APIKey:     "sk-test",
			ModelName:  name,
		}, 10*time.Second, llm.NopSink{})
	}
	resolver := &pairResolver{
		invokers: map[string]*llm.Invoker{
			"mc-a": mkInvoker("model-a"),
			"mc-b": mkInvoker("model-b"),
		},
		failing: failing,
	}

	datasets := &fakeDatasetRepo{datasets: map[string]repository.EvalDataset{
		"q1": {DatasetID: "q1", Question: "第一题", QuestionType: model.QuestionOpenEnded, CorrectAnswer: "参考一"},
		"q2": {DatasetID: "q2", Question: "第二题", QuestionType: model.QuestionOpenEnded, CorrectAnswer: "参考二"},
	}}
	return NewOrchestrator(tasks, datasets, resolver), resolver
}

func newBlindTask(questionIDs []string) repository.Task {
	now := time.Now()
	return repository.Task{
		TaskID:    "bt-1",
		ProjectID: "p1",
		TaskType:  model.TaskTypeBlindTest,
		Status:    model.TaskStatusProcessing,
		ModelInfo: model.EncodeDetail(model.BlindModelInfo{ModelAID: "mc-a", ModelBID: "mc-b"}),
		Detail: model.EncodeDetail(model.BlindTestDetail{
			QuestionIDs: questionIDs,
		}),
		TotalCount: len(questionIDs),
		StartTime:  &now,
		CreatedAt:  now,
	}
}

func TestResolveScores(t *testing.T) {
	tests := []struct {
		vote   model.Vote
		swap   bool
		scoreA float64
		scoreB float64
	}{
		{model.VoteLeft, false, 1, 0},
		{model.VoteLeft, true, 0, 1},
		{model.VoteRight, false, 0, 1},
		{model.VoteRight, true, 1, 0},
		{model.VoteBothGood, false, 0.5, 0.5},
		{model.VoteBothGood, true, 0.5, 0.5},
		{model.VoteBothBad, false, 0, 0},
		{model.VoteBothBad, true, 0, 0},
	}
	for _, tt := range tests {
		a, b := resolveScores(tt.vote, tt.swap)
		assert.Equal(t, tt.scoreA, a, "vote=%s swap=%v", tt.vote, tt.swap)
		assert.Equal(t, tt.scoreB, b, "vote=%s swap=%v", tt.vote, tt.swap)
	}
}

func TestRunRoundAndVoteFlow(t *testing.T) {
	srv := echoModelServer(t)
	defer srv.Close()

	o, tasks := setupOrchestrator(t, srv, nil)
	require.NoError(t, tasks.CreateTask(context.Background(), newBlindTask([]string{"q1", "q2"})))

	// 第一轮：两边都拿到回答，左右归属不对外暴露
	view, err := o.RunCurrentRound(context.Background(), "bt-1")
	require.NoError(t, err)
	assert.False(t, view.Completed)
	assert.Equal(t, 0, view.Index)
	assert.Equal(t, 2, view.Total)
	assert.ElementsMatch(t,
		[]string{"answer from model-a", "answer from model-b"},
		[]string{view.LeftAnswer, view.RightAnswer})

	// 同一轮重复查询不重新执行，swap 保持稳定
	again, err := o.RunCurrentRound(context.Background(), "bt-1")
	require.NoError(t, err)
	assert.Equal(t, view, again)

	// both_good 两边各 0.5，与 swap 无关
	out, err := o.SubmitVote(context.Background(), "bt-1", model.VoteBothGood)
	require.NoError(t, err)
	assert.Equal(t, 1, out.CurrentIndex)
	assert.False(t, out.Completed)
	assert.Equal(t, 0.5, out.ModelAScore)
	assert.Equal(t, 0.5, out.ModelBScore)

	// 第二轮：方向票按该轮记录的 swap 结算到物理模型
	view2, err := o.RunCurrentRound(context.Background(), "bt-1")
	require.NoError(t, err)
	assert.Equal(t, 1, view2.Index)

	out2, err := o.SubmitVote(context.Background(), "bt-1", model.VoteLeft)
	require.NoError(t, err)
	assert.True(t, out2.Completed)
	assert.Equal(t, 2, out2.CurrentIndex)
	assert.Equal(t, 2.0, out2.ModelAScore+out2.ModelBScore)

	task, err := tasks.GetTask(context.Background(), "bt-1")
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusCompleted, task.Status)
	assert.NotNil(t, task.EndTime)
	assert.Equal(t, 2, task.CompletedCount)

	detail := model.DecodeBlindTestDetail(task.Detail)
	require.Len(t, detail.Results, 2)
	last := detail.Results[1]
	assert.Equal(t, model.VoteLeft, last.Vote)
	if last.IsSwapped {
		assert.Equal(t, 0.0, last.ModelAScore)
		assert.Equal(t, 1.0, last.ModelBScore)
		assert.Equal(t, "answer from model-b", last.LeftAnswer)
	} else {
		assert.Equal(t, 1.0, last.ModelAScore)
		assert.Equal(t, 0.0, last.ModelBScore)
		assert.Equal(t, "answer from model-a", last.LeftAnswer)
	}
}

func TestCompletedRoundIsIdempotent(t *testing.T) {
	srv := echoModelServer(t)
	defer srv.Close()

	o, tasks := setupOrchestrator(t, srv, nil)
	task := newBlindTask([]string{"q1"})
	task.Detail = model.EncodeDetail(model.BlindTestDetail{
		QuestionIDs:  []string{"q1"},
		CurrentIndex: 1,
		Results:      []model.RoundResult{{QuestionID: "q1", Vote: model.VoteLeft}},
	})
	require.NoError(t, tasks.CreateTask(context.Background(), task))

	before, _ := tasks.GetTask(context.Background(), "bt-1")
	for i := 0; i < 3; i++ {
		view, err := o.RunCurrentRound(context.Background(), "bt-1")
		require.NoError(t, err)
		assert.True(t, view.Completed)
	}
	after, _ := tasks.GetTask(context.Background(), "bt-1")
	assert.Equal(t, before, after)
}

func TestVoteWithoutActiveRound(t *testing.T) {
	srv := echoModelServer(t)
	defer srv.Close()

	o, tasks := setupOrchestrator(t, srv, nil)
	require.NoError(t, tasks.CreateTask(context.Background(), newBlindTask([]string{"q1"})))

	_, err := o.SubmitVote(context.Background(), "bt-1", model.VoteLeft)
	require.Error(t, err)
	assert.True(t, apperr.IsInvalidState(err))
}

func TestVoteOnTerminalTask(t *testing.T) {
	srv := echoModelServer(t)
	defer srv.Close()

	o, tasks := setupOrchestrator(t, srv, nil)
	task := newBlindTask([]string{"q1"})
	task.Status = model.TaskStatusInterrupted
	require.NoError(t, tasks.CreateTask(context.Background(), task))

	_, err := o.SubmitVote(context.Background(), "bt-1", model.VoteLeft)
	require.Error(t, err)
	assert.True(t, apperr.IsInvalidState(err))
}

func TestOneSideFailureStillVotable(t *testing.T) {
	srv := echoModelServer(t)
	defer srv.Close()

	o, tasks := setupOrchestrator(t, srv, map[string]error{"mc-b": errors.New("auth rejected")})
	require.NoError(t, tasks.CreateTask(context.Background(), newBlindTask([]string{"q1"})))

	view, err := o.RunCurrentRound(context.Background(), "bt-1")
	require.NoError(t, err)

	// 失败侧留错误信息，成功侧照常；一边失败不影响另一边
	errCount := 0
	if view.LeftError != "" {
		errCount++
		assert.Empty(t, view.LeftAnswer)
		assert.Equal(t, "answer from model-a", view.RightAnswer)
	}
	if view.RightError != "" {
		errCount++
		assert.Empty(t, view.RightAnswer)
		assert.Equal(t, "answer from model-a", view.LeftAnswer)
	}
	assert.Equal(t, 1, errCount)

	out, err := o.SubmitVote(context.Background(), "bt-1", model.VoteBothBad)
	require.NoError(t, err)
	assert.True(t, out.Completed)
	assert.Equal(t, 0.0, out.ModelAScore)
	assert.Equal(t, 0.0, out.ModelBScore)
}

// interruptingTaskRepo 在投票回写落地之前把任务迁移到 interrupted，
// 复现外部中断与投票读-改-写的竞态
type interruptingTaskRepo struct {
	*fakeTaskRepo
}

func (r *interruptingTaskRepo) UpdateDetail(ctx context.Context, taskID string, detail json.RawMessage, completedCount int) (bool, error) {
	_, _ = r.fakeTaskRepo.FinishTask(ctx, taskID, model.TaskStatusInterrupted, "中断", time.Now())
	return r.fakeTaskRepo.UpdateDetail(ctx, taskID, detail, completedCount)
}

func TestVoteLosingRaceToInterruptIsDiscarded(t *testing.T) {
	srv := echoModelServer(t)
	defer srv.Close()

	inner := newFakeTaskRepo()
	o, _ := setupOrchestratorWith(t, srv, nil, &interruptingTaskRepo{fakeTaskRepo: inner})
	require.NoError(t, inner.CreateTask(context.Background(), newBlindTask([]string{"q1", "q2"})))

	_, err := o.RunCurrentRound(context.Background(), "bt-1")
	require.NoError(t, err)

	// 回写输给中断：投票作废，任务保持终态不被复活
	_, err = o.SubmitVote(context.Background(), "bt-1", model.VoteLeft)
	require.Error(t, err)
	assert.True(t, apperr.IsInvalidState(err))

	task, err := inner.GetTask(context.Background(), "bt-1")
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusInterrupted, task.Status)
	assert.NotNil(t, task.EndTime)
	assert.Equal(t, 0, task.CompletedCount)

	detail := model.DecodeBlindTestDetail(task.Detail)
	assert.Equal(t, 0, detail.CurrentIndex)
	assert.Empty(t, detail.Results)

	_, ok := o.rounds.get("bt-1")
	assert.False(t, ok)
}

func TestInterruptedTaskDropsPendingRound(t *testing.T) {
	srv := echoModelServer(t)
	defer srv.Close()

	o, tasks := setupOrchestrator(t, srv, nil)
	require.NoError(t, tasks.CreateTask(context.Background(), newBlindTask([]string{"q1", "q2"})))

	_, err := o.RunCurrentRound(context.Background(), "bt-1")
	require.NoError(t, err)
	_, ok := o.rounds.get("bt-1")
	require.True(t, ok)

	moved, err := tasks.FinishTask(context.Background(), "bt-1", model.TaskStatusInterrupted, "", time.Now())
	require.NoError(t, err)
	require.True(t, moved)

	// 观察到任务离开 processing 时清掉挂起轮次，不留内存残留
	_, err = o.RunCurrentRound(context.Background(), "bt-1")
	require.Error(t, err)
	assert.True(t, apperr.IsInvalidState(err))

	_, ok = o.rounds.get("bt-1")
	assert.False(t, ok)
}

func TestConcurrentRoundQueriesShareOneRound(t *testing.T) {
	srv := echoModelServer(t)
	defer srv.Close()

	tasks := newFakeTaskRepo()
	o, resolver := setupOrchestratorWith(t, srv, nil, tasks)
	require.NoError(t, tasks.CreateTask(context.Background(), newBlindTask([]string{"q1"})))

	const n = 8
	views := make([]*RoundView, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			views[i], errs[i] = o.RunCurrentRound(context.Background(), "bt-1")
		}(i)
	}
	wg.Wait()

	// 并发查询共享同一轮：左右排列一致，模型只各调用一次
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, views[0], views[i])
	}
	assert.Equal(t, 2, resolver.callCount())
}
