package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azhengyongqin/eval-hub/internal/config"
	"github.com/azhengyongqin/eval-hub/internal/grader"
	"github.com/azhengyongqin/eval-hub/internal/llm"
	"github.com/azhengyongqin/eval-hub/internal/model"
	asynqx "github.com/azhengyongqin/eval-hub/internal/queue"
	"github.com/azhengyongqin/eval-hub/internal/repository"
)

// fakeTaskRepo 内存任务仓储。interruptAtGet > 0 时，第 N 次 GetTask
// 会先把任务标为 interrupted 再返回，模拟外部中断与驱动例程的竞态。
type fakeTaskRepo struct {
	mu             sync.Mutex
	tasks          map[string]repository.Task
	getCalls       int
	interruptAtGet int
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
	f.getCalls++
	t, ok := f.tasks[taskID]
	if !ok {
		return nil, repository.ErrTaskNotFound
	}
	if f.interruptAtGet > 0 && f.getCalls >= f.interruptAtGet && t.Status == model.TaskStatusProcessing {
		now := time.Now()
		t.Status = model.TaskStatusInterrupted
		t.EndTime = &now
		f.tasks[taskID] = t
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

// fakeDataRepo 题目/结果/分块的内存仓储
type fakeDataRepo struct {
	mu       sync.Mutex
	datasets map[string]repository.EvalDataset
	results  map[string]repository.EvalResult
	chunks   map[string]repository.Chunk
}

func newFakeDataRepo() *fakeDataRepo {
	return &fakeDataRepo{
		datasets: make(map[string]repository.EvalDataset),
		results:  make(map[string]repository.EvalResult),
		chunks:   make(map[string]repository.Chunk),
	}
}

func (f *fakeDataRepo) GetDataset(ctx context.Context, id string) (*repository.EvalDataset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ds, ok := f.datasets[id]
	if !ok {
		return nil, repository.ErrDatasetNotFound
	}
	return &ds, nil
}

func (f *fakeDataRepo) ListDatasetsByIDs(ctx context.Context, ids []string) ([]repository.EvalDataset, error) {
	var out []repository.EvalDataset
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		if ds, ok := f.datasets[id]; ok {
			out = append(out, ds)
		}
	}
	return out, nil
}

func (f *fakeDataRepo) ListDatasets(ctx context.Context, projectID string, limit, offset int) ([]repository.EvalDataset, error) {
	return nil, nil
}

func (f *fakeDataRepo) CreateDataset(ctx context.Context, ds repository.EvalDataset) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.datasets[ds.DatasetID] = ds
	return nil
}

func (f *fakeDataRepo) UpsertResult(ctx context.Context, r repository.EvalResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[r.TaskID+"/"+r.DatasetID] = r
	return nil
}

func (f *fakeDataRepo) ListResultsByTask(ctx context.Context, taskID string) ([]repository.EvalResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.EvalResult
	for _, r := range f.results {
		if r.TaskID == taskID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeDataRepo) GetChunk(ctx context.Context, chunkID string) (*repository.Chunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.chunks[chunkID]
	if !ok {
		return nil, repository.ErrChunkNotFound
	}
	return &c, nil
}

// stubResolver 固定返回同一个调用器
type stubResolver struct {
	iv  *llm.Invoker
	err error
}

func (s *stubResolver) InvokerFor(ctx context.Context, id string) (*llm.Invoker, error) {
	return s.iv, s.err
}

// chatServer 对所有请求返回同一段回答
func chatServer(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	content, _ := json.Marshal(reply)
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "test-model",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": %s}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`, content)
	}))
}

func newRunner(tasks *fakeTaskRepo, data *fakeDataRepo, resolver llm.Resolver) *Runner {
	g := grader.New(resolver)
	return New(config.RunnerConfig{Concurrency: 1, ProgressFlushEvery: 5}, tasks, data, data, data, resolver, g)
}

func evalTask(taskID string, datasetIDs []string) repository.Task {
	now := time.Now()
	return repository.Task{
		TaskID:    taskID,
		ProjectID: "p1",
		TaskType:  model.TaskTypeEvaluation,
		Status:    model.TaskStatusProcessing,
		ModelInfo: model.EncodeDetail(model.EvalModelInfo{ModelConfigID: "mc-1"}),
		Detail: model.EncodeDetail(model.EvaluationDetail{
			DatasetIDs: datasetIDs,
		}),
		TotalCount: len(datasetIDs),
		StartTime:  &now,
		CreatedAt:  now,
	}
}

func TestEvaluationToleratesUnitFailures(t *testing.T) {
	srv := chatServer(t, "✅")
	defer srv.Close()

	iv := llm.NewInvoker(repository.ModelConfig{
		ProviderID: "test", Endpoint: srv.URL + "/v1", APIKey: "sk", ModelName: "test-model",
	}, 10*time.Second, llm.NopSink{})

	tasks := newFakeTaskRepo()
	data := newFakeDataRepo()

	// 10 道题里 3 道缺失，对应 3 个工作单元失败
	var ids []string
	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("d%d", i)
		ids = append(ids, id)
		if i == 1 || i == 4 || i == 7 {
			continue
		}
		data.datasets[id] = repository.EvalDataset{
			DatasetID: id, ProjectID: "p1", Question: "命题成立吗",
			QuestionType: model.QuestionTrueFalse, CorrectAnswer: "✅",
		}
	}

	require.NoError(t, tasks.CreateTask(context.Background(), evalTask("t-eval", ids)))

	r := newRunner(tasks, data, &stubResolver{iv: iv})
	at, err := asynqx.NewAsynqTask(asynqx.TypeEvaluationRun, "t-eval")
	require.NoError(t, err)
	require.NoError(t, r.HandleEvaluation(context.Background(), at))

	task, err := tasks.GetTask(context.Background(), "t-eval")
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusCompleted, task.Status)
	assert.Equal(t, 7, task.CompletedCount)
	assert.LessOrEqual(t, task.CompletedCount, task.TotalCount)
	assert.Contains(t, task.Note, "3/10")
	assert.NotNil(t, task.EndTime)

	results, err := data.ListResultsByTask(context.Background(), "t-eval")
	require.NoError(t, err)
	assert.Len(t, results, 7)
	for _, res := range results {
		assert.True(t, res.IsCorrect)
		assert.Equal(t, 1.0, res.Score)
	}
}

func TestEvaluationHonorsInterrupt(t *testing.T) {
	srv := chatServer(t, "✅")
	defer srv.Close()

	iv := llm.NewInvoker(repository.ModelConfig{
		ProviderID: "test", Endpoint: srv.URL + "/v1", APIKey: "sk", ModelName: "test-model",
	}, 10*time.Second, llm.NopSink{})

	tasks := newFakeTaskRepo()
	tasks.interruptAtGet = 4 // 处理 2 个单元后的检查点读到 interrupted
	data := newFakeDataRepo()

	var ids []string
	for i := 0; i < 6; i++ {
		id := fmt.Sprintf("d%d", i)
		ids = append(ids, id)
		data.datasets[id] = repository.EvalDataset{
			DatasetID: id, Question: "命题成立吗",
			QuestionType: model.QuestionTrueFalse, CorrectAnswer: "✅",
		}
	}
	require.NoError(t, tasks.CreateTask(context.Background(), evalTask("t-int", ids)))

	r := newRunner(tasks, data, &stubResolver{iv: iv})
	at, err := asynqx.NewAsynqTask(asynqx.TypeEvaluationRun, "t-int")
	require.NoError(t, err)
	require.NoError(t, r.HandleEvaluation(context.Background(), at))

	task, err := tasks.GetTask(context.Background(), "t-int")
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusInterrupted, task.Status)
	assert.NotNil(t, task.EndTime)

	// 中断后不再推进，只有检查点之前完成的单元有结果
	results, _ := data.ListResultsByTask(context.Background(), "t-int")
	assert.Less(t, len(results), 6)
}

func TestEvaluationCorruptPayloadFailsTask(t *testing.T) {
	tasks := newFakeTaskRepo()
	data := newFakeDataRepo()

	task := evalTask("t-bad", []string{"d0"})
	task.Detail = json.RawMessage(`{"dataset_ids": "not-an-array"`)
	require.NoError(t, tasks.CreateTask(context.Background(), task))

	r := newRunner(tasks, data, &stubResolver{err: errors.New("unused")})
	at, err := asynqx.NewAsynqTask(asynqx.TypeEvaluationRun, "t-bad")
	require.NoError(t, err)
	require.NoError(t, r.HandleEvaluation(context.Background(), at))

	got, err := tasks.GetTask(context.Background(), "t-bad")
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusFailed, got.Status)
	assert.NotEmpty(t, got.Note)
	assert.NotNil(t, got.EndTime)
}

func TestEvaluationSkipsTerminalTask(t *testing.T) {
	tasks := newFakeTaskRepo()
	data := newFakeDataRepo()

	task := evalTask("t-done", []string{"d0"})
	task.Status = model.TaskStatusCompleted
	require.NoError(t, tasks.CreateTask(context.Background(), task))

	r := newRunner(tasks, data, &stubResolver{err: errors.New("unused")})
	at, err := asynqx.NewAsynqTask(asynqx.TypeEvaluationRun, "t-done")
	require.NoError(t, err)
	require.NoError(t, r.HandleEvaluation(context.Background(), at))

	got, _ := tasks.GetTask(context.Background(), "t-done")
	assert.Equal(t, model.TaskStatusCompleted, got.Status)
}

func TestGeneration(t *testing.T) {
	reply := `[
		{"question": "连接池的作用是复用连接吗", "question_type": "true_false", "correct_answer": "✅"},
		{"question": "以下哪项是连接池参数", "question_type": "single_choice", "options": ["最大连接数", "字体", "颜色", "分辨率"], "correct_answer": "A"}
	]`
	srv := chatServer(t, reply)
	defer srv.Close()

	iv := llm.NewInvoker(repository.ModelConfig{
		ProviderID: "test", Endpoint: srv.URL + "/v1", APIKey: "sk", ModelName: "test-model",
	}, 10*time.Second, llm.NopSink{})

	tasks := newFakeTaskRepo()
	data := newFakeDataRepo()
	data.chunks["c1"] = repository.Chunk{ChunkID: "c1", ProjectID: "p1", Content: "连接池介绍……"}
	data.chunks["c2"] = repository.Chunk{ChunkID: "c2", ProjectID: "p1", Content: "更多内容……"}

	now := time.Now()
	require.NoError(t, tasks.CreateTask(context.Background(), repository.Task{
		TaskID:    "t-gen",
		ProjectID: "p1",
		TaskType:  model.TaskTypeGeneration,
		Status:    model.TaskStatusProcessing,
		ModelInfo: model.EncodeDetail(model.EvalModelInfo{ModelConfigID: "mc-1"}),
		Detail: model.EncodeDetail(model.GenerationDetail{
			ChunkIDs:          []string{"c1", "c2"},
			QuestionsPerChunk: 2,
		}),
		TotalCount: 2,
		StartTime:  &now,
		CreatedAt:  now,
	}))

	r := newRunner(tasks, data, &stubResolver{iv: iv})
	at, err := asynqx.NewAsynqTask(asynqx.TypeDatasetGenerate, "t-gen")
	require.NoError(t, err)
	require.NoError(t, r.HandleGeneration(context.Background(), at))

	task, _ := tasks.GetTask(context.Background(), "t-gen")
	assert.Equal(t, model.TaskStatusCompleted, task.Status)
	assert.Equal(t, 2, task.CompletedCount)

	// 每个分块生成 2 道题
	assert.Len(t, data.datasets, 4)
	for _, ds := range data.datasets {
		assert.Equal(t, "p1", ds.ProjectID)
		assert.True(t, ds.QuestionType.Valid())
	}
}

func TestParseGeneratedQuestions(t *testing.T) {
	wrapped := "以下是生成的题目：\n```json\n[{\"question\": \"q\", \"question_type\": \"short_answer\", \"correct_answer\": \"a\"}]\n```"
	qs := parseGeneratedQuestions(wrapped)
	require.Len(t, qs, 1)
	assert.Equal(t, "q", qs[0].Question)

	assert.Nil(t, parseGeneratedQuestions("not json at all"))
}
